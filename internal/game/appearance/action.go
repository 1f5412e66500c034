package appearance

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/udisondev/dressroom/internal/model"
)

// ErrUnknownAction — неизвестный discriminator type.
var ErrUnknownAction = errors.New("unknown action type")

// ActionType — discriminator действия на проводе.
type ActionType string

const (
	ActionCreate          ActionType = "create"
	ActionDelete          ActionType = "delete"
	ActionMove            ActionType = "move"
	ActionTransfer        ActionType = "transfer"
	ActionColor           ActionType = "color"
	ActionPose            ActionType = "pose"
	ActionBody            ActionType = "body"
	ActionSetView         ActionType = "setView"
	ActionModule          ActionType = "moduleAction"
	ActionRoomDeviceEnter ActionType = "roomDeviceEnter"
	ActionRoomDeviceLeave ActionType = "roomDeviceLeave"
)

// ActionTypes lists every action kind.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionCreate, ActionDelete, ActionMove, ActionTransfer, ActionColor, ActionPose,
		ActionBody, ActionSetView, ActionModule, ActionRoomDeviceEnter, ActionRoomDeviceLeave,
	}
}

// TargetType selects a character or the room inventory.
type TargetType string

const (
	TargetCharacter     TargetType = "character"
	TargetRoomInventory TargetType = "roomInventory"
)

// Target — цель действия внутри одного space.
type Target struct {
	Type        TargetType        `json:"type"`
	CharacterID model.CharacterID `json:"characterId,omitempty"`
}

// CharacterTarget returns a target selecting the character.
func CharacterTarget(id model.CharacterID) Target {
	return Target{Type: TargetCharacter, CharacterID: id}
}

// RoomInventoryTarget returns a target selecting the room inventory.
func RoomInventoryTarget() Target {
	return Target{Type: TargetRoomInventory}
}

func (t Target) String() string {
	if t.Type == TargetCharacter {
		return "character:" + string(t.CharacterID)
	}
	return string(t.Type)
}

// Action — одно действие над внешностью. Набор реализаций закрыт.
type Action interface {
	Type() ActionType
	action()
}

// CreateAction создаёт новый предмет из ассета в контейнере цели.
type CreateAction struct {
	Target       Target                  `json:"target"`
	Container    model.ItemContainerPath `json:"container,omitempty"`
	ItemID       model.ItemID            `json:"itemId"`
	Asset        model.AssetID           `json:"asset"`
	InsertBefore model.ItemID            `json:"insertBefore,omitempty"`
}

// DeleteAction удаляет предмет.
type DeleteAction struct {
	Target Target         `json:"target"`
	Item   model.ItemPath `json:"item"`
}

// MoveAction сдвигает предмет внутри его контейнера.
type MoveAction struct {
	Target Target         `json:"target"`
	Item   model.ItemPath `json:"item"`
	Shift  int            `json:"shift"`
}

// TransferAction переносит предмет в другой контейнер, возможно другой цели.
type TransferAction struct {
	Source       Target                  `json:"source"`
	Item         model.ItemPath          `json:"item"`
	Target       Target                  `json:"target"`
	Container    model.ItemContainerPath `json:"container,omitempty"`
	InsertBefore model.ItemID            `json:"insertBefore,omitempty"`
}

// ColorAction перекрашивает предмет.
type ColorAction struct {
	Target Target         `json:"target"`
	Item   model.ItemPath `json:"item"`
	Color  []string       `json:"color"`
}

// ArmChange — частичное изменение руки; nil поля не меняются.
type ArmChange struct {
	Position *model.ArmPosition `json:"position,omitempty"`
	Rotation *model.ArmRotation `json:"rotation,omitempty"`
	Fingers  *model.ArmFingers  `json:"fingers,omitempty"`
}

func (c *ArmChange) apply(arm model.ArmPose) model.ArmPose {
	if c == nil {
		return arm
	}
	if c.Position != nil {
		arm.Position = *c.Position
	}
	if c.Rotation != nil {
		arm.Rotation = *c.Rotation
	}
	if c.Fingers != nil {
		arm.Fingers = *c.Fingers
	}
	return arm
}

// PoseAction меняет позу персонажа. Порядок применения: preset, bones,
// bonesDelta (относительно эффективной позы), arms, leftArm/rightArm, view.
type PoseAction struct {
	Target     Target               `json:"target"`
	Preset     string               `json:"preset,omitempty"`
	Bones      map[string]int       `json:"bones,omitempty"`
	BonesDelta map[string]int       `json:"bonesDelta,omitempty"`
	Arms       *ArmChange           `json:"arms,omitempty"`
	LeftArm    *ArmChange           `json:"leftArm,omitempty"`
	RightArm   *ArmChange           `json:"rightArm,omitempty"`
	View       *model.CharacterView `json:"view,omitempty"`
}

// BodyAction меняет кости типа body.
type BodyAction struct {
	Target Target         `json:"target"`
	Bones  map[string]int `json:"bones"`
}

// SetViewAction поворачивает персонажа.
type SetViewAction struct {
	Target Target              `json:"target"`
	View   model.CharacterView `json:"view"`
}

// ModuleOperationType — операция над модулем.
type ModuleOperationType string

const (
	ModuleSetVariant ModuleOperationType = "setVariant"
	ModuleLock       ModuleOperationType = "lock"
	ModuleUnlock     ModuleOperationType = "unlock"
)

// ModuleOperation — операция модуля; Variant только для setVariant.
type ModuleOperation struct {
	Type    ModuleOperationType `json:"type"`
	Variant string              `json:"variant,omitempty"`
}

// ModuleAction применяет операцию к модулю предмета.
type ModuleAction struct {
	Target Target          `json:"target"`
	Item   model.ItemPath  `json:"item"`
	Module string          `json:"module"`
	Action ModuleOperation `json:"action"`
}

// RoomDeviceEnterAction сажает персонажа в слот room device.
// ItemID — id создаваемой wearable part; пустой означает сгенерированный.
type RoomDeviceEnterAction struct {
	Target Target       `json:"target"`
	Device model.ItemID `json:"device"`
	Slot   string       `json:"slot"`
	ItemID model.ItemID `json:"itemId,omitempty"`
}

// RoomDeviceLeaveAction освобождает слот room device, занятый персонажем цели.
type RoomDeviceLeaveAction struct {
	Target Target       `json:"target"`
	Device model.ItemID `json:"device"`
	Slot   string       `json:"slot"`
}

func (CreateAction) Type() ActionType          { return ActionCreate }
func (DeleteAction) Type() ActionType          { return ActionDelete }
func (MoveAction) Type() ActionType            { return ActionMove }
func (TransferAction) Type() ActionType        { return ActionTransfer }
func (ColorAction) Type() ActionType           { return ActionColor }
func (PoseAction) Type() ActionType            { return ActionPose }
func (BodyAction) Type() ActionType            { return ActionBody }
func (SetViewAction) Type() ActionType         { return ActionSetView }
func (ModuleAction) Type() ActionType          { return ActionModule }
func (RoomDeviceEnterAction) Type() ActionType { return ActionRoomDeviceEnter }
func (RoomDeviceLeaveAction) Type() ActionType { return ActionRoomDeviceLeave }

func (CreateAction) action()          {}
func (DeleteAction) action()          {}
func (MoveAction) action()            {}
func (TransferAction) action()        {}
func (ColorAction) action()           {}
func (PoseAction) action()            {}
func (BodyAction) action()            {}
func (SetViewAction) action()         {}
func (ModuleAction) action()          {}
func (RoomDeviceEnterAction) action() {}
func (RoomDeviceLeaveAction) action() {}

// DecodeAction разбирает действие по полю type.
// Схема входящего JSON проверяется раньше, в protocol.
func DecodeAction(raw []byte) (Action, error) {
	var head struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decoding action: %w", err)
	}
	switch head.Type {
	case ActionCreate:
		return decodeAs[CreateAction](raw)
	case ActionDelete:
		return decodeAs[DeleteAction](raw)
	case ActionMove:
		return decodeAs[MoveAction](raw)
	case ActionTransfer:
		return decodeAs[TransferAction](raw)
	case ActionColor:
		return decodeAs[ColorAction](raw)
	case ActionPose:
		return decodeAs[PoseAction](raw)
	case ActionBody:
		return decodeAs[BodyAction](raw)
	case ActionSetView:
		return decodeAs[SetViewAction](raw)
	case ActionModule:
		return decodeAs[ModuleAction](raw)
	case ActionRoomDeviceEnter:
		return decodeAs[RoomDeviceEnterAction](raw)
	case ActionRoomDeviceLeave:
		return decodeAs[RoomDeviceLeaveAction](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, head.Type)
	}
}

func decodeAs[T Action](raw []byte) (Action, error) {
	var a T
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decoding %s action: %w", a.Type(), err)
	}
	return a, nil
}

// EncodeAction кодирует действие вместе с полем type.
func EncodeAction(a Action) (json.RawMessage, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encoding %s action: %w", a.Type(), err)
	}
	head := fmt.Sprintf(`{"type":%q`, a.Type())
	if len(body) <= 2 {
		return json.RawMessage(head + "}"), nil
	}
	return json.RawMessage(head + "," + string(body[1:])), nil
}
