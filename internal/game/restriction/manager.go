// Package restriction решает, может ли персонаж совершить взаимодействие
// с персонажем, предметом, модулем или room device.
//
// Manager строится для одного действующего персонажа (actor) из его
// immutable состояния. Проверки закрыты по умолчанию: любая неоднозначность
// означает отказ. Структурная корректность (существование предмета, вместимость)
// проверяется не здесь, а валидацией состояния.
package restriction

import (
	"fmt"
	"slices"

	"github.com/udisondev/dressroom/internal/model"
)

// InteractionType — вид взаимодействия с предметом.
type InteractionType int

const (
	// InteractionAddRemove — надеть, снять, положить, достать.
	InteractionAddRemove InteractionType = iota
	// InteractionModify — изменить состояние модуля (вариант, замок).
	InteractionModify
	// InteractionStyling — цвет и прочая косметика.
	InteractionStyling
	// InteractionAccessOnly — доступ к содержимому без изменения предмета.
	InteractionAccessOnly
)

var interactionNames = []string{"ADD_REMOVE", "MODIFY", "STYLING", "ACCESS_ONLY"}

func (t InteractionType) String() string {
	if int(t) < 0 || int(t) >= len(interactionNames) {
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
	return interactionNames[t]
}

// Reason — причина отказа (закрытый каталог).
type Reason string

const (
	ReasonBlockedHands              Reason = "blockedHands"
	ReasonBlockedAddRemove          Reason = "blockedAddRemove"
	ReasonBlockedModule             Reason = "blockedModule"
	ReasonCovered                   Reason = "covered"
	ReasonBlockedSlot               Reason = "blockedSlot"
	ReasonLocked                    Reason = "locked"
	ReasonSafemodeOther             Reason = "safemodeOther"
	ReasonInRoomDevice              Reason = "inRoomDevice"
	ReasonDeviceWearablePart        Reason = "deviceWearablePart"
	ReasonBodyModificationForbidden Reason = "bodyModificationForbidden"
	ReasonPermissionDenied          Reason = "permissionDenied"
	ReasonPermissionPrompt          Reason = "permissionPrompt"
)

// Reasons returns the whole restriction catalogue.
func Reasons() []Reason {
	return []Reason{
		ReasonBlockedHands, ReasonBlockedAddRemove, ReasonBlockedModule, ReasonCovered,
		ReasonBlockedSlot, ReasonLocked, ReasonSafemodeOther, ReasonInRoomDevice,
		ReasonDeviceWearablePart, ReasonBodyModificationForbidden, ReasonPermissionDenied,
		ReasonPermissionPrompt,
	}
}

// Restriction описывает отказ. Item — предмет, который блокирует взаимодействие
// (или целевой предмет, если блокирует он сам).
type Restriction struct {
	Reason Reason
	Item   model.ItemID
	Asset  model.AssetID
	Module string
	Target model.CharacterID
	Group  PermissionGroup
}

func (r *Restriction) Error() string {
	s := "restricted: " + string(r.Reason)
	if r.Item != "" {
		s += " item=" + string(r.Item)
	}
	if r.Module != "" {
		s += " module=" + r.Module
	}
	if r.Target != "" {
		s += " target=" + string(r.Target)
	}
	if r.Group != "" {
		s += " group=" + string(r.Group)
	}
	return s
}

// CharacterInfo — не-appearance данные персонажа, влияющие на проверки.
type CharacterInfo struct {
	Safemode    bool
	Roles       []string
	Permissions PermissionSet
}

// Target — цель взаимодействия: персонаж (Character != nil) или инвентарь комнаты.
type Target struct {
	Character *model.CharacterState
	Info      CharacterInfo
	Room      *model.RoomState
}

// CharacterTarget returns a target for a character.
func CharacterTarget(state *model.CharacterState, info CharacterInfo) Target {
	return Target{Character: state, Info: info}
}

// RoomTarget returns a target for the room inventory.
func RoomTarget(room *model.RoomState) Target {
	return Target{Room: room}
}

// IsCharacter reports whether the target is a character.
func (t Target) IsCharacter() bool { return t.Character != nil }

// Items возвращает верхний список предметов цели.
func (t Target) Items() []*model.Item {
	if t.Character != nil {
		return t.Character.Items()
	}
	if t.Room != nil {
		return t.Room.Items()
	}
	return nil
}

// Manager проверяет взаимодействия одного персонажа.
type Manager struct {
	actor *model.CharacterState
	info  CharacterInfo
	props *model.AssetPropertiesResult
}

// NewManager создаёт Manager для персонажа actor.
func NewManager(actor *model.CharacterState, info CharacterInfo) *Manager {
	return &Manager{actor: actor, info: info, props: actor.Properties()}
}

// Actor returns the acting character state.
func (m *Manager) Actor() *model.CharacterState { return m.actor }

// Info returns the acting character info.
func (m *Manager) Info() CharacterInfo { return m.info }

// Effects returns the merged effects of items worn by the actor.
func (m *Manager) Effects() model.Effects { return m.props.Effects }

// IsSelf reports whether the target is the actor itself.
func (m *Manager) IsSelf(t Target) bool {
	return t.Character != nil && t.Character.ID() == m.actor.ID()
}

// InRoomDevice возвращает ссылку на device, в котором находится actor.
func (m *Manager) InRoomDevice() *model.DeviceLink {
	for _, item := range m.actor.Items() {
		if link := item.DeviceLink(); link != nil {
			return link
		}
	}
	return nil
}

// safemodeBypass reports whether restrictions are skipped for the target.
func (m *Manager) safemodeBypass(t Target) bool {
	return m.info.Safemode && m.IsSelf(t)
}

// checkSafemode запрещает взаимодействие между персонажем в safemode и другими.
func (m *Manager) checkSafemode(t Target) *Restriction {
	if !t.IsCharacter() || m.IsSelf(t) {
		return nil
	}
	if m.info.Safemode || t.Info.Safemode {
		return &Restriction{Reason: ReasonSafemodeOther, Target: t.Character.ID()}
	}
	return nil
}

func (m *Manager) checkPermission(t Target, group PermissionGroup) *Restriction {
	if !t.IsCharacter() || m.IsSelf(t) {
		return nil
	}
	perms := t.Info.Permissions
	if perms == nil {
		perms = DefaultPermissions()
	}
	switch perms.Resolve(group, m.actor.ID(), m.info.Roles) {
	case PermissionYes:
		return nil
	case PermissionPrompt:
		return &Restriction{Reason: ReasonPermissionPrompt, Target: t.Character.ID(), Group: group}
	default:
		return &Restriction{Reason: ReasonPermissionDenied, Target: t.Character.ID(), Group: group}
	}
}

func (m *Manager) checkHands(interaction InteractionType) *Restriction {
	if interaction == InteractionAccessOnly || !m.props.Effects.BlockHands {
		return nil
	}
	return &Restriction{Reason: ReasonBlockedHands, Item: m.handsBlocker()}
}

// handsBlocker ищет верхний предмет actor, блокирующий руки.
func (m *Manager) handsBlocker() model.ItemID {
	items := m.actor.Items()
	for i := len(m.props.Individual) - 1; i >= 0; i-- {
		if m.props.Individual[i].Effects.BlockHands {
			return items[i].ID()
		}
	}
	return ""
}

// CanUseItem проверяет взаимодействие с предметом по пути path в цели t.
// Для проверки добавления предмета t и path должны описывать состояние
// после добавления.
//
// Returns:
//   - *Restriction: nil если взаимодействие разрешено
func (m *Manager) CanUseItem(t Target, path model.ItemPath, interaction InteractionType) *Restriction {
	if r := m.checkSafemode(t); r != nil {
		return r
	}
	if m.safemodeBypass(t) {
		return nil
	}
	if r := m.checkHands(interaction); r != nil {
		return r
	}
	if r := m.checkPermission(t, GroupInteract); r != nil {
		return r
	}
	if !t.IsCharacter() && interaction == InteractionAddRemove {
		if link := m.InRoomDevice(); link != nil {
			return &Restriction{Reason: ReasonInRoomDevice, Item: link.Device}
		}
	}

	top := path.ItemID
	if len(path.Container) > 0 {
		top = path.Container[0].Item
	}
	if r := m.checkWornAccess(t, top, interaction, len(path.Container) == 0); r != nil {
		return r
	}

	current := t.Items()
	for i, step := range path.Container {
		container := findItem(current, step.Item)
		if container == nil {
			return nil
		}
		if r := m.checkModule(t, container, step.Module, InteractionAccessOnly); r != nil {
			return r
		}
		switch c := container.Module(step.Module).(type) {
		case *model.LockSlotModule:
			if c.Locked() && i == len(path.Container)-1 && interaction == InteractionAddRemove {
				return &Restriction{Reason: ReasonLocked, Item: container.ID(), Asset: container.Asset().ID, Module: step.Module}
			}
			current = c.Items()
		case *model.StorageModule:
			current = c.Items()
		case *model.TypedModule, nil:
			return nil
		default:
			panic(fmt.Sprintf("restriction: unknown module state %T", c))
		}
	}

	item := findItem(current, path.ItemID)
	if item == nil {
		return nil
	}
	return m.checkItem(t, item, interaction)
}

// checkWornAccess проверяет coverSlots и blockSlots предметов, надетых поверх top.
// blockSlots ограничивают только сам надетый предмет, не его содержимое.
func (m *Manager) checkWornAccess(t Target, top model.ItemID, interaction InteractionType, direct bool) *Restriction {
	if !t.IsCharacter() {
		return nil
	}
	items := t.Character.Items()
	idx := slices.IndexFunc(items, func(i *model.Item) bool { return i.ID() == top })
	if idx < 0 {
		return nil
	}
	props := t.Character.Properties()
	worn := props.Individual[idx]
	blocking := direct && (interaction == InteractionAddRemove || interaction == InteractionModify)
	for j := idx + 1; j < len(items); j++ {
		above := props.Individual[j]
		for slot := range above.CoverSlots {
			if worn.Occupies(slot) {
				return &Restriction{Reason: ReasonCovered, Item: items[j].ID(), Asset: items[j].Asset().ID}
			}
		}
		if !blocking {
			continue
		}
		for slot := range above.BlockSlots {
			if worn.Occupies(slot) {
				return &Restriction{Reason: ReasonBlockedSlot, Item: items[j].ID(), Asset: items[j].Asset().ID}
			}
		}
	}
	return nil
}

func (m *Manager) checkItem(t Target, item *model.Item, interaction InteractionType) *Restriction {
	if interaction != InteractionAddRemove {
		return nil
	}
	if item.Asset().WearablePart {
		return &Restriction{Reason: ReasonDeviceWearablePart, Item: item.ID(), Asset: item.Asset().ID}
	}
	if len(item.DeviceOccupants()) > 0 {
		return &Restriction{Reason: ReasonInRoomDevice, Item: item.ID(), Asset: item.Asset().ID}
	}
	props := model.ItemProperties(item)
	if props.BlockAddRemove || (props.BlockSelfAddRemove && m.IsSelf(t)) {
		return &Restriction{Reason: ReasonBlockedAddRemove, Item: item.ID(), Asset: item.Asset().ID}
	}
	return nil
}

func (m *Manager) checkModule(t Target, item *model.Item, module string, interaction InteractionType) *Restriction {
	props := model.ItemProperties(item)
	blocked := func() *Restriction {
		return &Restriction{Reason: ReasonBlockedModule, Item: item.ID(), Asset: item.Asset().ID, Module: module}
	}
	if _, ok := props.BlockModules[module]; ok {
		return blocked()
	}
	if _, ok := props.BlockSelfModules[module]; ok && m.IsSelf(t) {
		return blocked()
	}
	if lock, ok := item.Module(module).(*model.LockSlotModule); ok {
		if lock.Config().BlockSelf && m.IsSelf(t) && interaction == InteractionModify {
			return &Restriction{Reason: ReasonLocked, Item: item.ID(), Asset: item.Asset().ID, Module: module}
		}
	}
	return nil
}

// CanUseItemModule проверяет взаимодействие с модулем module предмета по пути path.
func (m *Manager) CanUseItemModule(t Target, path model.ItemPath, module string, interaction InteractionType) *Restriction {
	if r := m.CanUseItem(t, path, interaction); r != nil {
		return r
	}
	if m.safemodeBypass(t) {
		return nil
	}
	item := model.GetItem(t.Items(), path)
	if item == nil {
		return nil
	}
	return m.checkModule(t, item, module, interaction)
}

// CanPose проверяет изменение позы или view цели.
// Свою позу персонаж меняет всегда: её ограничивают только лимиты предметов.
func (m *Manager) CanPose(t Target) *Restriction {
	if r := m.checkSafemode(t); r != nil {
		return r
	}
	if m.IsSelf(t) {
		return nil
	}
	if r := m.checkHands(InteractionModify); r != nil {
		return r
	}
	return m.checkPermission(t, GroupPose)
}

// CanModifyBody проверяет изменение формы тела (кости типа body).
// Форму тела персонаж меняет только себе.
func (m *Manager) CanModifyBody(t Target) *Restriction {
	if !m.IsSelf(t) {
		r := &Restriction{Reason: ReasonBodyModificationForbidden}
		if t.Character != nil {
			r.Target = t.Character.ID()
		}
		return r
	}
	return nil
}

// CanEnterRoomDevice проверяет посадку цели t в device.
func (m *Manager) CanEnterRoomDevice(t Target, device *model.Item) *Restriction {
	if r := m.checkSafemode(t); r != nil {
		return r
	}
	if t.Character != nil {
		for _, item := range t.Character.Items() {
			if link := item.DeviceLink(); link != nil {
				return &Restriction{Reason: ReasonInRoomDevice, Item: link.Device, Target: t.Character.ID()}
			}
		}
	}
	if m.safemodeBypass(t) {
		return nil
	}
	if !m.IsSelf(t) {
		if r := m.checkHands(InteractionAddRemove); r != nil {
			return r
		}
	}
	return m.checkPermission(t, GroupInteract)
}

// CanLeaveRoomDevice проверяет выход цели t из device (снятие wearable part).
func (m *Manager) CanLeaveRoomDevice(t Target, part *model.Item) *Restriction {
	if r := m.checkSafemode(t); r != nil {
		return r
	}
	if m.safemodeBypass(t) {
		return nil
	}
	if !m.IsSelf(t) {
		if r := m.checkHands(InteractionAddRemove); r != nil {
			return r
		}
		if r := m.checkPermission(t, GroupInteract); r != nil {
			return r
		}
	}
	props := model.ItemProperties(part)
	if props.BlockAddRemove || (props.BlockSelfAddRemove && m.IsSelf(t)) {
		return &Restriction{Reason: ReasonBlockedAddRemove, Item: part.ID(), Asset: part.Asset().ID}
	}
	return nil
}

func findItem(items []*model.Item, id model.ItemID) *model.Item {
	for _, item := range items {
		if item.ID() == id {
			return item
		}
	}
	return nil
}
