package appearance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
)

// ProblemKind — класс отказа.
type ProblemKind string

const (
	// KindStructural — действие нельзя применить к текущему состоянию.
	KindStructural ProblemKind = "structural"
	// KindPermission — у actor нет прав (restriction.Reason).
	KindPermission ProblemKind = "permission"
	// KindConstraint — лимиты позы предметов несовместимы.
	KindConstraint ProblemKind = "constraint"
)

// Структурные причины отказа, которые возникают до валидации состояния.
// Остальные структурные причины — model.ValidationProblem.
const (
	ReasonInvalidAction       = "invalidAction"
	ReasonTargetNotFound      = "targetNotFound"
	ReasonItemNotFound        = "itemNotFound"
	ReasonContainerNotFound   = "containerNotFound"
	ReasonNotAContainer       = "notAContainer"
	ReasonUnknownAsset        = "unknownAsset"
	ReasonInvalidItemID       = "invalidItemId"
	ReasonInvalidModuleAction = "invalidModuleAction"
	ReasonUnknownVariant      = "unknownVariant"
	ReasonUnknownPreset       = "unknownPreset"
	ReasonUnknownBone         = "unknownBone"
	ReasonNotRoomDevice       = "notRoomDevice"
	ReasonUnknownDeviceSlot   = "unknownDeviceSlot"
	ReasonDeviceSlotOccupied  = "deviceSlotOccupied"
	ReasonNotInDevice         = "notInDevice"
)

// StructuralReasons lists the reasons produced before state validation.
func StructuralReasons() []string {
	return []string{
		ReasonInvalidAction, ReasonTargetNotFound, ReasonItemNotFound, ReasonContainerNotFound,
		ReasonNotAContainer, ReasonUnknownAsset, ReasonInvalidItemID, ReasonInvalidModuleAction,
		ReasonUnknownVariant, ReasonUnknownPreset, ReasonUnknownBone, ReasonNotRoomDevice,
		ReasonUnknownDeviceSlot, ReasonDeviceSlotOccupied, ReasonNotInDevice,
	}
}

// Reasons возвращает полный закрытый каталог причин отказа.
func Reasons() []string {
	out := StructuralReasons()
	for _, p := range model.ValidationProblems() {
		out = append(out, string(p))
	}
	for _, r := range restriction.Reasons() {
		out = append(out, string(r))
	}
	return out
}

// Problem — типизированный отказ действия. Передаётся клиенту как есть.
type Problem struct {
	Kind   ProblemKind       `json:"kind"`
	Reason string            `json:"reason"`
	Item   model.ItemID      `json:"item,omitempty"`
	Asset  model.AssetID     `json:"asset,omitempty"`
	Module string            `json:"module,omitempty"`
	Target model.CharacterID `json:"target,omitempty"`
	Detail string            `json:"detail,omitempty"`
}

func (p *Problem) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", p.Kind, p.Reason)
	if p.Item != "" {
		fmt.Fprintf(&b, " item=%s", p.Item)
	}
	if p.Module != "" {
		fmt.Fprintf(&b, " module=%s", p.Module)
	}
	if p.Target != "" {
		fmt.Fprintf(&b, " target=%s", p.Target)
	}
	if p.Detail != "" {
		fmt.Fprintf(&b, " (%s)", p.Detail)
	}
	return b.String()
}

func structural(reason string, format string, args ...any) *Problem {
	return &Problem{Kind: KindStructural, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func restrictionProblem(r *restriction.Restriction) *Problem {
	return &Problem{
		Kind:   KindPermission,
		Reason: string(r.Reason),
		Item:   r.Item,
		Asset:  r.Asset,
		Module: r.Module,
		Target: r.Target,
	}
}

func validationProblem(v model.AppearanceValidationResult) *Problem {
	kind := KindStructural
	if v.Problem == model.ProblemPoseLimitsInfeasible {
		kind = KindConstraint
	}
	return &Problem{Kind: kind, Reason: string(v.Problem), Item: v.Item, Detail: v.Detail}
}

// graphProblem переводит ошибки операций дерева предметов в отказ.
func graphProblem(err error) *Problem {
	reason := ReasonItemNotFound
	switch {
	case errors.Is(err, model.ErrContainerNotFound):
		reason = ReasonContainerNotFound
	case errors.Is(err, model.ErrNotAContainer):
		reason = ReasonNotAContainer
	}
	return &Problem{Kind: KindStructural, Reason: reason, Detail: err.Error()}
}
