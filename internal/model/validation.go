package model

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Лимиты размера дерева предметов.
const (
	MaxContainerDepth  = 8
	CharacterItemLimit = 150
	RoomItemLimit      = 500
)

// slotEpsilon compensates float summation error of occupySlots amounts.
const slotEpsilon = 1e-9

// ValidationProblem — закрытый каталог причин, по которым набор предметов невалиден.
type ValidationProblem string

const (
	ProblemDuplicateID          ValidationProblem = "duplicateId"
	ProblemContainerCycle       ValidationProblem = "containerCycle"
	ProblemContainerTooDeep     ValidationProblem = "containerTooDeep"
	ProblemSlotOverflow         ValidationProblem = "slotOverflow"
	ProblemMissingRequirement   ValidationProblem = "missingRequirement"
	ProblemForbiddenAttribute   ValidationProblem = "forbiddenAttribute"
	ProblemStorageFull          ValidationProblem = "storageFull"
	ProblemItemTooLarge         ValidationProblem = "itemTooLarge"
	ProblemInvalidLockItem      ValidationProblem = "invalidLockItem"
	ProblemLockSlotEmptyLocked  ValidationProblem = "lockSlotEmptyLocked"
	ProblemNotWearable          ValidationProblem = "notWearable"
	ProblemBodypartInStorage    ValidationProblem = "bodypartInStorage"
	ProblemBodypartOrder        ValidationProblem = "bodypartOrder"
	ProblemBodypartMissing      ValidationProblem = "bodypartMissing"
	ProblemBodypartDuplicate    ValidationProblem = "bodypartDuplicate"
	ProblemPoseInvalid          ValidationProblem = "poseInvalid"
	ProblemPoseLimitsInfeasible ValidationProblem = "poseLimitsInfeasible"
	ProblemInvalidModule        ValidationProblem = "invalidModule"
	ProblemColorInvalid         ValidationProblem = "colorInvalid"
	ProblemDeviceLinkBroken     ValidationProblem = "deviceLinkBroken"
	ProblemTooManyItems         ValidationProblem = "tooManyItems"
)

// ValidationProblems lists the whole catalog in a stable order.
func ValidationProblems() []ValidationProblem {
	return []ValidationProblem{
		ProblemDuplicateID, ProblemContainerCycle, ProblemContainerTooDeep, ProblemSlotOverflow,
		ProblemMissingRequirement, ProblemForbiddenAttribute, ProblemStorageFull, ProblemItemTooLarge,
		ProblemInvalidLockItem, ProblemLockSlotEmptyLocked, ProblemNotWearable, ProblemBodypartInStorage,
		ProblemBodypartOrder, ProblemBodypartMissing, ProblemBodypartDuplicate, ProblemPoseInvalid,
		ProblemPoseLimitsInfeasible, ProblemInvalidModule, ProblemColorInvalid, ProblemDeviceLinkBroken,
		ProblemTooManyItems,
	}
}

// AppearanceValidationResult — успех (Problem == "") или конкретная проблема.
type AppearanceValidationResult struct {
	Problem ValidationProblem
	Item    ItemID
	Detail  string
}

// Success reports whether validation passed.
func (r AppearanceValidationResult) Success() bool {
	return r.Problem == ""
}

func (r AppearanceValidationResult) String() string {
	if r.Success() {
		return "ok"
	}
	var b strings.Builder
	b.WriteString(string(r.Problem))
	if r.Item != "" {
		fmt.Fprintf(&b, " item=%s", r.Item)
	}
	if r.Detail != "" {
		fmt.Fprintf(&b, " (%s)", r.Detail)
	}
	return b.String()
}

var validationOK = AppearanceValidationResult{}

func fail(problem ValidationProblem, item ItemID, format string, args ...any) AppearanceValidationResult {
	return AppearanceValidationResult{Problem: problem, Item: item, Detail: fmt.Sprintf(format, args...)}
}

// validateItemTree проверяет структурные правила дерева: уникальность id,
// отсутствие циклов, глубину, цвета, модули и ограничения контейнеров.
// Верхний уровень (depth 0) не проверяется на правила storage.
func validateItemTree(items []*Item, limit int) AppearanceValidationResult {
	if n := CountItems(items); n > limit {
		return fail(ProblemTooManyItems, "", "%d items, limit %d", n, limit)
	}
	seen := make(map[ItemID]struct{})
	return validateItemList(items, nil, seen)
}

func validateItemList(items []*Item, path ItemContainerPath, seen map[ItemID]struct{}) AppearanceValidationResult {
	if len(path) > MaxContainerDepth {
		return fail(ProblemContainerTooDeep, path[len(path)-1].Item, "depth %d", len(path))
	}
	for _, item := range items {
		if path.Contains(item.id) {
			return fail(ProblemContainerCycle, item.id, "item contains itself")
		}
		if _, dup := seen[item.id]; dup {
			return fail(ProblemDuplicateID, item.id, "")
		}
		seen[item.id] = struct{}{}

		if len(item.color) != len(item.asset.Colorization) || !allValidColors(item.color) {
			return fail(ProblemColorInvalid, item.id, "%v", item.color)
		}
		if len(path) > 0 && item.asset.IsBodypart() {
			return fail(ProblemBodypartInStorage, item.id, "")
		}
		if len(path) > 0 && item.asset.WearablePart {
			return fail(ProblemDeviceLinkBroken, item.id, "wearable part inside a container")
		}
		if r := validateModules(item, path, seen); !r.Success() {
			return r
		}
	}
	return validationOK
}

func validateModules(item *Item, path ItemContainerPath, seen map[ItemID]struct{}) AppearanceValidationResult {
	for _, name := range item.asset.ModuleNames() {
		cfg := item.asset.Modules[name]
		state := item.modules[name]
		if state == nil || state.Kind() != cfg.Kind() {
			return fail(ProblemInvalidModule, item.id, "module %q", name)
		}
		switch m := state.(type) {
		case *TypedModule:
			if _, ok := m.config.Variant(m.variant.ID); !ok {
				return fail(ProblemInvalidModule, item.id, "module %q: unknown variant %q", name, m.variant.ID)
			}
		case *StorageModule:
			if len(m.contents) > m.config.MaxCount {
				return fail(ProblemStorageFull, item.id, "module %q: %d > %d", name, len(m.contents), m.config.MaxCount)
			}
			for _, inner := range m.contents {
				if inner.asset.IsBodypart() {
					return fail(ProblemBodypartInStorage, inner.id, "module %q", name)
				}
				if inner.asset.Size > m.config.MaxAcceptedSize {
					return fail(ProblemItemTooLarge, inner.id, "module %q accepts up to %s", name, m.config.MaxAcceptedSize)
				}
			}
		case *LockSlotModule:
			if len(m.lock) > 1 {
				return fail(ProblemInvalidLockItem, item.id, "module %q holds %d locks", name, len(m.lock))
			}
			if lock := m.Lock(); lock != nil && !lock.asset.Lock {
				return fail(ProblemInvalidLockItem, lock.id, "module %q", name)
			}
			if m.locked && m.Lock() == nil {
				return fail(ProblemLockSlotEmptyLocked, item.id, "module %q", name)
			}
		default:
			panic(fmt.Sprintf("model: unknown module state %T", state))
		}
		if c, ok := state.(ContainerModule); ok {
			inner := append(slices.Clone(path), PathStep{Item: item.id, Module: name})
			if r := validateItemList(c.Items(), inner, seen); !r.Success() {
				return r
			}
		}
	}
	return validationOK
}

// wornCheck selects which character rules run. Load-time prefix filtering
// skips completeness and the pose itself.
type wornCheck struct {
	bodypartsComplete bool
	pose              bool
}

// validateWorn проверяет правила надетого набора поверх структурных.
func validateWorn(assets *AssetManager, items []*Item, pose Pose, props *AssetPropertiesResult, check wornCheck) AppearanceValidationResult {
	if r := validateItemTree(items, CharacterItemLimit); !r.Success() {
		return r
	}

	// Bodyparts first, in definition order.
	lastBodypart := -1
	seenRegular := false
	counts := make(map[string]int)
	for _, item := range items {
		a := item.asset
		if a.WearablePart && item.deviceLink == nil {
			return fail(ProblemDeviceLinkBroken, item.id, "wearable part without device")
		}
		if !a.IsBodypart() {
			if !a.Wearable {
				return fail(ProblemNotWearable, item.id, "")
			}
			seenRegular = true
			continue
		}
		idx := assets.BodypartIndex(a.Bodypart)
		if seenRegular || idx < lastBodypart {
			return fail(ProblemBodypartOrder, item.id, "bodypart %q", a.Bodypart)
		}
		lastBodypart = idx
		counts[a.Bodypart]++
	}
	for _, bp := range assets.bodyparts {
		n := counts[bp.Name]
		if n > 1 && !bp.AllowMultiple {
			return fail(ProblemBodypartDuplicate, "", "bodypart %q", bp.Name)
		}
		if check.bodypartsComplete && bp.Required && n != 1 {
			if n == 0 {
				return fail(ProblemBodypartMissing, "", "bodypart %q", bp.Name)
			}
			return fail(ProblemBodypartDuplicate, "", "bodypart %q", bp.Name)
		}
	}

	// Requirements see only the attributes of items below.
	visible := make(map[string]struct{})
	for i, item := range items {
		ind := props.Individual[i]
		for _, req := range ind.Requirements {
			if attr, negated := strings.CutPrefix(req, "!"); negated {
				if _, ok := visible[attr]; ok {
					return fail(ProblemForbiddenAttribute, item.id, "%q", attr)
				}
				continue
			}
			if _, ok := visible[req]; !ok {
				return fail(ProblemMissingRequirement, item.id, "%q", req)
			}
		}
		for attr := range ind.Hides {
			delete(visible, attr)
		}
		for attr := range ind.Attributes {
			visible[attr] = struct{}{}
		}
	}

	usage := props.SlotUsage()
	for _, slot := range slices.Sorted(maps.Keys(usage)) {
		if usage[slot] > 1+slotEpsilon {
			return fail(ProblemSlotOverflow, "", "slot %q: %.2f", slot, usage[slot])
		}
	}

	if !props.Limits.Valid() {
		return fail(ProblemPoseLimitsInfeasible, "", "")
	}
	if check.pose && !props.Limits.Validate(pose) {
		return fail(ProblemPoseInvalid, "", "")
	}
	return validationOK
}

// validateRoomItems проверяет инвентарь комнаты.
func validateRoomItems(items []*Item) AppearanceValidationResult {
	if r := validateItemTree(items, RoomItemLimit); !r.Success() {
		return r
	}
	for _, item := range items {
		if item.asset.IsBodypart() {
			return fail(ProblemBodypartInStorage, item.id, "")
		}
		if item.asset.WearablePart {
			return fail(ProblemDeviceLinkBroken, item.id, "wearable part outside of a character")
		}
	}
	return validationOK
}
