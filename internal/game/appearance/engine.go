// Package appearance выполняет действия над внешностью персонажей и
// инвентарём комнаты одного space.
//
// Каждое действие проходит один и тот же путь: разбор цели, проверка прав,
// структурное изменение immutable состояния, валидация нового GlobalState.
// Dry-run идёт тем же путём и только отбрасывает результат. Запись нового
// состояния (commit) делает вызывающий код.
package appearance

import (
	"fmt"
	"maps"
	"slices"

	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
)

// Options — параметры выполнения действия.
type Options struct {
	DryRun bool
}

// ActionContext — окружение действия: actor и текущее состояние его space.
type ActionContext struct {
	Actor model.CharacterID
	State *model.GlobalState
	// Info возвращает не-appearance данные персонажа. nil означает значения по умолчанию.
	Info func(model.CharacterID) restriction.CharacterInfo
}

func (c ActionContext) info(id model.CharacterID) restriction.CharacterInfo {
	if c.Info == nil {
		return restriction.CharacterInfo{}
	}
	return c.Info(id)
}

// PermissionPrompt — разрешение, которое нужно запросить у персонажа Target.
type PermissionPrompt struct {
	Target model.CharacterID           `json:"target"`
	Group  restriction.PermissionGroup `json:"group"`
}

// Result — итог действия. При успехе без dry-run State содержит новое состояние.
// При отказе заполнен Problem; Pending — разрешения, которых ждёт действие.
type Result struct {
	State   *model.GlobalState
	Problem *Problem
	Pending []PermissionPrompt
}

// OK reports whether the action was accepted.
func (r Result) OK() bool { return r.Problem == nil }

// DoAppearanceAction проверяет и применяет действие к ctx.State.
// Исходное состояние никогда не изменяется.
//
// Parameters:
//   - action: разобранное действие
//   - ctx: actor, текущее состояние space и данные персонажей
//   - assets: каталог, по которому создаются предметы
//   - opts: DryRun отбрасывает новое состояние после валидации
//
// Returns:
//   - Result: новое состояние или типизированный отказ
func DoAppearanceAction(action Action, ctx ActionContext, assets *model.AssetManager, opts Options) Result {
	if ctx.State == nil {
		return Result{Problem: structural(ReasonTargetNotFound, "no space state")}
	}
	actor := ctx.State.Character(ctx.Actor)
	if actor == nil {
		p := structural(ReasonTargetNotFound, "actor is not in the space")
		p.Target = ctx.Actor
		return Result{Problem: p}
	}

	proc := &processor{
		ctx:     ctx,
		assets:  assets,
		state:   ctx.State,
		manager: restriction.NewManager(actor, ctx.info(ctx.Actor)),
	}
	if problem := proc.apply(action); problem != nil {
		return Result{Problem: problem}
	}
	if v := proc.state.Validate(); !v.Success() {
		return Result{Problem: validationProblem(v)}
	}
	if len(proc.pending) > 0 {
		return Result{
			Problem: &Problem{Kind: KindPermission, Reason: string(restriction.ReasonPermissionPrompt), Target: proc.pending[0].Target},
			Pending: proc.pending,
		}
	}
	if opts.DryRun {
		return Result{}
	}
	return Result{State: proc.state}
}

// processor накапливает промежуточное состояние одного действия.
type processor struct {
	ctx     ActionContext
	assets  *model.AssetManager
	state   *model.GlobalState
	manager *restriction.Manager
	pending []PermissionPrompt
}

func (p *processor) apply(action Action) *Problem {
	switch a := action.(type) {
	case CreateAction:
		return p.create(a)
	case DeleteAction:
		return p.delete(a)
	case MoveAction:
		return p.move(a)
	case TransferAction:
		return p.transfer(a)
	case ColorAction:
		return p.color(a)
	case PoseAction:
		return p.pose(a)
	case BodyAction:
		return p.body(a)
	case SetViewAction:
		return p.setView(a)
	case ModuleAction:
		return p.module(a)
	case RoomDeviceEnterAction:
		return p.roomDeviceEnter(a)
	case RoomDeviceLeaveAction:
		return p.roomDeviceLeave(a)
	case nil:
		return structural(ReasonInvalidAction, "no action")
	default:
		panic(fmt.Sprintf("appearance: unhandled action %T", action))
	}
}

// check переводит Restriction в отказ. permissionPrompt не прерывает действие:
// оно доходит до валидации и возвращается как ожидающее разрешения.
func (p *processor) check(r *restriction.Restriction) *Problem {
	if r == nil {
		return nil
	}
	if r.Reason == restriction.ReasonPermissionPrompt {
		prompt := PermissionPrompt{Target: r.Target, Group: r.Group}
		if !slices.Contains(p.pending, prompt) {
			p.pending = append(p.pending, prompt)
		}
		return nil
	}
	return restrictionProblem(r)
}

func (p *processor) resolve(t Target) (restriction.Target, *Problem) {
	switch t.Type {
	case TargetCharacter:
		cs := p.state.Character(t.CharacterID)
		if cs == nil {
			problem := structural(ReasonTargetNotFound, "character %s is not in the space", t.CharacterID)
			problem.Target = t.CharacterID
			return restriction.Target{}, problem
		}
		return restriction.CharacterTarget(cs, p.ctx.info(t.CharacterID)), nil
	case TargetRoomInventory:
		return restriction.RoomTarget(p.state.Room()), nil
	default:
		return restriction.Target{}, structural(ReasonInvalidAction, "unknown target type %q", t.Type)
	}
}

func (p *processor) resolveCharacter(t Target) (restriction.Target, *Problem) {
	if t.Type != TargetCharacter {
		return restriction.Target{}, structural(ReasonInvalidAction, "target must be a character")
	}
	return p.resolve(t)
}

func (p *processor) setItems(t Target, items []*model.Item) {
	if t.Type == TargetCharacter {
		cs := p.state.Character(t.CharacterID)
		p.state = p.state.ProduceWithCharacter(cs.ProduceWithItems(items))
		return
	}
	p.state = p.state.ProduceWithRoom(p.state.Room().ProduceWithItems(items))
}

func (p *processor) create(a CreateAction) *Problem {
	if !a.ItemID.Valid() {
		return structural(ReasonInvalidItemID, "invalid item id %q", a.ItemID)
	}
	asset := p.assets.GetAssetByID(a.Asset)
	if asset == nil {
		return structural(ReasonUnknownAsset, "unknown asset %q", a.Asset)
	}
	if asset.WearablePart {
		return &Problem{Kind: KindPermission, Reason: string(restriction.ReasonDeviceWearablePart), Asset: asset.ID}
	}
	t, problem := p.resolve(a.Target)
	if problem != nil {
		return problem
	}

	item := p.assets.CreateItem(a.ItemID, asset, nil, nil)
	items, err := model.AddItem(t.Items(), a.Container, item, a.InsertBefore)
	if err != nil {
		return graphProblem(err)
	}
	p.setItems(a.Target, items)

	after, _ := p.resolve(a.Target)
	path := model.ItemPath{Container: a.Container, ItemID: a.ItemID}
	return p.check(p.manager.CanUseItem(after, path, restriction.InteractionAddRemove))
}

func (p *processor) delete(a DeleteAction) *Problem {
	t, problem := p.resolve(a.Target)
	if problem != nil {
		return problem
	}
	if problem := p.check(p.manager.CanUseItem(t, a.Item, restriction.InteractionAddRemove)); problem != nil {
		return problem
	}
	items, _, err := model.RemoveItem(t.Items(), a.Item)
	if err != nil {
		return graphProblem(err)
	}
	p.setItems(a.Target, items)
	return nil
}

func (p *processor) move(a MoveAction) *Problem {
	t, problem := p.resolve(a.Target)
	if problem != nil {
		return problem
	}
	if problem := p.check(p.manager.CanUseItem(t, a.Item, restriction.InteractionAddRemove)); problem != nil {
		return problem
	}
	items, err := model.MoveItem(t.Items(), a.Item, a.Shift)
	if err != nil {
		return graphProblem(err)
	}
	p.setItems(a.Target, items)

	after, _ := p.resolve(a.Target)
	return p.check(p.manager.CanUseItem(after, a.Item, restriction.InteractionAddRemove))
}

func (p *processor) transfer(a TransferAction) *Problem {
	if a.Source == a.Target && a.Container.Contains(a.Item.ItemID) {
		return &Problem{Kind: KindStructural, Reason: string(model.ProblemContainerCycle), Item: a.Item.ItemID,
			Detail: "item cannot be moved into itself"}
	}
	src, problem := p.resolve(a.Source)
	if problem != nil {
		return problem
	}
	if _, problem := p.resolve(a.Target); problem != nil {
		return problem
	}
	if problem := p.check(p.manager.CanUseItem(src, a.Item, restriction.InteractionAddRemove)); problem != nil {
		return problem
	}
	items, moved, err := model.RemoveItem(src.Items(), a.Item)
	if err != nil {
		return graphProblem(err)
	}
	p.setItems(a.Source, items)

	dst, _ := p.resolve(a.Target)
	items, err = model.AddItem(dst.Items(), a.Container, moved, a.InsertBefore)
	if err != nil {
		return graphProblem(err)
	}
	p.setItems(a.Target, items)

	after, _ := p.resolve(a.Target)
	path := model.ItemPath{Container: a.Container, ItemID: a.Item.ItemID}
	return p.check(p.manager.CanUseItem(after, path, restriction.InteractionAddRemove))
}

func (p *processor) color(a ColorAction) *Problem {
	t, problem := p.resolve(a.Target)
	if problem != nil {
		return problem
	}
	if problem := p.check(p.manager.CanUseItem(t, a.Item, restriction.InteractionStyling)); problem != nil {
		return problem
	}
	items, err := model.UpdateItem(t.Items(), a.Item, func(item *model.Item) (*model.Item, error) {
		return item.WithColor(a.Color), nil
	})
	if err != nil {
		return graphProblem(err)
	}
	p.setItems(a.Target, items)
	return nil
}

func (p *processor) module(a ModuleAction) *Problem {
	t, problem := p.resolve(a.Target)
	if problem != nil {
		return problem
	}
	item := model.GetItem(t.Items(), a.Item)
	if item == nil {
		problem := structural(ReasonItemNotFound, "%s", a.Item)
		problem.Item = a.Item.ItemID
		return problem
	}
	if problem := p.check(p.manager.CanUseItemModule(t, a.Item, a.Module, restriction.InteractionModify)); problem != nil {
		return problem
	}

	var next model.ModuleState
	switch m := item.Module(a.Module).(type) {
	case *model.TypedModule:
		if a.Action.Type != ModuleSetVariant {
			return p.badModuleAction(a, "typed module supports only setVariant")
		}
		changed, ok := m.WithVariant(a.Action.Variant)
		if !ok {
			return &Problem{Kind: KindStructural, Reason: ReasonUnknownVariant, Item: item.ID(), Module: a.Module,
				Detail: fmt.Sprintf("variant %q", a.Action.Variant)}
		}
		next = changed
	case *model.LockSlotModule:
		switch a.Action.Type {
		case ModuleLock:
			next = m.WithLocked(true)
		case ModuleUnlock:
			next = m.WithLocked(false)
		default:
			return p.badModuleAction(a, "lock slot supports only lock and unlock")
		}
	case *model.StorageModule:
		return p.badModuleAction(a, "storage has no module actions")
	case nil:
		return p.badModuleAction(a, "no such module")
	default:
		panic(fmt.Sprintf("appearance: unknown module state %T", m))
	}

	items, err := model.UpdateItem(t.Items(), a.Item, func(item *model.Item) (*model.Item, error) {
		return item.WithModule(a.Module, next), nil
	})
	if err != nil {
		return graphProblem(err)
	}
	p.setItems(a.Target, items)
	return nil
}

func (p *processor) badModuleAction(a ModuleAction, detail string) *Problem {
	return &Problem{Kind: KindStructural, Reason: ReasonInvalidModuleAction, Item: a.Item.ItemID, Module: a.Module, Detail: detail}
}

func (p *processor) pose(a PoseAction) *Problem {
	t, problem := p.resolveCharacter(a.Target)
	if problem != nil {
		return problem
	}
	if problem := p.check(p.manager.CanPose(t)); problem != nil {
		return problem
	}
	cs := t.Character
	pose := cs.RequestedPose()
	if a.Preset != "" {
		preset, ok := p.assets.PosePreset(a.Preset)
		if !ok {
			return structural(ReasonUnknownPreset, "preset %q", a.Preset)
		}
		pose = preset.Apply(pose)
	}
	if problem := p.checkBones(a.Bones, model.BoneTypePose); problem != nil {
		return problem
	}
	if problem := p.checkBones(a.BonesDelta, model.BoneTypePose); problem != nil {
		return problem
	}
	for _, bone := range slices.Sorted(maps.Keys(a.Bones)) {
		pose = pose.WithBone(bone, a.Bones[bone])
	}
	effective := cs.Pose()
	for _, bone := range slices.Sorted(maps.Keys(a.BonesDelta)) {
		pose = pose.WithBone(bone, effective.Bone(bone)+a.BonesDelta[bone])
	}
	pose.LeftArm = a.LeftArm.apply(a.Arms.apply(pose.LeftArm))
	pose.RightArm = a.RightArm.apply(a.Arms.apply(pose.RightArm))
	if a.View != nil {
		pose.View = *a.View
	}

	next, _ := cs.ProduceWithPose(pose)
	p.state = p.state.ProduceWithCharacter(next)
	return nil
}

func (p *processor) body(a BodyAction) *Problem {
	t, problem := p.resolveCharacter(a.Target)
	if problem != nil {
		return problem
	}
	if problem := p.check(p.manager.CanModifyBody(t)); problem != nil {
		return problem
	}
	if problem := p.checkBones(a.Bones, model.BoneTypeBody); problem != nil {
		return problem
	}
	pose := t.Character.RequestedPose()
	for _, bone := range slices.Sorted(maps.Keys(a.Bones)) {
		pose = pose.WithBone(bone, a.Bones[bone])
	}
	next, _ := t.Character.ProduceWithPose(pose)
	p.state = p.state.ProduceWithCharacter(next)
	return nil
}

// checkBones проверяет, что все кости известны и имеют тип typ.
func (p *processor) checkBones(bones map[string]int, typ model.BoneType) *Problem {
	for _, name := range slices.Sorted(maps.Keys(bones)) {
		def, ok := p.assets.Bone(name)
		if !ok {
			return structural(ReasonUnknownBone, "bone %q", name)
		}
		if def.Type != typ {
			return structural(ReasonUnknownBone, "bone %q is %s, not %s", name, def.Type, typ)
		}
	}
	return nil
}

func (p *processor) setView(a SetViewAction) *Problem {
	t, problem := p.resolveCharacter(a.Target)
	if problem != nil {
		return problem
	}
	if problem := p.check(p.manager.CanPose(t)); problem != nil {
		return problem
	}
	p.state = p.state.ProduceWithCharacter(t.Character.ProduceWithView(a.View))
	return nil
}

// roomDevice находит room device на верхнем уровне инвентаря комнаты.
func (p *processor) roomDevice(id model.ItemID) (*model.Item, *Problem) {
	device := model.GetItem(p.state.Room().Items(), model.ItemPath{ItemID: id})
	if device == nil {
		problem := structural(ReasonItemNotFound, "device %s", id)
		problem.Item = id
		return nil, problem
	}
	if device.Asset().RoomDevice == nil {
		return nil, &Problem{Kind: KindStructural, Reason: ReasonNotRoomDevice, Item: id, Asset: device.Asset().ID}
	}
	return device, nil
}

func (p *processor) setDeviceOccupant(device model.ItemID, slot string, character model.CharacterID) *Problem {
	items, err := model.UpdateItem(p.state.Room().Items(), model.ItemPath{ItemID: device}, func(item *model.Item) (*model.Item, error) {
		return item.WithDeviceOccupant(slot, character), nil
	})
	if err != nil {
		return graphProblem(err)
	}
	p.state = p.state.ProduceWithRoom(p.state.Room().ProduceWithItems(items))
	return nil
}

func (p *processor) roomDeviceEnter(a RoomDeviceEnterAction) *Problem {
	t, problem := p.resolveCharacter(a.Target)
	if problem != nil {
		return problem
	}
	device, problem := p.roomDevice(a.Device)
	if problem != nil {
		return problem
	}
	partID, ok := device.Asset().RoomDevice.Slots[a.Slot]
	if !ok {
		return &Problem{Kind: KindStructural, Reason: ReasonUnknownDeviceSlot, Item: device.ID(), Detail: fmt.Sprintf("slot %q", a.Slot)}
	}
	if occupant, busy := device.DeviceOccupants()[a.Slot]; busy {
		return &Problem{Kind: KindStructural, Reason: ReasonDeviceSlotOccupied, Item: device.ID(), Target: occupant,
			Detail: fmt.Sprintf("slot %q", a.Slot)}
	}
	if problem := p.check(p.manager.CanEnterRoomDevice(t, device)); problem != nil {
		return problem
	}

	partAsset := p.assets.GetAssetByID(partID)
	if partAsset == nil {
		return structural(ReasonUnknownAsset, "wearable part %q", partID)
	}
	id := a.ItemID
	if id == "" {
		id = model.NewItemID()
	}
	if !id.Valid() {
		return structural(ReasonInvalidItemID, "invalid item id %q", id)
	}
	part := p.assets.CreateItem(id, partAsset, nil, nil).WithDeviceLink(&model.DeviceLink{Device: device.ID(), Slot: a.Slot})

	items := append(slices.Clone(t.Character.Items()), part)
	p.setItems(a.Target, items)
	return p.setDeviceOccupant(device.ID(), a.Slot, t.Character.ID())
}

func (p *processor) roomDeviceLeave(a RoomDeviceLeaveAction) *Problem {
	t, problem := p.resolveCharacter(a.Target)
	if problem != nil {
		return problem
	}
	device, problem := p.roomDevice(a.Device)
	if problem != nil {
		return problem
	}
	if device.DeviceOccupants()[a.Slot] != t.Character.ID() {
		return &Problem{Kind: KindStructural, Reason: ReasonNotInDevice, Item: device.ID(), Target: t.Character.ID(),
			Detail: fmt.Sprintf("slot %q", a.Slot)}
	}

	items := t.Character.Items()
	idx := slices.IndexFunc(items, func(item *model.Item) bool {
		link := item.DeviceLink()
		return link != nil && link.Device == device.ID() && link.Slot == a.Slot
	})
	if idx >= 0 {
		if problem := p.check(p.manager.CanLeaveRoomDevice(t, items[idx])); problem != nil {
			return problem
		}
		p.setItems(a.Target, slices.Delete(slices.Clone(items), idx, idx+1))
	}
	return p.setDeviceOccupant(device.ID(), a.Slot, "")
}
