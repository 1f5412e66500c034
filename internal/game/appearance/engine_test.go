package appearance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/dressroom/internal/game/appearance"
	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
	"github.com/udisondev/dressroom/internal/testutil"
)

var (
	self  = appearance.CharacterTarget("c1")
	other = appearance.CharacterTarget("c2")
	room  = appearance.RoomInventoryTarget()
)

func newSpace(t *testing.T, assets *model.AssetManager, roomItems []*model.Item, chars ...*model.CharacterState) *model.GlobalState {
	t.Helper()
	g := model.NewGlobalState(assets, model.NewRoomState(assets).ProduceWithItems(roomItems))
	for _, cs := range chars {
		g = g.AddCharacter(cs, nil)
	}
	require.True(t, g.Validate().Success(), g.Validate().String())
	return g
}

func do(t *testing.T, g *model.GlobalState, actor model.CharacterID, action appearance.Action) appearance.Result {
	t.Helper()
	ctx := appearance.ActionContext{Actor: actor, State: g}
	return appearance.DoAppearanceAction(action, ctx, g.Assets(), appearance.Options{})
}

func mustDo(t *testing.T, g *model.GlobalState, actor model.CharacterID, action appearance.Action) *model.GlobalState {
	t.Helper()
	res := do(t, g, actor, action)
	require.True(t, res.OK(), "%v", res.Problem)
	require.NotNil(t, res.State)
	return res.State
}

func itemIDs(items []*model.Item) []model.ItemID {
	ids := make([]model.ItemID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID())
	}
	return ids
}

func TestCreate_OnEmptyCharacter(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	g := newSpace(t, assets, nil, model.NewCharacterState(assets, "c1"))

	next := mustDo(t, g, "c1", appearance.CreateAction{Target: self, ItemID: "i/1", Asset: testutil.AssetShirt})

	assert.Equal(t, []model.ItemID{"i/1"}, itemIDs(next.Character("c1").Items()))
	assert.Empty(t, g.Character("c1").Items(), "source state must not change")
}

func TestCreate_Rejections(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	g := newSpace(t, assets, nil, model.NewCharacterState(assets, "c1"))

	tests := []struct {
		name   string
		action appearance.Action
		kind   appearance.ProblemKind
		reason string
	}{
		{"unknown asset", appearance.CreateAction{Target: self, ItemID: "i/1", Asset: "a/nope"},
			appearance.KindStructural, appearance.ReasonUnknownAsset},
		{"bad item id", appearance.CreateAction{Target: self, ItemID: "x1", Asset: testutil.AssetShirt},
			appearance.KindStructural, appearance.ReasonInvalidItemID},
		{"missing target", appearance.CreateAction{Target: other, ItemID: "i/1", Asset: testutil.AssetShirt},
			appearance.KindStructural, appearance.ReasonTargetNotFound},
		{"missing container", appearance.CreateAction{Target: self, ItemID: "i/1", Asset: testutil.AssetShirt,
			Container: model.ItemContainerPath{{Item: "i/bag", Module: "storage"}}},
			appearance.KindStructural, appearance.ReasonContainerNotFound},
		{"not wearable", appearance.CreateAction{Target: self, ItemID: "i/1", Asset: testutil.AssetBox},
			appearance.KindStructural, string(model.ProblemNotWearable)},
		{"wearable part", appearance.CreateAction{Target: self, ItemID: "i/1", Asset: testutil.AssetChairSeat},
			appearance.KindPermission, string(restriction.ReasonDeviceWearablePart)},
		{"missing requirement", appearance.CreateAction{Target: self, ItemID: "i/1", Asset: testutil.AssetPants},
			appearance.KindStructural, string(model.ProblemMissingRequirement)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := do(t, g, "c1", tt.action)
			require.False(t, res.OK())
			assert.Nil(t, res.State)
			assert.Equal(t, tt.kind, res.Problem.Kind)
			assert.Equal(t, tt.reason, res.Problem.Reason)
		})
	}
}

func TestDelete_BlockedItem(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	c1 := testutil.Wear(t, assets, "c1",
		testutil.NewItem(t, assets, "i/body", testutil.AssetBody),
		testutil.NewItem(t, assets, "i/binder", testutil.AssetArmbinder))
	g := newSpace(t, assets, nil, c1, model.NewCharacterState(assets, "c2"))

	res := do(t, g, "c1", appearance.DeleteAction{Target: self, Item: model.ItemPath{ItemID: "i/binder"}})
	require.False(t, res.OK())
	assert.Equal(t, appearance.KindPermission, res.Problem.Kind)
	assert.Equal(t, string(restriction.ReasonBlockedHands), res.Problem.Reason)
	assert.Nil(t, res.State)
	assert.Len(t, g.Character("c1").Items(), 2)

	res = do(t, g, "c2", appearance.DeleteAction{Target: self, Item: model.ItemPath{ItemID: "i/binder"}})
	require.False(t, res.OK())
	assert.Equal(t, string(restriction.ReasonBlockedAddRemove), res.Problem.Reason)
	assert.Equal(t, model.ItemID("i/binder"), res.Problem.Item)

	safe := appearance.ActionContext{Actor: "c1", State: g, Info: func(id model.CharacterID) restriction.CharacterInfo {
		return restriction.CharacterInfo{Safemode: id == "c1"}
	}}
	res = appearance.DoAppearanceAction(appearance.DeleteAction{Target: self, Item: model.ItemPath{ItemID: "i/binder"}},
		safe, assets, appearance.Options{})
	require.True(t, res.OK(), "%v", res.Problem)
	assert.Equal(t, []model.ItemID{"i/body"}, itemIDs(res.State.Character("c1").Items()))
}

func TestCreate_StorageCapacity(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	c1 := testutil.Wear(t, assets, "c1", testutil.NewItem(t, assets, "i/bp", testutil.AssetBackpack))
	g := newSpace(t, assets, nil, c1)
	pocket := model.ItemContainerPath{{Item: "i/bp", Module: "storage"}}

	g = mustDo(t, g, "c1", appearance.CreateAction{Target: self, Container: pocket, ItemID: "i/s1", Asset: testutil.AssetShirt})
	g = mustDo(t, g, "c1", appearance.CreateAction{Target: self, Container: pocket, ItemID: "i/s2", Asset: testutil.AssetShirt})

	res := do(t, g, "c1", appearance.CreateAction{Target: self, Container: pocket, ItemID: "i/s3", Asset: testutil.AssetShirt})
	require.False(t, res.OK())
	assert.Equal(t, appearance.KindStructural, res.Problem.Kind)
	assert.Equal(t, string(model.ProblemStorageFull), res.Problem.Reason)

	items, err := model.GetContainerItems(g.Character("c1").Items(), pocket)
	require.NoError(t, err)
	assert.Equal(t, []model.ItemID{"i/s1", "i/s2"}, itemIDs(items))
}

func TestPose_ForcedIntoIntersection(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	c1 := testutil.Wear(t, assets, "c1",
		testutil.NewItem(t, assets, "i/a", testutil.AssetAnkleA),
		testutil.NewItem(t, assets, "i/b", testutil.AssetAnkleB))
	g := newSpace(t, assets, nil, c1)

	next := mustDo(t, g, "c1", appearance.PoseAction{Target: self, Bones: map[string]int{testutil.BoneLegL: 30}})
	cs := next.Character("c1")
	assert.Equal(t, 10, cs.Pose().Bone(testutil.BoneLegL))
	assert.Equal(t, 30, cs.RequestedPose().Bone(testutil.BoneLegL))

	next = mustDo(t, next, "c1", appearance.PoseAction{Target: self, BonesDelta: map[string]int{testutil.BoneLegL: -3}})
	assert.Equal(t, 7, next.Character("c1").Pose().Bone(testutil.BoneLegL))
}

func TestPose_PresetArmsAndView(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	g := newSpace(t, assets, nil, model.NewCharacterState(assets, "c1"))

	fist := model.ArmFingersFist
	back := model.CharacterViewBack
	next := mustDo(t, g, "c1", appearance.PoseAction{
		Target:  self,
		Preset:  "hands_back",
		LeftArm: &appearance.ArmChange{Fingers: &fist},
		View:    &back,
	})
	pose := next.Character("c1").Pose()
	assert.Equal(t, model.ArmPositionBack, pose.LeftArm.Position)
	assert.Equal(t, model.ArmPositionBack, pose.RightArm.Position)
	assert.Equal(t, model.ArmFingersFist, pose.LeftArm.Fingers)
	assert.NotEqual(t, model.ArmFingersFist, pose.RightArm.Fingers)
	assert.Equal(t, model.CharacterViewBack, next.Character("c1").View())

	res := do(t, g, "c1", appearance.PoseAction{Target: self, Preset: "nope"})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonUnknownPreset, res.Problem.Reason)

	res = do(t, g, "c1", appearance.PoseAction{Target: self, Bones: map[string]int{testutil.BoneBreast: 10}})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonUnknownBone, res.Problem.Reason)

	res = do(t, g, "c1", appearance.PoseAction{Target: room})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonInvalidAction, res.Problem.Reason)
}

func TestPose_OtherCharacterNeedsPermission(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	g := newSpace(t, assets, nil, model.NewCharacterState(assets, "c1"), model.NewCharacterState(assets, "c2"))
	kneel := appearance.PoseAction{Target: self, Preset: "kneel"}

	res := do(t, g, "c2", kneel)
	require.False(t, res.OK())
	assert.Equal(t, string(restriction.ReasonPermissionPrompt), res.Problem.Reason)
	assert.Equal(t, []appearance.PermissionPrompt{{Target: "c1", Group: restriction.GroupPose}}, res.Pending)
	assert.Nil(t, res.State)

	perms, err := restriction.DefaultPermissions().WithOverride(restriction.GroupPose, "c2", restriction.PermissionYes, 10)
	require.NoError(t, err)
	ctx := appearance.ActionContext{Actor: "c2", State: g, Info: func(id model.CharacterID) restriction.CharacterInfo {
		if id == "c1" {
			return restriction.CharacterInfo{Permissions: perms}
		}
		return restriction.CharacterInfo{}
	}}
	res = appearance.DoAppearanceAction(kneel, ctx, assets, appearance.Options{})
	require.True(t, res.OK(), "%v", res.Problem)
	assert.Equal(t, 90, res.State.Character("c1").Pose().Bone(testutil.BoneLegL))
}

func TestBody_OnlySelf(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	g := newSpace(t, assets, nil, model.NewCharacterState(assets, "c1"), model.NewCharacterState(assets, "c2"))
	action := appearance.BodyAction{Target: self, Bones: map[string]int{testutil.BoneBreast: 40}}

	next := mustDo(t, g, "c1", action)
	assert.Equal(t, 40, next.Character("c1").Pose().Bone(testutil.BoneBreast))

	res := do(t, g, "c2", action)
	require.False(t, res.OK())
	assert.Equal(t, string(restriction.ReasonBodyModificationForbidden), res.Problem.Reason)

	res = do(t, g, "c1", appearance.BodyAction{Target: self, Bones: map[string]int{testutil.BoneLegL: 40}})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonUnknownBone, res.Problem.Reason)
}

func TestMove_ClampsShift(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	c1 := testutil.Wear(t, assets, "c1",
		testutil.NewItem(t, assets, "i/shirt", testutil.AssetShirt),
		testutil.NewItem(t, assets, "i/vest", testutil.AssetVest),
		testutil.NewItem(t, assets, "i/bp", testutil.AssetBackpack))
	g := newSpace(t, assets, nil, c1)

	next := mustDo(t, g, "c1", appearance.MoveAction{Target: self, Item: model.ItemPath{ItemID: "i/shirt"}, Shift: 10})
	assert.Equal(t, []model.ItemID{"i/vest", "i/bp", "i/shirt"}, itemIDs(next.Character("c1").Items()))

	next = mustDo(t, next, "c1", appearance.MoveAction{Target: self, Item: model.ItemPath{ItemID: "i/shirt"}, Shift: -10})
	assert.Equal(t, []model.ItemID{"i/shirt", "i/vest", "i/bp"}, itemIDs(next.Character("c1").Items()))
}

func TestTransfer_NoCycles(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	c1 := testutil.Wear(t, assets, "c1", testutil.NewItem(t, assets, "i/bp", testutil.AssetBackpack))
	g := newSpace(t, assets, nil, c1)
	pocket := model.ItemContainerPath{{Item: "i/bp", Module: "storage"}}
	g = mustDo(t, g, "c1", appearance.CreateAction{Target: self, Container: pocket, ItemID: "i/pouch", Asset: testutil.AssetPouch})

	res := do(t, g, "c1", appearance.TransferAction{Source: self, Item: model.ItemPath{ItemID: "i/bp"}, Target: self, Container: pocket})
	require.False(t, res.OK())
	assert.Equal(t, string(model.ProblemContainerCycle), res.Problem.Reason)

	deep := append(pocket, model.PathStep{Item: "i/pouch", Module: "storage"})
	res = do(t, g, "c1", appearance.TransferAction{Source: self, Item: model.ItemPath{ItemID: "i/bp"}, Target: self, Container: deep})
	require.False(t, res.OK())
	assert.Equal(t, string(model.ProblemContainerCycle), res.Problem.Reason)

	res = do(t, g, "c1", appearance.TransferAction{Source: self, Item: model.ItemPath{ItemID: "i/bp"}, Target: room, Container: pocket})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonContainerNotFound, res.Problem.Reason)

	next := mustDo(t, g, "c1", appearance.TransferAction{
		Source: self, Item: model.ItemPath{Container: pocket, ItemID: "i/pouch"}, Target: room,
	})
	assert.Equal(t, []model.ItemID{"i/pouch"}, itemIDs(next.Room().Items()))
	inside, err := model.GetContainerItems(next.Character("c1").Items(), pocket)
	require.NoError(t, err)
	assert.Empty(t, inside)
}

func TestColor(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	c1 := testutil.Wear(t, assets, "c1", testutil.NewItem(t, assets, "i/shirt", testutil.AssetShirt))
	g := newSpace(t, assets, nil, c1)
	shirt := model.ItemPath{ItemID: "i/shirt"}

	next := mustDo(t, g, "c1", appearance.ColorAction{Target: self, Item: shirt, Color: []string{"#FF0000"}})
	assert.Equal(t, []string{"#FF0000"}, next.Character("c1").Items()[0].Color())

	for _, bad := range [][]string{{"red"}, {"#FF0000", "#00FF00"}} {
		res := do(t, g, "c1", appearance.ColorAction{Target: self, Item: shirt, Color: bad})
		require.False(t, res.OK(), "%v", bad)
		assert.Equal(t, string(model.ProblemColorInvalid), res.Problem.Reason)
	}

	res := do(t, g, "c1", appearance.ColorAction{Target: self, Item: model.ItemPath{ItemID: "i/none"}, Color: []string{"#FF0000"}})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonItemNotFound, res.Problem.Reason)
}

func TestModuleActions_CollarLock(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	c1 := testutil.Wear(t, assets, "c1",
		testutil.NewItem(t, assets, "i/body", testutil.AssetBody),
		testutil.NewItem(t, assets, "i/collar", testutil.AssetCollar))
	g := newSpace(t, assets, nil, c1, model.NewCharacterState(assets, "c2"))
	collar := model.ItemPath{ItemID: "i/collar"}
	lockSlot := model.ItemContainerPath{{Item: "i/collar", Module: "lock"}}

	g = mustDo(t, g, "c2", appearance.CreateAction{Target: self, Container: lockSlot, ItemID: "i/padlock", Asset: testutil.AssetPadlock})
	g = mustDo(t, g, "c2", appearance.ModuleAction{Target: self, Item: collar, Module: "lock",
		Action: appearance.ModuleOperation{Type: appearance.ModuleLock}})
	lock := g.Character("c1").Items()[1].Module("lock").(*model.LockSlotModule)
	assert.True(t, lock.Locked())

	res := do(t, g, "c2", appearance.ModuleAction{Target: self, Item: collar, Module: "ring",
		Action: appearance.ModuleOperation{Type: appearance.ModuleSetVariant, Variant: "ring"}})
	require.False(t, res.OK())
	assert.Equal(t, string(restriction.ReasonBlockedModule), res.Problem.Reason)

	res = do(t, g, "c2", appearance.DeleteAction{Target: self, Item: model.ItemPath{Container: lockSlot, ItemID: "i/padlock"}})
	require.False(t, res.OK())
	assert.Equal(t, string(restriction.ReasonLocked), res.Problem.Reason)

	res = do(t, g, "c2", appearance.DeleteAction{Target: self, Item: collar})
	require.False(t, res.OK())
	assert.Equal(t, string(restriction.ReasonBlockedAddRemove), res.Problem.Reason)

	g = mustDo(t, g, "c2", appearance.ModuleAction{Target: self, Item: collar, Module: "lock",
		Action: appearance.ModuleOperation{Type: appearance.ModuleUnlock}})
	g = mustDo(t, g, "c2", appearance.ModuleAction{Target: self, Item: collar, Module: "ring",
		Action: appearance.ModuleOperation{Type: appearance.ModuleSetVariant, Variant: "ring"}})
	ring := g.Character("c1").Items()[1].Module("ring").(*model.TypedModule)
	assert.Equal(t, "ring", ring.Variant().ID)
}

func TestModuleActions_Invalid(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	c1 := testutil.Wear(t, assets, "c1",
		testutil.NewItem(t, assets, "i/body", testutil.AssetBody),
		testutil.NewItem(t, assets, "i/collar", testutil.AssetCollar),
		testutil.NewItem(t, assets, "i/bp", testutil.AssetBackpack))
	g := newSpace(t, assets, nil, c1)
	collar := model.ItemPath{ItemID: "i/collar"}

	tests := []struct {
		name   string
		action appearance.ModuleAction
		reason string
	}{
		{"unknown variant", appearance.ModuleAction{Target: self, Item: collar, Module: "ring",
			Action: appearance.ModuleOperation{Type: appearance.ModuleSetVariant, Variant: "spikes"}}, appearance.ReasonUnknownVariant},
		{"lock on typed", appearance.ModuleAction{Target: self, Item: collar, Module: "ring",
			Action: appearance.ModuleOperation{Type: appearance.ModuleLock}}, appearance.ReasonInvalidModuleAction},
		{"storage", appearance.ModuleAction{Target: self, Item: model.ItemPath{ItemID: "i/bp"}, Module: "storage",
			Action: appearance.ModuleOperation{Type: appearance.ModuleLock}}, appearance.ReasonInvalidModuleAction},
		{"missing module", appearance.ModuleAction{Target: self, Item: collar, Module: "bell",
			Action: appearance.ModuleOperation{Type: appearance.ModuleLock}}, appearance.ReasonInvalidModuleAction},
		{"empty lock slot", appearance.ModuleAction{Target: self, Item: collar, Module: "lock",
			Action: appearance.ModuleOperation{Type: appearance.ModuleLock}}, string(model.ProblemLockSlotEmptyLocked)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := do(t, g, "c1", tt.action)
			require.False(t, res.OK())
			assert.Equal(t, tt.reason, res.Problem.Reason)
		})
	}
}

func TestRoomDevice_EnterLeave(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	chair := testutil.NewItem(t, assets, "i/chair", testutil.AssetChair)
	box := testutil.NewItem(t, assets, "i/box", testutil.AssetBox)
	g := newSpace(t, assets, []*model.Item{chair, box},
		model.NewCharacterState(assets, "c1"), model.NewCharacterState(assets, "c2"))

	g = mustDo(t, g, "c1", appearance.RoomDeviceEnterAction{Target: self, Device: "i/chair", Slot: "seat", ItemID: "i/seat"})
	assert.Equal(t, map[string]model.CharacterID{"seat": "c1"}, g.Room().Items()[0].DeviceOccupants())
	seat := g.Character("c1").Items()[0]
	assert.Equal(t, model.ItemID("i/seat"), seat.ID())
	assert.Equal(t, &model.DeviceLink{Device: "i/chair", Slot: "seat"}, seat.DeviceLink())
	assert.Equal(t, 80, g.Character("c1").Pose().Bone(testutil.BoneLegL))

	res := do(t, g, "c2", appearance.RoomDeviceEnterAction{Target: other, Device: "i/chair", Slot: "seat"})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonDeviceSlotOccupied, res.Problem.Reason)

	res = do(t, g, "c2", appearance.RoomDeviceEnterAction{Target: other, Device: "i/chair", Slot: "back"})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonUnknownDeviceSlot, res.Problem.Reason)

	res = do(t, g, "c2", appearance.RoomDeviceEnterAction{Target: other, Device: "i/box", Slot: "seat"})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonNotRoomDevice, res.Problem.Reason)

	res = do(t, g, "c2", appearance.DeleteAction{Target: room, Item: model.ItemPath{ItemID: "i/chair"}})
	require.False(t, res.OK())
	assert.Equal(t, string(restriction.ReasonInRoomDevice), res.Problem.Reason)

	res = do(t, g, "c1", appearance.DeleteAction{Target: self, Item: model.ItemPath{ItemID: "i/seat"}})
	require.False(t, res.OK())
	assert.Equal(t, string(restriction.ReasonDeviceWearablePart), res.Problem.Reason)

	res = do(t, g, "c2", appearance.RoomDeviceLeaveAction{Target: other, Device: "i/chair", Slot: "seat"})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonNotInDevice, res.Problem.Reason)

	g = mustDo(t, g, "c1", appearance.RoomDeviceLeaveAction{Target: self, Device: "i/chair", Slot: "seat"})
	assert.Empty(t, g.Room().Items()[0].DeviceOccupants())
	assert.Empty(t, g.Character("c1").Items())
}

func TestDryRun_MatchesCommitValidation(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	c1 := testutil.Wear(t, assets, "c1", testutil.NewItem(t, assets, "i/bp", testutil.AssetBackpack))
	g := newSpace(t, assets, nil, c1, model.NewCharacterState(assets, "c2"))
	pocket := model.ItemContainerPath{{Item: "i/bp", Module: "storage"}}

	actions := []appearance.Action{
		appearance.CreateAction{Target: self, Container: pocket, ItemID: "i/s1", Asset: testutil.AssetShirt},
		appearance.CreateAction{Target: self, Container: pocket, ItemID: "i/big", Asset: testutil.AssetBox},
		appearance.DeleteAction{Target: self, Item: model.ItemPath{ItemID: "i/missing"}},
		appearance.PoseAction{Target: self, Preset: "kneel"},
		appearance.SetViewAction{Target: self, View: model.CharacterViewBack},
	}
	for _, action := range actions {
		for _, actor := range []model.CharacterID{"c1", "c2"} {
			ctx := appearance.ActionContext{Actor: actor, State: g}
			dry := appearance.DoAppearanceAction(action, ctx, assets, appearance.Options{DryRun: true})
			commit := appearance.DoAppearanceAction(action, ctx, assets, appearance.Options{})

			assert.Nil(t, dry.State)
			assert.Equal(t, commit.Problem, dry.Problem, "%s by %s", action.Type(), actor)
			assert.Equal(t, commit.Pending, dry.Pending)
			assert.Equal(t, commit.OK(), commit.State != nil)
		}
	}
	assert.Equal(t, []model.ItemID{"i/bp"}, itemIDs(g.Character("c1").Items()))
	assert.True(t, g.Validate().Success())
}

func TestDoAppearanceAction_ActorNotInSpace(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	g := newSpace(t, assets, nil, model.NewCharacterState(assets, "c1"))

	res := do(t, g, "c9", appearance.SetViewAction{Target: self, View: model.CharacterViewBack})
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonTargetNotFound, res.Problem.Reason)
	assert.Equal(t, model.CharacterID("c9"), res.Problem.Target)
}
