package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/dressroom/internal/model"
	"github.com/udisondev/dressroom/internal/testutil"
)

func seatedSpace(t *testing.T, assets *model.AssetManager) *model.GlobalState {
	t.Helper()

	chair := testutil.NewItem(t, assets, "i/chair", testutil.AssetChair)
	g := model.NewGlobalState(assets, model.NewRoomState(assets).ProduceWithItems([]*model.Item{chair}))
	g = g.AddCharacter(model.NewCharacterState(assets, "c1"), nil)
	g = g.AddCharacter(model.NewCharacterState(assets, "c2"), nil)

	seat := testutil.NewItem(t, assets, "i/seat", testutil.AssetChairSeat).
		WithDeviceLink(&model.DeviceLink{Device: "i/chair", Slot: "seat"})
	g = g.ProduceWithRoom(g.Room().ProduceWithItems([]*model.Item{chair.WithDeviceOccupant("seat", "c1")}))
	g = g.ProduceWithCharacter(g.Character("c1").ProduceWithItems([]*model.Item{seat}))
	require.True(t, g.Validate().Success(), g.Validate().String())
	return g
}

func TestGlobalState_DeviceLinkConsistency(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	g := seatedSpace(t, assets)
	assert.Equal(t, 80, g.Character("c1").Pose().Bone("leg_l"), "seat forces the first option")

	// Occupant without the wearable part.
	broken := g.ProduceWithCharacter(g.Character("c1").ProduceWithItems(nil))
	assert.Equal(t, model.ProblemDeviceLinkBroken, broken.Validate().Problem)

	// Wearable part whose device slot is free.
	chair := g.Room().Items()[0]
	broken = g.ProduceWithRoom(g.Room().ProduceWithItems([]*model.Item{chair.WithDeviceOccupant("seat", "")}))
	assert.Equal(t, model.ProblemDeviceLinkBroken, broken.Validate().Problem)

	// Slot occupied by someone else.
	broken = g.ProduceWithRoom(g.Room().ProduceWithItems([]*model.Item{chair.WithDeviceOccupant("seat", "c2")}))
	assert.Equal(t, model.ProblemDeviceLinkBroken, broken.Validate().Problem)
}

func TestGlobalState_WithoutCharacterFreesDevice(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	g := seatedSpace(t, assets)
	left := g.WithoutCharacter("c1")

	assert.Nil(t, left.Character("c1"))
	assert.Empty(t, left.Room().Items()[0].DeviceOccupants())
	assert.True(t, left.Validate().Success())

	changes := left.ChangesSince(g)
	assert.Equal(t, []model.CharacterID{"c1"}, changes.Removed)
	assert.True(t, changes.Room)
	assert.Empty(t, changes.Characters)
}

func TestGlobalState_AddCharacterStripsDanglingParts(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	g := seatedSpace(t, assets)
	seated := g.Character("c1")

	// The character rejoins a space whose chair is free.
	fresh := model.NewGlobalState(assets, g.Room())
	assert.Empty(t, fresh.Room().Items()[0].DeviceOccupants())

	joined := fresh.AddCharacter(seated, nil)
	require.True(t, joined.Validate().Success(), joined.Validate().String())
	assert.Empty(t, joined.Character("c1").Items())
}

func TestGlobalState_ChangesSince(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	g := model.NewGlobalState(assets, nil).
		AddCharacter(model.NewCharacterState(assets, "c1"), nil).
		AddCharacter(model.NewCharacterState(assets, "c2"), nil)

	next := g.ProduceWithCharacter(g.Character("c2").ProduceWithView(model.CharacterViewBack))
	changes := next.ChangesSince(g)
	assert.Equal(t, []model.CharacterID{"c2"}, changes.Characters)
	assert.False(t, changes.Room)
	assert.True(t, next.ChangesSince(next).Empty())

	all := next.ChangesSince(nil)
	assert.Equal(t, []model.CharacterID{"c1", "c2"}, all.Characters)
	assert.True(t, all.Room)
}

func TestGlobalState_ReloadAssetsDropsRemoved(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	g := model.NewGlobalState(assets, model.NewRoomState(assets).ProduceWithItems([]*model.Item{
		testutil.NewItem(t, assets, "i/box", testutil.AssetBox),
	})).AddCharacter(testutil.Wear(t, assets, "c1",
		testutil.NewItem(t, assets, "i/shirt", testutil.AssetShirt),
		testutil.NewItem(t, assets, "i/tag", testutil.AssetTag),
	), nil)

	var kept []*model.Asset
	for _, a := range testutil.Assets() {
		if a.ID != testutil.AssetShirt && a.ID != testutil.AssetBox {
			kept = append(kept, a)
		}
	}
	reloaded, err := model.NewAssetManager("v2", testutil.Bones(), testutil.Bodyparts(false), kept, nil)
	require.NoError(t, err)

	next := g.ReloadAssets(reloaded, nil)
	assert.Same(t, reloaded, next.Assets())
	assert.Equal(t, []model.ItemID{"i/tag"}, ids(next.Character("c1").Items()))
	assert.Empty(t, next.Room().Items())
	assert.True(t, next.Validate().Success())
}

func TestGlobalState_ExportToBundle(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	g := seatedSpace(t, assets)
	b := g.ExportToBundle()
	require.Contains(t, b.Characters, model.CharacterID("c1"))
	require.Len(t, b.Room.Items, 1)
	assert.Equal(t, model.CharacterID("c1"), b.Room.Items[0].RoomDevice.Occupants["seat"])
	assert.Equal(t, &model.DeviceLink{Device: "i/chair", Slot: "seat"}, b.Characters["c1"].Items[0].DeviceLink)
}
