package appearance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/dressroom/internal/game/appearance"
	"github.com/udisondev/dressroom/internal/model"
)

func TestDecodeAction(t *testing.T) {
	t.Parallel()

	a, err := appearance.DecodeAction([]byte(`{
		"type": "create",
		"target": {"type": "character", "characterId": "c1"},
		"container": [{"item": "i/bp", "module": "storage"}],
		"itemId": "i/1",
		"asset": "a/shirt"
	}`))
	require.NoError(t, err)
	assert.Equal(t, appearance.CreateAction{
		Target:    appearance.CharacterTarget("c1"),
		Container: model.ItemContainerPath{{Item: "i/bp", Module: "storage"}},
		ItemID:    "i/1",
		Asset:     "a/shirt",
	}, a)

	a, err = appearance.DecodeAction([]byte(`{
		"type": "pose",
		"target": {"type": "character", "characterId": "c2"},
		"bonesDelta": {"leg_l": -5},
		"arms": {"position": "back"},
		"view": "back"
	}`))
	require.NoError(t, err)
	pose, ok := a.(appearance.PoseAction)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"leg_l": -5}, pose.BonesDelta)
	require.NotNil(t, pose.Arms)
	assert.Equal(t, model.ArmPositionBack, *pose.Arms.Position)
	assert.Nil(t, pose.Arms.Fingers)
	assert.Equal(t, model.CharacterViewBack, *pose.View)

	a, err = appearance.DecodeAction([]byte(`{
		"type": "moduleAction",
		"target": {"type": "roomInventory"},
		"item": {"itemId": "i/crate"},
		"module": "lock",
		"action": {"type": "lock"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, appearance.ModuleAction{
		Target: appearance.RoomInventoryTarget(),
		Item:   model.ItemPath{ItemID: "i/crate"},
		Module: "lock",
		Action: appearance.ModuleOperation{Type: appearance.ModuleLock},
	}, a)
}

func TestDecodeAction_Errors(t *testing.T) {
	t.Parallel()

	_, err := appearance.DecodeAction([]byte(`{"type": "explode"}`))
	assert.ErrorIs(t, err, appearance.ErrUnknownAction)

	_, err = appearance.DecodeAction([]byte(`not json`))
	assert.Error(t, err)

	_, err = appearance.DecodeAction([]byte(`{"type": "setView", "target": {"type": "character"}, "view": "sideways"}`))
	assert.Error(t, err)
}

func TestEncodeAction_RoundTrip(t *testing.T) {
	t.Parallel()

	fist := model.ArmFingersFist
	actions := []appearance.Action{
		appearance.DeleteAction{Target: appearance.RoomInventoryTarget(), Item: model.ItemPath{ItemID: "i/1"}},
		appearance.PoseAction{Target: appearance.CharacterTarget("c1"), Preset: "kneel",
			LeftArm: &appearance.ArmChange{Fingers: &fist}},
		appearance.RoomDeviceLeaveAction{Target: appearance.CharacterTarget("c1"), Device: "i/chair", Slot: "seat"},
	}
	for _, a := range actions {
		raw, err := appearance.EncodeAction(a)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"type":"`+string(a.Type())+`"`)

		back, err := appearance.DecodeAction(raw)
		require.NoError(t, err)
		assert.Equal(t, a, back)
	}
}

func TestReasons_Unique(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, r := range appearance.Reasons() {
		assert.False(t, seen[r], "duplicate reason %q", r)
		seen[r] = true
	}
	assert.True(t, seen["storageFull"])
	assert.True(t, seen["blockedHands"])
	assert.True(t, seen[appearance.ReasonTargetNotFound])
}
