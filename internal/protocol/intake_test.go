package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/dressroom/internal/game/appearance"
	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
	"github.com/udisondev/dressroom/internal/protocol"
)

func newIntake(t *testing.T) *protocol.Intake {
	t.Helper()
	in, err := protocol.NewIntake()
	require.NoError(t, err)
	return in
}

func TestIntake_Envelope(t *testing.T) {
	t.Parallel()
	in := newIntake(t)

	env, err := in.Envelope([]byte(`{"type":"action","seq":7,"payload":{"type":"setView"}}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeAction, env.Type)
	assert.Equal(t, uint64(7), env.Seq)
	assert.JSONEq(t, `{"type":"setView"}`, string(env.Payload))

	env, err = in.Envelope([]byte(`{"type":"ping","seq":9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(9007199254740993), env.Seq)

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"not json", `{type:`},
		{"server type", `{"type":"welcome"}`},
		{"missing type", `{"seq":1}`},
		{"negative seq", `{"type":"ping","seq":-1}`},
		{"extra field", `{"type":"ping","foo":1}`},
		{"fractional seq", `{"type":"ping","seq":1.5}`},
		{"trailing data", `{"type":"ping"} {"type":"ping"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := in.Envelope([]byte(tt.raw))
			assert.ErrorIs(t, err, protocol.ErrBadRequest)
		})
	}
}

func TestIntake_Hello(t *testing.T) {
	t.Parallel()
	in := newIntake(t)

	h, err := in.Hello(json.RawMessage(`{"characterId":"c12","spaceId":"lobby","token":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.Hello{CharacterID: "c12", SpaceID: "lobby", Token: "abc"}, h)

	for _, raw := range []string{
		`{"characterId":"c0","spaceId":"lobby","token":"abc"}`,
		`{"characterId":"c12","spaceId":"","token":"abc"}`,
		`{"characterId":"c12","spaceId":"lobby"}`,
	} {
		_, err := in.Hello(json.RawMessage(raw))
		assert.ErrorIs(t, err, protocol.ErrBadRequest, raw)
	}
}

func TestIntake_Action(t *testing.T) {
	t.Parallel()
	in := newIntake(t)

	a, err := in.Action(json.RawMessage(`{
		"type": "move",
		"target": {"type": "character", "characterId": "c1"},
		"item": {"itemId": "i/shirt"},
		"shift": -1
	}`))
	require.NoError(t, err)
	assert.Equal(t, appearance.MoveAction{
		Target: appearance.CharacterTarget("c1"),
		Item:   model.ItemPath{ItemID: "i/shirt"},
		Shift:  -1,
	}, a)

	a, err = in.Action(json.RawMessage(`{
		"type": "moduleAction",
		"target": {"type": "roomInventory"},
		"item": {"itemId": "i/chest"},
		"module": "variant",
		"action": {"type": "setVariant", "variant": "open"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, appearance.ModuleSetVariant, a.(appearance.ModuleAction).Action.Type)

	tests := []struct {
		name string
		raw  string
	}{
		{"unknown type", `{"type":"explode"}`},
		{"bad item id", `{"type":"delete","target":{"type":"roomInventory"},"item":{"itemId":"shirt"}}`},
		{"bad asset id", `{"type":"create","target":{"type":"roomInventory"},"itemId":"i/1","asset":"shirt"}`},
		{"pose on room", `{"type":"setView","target":{"type":"roomInventory"},"view":"back"}`},
		{"bone out of range", `{"type":"body","target":{"type":"character","characterId":"c1"},"bones":{"breasts":5000}}`},
		{"setVariant without variant", `{"type":"moduleAction","target":{"type":"roomInventory"},"item":{"itemId":"i/1"},"module":"m","action":{"type":"setVariant"}}`},
		{"extra field", `{"type":"delete","target":{"type":"roomInventory"},"item":{"itemId":"i/1"},"force":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := in.Action(json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, protocol.ErrBadRequest)
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	raw, err := protocol.Encode(protocol.TypeError, 3, protocol.Error{Code: protocol.ErrCodeNotJoined, Message: "hello first"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","seq":3,"payload":{"code":"notJoined","message":"hello first"}}`, string(raw))

	raw, err = protocol.Encode(protocol.TypePong, 0, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(raw))
}

func TestExplain_CoversAllReasons(t *testing.T) {
	t.Parallel()

	generic := protocol.Explain("no such reason")
	for _, r := range appearance.Reasons() {
		assert.NotEqual(t, generic, protocol.Explain(r), "no explanation for %q", r)
	}
}

func TestNewActionResult(t *testing.T) {
	t.Parallel()

	res := protocol.NewActionResult(appearance.Result{Problem: &appearance.Problem{
		Kind: appearance.KindConstraint, Reason: "storageFull",
	}}, true)
	assert.False(t, res.OK)
	assert.True(t, res.DryRun)
	assert.Equal(t, "The storage is full.", res.Explanation)
}

func TestIntake_PermissionAndSafemode(t *testing.T) {
	t.Parallel()
	in := newIntake(t)

	p, err := in.Permission(json.RawMessage(`{"group":"pose","characterId":"c7","permission":"yes"}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.Permission{Group: restriction.GroupPose, CharacterID: "c7", Permission: restriction.PermissionYes}, p)

	p, err = in.Permission(json.RawMessage(`{"group":"interact","characterId":"c7","permission":""}`))
	require.NoError(t, err)
	assert.Empty(t, p.Permission)

	for _, raw := range []string{
		`{"group":"pose"}`,
		`{"group":"pose","permission":""}`,
		`{"group":"dance","permission":"yes"}`,
		`{"group":"pose","permission":"maybe"}`,
	} {
		_, err := in.Permission(json.RawMessage(raw))
		assert.ErrorIs(t, err, protocol.ErrBadRequest, raw)
	}

	s, err := in.Safemode(json.RawMessage(`{"enabled":true}`))
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	_, err = in.Safemode(json.RawMessage(`{"enabled":"yes"}`))
	assert.ErrorIs(t, err, protocol.ErrBadRequest)
}

func TestIsKnownCode(t *testing.T) {
	t.Parallel()

	assert.True(t, protocol.IsKnownCode(protocol.ErrCodeUnauthorized))
	assert.False(t, protocol.IsKnownCode("teapot"))
}
