package shard

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/dressroom/internal/game/appearance"
	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
	"github.com/udisondev/dressroom/internal/protocol"
	"github.com/udisondev/dressroom/internal/testutil"
)

// fakeObserver копит сообщения space.
type fakeObserver struct {
	mu   sync.Mutex
	msgs []protocol.Envelope
}

func (o *fakeObserver) Send(msg []byte) error {
	var env protocol.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, env)
	return nil
}

func (o *fakeObserver) types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.msgs))
	for _, m := range o.msgs {
		out = append(out, m.Type)
	}
	return out
}

func (o *fakeObserver) last(t *testing.T, out any) protocol.Envelope {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs)
	env := o.msgs[len(o.msgs)-1]
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Payload, out))
	}
	return env
}

// recordingListener запоминает commits.
type recordingListener struct {
	mu      sync.Mutex
	changes []model.StateChanges
}

func (l *recordingListener) Committed(_ model.SpaceID, _ *model.GlobalState, changes model.StateChanges) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, changes)
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.changes)
}

func newTestSpace(t *testing.T, listener CommitListener) (*Space, *model.AssetManager) {
	t.Helper()
	assets := testutil.Catalog(t)
	return NewSpace("lobby", model.NewGlobalState(assets, model.NewRoomState(assets)), listener, nil), assets
}

func member(id model.CharacterID) Member {
	return Member{ID: id, Info: restriction.CharacterInfo{Permissions: restriction.DefaultPermissions()}}
}

func createShirt(id model.CharacterID, item model.ItemID) appearance.Action {
	return appearance.CreateAction{Target: appearance.CharacterTarget(id), ItemID: item, Asset: testutil.AssetShirt}
}

func TestSpace_CommitRejectsStale(t *testing.T) {
	t.Parallel()
	s, assets := newTestSpace(t, nil)

	base := s.CurrentState()
	first := base.AddCharacter(model.NewCharacterState(assets, "c1"), nil)
	require.NoError(t, s.Commit(base, first))

	second := base.AddCharacter(model.NewCharacterState(assets, "c2"), nil)
	assert.ErrorIs(t, s.Commit(base, second), ErrStaleState)
	assert.Same(t, first, s.CurrentState())
}

func TestSpace_JoinSendsWelcomeThenUpdates(t *testing.T) {
	t.Parallel()
	s, _ := newTestSpace(t, nil)

	a := &fakeObserver{}
	require.NoError(t, s.Join(member("c1"), a, 7))

	var w protocol.Welcome
	env := a.last(t, &w)
	assert.Equal(t, protocol.TypeWelcome, env.Type)
	assert.Equal(t, uint64(7), env.Seq)
	assert.Equal(t, model.CharacterID("c1"), w.CharacterID)
	assert.Contains(t, w.State.Characters, model.CharacterID("c1"))

	b := &fakeObserver{}
	require.NoError(t, s.Join(member("c2"), b, 1))

	var u protocol.StateUpdate
	env = a.last(t, &u)
	assert.Equal(t, protocol.TypeStateUpdate, env.Type)
	assert.Contains(t, u.Characters, model.CharacterID("c2"))

	assert.Equal(t, []string{protocol.TypeWelcome}, b.types(), "joiner gets welcome, not its own join update")
	b.last(t, &w)
	assert.Len(t, w.State.Characters, 2)
	assert.Equal(t, 2, s.Population())
}

func TestSpace_PerformCommitsAndBroadcasts(t *testing.T) {
	t.Parallel()
	listener := &recordingListener{}
	s, _ := newTestSpace(t, listener)
	obs := &fakeObserver{}
	require.NoError(t, s.Join(member("c1"), obs, 0))
	commits := listener.count()

	res := s.Perform("c1", createShirt("c1", "i/1"), false)
	require.True(t, res.OK(), "%v", res.Problem)
	assert.Same(t, res.State, s.CurrentState())
	assert.Equal(t, commits+1, listener.count())

	var u protocol.StateUpdate
	assert.Equal(t, protocol.TypeStateUpdate, obs.last(t, &u).Type)
	require.Contains(t, u.Characters, model.CharacterID("c1"))
	assert.Equal(t, model.ItemID("i/1"), u.Characters["c1"].Items[0].ID)
	assert.Nil(t, u.Room)
}

func TestSpace_DryRunDoesNotCommit(t *testing.T) {
	t.Parallel()
	listener := &recordingListener{}
	s, _ := newTestSpace(t, listener)
	obs := &fakeObserver{}
	require.NoError(t, s.Join(member("c1"), obs, 0))
	before := s.CurrentState()
	sent := len(obs.types())
	commits := listener.count()

	res := s.Perform("c1", createShirt("c1", "i/1"), true)
	assert.True(t, res.OK())
	assert.Nil(t, res.State)
	assert.Same(t, before, s.CurrentState())
	assert.Len(t, obs.types(), sent)
	assert.Equal(t, commits, listener.count())
}

func TestSpace_RejectedActionKeepsState(t *testing.T) {
	t.Parallel()
	s, _ := newTestSpace(t, nil)
	require.NoError(t, s.Join(member("c1"), &fakeObserver{}, 0))
	before := s.CurrentState()

	res := s.Perform("c1", appearance.CreateAction{
		Target: appearance.CharacterTarget("c1"), ItemID: "i/1", Asset: "a/unknown",
	}, false)
	require.False(t, res.OK())
	assert.Equal(t, appearance.ReasonUnknownAsset, res.Problem.Reason)
	assert.Same(t, before, s.CurrentState())
}

func TestSpace_DetachIgnoresReplacedObserver(t *testing.T) {
	t.Parallel()
	s, _ := newTestSpace(t, nil)

	old := &fakeObserver{}
	require.NoError(t, s.Join(member("c1"), old, 0))
	res := s.Perform("c1", createShirt("c1", "i/1"), false)
	require.True(t, res.OK())

	fresh := &fakeObserver{}
	require.NoError(t, s.Join(Member{ID: "c1", Appearance: s.CurrentState().Character("c1").ExportToBundle()}, fresh, 0))

	n, left := s.Detach("c1", old)
	assert.False(t, left)
	assert.Equal(t, 1, n)
	require.NotNil(t, s.CurrentState().Character("c1"))

	n, left = s.Detach("c1", fresh)
	assert.True(t, left)
	assert.Zero(t, n)
	assert.Nil(t, s.CurrentState().Character("c1"))
	assert.True(t, s.closeIfEmpty())
	assert.ErrorIs(t, s.Join(member("c2"), &fakeObserver{}, 0), errSpaceClosed)
}

// closedObserver — соединение, закрытое до welcome.
type closedObserver struct{}

func (closedObserver) Send([]byte) error { return testutil.ErrSimulated }

func TestSpace_FailedWelcomeKeepsLiveObserver(t *testing.T) {
	t.Parallel()
	s, _ := newTestSpace(t, nil)

	live := &fakeObserver{}
	require.NoError(t, s.Join(member("c1"), live, 0))
	before := s.CurrentState()

	err := s.Join(member("c1"), closedObserver{}, 0)
	require.ErrorIs(t, err, testutil.ErrSimulated)
	assert.Same(t, before, s.CurrentState())

	res := s.Perform("c1", createShirt("c1", "i/1"), false)
	require.True(t, res.OK())
	assert.Equal(t, protocol.TypeStateUpdate, live.last(t, nil).Type)

	n, left := s.Detach("c1", live)
	assert.True(t, left)
	assert.Zero(t, n)
	assert.Zero(t, s.Population())
	assert.Nil(t, s.CurrentState().Character("c1"))
}

func TestSpace_FailedWelcomeOnFirstJoinLeavesSpaceEmpty(t *testing.T) {
	t.Parallel()
	listener := &recordingListener{}
	s, _ := newTestSpace(t, listener)

	require.Error(t, s.Join(member("c1"), closedObserver{}, 0))
	assert.Zero(t, s.Population())
	assert.Nil(t, s.CurrentState().Character("c1"))
	assert.Zero(t, listener.count())
	assert.True(t, s.closeIfEmpty())
}

func TestSpace_UpdateInfoGrantsPermission(t *testing.T) {
	t.Parallel()
	s, _ := newTestSpace(t, nil)
	require.NoError(t, s.Join(member("c1"), &fakeObserver{}, 0))
	require.NoError(t, s.Join(member("c2"), &fakeObserver{}, 0))

	kneel := appearance.PoseAction{Target: appearance.CharacterTarget("c1"), Preset: "kneel"}
	res := s.Perform("c2", kneel, false)
	require.False(t, res.OK())
	assert.Equal(t, string(restriction.ReasonPermissionPrompt), res.Problem.Reason)

	_, err := s.UpdateInfo("c1", func(info restriction.CharacterInfo) (restriction.CharacterInfo, error) {
		perms, err := info.Permissions.WithOverride(restriction.GroupPose, "c2", restriction.PermissionYes, 8)
		info.Permissions = perms
		return info, err
	})
	require.NoError(t, err)

	res = s.Perform("c2", kneel, false)
	require.True(t, res.OK(), "%v", res.Problem)

	_, err = s.UpdateInfo("c9", func(info restriction.CharacterInfo) (restriction.CharacterInfo, error) { return info, nil })
	assert.ErrorIs(t, err, ErrNotInSpace)
}

func TestSpace_ConcurrentPerformIsSerialized(t *testing.T) {
	t.Parallel()
	s, _ := newTestSpace(t, nil)
	const n = 8
	for i := range n {
		require.NoError(t, s.Join(member(model.CharacterID(fmt.Sprintf("c%d", i+1))), &fakeObserver{}, 0))
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			id := model.CharacterID(fmt.Sprintf("c%d", i+1))
			res := s.Perform(id, createShirt(id, model.ItemID(fmt.Sprintf("i/%d", i))), false)
			assert.True(t, res.OK(), "%v", res.Problem)
		})
	}
	wg.Wait()

	final := s.CurrentState()
	require.True(t, final.Validate().Success())
	for i := range n {
		assert.Len(t, final.Character(model.CharacterID(fmt.Sprintf("c%d", i+1))).Items(), 1)
	}
}

func TestSpace_ReloadAssetsBroadcasts(t *testing.T) {
	t.Parallel()
	s, _ := newTestSpace(t, nil)
	obs := &fakeObserver{}
	require.NoError(t, s.Join(member("c1"), obs, 0))
	require.True(t, s.Perform("c1", createShirt("c1", "i/1"), false).OK())

	var without []*model.Asset
	for _, a := range testutil.Assets() {
		if a.ID != testutil.AssetShirt {
			without = append(without, a)
		}
	}
	next, err := model.NewAssetManager("v2", testutil.Bones(), testutil.Bodyparts(false), without, testutil.PosePresets())
	require.NoError(t, err)

	s.ReloadAssets(next)
	assert.Empty(t, s.CurrentState().Character("c1").Items())
	assert.Equal(t, "v2", s.CurrentState().Assets().Digest())
	assert.Equal(t, protocol.TypeStateUpdate, obs.last(t, nil).Type)
}
