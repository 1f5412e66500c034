package shard

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/dressroom/internal/config"
	"github.com/udisondev/dressroom/internal/game/appearance"
	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
	"github.com/udisondev/dressroom/internal/protocol"
	"github.com/udisondev/dressroom/internal/testutil"
)

type serverFixture struct {
	mock      *testutil.MockDB
	assets    *model.AssetManager
	table     *SpaceTable
	persister *Persister
	server    *Server
	url       string
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	return newServerFixtureWith(t, func(cfg *config.Shard) { cfg.MaxPermissionOverrides = 1 })
}

func newServerFixtureWith(t *testing.T, configure func(*config.Shard)) *serverFixture {
	t.Helper()
	assets := testutil.Catalog(t)
	mock := testutil.NewMockDB()
	ctx := context.Background()

	for _, name := range []string{"alice", "bob"} {
		_, err := mock.Characters().Create(ctx, 1, name, testutil.Appearance(t, assets))
		require.NoError(t, err)
	}
	require.NoError(t, mock.Spaces().Create(ctx, testutil.Fixtures.SpaceID, "Lobby", nil, testutil.Room(t, assets)))

	persister := NewPersister(mock.Characters(), mock.Spaces(), 2, nil)
	table := NewSpaceTable(assets, mock.Spaces(), persister, nil)
	cfg := config.DefaultShard()
	cfg.ShardID = testutil.Fixtures.ShardID
	configure(&cfg)

	srv, err := NewServer(cfg, table, mock.Tickets(), mock.Characters())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	require.NoError(t, testutil.WaitForHTTPReady(ts.URL+"/healthz", 5*time.Second))

	return &serverFixture{mock: mock, assets: assets, table: table, persister: persister, server: srv, url: ts.URL}
}

func (f *serverFixture) hello(id model.CharacterID, token string) protocol.Hello {
	f.mock.IssueTicket(id, testutil.Fixtures.SpaceID, testutil.Fixtures.ShardID, token)
	return protocol.Hello{CharacterID: id, SpaceID: testutil.Fixtures.SpaceID, Token: token, AssetsDigest: f.assets.Digest()}
}

func (f *serverFixture) join(t *testing.T, id model.CharacterID) *testutil.ShardClient {
	t.Helper()
	c := testutil.DialShard(t, f.url)
	w := c.Join(f.hello(id, "token-"+string(id)))
	require.Equal(t, id, w.CharacterID)
	return c
}

func shirtOn(id model.CharacterID, item model.ItemID) appearance.CreateAction {
	return appearance.CreateAction{Target: appearance.CharacterTarget(id), ItemID: item, Asset: testutil.AssetShirt}
}

func TestServer_JoinConsumesTicket(t *testing.T) {
	t.Parallel()
	f := newServerFixture(t)

	c := testutil.DialShard(t, f.url)
	w := c.Join(f.hello("c1", testutil.Fixtures.Token))
	assert.Equal(t, testutil.Fixtures.SpaceID, w.SpaceID)
	assert.Equal(t, f.assets.Digest(), w.AssetsDigest)
	assert.Contains(t, w.State.Characters, model.CharacterID("c1"))
	assert.Zero(t, f.mock.TicketCount())

	testutil.Eventually(t, func() bool { return f.server.Clients().Get("c1") != nil }, "client registered")
}

func TestServer_HandshakeRejections(t *testing.T) {
	t.Parallel()
	f := newServerFixture(t)

	tests := []struct {
		name  string
		hello func() protocol.Hello
		code  string
	}{
		{"unknown token", func() protocol.Hello {
			h := f.hello("c1", "right")
			h.Token = "wrong"
			return h
		}, protocol.ErrCodeUnauthorized},
		{"ticket for another character", func() protocol.Hello {
			h := f.hello("c1", "for-c1")
			h.CharacterID = "c2"
			return h
		}, protocol.ErrCodeUnauthorized},
		{"unknown space", func() protocol.Hello {
			f.mock.IssueTicket("c1", "nowhere", testutil.Fixtures.ShardID, "nowhere-token")
			return protocol.Hello{CharacterID: "c1", SpaceID: "nowhere", Token: "nowhere-token"}
		}, protocol.ErrCodeSpaceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testutil.DialShard(t, f.url)
			seq := c.Send(protocol.TypeHello, tt.hello())
			var e protocol.Error
			env := c.Expect(protocol.TypeError, &e)
			assert.Equal(t, seq, env.Seq)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestServer_FirstMessageMustBeHello(t *testing.T) {
	t.Parallel()
	f := newServerFixture(t)

	c := testutil.DialShard(t, f.url)
	c.Send(protocol.TypePing, nil)
	var e protocol.Error
	c.Expect(protocol.TypeError, &e)
	assert.Equal(t, protocol.ErrCodeNotJoined, e.Code)

	bad := testutil.DialShard(t, f.url)
	bad.SendRaw([]byte(`{"type":"hello","payload":{"characterId":"nope"}}`))
	bad.Expect(protocol.TypeError, &e)
	assert.Equal(t, protocol.ErrCodeBadRequest, e.Code)
}

func TestServer_OutdatedCatalogWarning(t *testing.T) {
	t.Parallel()
	f := newServerFixture(t)

	c := testutil.DialShard(t, f.url)
	h := f.hello("c1", testutil.Fixtures.Token)
	h.AssetsDigest = "stale"
	c.Send(protocol.TypeHello, h)

	var e protocol.Error
	c.Expect(protocol.TypeError, &e)
	assert.Equal(t, protocol.ErrCodeAssetsChanged, e.Code)
	c.Expect(protocol.TypeWelcome, nil)
}

func TestServer_ActionBroadcastAndPersist(t *testing.T) {
	t.Parallel()
	f := newServerFixture(t)
	alice := f.join(t, "c1")
	bob := f.join(t, "c2")

	var u protocol.StateUpdate
	alice.Expect(protocol.TypeStateUpdate, &u)
	assert.Contains(t, u.Characters, model.CharacterID("c2"), "alice sees bob join")

	seq := alice.SendAction(protocol.TypeAction, shirtOn("c1", "i/shirt"))
	var res protocol.ActionResult
	env := alice.Expect(protocol.TypeActionResult, &res)
	assert.Equal(t, seq, env.Seq)
	assert.True(t, res.OK)
	assert.False(t, res.DryRun)

	bob.Expect(protocol.TypeStateUpdate, &u)
	require.Contains(t, u.Characters, model.CharacterID("c1"))
	assert.Equal(t, model.ItemID("i/shirt"), u.Characters["c1"].Items[0].ID)

	f.persister.Flush(context.Background())
	assert.Equal(t, 1, f.mock.SaveCount("c1"))
}

func TestServer_QueryIsDryRun(t *testing.T) {
	t.Parallel()
	f := newServerFixture(t)
	alice := f.join(t, "c1")
	before := f.table.Get(testutil.Fixtures.SpaceID).CurrentState()

	alice.SendAction(protocol.TypeQuery, shirtOn("c1", "i/shirt"))
	var res protocol.ActionResult
	alice.Expect(protocol.TypeActionResult, &res)
	assert.True(t, res.OK)
	assert.True(t, res.DryRun)
	assert.Same(t, before, f.table.Get(testutil.Fixtures.SpaceID).CurrentState())

	alice.SendAction(protocol.TypeQuery, appearance.CreateAction{
		Target: appearance.CharacterTarget("c1"), ItemID: "i/box", Asset: testutil.AssetBox,
	})
	alice.Expect(protocol.TypeActionResult, &res)
	assert.False(t, res.OK)
	require.NotNil(t, res.Problem)
	assert.NotEmpty(t, res.Explanation)
}

func TestServer_BadRequestKeepsConnection(t *testing.T) {
	t.Parallel()
	f := newServerFixture(t)
	alice := f.join(t, "c1")

	alice.SendRaw([]byte(`{`))
	var e protocol.Error
	alice.Expect(protocol.TypeError, &e)
	assert.Equal(t, protocol.ErrCodeBadRequest, e.Code)

	alice.Send(protocol.TypeAction, map[string]any{"type": "create", "target": map[string]any{"type": "character"}})
	alice.Expect(protocol.TypeError, &e)
	assert.Equal(t, protocol.ErrCodeBadRequest, e.Code)

	seq := alice.Send(protocol.TypePing, nil)
	env := alice.Expect(protocol.TypePong, nil)
	assert.Equal(t, seq, env.Seq)
}

func TestServer_PermissionAndSafemode(t *testing.T) {
	t.Parallel()
	f := newServerFixture(t)
	alice := f.join(t, "c1")
	bob := f.join(t, "c2")
	kneel := appearance.PoseAction{Target: appearance.CharacterTarget("c1"), Preset: "kneel"}

	bob.SendAction(protocol.TypeAction, kneel)
	var res protocol.ActionResult
	bob.Expect(protocol.TypeActionResult, &res)
	require.False(t, res.OK)
	assert.Equal(t, []appearance.PermissionPrompt{{Target: "c1", Group: restriction.GroupPose}}, res.Pending)

	seq := alice.Send(protocol.TypePermission, protocol.Permission{
		Group: restriction.GroupPose, CharacterID: "c2", Permission: restriction.PermissionYes,
	})
	env := alice.Expect(protocol.TypeAck, nil)
	assert.Equal(t, seq, env.Seq)

	rec, err := f.mock.Characters().Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, restriction.PermissionYes, rec.Permissions.Resolve(restriction.GroupPose, "c2", nil))

	bob.SendAction(protocol.TypeAction, kneel)
	bob.Expect(protocol.TypeActionResult, &res)
	assert.True(t, res.OK, "%v", res.Problem)

	// Второй override превышает лимит.
	alice.Send(protocol.TypePermission, protocol.Permission{
		Group: restriction.GroupPose, CharacterID: "c3", Permission: restriction.PermissionNo,
	})
	var e protocol.Error
	alice.Expect(protocol.TypeError, &e)
	assert.Equal(t, protocol.ErrCodeTooManyOverrides, e.Code)

	alice.Send(protocol.TypeSafemode, protocol.Safemode{Enabled: true})
	alice.Expect(protocol.TypeAck, nil)
	rec, err = f.mock.Characters().Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, rec.Safemode)
}

func TestServer_UnsetOverrideLimitUsesDefault(t *testing.T) {
	t.Parallel()
	f := newServerFixtureWith(t, func(cfg *config.Shard) { cfg.MaxPermissionOverrides = 0 })
	assert.Equal(t, restriction.DefaultMaxOverrides, f.server.cfg.MaxPermissionOverrides)

	alice := f.join(t, "c1")
	for _, id := range []model.CharacterID{"c2", "c3"} {
		seq := alice.Send(protocol.TypePermission, protocol.Permission{
			Group: restriction.GroupPose, CharacterID: id, Permission: restriction.PermissionYes,
		})
		assert.Equal(t, seq, alice.Expect(protocol.TypeAck, nil).Seq)
	}

	rec, err := f.mock.Characters().Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, restriction.PermissionYes, rec.Permissions.Resolve(restriction.GroupPose, "c3", nil))
}

func TestServer_ReconnectReplacesConnection(t *testing.T) {
	t.Parallel()
	f := newServerFixture(t)
	first := f.join(t, "c1")
	second := f.join(t, "c1")

	_, err := first.TryRead()
	for err == nil {
		_, err = first.TryRead()
	}
	assert.Error(t, err, "old connection is closed")

	seq := second.Send(protocol.TypePing, nil)
	assert.Equal(t, seq, second.Expect(protocol.TypePong, nil).Seq)
	assert.Equal(t, 1, f.table.Population())
}

func TestServer_DisconnectClosesSpace(t *testing.T) {
	t.Parallel()
	f := newServerFixture(t)
	alice := f.join(t, "c1")
	require.NotNil(t, f.table.Get(testutil.Fixtures.SpaceID))

	require.NoError(t, alice.Close())
	testutil.Eventually(t, func() bool { return f.table.Get(testutil.Fixtures.SpaceID) == nil }, "space closed")
	assert.Zero(t, f.server.Clients().Count())
}
