package directory_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/dressroom/internal/config"
	"github.com/udisondev/dressroom/internal/db"
	"github.com/udisondev/dressroom/internal/directory"
	"github.com/udisondev/dressroom/internal/game/appearance"
	"github.com/udisondev/dressroom/internal/model"
	"github.com/udisondev/dressroom/internal/protocol"
	"github.com/udisondev/dressroom/internal/shard"
	"github.com/udisondev/dressroom/internal/testutil"
)

// Полный путь: directory выдаёт билет, shard принимает hello, действие
// сохраняется в PostgreSQL.
func TestIntegration_DirectoryToShard(t *testing.T) {
	database := testutil.SetupTestDB(t)
	pool := database.Pool()
	ctx := context.Background()
	assets := testutil.CatalogWithBody(t)

	accounts := db.NewAccountRepository(pool)
	characters := db.NewCharacterRepository(pool)
	spaces := db.NewSpaceRepository(pool)
	shards := db.NewShardRepository(pool)
	tickets := db.NewTicketRepository(pool)

	dirCfg := config.DefaultDirectory()
	dirCfg.BcryptCost = bcrypt.MinCost
	dir := directory.NewService(dirCfg, assets, directory.Stores{
		Accounts: accounts, Characters: characters, Spaces: spaces, Shards: shards, Tickets: tickets,
	})

	shardCfg := config.DefaultShard()
	shardCfg.ShardID = testutil.Fixtures.ShardID
	persister := shard.NewPersister(characters, spaces, 2, nil)
	table := shard.NewSpaceTable(assets, spaces, persister, nil)
	srv, err := shard.NewServer(shardCfg, table, tickets, characters)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	require.NoError(t, shards.Upsert(ctx, shardCfg.ShardID, "ws"+ts.URL[len("http"):]+"/ws"))

	_, err = dir.Register(ctx, testutil.Fixtures.Login, testutil.Fixtures.Password)
	require.NoError(t, err)
	token, err := dir.Login(ctx, testutil.Fixtures.Login, testutil.Fixtures.Password)
	require.NoError(t, err)
	sess, ok := dir.Authenticate(token)
	require.True(t, ok)

	charID, err := dir.CreateCharacter(ctx, sess, "Alice")
	require.NoError(t, err)
	space, err := dir.CreateSpace(ctx, sess, "Lobby")
	require.NoError(t, err)
	grant, err := dir.JoinSpace(ctx, sess, charID, space.ID)
	require.NoError(t, err)
	assert.Equal(t, shardCfg.ShardID, grant.ShardID)

	client := testutil.DialShard(t, ts.URL)
	w := client.Join(protocol.Hello{CharacterID: charID, SpaceID: space.ID, Token: grant.Token, AssetsDigest: assets.Digest()})
	require.Contains(t, w.State.Characters, charID)

	client.SendAction(protocol.TypeAction, appearance.CreateAction{
		Target: appearance.CharacterTarget(charID), ItemID: "i/shirt", Asset: testutil.AssetShirt,
	})
	var res protocol.ActionResult
	client.Expect(protocol.TypeActionResult, &res)
	require.True(t, res.OK, "%v", res.Problem)

	persister.Flush(ctx)
	rec, err := characters.Get(ctx, charID)
	require.NoError(t, err)
	ids := make([]model.ItemID, 0, len(rec.Appearance.Items))
	for _, item := range rec.Appearance.Items {
		ids = append(ids, item.ID)
	}
	assert.Contains(t, ids, model.ItemID("i/shirt"))

	// Билет одноразовый.
	again := testutil.DialShard(t, ts.URL)
	again.Send(protocol.TypeHello, protocol.Hello{CharacterID: charID, SpaceID: space.ID, Token: grant.Token})
	var e protocol.Error
	again.Expect(protocol.TypeError, &e)
	assert.Equal(t, protocol.ErrCodeUnauthorized, e.Code)
}
