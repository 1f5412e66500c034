package shard

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/dressroom/internal/db"
	"github.com/udisondev/dressroom/internal/model"
	"github.com/udisondev/dressroom/internal/testutil"
)

func TestSpaceTable_OpensAndClosesSpace(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	mock := testutil.NewMockDB()
	ctx := context.Background()
	require.NoError(t, mock.Spaces().Create(ctx, "lobby", "Lobby", nil,
		testutil.Room(t, assets, testutil.NewItem(t, assets, "i/box", testutil.AssetBox))))

	table := NewSpaceTable(assets, mock.Spaces(), NewPersister(mock.Characters(), mock.Spaces(), 1, nil), nil)
	assert.Nil(t, table.Get("lobby"))

	obs := &fakeObserver{}
	s, err := table.Join(ctx, "lobby", member("c1"), "", obs, 0)
	require.NoError(t, err)
	assert.Same(t, s, table.Get("lobby"))
	assert.Len(t, s.CurrentState().Room().Items(), 1)
	assert.Equal(t, 1, table.Population())

	table.Leave(s, "c1", obs)
	assert.Nil(t, table.Get("lobby"))
	assert.Zero(t, table.Population())
}

func TestSpaceTable_UnknownSpace(t *testing.T) {
	t.Parallel()
	table := NewSpaceTable(testutil.Catalog(t), testutil.NewMockDB().Spaces(), nil, nil)

	_, err := table.Join(context.Background(), "nowhere", member("c1"), "", &fakeObserver{}, 0)
	assert.ErrorIs(t, err, db.ErrSpaceNotFound)
}

func TestSpaceTable_FailedJoinDropsEmptySpace(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	mock := testutil.NewMockDB()
	ctx := context.Background()
	require.NoError(t, mock.Spaces().Create(ctx, "lobby", "Lobby", nil, testutil.Room(t, assets)))
	table := NewSpaceTable(assets, mock.Spaces(), nil, nil)

	_, err := table.Join(ctx, "lobby", member("c1"), "", closedObserver{}, 0)
	require.ErrorIs(t, err, testutil.ErrSimulated)
	assert.Nil(t, table.Get("lobby"))

	obs := &fakeObserver{}
	s, err := table.Join(ctx, "lobby", member("c1"), "", obs, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Population())
}

func TestSpaceTable_ConcurrentJoinLeave(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)
	mock := testutil.NewMockDB()
	require.NoError(t, mock.Spaces().Create(context.Background(), "lobby", "Lobby", nil, testutil.Room(t, assets)))
	table := NewSpaceTable(assets, mock.Spaces(), nil, nil)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			id := model.CharacterID(fmt.Sprintf("c%d", i+1))
			obs := &fakeObserver{}
			s, err := table.Join(context.Background(), "lobby", member(id), "", obs, 0)
			if !assert.NoError(t, err) {
				return
			}
			table.Leave(s, id, obs)
		})
	}
	wg.Wait()

	assert.Nil(t, table.Get("lobby"))
	assert.Zero(t, table.Population())
}
