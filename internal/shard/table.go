package shard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/udisondev/dressroom/internal/model"
)

// RoomLoader загружает инвентарь комнаты space.
type RoomLoader interface {
	LoadRoomInventory(ctx context.Context, id model.SpaceID) (model.RoomInventoryBundle, string, error)
}

// SpaceTable — открытые spaces этого shard. Space открывается при первом
// входе персонажа и закрывается, когда из него выходит последний.
type SpaceTable struct {
	rooms     RoomLoader
	persister *Persister
	logger    *slog.Logger

	mu     sync.Mutex
	assets *model.AssetManager
	spaces map[model.SpaceID]*Space
}

// NewSpaceTable создаёт пустую таблицу.
func NewSpaceTable(assets *model.AssetManager, rooms RoomLoader, persister *Persister, logger *slog.Logger) *SpaceTable {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpaceTable{
		rooms:     rooms,
		persister: persister,
		logger:    logger,
		assets:    assets,
		spaces:    make(map[model.SpaceID]*Space),
	}
}

// Assets returns the current catalog.
func (t *SpaceTable) Assets() *model.AssetManager {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.assets
}

// Get возвращает открытый space или nil.
func (t *SpaceTable) Get(id model.SpaceID) *Space {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spaces[id]
}

// open возвращает открытый space или загружает его.
func (t *SpaceTable) open(ctx context.Context, id model.SpaceID) (*Space, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.spaces[id]; ok {
		return s, nil
	}

	bundle, digest, err := t.rooms.LoadRoomInventory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("opening space %s: %w", id, err)
	}
	room := model.LoadRoomStateFromBundle(t.assets, &bundle, t.logger)
	state := model.NewGlobalState(t.assets, room)
	if v := state.Validate(); !v.Success() {
		panic(fmt.Sprintf("shard: space %s invalid after load: %s", id, v))
	}

	var listener CommitListener
	if t.persister != nil {
		t.persister.SeedRoom(id, digest)
		listener = t.persister
	}
	s := NewSpace(id, state, listener, t.logger)
	t.spaces[id] = s
	t.logger.Info("space opened", "spaceID", id, "roomItems", len(bundle.Items))
	return s, nil
}

// Join открывает space при необходимости и добавляет в него персонажа.
func (t *SpaceTable) Join(ctx context.Context, id model.SpaceID, m Member, digest string, obs Observer, seq uint64) (*Space, error) {
	if t.persister != nil && digest != "" {
		t.persister.SeedCharacter(m.ID, digest)
	}
	for {
		s, err := t.open(ctx, id)
		if err != nil {
			return nil, err
		}
		err = s.Join(m, obs, seq)
		if errors.Is(err, errSpaceClosed) {
			// space закрылся между open и Join: следующий open загрузит его заново
			continue
		}
		if err != nil {
			t.dropIfEmpty(s)
			return nil, err
		}
		return s, nil
	}
}

// Leave убирает персонажа и закрывает опустевший space.
func (t *SpaceTable) Leave(s *Space, id model.CharacterID, obs Observer) {
	remaining, left := s.Detach(id, obs)
	if !left || remaining > 0 {
		return
	}
	t.dropIfEmpty(s)
}

// dropIfEmpty закрывает и убирает из таблицы space без персонажей.
func (t *SpaceTable) dropIfEmpty(s *Space) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spaces[s.id] != s || !s.closeIfEmpty() {
		return
	}
	delete(t.spaces, s.id)
	t.logger.Info("space closed", "spaceID", s.id)
}

// Population returns the number of characters across all open spaces.
func (t *SpaceTable) Population() int {
	t.mu.Lock()
	spaces := make([]*Space, 0, len(t.spaces))
	for _, s := range t.spaces {
		spaces = append(spaces, s)
	}
	t.mu.Unlock()

	n := 0
	for _, s := range spaces {
		n += s.Population()
	}
	return n
}

// ReloadAssets переключает все открытые spaces на новый каталог.
func (t *SpaceTable) ReloadAssets(assets *model.AssetManager) {
	t.mu.Lock()
	t.assets = assets
	spaces := make([]*Space, 0, len(t.spaces))
	for _, s := range t.spaces {
		spaces = append(spaces, s)
	}
	t.mu.Unlock()

	for _, s := range spaces {
		s.ReloadAssets(assets)
	}
	t.logger.Info("assets reloaded", "digest", assets.Digest(), "spaces", len(spaces))
}
