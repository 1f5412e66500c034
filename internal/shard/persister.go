package shard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/dressroom/internal/bundlecodec"
	"github.com/udisondev/dressroom/internal/model"
)

// AppearanceStore сохраняет внешность персонажей.
type AppearanceStore interface {
	SaveAppearance(ctx context.Context, id model.CharacterID, enc bundlecodec.Encoded) (bool, error)
}

// RoomStore сохраняет инвентарь комнат.
type RoomStore interface {
	SaveRoomInventory(ctx context.Context, id model.SpaceID, enc bundlecodec.Encoded) (bool, error)
}

const (
	defaultPersistWorkers = 4
	persistTimeout        = 10 * time.Second
	shutdownFlushTimeout  = 30 * time.Second
)

// Persister сохраняет изменения после commit. Commit никогда не ждёт БД:
// Committed только запоминает последние bundles, а Run сохраняет их в фоне.
// Несколько commits одного персонажа до сохранения сливаются в одно.
// Ошибки сохранения логируются; commit не откатывается.
type Persister struct {
	chars   AppearanceStore
	rooms   RoomStore
	workers int
	logger  *slog.Logger

	mu           sync.Mutex
	pendingChars map[model.CharacterID]model.CharacterAppearanceBundle
	pendingRooms map[model.SpaceID]model.RoomInventoryBundle
	wake         chan struct{}

	digestMu    sync.Mutex
	charDigests map[model.CharacterID]string
	roomDigests map[model.SpaceID]string
}

// NewPersister создаёт Persister. workers <= 0 — значение по умолчанию.
func NewPersister(chars AppearanceStore, rooms RoomStore, workers int, logger *slog.Logger) *Persister {
	if workers <= 0 {
		workers = defaultPersistWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{
		chars:        chars,
		rooms:        rooms,
		workers:      workers,
		logger:       logger,
		pendingChars: make(map[model.CharacterID]model.CharacterAppearanceBundle),
		pendingRooms: make(map[model.SpaceID]model.RoomInventoryBundle),
		wake:         make(chan struct{}, 1),
		charDigests:  make(map[model.CharacterID]string),
		roomDigests:  make(map[model.SpaceID]string),
	}
}

// SeedCharacter запоминает digest внешности, уже лежащей в БД.
func (p *Persister) SeedCharacter(id model.CharacterID, digest string) {
	p.digestMu.Lock()
	defer p.digestMu.Unlock()
	p.charDigests[id] = digest
}

// SeedRoom запоминает digest инвентаря комнаты, уже лежащего в БД.
func (p *Persister) SeedRoom(id model.SpaceID, digest string) {
	p.digestMu.Lock()
	defer p.digestMu.Unlock()
	p.roomDigests[id] = digest
}

// Committed implements CommitListener.
func (p *Persister) Committed(space model.SpaceID, state *model.GlobalState, changes model.StateChanges) {
	p.mu.Lock()
	for _, id := range changes.Characters {
		p.pendingChars[id] = state.Character(id).ExportToBundle()
	}
	if changes.Room {
		p.pendingRooms[space] = state.Room().ExportToBundle()
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of bundles waiting to be saved.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pendingChars) + len(p.pendingRooms)
}

// Run сохраняет накопленные изменения до отмены ctx, затем делает финальный flush.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case <-p.wake:
			p.Flush(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
			p.Flush(flushCtx)
			cancel()
			return nil
		}
	}
}

// Flush сохраняет всё накопленное к моменту вызова.
func (p *Persister) Flush(ctx context.Context) {
	p.mu.Lock()
	chars := p.pendingChars
	rooms := p.pendingRooms
	p.pendingChars = make(map[model.CharacterID]model.CharacterAppearanceBundle, len(chars))
	p.pendingRooms = make(map[model.SpaceID]model.RoomInventoryBundle, len(rooms))
	p.mu.Unlock()

	if len(chars) == 0 && len(rooms) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for id, bundle := range chars {
		g.Go(func() error {
			p.saveCharacter(ctx, id, bundle)
			return nil
		})
	}
	for id, bundle := range rooms {
		g.Go(func() error {
			p.saveRoom(ctx, id, bundle)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Persister) saveCharacter(ctx context.Context, id model.CharacterID, bundle model.CharacterAppearanceBundle) {
	enc, err := bundlecodec.EncodeWithDigest(bundle)
	if err != nil {
		p.logger.Error("encoding appearance", "character", id, "error", err)
		return
	}
	p.digestMu.Lock()
	unchanged := p.charDigests[id] == enc.Digest
	p.digestMu.Unlock()
	if unchanged {
		return
	}

	saveCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if _, err := p.chars.SaveAppearance(saveCtx, id, enc); err != nil {
		p.logger.Error("saving appearance failed", "character", id, "error", err)
		return
	}
	p.SeedCharacter(id, enc.Digest)
}

func (p *Persister) saveRoom(ctx context.Context, id model.SpaceID, bundle model.RoomInventoryBundle) {
	enc, err := bundlecodec.EncodeWithDigest(bundle)
	if err != nil {
		p.logger.Error("encoding room inventory", "spaceID", id, "error", err)
		return
	}
	p.digestMu.Lock()
	unchanged := p.roomDigests[id] == enc.Digest
	p.digestMu.Unlock()
	if unchanged {
		return
	}

	saveCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if _, err := p.rooms.SaveRoomInventory(saveCtx, id, enc); err != nil {
		p.logger.Error("saving room inventory failed", "spaceID", id, "error", err)
		return
	}
	p.SeedRoom(id, enc.Digest)
}
