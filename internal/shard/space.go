// Package shard обслуживает spaces одного shard: держит авторитетное
// состояние каждого space, выполняет действия единственным writer на space,
// сохраняет и рассылает изменения после commit и принимает клиентов по websocket.
package shard

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/udisondev/dressroom/internal/game/appearance"
	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
	"github.com/udisondev/dressroom/internal/protocol"
)

var (
	// ErrStaleState — Commit с expected, который уже не текущий.
	ErrStaleState = errors.New("stale state")
	ErrNotInSpace = errors.New("character not in space")

	errSpaceClosed = errors.New("space closed")
)

// Observer получает сообщения space для одного подключения. Send не блокируется.
type Observer interface {
	Send(msg []byte) error
}

// CommitListener получает каждый commit space по порядку, под блокировкой
// writer. Реализация не должна блокироваться.
type CommitListener interface {
	Committed(space model.SpaceID, state *model.GlobalState, changes model.StateChanges)
}

// Member — персонаж, входящий в space.
type Member struct {
	ID         model.CharacterID
	Appearance model.CharacterAppearanceBundle
	Info       restriction.CharacterInfo
}

// Space — авторитетное состояние одного space.
// Читатели берут снимок через CurrentState без блокировок; все изменения
// проходят через единственного writer под mu.
type Space struct {
	id       model.SpaceID
	state    atomic.Pointer[model.GlobalState]
	listener CommitListener
	logger   *slog.Logger

	mu        sync.Mutex
	closed    bool
	infos     map[model.CharacterID]restriction.CharacterInfo
	observers map[model.CharacterID]Observer
}

// NewSpace создаёт space с начальным состоянием.
func NewSpace(id model.SpaceID, initial *model.GlobalState, listener CommitListener, logger *slog.Logger) *Space {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Space{
		id:        id,
		listener:  listener,
		logger:    logger.With("spaceID", id),
		infos:     make(map[model.CharacterID]restriction.CharacterInfo),
		observers: make(map[model.CharacterID]Observer),
	}
	s.state.Store(initial)
	return s
}

// ID returns the space id.
func (s *Space) ID() model.SpaceID { return s.id }

// CurrentState возвращает текущий снимок. Снимок immutable.
func (s *Space) CurrentState() *model.GlobalState { return s.state.Load() }

// Population returns the number of characters in the space.
func (s *Space) Population() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.infos)
}

// Commit заменяет состояние, если текущее всё ещё expected.
// Возвращает ErrStaleState, если кто-то успел записать раньше.
func (s *Space) Commit(expected, next *model.GlobalState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(expected, next)
}

func (s *Space) commitLocked(expected, next *model.GlobalState) error {
	if !s.state.CompareAndSwap(expected, next) {
		return ErrStaleState
	}
	changes := next.ChangesSince(expected)
	if changes.Empty() {
		return nil
	}
	if s.listener != nil {
		s.listener.Committed(s.id, next, changes)
	}
	s.broadcastLocked(next, changes)
	return nil
}

func (s *Space) broadcastLocked(state *model.GlobalState, changes model.StateChanges) {
	if len(s.observers) == 0 {
		return
	}
	msg, err := protocol.Encode(protocol.TypeStateUpdate, 0, protocol.NewStateUpdate(state, changes))
	if err != nil {
		s.logger.Error("encoding state update", "error", err)
		return
	}
	for id, obs := range s.observers {
		if err := obs.Send(msg); err != nil {
			s.logger.Debug("state update not delivered", "character", id, "error", err)
		}
	}
}

// Perform выполняет действие actor. Dry-run проходит тот же путь без commit.
func (s *Space) Perform(actor model.CharacterID, action appearance.Action, dryRun bool) appearance.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.Load()
	res := appearance.DoAppearanceAction(action, appearance.ActionContext{
		Actor: actor,
		State: prev,
		Info:  s.infoLocked,
	}, prev.Assets(), appearance.Options{DryRun: dryRun})

	if res.OK() && res.State != nil {
		if err := s.commitLocked(prev, res.State); err != nil {
			panic(fmt.Sprintf("shard: commit under writer lock failed: %v", err))
		}
	}
	return res
}

func (s *Space) infoLocked(id model.CharacterID) restriction.CharacterInfo {
	return s.infos[id]
}

// Join добавляет персонажа и подписывает obs на изменения. Первым сообщением
// obs получает welcome с полным снимком, затем все последующие stateUpdate.
// Повторный Join того же персонажа заменяет его состояние и observer.
func (s *Space) Join(m Member, obs Observer, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSpaceClosed
	}

	prev := s.state.Load()
	cs := model.LoadCharacterStateFromBundle(prev.Assets(), m.ID, &m.Appearance, s.logger)
	next := prev.AddCharacter(cs, s.logger)
	if v := next.Validate(); !v.Success() {
		return fmt.Errorf("joining %s to %s: %s", m.ID, s.id, v)
	}

	// Welcome уходит до commit: если obs уже закрыт, space остаётся прежним
	// и текущий observer персонажа не теряется.
	welcome, err := protocol.Encode(protocol.TypeWelcome, seq, protocol.Welcome{
		CharacterID:  m.ID,
		SpaceID:      s.id,
		AssetsDigest: next.Assets().Digest(),
		State:        next.ExportToBundle(),
	})
	if err != nil {
		return fmt.Errorf("encoding welcome: %w", err)
	}
	if err := obs.Send(welcome); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	delete(s.observers, m.ID)
	s.infos[m.ID] = m.Info
	if err := s.commitLocked(prev, next); err != nil {
		panic(fmt.Sprintf("shard: commit under writer lock failed: %v", err))
	}
	s.observers[m.ID] = obs

	s.logger.Info("character joined", "character", m.ID, "population", len(s.infos))
	return nil
}

// Detach убирает персонажа, если obs всё ещё его observer.
// Observer, вытесненный повторным Join, ничего не меняет.
//
// Returns:
//   - int: число персонажей после выхода
//   - bool: true если персонаж вышел
func (s *Space) Detach(id model.CharacterID, obs Observer) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.observers[id]; !ok || cur != obs {
		return len(s.infos), false
	}
	delete(s.observers, id)
	delete(s.infos, id)

	prev := s.state.Load()
	if err := s.commitLocked(prev, prev.WithoutCharacter(id)); err != nil {
		panic(fmt.Sprintf("shard: commit under writer lock failed: %v", err))
	}
	s.logger.Info("character left", "character", id, "population", len(s.infos))
	return len(s.infos), true
}

// closeIfEmpty закрывает space для новых Join, если в нём никого нет.
func (s *Space) closeIfEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.infos) > 0 {
		return false
	}
	s.closed = true
	return true
}

// UpdateInfo меняет не-appearance данные персонажа.
//
// Returns:
//   - error: ErrNotInSpace или ошибка fn
func (s *Space) UpdateInfo(id model.CharacterID, fn func(restriction.CharacterInfo) (restriction.CharacterInfo, error)) (restriction.CharacterInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.infos[id]
	if !ok {
		return restriction.CharacterInfo{}, fmt.Errorf("%s in %s: %w", id, s.id, ErrNotInSpace)
	}
	next, err := fn(info)
	if err != nil {
		return info, err
	}
	s.infos[id] = next
	return next, nil
}

// ReloadAssets пересобирает состояние под новый каталог и рассылает изменения.
func (s *Space) ReloadAssets(assets *model.AssetManager) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.Load()
	if err := s.commitLocked(prev, prev.ReloadAssets(assets, s.logger)); err != nil {
		panic(fmt.Sprintf("shard: commit under writer lock failed: %v", err))
	}
}
