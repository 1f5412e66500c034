package testutil

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/udisondev/dressroom/internal/bundlecodec"
	"github.com/udisondev/dressroom/internal/db"
	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
)

// MockDB — in-memory имплементация репозиториев для unit тестов.
// Не требует реального PostgreSQL. Репозитории разделяют одно хранилище.
type MockDB struct {
	mu sync.Mutex

	nextAccount   int64
	nextCharacter int64
	accounts      map[string]*model.Account
	characters    map[model.CharacterID]*db.CharacterRecord
	spaces        map[model.SpaceID]*mockSpace
	shards        map[string]*db.ShardRecord
	tickets       map[string]db.JoinTicket

	// Saves считает успешные сохранения внешности по персонажу.
	Saves map[model.CharacterID]int
	// FailSaves заставляет SaveAppearance возвращать ошибку.
	FailSaves bool
}

type mockSpace struct {
	rec    db.SpaceRecord
	room   model.RoomInventoryBundle
	digest string
}

// NewMockDB создаёт новый MockDB экземпляр.
func NewMockDB() *MockDB {
	return &MockDB{
		accounts:   make(map[string]*model.Account),
		characters: make(map[model.CharacterID]*db.CharacterRecord),
		spaces:     make(map[model.SpaceID]*mockSpace),
		shards:     make(map[string]*db.ShardRecord),
		tickets:    make(map[string]db.JoinTicket),
		Saves:      make(map[model.CharacterID]int),
	}
}

// Accounts returns the account repository.
func (m *MockDB) Accounts() *MockAccounts { return (*MockAccounts)(m) }

// Characters returns the character repository.
func (m *MockDB) Characters() *MockCharacters { return (*MockCharacters)(m) }

// Spaces returns the space repository.
func (m *MockDB) Spaces() *MockSpaces { return (*MockSpaces)(m) }

// Shards returns the shard registry.
func (m *MockDB) Shards() *MockShards { return (*MockShards)(m) }

// Tickets returns the join ticket repository.
func (m *MockDB) Tickets() *MockTickets { return (*MockTickets)(m) }

// MockAccounts — AccountRepository в памяти.
type MockAccounts MockDB

// Create создаёт аккаунт.
func (r *MockAccounts) Create(_ context.Context, login, passwordHash string, roles []string) (*model.Account, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	login = strings.ToLower(login)
	if _, ok := m.accounts[login]; ok {
		return nil, fmt.Errorf("creating account %q: %w", login, db.ErrAccountExists)
	}
	m.nextAccount++
	acc := &model.Account{ID: m.nextAccount, Login: login, PasswordHash: passwordHash, Roles: slices.Clone(roles), CreatedAt: time.Now()}
	m.accounts[login] = acc
	cp := *acc
	return &cp, nil
}

// GetByLogin получает аккаунт по логину.
func (r *MockAccounts) GetByLogin(_ context.Context, login string) (*model.Account, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[strings.ToLower(login)]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

// Touch обновляет last_active.
func (r *MockAccounts) Touch(_ context.Context, accountID int64) error {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, acc := range m.accounts {
		if acc.ID == accountID {
			now := time.Now()
			acc.LastActive = &now
		}
	}
	return nil
}

func (m *MockDB) rolesOf(accountID int64) []string {
	for _, acc := range m.accounts {
		if acc.ID == accountID {
			return slices.Clone(acc.Roles)
		}
	}
	return nil
}

// MockCharacters — CharacterRepository в памяти.
type MockCharacters MockDB

// Create создаёт персонажа.
func (r *MockCharacters) Create(_ context.Context, accountID int64, name string, appearance model.CharacterAppearanceBundle) (model.CharacterID, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.characters {
		if c.Name == name {
			return "", fmt.Errorf("creating character %q: %w", name, db.ErrCharacterExists)
		}
	}
	digest, err := bundlecodec.Digest(appearance)
	if err != nil {
		return "", err
	}
	m.nextCharacter++
	id := model.CharacterID("c" + strconv.FormatInt(m.nextCharacter, 10))
	m.characters[id] = &db.CharacterRecord{
		ID:               id,
		AccountID:        accountID,
		Name:             name,
		Permissions:      restriction.DefaultPermissions(),
		Appearance:       appearance,
		AppearanceDigest: digest,
	}
	return id, nil
}

// Get загружает персонажа.
func (r *MockCharacters) Get(_ context.Context, id model.CharacterID) (*db.CharacterRecord, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.characters[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Roles = m.rolesOf(c.AccountID)
	return &cp, nil
}

// ListByAccount возвращает персонажей аккаунта.
func (r *MockCharacters) ListByAccount(_ context.Context, accountID int64) ([]db.CharacterSummary, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []db.CharacterSummary
	for _, c := range m.characters {
		if c.AccountID == accountID {
			out = append(out, db.CharacterSummary{ID: c.ID, Name: c.Name})
		}
	}
	slices.SortFunc(out, func(a, b db.CharacterSummary) int {
		ka, _ := strconv.ParseInt(string(a.ID[1:]), 10, 64)
		kb, _ := strconv.ParseInt(string(b.ID[1:]), 10, 64)
		return int(ka - kb)
	})
	return out, nil
}

// CountByAccount returns how many characters the account owns.
func (r *MockCharacters) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	list, err := r.ListByAccount(ctx, accountID)
	return len(list), err
}

// SaveAppearance сохраняет внешность.
func (r *MockCharacters) SaveAppearance(_ context.Context, id model.CharacterID, enc bundlecodec.Encoded) (bool, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves {
		return false, fmt.Errorf("saving appearance of %s: mock failure", id)
	}
	c, ok := m.characters[id]
	if !ok || c.AppearanceDigest == enc.Digest {
		return false, nil
	}
	var bundle model.CharacterAppearanceBundle
	if err := bundlecodec.Decode(enc.Blob, &bundle); err != nil {
		return false, err
	}
	c.Appearance = bundle
	c.AppearanceDigest = enc.Digest
	m.Saves[id]++
	return true, nil
}

// SetPermissions заменяет настройки разрешений.
func (r *MockCharacters) SetPermissions(_ context.Context, id model.CharacterID, perms restriction.PermissionSet) error {
	return r.update(id, func(c *db.CharacterRecord) { c.Permissions = perms })
}

// SetSafemode включает или выключает safemode.
func (r *MockCharacters) SetSafemode(_ context.Context, id model.CharacterID, on bool) error {
	return r.update(id, func(c *db.CharacterRecord) { c.Safemode = on })
}

func (r *MockCharacters) update(id model.CharacterID, fn func(*db.CharacterRecord)) error {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.characters[id]
	if !ok {
		return fmt.Errorf("updating character %s: %w", id, db.ErrCharacterNotFound)
	}
	fn(c)
	return nil
}

// MockSpaces — SpaceRepository в памяти.
type MockSpaces MockDB

// Create создаёт space.
func (r *MockSpaces) Create(_ context.Context, id model.SpaceID, name string, owner *int64, room model.RoomInventoryBundle) error {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.spaces[id]; ok {
		return fmt.Errorf("creating space %s: %w", id, db.ErrSpaceExists)
	}
	digest, err := bundlecodec.Digest(room)
	if err != nil {
		return err
	}
	m.spaces[id] = &mockSpace{
		rec:    db.SpaceRecord{ID: id, Name: name, OwnerAccountID: owner, CreatedAt: time.Now()},
		room:   room,
		digest: digest,
	}
	return nil
}

// Get возвращает space.
func (r *MockSpaces) Get(_ context.Context, id model.SpaceID) (*db.SpaceRecord, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.spaces[id]
	if !ok {
		return nil, nil
	}
	rec := s.rec
	return &rec, nil
}

// List возвращает все spaces по имени.
func (r *MockSpaces) List(_ context.Context) ([]db.SpaceRecord, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]db.SpaceRecord, 0, len(m.spaces))
	for _, s := range m.spaces {
		out = append(out, s.rec)
	}
	slices.SortFunc(out, func(a, b db.SpaceRecord) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out, nil
}

// LoadRoomInventory загружает инвентарь комнаты.
func (r *MockSpaces) LoadRoomInventory(_ context.Context, id model.SpaceID) (model.RoomInventoryBundle, string, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.spaces[id]
	if !ok {
		return model.RoomInventoryBundle{}, "", fmt.Errorf("loading room of %s: %w", id, db.ErrSpaceNotFound)
	}
	return s.room, s.digest, nil
}

// SaveRoomInventory сохраняет инвентарь комнаты.
func (r *MockSpaces) SaveRoomInventory(_ context.Context, id model.SpaceID, enc bundlecodec.Encoded) (bool, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.spaces[id]
	if !ok || s.digest == enc.Digest {
		return false, nil
	}
	var room model.RoomInventoryBundle
	if err := bundlecodec.Decode(enc.Blob, &room); err != nil {
		return false, err
	}
	s.room = room
	s.digest = enc.Digest
	return true, nil
}

// MockShards — ShardRepository в памяти.
type MockShards MockDB

// Upsert регистрирует shard.
func (r *MockShards) Upsert(_ context.Context, id, address string) error {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shards[id]
	if !ok {
		s = &db.ShardRecord{ID: id}
		m.shards[id] = s
	}
	s.Address = address
	s.HeartbeatAt = time.Now()
	return nil
}

// Heartbeat обновляет нагрузку.
func (r *MockShards) Heartbeat(_ context.Context, id string, load int) error {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shards[id]
	if !ok {
		return fmt.Errorf("heartbeat of shard %s: %w", id, db.ErrShardNotFound)
	}
	s.Load = load
	s.HeartbeatAt = time.Now()
	return nil
}

// ListAlive возвращает живые shards.
func (r *MockShards) ListAlive(_ context.Context, since time.Time) ([]db.ShardRecord, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aliveLocked(since), nil
}

func (m *MockDB) aliveLocked(since time.Time) []db.ShardRecord {
	var out []db.ShardRecord
	for _, s := range m.shards {
		if s.HeartbeatAt.After(since) {
			out = append(out, *s)
		}
	}
	slices.SortFunc(out, func(a, b db.ShardRecord) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// AssignSpace назначает space на shard: липко, иначе наименее занятый живой.
func (r *MockShards) AssignSpace(_ context.Context, spaceID model.SpaceID, aliveSince time.Time) (db.ShardRecord, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	sp, ok := m.spaces[spaceID]
	if !ok {
		return db.ShardRecord{}, fmt.Errorf("assigning space %s: %w", spaceID, db.ErrSpaceNotFound)
	}
	alive := m.aliveLocked(aliveSince)
	if sp.rec.ShardID != nil {
		for _, s := range alive {
			if s.ID == *sp.rec.ShardID {
				return s, nil
			}
		}
	}
	if len(alive) == 0 {
		return db.ShardRecord{}, fmt.Errorf("assigning space %s: %w", spaceID, db.ErrShardNotFound)
	}
	count := func(id string) int {
		n := 0
		for _, other := range m.spaces {
			if other.rec.ShardID != nil && *other.rec.ShardID == id {
				n++
			}
		}
		return n
	}
	best := alive[0]
	for _, s := range alive[1:] {
		if cs, cb := count(s.ID), count(best.ID); cs < cb || (cs == cb && s.Load < best.Load) {
			best = s
		}
	}
	id := best.ID
	sp.rec.ShardID = &id
	return best, nil
}

// MockTickets — TicketRepository в памяти.
type MockTickets MockDB

// Issue сохраняет билет.
func (r *MockTickets) Issue(_ context.Context, t db.JoinTicket) error {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.TokenHash] = t
	return nil
}

// Consume гасит билет.
func (r *MockTickets) Consume(_ context.Context, tokenHash string, character model.CharacterID, space model.SpaceID, shardID string) error {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[tokenHash]
	if !ok || t.CharacterID != character || t.SpaceID != space || t.ShardID != shardID || !time.Now().Before(t.ExpiresAt) {
		return fmt.Errorf("consuming ticket of %s: %w", character, db.ErrTicketInvalid)
	}
	delete(m.tickets, tokenHash)
	return nil
}

// PurgeExpired удаляет просроченные билеты.
func (r *MockTickets) PurgeExpired(_ context.Context) (int64, error) {
	m := (*MockDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	now := time.Now()
	for k, t := range m.tickets {
		if !now.Before(t.ExpiresAt) {
			delete(m.tickets, k)
			n++
		}
	}
	return n, nil
}

// TicketCount returns the number of outstanding tickets.
func (m *MockDB) TicketCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

// IssueTicket выдаёт билет с токеном token на минуту.
func (m *MockDB) IssueTicket(character model.CharacterID, space model.SpaceID, shardID, token string) {
	_ = m.Tickets().Issue(context.Background(), db.JoinTicket{
		TokenHash:   db.HashToken(token),
		CharacterID: character,
		SpaceID:     space,
		ShardID:     shardID,
		ExpiresAt:   time.Now().Add(time.Minute),
	})
}

// SaveCount returns how many times the character appearance was saved.
func (m *MockDB) SaveCount(id model.CharacterID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Saves[id]
}

// SetFailSaves включает или выключает ошибки SaveAppearance.
func (m *MockDB) SetFailSaves(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailSaves = fail
}
