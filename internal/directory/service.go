// Package directory — точка входа клиентов: аккаунты, персонажи, список spaces
// и выдача билетов входа на shard, который обслуживает space.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/dressroom/internal/config"
	"github.com/udisondev/dressroom/internal/db"
	"github.com/udisondev/dressroom/internal/model"
)

var (
	ErrInvalidLogin       = errors.New("login must be 3-32 lowercase letters, digits or underscores")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrInvalidName        = errors.New("invalid name")
	ErrTooManyCharacters  = errors.New("character limit reached")
	ErrNotOwner           = errors.New("character belongs to another account")
	ErrNoShard            = errors.New("no shard available")
)

var (
	loginPattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)
	namePattern  = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} _'-]{0,31}$`)
)

const minPasswordLength = 6

// AccountStore — хранилище аккаунтов.
type AccountStore interface {
	Create(ctx context.Context, login, passwordHash string, roles []string) (*model.Account, error)
	GetByLogin(ctx context.Context, login string) (*model.Account, error)
	Touch(ctx context.Context, accountID int64) error
}

// CharacterStore — хранилище персонажей.
type CharacterStore interface {
	Create(ctx context.Context, accountID int64, name string, appearance model.CharacterAppearanceBundle) (model.CharacterID, error)
	Get(ctx context.Context, id model.CharacterID) (*db.CharacterRecord, error)
	ListByAccount(ctx context.Context, accountID int64) ([]db.CharacterSummary, error)
	CountByAccount(ctx context.Context, accountID int64) (int, error)
}

// SpaceStore — хранилище spaces.
type SpaceStore interface {
	Create(ctx context.Context, id model.SpaceID, name string, owner *int64, room model.RoomInventoryBundle) error
	Get(ctx context.Context, id model.SpaceID) (*db.SpaceRecord, error)
	List(ctx context.Context) ([]db.SpaceRecord, error)
}

// ShardStore назначает spaces на живые shards.
type ShardStore interface {
	ListAlive(ctx context.Context, since time.Time) ([]db.ShardRecord, error)
	AssignSpace(ctx context.Context, spaceID model.SpaceID, aliveSince time.Time) (db.ShardRecord, error)
}

// TicketStore хранит билеты входа.
type TicketStore interface {
	Issue(ctx context.Context, t db.JoinTicket) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// Stores — зависимости Service.
type Stores struct {
	Accounts   AccountStore
	Characters CharacterStore
	Spaces     SpaceStore
	Shards     ShardStore
	Tickets    TicketStore
}

// Service реализует операции directory.
type Service struct {
	cfg      config.Directory
	assets   *model.AssetManager
	stores   Stores
	sessions *SessionManager
}

// NewService создаёт Service. assets — каталог для внешности новых персонажей.
func NewService(cfg config.Directory, assets *model.AssetManager, stores Stores) *Service {
	return &Service{
		cfg:      cfg,
		assets:   assets,
		stores:   stores,
		sessions: NewSessionManager(),
	}
}

// Sessions returns the session manager.
func (s *Service) Sessions() *SessionManager { return s.sessions }

// Register создаёт аккаунт.
//
// Returns:
//   - error: ErrInvalidLogin, ErrWeakPassword, db.ErrAccountExists
func (s *Service) Register(ctx context.Context, login, password string) (*model.Account, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if !loginPattern.MatchString(login) {
		return nil, ErrInvalidLogin
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	acc, err := s.stores.Accounts.Create(ctx, login, string(hash), nil)
	if err != nil {
		return nil, err
	}
	slog.Info("account registered", "account", acc.Login, "accountID", acc.ID)
	return acc, nil
}

// Login проверяет пароль и открывает сессию.
func (s *Service) Login(ctx context.Context, login, password string) (string, error) {
	acc, err := s.stores.Accounts.GetByLogin(ctx, strings.ToLower(strings.TrimSpace(login)))
	if err != nil {
		return "", fmt.Errorf("loading account: %w", err)
	}
	if acc == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	if err := s.stores.Accounts.Touch(ctx, acc.ID); err != nil {
		slog.Warn("updating last_active failed", "accountID", acc.ID, "error", err)
	}
	return s.sessions.Create(acc.ID, acc.Login, acc.Roles), nil
}

// Authenticate возвращает сессию по bearer-токену.
func (s *Service) Authenticate(token string) (*SessionInfo, bool) {
	return s.sessions.Lookup(token, s.cfg.SessionTTL)
}

// Logout закрывает сессию.
func (s *Service) Logout(token string) {
	s.sessions.Remove(token)
}

// CreateCharacter создаёт персонажа с внешностью по умолчанию: по одной
// части тела на каждый обязательный bodypart каталога.
//
// Returns:
//   - error: ErrInvalidName, ErrTooManyCharacters, db.ErrCharacterExists
func (s *Service) CreateCharacter(ctx context.Context, sess *SessionInfo, name string) (model.CharacterID, error) {
	name = strings.TrimSpace(name)
	if !namePattern.MatchString(name) {
		return "", ErrInvalidName
	}
	n, err := s.stores.Characters.CountByAccount(ctx, sess.AccountID)
	if err != nil {
		return "", fmt.Errorf("counting characters: %w", err)
	}
	if n >= s.cfg.MaxCharactersPerAccount {
		return "", ErrTooManyCharacters
	}

	appearance := s.defaultAppearance()
	id, err := s.stores.Characters.Create(ctx, sess.AccountID, name, appearance)
	if err != nil {
		return "", err
	}
	slog.Info("character created", "account", sess.Login, "character", id, "name", name, "items", len(appearance.Items))
	return id, nil
}

// defaultAppearance — внешность нового персонажа. Предметы получают свежие id.
func (s *Service) defaultAppearance() model.CharacterAppearanceBundle {
	bundle := model.LoadCharacterStateFromBundle(s.assets, "c1", nil, nil).ExportToBundle()
	for i := range bundle.Items {
		bundle.Items[i].ID = model.ItemID("i/" + uuid.NewString())
	}
	return bundle
}

// ListCharacters returns the characters of the session account.
func (s *Service) ListCharacters(ctx context.Context, sess *SessionInfo) ([]db.CharacterSummary, error) {
	list, err := s.stores.Characters.ListByAccount(ctx, sess.AccountID)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	return list, nil
}

// CreateSpace создаёт space с пустой комнатой, владелец — аккаунт сессии.
func (s *Service) CreateSpace(ctx context.Context, sess *SessionInfo, name string) (*db.SpaceRecord, error) {
	name = strings.TrimSpace(name)
	if !namePattern.MatchString(name) {
		return nil, ErrInvalidName
	}
	id := model.SpaceID("s-" + uuid.NewString())
	owner := sess.AccountID
	room := model.NewRoomState(s.assets).ExportToBundle()
	if err := s.stores.Spaces.Create(ctx, id, name, &owner, room); err != nil {
		return nil, err
	}
	slog.Info("space created", "account", sess.Login, "spaceID", id, "name", name)

	rec, err := s.stores.Spaces.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading created space: %w", err)
	}
	return rec, nil
}

// ListSpaces returns all spaces.
func (s *Service) ListSpaces(ctx context.Context) ([]db.SpaceRecord, error) {
	list, err := s.stores.Spaces.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing spaces: %w", err)
	}
	return list, nil
}

// JoinGrant — куда и с каким токеном подключаться к space.
type JoinGrant struct {
	ShardID     string            `json:"shardId"`
	Address     string            `json:"address"`
	CharacterID model.CharacterID `json:"characterId"`
	SpaceID     model.SpaceID     `json:"spaceId"`
	Token       string            `json:"token"`
	ExpiresAt   time.Time         `json:"expiresAt"`
}

// JoinSpace назначает space на shard и выдаёт одноразовый билет входа.
// В БД хранится только хеш токена.
//
// Returns:
//   - error: db.ErrCharacterNotFound, ErrNotOwner, db.ErrSpaceNotFound, ErrNoShard
func (s *Service) JoinSpace(ctx context.Context, sess *SessionInfo, character model.CharacterID, space model.SpaceID) (*JoinGrant, error) {
	rec, err := s.stores.Characters.Get(ctx, character)
	if err != nil {
		return nil, fmt.Errorf("loading character: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%s: %w", character, db.ErrCharacterNotFound)
	}
	if rec.AccountID != sess.AccountID {
		return nil, fmt.Errorf("%s: %w", character, ErrNotOwner)
	}

	shard, err := s.stores.Shards.AssignSpace(ctx, space, time.Now().Add(-s.cfg.ShardHeartbeatTimeout))
	if err != nil {
		if errors.Is(err, db.ErrShardNotFound) {
			return nil, fmt.Errorf("%s: %w", space, ErrNoShard)
		}
		return nil, err
	}

	token := newToken()
	ticket := db.JoinTicket{
		TokenHash:   db.HashToken(token),
		CharacterID: character,
		SpaceID:     space,
		ShardID:     shard.ID,
		ExpiresAt:   time.Now().Add(s.cfg.JoinTicketTTL),
	}
	if err := s.stores.Tickets.Issue(ctx, ticket); err != nil {
		return nil, fmt.Errorf("issuing join ticket: %w", err)
	}
	slog.Debug("join ticket issued", "character", character, "spaceID", space, "shardID", shard.ID)

	return &JoinGrant{
		ShardID:     shard.ID,
		Address:     shard.Address,
		CharacterID: character,
		SpaceID:     space,
		Token:       token,
		ExpiresAt:   ticket.ExpiresAt,
	}, nil
}

// Shards returns the shards alive within the heartbeat timeout.
func (s *Service) Shards(ctx context.Context) ([]db.ShardRecord, error) {
	list, err := s.stores.Shards.ListAlive(ctx, time.Now().Add(-s.cfg.ShardHeartbeatTimeout))
	if err != nil {
		return nil, fmt.Errorf("listing shards: %w", err)
	}
	return list, nil
}

// RunMaintenance периодически удаляет просроченные билеты и сессии до отмены ctx.
func (s *Service) RunMaintenance(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.stores.Tickets.PurgeExpired(ctx)
			if err != nil && ctx.Err() == nil {
				slog.Warn("purging join tickets failed", "error", err)
			} else if n > 0 {
				slog.Debug("join tickets purged", "count", n)
			}
			s.sessions.CleanExpired(s.cfg.SessionTTL)
		}
	}
}
