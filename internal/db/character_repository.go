package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/dressroom/internal/bundlecodec"
	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
)

// CharacterRecord — персонаж как он хранится в БД.
type CharacterRecord struct {
	ID               model.CharacterID
	AccountID        int64
	Name             string
	Safemode         bool
	Roles            []string // роли аккаунта
	Permissions      restriction.PermissionSet
	Appearance       model.CharacterAppearanceBundle
	AppearanceDigest string
}

// Info returns the restriction-relevant part of the record.
func (c *CharacterRecord) Info() restriction.CharacterInfo {
	return restriction.CharacterInfo{Safemode: c.Safemode, Roles: c.Roles, Permissions: c.Permissions}
}

// CharacterSummary — строка списка персонажей аккаунта.
type CharacterSummary struct {
	ID   model.CharacterID `json:"id"`
	Name string            `json:"name"`
}

// CharacterRepository управляет персонажами в БД.
type CharacterRepository struct {
	pool *pgxpool.Pool
}

// NewCharacterRepository создаёт новый CharacterRepository.
func NewCharacterRepository(pool *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{pool: pool}
}

// Create создаёт персонажа с начальной внешностью и настройками разрешений по умолчанию.
//
// Returns:
//   - model.CharacterID: "c<character_id>"
//   - error: ErrCharacterExists если имя занято
func (r *CharacterRepository) Create(ctx context.Context, accountID int64, name string, appearance model.CharacterAppearanceBundle) (model.CharacterID, error) {
	enc, err := bundlecodec.EncodeWithDigest(appearance)
	if err != nil {
		return "", fmt.Errorf("encoding appearance of %q: %w", name, err)
	}

	var key int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO characters (account_id, name, permissions, appearance, appearance_digest)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING character_id`,
		accountID, name, restriction.DefaultPermissions(), enc.Blob, enc.Digest,
	).Scan(&key)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("creating character %q: %w", name, ErrCharacterExists)
		}
		return "", fmt.Errorf("creating character %q: %w", name, err)
	}
	return characterID(key), nil
}

// Get загружает персонажа вместе с ролями аккаунта.
// Возвращает nil, nil если персонаж не найден.
func (r *CharacterRepository) Get(ctx context.Context, id model.CharacterID) (*CharacterRecord, error) {
	key, err := characterKey(id)
	if err != nil {
		return nil, nil
	}

	rec := CharacterRecord{ID: id}
	var blob []byte
	err = r.pool.QueryRow(ctx,
		`SELECT c.account_id, c.name, c.safemode, a.roles, c.permissions, c.appearance, c.appearance_digest
		 FROM characters c JOIN accounts a ON a.account_id = c.account_id
		 WHERE c.character_id = $1`, key,
	).Scan(&rec.AccountID, &rec.Name, &rec.Safemode, &rec.Roles, &rec.Permissions, &blob, &rec.AppearanceDigest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying character %s: %w", id, err)
	}
	if err := bundlecodec.Decode(blob, &rec.Appearance); err != nil {
		return nil, fmt.Errorf("decoding appearance of %s: %w", id, err)
	}
	return &rec, nil
}

// ListByAccount возвращает персонажей аккаунта в порядке создания.
func (r *CharacterRepository) ListByAccount(ctx context.Context, accountID int64) ([]CharacterSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT character_id, name FROM characters WHERE account_id = $1 ORDER BY character_id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing characters of account %d: %w", accountID, err)
	}
	defer rows.Close()

	var out []CharacterSummary
	for rows.Next() {
		var key int64
		var s CharacterSummary
		if err := rows.Scan(&key, &s.Name); err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		s.ID = characterID(key)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating character rows: %w", err)
	}
	return out, nil
}

// CountByAccount returns how many characters the account owns.
func (r *CharacterRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM characters WHERE account_id = $1`, accountID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting characters of account %d: %w", accountID, err)
	}
	return n, nil
}

// SaveAppearance сохраняет закодированную внешность. Запись с тем же digest
// пропускается на стороне БД.
//
// Returns:
//   - bool: true если строка изменилась
func (r *CharacterRepository) SaveAppearance(ctx context.Context, id model.CharacterID, enc bundlecodec.Encoded) (bool, error) {
	key, err := characterKey(id)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE characters SET appearance = $2, appearance_digest = $3, updated_at = now()
		 WHERE character_id = $1 AND appearance_digest <> $3`,
		key, enc.Blob, enc.Digest,
	)
	if err != nil {
		return false, fmt.Errorf("saving appearance of %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetPermissions заменяет настройки разрешений персонажа.
func (r *CharacterRepository) SetPermissions(ctx context.Context, id model.CharacterID, perms restriction.PermissionSet) error {
	return r.update(ctx, id, `UPDATE characters SET permissions = $2, updated_at = now() WHERE character_id = $1`, perms)
}

// SetSafemode включает или выключает safemode персонажа.
func (r *CharacterRepository) SetSafemode(ctx context.Context, id model.CharacterID, on bool) error {
	return r.update(ctx, id, `UPDATE characters SET safemode = $2, updated_at = now() WHERE character_id = $1`, on)
}

func (r *CharacterRepository) update(ctx context.Context, id model.CharacterID, query string, value any) error {
	key, err := characterKey(id)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("updating character %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating character %s: %w", id, ErrCharacterNotFound)
	}
	return nil
}
