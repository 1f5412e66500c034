package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/dressroom/internal/bundlecodec"
	"github.com/udisondev/dressroom/internal/model"
)

// SpaceRecord — space без инвентаря комнаты.
type SpaceRecord struct {
	ID             model.SpaceID `json:"id"`
	Name           string        `json:"name"`
	OwnerAccountID *int64        `json:"ownerAccountId,omitempty"`
	ShardID        *string       `json:"shardId,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// SpaceRepository управляет spaces и инвентарём их комнат.
type SpaceRepository struct {
	pool *pgxpool.Pool
}

// NewSpaceRepository создаёт новый SpaceRepository.
func NewSpaceRepository(pool *pgxpool.Pool) *SpaceRepository {
	return &SpaceRepository{pool: pool}
}

// Create создаёт space с начальным инвентарём комнаты.
// Возвращает ErrSpaceExists если id занят.
func (r *SpaceRepository) Create(ctx context.Context, id model.SpaceID, name string, owner *int64, room model.RoomInventoryBundle) error {
	enc, err := bundlecodec.EncodeWithDigest(room)
	if err != nil {
		return fmt.Errorf("encoding room of space %s: %w", id, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO spaces (space_id, name, owner_account_id, room, room_digest)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, name, owner, enc.Blob, enc.Digest,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creating space %s: %w", id, ErrSpaceExists)
		}
		return fmt.Errorf("creating space %s: %w", id, err)
	}
	return nil
}

// Get возвращает space по id.
// Возвращает nil, nil если space не найден.
func (r *SpaceRepository) Get(ctx context.Context, id model.SpaceID) (*SpaceRecord, error) {
	var s SpaceRecord
	err := r.pool.QueryRow(ctx,
		`SELECT space_id, name, owner_account_id, shard_id, created_at FROM spaces WHERE space_id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.OwnerAccountID, &s.ShardID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying space %s: %w", id, err)
	}
	return &s, nil
}

// List возвращает все spaces по имени.
func (r *SpaceRepository) List(ctx context.Context) ([]SpaceRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT space_id, name, owner_account_id, shard_id, created_at FROM spaces ORDER BY name, space_id`)
	if err != nil {
		return nil, fmt.Errorf("listing spaces: %w", err)
	}
	defer rows.Close()

	var out []SpaceRecord
	for rows.Next() {
		var s SpaceRecord
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerAccountID, &s.ShardID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning space row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating space rows: %w", err)
	}
	return out, nil
}

// LoadRoomInventory загружает инвентарь комнаты.
//
// Returns:
//   - string: digest сохранённого blob
//   - error: ErrSpaceNotFound если space не найден
func (r *SpaceRepository) LoadRoomInventory(ctx context.Context, id model.SpaceID) (model.RoomInventoryBundle, string, error) {
	var blob []byte
	var digest string
	err := r.pool.QueryRow(ctx,
		`SELECT room, room_digest FROM spaces WHERE space_id = $1`, id,
	).Scan(&blob, &digest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RoomInventoryBundle{}, "", fmt.Errorf("loading room of %s: %w", id, ErrSpaceNotFound)
		}
		return model.RoomInventoryBundle{}, "", fmt.Errorf("loading room of %s: %w", id, err)
	}
	var room model.RoomInventoryBundle
	if err := bundlecodec.Decode(blob, &room); err != nil {
		return model.RoomInventoryBundle{}, "", fmt.Errorf("decoding room of %s: %w", id, err)
	}
	return room, digest, nil
}

// SaveRoomInventory сохраняет закодированный инвентарь комнаты; запись с тем же
// digest пропускается.
func (r *SpaceRepository) SaveRoomInventory(ctx context.Context, id model.SpaceID, enc bundlecodec.Encoded) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE spaces SET room = $2, room_digest = $3, updated_at = now()
		 WHERE space_id = $1 AND room_digest <> $3`,
		id, enc.Blob, enc.Digest,
	)
	if err != nil {
		return false, fmt.Errorf("saving room of %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
