package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/dressroom/internal/model"
)

// ShardRecord — зарегистрированный shard.
type ShardRecord struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	Load        int       `json:"load"`
	HeartbeatAt time.Time `json:"heartbeatAt"`
}

// ShardRepository — реестр shards и назначение spaces на них.
type ShardRepository struct {
	pool *pgxpool.Pool
}

// NewShardRepository создаёт новый ShardRepository.
func NewShardRepository(pool *pgxpool.Pool) *ShardRepository {
	return &ShardRepository{pool: pool}
}

// Upsert регистрирует shard или обновляет его адрес.
func (r *ShardRepository) Upsert(ctx context.Context, id, address string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO shards (shard_id, address, load, heartbeat_at)
		 VALUES ($1, $2, 0, now())
		 ON CONFLICT (shard_id) DO UPDATE SET address = EXCLUDED.address, heartbeat_at = now()`,
		id, address,
	)
	if err != nil {
		return fmt.Errorf("registering shard %s: %w", id, err)
	}
	return nil
}

// Heartbeat обновляет время жизни и нагрузку (число подключённых персонажей).
func (r *ShardRepository) Heartbeat(ctx context.Context, id string, load int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE shards SET load = $2, heartbeat_at = now() WHERE shard_id = $1`, id, load)
	if err != nil {
		return fmt.Errorf("heartbeat of shard %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("heartbeat of shard %s: %w", id, ErrShardNotFound)
	}
	return nil
}

// ListAlive возвращает shards с heartbeat позже since.
func (r *ShardRepository) ListAlive(ctx context.Context, since time.Time) ([]ShardRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT shard_id, address, load, heartbeat_at FROM shards
		 WHERE heartbeat_at > $1 ORDER BY shard_id`, since)
	if err != nil {
		return nil, fmt.Errorf("listing alive shards: %w", err)
	}
	defer rows.Close()

	var out []ShardRecord
	for rows.Next() {
		var s ShardRecord
		if err := rows.Scan(&s.ID, &s.Address, &s.Load, &s.HeartbeatAt); err != nil {
			return nil, fmt.Errorf("scanning shard row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shard rows: %w", err)
	}
	return out, nil
}

// AssignSpace возвращает shard, на котором живёт space. Назначение липкое:
// пока назначенный shard жив, space остаётся на нём. Иначе выбирается живой
// shard с наименьшим числом spaces, затем с наименьшей нагрузкой.
//
// Returns:
//   - error: ErrSpaceNotFound, ErrShardNotFound если живых shards нет
func (r *ShardRepository) AssignSpace(ctx context.Context, spaceID model.SpaceID, aliveSince time.Time) (ShardRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ShardRecord{}, fmt.Errorf("begin transaction for space %s: %w", spaceID, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "spaceID", spaceID, "error", err)
		}
	}()

	var current *string
	err = tx.QueryRow(ctx, `SELECT shard_id FROM spaces WHERE space_id = $1 FOR UPDATE`, spaceID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ShardRecord{}, fmt.Errorf("assigning space %s: %w", spaceID, ErrSpaceNotFound)
		}
		return ShardRecord{}, fmt.Errorf("locking space %s: %w", spaceID, err)
	}

	var s ShardRecord
	if current != nil {
		err = tx.QueryRow(ctx,
			`SELECT shard_id, address, load, heartbeat_at FROM shards
			 WHERE shard_id = $1 AND heartbeat_at > $2`, *current, aliveSince,
		).Scan(&s.ID, &s.Address, &s.Load, &s.HeartbeatAt)
		switch {
		case err == nil:
			if err := tx.Commit(ctx); err != nil {
				return ShardRecord{}, fmt.Errorf("commit assignment of space %s: %w", spaceID, err)
			}
			return s, nil
		case !errors.Is(err, pgx.ErrNoRows):
			return ShardRecord{}, fmt.Errorf("querying shard %s: %w", *current, err)
		}
		slog.Warn("assigned shard is dead, reassigning", "spaceID", spaceID, "shardID", *current)
	}

	err = tx.QueryRow(ctx,
		`SELECT s.shard_id, s.address, s.load, s.heartbeat_at
		 FROM shards s LEFT JOIN spaces sp ON sp.shard_id = s.shard_id
		 WHERE s.heartbeat_at > $1
		 GROUP BY s.shard_id
		 ORDER BY count(sp.space_id), s.load, s.shard_id
		 LIMIT 1`, aliveSince,
	).Scan(&s.ID, &s.Address, &s.Load, &s.HeartbeatAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ShardRecord{}, fmt.Errorf("assigning space %s: %w", spaceID, ErrShardNotFound)
		}
		return ShardRecord{}, fmt.Errorf("picking shard for space %s: %w", spaceID, err)
	}

	if _, err := tx.Exec(ctx, `UPDATE spaces SET shard_id = $2 WHERE space_id = $1`, spaceID, s.ID); err != nil {
		return ShardRecord{}, fmt.Errorf("assigning space %s to %s: %w", spaceID, s.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return ShardRecord{}, fmt.Errorf("commit assignment of space %s: %w", spaceID, err)
	}
	slog.Info("space assigned", "spaceID", spaceID, "shardID", s.ID)
	return s, nil
}
