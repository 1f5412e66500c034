package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/dressroom/internal/model"
)

// JoinTicket — одноразовое разрешение персонажу войти в space на конкретном shard.
type JoinTicket struct {
	TokenHash   string
	CharacterID model.CharacterID
	SpaceID     model.SpaceID
	ShardID     string
	ExpiresAt   time.Time
}

// TicketRepository хранит билеты входа, выданные directory и погашаемые shard.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository создаёт новый TicketRepository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// Issue сохраняет билет.
func (r *TicketRepository) Issue(ctx context.Context, t JoinTicket) error {
	key, err := characterKey(t.CharacterID)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO join_tickets (token_hash, character_id, space_id, shard_id, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.TokenHash, key, t.SpaceID, t.ShardID, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("issuing ticket for %s: %w", t.CharacterID, err)
	}
	return nil
}

// Consume атомарно гасит билет. Билет годен один раз, только для своих
// персонажа, space и shard и только до expires_at.
// Возвращает ErrTicketInvalid во всех остальных случаях.
func (r *TicketRepository) Consume(ctx context.Context, tokenHash string, character model.CharacterID, space model.SpaceID, shardID string) error {
	key, err := characterKey(character)
	if err != nil {
		return fmt.Errorf("consuming ticket: %w", ErrTicketInvalid)
	}
	var one int
	err = r.pool.QueryRow(ctx,
		`DELETE FROM join_tickets
		 WHERE token_hash = $1 AND character_id = $2 AND space_id = $3 AND shard_id = $4 AND expires_at > now()
		 RETURNING 1`,
		tokenHash, key, space, shardID,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("consuming ticket of %s: %w", character, ErrTicketInvalid)
		}
		return fmt.Errorf("consuming ticket of %s: %w", character, err)
	}
	return nil
}

// PurgeExpired удаляет просроченные билеты и возвращает их число.
func (r *TicketRepository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM join_tickets WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purging expired tickets: %w", err)
	}
	return tag.RowsAffected(), nil
}
