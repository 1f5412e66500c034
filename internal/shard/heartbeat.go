package shard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/dressroom/internal/db"
)

const defaultHeartbeatInterval = 10 * time.Second

// ShardRegistry — реестр shards, по которому directory выбирает shard для space.
type ShardRegistry interface {
	Upsert(ctx context.Context, id, address string) error
	Heartbeat(ctx context.Context, id string, load int) error
}

// RunHeartbeat регистрирует shard и сообщает его нагрузку до отмены ctx.
// Ошибки heartbeat логируются; если запись shard пропала, shard регистрируется заново.
func RunHeartbeat(ctx context.Context, registry ShardRegistry, id, address string, interval time.Duration, load func() int) error {
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	if err := registry.Upsert(ctx, id, address); err != nil {
		return fmt.Errorf("registering shard: %w", err)
	}
	slog.Info("shard registered", "shardID", id, "address", address)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := registry.Heartbeat(ctx, id, load())
			switch {
			case err == nil:
			case errors.Is(err, db.ErrShardNotFound):
				if err := registry.Upsert(ctx, id, address); err != nil {
					slog.Warn("re-registering shard failed", "shardID", id, "error", err)
				}
			case ctx.Err() != nil:
				return nil
			default:
				slog.Warn("heartbeat failed", "shardID", id, "error", err)
			}
		}
	}
}
