package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeebo/blake3"

	"github.com/udisondev/dressroom/internal/model"
)

var (
	ErrAccountExists     = errors.New("account already exists")
	ErrCharacterExists   = errors.New("character name taken")
	ErrCharacterNotFound = errors.New("character not found")
	ErrSpaceExists       = errors.New("space already exists")
	ErrSpaceNotFound     = errors.New("space not found")
	ErrShardNotFound     = errors.New("no alive shard")
	ErrTicketInvalid     = errors.New("join ticket invalid or expired")
)

// DB wraps a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// HashToken хеширует токен входа (blake3, hex). В БД хранится только хеш.
func HashToken(token string) string {
	sum := blake3.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:])
}

// characterKey переводит "c123" в первичный ключ 123.
func characterKey(id model.CharacterID) (int64, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("%w: malformed id %q", ErrCharacterNotFound, id)
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(string(id), "c"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed id %q", ErrCharacterNotFound, id)
	}
	return n, nil
}

func characterID(key int64) model.CharacterID {
	return model.CharacterID("c" + strconv.FormatInt(key, 10))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
