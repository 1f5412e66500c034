package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/dressroom/internal/model"
)

// AccountRepository управляет аккаунтами в БД.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository создаёт новый AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create создаёт аккаунт. Логин приводится к нижнему регистру.
// Возвращает ErrAccountExists если логин занят.
func (r *AccountRepository) Create(ctx context.Context, login, passwordHash string, roles []string) (*model.Account, error) {
	login = strings.ToLower(login)
	if roles == nil {
		roles = []string{}
	}
	acc := model.Account{Login: login, PasswordHash: passwordHash, Roles: roles}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (login, password_hash, roles)
		 VALUES ($1, $2, $3)
		 RETURNING account_id, created_at`,
		login, passwordHash, roles,
	).Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("creating account %q: %w", login, ErrAccountExists)
		}
		return nil, fmt.Errorf("creating account %q: %w", login, err)
	}
	return &acc, nil
}

// GetByLogin возвращает аккаунт по логину.
// Возвращает nil, nil если аккаунт не найден.
func (r *AccountRepository) GetByLogin(ctx context.Context, login string) (*model.Account, error) {
	login = strings.ToLower(login)
	var acc model.Account
	err := r.pool.QueryRow(ctx,
		`SELECT account_id, login, password_hash, roles, created_at, last_active
		 FROM accounts WHERE login = $1`, login,
	).Scan(&acc.ID, &acc.Login, &acc.PasswordHash, &acc.Roles, &acc.CreatedAt, &acc.LastActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account %q: %w", login, err)
	}
	return &acc, nil
}

// Touch обновляет last_active после успешного входа.
func (r *AccountRepository) Touch(ctx context.Context, accountID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET last_active = $1 WHERE account_id = $2`,
		time.Now(), accountID,
	)
	if err != nil {
		return fmt.Errorf("updating last active for account %d: %w", accountID, err)
	}
	return nil
}
