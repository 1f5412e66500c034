package model

import "time"

// Account represents a player account stored in the database.
type Account struct {
	ID           int64
	Login        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	LastActive   *time.Time
}
