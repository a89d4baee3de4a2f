// Package store provides the persistent key-value slot and the user
// repository, with in-memory, SQLite, Postgres and Redis backends.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by all backends.
var (
	ErrNoValue      = errors.New("no value stored under key")
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// KV is a string-keyed slot store. Set overwrites the full value
// unconditionally; there is no delta or append operation.
type KV interface {
	// Get returns the value stored under key. Returns ErrNoValue when the
	// slot has never been written.
	Get(ctx context.Context, key string) (string, error)
	// Set overwrites the slot with value.
	Set(ctx context.Context, key, value string) error
}

// User is a stored credential record.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Verified     bool
	Disabled     bool
	CreatedAt    time.Time
}

// Users is the credential repository consumed by the identity provider.
type Users interface {
	// CreateUser inserts a new user. Returns ErrEmailTaken when the email
	// is already registered.
	CreateUser(ctx context.Context, email, passwordHash string) (User, error)
	// UserByEmail returns the user registered under email, or
	// ErrUserNotFound.
	UserByEmail(ctx context.Context, email string) (User, error)
	// UserByID returns the user with the given id, or ErrUserNotFound.
	UserByID(ctx context.Context, id string) (User, error)
}
