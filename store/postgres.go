package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    verified      BOOLEAN NOT NULL DEFAULT FALSE,
    disabled      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL
);`

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// Postgres backs the user repository. The key-value slot is served by
// Redis in this pairing, see the redis backend.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the database at dsn and ensures the schema
// exists.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := p.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, verified, disabled, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		u.ID, u.Email, u.PasswordHash, u.Verified, u.Disabled, u.CreatedAt)
	if err != nil {
		var pe *pq.Error
		if errors.As(err, &pe) && string(pe.Code) == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return u, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (User, error) {
	return p.scanUser(p.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, verified, disabled, created_at FROM users WHERE lower(email) = lower($1)", email))
}

func (p *Postgres) UserByID(ctx context.Context, id string) (User, error) {
	return p.scanUser(p.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, verified, disabled, created_at FROM users WHERE id = $1", id))
}

func (p *Postgres) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Verified, &u.Disabled, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
