package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// kvUsers is what every full backend must provide.
type kvUsers interface {
	KV
	Users
}

func testKV(t *testing.T, s KV) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "todos"); !errors.Is(err, ErrNoValue) {
		t.Errorf("Get on empty slot: err = %v, want ErrNoValue", err)
	}

	if err := s.Set(ctx, "todos", `["a"]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := s.Get(ctx, "todos"); err != nil || got != `["a"]` {
		t.Errorf("Get = %q, %v", got, err)
	}

	// Set overwrites unconditionally.
	if err := s.Set(ctx, "todos", `["a","b"]`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got, _ := s.Get(ctx, "todos"); got != `["a","b"]` {
		t.Errorf("Get after overwrite = %q", got)
	}
}

func testUsers(t *testing.T, s Users) {
	t.Helper()
	ctx := context.Background()

	// Unique per run so the test can target a shared database.
	email := fmt.Sprintf("alice+%d@example.com", time.Now().UnixNano())

	u, err := s.CreateUser(ctx, email, "hash1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Error("expected a generated user id")
	}

	if _, err := s.CreateUser(ctx, email, "hash2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate CreateUser: err = %v, want ErrEmailTaken", err)
	}

	got, err := s.UserByEmail(ctx, email)
	if err != nil || got.ID != u.ID {
		t.Errorf("UserByEmail = %+v, %v", got, err)
	}

	got, err = s.UserByID(ctx, u.ID)
	if err != nil || got.Email != email {
		t.Errorf("UserByID = %+v, %v", got, err)
	}

	if _, err := s.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UserByEmail missing: err = %v, want ErrUserNotFound", err)
	}
	if _, err := s.UserByID(ctx, "missing-id"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UserByID missing: err = %v, want ErrUserNotFound", err)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	testKV(t, m)
	testUsers(t, m)
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenSQLite(path)
	if err != nil {
		// The sqlite3 driver needs cgo; skip where it is unavailable.
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	testKV(t, db)
	testUsers(t, db)
}

func TestSQLitePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if err := db.Set(ctx, "todos", `["Buy milk"]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	db.Close()

	db2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	if got, err := db2.Get(ctx, "todos"); err != nil || got != `["Buy milk"]` {
		t.Errorf("Get after reopen = %q, %v", got, err)
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TASKVAULT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TASKVAULT_TEST_REDIS_ADDR not set, skipping Redis tests")
	}
	r, err := OpenRedis(addr)
	if err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	testKV(t, r)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TASKVAULT_TEST_DSN")
	if dsn == "" {
		t.Skip("TASKVAULT_TEST_DSN not set, skipping Postgres tests")
	}
	pg, err := OpenPostgres(dsn)
	if err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}
	t.Cleanup(func() { pg.Close() })

	testUsers(t, pg)
}

// Both full backends satisfy the combined surface.
var (
	_ kvUsers = (*Memory)(nil)
	_ kvUsers = (*SQLite)(nil)
	_ Users   = (*Postgres)(nil)
	_ KV      = (*Redis)(nil)
)
