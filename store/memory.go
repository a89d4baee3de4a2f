package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process backend implementing both KV and Users. It backs
// tests and throwaway runs; nothing survives the process.
type Memory struct {
	mu    sync.Mutex
	slots map[string]string
	users map[string]User // keyed by lower-cased email
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		slots: make(map[string]string),
		users: make(map[string]User),
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.slots[key]
	if !ok {
		return "", ErrNoValue
	}
	return val, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = value
	return nil
}

func (m *Memory) CreateUser(_ context.Context, email, passwordHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := strings.ToLower(email)
	if _, ok := m.users[k]; ok {
		return User{}, ErrEmailTaken
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[k] = u
	return u, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) UserByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

// SetDisabled flips the disabled flag on an existing user. Test helper.
func (m *Memory) SetDisabled(email string, disabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := strings.ToLower(email)
	if u, ok := m.users[k]; ok {
		u.Disabled = disabled
		m.users[k] = u
	}
}
