// Package tasklist implements the ordered task list and its persistence
// synchronization. The whole list lives in one key-value slot as a JSON
// array of strings; every mutation overwrites the slot with the full list.
package tasklist

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"taskvault/store"
)

// SlotKey is the default storage key for the serialized list.
const SlotKey = "todos"

// Store keeps the in-memory ordered task list and mirrors it to the slot.
// Task identity is purely positional; mutations are serialized so
// index-based deletion stays safe.
type Store struct {
	kv     store.KV
	key    string
	logger *log.Logger

	mu     sync.Mutex
	tasks  []string
	loaded bool
}

// New returns a store over kv. An empty key selects SlotKey.
func New(kv store.KV, key string, logger *log.Logger) *Store {
	if key == "" {
		key = SlotKey
	}
	return &Store{kv: kv, key: key, logger: logger}
}

// Load hydrates the list from the slot and returns a copy. An absent slot
// or an unparseable payload yields an empty list; Load never fails. After
// hydration the slot is rewritten so a corrupted payload is normalized.
func (s *Store) Load(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return s.copyLocked()
}

func (s *Store) loadLocked(ctx context.Context) {
	raw, err := s.kv.Get(ctx, s.key)
	switch {
	case err == nil:
		var tasks []string
		if jsonErr := json.Unmarshal([]byte(raw), &tasks); jsonErr != nil {
			s.logger.Warn("discarding unparseable task slot", "key", s.key, "err", jsonErr)
			tasks = nil
		}
		s.tasks = tasks
	case errors.Is(err, store.ErrNoValue):
		s.tasks = nil
	default:
		s.logger.Warn("reading task slot failed, starting empty", "key", s.key, "err", err)
		s.tasks = nil
	}
	s.loaded = true
	if err := s.persistLocked(ctx); err != nil {
		s.logger.Warn("rewriting task slot after hydration failed", "key", s.key, "err", err)
	}
}

func (s *Store) ensureLoadedLocked(ctx context.Context) {
	if !s.loaded {
		s.loadLocked(ctx)
	}
}

// Tasks returns a copy of the current list, hydrating on first access.
func (s *Store) Tasks(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)
	return s.copyLocked()
}

// Add appends text to the list and persists it. Text that trims to empty
// is a silent no-op; otherwise the untrimmed original is stored. Returns
// whether an entry was appended.
func (s *Store) Add(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)
	s.tasks = append(s.tasks, text)
	if err := s.persistLocked(ctx); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		return false, err
	}
	return true, nil
}

// DeleteAt removes the entry at index i, keeping the relative order of the
// rest, and persists the result. An out-of-range index is a no-op, not an
// error. Returns whether an entry was removed.
func (s *Store) DeleteAt(ctx context.Context, i int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)
	if i < 0 || i >= len(s.tasks) {
		return false, nil
	}
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	if err := s.persistLocked(ctx); err != nil {
		rest := append([]string{removed}, s.tasks[i:]...)
		s.tasks = append(s.tasks[:i], rest...)
		return false, err
	}
	return true, nil
}

// persistLocked overwrites the slot with the full list. The empty list is
// written as [] so a round-trip stays faithful.
func (s *Store) persistLocked(ctx context.Context) error {
	list := s.tasks
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key, string(data))
}

func (s *Store) copyLocked() []string {
	out := make([]string, len(s.tasks))
	copy(out, s.tasks)
	return out
}
