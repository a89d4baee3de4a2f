package tasklist

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"taskvault/logging"
	"taskvault/store"
)

func newTestStore(t *testing.T) (*Store, *store.Memory) {
	t.Helper()
	kv := store.NewMemory()
	return New(kv, "", logging.Discard()), kv
}

func persistedTasks(t *testing.T, kv store.KV) []string {
	t.Helper()
	raw, err := kv.Get(context.Background(), SlotKey)
	if err != nil {
		t.Fatalf("reading slot: %v", err)
	}
	var tasks []string
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		t.Fatalf("decoding slot payload %q: %v", raw, err)
	}
	return tasks
}

func TestAddThenReloadKeepsTextUntrimmed(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStore(t)

	const text = "  Buy milk  "
	added, err := s.Add(ctx, text)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !added {
		t.Fatal("expected the task to be added")
	}

	// Simulate a reload: a fresh store over the same slot.
	reloaded := New(kv, "", logging.Discard()).Load(ctx)
	if len(reloaded) == 0 || reloaded[len(reloaded)-1] != text {
		t.Errorf("expected last task %q after reload; got %v", text, reloaded)
	}
}

func TestAddWhitespaceOnlyIsNoOp(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStore(t)

	if _, err := s.Add(ctx, "Call mom"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	before := persistedTasks(t, kv)

	for _, text := range []string{"", "   ", "\t\n"} {
		added, err := s.Add(ctx, text)
		if err != nil {
			t.Fatalf("Add(%q): %v", text, err)
		}
		if added {
			t.Errorf("Add(%q) should be a no-op", text)
		}
	}

	if got := s.Tasks(ctx); len(got) != 1 {
		t.Errorf("expected list unchanged; got %v", got)
	}
	if after := persistedTasks(t, kv); !reflect.DeepEqual(before, after) {
		t.Errorf("persisted content changed: %v -> %v", before, after)
	}
}

func TestDeleteAt(t *testing.T) {
	testCases := []struct {
		name    string
		initial []string
		index   int
		want    []string
		removed bool
	}{
		{
			name:    "first element",
			initial: []string{"a", "b", "c"},
			index:   0,
			want:    []string{"b", "c"},
			removed: true,
		},
		{
			name:    "middle element keeps order",
			initial: []string{"a", "b", "c"},
			index:   1,
			want:    []string{"a", "c"},
			removed: true,
		},
		{
			name:    "last element",
			initial: []string{"a", "b", "c"},
			index:   2,
			want:    []string{"a", "b"},
			removed: true,
		},
		{
			name:    "negative index is a no-op",
			initial: []string{"a", "b"},
			index:   -1,
			want:    []string{"a", "b"},
			removed: false,
		},
		{
			name:    "index past the end is a no-op",
			initial: []string{"a", "b"},
			index:   2,
			want:    []string{"a", "b"},
			removed: false,
		},
		{
			name:    "empty list is a no-op",
			initial: nil,
			index:   0,
			want:    []string{},
			removed: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s, kv := newTestStore(t)
			for _, text := range tc.initial {
				if _, err := s.Add(ctx, text); err != nil {
					t.Fatalf("Add(%q): %v", text, err)
				}
			}

			removed, err := s.DeleteAt(ctx, tc.index)
			if err != nil {
				t.Fatalf("DeleteAt(%d): %v", tc.index, err)
			}
			if removed != tc.removed {
				t.Errorf("DeleteAt(%d) removed = %t, want %t", tc.index, removed, tc.removed)
			}
			if got := s.Tasks(ctx); !reflect.DeepEqual(got, append([]string{}, tc.want...)) {
				t.Errorf("list after delete = %v, want %v", got, tc.want)
			}
			if got := persistedTasks(t, kv); !reflect.DeepEqual(got, append([]string{}, tc.want...)) {
				t.Errorf("persisted list = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		list []string
	}{
		{name: "empty", list: []string{}},
		{name: "single", list: []string{"Buy milk"}},
		{name: "several with whitespace", list: []string{"  padded  ", "Call mom", "x"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			kv := store.NewMemory()
			payload, _ := json.Marshal(tc.list)
			if err := kv.Set(ctx, SlotKey, string(payload)); err != nil {
				t.Fatalf("seeding slot: %v", err)
			}

			got := New(kv, "", logging.Discard()).Load(ctx)
			if !reflect.DeepEqual(got, append([]string{}, tc.list...)) {
				t.Errorf("Load() = %v, want %v", got, tc.list)
			}
		})
	}
}

func TestLoadCorruptedSlotReturnsEmpty(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "definitely not json"},
		{name: "wrong shape", payload: `{"tasks": ["a"]}`},
		{name: "mixed types", payload: `["a", 42]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			kv := store.NewMemory()
			if err := kv.Set(ctx, SlotKey, tc.payload); err != nil {
				t.Fatalf("seeding slot: %v", err)
			}

			got := New(kv, "", logging.Discard()).Load(ctx)
			if len(got) != 0 {
				t.Errorf("Load() on corrupted slot = %v, want empty", got)
			}
			// Hydration rewrites the slot, normalizing the bad payload.
			if persisted := persistedTasks(t, kv); len(persisted) != 0 {
				t.Errorf("slot after hydration = %v, want []", persisted)
			}
		})
	}
}

func TestLoadMissingSlotReturnsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	if got := s.Load(context.Background()); len(got) != 0 {
		t.Errorf("Load() with no slot = %v, want empty", got)
	}
}

func TestEmptyListPersistsAsJSONArray(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStore(t)
	if _, err := s.Add(ctx, "only"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.DeleteAt(ctx, 0); err != nil {
		t.Fatalf("DeleteAt: %v", err)
	}
	raw, err := kv.Get(ctx, SlotKey)
	if err != nil {
		t.Fatalf("reading slot: %v", err)
	}
	if raw != "[]" {
		t.Errorf("persisted empty list = %q, want []", raw)
	}
}

func TestScenario(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStore(t)

	if got := s.Load(ctx); len(got) != 0 {
		t.Fatalf("fresh Load() = %v, want empty", got)
	}

	if _, err := s.Add(ctx, "Buy milk"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.Tasks(ctx); !reflect.DeepEqual(got, []string{"Buy milk"}) {
		t.Fatalf("after first add: %v", got)
	}
	if got := persistedTasks(t, kv); !reflect.DeepEqual(got, []string{"Buy milk"}) {
		t.Fatalf("persisted after first add: %v", got)
	}

	if _, err := s.Add(ctx, "Call mom"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.Tasks(ctx); !reflect.DeepEqual(got, []string{"Buy milk", "Call mom"}) {
		t.Fatalf("after second add: %v", got)
	}

	if _, err := s.DeleteAt(ctx, 0); err != nil {
		t.Fatalf("DeleteAt: %v", err)
	}
	if got := s.Tasks(ctx); !reflect.DeepEqual(got, []string{"Call mom"}) {
		t.Fatalf("after delete: %v", got)
	}
	if got := persistedTasks(t, kv); !reflect.DeepEqual(got, []string{"Call mom"}) {
		t.Fatalf("persisted after delete: %v", got)
	}
}
