// Package pins holds the user's favourited sections and their persistence
// contract. A Set is never mutated in place; Toggle returns a new Set so a
// value handed to the filter engine stays stable for the whole turn.
package pins

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/lotas/wegweiser/internal/applog"
)

// StorageKey is the key under which the pin list is persisted.
const StorageKey = "pinnedSections"

// Set is a set of section keys.
type Set map[string]struct{}

// NewSet returns a set holding keys.
func NewSet(keys ...string) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether key is pinned. A nil Set pins nothing.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Len returns the number of pinned keys.
func (s Set) Len() int { return len(s) }

// Toggle returns a copy of s with key added if absent or removed if present.
func (s Set) Toggle(key string) Set {
	next := make(Set, len(s)+1)
	for k := range s {
		next[k] = struct{}{}
	}
	if _, ok := next[key]; ok {
		delete(next, key)
	} else {
		next[key] = struct{}{}
	}
	return next
}

// Keys returns the pinned keys in sorted order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether s and o hold the same keys.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

// KV is a synchronous string key-value store.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Recorder is implemented by stores that keep a history of toggles.
type Recorder interface {
	RecordToggle(key string, pinned bool) error
}

// Store reads and writes a Set through a KV.
type Store struct {
	kv KV
}

// NewStore returns a Store backed by kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load reads the persisted pins. Any read or decode problem yields an empty
// set; the cause is logged, never returned.
func (s *Store) Load() Set {
	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		applog.Error("pins.load", err)
		return Set{}
	}
	if !ok || raw == "" {
		return Set{}
	}
	set, err := Decode(raw)
	if err != nil {
		applog.Error("pins.decode", err)
		return Set{}
	}
	applog.Info("pins.loaded", "count", set.Len())
	return set
}

// Save persists set. Write failures are logged and swallowed.
func (s *Store) Save(set Set) {
	data, err := json.Marshal(set.Keys())
	if err != nil {
		applog.Error("pins.encode", err)
		return
	}
	if err := s.kv.Set(StorageKey, string(data)); err != nil {
		applog.Error("pins.save", err, "count", set.Len())
	}
}

// Toggle flips key in set, persists the result and returns it. The returned
// set is correct even when persisting failed.
func (s *Store) Toggle(set Set, key string) Set {
	next := set.Toggle(key)
	s.Save(next)
	if rec, ok := s.kv.(Recorder); ok {
		if err := rec.RecordToggle(key, next.Has(key)); err != nil {
			applog.Error("pins.record", err, "key", key)
		}
	}
	applog.Info("pins.toggled", "key", key, "pinned", next.Has(key))
	return next
}

var errNotArray = errors.New("pins payload is not a JSON array")

// Decode parses a persisted pin list. Non-string members are skipped.
func Decode(raw string) (Set, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errNotArray
	}
	set := make(Set, len(items))
	for _, item := range items {
		if k, ok := item.(string); ok {
			set[k] = struct{}{}
		}
	}
	return set, nil
}

// MemoryKV is an in-memory KV. FailWrites makes every Set return an error.
type MemoryKV struct {
	mu         sync.Mutex
	values     map[string]string
	FailWrites bool
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

var errWriteRefused = errors.New("write refused")

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errWriteRefused
	}
	m.values[key] = value
	return nil
}
