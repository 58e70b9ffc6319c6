package storage

import (
	"bytes"
	"sync"

	"hlckv/internal/hlc"
)

// VersionedValue is a value stamped with the hybrid logical clock reading of
// the write that produced it.
type VersionedValue struct {
	Value   []byte
	Version hlc.Timestamp
	Origin  string // ID of the node that coordinated the write
	Deleted bool   // True if this is a tombstone (deleted)
}

// IsTombstone checks if this is a deletion tombstone.
func (vv *VersionedValue) IsTombstone() bool {
	return vv.Deleted
}

// Supersedes reports whether vv wins over other under last-writer-wins:
// the later version wins, and equal versions are ordered by origin ID so
// every replica picks the same winner.
func (vv *VersionedValue) Supersedes(other *VersionedValue) bool {
	if other == nil {
		return true
	}
	if c := vv.Version.Compare(other.Version); c != 0 {
		return c > 0
	}
	return vv.Origin > other.Origin
}

// Same reports whether vv and other describe the same write.
func (vv *VersionedValue) Same(other *VersionedValue) bool {
	return other != nil &&
		vv.Version == other.Version &&
		vv.Origin == other.Origin &&
		vv.Deleted == other.Deleted &&
		bytes.Equal(vv.Value, other.Value)
}

// Clone returns a deep copy of vv.
func (vv *VersionedValue) Clone() *VersionedValue {
	if vv == nil {
		return nil
	}
	var value []byte
	if vv.Value != nil {
		value = append([]byte(nil), vv.Value...)
	}
	return &VersionedValue{
		Value:   value,
		Version: vv.Version,
		Origin:  vv.Origin,
		Deleted: vv.Deleted,
	}
}

// Store defines the interface for key-value storage.
type Store interface {
	// Get retrieves a value by key, tombstones included. Returns nil if not found.
	Get(key string) (*VersionedValue, error)
	// Apply stores vv under key if it supersedes the current value.
	// Returns whether the write was applied.
	Apply(key string, vv VersionedValue) (bool, error)
	// MaxVersion returns the highest version ever applied, or the zero
	// timestamp for an empty store.
	MaxVersion() (hlc.Timestamp, error)
	// Close releases resources held by the store.
	Close() error
}

// InMemoryStore is an in-memory implementation of Store.
// It's thread-safe.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*VersionedValue
	max  hlc.Timestamp
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data: make(map[string]*VersionedValue),
	}
}

// Get retrieves a value by key.
func (s *InMemoryStore) Get(key string) (*VersionedValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to avoid external modifications
	return s.data[key].Clone(), nil
}

// Apply stores vv if it supersedes the existing value for key.
// Tombstones are stored like values so deletes replicate.
func (s *InMemoryStore) Apply(key string, vv VersionedValue) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[key]; ok && !vv.Supersedes(existing) {
		return false, nil
	}

	stored := vv.Clone()
	if stored.Deleted {
		stored.Value = nil
	}
	s.data[key] = stored
	if s.max.Less(vv.Version) {
		s.max = vv.Version
	}
	return true, nil
}

// MaxVersion returns the highest version applied so far.
func (s *InMemoryStore) MaxVersion() (hlc.Timestamp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.max, nil
}

// Len returns the number of keys, tombstones included.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
