package approval

import (
	"sync"
	"time"

	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
)

// Record is a durable, user-granted permission set bound to a plugin
// identifier. It is the sole source of truth for "has this plugin already
// been approved" and must survive process restarts.
type Record struct {
	PluginID    string
	Permissions permission.Set
	GrantedAt   time.Time
}

// Store persists approval records. Implementations must serialize writes;
// the validator assumes single-writer discipline per plugin identifier.
type Store interface {
	// Get returns the record for a plugin, or nil if none exists.
	Get(pluginID string) (*Record, error)

	// Put writes or overwrites the record for rec.PluginID.
	Put(rec *Record) error

	// Delete removes the record for a plugin. Deleting a missing record is
	// not an error.
	Delete(pluginID string) error

	// List returns all records.
	List() ([]*Record, error)
}

// MemoryStore is an in-process Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Get implements Store.
func (s *MemoryStore) Get(pluginID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[pluginID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Put implements Store.
func (s *MemoryStore) Put(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.PluginID] = &cp
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(pluginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, pluginID)
	return nil
}

// List implements Store.
func (s *MemoryStore) List() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}
