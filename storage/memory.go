package storage

import (
	"context"
	"sync"
	"time"

	"housing-navigator/models"
)

// MemoryStore is an in-process ListingStore used for demos and tests.
// All operations are serialized by a single mutex, which also satisfies
// the single-writer-per-key requirement.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[string]*models.Listing
	stale    map[string]bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[string]*models.Listing),
		stale:    make(map[string]bool),
	}
}

// Upsert stores the listing under its identity key. A synthetic record
// never replaces a stored exact/heuristic record: the stored record is
// returned unchanged in that case, with only its LastSeenAt refreshed.
func (m *MemoryStore) Upsert(_ context.Context, l *models.Listing) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.listings[l.IdentityKey]
	if ok && l.Confidence == models.ConfidenceSynthetic && existing.Confidence != models.ConfidenceSynthetic {
		existing.LastSeenAt = l.LastSeenAt
		cp := *existing
		return &cp, nil
	}

	cp := *l
	m.listings[l.IdentityKey] = &cp
	delete(m.stale, l.IdentityKey)

	out := cp
	return &out, nil
}

// FindByKey returns a copy of the stored listing or nil when absent.
func (m *MemoryStore) FindByKey(_ context.Context, key string) (*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.listings[key]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// FetchAll returns copies of every active stored listing.
func (m *MemoryStore) FetchAll(_ context.Context) ([]*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Listing, 0, len(m.listings))
	for key, l := range m.listings {
		if m.stale[key] {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

// MarkStale deactivates listings last seen before olderThan.
func (m *MemoryStore) MarkStale(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for key, l := range m.listings {
		if !m.stale[key] && l.LastSeenAt.Before(olderThan) {
			m.stale[key] = true
			count++
		}
	}
	return count, nil
}

// Len returns the number of stored listings, stale ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.listings)
}

func (m *MemoryStore) Close() error { return nil }
