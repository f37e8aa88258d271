package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
	"github.com/cognicore/socialens/pkg/socialens/records"
	"github.com/cognicore/socialens/pkg/socialens/store"
)

// Store is an in-memory implementation of store.Store for tests and dry
// runs.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]store.Snapshot
	mapping   []records.Mapping
	hasMap    bool
}

// New creates an empty store.
func New() *Store {
	return &Store{snapshots: make(map[string]store.Snapshot)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveSnapshot implements store.Store. Existing ids are rejected.
func (s *Store) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("snapshot id required: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snap.ID]; ok {
		return fmt.Errorf("snapshot %s already exists: %w", snap.ID, internalerr.ErrInvalidInput)
	}
	s.snapshots[snap.ID] = snap
	return nil
}

// GetSnapshot implements store.Store.
func (s *Store) GetSnapshot(ctx context.Context, id string) (store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return store.Snapshot{}, fmt.Errorf("snapshot %s: %w", id, internalerr.ErrNotFound)
	}
	return snap, nil
}

// LatestSnapshot implements store.Store.
func (s *Store) LatestSnapshot(ctx context.Context) (store.Snapshot, bool, error) {
	ids := s.sortedIDs()
	if len(ids) == 0 {
		return store.Snapshot{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[ids[0]], true, nil
}

// ListSnapshots implements store.Store, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]store.SnapshotInfo, error) {
	ids := s.sortedIDs()
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.SnapshotInfo, len(ids))
	for i, id := range ids {
		out[i] = s.snapshots[id].Info()
	}
	return out, nil
}

func (s *Store) sortedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

// LoadMapping implements store.Store.
func (s *Store) LoadMapping(ctx context.Context) ([]records.Mapping, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasMap {
		return nil, false, nil
	}
	return append([]records.Mapping{}, s.mapping...), true, nil
}

// SaveMapping implements store.Store.
func (s *Store) SaveMapping(ctx context.Context, m []records.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapping = append([]records.Mapping{}, m...)
	s.hasMap = true
	return nil
}
