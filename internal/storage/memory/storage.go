// Package memory implements a reference domain.Storage entirely in-process,
// used by tests and as the zero-infrastructure default storage_type.
package memory

import (
	"context"
	"sync"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

// Storage keeps one ResourceItem per ID, guarded by a single mutex; there is
// no durability, matching spec.md §1's non-goal of durable queueing carried
// over to the reference storage plugin as well.
type Storage struct {
	mu    sync.RWMutex
	items map[string]domain.ResourceItem
}

// New builds an empty in-memory storage.
func New() *Storage {
	return &Storage{items: make(map[string]domain.ResourceItem)}
}

// Filter keeps only items that are new or whose DateModified is strictly
// newer than the stored copy, matching the inferred "filter against
// storage" contract of spec.md §4.E.
func (s *Storage) Filter(_ context.Context, items []domain.ResourceItem) ([]domain.ResourceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	survivors := make([]domain.ResourceItem, 0, len(items))
	for _, item := range items {
		stored, ok := s.items[item.ID]
		if !ok || item.DateModified.After(stored.DateModified) {
			survivors = append(survivors, item)
		}
	}
	return survivors, nil
}

// Upsert stores item, replacing any prior copy with the same ID.
func (s *Storage) Upsert(_ context.Context, item domain.ResourceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return nil
}

// Get returns the stored copy of an item and whether it was present, for
// tests and introspection.
func (s *Storage) Get(id string) (domain.ResourceItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Len reports how many distinct items are currently stored.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
