// Package inmemory provides a map-backed news store for tests and for
// gateways run without a database.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/storage"
)

// Driver implements storage.NewsDriver using an in-memory map.
type Driver struct {
	// mu guards items
	mu sync.RWMutex

	// items is keyed by item ID
	items map[string]news.Item
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		items: make(map[string]news.Item),
	}
}

// Put stores an item. Returns false if the ID already exists.
func (s *Driver) Put(_ context.Context, item *news.Item) (bool, error) {
	if item == nil {
		return false, errors.New("cannot store nil item")
	}
	if item.ID == "" {
		return false, errors.New("item has no ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; ok {
		return false, nil
	}
	s.items[item.ID] = *item
	return true, nil
}

// Get retrieves an item by ID.
func (s *Driver) Get(_ context.Context, id string) (*news.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}
	return &item, nil
}

// Latest returns up to limit items, newest first. Ties are broken by ID so
// the order is stable.
func (s *Driver) Latest(_ context.Context, limit int) ([]news.Item, error) {
	s.mu.RLock()
	items := make([]news.Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}
