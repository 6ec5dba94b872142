// Package storage defines the news store used by the campus gateway to rank
// career news, along with its in-memory, SQLite and PostgreSQL drivers.
package storage

import (
	"context"

	"github.com/campusai/campus/pkg/news"
)

// DefaultLatestLimit is the number of recent items considered for
// recommendations.
const DefaultLatestLimit = 20

// NewsDriver defines the interface for persisting and retrieving career news.
type NewsDriver interface {
	// Put stores an item. Returns true if the item was newly inserted,
	// false if an item with the same ID already exists, in which case this
	// is a no-op.
	Put(ctx context.Context, item *news.Item) (bool, error)

	// Get retrieves an item by ID.
	Get(ctx context.Context, id string) (*news.Item, error)

	// Latest returns up to limit items, newest first.
	Latest(ctx context.Context, limit int) ([]news.Item, error)

	// Close closes the store and releases any resources.
	Close() error
}
