// Package storageutils picks a news store implementation from configuration.
package storageutils

import (
	"context"
	"fmt"

	"github.com/campusai/campus/pkg/storage"
	"github.com/campusai/campus/pkg/storage/inmemory"
	"github.com/campusai/campus/pkg/storage/postgres"
	"github.com/campusai/campus/pkg/storage/sqlite"
)

type NewNewsDriverOpts struct {
	SQLitePath  string
	PostgresDSN string
}

// Kind reports which driver NewNewsDriver will return for o.
func (o *NewNewsDriverOpts) Kind() string {
	switch {
	case o.PostgresDSN != "":
		return "postgres"
	case o.SQLitePath != "":
		return "sqlite"
	default:
		return "inmemory"
	}
}

// NewNewsDriver returns a PostgreSQL store when a DSN is set, a SQLite
// store when a path is set, and an in-memory store otherwise.
func NewNewsDriver(ctx context.Context, o *NewNewsDriverOpts) (storage.NewsDriver, error) {
	switch o.Kind() {
	case "postgres":
		d, err := postgres.NewDriver(ctx, o.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres news store: %w", err)
		}
		return d, nil
	case "sqlite":
		d, err := sqlite.NewSQLiteDriver(o.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite news store: %w", err)
		}
		return d, nil
	default:
		return inmemory.NewDriver(), nil
	}
}
