// Package sqlite provides a SQLite-backed news store using ent's SQL driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"

	entdriver "github.com/campusai/campus/pkg/storage/ent/driver"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS career_news (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS career_news_created_at ON career_news (created_at)`,
}

// SQLiteDriver implements storage.NewsDriver using SQLite via the ent driver
type SQLiteDriver struct {
	*entdriver.EntDriver
}

// NewSQLiteDriver creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDriver(dbPath string) (*SQLiteDriver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	ed := &entdriver.EntDriver{
		Driver: entsql.OpenDB(dialect.SQLite, db),
	}
	if err := ed.Migrate(context.Background(), schema...); err != nil {
		ed.Close()
		return nil, err
	}

	return &SQLiteDriver{EntDriver: ed}, nil
}
