// Package entdriver implements the news store on top of ent's dialect/sql
// builder so the same queries serve SQLite and PostgreSQL.
package entdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/storage"
)

// Table is the name of the career news table.
const Table = "career_news"

var columns = []string{"id", "title", "category", "content", "created_at"}

// EntDriver provides storage operations using an ent SQL driver.
// It is database-agnostic and can be embedded by specific drivers.
type EntDriver struct {
	Driver *entsql.Driver
}

// Put stores an item. Returns true if the item was newly inserted,
// false if an item with the same ID already existed.
func (ed *EntDriver) Put(ctx context.Context, item *news.Item) (bool, error) {
	if item == nil {
		return false, errors.New("cannot store nil item")
	}
	if item.ID == "" {
		return false, errors.New("item has no ID")
	}

	query, args := entsql.Dialect(ed.Driver.Dialect()).
		Insert(Table).
		Columns(columns...).
		Values(item.ID, item.Title, item.Category, item.Content, item.CreatedAt.UTC()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.DoNothing(),
		).
		Query()

	var res sql.Result
	if err := ed.Driver.Exec(ctx, query, args, &res); err != nil {
		return false, fmt.Errorf("could not insert news item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not read affected rows: %w", err)
	}
	return affected > 0, nil
}

// Get retrieves an item by ID.
func (ed *EntDriver) Get(ctx context.Context, id string) (*news.Item, error) {
	selector := entsql.Dialect(ed.Driver.Dialect()).
		Select(columns...).
		From(entsql.Table(Table)).
		Where(entsql.EQ("id", id)).
		Limit(1)

	items, err := ed.scan(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, storage.NotFoundError{ID: id}
	}
	return &items[0], nil
}

// Latest returns up to limit items, newest first.
func (ed *EntDriver) Latest(ctx context.Context, limit int) ([]news.Item, error) {
	selector := entsql.Dialect(ed.Driver.Dialect()).
		Select(columns...).
		From(entsql.Table(Table)).
		OrderBy(entsql.Desc("created_at"), entsql.Asc("id"))
	if limit > 0 {
		selector.Limit(limit)
	}
	return ed.scan(ctx, selector)
}

// Close closes the underlying database connection.
func (ed *EntDriver) Close() error {
	return ed.Driver.Close()
}

func (ed *EntDriver) scan(ctx context.Context, selector *entsql.Selector) ([]news.Item, error) {
	query, args := selector.Query()

	rows := &entsql.Rows{}
	if err := ed.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query news: %w", err)
	}
	defer rows.Close()

	var items []news.Item
	if err := entsql.ScanSlice(rows, &items); err != nil {
		return nil, fmt.Errorf("failed to scan news: %w", err)
	}
	for i := range items {
		items[i].CreatedAt = items[i].CreatedAt.UTC()
	}
	return items, nil
}

// Migrate applies the given DDL statements in order.
func (ed *EntDriver) Migrate(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if err := ed.Driver.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
