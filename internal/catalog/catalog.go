// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/smukherj1/srm/internal/resource"
)

const schema = `
CREATE TABLE IF NOT EXISTS resources (
	name TEXT PRIMARY KEY,
	definition_path TEXT NOT NULL,
	kind TEXT NOT NULL,
	registered_at TEXT NOT NULL
);
`

type (
	// Record is one registered resource.
	Record struct {
		Name           resource.Name
		DefinitionPath resource.DefinitionPath
		Kind           resource.Kind
		RegisteredAt   time.Time
	}

	// Catalog is an open resource catalog.
	Catalog struct {
		db   *sql.DB
		path string
		now  func() time.Time
	}

	// Option configures Open.
	Option func(*Catalog)
)

// WithClock replaces time.Now for registration timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// Open opens or creates the catalog at path, creating its directory.
func Open(ctx context.Context, path string, opts ...Option) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	// SQLite serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize catalog %s: %w", path, err)
	}

	c := &Catalog{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Path returns the database file.
func (c *Catalog) Path() string { return c.path }

// Register inserts rec or replaces the record with the same name. A zero
// RegisteredAt is set to the current time. The stored record is returned.
func (c *Catalog) Register(ctx context.Context, rec Record) (Record, error) {
	if rec.RegisteredAt.IsZero() {
		rec.RegisteredAt = c.now()
	}
	rec.RegisteredAt = rec.RegisteredAt.UTC().Truncate(time.Second)

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO resources (name, definition_path, kind, registered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			definition_path = excluded.definition_path,
			kind = excluded.kind,
			registered_at = excluded.registered_at`,
		string(rec.Name), string(rec.DefinitionPath), string(rec.Kind), rec.RegisteredAt.Format(time.RFC3339))
	if err != nil {
		return Record{}, fmt.Errorf("register %s: %w", rec.Name, err)
	}
	return rec, nil
}

// Lookup returns the record for name. The boolean is false when name was
// never registered.
func (c *Catalog) Lookup(ctx context.Context, name resource.Name) (Record, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT name, definition_path, kind, registered_at FROM resources WHERE name = ?`, string(name))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("look up %s: %w", name, err)
	}
	return rec, true, nil
}

// List returns every record ordered by name.
func (c *Catalog) List(ctx context.Context) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, definition_path, kind, registered_at FROM resources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list catalog: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return records, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var name, path, kind, registered string
	if err := s.Scan(&name, &path, &kind, &registered); err != nil {
		return Record{}, err
	}
	at, err := time.Parse(time.RFC3339, registered)
	if err != nil {
		return Record{}, fmt.Errorf("parse registered_at %q: %w", registered, err)
	}
	return Record{
		Name:           resource.Name(name),
		DefinitionPath: resource.DefinitionPath(path),
		Kind:           resource.Kind(kind),
		RegisteredAt:   at,
	}, nil
}
