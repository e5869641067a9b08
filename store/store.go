// Package store persists normalized feed items in sqlite. Deduplication
// across refresh cycles happens here, keyed by (source, guid).
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scipunch/feedpipe/feed"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the item database
type Store struct {
	db *sql.DB
}

// Item is a stored row: a parsed item plus its source and an optional
// agent-produced summary.
type Item struct {
	Source      string
	GUID        string
	Title       string
	Link        string
	Content     string
	Summary     string
	PublishedAt time.Time
	CreatedAt   time.Time
}

// Stats contains store statistics
type Stats struct {
	Items   int
	Sources int
}

// Open initializes the item database at the given path
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertItems inserts the items that have not been seen before for this
// source and returns them. Previously stored guids are left untouched.
func (s *Store) UpsertItems(ctx context.Context, source string, items []feed.Item) ([]feed.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	var inserted []feed.Item
	for _, item := range items {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO items
			(source, guid, title, link, content, published_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, source, item.GUID, item.Title, item.Link, item.Content, item.PublishedAt.Unix(), now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert item '%s': %w", item.GUID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to count inserted rows: %w", err)
		}
		if n > 0 {
			inserted = append(inserted, item)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// SetSummary attaches an agent-produced summary to a stored item
func (s *Store) SetSummary(ctx context.Context, source, guid, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET summary = ? WHERE source = ? AND guid = ?`,
		summary, source, guid,
	)
	if err != nil {
		return fmt.Errorf("failed to set summary for '%s': %w", guid, err)
	}
	return nil
}

// Recent returns up to limit items, newest publication first
func (s *Store) Recent(ctx context.Context, limit int) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, guid, title, link, content, summary, published_at, created_at
		FROM items
		ORDER BY published_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var published, created int64
		if err := rows.Scan(&it.Source, &it.GUID, &it.Title, &it.Link, &it.Content, &it.Summary, &published, &created); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		it.PublishedAt = time.Unix(published, 0)
		it.CreatedAt = time.Unix(created, 0)
		items = append(items, it)
	}
	return items, rows.Err()
}

// Stats reports row counts for logging on startup
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&st.Items); err != nil {
		return st, fmt.Errorf("failed to count items: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT source) FROM items`).Scan(&st.Sources); err != nil {
		return st, fmt.Errorf("failed to count sources: %w", err)
	}
	return st, nil
}
