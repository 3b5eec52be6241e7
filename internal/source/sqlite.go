package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/models"
)

// SQLiteSchema is the layout of a catalog snapshot database. Value columns are left
// untyped so spreadsheet exports keep their original cell values.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS items (
	category        TEXT NOT NULL,
	position        INTEGER NOT NULL DEFAULT 0,
	title           TEXT NOT NULL,
	cover           TEXT,
	rating,
	details         TEXT,
	date_completed  TEXT,
	author          TEXT,
	seasons_watched,
	status          TEXT,
	link            TEXT
);

CREATE INDEX IF NOT EXISTS idx_items_category ON items(category, position);

CREATE TABLE IF NOT EXISTS category_meta (
	category   TEXT PRIMARY KEY,
	background TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS about (
	position     INTEGER NOT NULL DEFAULT 0,
	introduction TEXT,
	link_name    TEXT,
	link_url     TEXT,
	link_icon    TEXT
);
`

// SQLite reads items from a catalog snapshot database opened read-only.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens an existing snapshot database. The file is never created or written.
func OpenSQLite(path string) (*SQLite, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("source: sqlite: %w", err)
	}
	conn, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_query_only=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("source: sqlite: open: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("source: sqlite: ping: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Fetch implements Fetcher.
func (s *SQLite) Fetch(ctx context.Context, cfg catalog.CategoryConfig) (*models.Payload, error) {
	rows, err := s.query(ctx, `
		SELECT title, cover, rating, details, date_completed, author, seasons_watched, status, link
		FROM items WHERE category = ? ORDER BY position, rowid`, cfg.Locator)
	if err != nil {
		return nil, fetchErr(cfg.Key, err)
	}

	var bg string
	err = s.conn.QueryRowContext(ctx, `SELECT background FROM category_meta WHERE category = ?`, cfg.Locator).Scan(&bg)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fetchErr(cfg.Key, err)
	}
	return models.NewPayload(rows, bg), nil
}

// FetchHome implements Fetcher.
func (s *SQLite) FetchHome(ctx context.Context) (*models.HomeDoc, error) {
	rows, err := s.query(ctx, `
		SELECT introduction, link_name, link_url, link_icon
		FROM about ORDER BY position, rowid`)
	if err != nil {
		return nil, fetchErr("about", err)
	}
	return models.HomeFromRows(rows), nil
}

// query returns every result row keyed by column name.
func (s *SQLite) query(ctx context.Context, q string, args ...any) ([]models.Row, error) {
	rs, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	var out []models.Row
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(models.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rs.Err()
}
