// Package source loads category items and the home document from a data source:
// static JSON files, a spreadsheet-to-JSON bridge, or a read-only SQLite snapshot.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/starford/mediashelf/internal/apperr"
	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/models"
)

// Source kinds.
const (
	KindFile   = "file"
	KindSheet  = "sheet"
	KindSQLite = "sqlite"
)

// DefaultHomeLocator names the home document when none is configured.
const DefaultHomeLocator = "about"

// Fetcher loads data for one category or for the home view.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, cfg catalog.CategoryConfig) (*models.Payload, error)
	FetchHome(ctx context.Context) (*models.HomeDoc, error)
}

// document is the static file shape. Flat row arrays are accepted as well.
type document struct {
	Items      []models.Row `json:"items"`
	Background string       `json:"background"`
}

// decode parses a JSON payload that is either {items, background} or a flat array of rows.
func decode(data []byte) ([]models.Row, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, "", fmt.Errorf("empty payload")
	}
	if trimmed[0] == '[' {
		var rows []models.Row
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, "", fmt.Errorf("decode rows: %w", err)
		}
		return rows, "", nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, "", fmt.Errorf("decode document: %w", err)
	}
	return doc.Items, doc.Background, nil
}

func fetchErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperr.ErrFetch, what, err)
}
