// Package testutil provides shared test helpers for setting up data directories and sources.
package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/models"
	"github.com/starford/mediashelf/internal/source"
	"github.com/starford/mediashelf/internal/storage"
)

// TestDataDir creates a temporary data directory holding one JSON document per locator.
func TestDataDir(t *testing.T, docs map[string]any) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for locator, doc := range docs {
		WriteJSON(t, filepath.Join(dir, source.PathFor(locator)), doc)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteJSON marshals v into path.
func WriteJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestSQLite creates a temporary snapshot database seeded with stmts and opens it read-only.
func TestSQLite(t *testing.T, stmts ...string) *source.SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mediashelf-test.db")
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec(source.SQLiteSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, s := range stmts {
		if _, err := conn.Exec(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	conn.Close()

	src, err := source.OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

// StubSource is an in-memory source.Fetcher. Categories without a payload load as empty.
type StubSource struct {
	mu       sync.Mutex
	payloads map[string]*models.Payload
	errs     map[string]error
	gates    map[string]chan struct{}
	home     *models.HomeDoc
	homeErr  error
	calls    map[string]int
}

// NewStubSource creates an empty stub.
func NewStubSource() *StubSource {
	return &StubSource{
		payloads: make(map[string]*models.Payload),
		errs:     make(map[string]error),
		gates:    make(map[string]chan struct{}),
		home:     &models.HomeDoc{},
		calls:    make(map[string]int),
	}
}

// Set stores the items served for a category key.
func (s *StubSource) Set(key string, items []models.Item, background string) *StubSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	if background == "" {
		background = models.DefaultBackground
	}
	s.payloads[key] = &models.Payload{Items: items, Background: background}
	return s
}

// Fail makes every fetch of key return err.
func (s *StubSource) Fail(key string, err error) *StubSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[key] = err
	return s
}

// SetHome stores the home document, or a failure when err is set.
func (s *StubSource) SetHome(doc *models.HomeDoc, err error) *StubSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.home, s.homeErr = doc, err
	return s
}

// Hold makes fetches of key block until the returned release func is called.
func (s *StubSource) Hold(key string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gates[key] = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns how many times key was fetched.
func (s *StubSource) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// Fetch implements source.Fetcher.
func (s *StubSource) Fetch(ctx context.Context, cfg catalog.CategoryConfig) (*models.Payload, error) {
	s.mu.Lock()
	s.calls[cfg.Key]++
	gate := s.gates[cfg.Key]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[cfg.Key]; err != nil {
		return nil, fmt.Errorf("stub %s: %w", cfg.Key, err)
	}
	p, ok := s.payloads[cfg.Key]
	if !ok {
		return &models.Payload{Items: []models.Item{}, Background: models.DefaultBackground}, nil
	}
	items := make([]models.Item, len(p.Items))
	copy(items, p.Items)
	return &models.Payload{Items: items, Background: p.Background}, nil
}

// FetchHome implements source.Fetcher.
func (s *StubSource) FetchHome(_ context.Context) (*models.HomeDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.homeErr != nil {
		return nil, s.homeErr
	}
	return s.home, nil
}
