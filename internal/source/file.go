package source

import (
	"context"

	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/models"
	"github.com/starford/mediashelf/internal/storage"
)

// File reads <locator>.json documents from a data directory.
type File struct {
	store storage.Provider
	home  string
}

// NewFile creates a file source. An empty home locator falls back to DefaultHomeLocator.
func NewFile(store storage.Provider, home string) *File {
	if home == "" {
		home = DefaultHomeLocator
	}
	return &File{store: store, home: home}
}

// PathFor returns the data file holding a locator.
func PathFor(locator string) string {
	return locator + ".json"
}

// Fetch implements Fetcher.
func (f *File) Fetch(ctx context.Context, cfg catalog.CategoryConfig) (*models.Payload, error) {
	rows, bg, err := f.load(ctx, cfg.Locator)
	if err != nil {
		return nil, fetchErr(cfg.Key, err)
	}
	return models.NewPayload(rows, bg), nil
}

// FetchHome implements Fetcher.
func (f *File) FetchHome(ctx context.Context) (*models.HomeDoc, error) {
	rows, _, err := f.load(ctx, f.home)
	if err != nil {
		return nil, fetchErr(f.home, err)
	}
	return models.HomeFromRows(rows), nil
}

// HomeLocator returns the locator of the home document.
func (f *File) HomeLocator() string {
	return f.home
}

func (f *File) load(ctx context.Context, locator string) ([]models.Row, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	data, err := f.store.Read(PathFor(locator))
	if err != nil {
		return nil, "", err
	}
	return decode(data)
}
