package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/models"
)

const maxSheetBytes = 16 << 20

// Sheet reads rows from a spreadsheet-to-JSON bridge at <base>/<sheet name>.
// The bridge never supplies a background.
type Sheet struct {
	base   string
	home   string
	client *http.Client
}

// NewSheet creates a sheet source. A nil client uses http.DefaultClient.
func NewSheet(baseURL, home string, client *http.Client) *Sheet {
	if client == nil {
		client = http.DefaultClient
	}
	if home == "" {
		home = DefaultHomeLocator
	}
	return &Sheet{base: strings.TrimSuffix(baseURL, "/"), home: home, client: client}
}

// Fetch implements Fetcher.
func (s *Sheet) Fetch(ctx context.Context, cfg catalog.CategoryConfig) (*models.Payload, error) {
	rows, _, err := s.get(ctx, cfg.Locator)
	if err != nil {
		return nil, fetchErr(cfg.Key, err)
	}
	return models.NewPayload(rows, ""), nil
}

// FetchHome implements Fetcher.
func (s *Sheet) FetchHome(ctx context.Context) (*models.HomeDoc, error) {
	rows, _, err := s.get(ctx, s.home)
	if err != nil {
		return nil, fetchErr(s.home, err)
	}
	return models.HomeFromRows(rows), nil
}

func (s *Sheet) get(ctx context.Context, sheet string) ([]models.Row, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/"+url.PathEscape(sheet), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("sheet %s: unexpected status %d", sheet, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetBytes))
	if err != nil {
		return nil, "", fmt.Errorf("sheet %s: read body: %w", sheet, err)
	}
	return decode(body)
}
