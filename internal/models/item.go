// Package models defines the domain types for mediashelf.
package models

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DefaultBackground is applied whenever a source does not supply a background.
const DefaultBackground = "none"

// Item is one catalog entry. Items are read-only snapshots of a category load.
type Item struct {
	Title          string `json:"title"`
	Cover          string `json:"cover,omitempty"`
	Rating         *int   `json:"rating,omitempty"`
	Details        string `json:"details,omitempty"`
	DateCompleted  string `json:"dateCompleted,omitempty"`
	Author         string `json:"author,omitempty"`
	SeasonsWatched *int   `json:"seasonsWatched,omitempty"`
	Status         string `json:"status,omitempty"`
	Link           string `json:"link,omitempty"`
}

// Completed returns the parsed completion date.
func (it Item) Completed() (time.Time, bool) {
	return ParseDate(it.DateCompleted)
}

// StatusIs reports whether the item's status equals s, ignoring case and surrounding space.
func (it Item) StatusIs(s string) bool {
	return strings.EqualFold(strings.TrimSpace(it.Status), s)
}

// Payload is the result of loading one category.
type Payload struct {
	Items      []Item `json:"items"`
	Background string `json:"background"`
}

// Row is one raw record as delivered by a source.
type Row = map[string]any

// NewPayload builds a payload from raw rows, applying the usual defaults.
func NewPayload(rows []Row, background string) *Payload {
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, ItemFromRow(r))
	}
	if strings.TrimSpace(background) == "" {
		background = DefaultBackground
	}
	return &Payload{Items: items, Background: background}
}

// ItemFromRow maps a raw row onto an Item. Numeric fields are coerced from strings so that
// "0" stays a real zero rather than collapsing into "no rating".
func ItemFromRow(r Row) Item {
	return Item{
		Title:          str(r, "title"),
		Cover:          str(r, "cover"),
		Rating:         intPtr(r, "rating"),
		Details:        str(r, "details"),
		DateCompleted:  str(r, "dateCompleted", "date_completed"),
		Author:         str(r, "author"),
		SeasonsWatched: intPtr(r, "seasonsWatched", "seasons_watched"),
		Status:         str(r, "status"),
		Link:           str(r, "link"),
	}
}

func lookup(r Row, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(r Row, keys ...string) string {
	v, ok := lookup(r, keys...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func intPtr(r Row, keys ...string) *int {
	v, ok := lookup(r, keys...)
	if !ok {
		return nil
	}
	if s, isStr := v.(string); isStr {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v = s
	}
	if n, err := cast.ToIntE(v); err == nil {
		return &n
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(math.Round(f))
	return &n
}

// IntPtr is a convenience for building items in code and tests.
func IntPtr(n int) *int { return &n }
