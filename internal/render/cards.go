// Package render maps an ordered item list and its category configuration onto cards.
//
// Optional card lines are gated by the category capabilities only, never by the
// presence of data on the item: a dated category always shows a date line, using
// "Unknown" when the item has none.
package render

import (
	"fmt"
	"strings"

	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/models"
)

// PlaceholderImage is shown when an item has no cover or its cover fails to load.
const PlaceholderImage = "data:image/svg+xml,<svg xmlns=%22http://www.w3.org/2000/svg%22 viewBox=%220 0 100 133%22><rect fill=%22%23f0f0f0%22 width=%22100%22 height=%22133%22/><text x=%2250%22 y=%2270%22 text-anchor=%22middle%22 fill=%22%23ccc%22 font-size=%2212%22>No Image</text></svg>"

// Rating tiers.
const (
	TierHigh = "high"
	TierMid  = "mid"
	TierLow  = "low"
)

// Status dot colors.
const (
	DotGreen  = "green"
	DotYellow = "yellow"
	DotRed    = "red"
)

// Badge is the colored rating badge of a card.
type Badge struct {
	Value int    `json:"value"`
	Tier  string `json:"tier"`
	Class string `json:"class"`
}

// Card is one renderable unit.
type Card struct {
	Title     string `json:"title"`
	Href      string `json:"href,omitempty"`
	Rating    *Badge `json:"rating,omitempty"`
	Cover     string `json:"cover"`
	Fallback  string `json:"fallback"`
	Details   string `json:"details,omitempty"`
	Author    string `json:"author,omitempty"`
	Seasons   string `json:"seasons,omitempty"`
	Date      string `json:"date,omitempty"`
	StatusDot string `json:"statusDot,omitempty"`
	Status    string `json:"status,omitempty"`
}

// CardList is the render result for one category view.
type CardList struct {
	Category string `json:"category"`
	Cards    []Card `json:"cards"`
	Count    int    `json:"count"`
	Empty    string `json:"empty,omitempty"`
}

// Tier returns the rating tier: 75 and above is high, 50 and above is mid.
func Tier(rating int) string {
	switch {
	case rating >= 75:
		return TierHigh
	case rating >= 50:
		return TierMid
	default:
		return TierLow
	}
}

// StatusColor maps a status onto its indicator dot for the given category.
// Unknown statuses have no dot.
func StatusColor(caps catalog.Caps, status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case caps.HasBacklogStatus:
		switch s {
		case "current":
			return DotGreen
		case "todo":
			return DotYellow
		case "dropped":
			return DotRed
		}
	case caps.HasStatus:
		switch s {
		case "playing":
			return DotGreen
		case "sometimes":
			return DotYellow
		}
	}
	return ""
}

// Build renders items, already filtered and sorted, for the category.
func Build(cfg catalog.CategoryConfig, items []models.Item, query string) CardList {
	list := CardList{Category: cfg.Key, Cards: make([]Card, 0, len(items)), Count: len(items)}
	for _, it := range items {
		list.Cards = append(list.Cards, buildCard(cfg.Caps, it))
	}
	if len(items) == 0 {
		list.Empty = EmptyMessage(cfg, query)
	}
	return list
}

func buildCard(caps catalog.Caps, it models.Item) Card {
	c := Card{
		Title:    it.Title,
		Cover:    it.Cover,
		Fallback: PlaceholderImage,
	}
	if c.Cover == "" {
		c.Cover = PlaceholderImage
	}
	if caps.HasLink && it.Link != "" {
		c.Href = it.Link
	}
	if !caps.HasBacklogStatus && it.Rating != nil {
		tier := Tier(*it.Rating)
		c.Rating = &Badge{Value: *it.Rating, Tier: tier, Class: "rating-" + tier}
	}
	if caps.HasDetails {
		c.Details = it.Details
	}
	if caps.HasAuthor && it.Author != "" {
		c.Author = "by " + it.Author
	}
	if caps.HasSeasons && it.SeasonsWatched != nil {
		c.Seasons = fmt.Sprintf("Seasons watched: %d", *it.SeasonsWatched)
	}
	if caps.HasDate {
		c.Date = "Completed: Unknown"
		if t, ok := it.Completed(); ok {
			c.Date = "Completed: " + models.FormatDate(t)
		}
	}
	if caps.HasStatus || caps.HasBacklogStatus {
		c.StatusDot = StatusColor(caps, it.Status)
		if c.StatusDot != "" {
			c.Status = strings.ToLower(strings.TrimSpace(it.Status))
		}
	}
	return c
}

// EmptyMessage is shown in place of the grid when there is nothing to show.
func EmptyMessage(cfg catalog.CategoryConfig, query string) string {
	if q := strings.TrimSpace(query); q != "" {
		return fmt.Sprintf("No results for %q.", q)
	}
	return fmt.Sprintf("No %s yet.", strings.ToLower(cfg.Title))
}

// FailureMessage is shown in place of the grid when a category fails to load.
func FailureMessage(cfg catalog.CategoryConfig) string {
	return fmt.Sprintf("Could not load %s data.", strings.ToLower(cfg.Title))
}
