// Package engine turns a loaded item list, a sort state and a search query into the
// ordered, filtered list that gets rendered.
package engine

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/mediashelf/internal/models"
	"github.com/starford/mediashelf/internal/sortstate"
)

// Apply filters items by query and then sorts them. The input is never modified.
func Apply(items []models.Item, state sortstate.State, query string) []models.Item {
	return Sort(Filter(items, query), state)
}

// Filter keeps the items whose title contains query, ignoring case.
// A blank query returns a copy of items in the same order.
func Filter(items []models.Item, query string) []models.Item {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if q == "" || strings.Contains(strings.ToLower(it.Title), q) {
			out = append(out, it)
		}
	}
	return out
}

// Sort returns a stably sorted copy of items. Position 1 reverses the comparator,
// not the result, so ties keep their original order in both directions.
func Sort(items []models.Item, state sortstate.State) []models.Item {
	out := slices.Clone(items)
	if out == nil {
		out = []models.Item{}
	}
	desc := state.Position == 1

	switch state.Type {
	case sortstate.Status:
		slices.SortStableFunc(out, byPriority(StatusPriority, desc))
	case sortstate.BacklogStatus:
		slices.SortStableFunc(out, byPriority(BacklogPriority, desc))
	case sortstate.Date:
		slices.SortStableFunc(out, byDate(!desc))
	case sortstate.Rating:
		slices.SortStableFunc(out, byRating(!desc))
	case sortstate.Author:
		slices.SortStableFunc(out, byText(func(it models.Item) string { return it.Author }, desc))
	case sortstate.Alpha:
		slices.SortStableFunc(out, byText(func(it models.Item) string { return it.Title }, desc))
	}
	return out
}

// StatusPriority ranks in-progress statuses: playing, then sometimes, then everything else.
func StatusPriority(status string) int {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "playing":
		return 1
	case "sometimes":
		return 2
	default:
		return 3
	}
}

// BacklogPriority ranks backlog statuses: current, todo, dropped, then everything else.
func BacklogPriority(status string) int {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "current":
		return 1
	case "todo":
		return 2
	case "dropped":
		return 3
	default:
		return 4
	}
}

func byPriority(rank func(string) int, reverse bool) func(a, b models.Item) int {
	return func(a, b models.Item) int {
		d := rank(a.Status) - rank(b.Status)
		if reverse {
			return -d
		}
		return d
	}
}

// byDate puts dated items first in either direction.
func byDate(newestFirst bool) func(a, b models.Item) int {
	return func(a, b models.Item) int {
		ta, okA := a.Completed()
		tb, okB := b.Completed()
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return 1
		case !okB:
			return -1
		}
		if newestFirst {
			return tb.Compare(ta)
		}
		return ta.Compare(tb)
	}
}

// byRating puts rated items first in either direction.
func byRating(highFirst bool) func(a, b models.Item) int {
	return func(a, b models.Item) int {
		switch {
		case a.Rating == nil && b.Rating == nil:
			return 0
		case a.Rating == nil:
			return 1
		case b.Rating == nil:
			return -1
		}
		if highFirst {
			return cmp.Compare(*b.Rating, *a.Rating)
		}
		return cmp.Compare(*a.Rating, *b.Rating)
	}
}

func byText(field func(models.Item) string, reverse bool) func(a, b models.Item) int {
	// A collator keeps internal buffers, so each sort gets its own.
	c := collate.New(language.English)
	return func(a, b models.Item) int {
		d := c.CompareString(field(a), field(b))
		if reverse {
			return -d
		}
		return d
	}
}
