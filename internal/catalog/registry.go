// Package catalog holds the static category registry consulted by every other component.
package catalog

import "maps"

// Aggregate view keys. They are routed by the controller, not looked up in the registry.
const (
	HomeKey  = "home"
	StatsKey = "stats"
)

// Caps is the closed set of capabilities a category can have.
type Caps struct {
	HasDate           bool `json:"hasDate"`
	HasDetails        bool `json:"hasDetails"`
	HasLink           bool `json:"hasLink"`
	HasAuthor         bool `json:"hasAuthor"`
	HasSeasons        bool `json:"hasSeasons"`
	HasStatus         bool `json:"hasStatus"`
	HasBacklogStatus  bool `json:"hasBacklogStatus"`
	HasTwoStateRating bool `json:"hasTwoStateRating"`
}

// CategoryConfig describes one category.
type CategoryConfig struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Locator string   `json:"-"`
	Caps    Caps     `json:"caps"`
	Fields  []string `json:"fields"`
}

// Registry maps category keys to their configuration. It is immutable once built.
type Registry struct {
	order   []string
	entries map[string]CategoryConfig
}

// NewRegistry builds a registry keeping the given order. Later duplicates replace earlier ones.
func NewRegistry(cfgs ...CategoryConfig) *Registry {
	r := &Registry{entries: make(map[string]CategoryConfig, len(cfgs))}
	for _, c := range cfgs {
		if c.Locator == "" {
			c.Locator = c.Key
		}
		if _, ok := r.entries[c.Key]; !ok {
			r.order = append(r.order, c.Key)
		}
		r.entries[c.Key] = c
	}
	return r
}

// Default returns the registry of all tracked media categories.
func Default() *Registry {
	return NewRegistry(
		CategoryConfig{
			Key:    "games",
			Title:  "Games",
			Caps:   Caps{HasDate: true, HasDetails: true, HasLink: true, HasStatus: true},
			Fields: []string{"title", "cover", "rating", "details", "dateCompleted", "status", "link"},
		},
		CategoryConfig{
			Key:    "visualnovels",
			Title:  "Visual Novels",
			Caps:   Caps{HasDate: true, HasDetails: true, HasLink: true},
			Fields: []string{"title", "cover", "rating", "details", "dateCompleted", "link"},
		},
		CategoryConfig{
			Key:    "movies",
			Title:  "Movies",
			Caps:   Caps{HasLink: true},
			Fields: []string{"title", "cover", "rating", "link"},
		},
		CategoryConfig{
			Key:    "tvseries",
			Title:  "TV Series",
			Caps:   Caps{HasSeasons: true, HasLink: true},
			Fields: []string{"title", "cover", "rating", "seasonsWatched", "link"},
		},
		CategoryConfig{
			Key:    "anime",
			Title:  "Anime",
			Caps:   Caps{HasLink: true},
			Fields: []string{"title", "cover", "rating", "link"},
		},
		CategoryConfig{
			Key:    "manga",
			Title:  "Manga",
			Caps:   Caps{HasLink: true},
			Fields: []string{"title", "cover", "rating", "link"},
		},
		CategoryConfig{
			Key:    "books",
			Title:  "Books",
			Caps:   Caps{HasAuthor: true, HasLink: true},
			Fields: []string{"title", "author", "cover", "rating", "link"},
		},
		CategoryConfig{
			Key:    "backlog",
			Title:  "Backlog",
			Caps:   Caps{HasDetails: true, HasLink: true, HasBacklogStatus: true},
			Fields: []string{"title", "cover", "details", "status", "link"},
		},
	)
}

// Lookup returns the configuration for key.
func (r *Registry) Lookup(key string) (CategoryConfig, bool) {
	c, ok := r.entries[key]
	return c, ok
}

// Keys returns every category key in registry order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every category in registry order.
func (r *Registry) All() []CategoryConfig {
	out := make([]CategoryConfig, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.entries[k])
	}
	return out
}

// DateTracked returns the categories that record a completion date.
func (r *Registry) DateTracked() []CategoryConfig {
	return r.filter(func(c CategoryConfig) bool { return c.Caps.HasDate })
}

// Tracked returns the categories of consumed media, i.e. everything but backlogs.
func (r *Registry) Tracked() []CategoryConfig {
	return r.filter(func(c CategoryConfig) bool { return !c.Caps.HasBacklogStatus })
}

// Backlogs returns the categories tracked by backlog status.
func (r *Registry) Backlogs() []CategoryConfig {
	return r.filter(func(c CategoryConfig) bool { return c.Caps.HasBacklogStatus })
}

// WithLocators returns a copy of the registry with data locators replaced for the given keys.
// Unknown keys are ignored.
func (r *Registry) WithLocators(overrides map[string]string) *Registry {
	out := &Registry{
		order:   append([]string(nil), r.order...),
		entries: maps.Clone(r.entries),
	}
	for key, loc := range overrides {
		c, ok := out.entries[key]
		if !ok || loc == "" {
			continue
		}
		c.Locator = loc
		out.entries[key] = c
	}
	return out
}

func (r *Registry) filter(keep func(CategoryConfig) bool) []CategoryConfig {
	var out []CategoryConfig
	for _, k := range r.order {
		if c := r.entries[k]; keep(c) {
			out = append(out, c)
		}
	}
	return out
}
