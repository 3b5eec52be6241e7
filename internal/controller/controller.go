// Package controller owns the session state of one catalog viewer and orchestrates
// registry lookups, data loads, sorting, filtering and rendering.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/starford/mediashelf/internal/aggregate"
	"github.com/starford/mediashelf/internal/apperr"
	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/engine"
	"github.com/starford/mediashelf/internal/models"
	"github.com/starford/mediashelf/internal/render"
	"github.com/starford/mediashelf/internal/sortstate"
	"github.com/starford/mediashelf/internal/source"
)

// View kinds.
const (
	ViewNone     = ""
	ViewCategory = "category"
	ViewHome     = catalog.HomeKey
	ViewStats    = catalog.StatsKey
)

// SessionState is the mutable state of one viewer session.
type SessionState struct {
	Category   string
	Items      []models.Item
	Background string
	Failure    string
	Loading    bool
	Generation uint64
	Sorts      map[string]sortstate.State
	Queries    map[string]string

	home  *aggregate.Home
	stats *aggregate.Stats
}

// Page is a snapshot of what the viewer should currently show.
type Page struct {
	View         string               `json:"view"`
	Category     string               `json:"category,omitempty"`
	Title        string               `json:"title,omitempty"`
	Requirements *render.Requirements `json:"requirements,omitempty"`
	Sort         *sortstate.State     `json:"sort,omitempty"`
	SortLabel    string               `json:"sortLabel,omitempty"`
	Query        string               `json:"query"`
	Background   string               `json:"background"`
	Cards        *render.CardList     `json:"cards,omitempty"`
	Failure      string               `json:"failure,omitempty"`
	Loading      bool                 `json:"loading,omitempty"`
	Home         *aggregate.Home      `json:"home,omitempty"`
	Stats        *aggregate.Stats     `json:"stats,omitempty"`
	Generation   uint64               `json:"generation"`
}

// Pick is the result of a random backlog pick.
type Pick struct {
	Item models.Item `json:"item"`
	// Index is the position of the picked card in the current grid, or -1 when the
	// active search hides it.
	Index int `json:"index"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithRand replaces the source of randomness used by PickRandom. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(c *Controller) {
		c.intn = intn
	}
}

// WithAggregate sets the builder used for the home and stats views.
func WithAggregate(b *aggregate.Builder) Option {
	return func(c *Controller) {
		c.agg = b
	}
}

// Controller is safe for concurrent use. Loads run outside the lock and are
// discarded when a newer navigation has started in the meantime.
type Controller struct {
	reg    *catalog.Registry
	src    source.Fetcher
	agg    *aggregate.Builder
	logger *slog.Logger
	intn   func(n int) int

	mu    sync.Mutex
	state SessionState
}

// New creates a controller with an empty session.
func New(reg *catalog.Registry, src source.Fetcher, opts ...Option) *Controller {
	c := &Controller{
		reg:    reg,
		src:    src,
		logger: slog.Default(),
		intn:   rand.IntN,
		state: SessionState{
			Background: models.DefaultBackground,
			Sorts:      make(map[string]sortstate.State),
			Queries:    make(map[string]string),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.agg == nil {
		c.agg = aggregate.NewBuilder(reg, src)
	}
	return c
}

// Registry returns the registry the controller navigates.
func (c *Controller) Registry() *catalog.Registry {
	return c.reg
}

// Navigate switches to a category, or to the home or stats view, and loads its data.
// A failed category load is not an error: the returned page carries the failure message.
func (c *Controller) Navigate(ctx context.Context, key string) (Page, error) {
	switch key {
	case catalog.HomeKey:
		return c.Home(ctx)
	case catalog.StatsKey:
		return c.Stats(ctx)
	}

	cfg, ok := c.reg.Lookup(key)
	if !ok {
		return Page{}, fmt.Errorf("%w: %q", apperr.ErrUnknownCategory, key)
	}

	gen := c.begin(key)
	payload, err := c.src.Fetch(ctx, cfg)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Generation != gen {
		return Page{}, fmt.Errorf("%w: %s", apperr.ErrStaleLoad, key)
	}
	c.state.Loading = false
	if err != nil {
		c.logger.Warn("category load failed",
			slog.String("category", key),
			slog.String("error", err.Error()))
		c.state.Items = []models.Item{}
		c.state.Background = models.DefaultBackground
		c.state.Failure = render.FailureMessage(cfg)
		return c.pageLocked(), nil
	}
	c.state.Items = payload.Items
	c.state.Background = payload.Background
	return c.pageLocked(), nil
}

// Home switches to the home overview. The view is built only when every fetch succeeds.
func (c *Controller) Home(ctx context.Context) (Page, error) {
	gen := c.begin(catalog.HomeKey)
	home, err := c.agg.Home(ctx)
	return c.finishAggregate(gen, catalog.HomeKey, err, func(s *SessionState) { s.home = home })
}

// Stats switches to the statistics overview.
func (c *Controller) Stats(ctx context.Context) (Page, error) {
	gen := c.begin(catalog.StatsKey)
	stats, err := c.agg.Stats(ctx)
	return c.finishAggregate(gen, catalog.StatsKey, err, func(s *SessionState) { s.stats = stats })
}

// begin starts a navigation and returns its generation. The previous view's
// background is dropped until the new data arrives.
func (c *Controller) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Generation++
	c.state.Category = key
	c.state.Items = nil
	c.state.Failure = ""
	c.state.Loading = true
	c.state.home, c.state.stats = nil, nil
	c.state.Background = models.DefaultBackground
	return c.state.Generation
}

func (c *Controller) finishAggregate(gen uint64, key string, err error, store func(*SessionState)) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Generation != gen {
		return Page{}, fmt.Errorf("%w: %s", apperr.ErrStaleLoad, key)
	}
	c.state.Loading = false
	if err != nil {
		c.logger.Warn("overview load failed",
			slog.String("view", key),
			slog.String("error", err.Error()))
		c.state.Failure = fmt.Sprintf("Could not load %s.", key)
		return c.pageLocked(), err
	}
	store(&c.state)
	return c.pageLocked(), nil
}

// Activate applies a sort control to the current category.
func (c *Controller) Activate(control sortstate.Type) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, ok := c.reg.Lookup(c.state.Category)
	if !ok || !sortstate.Available(cfg.Caps, control) {
		return Page{}, fmt.Errorf("%w: %s", apperr.ErrControlUnavailable, control)
	}
	c.state.Sorts[cfg.Key] = sortstate.Transition(cfg.Caps, c.sortLocked(cfg), control)
	return c.pageLocked(), nil
}

// Search sets the search text of the current category.
func (c *Controller) Search(query string) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, ok := c.reg.Lookup(c.state.Category)
	if !ok {
		return Page{}, fmt.Errorf("%w: search", apperr.ErrControlUnavailable)
	}
	c.state.Queries[cfg.Key] = query
	return c.pageLocked(), nil
}

// PickRandom draws uniformly among the loaded backlog items whose status is todo.
func (c *Controller) PickRandom() (Pick, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, ok := c.reg.Lookup(c.state.Category)
	if !ok || !cfg.Caps.HasBacklogStatus {
		return Pick{}, fmt.Errorf("%w: random pick", apperr.ErrControlUnavailable)
	}
	var todo []models.Item
	for _, it := range c.state.Items {
		if it.StatusIs("todo") {
			todo = append(todo, it)
		}
	}
	if len(todo) == 0 {
		return Pick{}, apperr.ErrNothingToPick
	}
	picked := todo[c.intn(len(todo))]

	p := Pick{Item: picked, Index: -1}
	for i, it := range c.visibleLocked(cfg) {
		if it.Title == picked.Title {
			p.Index = i
			break
		}
	}
	return p, nil
}

// Current returns the page for the current state without loading anything.
func (c *Controller) Current() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageLocked()
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Items = append([]models.Item(nil), c.state.Items...)
	s.Sorts = maps.Clone(c.state.Sorts)
	s.Queries = maps.Clone(c.state.Queries)
	return s
}

func (c *Controller) sortLocked(cfg catalog.CategoryConfig) sortstate.State {
	if s, ok := c.state.Sorts[cfg.Key]; ok {
		return s
	}
	return sortstate.Default(cfg.Caps)
}

// visibleLocked filters and sorts the loaded items. The stored list is never reordered.
func (c *Controller) visibleLocked(cfg catalog.CategoryConfig) []models.Item {
	return engine.Apply(c.state.Items, c.sortLocked(cfg), c.state.Queries[cfg.Key])
}

func (c *Controller) pageLocked() Page {
	p := Page{
		Background: c.state.Background,
		Failure:    c.state.Failure,
		Loading:    c.state.Loading,
		Generation: c.state.Generation,
	}
	switch c.state.Category {
	case "":
		p.View = ViewNone
		return p
	case catalog.HomeKey:
		p.View, p.Title, p.Home = ViewHome, "Home", c.state.home
		return p
	case catalog.StatsKey:
		p.View, p.Title, p.Stats = ViewStats, "Stats", c.state.stats
		return p
	}

	cfg, _ := c.reg.Lookup(c.state.Category)
	sort := c.sortLocked(cfg)
	req := render.RequirementsFor(cfg)
	p.View = ViewCategory
	p.Category = cfg.Key
	p.Title = cfg.Title
	p.Requirements = &req
	p.Sort = &sort
	p.SortLabel = sort.Label()
	p.Query = c.state.Queries[cfg.Key]

	if c.state.Loading || c.state.Failure != "" {
		p.Cards = &render.CardList{Category: cfg.Key, Cards: []render.Card{}}
		return p
	}
	cards := render.Build(cfg, c.visibleLocked(cfg), strings.TrimSpace(p.Query))
	p.Cards = &cards
	return p
}
