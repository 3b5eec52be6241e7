// Package aggregate builds the Home and Stats overviews by fanning out to every
// relevant category at once. A view is either assembled from all of its fetches or
// not at all.
package aggregate

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/mediashelf/internal/apperr"
	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/engine"
	"github.com/starford/mediashelf/internal/models"
	"github.com/starford/mediashelf/internal/sortstate"
	"github.com/starford/mediashelf/internal/source"
)

const (
	// RecentLimit caps the "recently completed" lists.
	RecentLimit = 5
	// TopLimit caps the per-category top-rated lists.
	TopLimit = 5

	// FirstYear is the first year with its own histogram bucket. Earlier years share one.
	FirstYear = 2020

	UnknownYear = "Unknown"
)

// RatingBuckets are the fixed labels of the per-category rating histogram.
var RatingBuckets = []string{"≤50", "51-60", "61-70", "71-80", "81-90", "91-100"}

// Entry is one item lifted out of its category for an overview list.
type Entry struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Cover    string `json:"cover,omitempty"`
	Rating   *int   `json:"rating,omitempty"`
	Date     string `json:"date,omitempty"`
	Status   string `json:"status,omitempty"`
	Link     string `json:"link,omitempty"`
}

// Home is the landing overview.
type Home struct {
	Introduction string            `json:"introduction"`
	Links        []models.HomeLink `json:"links"`
	Recent       []Entry           `json:"recent"`
	InProgress   []Entry           `json:"inProgress"`
}

// Bucket is one histogram bar.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CategoryStats summarises one tracked category.
type CategoryStats struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	Href          string   `json:"href"`
	Count         int      `json:"count"`
	AverageRating int      `json:"averageRating"`
	Ratings       []Bucket `json:"ratings"`
	Top           []Entry  `json:"top"`
	Recent        []Entry  `json:"recent,omitempty"`
}

// Stats is the statistics overview.
type Stats struct {
	Total      int             `json:"total"`
	Years      []Bucket        `json:"years"`
	Categories []CategoryStats `json:"categories"`
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source used for the year histogram.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithHrefPrefix sets the prefix of the links from a stats heading to its category view.
func WithHrefPrefix(prefix string) Option {
	return func(b *Builder) {
		b.hrefPrefix = prefix
	}
}

// Builder assembles overviews from a registry and a data source.
type Builder struct {
	reg        *catalog.Registry
	src        source.Fetcher
	now        func() time.Time
	hrefPrefix string
}

// NewBuilder creates a Builder.
func NewBuilder(reg *catalog.Registry, src source.Fetcher, opts ...Option) *Builder {
	b := &Builder{reg: reg, src: src, now: time.Now, hrefPrefix: "/"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Home fetches the home document, the date-tracked categories and the backlogs concurrently.
func (b *Builder) Home(ctx context.Context) (*Home, error) {
	dated := b.reg.DateTracked()
	backlogs := b.reg.Backlogs()

	var doc *models.HomeDoc

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := b.src.FetchHome(gCtx)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	fs := fetchAll(gCtx, g, b.src, unique(dated, backlogs))
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: home: %w", apperr.ErrAggregate, err)
	}
	payloads := fs.byKey()

	home := &Home{
		Introduction: doc.Introduction,
		Links:        doc.Links,
		Recent:       recent(dated, payloads, RecentLimit),
		InProgress:   []Entry{},
	}
	if home.Links == nil {
		home.Links = []models.HomeLink{}
	}
	for _, cfg := range backlogs {
		for _, it := range payloads[cfg.Key].Items {
			if it.StatusIs("current") {
				home.InProgress = append(home.InProgress, entry(cfg.Key, it))
			}
		}
	}
	return home, nil
}

// Stats fetches every tracked category concurrently and summarises them.
func (b *Builder) Stats(ctx context.Context) (*Stats, error) {
	tracked := b.reg.Tracked()

	g, gCtx := errgroup.WithContext(ctx)
	fs := fetchAll(gCtx, g, b.src, tracked)
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: stats: %w", apperr.ErrAggregate, err)
	}
	payloads := fs.byKey()

	current := b.now().Year()
	years := newYearHistogram(current)

	st := &Stats{Categories: make([]CategoryStats, 0, len(tracked))}
	for _, cfg := range tracked {
		items := payloads[cfg.Key].Items
		st.Total += len(items)

		cs := CategoryStats{
			Key:           cfg.Key,
			Title:         cfg.Title,
			Href:          b.hrefPrefix + cfg.Key,
			Count:         len(items),
			AverageRating: AverageRating(items),
			Ratings:       RatingHistogram(items),
			Top:           top(cfg.Key, items, TopLimit),
		}
		if cfg.Caps.HasDate {
			cs.Recent = recent([]catalog.CategoryConfig{cfg}, payloads, RecentLimit)
			for _, it := range items {
				years.add(it)
			}
		}
		st.Categories = append(st.Categories, cs)
	}
	st.Years = years.buckets()
	return st, nil
}

// fetchSet holds one payload slot per category, filled by goroutines of an errgroup.
type fetchSet struct {
	cfgs     []catalog.CategoryConfig
	payloads []*models.Payload
}

// fetchAll schedules one fetch per category on g. Read the set only after g.Wait succeeds.
func fetchAll(ctx context.Context, g *errgroup.Group, src source.Fetcher, cfgs []catalog.CategoryConfig) *fetchSet {
	fs := &fetchSet{cfgs: cfgs, payloads: make([]*models.Payload, len(cfgs))}
	for i, cfg := range cfgs {
		g.Go(func() error {
			p, err := src.Fetch(ctx, cfg)
			if err != nil {
				return err
			}
			fs.payloads[i] = p
			return nil
		})
	}
	return fs
}

func (fs *fetchSet) byKey() map[string]*models.Payload {
	out := make(map[string]*models.Payload, len(fs.cfgs))
	for i, cfg := range fs.cfgs {
		out[cfg.Key] = fs.payloads[i]
	}
	return out
}

func unique(groups ...[]catalog.CategoryConfig) []catalog.CategoryConfig {
	seen := make(map[string]bool)
	var out []catalog.CategoryConfig
	for _, group := range groups {
		for _, cfg := range group {
			if seen[cfg.Key] {
				continue
			}
			seen[cfg.Key] = true
			out = append(out, cfg)
		}
	}
	return out
}

// recent merges the dated items of cfgs and keeps the newest n. Undated items are left out.
func recent(cfgs []catalog.CategoryConfig, payloads map[string]*models.Payload, n int) []Entry {
	type dated struct {
		at time.Time
		e  Entry
	}
	var all []dated
	for _, cfg := range cfgs {
		for _, it := range payloads[cfg.Key].Items {
			if at, ok := it.Completed(); ok {
				all = append(all, dated{at: at, e: entry(cfg.Key, it)})
			}
		}
	}
	slices.SortStableFunc(all, func(a, b dated) int { return b.at.Compare(a.at) })

	out := make([]Entry, 0, min(n, len(all)))
	for _, d := range all[:min(n, len(all))] {
		out = append(out, d.e)
	}
	return out
}

// top returns the n highest rated items. Unrated items never qualify.
func top(key string, items []models.Item, n int) []Entry {
	sorted := engine.Sort(items, sortstate.State{Type: sortstate.Rating})
	out := make([]Entry, 0, n)
	for _, it := range sorted {
		if it.Rating == nil || len(out) == n {
			break
		}
		out = append(out, entry(key, it))
	}
	return out
}

// AverageRating is the rounded mean over rated items, or 0 when none are rated.
func AverageRating(items []models.Item) int {
	var sum, n int
	for _, it := range items {
		if it.Rating != nil {
			sum += *it.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}

// RatingHistogram counts rated items per RatingBuckets entry.
func RatingHistogram(items []models.Item) []Bucket {
	out := make([]Bucket, len(RatingBuckets))
	for i, label := range RatingBuckets {
		out[i].Label = label
	}
	for _, it := range items {
		if it.Rating != nil {
			out[ratingBucket(*it.Rating)].Count++
		}
	}
	return out
}

func ratingBucket(r int) int {
	if r <= 50 {
		return 0
	}
	return min((r-41)/10, len(RatingBuckets)-1)
}

type yearHistogram struct {
	current int
	counts  map[string]int
}

func newYearHistogram(current int) *yearHistogram {
	return &yearHistogram{current: max(current, FirstYear), counts: make(map[string]int)}
}

func (h *yearHistogram) add(it models.Item) {
	at, ok := it.Completed()
	switch {
	case !ok:
		h.counts[UnknownYear]++
	case at.Year() < FirstYear:
		h.counts[earlyLabel()]++
	default:
		h.counts[strconv.Itoa(min(at.Year(), h.current))]++
	}
}

func (h *yearHistogram) buckets() []Bucket {
	out := []Bucket{{Label: earlyLabel(), Count: h.counts[earlyLabel()]}}
	for y := FirstYear; y <= h.current; y++ {
		label := strconv.Itoa(y)
		out = append(out, Bucket{Label: label, Count: h.counts[label]})
	}
	return append(out, Bucket{Label: UnknownYear, Count: h.counts[UnknownYear]})
}

func earlyLabel() string {
	return "≤" + strconv.Itoa(FirstYear-1)
}

func entry(key string, it models.Item) Entry {
	e := Entry{
		Category: key,
		Title:    it.Title,
		Cover:    it.Cover,
		Rating:   it.Rating,
		Status:   it.Status,
		Link:     it.Link,
	}
	if at, ok := it.Completed(); ok {
		e.Date = models.FormatDate(at)
	}
	return e
}
