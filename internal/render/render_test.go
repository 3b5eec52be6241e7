package render

import (
	"bytes"
	"html"
	"slices"
	"strings"
	"testing"

	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/models"
	"github.com/starford/mediashelf/internal/sortstate"
)

func category(t *testing.T, key string) catalog.CategoryConfig {
	t.Helper()
	cfg, ok := catalog.Default().Lookup(key)
	if !ok {
		t.Fatalf("no category %q", key)
	}
	return cfg
}

func TestTier_Boundaries(t *testing.T) {
	cases := map[int]string{100: TierHigh, 75: TierHigh, 74: TierMid, 50: TierMid, 49: TierLow, 0: TierLow}
	for rating, want := range cases {
		if got := Tier(rating); got != want {
			t.Errorf("Tier(%d) = %q, want %q", rating, got, want)
		}
	}
}

func TestBuild_DateLineGatedByCapability(t *testing.T) {
	items := []models.Item{
		{Title: "Dated", DateCompleted: "2024-02-03", Rating: models.IntPtr(90)},
		{Title: "Undated", Rating: models.IntPtr(60)},
	}
	list := Build(category(t, "visualnovels"), items, "")
	if list.Cards[0].Date != "Completed: Feb 3, 2024" {
		t.Errorf("date = %q", list.Cards[0].Date)
	}
	if list.Cards[1].Date != "Completed: Unknown" {
		t.Errorf("missing date = %q", list.Cards[1].Date)
	}

	movies := Build(category(t, "movies"), []models.Item{{Title: "M", DateCompleted: "2024-02-03", Details: "x"}}, "")
	if movies.Cards[0].Date != "" || movies.Cards[0].Details != "" {
		t.Errorf("movies card should not carry date or details: %+v", movies.Cards[0])
	}
}

func TestBuild_OptionalLines(t *testing.T) {
	books := Build(category(t, "books"), []models.Item{{Title: "Dune", Author: "Frank Herbert", Rating: models.IntPtr(95)}}, "")
	if books.Cards[0].Author != "by Frank Herbert" {
		t.Errorf("author = %q", books.Cards[0].Author)
	}
	if books.Cards[0].Rating == nil || books.Cards[0].Rating.Class != "rating-high" {
		t.Errorf("rating = %+v", books.Cards[0].Rating)
	}

	tv := Build(category(t, "tvseries"), []models.Item{{Title: "Show", SeasonsWatched: models.IntPtr(0)}}, "")
	if tv.Cards[0].Seasons != "Seasons watched: 0" {
		t.Errorf("seasons = %q", tv.Cards[0].Seasons)
	}
}

func TestBuild_CoverPlaceholderAndLink(t *testing.T) {
	list := Build(category(t, "movies"), []models.Item{
		{Title: "NoCover", Link: "https://example.com/m"},
		{Title: "Cover", Cover: "https://img.example/c.jpg"},
	}, "")
	if list.Cards[0].Cover != PlaceholderImage {
		t.Errorf("cover = %q, want placeholder", list.Cards[0].Cover)
	}
	if list.Cards[0].Href != "https://example.com/m" {
		t.Errorf("href = %q", list.Cards[0].Href)
	}
	if list.Cards[1].Fallback != PlaceholderImage {
		t.Error("every card needs the load-failure fallback")
	}
}

func TestBuild_StatusDots(t *testing.T) {
	backlog := Build(category(t, "backlog"), []models.Item{
		{Title: "a", Status: "Current", Rating: models.IntPtr(80)},
		{Title: "b", Status: "TODO"},
		{Title: "c", Status: "dropped"},
		{Title: "d", Status: "whenever"},
	}, "")
	var dots []string
	for _, c := range backlog.Cards {
		dots = append(dots, c.StatusDot)
	}
	if want := []string{DotGreen, DotYellow, DotRed, ""}; !slices.Equal(dots, want) {
		t.Errorf("dots = %v, want %v", dots, want)
	}
	if backlog.Cards[0].Rating != nil {
		t.Error("backlog cards carry no rating badge")
	}

	games := Build(category(t, "games"), []models.Item{{Title: "g", Status: "playing"}, {Title: "h", Status: "sometimes"}}, "")
	if games.Cards[0].StatusDot != DotGreen || games.Cards[1].StatusDot != DotYellow {
		t.Errorf("games dots = %q %q", games.Cards[0].StatusDot, games.Cards[1].StatusDot)
	}

	movies := Build(category(t, "movies"), []models.Item{{Title: "m", Status: "playing"}}, "")
	if movies.Cards[0].StatusDot != "" {
		t.Error("status dots are gated by capability")
	}
}

func TestBuild_EmptyMessages(t *testing.T) {
	cfg := category(t, "movies")
	list := Build(cfg, nil, "")
	if list.Count != 0 || list.Empty != "No movies yet." {
		t.Errorf("empty = %+v", list)
	}
	list = Build(cfg, []models.Item{}, "zz")
	if list.Count != 0 || list.Empty != `No results for "zz".` {
		t.Errorf("no results = %+v", list)
	}
	if got := FailureMessage(cfg); got != "Could not load movies data." {
		t.Errorf("failure = %q", got)
	}
}

func TestHTML_EscapesAndWiresFallback(t *testing.T) {
	list := Build(category(t, "games"), []models.Item{{
		Title:   `<script>alert("x")</script>`,
		Details: "Tom & Jerry",
		Link:    "https://example.com/g",
		Rating:  models.IntPtr(77),
	}}, "")

	var buf bytes.Buffer
	if err := HTML(&buf, list); err != nil {
		t.Fatalf("HTML: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<script>") {
		t.Error("title was not escaped")
	}
	if !strings.Contains(out, "Tom &amp; Jerry") {
		t.Error("details were not escaped")
	}
	if !strings.Contains(out, `href="https://example.com/g"`) {
		t.Error("missing outbound link wrapper")
	}
	if !strings.Contains(out, "onerror=") {
		t.Error("missing load-failure handler")
	}
	// The template escapes "+" in attributes, so compare the decoded markup.
	if !strings.Contains(html.UnescapeString(out), `src="data:image/svg+xml`) {
		t.Errorf("placeholder cover not rendered: %s", out)
	}
	if !strings.Contains(out, "rating-high") {
		t.Error("missing rating class")
	}
}

func TestHTML_EmptyGrid(t *testing.T) {
	var buf bytes.Buffer
	if err := HTML(&buf, Build(category(t, "anime"), nil, "zz")); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `data-count="0"`) || !strings.Contains(out, "No results for") {
		t.Errorf("unexpected empty fragment: %s", out)
	}
}

func TestRequirementsFor(t *testing.T) {
	games := RequirementsFor(category(t, "games"))
	if want := []sortstate.Type{sortstate.Status, sortstate.Date, sortstate.Rating, sortstate.Alpha}; !slices.Equal(games.Controls, want) {
		t.Errorf("games controls = %v", games.Controls)
	}
	if !games.StatusLegend || games.RandomPick {
		t.Errorf("games requirements = %+v", games)
	}

	backlog := RequirementsFor(category(t, "backlog"))
	if want := []sortstate.Type{sortstate.BacklogStatus, sortstate.Alpha}; !slices.Equal(backlog.Controls, want) {
		t.Errorf("backlog controls = %v", backlog.Controls)
	}
	if !backlog.RandomPick || !backlog.BacklogLegend {
		t.Errorf("backlog requirements = %+v", backlog)
	}

	books := RequirementsFor(category(t, "books"))
	if !slices.Contains(books.Controls, sortstate.Author) {
		t.Error("books should expose the author control")
	}
}
