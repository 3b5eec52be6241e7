package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/mediashelf/internal/apperr"
	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/controller"
	"github.com/starford/mediashelf/internal/models"
	"github.com/starford/mediashelf/internal/testutil"
)

// testEnv sets up a stub source, a session store and the API router.
func testEnv(t *testing.T, src *testutil.StubSource) (*Sessions, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, src, nil)
}

func testEnvWithSSE(t *testing.T, src *testutil.StubSource, sse http.Handler) (*Sessions, http.Handler) {
	t.Helper()
	reg := catalog.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := NewSessions(func() *controller.Controller {
		return controller.New(reg, src,
			controller.WithLogger(logger),
			controller.WithRand(func(int) int { return 0 }))
	}, time.Hour)
	return sessions, NewRouter(reg, sessions, sse)
}

// client replays the session cookie across requests.
type client struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

func (c *client) do(method, path string, body []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == CookieName {
			c.cookie = ck
		}
	}
	return w
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) controller.Page {
	t.Helper()
	var p controller.Page
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode page: %v; body = %s", err, w.Body.String())
	}
	return p
}

func booksSource() *testutil.StubSource {
	return testutil.NewStubSource().
		Set("books", []models.Item{
			{Title: "B", Author: "Zed", Rating: models.IntPtr(80)},
			{Title: "A", Author: "Amy", Rating: models.IntPtr(60)},
		}, "bg/books.jpg").
		Set("backlog", []models.Item{
			{Title: "Outer Wilds", Status: "TODO"},
			{Title: "Hades", Status: "current"},
		}, "")
}

func TestListCategories(t *testing.T) {
	_, router := testEnv(t, testutil.NewStubSource())
	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp CategoryListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Categories) != 8 || resp.Categories[0].Key != "games" {
		t.Fatalf("categories = %+v", resp.Categories)
	}
	if resp.Categories[7].Requirements.RandomPick != true {
		t.Error("backlog should offer a random pick")
	}
	if len(resp.Views) != 2 {
		t.Errorf("views = %v", resp.Views)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("category listing should not start a session")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	sessions, router := testEnv(t, booksSource())
	c := &client{t: t, router: router}

	w := c.do(http.MethodPost, "/view/books", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("navigate = %d, body = %s", w.Code, w.Body.String())
	}
	if c.cookie == nil {
		t.Fatal("no session cookie set")
	}
	p := decodePage(t, w)
	if p.Category != "books" || p.Background != "bg/books.jpg" || p.Cards.Count != 2 {
		t.Errorf("page = %+v", p)
	}

	w = c.do(http.MethodPost, "/view/sort/author", nil)
	p = decodePage(t, w)
	if p.Cards.Cards[0].Title != "A" || p.SortLabel == "" {
		t.Errorf("after author sort: %+v", p.Cards.Cards)
	}

	w = c.do(http.MethodGet, "/view", nil)
	if p := decodePage(t, w); p.Sort == nil || p.Sort.Type != "author" {
		t.Errorf("current sort = %+v", p.Sort)
	}
	if sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", sessions.Len())
	}

	// A second browser has its own state.
	other := &client{t: t, router: router}
	if p := decodePage(t, other.do(http.MethodGet, "/view", nil)); p.View != controller.ViewNone {
		t.Errorf("fresh session view = %q", p.View)
	}
	if sessions.Len() != 2 {
		t.Errorf("sessions = %d, want 2", sessions.Len())
	}
}

func TestNavigate_UnknownCategoryNoContent(t *testing.T) {
	_, router := testEnv(t, booksSource())
	c := &client{t: t, router: router}
	c.do(http.MethodPost, "/view/books", nil)

	w := c.do(http.MethodPost, "/view/podcasts", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("unknown category = %d, want 204", w.Code)
	}
	if p := decodePage(t, c.do(http.MethodGet, "/view", nil)); p.Category != "books" {
		t.Errorf("category = %q after unknown navigation", p.Category)
	}
}

func TestNavigate_FailurePage(t *testing.T) {
	_, router := testEnv(t, testutil.NewStubSource().Fail("games", apperr.ErrFetch))
	c := &client{t: t, router: router}

	p := decodePage(t, c.do(http.MethodPost, "/view/games", nil))
	if p.Failure != "Could not load games data." || p.Background != "none" {
		t.Errorf("page = %+v", p)
	}

	w := c.do(http.MethodGet, "/view/cards", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Could not load games data.") {
		t.Errorf("cards = %d %s", w.Code, w.Body.String())
	}
}

func TestSort_Errors(t *testing.T) {
	_, router := testEnv(t, booksSource())
	c := &client{t: t, router: router}
	c.do(http.MethodPost, "/view/backlog", nil)

	if w := c.do(http.MethodPost, "/view/sort/loudness", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown control = %d, want 400", w.Code)
	}
	if w := c.do(http.MethodPost, "/view/sort/rating", nil); w.Code != http.StatusBadRequest {
		t.Errorf("rating on backlog = %d, want 400", w.Code)
	}
}

func TestSearchAndCards(t *testing.T) {
	_, router := testEnv(t, booksSource())
	c := &client{t: t, router: router}
	c.do(http.MethodPost, "/view/books", nil)

	body, _ := json.Marshal(SearchRequest{Query: "zz"})
	p := decodePage(t, c.do(http.MethodPost, "/view/search", body))
	if p.Query != "zz" || p.Cards.Count != 0 {
		t.Errorf("page = %+v", p)
	}

	w := c.do(http.MethodGet, "/view/cards", nil)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `data-count="0"`) || !strings.Contains(w.Body.String(), "No results for") {
		t.Errorf("cards = %s", w.Body.String())
	}

	if w := c.do(http.MethodPost, "/view/search", []byte("{")); w.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d, want 400", w.Code)
	}
}

func TestCards_NoCategory(t *testing.T) {
	_, router := testEnv(t, booksSource())
	c := &client{t: t, router: router}
	if w := c.do(http.MethodGet, "/view/cards", nil); w.Code != http.StatusNoContent {
		t.Errorf("cards without category = %d, want 204", w.Code)
	}
}

func TestPickRandom(t *testing.T) {
	_, router := testEnv(t, booksSource())
	c := &client{t: t, router: router}

	if w := c.do(http.MethodPost, "/view/random", nil); w.Code != http.StatusBadRequest {
		t.Errorf("random outside backlog = %d, want 400", w.Code)
	}

	c.do(http.MethodPost, "/view/backlog", nil)
	w := c.do(http.MethodPost, "/view/random", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("random = %d, body = %s", w.Code, w.Body.String())
	}
	var pick Pick
	_ = json.Unmarshal(w.Body.Bytes(), &pick)
	if pick.Item.Title != "Outer Wilds" || pick.Index != 1 {
		t.Errorf("pick = %+v", pick)
	}
}

func TestPickRandom_NothingToPick(t *testing.T) {
	src := testutil.NewStubSource().Set("backlog", []models.Item{{Title: "Hades", Status: "current"}}, "")
	_, router := testEnv(t, src)
	c := &client{t: t, router: router}
	c.do(http.MethodPost, "/view/backlog", nil)
	if w := c.do(http.MethodPost, "/view/random", nil); w.Code != http.StatusNotFound {
		t.Errorf("random with no todo = %d, want 404", w.Code)
	}
}

func TestHomeAndStats(t *testing.T) {
	src := booksSource().SetHome(&models.HomeDoc{Introduction: "Welcome"}, nil)
	_, router := testEnv(t, src)
	c := &client{t: t, router: router}

	p := decodePage(t, c.do(http.MethodGet, "/home", nil))
	if p.View != controller.ViewHome || p.Home == nil || p.Home.Introduction != "Welcome" {
		t.Errorf("home = %+v", p)
	}
	if len(p.Home.InProgress) != 1 || p.Home.InProgress[0].Title != "Hades" {
		t.Errorf("in progress = %+v", p.Home.InProgress)
	}

	p = decodePage(t, c.do(http.MethodGet, "/stats", nil))
	if p.View != controller.ViewStats || p.Stats == nil || p.Stats.Total != 2 {
		t.Errorf("stats = %+v", p.Stats)
	}

	// Navigating by key reaches the same overview.
	if p := decodePage(t, c.do(http.MethodPost, "/view/stats", nil)); p.View != controller.ViewStats {
		t.Errorf("view = %q", p.View)
	}
}

func TestStats_AggregateFailure(t *testing.T) {
	_, router := testEnv(t, booksSource().Fail("movies", apperr.ErrFetch))
	c := &client{t: t, router: router}

	w := c.do(http.MethodGet, "/stats", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("stats = %d, want 502", w.Code)
	}
	var resp errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "Could not load stats." {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestSSEEvents_Mounted(t *testing.T) {
	called := make(chan struct{}, 1)
	sse := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		called <- struct{}{}
		<-r.Context().Done()
	})
	sessions, router := testEnvWithSSE(t, booksSource(), sse)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("SSE handler not reached")
	}
	cancel()
	<-done

	if sessions.Len() != 0 {
		t.Error("event stream should not open a session")
	}
}

func TestSessions_IdleExpiry(t *testing.T) {
	sessions, router := testEnv(t, booksSource())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return now }

	c := &client{t: t, router: router}
	c.do(http.MethodPost, "/view/books", nil)
	first := c.cookie.Value

	now = now.Add(2 * time.Hour)
	c.do(http.MethodGet, "/view", nil)
	if c.cookie.Value == first {
		t.Error("expired session was reused")
	}
	if sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", sessions.Len())
	}
}
