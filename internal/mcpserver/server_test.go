package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/controller"
	"github.com/starford/mediashelf/internal/source"
	"github.com/starford/mediashelf/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	_, store := testutil.TestDataDir(t, map[string]any{
		"books": map[string]any{
			"background": "bg/books.jpg",
			"items": []any{
				map[string]any{"title": "B", "author": "Zed", "rating": 80},
				map[string]any{"title": "A", "author": "Amy", "rating": "60"},
			},
		},
		"backlog": []any{
			map[string]any{"title": "Tunic", "status": "TODO"},
			map[string]any{"title": "Hades", "status": "current"},
		},
		"games":        []any{map[string]any{"title": "Celeste", "dateCompleted": "2024-02-10"}},
		"visualnovels": []any{},
		"about": []any{
			map[string]any{"introduction": "Welcome to the shelf"},
		},
	})

	ctrl := controller.New(catalog.Default(), source.NewFile(store, ""),
		controller.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		controller.WithRand(func(int) int { return 0 }))
	return New(ctrl)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_categories":
		result, err = srv.listCategories(ctx, req)
	case "navigate":
		result, err = srv.navigate(ctx, req)
	case "sort":
		result, err = srv.sort(ctx, req)
	case "search":
		result, err = srv.search(ctx, req)
	case "pick_random":
		result, err = srv.pickRandom(ctx, req)
	case "get_view":
		result, err = srv.getView(ctx, req)
	case "get_home":
		result, err = srv.getHome(ctx, req)
	case "get_stats":
		result, err = srv.getStats(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func resultPage(t *testing.T, r *mcp.CallToolResult) controller.Page {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var p controller.Page
	if err := json.Unmarshal([]byte(resultText(r)), &p); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return p
}

func titles(p controller.Page) string {
	var out []string
	for _, c := range p.Cards.Cards {
		out = append(out, c.Title)
	}
	return strings.Join(out, ",")
}

func TestListCategories(t *testing.T) {
	srv := testServer(t)
	text := resultText(callTool(t, srv, "list_categories", map[string]interface{}{}))
	var cats []categoryInfo
	if err := json.Unmarshal([]byte(text), &cats); err != nil {
		t.Fatal(err)
	}
	if len(cats) != 8 || cats[6].Key != "books" || !cats[6].Caps.HasAuthor {
		t.Errorf("categories = %+v", cats)
	}
}

func TestNavigateSortSearch(t *testing.T) {
	srv := testServer(t)

	p := resultPage(t, callTool(t, srv, "navigate", map[string]interface{}{"category": "books"}))
	if p.Background != "bg/books.jpg" || titles(p) != "B,A" {
		t.Errorf("navigate: background=%q titles=%s", p.Background, titles(p))
	}

	p = resultPage(t, callTool(t, srv, "sort", map[string]interface{}{"control": "author"}))
	if titles(p) != "A,B" {
		t.Errorf("author asc = %s", titles(p))
	}
	p = resultPage(t, callTool(t, srv, "sort", map[string]interface{}{"control": "author"}))
	if titles(p) != "B,A" {
		t.Errorf("author desc = %s", titles(p))
	}

	p = resultPage(t, callTool(t, srv, "search", map[string]interface{}{"query": "zz"}))
	if p.Cards.Count != 0 || p.Cards.Empty == "" {
		t.Errorf("search zz = %+v", p.Cards)
	}
	p = resultPage(t, callTool(t, srv, "search", map[string]interface{}{}))
	if p.Cards.Count != 2 {
		t.Errorf("cleared search count = %d", p.Cards.Count)
	}
}

func TestNavigate_Errors(t *testing.T) {
	srv := testServer(t)

	if r := callTool(t, srv, "navigate", map[string]interface{}{}); !r.IsError {
		t.Error("expected error for missing category")
	}
	if r := callTool(t, srv, "navigate", map[string]interface{}{"category": "podcasts"}); !r.IsError {
		t.Error("expected error for unknown category")
	}

	// movies.json does not exist.
	r := callTool(t, srv, "navigate", map[string]interface{}{"category": "movies"})
	if !r.IsError || resultText(r) != "Could not load movies data." {
		t.Errorf("missing data = %q", resultText(r))
	}
}

func TestSort_UnavailableControl(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "navigate", map[string]interface{}{"category": "backlog"})

	if r := callTool(t, srv, "sort", map[string]interface{}{"control": "rating"}); !r.IsError {
		t.Error("rating should be unavailable in the backlog")
	}
	if r := callTool(t, srv, "sort", map[string]interface{}{"control": "shuffle"}); !r.IsError {
		t.Error("unknown control should fail")
	}
}

func TestPickRandom(t *testing.T) {
	srv := testServer(t)
	if r := callTool(t, srv, "pick_random", map[string]interface{}{}); !r.IsError {
		t.Error("pick outside the backlog should fail")
	}

	callTool(t, srv, "navigate", map[string]interface{}{"category": "backlog"})
	r := callTool(t, srv, "pick_random", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("pick: %s", resultText(r))
	}
	var pick controller.Pick
	_ = json.Unmarshal([]byte(resultText(r)), &pick)
	if pick.Item.Title != "Tunic" {
		t.Errorf("pick = %+v", pick)
	}
}

func TestGetHomeAndView(t *testing.T) {
	srv := testServer(t)

	p := resultPage(t, callTool(t, srv, "get_home", map[string]interface{}{}))
	if p.Home == nil || p.Home.Introduction != "Welcome to the shelf" {
		t.Fatalf("home = %+v", p.Home)
	}
	if len(p.Home.InProgress) != 1 || p.Home.InProgress[0].Title != "Hades" {
		t.Errorf("in progress = %+v", p.Home.InProgress)
	}

	p = resultPage(t, callTool(t, srv, "get_view", map[string]interface{}{}))
	if p.View != controller.ViewHome {
		t.Errorf("view = %q", p.View)
	}
}

func TestGetStats_MissingCategoryFailsWholeView(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_stats", map[string]interface{}{})
	if !r.IsError || resultText(r) != "Could not load stats." {
		t.Errorf("stats = %q", resultText(r))
	}
}

func TestCategoriesResource(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readCategoriesResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != CategoriesURI || !strings.Contains(tc.Text, `"key": "backlog"`) {
		t.Errorf("resource = %+v", contents)
	}
}
