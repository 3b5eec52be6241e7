// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the catalog viewer as tools over stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mediashelf/internal/apperr"
	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/controller"
	"github.com/starford/mediashelf/internal/render"
	"github.com/starford/mediashelf/internal/sortstate"
)

// CategoriesURI is the resource describing every category and its capabilities.
const CategoriesURI = "mediashelf://categories"

// Server wraps the MCP server. A stdio connection is a single session, so one
// controller holds its state.
type Server struct {
	mcp  *server.MCPServer
	reg  *catalog.Registry
	ctrl *controller.Controller
}

// New creates a new MCP server with all tools registered.
func New(ctrl *controller.Controller) *Server {
	s := &Server{ctrl: ctrl, reg: ctrl.Registry()}

	s.mcp = server.NewMCPServer(
		"mediashelf",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List the media categories in navigation order with their capabilities."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("navigate",
		mcp.WithDescription("Switch to a category (or to \"home\" / \"stats\") and load its items. "+
			"Returns the sorted, filtered card list of the category."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category key, e.g. games or books")),
	), s.navigate)

	s.mcp.AddTool(mcp.NewTool("sort",
		mcp.WithDescription("Activate a sort control of the current category. Activating the same "+
			"control again flips its direction; a third activation resets to the default order."),
		mcp.WithString("control", mcp.Required(),
			mcp.Description("Sort control"),
			mcp.Enum("status", "backlogStatus", "date", "rating", "author", "alpha")),
	), s.sort)

	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Filter the current category by a case-insensitive title substring. "+
			"An empty query clears the filter."),
		mcp.WithString("query", mcp.Description("Search text")),
	), s.search)

	s.mcp.AddTool(mcp.NewTool("pick_random",
		mcp.WithDescription("Pick a random backlog item whose status is todo. Only works in the backlog."),
	), s.pickRandom)

	s.mcp.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Return the current view without loading anything."),
	), s.getView)

	s.mcp.AddTool(mcp.NewTool("get_home",
		mcp.WithDescription("Show the home overview: introduction, links, recently completed and in-progress items."),
	), s.getHome)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Show catalog statistics: totals, completions per year and per-category rating summaries."),
	), s.getStats)

	s.mcp.AddResource(
		mcp.NewResource(CategoriesURI, "Categories",
			mcp.WithResourceDescription("Every category with its capabilities and view requirements."),
			mcp.WithMIMEType("application/json"),
		),
		s.readCategoriesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type categoryInfo struct {
	Key          string              `json:"key"`
	Title        string              `json:"title"`
	Caps         catalog.Caps        `json:"caps"`
	Requirements render.Requirements `json:"requirements"`
}

func (s *Server) categories() []categoryInfo {
	var out []categoryInfo
	for _, cfg := range s.reg.All() {
		out = append(out, categoryInfo{
			Key:          cfg.Key,
			Title:        cfg.Title,
			Caps:         cfg.Caps,
			Requirements: render.RequirementsFor(cfg),
		})
	}
	return out
}

func (s *Server) listCategories(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.categories())
}

func (s *Server) navigate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.ctrl.Navigate(ctx, key)
	if errors.Is(err, apperr.ErrUnknownCategory) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown category: %s", key)), nil
	}
	return pageResult(page, err)
}

func (s *Server) sort(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("control")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	control, err := sortstate.ParseType(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return pageResult(s.ctrl.Activate(control))
}

func (s *Server) search(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return pageResult(s.ctrl.Search(req.GetString("query", "")))
}

func (s *Server) pickRandom(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pick, err := s.ctrl.PickRandom()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(pick)
}

func (s *Server) getView(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.ctrl.Current())
}

func (s *Server) getHome(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return pageResult(s.ctrl.Home(ctx))
}

func (s *Server) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return pageResult(s.ctrl.Stats(ctx))
}

func (s *Server) readCategoriesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.categories(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CategoriesURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

// pageResult reports a failed load through its user-facing message when there is one.
func pageResult(page controller.Page, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if page.Failure != "" {
			return mcp.NewToolResultError(page.Failure), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if page.Failure != "" {
		return mcp.NewToolResultError(page.Failure), nil
	}
	return jsonResult(page)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
