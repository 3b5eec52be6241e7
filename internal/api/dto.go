package api

import (
	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/controller"
	"github.com/starford/mediashelf/internal/render"
)

// SearchRequest is the request body for setting the search text.
type SearchRequest struct {
	Query string `json:"query" example:"zelda"`
}

// CategoryResponse describes one navigable category.
type CategoryResponse struct {
	Key          string              `json:"key" example:"games" validate:"required"`
	Title        string              `json:"title" example:"Games" validate:"required"`
	Caps         catalog.Caps        `json:"caps"`
	Fields       []string            `json:"fields"`
	Requirements render.Requirements `json:"requirements"`
}

// CategoryListResponse lists the categories in navigation order, followed by the overview keys.
type CategoryListResponse struct {
	Categories []CategoryResponse `json:"categories" validate:"required"`
	Views      []string           `json:"views" validate:"required"`
}

// Page is the view state returned by every view endpoint (aliased from the controller).
type Page = controller.Page

// Pick is the random pick response (aliased from the controller).
type Pick = controller.Pick

func categoryList(reg *catalog.Registry) CategoryListResponse {
	out := CategoryListResponse{
		Categories: make([]CategoryResponse, 0, len(reg.Keys())),
		Views:      []string{catalog.HomeKey, catalog.StatsKey},
	}
	for _, cfg := range reg.All() {
		out.Categories = append(out.Categories, CategoryResponse{
			Key:          cfg.Key,
			Title:        cfg.Title,
			Caps:         cfg.Caps,
			Fields:       cfg.Fields,
			Requirements: render.RequirementsFor(cfg),
		})
	}
	return out
}
