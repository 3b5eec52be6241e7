package render

import (
	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/sortstate"
)

// Requirements tells the presentation layer which controls and legends a category needs.
type Requirements struct {
	Controls        []sortstate.Type `json:"controls"`
	StatusLegend    bool             `json:"statusLegend"`
	BacklogLegend   bool             `json:"backlogLegend"`
	RandomPick      bool             `json:"randomPick"`
	Search          bool             `json:"search"`
	TwoStateRatings bool             `json:"twoStateRatings"`
}

// RequirementsFor derives the view requirements of a category from its capabilities.
func RequirementsFor(cfg catalog.CategoryConfig) Requirements {
	req := Requirements{
		StatusLegend:    cfg.Caps.HasStatus,
		BacklogLegend:   cfg.Caps.HasBacklogStatus,
		RandomPick:      cfg.Caps.HasBacklogStatus,
		Search:          true,
		TwoStateRatings: cfg.Caps.HasTwoStateRating,
	}
	for _, t := range sortstate.Controls {
		if sortstate.Available(cfg.Caps, t) {
			req.Controls = append(req.Controls, t)
		}
	}
	return req
}
