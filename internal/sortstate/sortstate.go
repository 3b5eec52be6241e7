// Package sortstate implements the per-category sort control state machine.
//
// Each sort control is bound to one sort type and cycles through its positions on
// repeated activation. Activating a control that is not the active one always starts
// it at position 0. Three-position controls use position 2 as a reset: it is never
// kept, the state immediately falls back to the category's natural default.
package sortstate

import (
	"fmt"

	"github.com/starford/mediashelf/internal/catalog"
)

// Type identifies a sort control and the ordering it produces.
type Type string

const (
	Status        Type = "status"
	BacklogStatus Type = "backlogStatus"
	Date          Type = "date"
	Rating        Type = "rating"
	Author        Type = "author"
	Alpha         Type = "alpha"
)

// Controls lists every sort control in display order.
var Controls = []Type{Status, BacklogStatus, Date, Rating, Author, Alpha}

// ParseType validates a control name.
func ParseType(s string) (Type, error) {
	for _, t := range Controls {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown sort control %q", s)
}

// State is the normalized sort state of one category. Position is 0 or 1.
type State struct {
	Type     Type `json:"sortType"`
	Position int  `json:"state"`
}

// Default returns the natural default sort for a category.
func Default(caps catalog.Caps) State {
	switch {
	case caps.HasStatus:
		return State{Type: Status}
	case caps.HasBacklogStatus:
		return State{Type: BacklogStatus}
	case caps.HasDate:
		return State{Type: Date}
	default:
		return State{Type: Rating}
	}
}

// Available reports whether the control applies to a category.
func Available(caps catalog.Caps, t Type) bool {
	switch t {
	case Status:
		return caps.HasStatus
	case BacklogStatus:
		return caps.HasBacklogStatus
	case Date:
		return caps.HasDate
	case Rating:
		return !caps.HasBacklogStatus
	case Author:
		return caps.HasAuthor
	case Alpha:
		return true
	}
	return false
}

// Positions returns how many positions the control cycles through.
func Positions(caps catalog.Caps, t Type) int {
	switch {
	case t == Status, t == BacklogStatus:
		return 2
	case t == Rating && caps.HasTwoStateRating:
		return 2
	default:
		return 3
	}
}

// Transition returns the state after activating control t.
func Transition(caps catalog.Caps, cur State, t Type) State {
	if cur.Type != t {
		return State{Type: t}
	}
	next := (cur.Position + 1) % Positions(caps, t)
	if next != 2 {
		return State{Type: t, Position: next}
	}
	if t == Author {
		return State{Type: Rating}
	}
	return Default(caps)
}

// Label describes the ordering for presentation, e.g. "Rating: high to low".
func (s State) Label() string {
	asc := s.Position == 1
	switch s.Type {
	case Status, BacklogStatus:
		if asc {
			return "Status: last to first"
		}
		return "Status: first to last"
	case Date:
		if asc {
			return "Date: oldest first"
		}
		return "Date: newest first"
	case Rating:
		if asc {
			return "Rating: low to high"
		}
		return "Rating: high to low"
	case Author:
		if asc {
			return "Author: Z-A"
		}
		return "Author: A-Z"
	case Alpha:
		if asc {
			return "Title: Z-A"
		}
		return "Title: A-Z"
	}
	return ""
}
