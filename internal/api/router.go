package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mediashelf/internal/catalog"
)

// NewRouter creates a chi router with all API routes mounted.
// Every route except the event stream runs inside a viewer session.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(reg *catalog.Registry, sessions *Sessions, sseHandler http.Handler) chi.Router {
	h := NewHandler(reg)

	r := chi.NewRouter()

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	r.Get("/categories", h.ListCategories)

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(sessions))

		r.Get("/view", h.GetView)
		r.Get("/view/cards", h.GetCards)
		r.Post("/view/search", h.Search)
		r.Post("/view/random", h.PickRandom)
		r.Post("/view/sort/{control}", h.Sort)
		r.Post("/view/{category}", h.Navigate)

		r.Get("/home", h.Home)
		r.Get("/stats", h.Stats)
	})

	return r
}
