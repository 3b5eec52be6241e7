package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mediashelf/internal/apperr"
	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/controller"
	"github.com/starford/mediashelf/internal/render"
	"github.com/starford/mediashelf/internal/sortstate"
)

const maxSearchBody = 64 << 10

// Handler holds API route handlers.
type Handler struct {
	reg *catalog.Registry
}

// NewHandler creates a new Handler.
func NewHandler(reg *catalog.Registry) *Handler {
	return &Handler{reg: reg}
}

// ListCategories handles GET /api/categories.
//
//	@Summary		List navigable categories and their view requirements
//	@Tags			categories
//	@Produce		json
//	@Success		200	{object}	CategoryListResponse
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, categoryList(h.reg))
}

// GetView handles GET /api/view.
//
//	@Summary		Current view state of the session
//	@Tags			view
//	@Produce		json
//	@Success		200	{object}	Page
//	@Router			/view [get]
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, controllerFrom(r).Current())
}

// Navigate handles POST /api/view/{category}.
//
//	@Summary		Switch to a category and load it
//	@Tags			view
//	@Produce		json
//	@Param			category	path		string	true	"Category key"
//	@Success		200			{object}	Page
//	@Success		204			"Unknown category, nothing changed"
//	@Failure		409			{object}	errResponse
//	@Router			/view/{category} [post]
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "category")
	page, err := controllerFrom(r).Navigate(r.Context(), key)
	if err != nil {
		h.pageError(w, page, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Sort handles POST /api/view/sort/{control}.
//
//	@Summary		Activate a sort control of the current category
//	@Tags			view
//	@Produce		json
//	@Param			control	path		string	true	"Sort control"	Enums(status, backlogStatus, date, rating, author, alpha)
//	@Success		200		{object}	Page
//	@Failure		400		{object}	errResponse
//	@Router			/view/sort/{control} [post]
func (h *Handler) Sort(w http.ResponseWriter, r *http.Request) {
	control, err := sortstate.ParseType(chi.URLParam(r, "control"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	page, err := controllerFrom(r).Activate(control)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Search handles POST /api/view/search.
//
//	@Summary		Set the search text of the current category
//	@Tags			view
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SearchRequest	true	"Search text"
//	@Success		200		{object}	Page
//	@Failure		400		{object}	errResponse
//	@Router			/view/search [post]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSearchBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	page, err := controllerFrom(r).Search(req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// PickRandom handles POST /api/view/random.
//
//	@Summary		Pick a random todo item from the current backlog
//	@Tags			view
//	@Produce		json
//	@Success		200	{object}	Pick
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Router			/view/random [post]
func (h *Handler) PickRandom(w http.ResponseWriter, r *http.Request) {
	pick, err := controllerFrom(r).PickRandom()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pick)
}

// GetCards handles GET /api/view/cards.
//
//	@Summary		Card grid of the current category as an HTML fragment
//	@Tags			view
//	@Produce		html
//	@Success		200	{string}	string	"Card grid"
//	@Success		204	"No category view is active"
//	@Router			/view/cards [get]
func (h *Handler) GetCards(w http.ResponseWriter, r *http.Request) {
	page := controllerFrom(r).Current()
	if page.View != controller.ViewCategory || page.Cards == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	var err error
	if page.Failure != "" {
		err = render.FailureHTML(&buf, page.Failure)
	} else {
		err = render.HTML(&buf, *page.Cards)
	}
	if err != nil {
		slog.Error("render cards failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Home handles GET /api/home.
//
//	@Summary		Switch to the home overview
//	@Tags			overview
//	@Produce		json
//	@Success		200	{object}	Page
//	@Failure		502	{object}	errResponse
//	@Router			/home [get]
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	page, err := controllerFrom(r).Home(r.Context())
	if err != nil {
		h.pageError(w, page, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Stats handles GET /api/stats.
//
//	@Summary		Switch to the statistics overview
//	@Tags			overview
//	@Produce		json
//	@Success		200	{object}	Page
//	@Failure		502	{object}	errResponse
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	page, err := controllerFrom(r).Stats(r.Context())
	if err != nil {
		h.pageError(w, page, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// pageError reports an overview failure with its user-facing message.
func (h *Handler) pageError(w http.ResponseWriter, page controller.Page, err error) {
	if errors.Is(err, apperr.ErrAggregate) && page.Failure != "" {
		writeJSON(w, http.StatusBadGateway, errorBody(page.Failure))
		return
	}
	writeError(w, err)
}
