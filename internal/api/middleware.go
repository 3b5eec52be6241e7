// Package api implements the mediashelf HTTP API using chi.
package api

import (
	"context"
	"net/http"

	"github.com/starford/mediashelf/internal/controller"
)

type ctxKey struct{}

// SessionMiddleware attaches the session controller to the request context.
func SessionMiddleware(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctrl := sessions.Open(w, r)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ctrl)))
		})
	}
}

func controllerFrom(r *http.Request) *controller.Controller {
	c, _ := r.Context().Value(ctxKey{}).(*controller.Controller)
	return c
}
