package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// pub, if non-nil, is told about every regenerate triggered through the API.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(lib Library, pub Publisher, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(lib, pub)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Items.
	r.Get("/items", h.ListItems)
	r.Get("/items/{id}", h.GetItem)

	// Facets.
	r.Get("/topics", h.ListTopics)
	r.Get("/tags", h.ListTags)

	// Library.
	r.Get("/stats", h.Stats)
	r.Post("/regenerate", h.Regenerate)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
