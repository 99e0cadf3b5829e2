package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/cache"
	"github.com/starford/raido/internal/search"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(engine *search.Engine, caches *cache.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(engine, caches)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Search.
	r.Post("/search", h.Search)
	r.Get("/search", h.SearchGet)
	r.Post("/query", h.RawQuery)

	// Graph surfaces.
	r.Get("/templates", h.ListTemplates)
	r.Get("/backlinks/*", h.Backlinks)

	// Cache administration.
	r.Post("/cache/invalidate", h.InvalidateCache)

	return r
}
