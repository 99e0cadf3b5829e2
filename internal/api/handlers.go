package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/cache"
	"github.com/starford/raido/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	engine *search.Engine
	caches *cache.Service
}

// NewHandler creates a new Handler.
func NewHandler(engine *search.Engine, caches *cache.Service) *Handler {
	return &Handler{engine: engine, caches: caches}
}

// pageName extracts the page name from the URL (everything after the
// route prefix). Supports encoded slashes from clients
// (e.g. Beta%2FOne for the namespaced page Beta/One).
func pageName(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Search handles POST /api/search.
//
//	@Summary		Execute a search over the knowledge graph
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			body	body		search.SearchRequest	true	"Search request"
//	@Success		200		{object}	search.SearchResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [post]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req search.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.runSearch(w, r, req)
}

// SearchGet handles GET /api/search for simple keyword queries.
//
//	@Summary		Execute a search via query parameters
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	false	"Query string"
//	@Param			target	query		string	false	"Result target"	Enums(pages, blocks, templates, tasks, properties, both)
//	@Param			sort	query		string	false	"Sort key"		Enums(relevance, created, updated, title, length)
//	@Param			order	query		string	false	"Sort order"	Enums(asc, desc)
//	@Param			limit	query		int		false	"Page size (max 100)"
//	@Param			cursor	query		string	false	"Continuation token"
//	@Success		200		{object}	search.SearchResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) SearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	req := search.SearchRequest{
		Query:  q.Get("q"),
		Target: search.Target(q.Get("target")),
		Sort:   search.SortKey(q.Get("sort")),
		Order:  search.Order(q.Get("order")),
		Limit:  limit,
		Cursor: q.Get("cursor"),
	}
	if ns := q.Get("namespace"); ns != "" {
		req.Scope = &search.Scope{Namespace: ns}
	}
	h.runSearch(w, r, req)
}

func (h *Handler) runSearch(w http.ResponseWriter, r *http.Request, req search.SearchRequest) {
	res, err := h.engine.ExecuteSearch(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrBadQuery):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("search failed", slog.String("query", req.Query), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListTemplates handles GET /api/templates.
//
//	@Summary		List template pages
//	@Tags			graph
//	@Produce		json
//	@Success		200		{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/templates [get]
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.engine.Templates(r.Context())
	if err != nil {
		slog.Error("list templates failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"total":     len(templates),
	})
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List pages linking to the given page
//	@Tags			graph
//	@Produce		json
//	@Param			page	path		string	true	"Page name"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{page} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	page := pageName(r)
	if page == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("page is required"))
		return
	}
	refs, err := h.engine.Backlinks(r.Context(), page)
	if err != nil {
		slog.Error("backlinks failed", slog.String("page", page), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":      page,
		"backlinks": refs,
		"total":     len(refs),
	})
}

// RawQuery handles POST /api/query, forwarding a provider-native query.
//
//	@Summary		Pass a structured query through to the graph application
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RawQueryRequest	true	"Raw query"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/query [post]
func (h *Handler) RawQuery(w http.ResponseWriter, r *http.Request) {
	var req RawQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
		return
	}
	rows, err := h.engine.RawQuery(r.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrProvider):
			slog.Error("raw query failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody("provider error"))
		default:
			slog.Error("raw query failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":  rows,
		"total": len(rows),
	})
}

// RawQueryRequest is the request body for the raw query passthrough.
type RawQueryRequest struct {
	Query string `json:"query" example:"(property status open)" validate:"required"`
}

// InvalidateCache handles POST /api/cache/invalidate.
//
//	@Summary		Drop cached corpus data
//	@Tags			cache
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InvalidateRequest	true	"Invalidation request"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cache/invalidate [post]
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	switch req.Kind {
	case "all":
		h.caches.InvalidateAll()
	case "page":
		if req.ID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("id is required when kind is \"page\""))
			return
		}
		h.caches.InvalidatePage(req.ID)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("kind must be \"page\" or \"all\""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invalidated": req.Kind})
}

// InvalidateRequest is the request body for cache invalidation.
type InvalidateRequest struct {
	Kind string `json:"kind" example:"page" validate:"required"`
	ID   string `json:"id,omitempty" example:"Beta/One"`
}
