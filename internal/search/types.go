// Package search implements the query evaluation pipeline: parse, evaluate,
// post-filter, rank, paginate. It is the only component with non-trivial
// algorithmic structure; everything it touches in the outside world goes
// through graph.Provider and cache.Service.
package search

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Target selects which entity kinds a search returns.
type Target string

// Search targets.
const (
	TargetPages      Target = "pages"
	TargetBlocks     Target = "blocks"
	TargetTemplates  Target = "templates"
	TargetTasks      Target = "tasks"
	TargetProperties Target = "properties"
	TargetBoth       Target = "both"
)

// SortKey selects the result ordering.
type SortKey string

// Sort keys.
const (
	SortRelevance SortKey = "relevance"
	SortCreated   SortKey = "created"
	SortUpdated   SortKey = "updated"
	SortTitle     SortKey = "title"
	SortLength    SortKey = "length"
)

// Order is the sort direction.
type Order string

// Sort orders.
const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Pagination limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Scope restricts the candidate set by where a record lives.
type Scope struct {
	Namespace  string   `json:"namespace,omitempty"`
	Journal    *bool    `json:"journal,omitempty"`
	PageTitles []string `json:"page_titles,omitempty"`
	Tag        string   `json:"tag,omitempty"`
}

// Filter restricts the candidate set by record attributes. Timestamp bounds
// accept epoch numbers or parseable date strings; an unparseable value
// silently skips that clause.
type Filter struct {
	LengthMin     *int           `json:"length_min,omitempty"`
	LengthMax     *int           `json:"length_max,omitempty"`
	PropertiesAny map[string]any `json:"properties_any,omitempty"`
	PropertiesAll map[string]any `json:"properties_all,omitempty"`
	TagsAny       []string       `json:"tags_any,omitempty"`
	TagsAll       []string       `json:"tags_all,omitempty"`
	CreatedAfter  any            `json:"created_after,omitempty"`
	CreatedBefore any            `json:"created_before,omitempty"`
	UpdatedAfter  any            `json:"updated_after,omitempty"`
	UpdatedBefore any            `json:"updated_before,omitempty"`
	Contains      string         `json:"contains,omitempty"`
	Exclude       string         `json:"exclude,omitempty"`
}

// SearchRequest is the engine's input envelope.
type SearchRequest struct {
	Query  string  `json:"query,omitempty"`
	Target Target  `json:"target,omitempty"`
	Scope  *Scope  `json:"scope,omitempty"`
	Filter *Filter `json:"filter,omitempty"`
	Sort   SortKey `json:"sort,omitempty"`
	Order  Order   `json:"order,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	Cursor string  `json:"cursor,omitempty"`
}

// Validate checks the request shape. Over-limit requests are rejected, not
// clamped. Empty enum fields are allowed and pick up defaults later.
func (r SearchRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Target, validation.In(
			TargetPages, TargetBlocks, TargetTemplates, TargetTasks, TargetProperties, TargetBoth)),
		validation.Field(&r.Sort, validation.In(
			SortRelevance, SortCreated, SortUpdated, SortTitle, SortLength)),
		validation.Field(&r.Order, validation.In(OrderAsc, OrderDesc)),
		validation.Field(&r.Limit, validation.Min(0), validation.Max(MaxLimit)),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrValidation, err)
	}
	return nil
}

// withDefaults fills unset fields with their documented defaults.
func (r SearchRequest) withDefaults() SearchRequest {
	if r.Target == "" {
		r.Target = TargetBoth
	}
	if r.Sort == "" {
		r.Sort = SortRelevance
	}
	if r.Order == "" {
		r.Order = OrderDesc
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	return r
}

// SearchResult is the engine's output envelope.
type SearchResult struct {
	Results    []*models.ContentRecord `json:"results"`
	TotalFound int                     `json:"total_found"`
	HasMore    bool                    `json:"has_more"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}
