// Package graph defines the corpus provider abstraction and its two
// implementations: an HTTP adapter for the graph application's local API
// and a filesystem reader for an on-disk graph directory.
package graph

import (
	"context"

	"github.com/starford/raido/internal/models"
)

// Provider is the interface to the external corpus. Any call may fail;
// the search engine absorbs provider failures per atomic filter.
type Provider interface {
	// ListAllPages returns every page in the graph.
	ListAllPages(ctx context.Context) ([]*models.Page, error)
	// PageBlocks returns the block tree of the named page.
	PageBlocks(ctx context.Context, page string) ([]*models.Block, error)
}

// Querier is implemented by providers that support a raw structured-query
// passthrough to the underlying application.
type Querier interface {
	Query(ctx context.Context, dsl string) ([]map[string]any, error)
}
