package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/cache"
	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
)

// DefaultMaxNesting bounds block-tree traversal depth.
const DefaultMaxNesting = 10

var taskMarkerRe = regexp.MustCompile(`^(TODO|DOING|DONE|LATER|NOW|WAITING|CANCEL{1,2}ED)\b`)

// Engine evaluates search requests against the cached corpus.
type Engine struct {
	provider   graph.Provider
	caches     *cache.Service
	maxNesting int
	today      func() time.Time
	group      singleflight.Group
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxNesting overrides the block-tree traversal depth bound.
func WithMaxNesting(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxNesting = n
		}
	}
}

// WithClock overrides the engine's notion of "now" for the date filters.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.today = now
	}
}

// New creates an engine over the given provider and cache service.
func New(provider graph.Provider, caches *cache.Service, opts ...Option) *Engine {
	e := &Engine{
		provider:   provider,
		caches:     caches,
		maxNesting: DefaultMaxNesting,
		today:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteSearch runs the full pipeline: validate, evaluate, post-filter,
// rank, paginate. The full ordered result set is cached under a key covering
// everything but the cursor, so cursor-driven page requests reuse it instead
// of recomputing against a possibly-changed corpus, while requests differing
// in scope, filters, or ordering never share a set; concurrent cache-missing
// duplicates are coalesced into one computation.
func (e *Engine) ExecuteSearch(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.withDefaults()

	key := resultKey(req)
	if full, ok := e.caches.Results(key); ok {
		return paginate(full, req.Limit, req.Cursor), nil
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		if full, ok := e.caches.Results(key); ok {
			return full, nil
		}
		full, err := e.computeResults(ctx, req)
		if err != nil {
			return nil, err
		}
		e.caches.SetResults(key, full)
		return full, nil
	})
	if err != nil {
		return nil, err
	}
	return paginate(v.([]*models.ContentRecord), req.Limit, req.Cursor), nil
}

// resultKey digests the canonicalized request minus its cursor. JSON
// marshalling sorts map keys, so equal requests always produce equal keys.
func resultKey(req SearchRequest) string {
	req.Cursor = ""
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Sprintf("%s|%s|%d", req.Query, req.Target, req.Limit)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// computeResults produces the full ordered result set for a request.
func (e *Engine) computeResults(ctx context.Context, req SearchRequest) ([]*models.ContentRecord, error) {
	q := req.Query
	if strings.TrimSpace(q) == "" {
		// No query means no restriction: start from the whole corpus and
		// let scope and attribute filters narrow it.
		q = "*"
	}

	candidates := e.evaluate(ctx, query.Parse(q), req.Target)
	candidates = applyScope(candidates, req.Scope)
	candidates = applyFilter(candidates, req.Filter)

	candidates, err := e.materialize(ctx, candidates, req.Target)
	if err != nil {
		return nil, err
	}

	sortRecords(candidates, req.Query, req.Sort, req.Order)
	if candidates == nil {
		candidates = []*models.ContentRecord{}
	}
	return candidates, nil
}

// materialize converts the evaluated candidate set into the entity kinds
// the target asks for.
func (e *Engine) materialize(ctx context.Context, candidates []*models.ContentRecord, target Target) ([]*models.ContentRecord, error) {
	switch target {
	case TargetPages, TargetBlocks, TargetBoth:
		return candidates, nil
	case TargetTemplates:
		return filterTemplates(candidates), nil
	case TargetTasks:
		return e.materializeTasks(ctx, candidates), nil
	case TargetProperties:
		return materializeProperties(candidates), nil
	}
	return nil, fmt.Errorf("%w: unhandled target %q", apperr.ErrValidation, target)
}

// filterTemplates keeps template-shaped records, retyped as templates.
func filterTemplates(candidates []*models.ContentRecord) []*models.ContentRecord {
	var out []*models.ContentRecord
	for _, r := range candidates {
		if r.Kind == models.KindTemplate {
			out = append(out, r)
			continue
		}
		if r.Kind == models.KindPage && looksLikeTemplate(r.Name, r.Properties) {
			t := *r
			t.Kind = models.KindTemplate
			out = append(out, &t)
		}
	}
	return out
}

// looksLikeTemplate is the template heuristic: "template" in the name, or a
// template property, or page-type=template.
func looksLikeTemplate(name string, props map[string]any) bool {
	if strings.Contains(strings.ToLower(name), "template") {
		return true
	}
	if _, ok := lookupProperty(props, "template"); ok {
		return true
	}
	if v, ok := lookupProperty(props, "page-type"); ok {
		return strings.EqualFold(strings.TrimSpace(stringify(v)), "template")
	}
	return false
}

// materializeTasks expands page candidates into their task-marked blocks,
// fetching block trees for at most taskScanLimit pages. Block candidates
// are kept when they carry a task marker themselves.
func (e *Engine) materializeTasks(ctx context.Context, candidates []*models.ContentRecord) []*models.ContentRecord {
	var out []*models.ContentRecord
	scanned := 0
	for _, r := range candidates {
		switch r.Kind {
		case models.KindBlock:
			if taskMarkerRe.MatchString(r.Content) {
				t := *r
				t.Kind = models.KindTask
				out = append(out, &t)
			}
		case models.KindPage:
			if scanned >= taskScanLimit {
				continue
			}
			scanned++
			blocks, err := e.pageBlocks(ctx, r.Name)
			if err != nil {
				continue
			}
			for _, b := range flatten(blocks, e.maxNesting) {
				if taskMarkerRe.MatchString(b.Content) {
					out = append(out, b.Record(models.KindTask))
				}
			}
		}
	}
	return out
}

// materializeProperties expands page candidates into one property-entry
// record per page property.
func materializeProperties(candidates []*models.ContentRecord) []*models.ContentRecord {
	var out []*models.ContentRecord
	for _, r := range candidates {
		if r.Kind != models.KindPage {
			continue
		}
		for k, v := range r.Properties {
			out = append(out, &models.ContentRecord{
				Kind:       models.KindProperty,
				ID:         r.ID + "#property:" + k,
				Content:    k + ":: " + stringify(v),
				Properties: map[string]any{k: v},
				CreatedAt:  r.CreatedAt,
				UpdatedAt:  r.UpdatedAt,
				Page:       r.Name,
			})
		}
	}
	return out
}

// Templates returns the template listing, computed by heuristic scan over
// all pages and cached under its own category.
func (e *Engine) Templates(ctx context.Context) ([]*models.ContentRecord, error) {
	if ts, ok := e.caches.Templates(); ok {
		return ts, nil
	}
	pages, err := e.allPages(ctx)
	if err != nil {
		return nil, err
	}
	out := []*models.ContentRecord{}
	for _, p := range pages {
		if !looksLikeTemplate(p.Name, p.Properties) {
			continue
		}
		t := p.Record()
		t.Kind = models.KindTemplate
		out = append(out, t)
	}
	e.caches.SetTemplates(out)
	return out, nil
}

// Backlinks returns pages whose block content links to the named page.
func (e *Engine) Backlinks(ctx context.Context, page string) ([]*models.ContentRecord, error) {
	return e.evalReferences(ctx, page, false)
}

// RawQuery forwards a provider-native structured query when the provider
// supports the passthrough. Rows come back untyped, exactly as the
// application returned them.
func (e *Engine) RawQuery(ctx context.Context, dsl string) ([]map[string]any, error) {
	q, ok := e.provider.(graph.Querier)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not support raw queries", apperr.ErrValidation)
	}
	rows, err := q.Query(ctx, dsl)
	if err != nil {
		if !errors.Is(err, apperr.ErrProvider) {
			err = fmt.Errorf("%w: %w", apperr.ErrProvider, err)
		}
		return nil, err
	}
	return rows, nil
}

// allPages returns the corpus page listing, fetching through the provider
// on cache miss.
func (e *Engine) allPages(ctx context.Context) ([]*models.Page, error) {
	if pages, ok := e.caches.Pages(); ok {
		return pages, nil
	}
	pages, err := e.provider.ListAllPages(ctx)
	if err != nil {
		if !errors.Is(err, apperr.ErrProvider) {
			err = fmt.Errorf("%w: %w", apperr.ErrProvider, err)
		}
		return nil, err
	}
	e.caches.SetPages(pages)
	return pages, nil
}

// pageBlocks returns a page's block tree, fetching on cache miss.
func (e *Engine) pageBlocks(ctx context.Context, page string) ([]*models.Block, error) {
	if blocks, ok := e.caches.Blocks(page); ok {
		return blocks, nil
	}
	blocks, err := e.provider.PageBlocks(ctx, page)
	if err != nil {
		if !errors.Is(err, apperr.ErrProvider) {
			err = fmt.Errorf("%w: %w", apperr.ErrProvider, err)
		}
		return nil, err
	}
	e.caches.SetBlocks(page, blocks)
	return blocks, nil
}
