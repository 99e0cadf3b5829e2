package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
)

// Per-filter scan caps. Filters that need a block fetch per page examine
// only the first N pages of the corpus; this is the only backpressure
// against unbounded graph size, and these filter kinds return partial
// coverage on large corpora by design.
const (
	emptyPageScanLimit = 40  // empty-page detection fetches every candidate's blocks
	dateScanLimit      = 100 // date filter checks journal day and date-like properties
	backlinkScanLimit  = 100 // backlink/reference lookup fetches block content
	blockScanLimit     = 20  // free-text block search fetches block content
	taskScanLimit      = 50  // task materialisation fetches block content
)

// evaluate walks the expression tree and returns the candidate set.
// Operands of a boolean node are evaluated concurrently so provider I/O
// overlaps; atomic-filter failures contribute empty sets, never errors.
func (e *Engine) evaluate(ctx context.Context, expr query.Expr, target Target) []*models.ContentRecord {
	switch node := expr.(type) {
	case query.Filter:
		recs, err := e.evalFilter(ctx, node.Text, target)
		if err != nil {
			slog.Warn("atomic filter absorbed",
				slog.String("filter", node.Text),
				slog.String("error", err.Error()))
			return nil
		}
		return recs

	case query.And:
		return intersect(e.evalOperands(ctx, node.Operands, target))

	case query.Or:
		return union(e.evalOperands(ctx, node.Operands, target))
	}
	return nil
}

// evalOperands evaluates sibling operands concurrently, preserving operand
// order in the returned slice.
func (e *Engine) evalOperands(ctx context.Context, operands []query.Expr, target Target) [][]*models.ContentRecord {
	results := make([][]*models.ContentRecord, len(operands))
	g, gCtx := errgroup.WithContext(ctx)
	for i, op := range operands {
		g.Go(func() error {
			results[i] = e.evaluate(gCtx, op, target)
			return nil
		})
	}
	_ = g.Wait() // operands never return errors; failures are absorbed per filter
	return results
}

// intersect keeps records present in every operand set, keyed by ID, in
// first-operand order. An empty operand list yields an empty result.
func intersect(sets [][]*models.ContentRecord) []*models.ContentRecord {
	if len(sets) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, set := range sets {
		seen := make(map[string]struct{}, len(set))
		for _, r := range set {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			counts[r.ID]++
		}
	}
	var out []*models.ContentRecord
	emitted := make(map[string]struct{})
	for _, r := range sets[0] {
		if counts[r.ID] != len(sets) {
			continue
		}
		if _, dup := emitted[r.ID]; dup {
			continue
		}
		emitted[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// union merges operand sets keyed by ID, preserving first-seen order.
func union(sets [][]*models.ContentRecord) []*models.ContentRecord {
	var out []*models.ContentRecord
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, r := range set {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// evalFilter dispatches filter text to the first matching atomic rule.
func (e *Engine) evalFilter(ctx context.Context, text string, target Target) ([]*models.ContentRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	lower := strings.ToLower(text)

	switch {
	case lower == "*" || lower == "all" || lower == "everything":
		return e.allPageRecords(ctx)

	case strings.Contains(lower, "empty") || strings.Contains(lower, "no content") || strings.Contains(lower, "blank"):
		return e.evalEmptyPages(ctx)

	case strings.HasPrefix(lower, "property:"):
		return e.evalProperty(ctx, text[len("property:"):])

	case strings.HasPrefix(lower, "date:"):
		return e.evalDate(ctx, lower[len("date:"):])

	case lower == "templates:*" || lower == "templates:all":
		return e.Templates(ctx)

	case strings.HasPrefix(lower, "template:"):
		return e.evalTemplateLookup(ctx, unquote(text[len("template:"):]))

	case strings.HasPrefix(lower, "backlinks:"):
		return e.evalReferences(ctx, unquote(text[len("backlinks:"):]), false)

	case strings.HasPrefix(lower, "references:"):
		return e.evalReferences(ctx, unquote(text[len("references:"):]), true)
	}

	// Quoted phrases match as their bare text here; the quotes only steer
	// the ranker.
	return e.evalText(ctx, unquote(lower), target)
}

// allPageRecords maps every page to a page-typed record.
func (e *Engine) allPageRecords(ctx context.Context) ([]*models.ContentRecord, error) {
	pages, err := e.allPages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.ContentRecord, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Record())
	}
	return out, nil
}

// evalEmptyPages returns pages whose block tree is absent or entirely
// whitespace, scanning at most emptyPageScanLimit pages.
func (e *Engine) evalEmptyPages(ctx context.Context) ([]*models.ContentRecord, error) {
	pages, err := e.allPages(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.ContentRecord
	for _, p := range pages[:min(len(pages), emptyPageScanLimit)] {
		blocks, err := e.pageBlocks(ctx, p.Name)
		if err != nil {
			continue
		}
		if pageIsEmpty(blocks, e.maxNesting) {
			out = append(out, p.Record())
		}
	}
	return out, nil
}

func pageIsEmpty(blocks []*models.Block, maxDepth int) bool {
	for _, b := range flatten(blocks, maxDepth) {
		if strings.TrimSpace(b.Content) != "" {
			return false
		}
	}
	return true
}

// evalProperty handles property:KEY=VALUE equality. A missing '=' is a bad
// query and yields nothing.
func (e *Engine) evalProperty(ctx context.Context, expr string) ([]*models.ContentRecord, error) {
	key, want, ok := strings.Cut(expr, "=")
	if !ok {
		return nil, fmt.Errorf("%w: property filter %q missing '='", apperr.ErrBadQuery, expr)
	}
	key = strings.TrimSpace(key)
	want = strings.ToLower(strings.TrimSpace(want))

	pages, err := e.allPages(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.ContentRecord
	for _, p := range pages {
		val, ok := lookupProperty(p.Properties, key)
		if !ok {
			continue
		}
		got := strings.ToLower(stringify(val))
		if got == want || strings.Contains(got, want) {
			out = append(out, p.Record())
		}
	}
	return out, nil
}

// evalDate matches pages whose journal date or any date-like property falls
// inside the token's range, scanning at most dateScanLimit pages.
func (e *Engine) evalDate(ctx context.Context, token string) ([]*models.ContentRecord, error) {
	from, to, err := dateRange(strings.TrimSpace(token), e.today())
	if err != nil {
		return nil, err
	}

	pages, err := e.allPages(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.ContentRecord
	for _, p := range pages[:min(len(pages), dateScanLimit)] {
		if pageMatchesDate(p, from, to) {
			out = append(out, p.Record())
		}
	}
	return out, nil
}

// dateRange resolves a date token to an inclusive [from, to] day range.
func dateRange(token string, today time.Time) (time.Time, time.Time, error) {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	switch token {
	case "today":
		return day(today), day(today), nil
	case "yesterday":
		y := day(today).AddDate(0, 0, -1)
		return y, y, nil
	case "last-week":
		return day(today).AddDate(0, 0, -7), day(today), nil
	case "last-month":
		return day(today).AddDate(0, -1, 0), day(today), nil
	}
	t, err := time.Parse("2006-01-02", token)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date token %q", apperr.ErrBadQuery, token)
	}
	return t, t, nil
}

func pageMatchesDate(p *models.Page, from, to time.Time) bool {
	if p.JournalDay > 0 {
		if t, err := time.Parse("20060102", fmt.Sprintf("%08d", p.JournalDay)); err == nil {
			if !t.Before(from) && !t.After(to) {
				return true
			}
		}
	}
	for _, v := range p.Properties {
		t, ok := parseDateValue(v)
		if !ok {
			continue
		}
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, from.Location())
		if !d.Before(from) && !d.After(to) {
			return true
		}
	}
	return false
}

// evalTemplateLookup finds a specific template by exact-or-substring name
// match, requiring the template heuristic to hold.
func (e *Engine) evalTemplateLookup(ctx context.Context, name string) ([]*models.ContentRecord, error) {
	templates, err := e.Templates(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(name)
	var out []*models.ContentRecord
	for _, t := range templates {
		got := strings.ToLower(t.Name)
		if got == want || strings.Contains(got, want) {
			out = append(out, t)
		}
	}
	return out, nil
}

// evalReferences scans candidate pages' block content for mentions of the
// named page. Backlinks require a link-shaped match ([[PAGE]], #PAGE,
// #[[PAGE]]); references additionally accept bare-text mentions. For
// hierarchical names any path segment matches as a fallback.
func (e *Engine) evalReferences(ctx context.Context, page string, bareMentions bool) ([]*models.ContentRecord, error) {
	pages, err := e.allPages(ctx)
	if err != nil {
		return nil, err
	}

	needles := referenceNeedles(page)
	var out []*models.ContentRecord
	for _, p := range pages[:min(len(pages), backlinkScanLimit)] {
		if strings.EqualFold(p.Name, page) {
			continue
		}
		blocks, err := e.pageBlocks(ctx, p.Name)
		if err != nil {
			continue
		}
		for _, b := range flatten(blocks, e.maxNesting) {
			content := strings.ToLower(b.Content)
			if matchesAny(content, needles) || (bareMentions && strings.Contains(content, strings.ToLower(page))) {
				out = append(out, p.Record())
				break
			}
		}
	}
	return out, nil
}

// referenceNeedles builds the link-shaped patterns for a page name,
// including per-segment fallbacks for hierarchical names.
func referenceNeedles(page string) []string {
	names := []string{page}
	if strings.Contains(page, "/") {
		names = append(names, strings.Split(page, "/")...)
	}
	var needles []string
	for _, n := range names {
		n = strings.ToLower(n)
		needles = append(needles,
			"[["+n+"]]",
			"#"+n,
			"#[["+n+"]]",
		)
	}
	return needles
}

func matchesAny(content string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(content, n) {
			return true
		}
	}
	return false
}

// evalText is the fallback rule: case-insensitive substring match against
// page names, or block content when the target asks for blocks.
func (e *Engine) evalText(ctx context.Context, lower string, target Target) ([]*models.ContentRecord, error) {
	pages, err := e.allPages(ctx)
	if err != nil {
		return nil, err
	}

	var out []*models.ContentRecord
	if target != TargetBlocks {
		for _, p := range pages {
			if strings.Contains(strings.ToLower(p.Name), lower) {
				out = append(out, p.Record())
			}
		}
	}

	if target == TargetBlocks || target == TargetBoth {
		for _, p := range pages[:min(len(pages), blockScanLimit)] {
			blocks, err := e.pageBlocks(ctx, p.Name)
			if err != nil {
				continue
			}
			for _, b := range flatten(blocks, e.maxNesting) {
				if strings.Contains(strings.ToLower(b.Content), lower) {
					out = append(out, b.Record(models.KindBlock))
				}
			}
		}
	}
	return out, nil
}

// flatten walks a block tree depth-first with an enforced depth bound.
func flatten(blocks []*models.Block, maxDepth int) []*models.Block {
	var out []*models.Block
	var walk func(bs []*models.Block, depth int)
	walk = func(bs []*models.Block, depth int) {
		if depth >= maxDepth {
			return
		}
		for _, b := range bs {
			out = append(out, b)
			walk(b.Children, depth+1)
		}
	}
	walk(blocks, 0)
	return out
}

// unquote strips one pair of surrounding double quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
