package search

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/cache"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/testutil"
)

func TestExecuteSearch_WildcardCoversCorpus(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	res, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Target: TargetPages})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalFound != 6 {
		t.Errorf("total_found = %d, want 6", res.TotalFound)
	}
	for _, r := range res.Results {
		if r.Kind != models.KindPage {
			t.Errorf("record %s typed %s, want page", r.ID, r.Kind)
		}
	}
	if res.HasMore {
		t.Error("has_more = true for a single page of results")
	}
}

func TestExecuteSearch_LimitBoundary(t *testing.T) {
	e := testEngine(t, fixtureProvider())

	if _, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Limit: 100}); err != nil {
		t.Errorf("limit=100 rejected: %v", err)
	}

	_, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Limit: 101})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("limit=101: err = %v, want ErrValidation", err)
	}

	_, err = e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Limit: -1})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("limit=-1: err = %v, want ErrValidation", err)
	}
}

func TestExecuteSearch_BadEnumsRejected(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	cases := []SearchRequest{
		{Target: "everything-else"},
		{Sort: "rank"},
		{Order: "sideways"},
	}
	for _, req := range cases {
		if _, err := e.ExecuteSearch(context.Background(), req); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("request %+v: err = %v, want ErrValidation", req, err)
		}
	}
}

func TestExecuteSearch_MalformedCursorResets(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	first, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Target: TargetPages})
	if err != nil {
		t.Fatal(err)
	}
	again, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Target: TargetPages, Cursor: "not-a-number"})
	if err != nil {
		t.Fatalf("malformed cursor must not fail: %v", err)
	}
	if len(again.Results) != len(first.Results) || again.Results[0].ID != first.Results[0].ID {
		t.Error("malformed cursor did not reset to offset 0")
	}
}

func TestExecuteSearch_PaginationContinuity(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	const limit = 2

	page1, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Target: TargetPages, Limit: limit, Sort: SortTitle, Order: OrderAsc})
	if err != nil {
		t.Fatal(err)
	}
	if !page1.HasMore || page1.NextCursor == "" {
		t.Fatalf("page 1: has_more=%v next_cursor=%q", page1.HasMore, page1.NextCursor)
	}

	page2, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Target: TargetPages, Limit: limit, Sort: SortTitle, Order: OrderAsc, Cursor: page1.NextCursor})
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for _, r := range page1.Results {
		seen[r.ID] = true
	}
	for _, r := range page2.Results {
		if seen[r.ID] {
			t.Errorf("record %s appears on both pages", r.ID)
		}
	}
	if len(page1.Results)+len(page2.Results) != 2*limit {
		t.Errorf("pages hold %d+%d records, want %d", len(page1.Results), len(page2.Results), 2*limit)
	}
	if page2.TotalFound != page1.TotalFound {
		t.Errorf("total drifted between pages: %d vs %d", page1.TotalFound, page2.TotalFound)
	}
}

func TestExecuteSearch_CacheIdempotence(t *testing.T) {
	fp := fixtureProvider()
	e := testEngine(t, fp)
	req := SearchRequest{Query: "property:status=open", Target: TargetPages}

	first, err := e.ExecuteSearch(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	calls := fp.ListCalls.Load()

	second, err := e.ExecuteSearch(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if fp.ListCalls.Load() != calls {
		t.Errorf("second call re-invoked the provider (%d → %d)", calls, fp.ListCalls.Load())
	}
	if len(first.Results) != len(second.Results) {
		t.Fatalf("result sets differ: %d vs %d", len(first.Results), len(second.Results))
	}
	for i := range first.Results {
		if first.Results[i].ID != second.Results[i].ID {
			t.Errorf("result %d differs: %s vs %s", i, first.Results[i].ID, second.Results[i].ID)
		}
	}
}

func TestExecuteSearch_PropertyAndDateScenario(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	res, err := e.ExecuteSearch(context.Background(), SearchRequest{
		Query:  "property:status=open AND date:today",
		Target: TargetPages,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFound != 1 || res.Results[0].ID != "2025-08-30" {
		t.Errorf("got %d results, first %v; want exactly the journal page",
			res.TotalFound, res.Results)
	}
}

func TestExecuteSearch_NamespaceScope(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	res, err := e.ExecuteSearch(context.Background(), SearchRequest{
		Target: TargetPages,
		Scope:  &Scope{Namespace: "Beta"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"Beta/One": true, "Beta/Two": true}
	if res.TotalFound != len(want) {
		t.Fatalf("total = %d, want %d", res.TotalFound, len(want))
	}
	for _, r := range res.Results {
		if !want[r.Name] {
			t.Errorf("unexpected %q in namespace scope", r.Name)
		}
	}
}

func TestExecuteSearch_PhraseOutranksTokens(t *testing.T) {
	fp := fixtureProvider()
	fp.AddPage(&models.Page{Name: "this is an exact phrase here"})
	fp.AddPage(&models.Page{Name: "exact notes phrase misc phrases"})
	e := testEngine(t, fp)

	res, err := e.ExecuteSearch(context.Background(), SearchRequest{
		Query:  `"exact phrase" OR phrases`,
		Target: TargetPages,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFound != 2 {
		t.Fatalf("total = %d, want 2 candidates", res.TotalFound)
	}
	if res.Results[0].Name != "this is an exact phrase here" {
		t.Errorf("phrase match not ranked first: %+v", res.Results)
	}
}

func TestExecuteSearch_TasksTarget(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	res, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Target: TargetTasks})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFound != 1 {
		t.Fatalf("total = %d, want 1 task", res.TotalFound)
	}
	task := res.Results[0]
	if task.Kind != models.KindTask || task.Page != "Alpha" {
		t.Errorf("task = %+v", task)
	}
}

func TestExecuteSearch_PropertiesTarget(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	res, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "Alpha", Target: TargetProperties})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFound != 1 {
		t.Fatalf("total = %d, want 1 property entry", res.TotalFound)
	}
	p := res.Results[0]
	if p.Kind != models.KindProperty || p.Content != "status:: open" {
		t.Errorf("property entry = %+v", p)
	}
}

func TestExecuteSearch_TemplatesTarget(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	res, err := e.ExecuteSearch(context.Background(), SearchRequest{Target: TargetTemplates})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFound != 1 || res.Results[0].Kind != models.KindTemplate {
		t.Fatalf("got %+v", res.Results)
	}
}

func TestExecuteSearch_ProviderDownWholeQuery(t *testing.T) {
	fp := fixtureProvider()
	fp.FailPages = true
	e := testEngine(t, fp)

	// A dead provider yields an empty result envelope, not an error: the
	// failure is absorbed at the atomic-filter level.
	res, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Target: TargetPages})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalFound != 0 {
		t.Errorf("total = %d, want 0", res.TotalFound)
	}
}

func TestTemplates_CachedListing(t *testing.T) {
	fp := fixtureProvider()
	e := testEngine(t, fp)

	first, err := e.Templates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	calls := fp.ListCalls.Load()
	second, err := e.Templates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fp.ListCalls.Load() != calls {
		t.Error("template listing not served from cache")
	}
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("template counts: %d, %d", len(first), len(second))
	}
}

func TestBacklinks(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	refs, err := e.Backlinks(context.Background(), "Beta/One")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].Name != "Alpha" {
		t.Errorf("got %+v, want [Alpha]", refs)
	}
}

type rawQuerier struct {
	*testutil.FakeProvider
	rows []map[string]any
	err  error
}

func (q *rawQuerier) Query(_ context.Context, _ string) ([]map[string]any, error) {
	return q.rows, q.err
}

func TestRawQuery(t *testing.T) {
	q := &rawQuerier{
		FakeProvider: fixtureProvider(),
		rows:         []map[string]any{{"name": "Alpha"}},
	}
	e := New(q, cache.NewService(cache.TTLs{}))

	rows, err := e.RawQuery(context.Background(), "(property status open)")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Alpha" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestRawQuery_Unsupported(t *testing.T) {
	e := testEngine(t, fixtureProvider())
	_, err := e.RawQuery(context.Background(), "(anything)")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestRawQuery_ProviderFailure(t *testing.T) {
	q := &rawQuerier{
		FakeProvider: fixtureProvider(),
		err:          errors.New("socket closed"),
	}
	e := New(q, cache.NewService(cache.TTLs{}))
	_, err := e.RawQuery(context.Background(), "(anything)")
	if !errors.Is(err, apperr.ErrProvider) {
		t.Errorf("err = %v, want ErrProvider", err)
	}
}

func TestExecuteSearch_CachedSetsKeyedByOrdering(t *testing.T) {
	e := testEngine(t, fixtureProvider())

	asc, err := e.ExecuteSearch(context.Background(), SearchRequest{
		Query: "*", Target: TargetPages, Sort: SortTitle, Order: OrderAsc,
	})
	if err != nil {
		t.Fatal(err)
	}
	desc, err := e.ExecuteSearch(context.Background(), SearchRequest{
		Query: "*", Target: TargetPages, Sort: SortTitle, Order: OrderDesc,
	})
	if err != nil {
		t.Fatal(err)
	}
	if asc.Results[0].Name != "2025-08-30" {
		t.Errorf("asc first = %q, want 2025-08-30", asc.Results[0].Name)
	}
	if desc.Results[0].Name != "Meeting Template" {
		t.Errorf("desc first = %q, want Meeting Template", desc.Results[0].Name)
	}
	if asc.Results[0].Name == desc.Results[0].Name {
		t.Error("opposite orderings served the same cached set")
	}
}

func TestExecuteSearch_CachedSetsKeyedByScope(t *testing.T) {
	e := testEngine(t, fixtureProvider())

	all, err := e.ExecuteSearch(context.Background(), SearchRequest{Query: "*", Target: TargetPages})
	if err != nil {
		t.Fatal(err)
	}
	if all.TotalFound != 6 {
		t.Fatalf("unscoped total = %d, want 6", all.TotalFound)
	}

	scoped, err := e.ExecuteSearch(context.Background(), SearchRequest{
		Query: "*", Target: TargetPages,
		Scope: &Scope{Namespace: "Beta"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if scoped.TotalFound != 2 {
		t.Errorf("scoped total = %d, want the two Beta pages", scoped.TotalFound)
	}
	for _, r := range scoped.Results {
		if r.Name != "Beta/One" && r.Name != "Beta/Two" {
			t.Errorf("scoped set leaked %q", r.Name)
		}
	}
}

func TestResultKey(t *testing.T) {
	base := SearchRequest{Query: "*", Target: TargetPages, Limit: 20}

	withCursor := base
	withCursor.Cursor = "20"
	if resultKey(base) != resultKey(withCursor) {
		t.Error("cursor must not change the key; page requests share one set")
	}

	reordered := base
	reordered.Order = OrderDesc
	if resultKey(base) == resultKey(reordered) {
		t.Error("order must change the key")
	}

	filtered := base
	filtered.Filter = &Filter{TagsAny: []string{"work"}}
	if resultKey(base) == resultKey(filtered) {
		t.Error("filters must change the key")
	}
}
