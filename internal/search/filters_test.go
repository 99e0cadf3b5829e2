package search

import (
	"testing"
	"time"

	"github.com/starford/raido/internal/models"
)

func page(name string, opts ...func(*models.ContentRecord)) *models.ContentRecord {
	r := &models.ContentRecord{Kind: models.KindPage, ID: name, Name: name}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func names(records []*models.ContentRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestApplyScope_Namespace(t *testing.T) {
	records := []*models.ContentRecord{
		page("Alpha"),
		page("Beta/One"),
		page("Beta/Two"),
		page("Betamax"),
		page("Beta"),
	}
	got := applyScope(records, &Scope{Namespace: "Beta"})

	// Prefix match on "Beta/" plus the bare namespace page itself;
	// "Betamax" must not leak in.
	want := map[string]bool{"Beta/One": true, "Beta/Two": true, "Beta": true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want members of %v", names(got), want)
	}
	for _, r := range got {
		if !want[r.Name] {
			t.Errorf("unexpected record %q", r.Name)
		}
	}
}

func TestApplyScope_JournalAndTitles(t *testing.T) {
	j := page("2025-08-30", func(r *models.ContentRecord) { r.Journal = true })
	records := []*models.ContentRecord{j, page("Plain")}

	yes := true
	got := applyScope(records, &Scope{Journal: &yes})
	if len(got) != 1 || got[0].Name != "2025-08-30" {
		t.Errorf("journal scope: got %v", names(got))
	}

	got = applyScope(records, &Scope{PageTitles: []string{"Plain"}})
	if len(got) != 1 || got[0].Name != "Plain" {
		t.Errorf("title scope: got %v", names(got))
	}
}

func TestApplyScope_Tag(t *testing.T) {
	records := []*models.ContentRecord{
		page("A", func(r *models.ContentRecord) { r.Tags = []string{"Work", "go"} }),
		page("B", func(r *models.ContentRecord) { r.Tags = []string{"home"} }),
	}
	got := applyScope(records, &Scope{Tag: "work"})
	if len(got) != 1 || got[0].Name != "A" {
		t.Errorf("got %v, want [A]", names(got))
	}
}

func TestMatchPropertyValue_CoercionLadder(t *testing.T) {
	cases := []struct {
		name string
		got  any
		want any
		ok   bool
	}{
		{"existence via literal true", "anything", true, true},
		{"array vs array intersection", []any{"a", "b"}, []any{"b", "c"}, true},
		{"array vs array disjoint", []any{"a"}, []any{"c"}, false},
		{"array vs scalar membership", []string{"open", "urgent"}, "Open", true},
		{"string equality trimmed", "  Open ", "open", true},
		{"string mismatch", "closed", "open", false},
		{"numeric coercion", "42", 42, true},
		{"numeric mismatch", "41", 42.0, false},
		{"bool truthy coercion", "true", true, true},
		{"bool falsy", 0, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := matchPropertyValue(tc.got, tc.want); got != tc.ok {
				t.Errorf("matchPropertyValue(%v, %v) = %v, want %v", tc.got, tc.want, got, tc.ok)
			}
		})
	}
}

func TestApplyFilter_PropertiesAnyAll(t *testing.T) {
	records := []*models.ContentRecord{
		page("A", func(r *models.ContentRecord) {
			r.Properties = map[string]any{"Status": "open", "priority": "high"}
		}),
		page("B", func(r *models.ContentRecord) {
			r.Properties = map[string]any{"status": "open"}
		}),
	}

	got := applyFilter(records, &Filter{PropertiesAll: map[string]any{
		"status":   "open",
		"priority": "high",
	}})
	if len(got) != 1 || got[0].Name != "A" {
		t.Errorf("properties_all: got %v, want [A]", names(got))
	}

	got = applyFilter(records, &Filter{PropertiesAny: map[string]any{
		"priority": "high",
		"missing":  "x",
	}})
	if len(got) != 1 || got[0].Name != "A" {
		t.Errorf("properties_any: got %v, want [A]", names(got))
	}
}

func TestApplyFilter_Tags(t *testing.T) {
	records := []*models.ContentRecord{
		page("A", func(r *models.ContentRecord) { r.Tags = []string{"go", "notes"} }),
		page("B", func(r *models.ContentRecord) { r.Tags = []string{"go"} }),
	}
	got := applyFilter(records, &Filter{TagsAll: []string{"GO", "Notes"}})
	if len(got) != 1 || got[0].Name != "A" {
		t.Errorf("tags_all: got %v", names(got))
	}
	got = applyFilter(records, &Filter{TagsAny: []string{"notes", "absent"}})
	if len(got) != 1 || got[0].Name != "A" {
		t.Errorf("tags_any: got %v", names(got))
	}
}

func TestApplyFilter_TimeBoundsStrict(t *testing.T) {
	base := time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)
	records := []*models.ContentRecord{
		page("old", func(r *models.ContentRecord) { r.UpdatedAt = base.AddDate(0, 0, -10) }),
		page("new", func(r *models.ContentRecord) { r.UpdatedAt = base }),
	}

	got := applyFilter(records, &Filter{UpdatedAfter: "2025-08-25"})
	if len(got) != 1 || got[0].Name != "new" {
		t.Errorf("updated_after: got %v", names(got))
	}

	// Epoch input.
	got = applyFilter(records, &Filter{UpdatedBefore: base.Unix()})
	if len(got) != 1 || got[0].Name != "old" {
		t.Errorf("updated_before epoch: got %v", names(got))
	}

	// Strict comparison: equality does not pass.
	got = applyFilter(records, &Filter{UpdatedAfter: base.Format(time.RFC3339)})
	if len(got) != 0 {
		t.Errorf("strict after: got %v, want none", names(got))
	}

	// Unparseable bound skips the clause instead of excluding records.
	got = applyFilter(records, &Filter{UpdatedAfter: "not a date"})
	if len(got) != 2 {
		t.Errorf("unparseable bound: got %v, want both", names(got))
	}
}

func TestApplyFilter_LengthContainsExclude(t *testing.T) {
	records := []*models.ContentRecord{
		page("Short"),
		page("A considerably longer page name"),
	}
	five := 6
	got := applyFilter(records, &Filter{LengthMin: &five})
	if len(got) != 1 || got[0].Name != "A considerably longer page name" {
		t.Errorf("length_min: got %v", names(got))
	}

	got = applyFilter(records, &Filter{Contains: "LONGER", Exclude: "missing"})
	if len(got) != 1 {
		t.Errorf("contains: got %v", names(got))
	}

	got = applyFilter(records, &Filter{Exclude: "short"})
	if len(got) != 1 || got[0].Name == "Short" {
		t.Errorf("exclude: got %v", names(got))
	}
}
