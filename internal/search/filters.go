package search

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/starford/raido/internal/models"
)

// applyScope post-filters candidates by namespace, title allow-list,
// journal flag and tag membership. Categories combine as AND.
func applyScope(records []*models.ContentRecord, scope *Scope) []*models.ContentRecord {
	if scope == nil {
		return records
	}
	out := records[:0:0]
	for _, r := range records {
		if !inScope(r, scope) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func inScope(r *models.ContentRecord, scope *Scope) bool {
	name := r.Name
	if name == "" {
		name = r.Page
	}

	if ns := scope.Namespace; ns != "" {
		// Prefix match against "namespace/" or exact equality to the
		// bare namespace (root membership).
		if name != ns && !strings.HasPrefix(name, ns+"/") {
			return false
		}
	}

	if len(scope.PageTitles) > 0 {
		found := false
		for _, t := range scope.PageTitles {
			if name == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if scope.Journal != nil && r.Journal != *scope.Journal {
		return false
	}

	if scope.Tag != "" && !hasTag(r.Tags, scope.Tag) {
		return false
	}
	return true
}

// applyFilter post-filters candidates by record attributes.
func applyFilter(records []*models.ContentRecord, f *Filter) []*models.ContentRecord {
	if f == nil {
		return records
	}
	out := records[:0:0]
	for _, r := range records {
		if !passesFilter(r, f) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func passesFilter(r *models.ContentRecord, f *Filter) bool {
	text := r.Text()

	if f.LengthMin != nil && len(text) < *f.LengthMin {
		return false
	}
	if f.LengthMax != nil && len(text) > *f.LengthMax {
		return false
	}

	if len(f.PropertiesAny) > 0 && !matchProperties(r.Properties, f.PropertiesAny, false) {
		return false
	}
	if len(f.PropertiesAll) > 0 && !matchProperties(r.Properties, f.PropertiesAll, true) {
		return false
	}

	if len(f.TagsAny) > 0 && !matchTags(r.Tags, f.TagsAny, false) {
		return false
	}
	if len(f.TagsAll) > 0 && !matchTags(r.Tags, f.TagsAll, true) {
		return false
	}

	if !passesTimeBound(r.CreatedAt, f.CreatedAfter, true) ||
		!passesTimeBound(r.CreatedAt, f.CreatedBefore, false) ||
		!passesTimeBound(r.UpdatedAt, f.UpdatedAfter, true) ||
		!passesTimeBound(r.UpdatedAt, f.UpdatedBefore, false) {
		return false
	}

	if f.Contains != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(f.Contains)) {
		return false
	}
	if f.Exclude != "" && strings.Contains(strings.ToLower(text), strings.ToLower(f.Exclude)) {
		return false
	}
	return true
}

// matchProperties applies the key→value clauses; all=false is OR across
// keys, all=true is AND.
func matchProperties(props map[string]any, want map[string]any, all bool) bool {
	for key, wantVal := range want {
		got, exists := lookupProperty(props, key)
		matched := exists && matchPropertyValue(got, wantVal)
		if all && !matched {
			return false
		}
		if !all && matched {
			return true
		}
	}
	return all
}

// matchPropertyValue compares a record property against a filter value
// across the loosely-typed representations the corpus produces:
//
//   - literal true        → existence check (already established by caller)
//   - array vs array      → non-empty intersection
//   - array vs scalar     → membership
//   - string vs string    → case-insensitive trimmed equality
//   - numeric filter      → coerce record value to number and compare
//   - boolean filter      → truthy-coerce record value and compare
//   - anything else       → strict equality
func matchPropertyValue(got, want any) bool {
	if b, ok := want.(bool); ok && b {
		return true
	}

	gotList, gotIsList := toStringList(got)
	wantList, wantIsList := toStringList(want)
	switch {
	case gotIsList && wantIsList:
		for _, w := range wantList {
			for _, g := range gotList {
				if strings.EqualFold(strings.TrimSpace(g), strings.TrimSpace(w)) {
					return true
				}
			}
		}
		return false
	case gotIsList:
		w := strings.TrimSpace(cast.ToString(want))
		for _, g := range gotList {
			if strings.EqualFold(strings.TrimSpace(g), w) {
				return true
			}
		}
		return false
	}

	switch w := want.(type) {
	case string:
		if g, ok := got.(string); ok {
			return strings.EqualFold(strings.TrimSpace(g), strings.TrimSpace(w))
		}
		return strings.EqualFold(strings.TrimSpace(stringify(got)), strings.TrimSpace(w))
	case int, int64, float32, float64:
		g, err := cast.ToFloat64E(got)
		if err != nil {
			return false
		}
		return g == cast.ToFloat64(w)
	case bool:
		return cast.ToBool(got) == w
	}
	return reflect.DeepEqual(got, want)
}

// matchTags applies the any/all semantics over normalised tag sets.
func matchTags(tags, want []string, all bool) bool {
	for _, w := range want {
		matched := hasTag(tags, w)
		if all && !matched {
			return false
		}
		if !all && matched {
			return true
		}
	}
	return all
}

func hasTag(tags []string, want string) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	for _, t := range tags {
		if strings.ToLower(strings.TrimSpace(t)) == want {
			return true
		}
	}
	return false
}

// passesTimeBound applies one strict timestamp comparison. An absent or
// unparseable bound skips the clause rather than excluding the record.
func passesTimeBound(ts time.Time, bound any, after bool) bool {
	if bound == nil {
		return true
	}
	b, ok := parseDateValue(bound)
	if !ok {
		return true
	}
	if after {
		return ts.After(b)
	}
	return ts.Before(b)
}

// parseDateValue interprets a loosely-typed value as a timestamp: epoch
// numbers (seconds, or milliseconds above 1e12) and common date strings.
func parseDateValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case int, int64, float32, float64:
		n := cast.ToInt64(t)
		if n <= 0 {
			return time.Time{}, false
		}
		if n > 1e12 {
			return time.UnixMilli(n), true
		}
		return time.Unix(n, 0), true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "Jan 2, 2006", "2006/01/02"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// lookupProperty finds a property by case-insensitive key.
func lookupProperty(props map[string]any, key string) (any, bool) {
	if v, ok := props[key]; ok {
		return v, true
	}
	for k, v := range props {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// toStringList reports whether v is array-shaped, returning its elements
// stringified.
func toStringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, stringify(item))
		}
		return out, true
	}
	return nil, false
}

// stringify renders a property value the way it appears in queries.
func stringify(v any) string {
	if list, ok := toStringList(v); ok {
		return strings.Join(list, ", ")
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
