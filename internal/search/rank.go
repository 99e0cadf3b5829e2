package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/raido/internal/models"
)

var (
	phraseRe  = regexp.MustCompile(`"([^"]+)"`)
	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}-]+`)

	// NFD-decompose and drop combining marks, so "café" scores like "cafe".
	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// relevanceScore computes the free-text heuristic score of text against a
// raw query. Double-quoted phrases short-circuit token scoring: the score
// is 100 per matched phrase and nothing else.
func relevanceScore(text, rawQuery string) int {
	if phrases := phraseRe.FindAllStringSubmatch(rawQuery, -1); len(phrases) > 0 {
		lower := strings.ToLower(text)
		score := 0
		for _, m := range phrases {
			if strings.Contains(lower, strings.ToLower(m[1])) {
				score += 100
			}
		}
		return score
	}

	nText := normalize(text)
	nQuery := normalize(rawQuery)
	if nQuery == "" {
		return 0
	}

	score := 0
	switch {
	case nText == nQuery:
		score += 100
	case strings.Contains(nText, nQuery):
		score += 50
	}

	textTokens := strings.Fields(nText)
	for _, qt := range strings.Fields(nQuery) {
		for _, tt := range textTokens {
			switch {
			case tt == qt:
				score += 10
			case strings.Contains(tt, qt):
				score += 5
			}
		}
	}
	return score
}

// normalize lowercases, strips diacritics, replaces non-word characters
// (hyphens kept) with spaces, and collapses whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// sortRecords orders records by the requested key. Relevance scores are
// computed once per record.
func sortRecords(records []*models.ContentRecord, rawQuery string, key SortKey, order Order) {
	desc := order == OrderDesc

	var less func(a, b *models.ContentRecord) bool
	switch key {
	case SortRelevance:
		scores := make(map[string]int, len(records))
		for _, r := range records {
			scores[r.ID] = relevanceScore(r.Text(), rawQuery)
		}
		less = func(a, b *models.ContentRecord) bool { return scores[a.ID] < scores[b.ID] }
	case SortCreated:
		// Zero (missing/unparseable) times are the earliest value, so they
		// land last in a descending-by-recency view.
		less = func(a, b *models.ContentRecord) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortUpdated:
		less = func(a, b *models.ContentRecord) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case SortTitle:
		less = func(a, b *models.ContentRecord) bool {
			return strings.ToLower(sortTitle(a)) < strings.ToLower(sortTitle(b))
		}
	case SortLength:
		less = func(a, b *models.ContentRecord) bool { return len(a.Text()) < len(b.Text()) }
	default:
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		if desc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}

// sortTitle picks the comparable title per record kind.
func sortTitle(r *models.ContentRecord) string {
	switch r.Kind {
	case models.KindPage, models.KindTemplate:
		return r.Name
	case models.KindBlock, models.KindTask, models.KindProperty:
		if r.Page != "" {
			return r.Page
		}
		return r.Content
	}
	return r.Name
}
