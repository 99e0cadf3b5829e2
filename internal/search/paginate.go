package search

import (
	"log/slog"
	"strconv"

	"github.com/starford/raido/internal/models"
)

// parseCursor decodes the opaque pagination token. A malformed or negative
// cursor resets silently to offset 0 with a warning; it is never an error.
func parseCursor(cursor string) int {
	if cursor == "" {
		return 0
	}
	offset, err := strconv.Atoi(cursor)
	if err != nil || offset < 0 {
		slog.Warn("invalid cursor, resetting to start", slog.String("cursor", cursor))
		return 0
	}
	return offset
}

// paginate slices the full ordered result set by cursor and limit and
// computes the continuation token. has_more holds iff records remain past
// this page; next_cursor is present iff has_more.
func paginate(full []*models.ContentRecord, limit int, cursor string) *SearchResult {
	offset := parseCursor(cursor)
	total := len(full)

	start := min(offset, total)
	end := min(start+limit, total)

	res := &SearchResult{
		Results:    full[start:end],
		TotalFound: total,
		HasMore:    total > offset+limit,
	}
	if res.Results == nil {
		res.Results = []*models.ContentRecord{}
	}
	if res.HasMore {
		res.NextCursor = strconv.Itoa(offset + limit)
	}
	return res
}
