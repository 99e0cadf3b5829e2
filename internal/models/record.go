// Package models defines the domain types for Raido.
package models

import "time"

// Kind discriminates the ContentRecord union.
type Kind string

// Record kinds.
const (
	KindPage     Kind = "page"
	KindBlock    Kind = "block"
	KindTemplate Kind = "template"
	KindTask     Kind = "task"
	KindProperty Kind = "property"
)

// ContentRecord is a read-only projection of one corpus entity. The ID is
// stable across fetches within a cache TTL window and is the sole key used
// for set intersection and union during evaluation.
type ContentRecord struct {
	Kind       Kind           `json:"kind"`
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Content    string         `json:"content,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitzero"`
	UpdatedAt  time.Time      `json:"updated_at,omitzero"`

	// Journal is meaningful for pages only.
	Journal bool `json:"journal,omitempty"`
	// Page names the owning page for blocks, tasks and property entries.
	Page string `json:"page,omitempty"`
}

// Text returns the primary text field for the record's kind: the display
// name for page-shaped records, the content for block-shaped ones.
func (r *ContentRecord) Text() string {
	switch r.Kind {
	case KindPage, KindTemplate:
		return r.Name
	case KindBlock, KindTask, KindProperty:
		return r.Content
	}
	return r.Name
}

// Page is a corpus page as fetched from the graph provider.
type Page struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Journal    bool           `json:"journal"`
	JournalDay int            `json:"journal_day,omitempty"` // YYYYMMDD, 0 when not a journal
	Properties map[string]any `json:"properties,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitzero"`
	UpdatedAt  time.Time      `json:"updated_at,omitzero"`
}

// Block is one node of a page's block tree.
type Block struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Page       string         `json:"page"`
	Properties map[string]any `json:"properties,omitempty"`
	Children   []*Block       `json:"children,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitzero"`
	UpdatedAt  time.Time      `json:"updated_at,omitzero"`
}

// Record converts a page to its ContentRecord projection.
func (p *Page) Record() *ContentRecord {
	return &ContentRecord{
		Kind:       KindPage,
		ID:         p.ID,
		Name:       p.Name,
		Properties: p.Properties,
		Tags:       p.Tags,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Journal:    p.Journal,
	}
}

// Record converts a block to its ContentRecord projection.
func (b *Block) Record(kind Kind) *ContentRecord {
	return &ContentRecord{
		Kind:       kind,
		ID:         b.ID,
		Content:    b.Content,
		Properties: b.Properties,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
		Page:       b.Page,
	}
}
