// Package testutil provides shared test helpers: an in-memory corpus
// provider and a canned fixture graph.
package testutil

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/starford/raido/internal/models"
)

// FakeProvider is an in-memory corpus provider for tests. It counts calls
// so tests can assert on cache behaviour, and can be told to fail.
type FakeProvider struct {
	PagesByName  map[string]*models.Page
	BlocksByPage map[string][]*models.Block
	PageOrder    []string

	FailPages  bool
	FailBlocks bool

	ListCalls  atomic.Int64
	BlockCalls atomic.Int64
}

// NewFakeProvider creates an empty fake provider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		PagesByName:  make(map[string]*models.Page),
		BlocksByPage: make(map[string][]*models.Block),
	}
}

// AddPage registers a page, preserving insertion order for listings.
func (f *FakeProvider) AddPage(p *models.Page) *FakeProvider {
	if p.ID == "" {
		p.ID = p.Name
	}
	f.PagesByName[p.Name] = p
	f.PageOrder = append(f.PageOrder, p.Name)
	return f
}

// AddBlocks registers the block tree for a page.
func (f *FakeProvider) AddBlocks(page string, blocks ...*models.Block) *FakeProvider {
	for i, b := range blocks {
		if b.ID == "" {
			b.ID = page + "#" + strconv.Itoa(i+1)
		}
		b.Page = page
	}
	f.BlocksByPage[page] = blocks
	return f
}

// ListAllPages implements graph.Provider.
func (f *FakeProvider) ListAllPages(_ context.Context) ([]*models.Page, error) {
	f.ListCalls.Add(1)
	if f.FailPages {
		return nil, errors.New("fake provider: pages unavailable")
	}
	out := make([]*models.Page, 0, len(f.PageOrder))
	for _, name := range f.PageOrder {
		out = append(out, f.PagesByName[name])
	}
	return out, nil
}

// PageBlocks implements graph.Provider.
func (f *FakeProvider) PageBlocks(_ context.Context, page string) ([]*models.Block, error) {
	f.BlockCalls.Add(1)
	if f.FailBlocks {
		return nil, errors.New("fake provider: blocks unavailable")
	}
	return f.BlocksByPage[page], nil
}
