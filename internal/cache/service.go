package cache

import (
	"log/slog"
	"time"

	"github.com/starford/raido/internal/models"
)

// Key for the single-entry page and template listings.
const allKey = "all"

// TTLs carries per-category TTL overrides; zero fields keep the defaults.
type TTLs struct {
	Pages     time.Duration
	Blocks    time.Duration
	Results   time.Duration
	Templates time.Duration
}

func (t TTLs) withDefaults() TTLs {
	if t.Pages == 0 {
		t.Pages = DefaultPagesTTL
	}
	if t.Blocks == 0 {
		t.Blocks = DefaultBlocksTTL
	}
	if t.Results == 0 {
		t.Results = DefaultResultsTTL
	}
	if t.Templates == 0 {
		t.Templates = DefaultTemplatesTTL
	}
	return t
}

// Service aggregates the per-category corpus caches. It is constructed once
// per process and passed by reference to the engine; editing collaborators
// call its invalidation methods instead of reaching into shared state.
type Service struct {
	pages     *Store[[]*models.Page]
	blocks    *Store[[]*models.Block]
	results   *Store[[]*models.ContentRecord]
	templates *Store[[]*models.ContentRecord]
}

// NewService creates the cache service with the given TTL overrides.
func NewService(ttls TTLs) *Service {
	ttls = ttls.withDefaults()
	return &Service{
		pages:     NewStore[[]*models.Page](ttls.Pages),
		blocks:    NewStore[[]*models.Block](ttls.Blocks),
		results:   NewStore[[]*models.ContentRecord](ttls.Results),
		templates: NewStore[[]*models.ContentRecord](ttls.Templates),
	}
}

// Pages returns the cached all-pages listing.
func (s *Service) Pages() ([]*models.Page, bool) { return s.pages.Get(allKey) }

// SetPages caches the all-pages listing.
func (s *Service) SetPages(pages []*models.Page) { s.pages.Set(allKey, pages) }

// Blocks returns the cached block tree for a page.
func (s *Service) Blocks(page string) ([]*models.Block, bool) { return s.blocks.Get(page) }

// SetBlocks caches the block tree for a page.
func (s *Service) SetBlocks(page string, blocks []*models.Block) { s.blocks.Set(page, blocks) }

// Results returns a cached full (pre-slice) result set.
func (s *Service) Results(key string) ([]*models.ContentRecord, bool) { return s.results.Get(key) }

// SetResults caches a full result set.
func (s *Service) SetResults(key string, rs []*models.ContentRecord) { s.results.Set(key, rs) }

// Templates returns the cached template listing.
func (s *Service) Templates() ([]*models.ContentRecord, bool) { return s.templates.Get(allKey) }

// SetTemplates caches the template listing.
func (s *Service) SetTemplates(ts []*models.ContentRecord) { s.templates.Set(allKey, ts) }

// InvalidatePage drops everything a single page edit can have made stale.
// Deliberately coarse: the page listing, the template listing and all
// composed result sets go too, trading precision for simplicity.
func (s *Service) InvalidatePage(id string) {
	s.blocks.Delete(id)
	s.pages.Clear()
	s.templates.Clear()
	s.results.Clear()
	slog.Debug("cache invalidated", slog.String("kind", "page"), slog.String("id", id))
}

// InvalidateAll clears every category.
func (s *Service) InvalidateAll() {
	s.pages.Clear()
	s.blocks.Clear()
	s.results.Clear()
	s.templates.Clear()
	slog.Debug("cache invalidated", slog.String("kind", "all"))
}
