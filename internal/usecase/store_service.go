package usecase

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cartvoice/backend/internal/domain"
	"github.com/cartvoice/backend/internal/recommend"
)

const (
	categoryPageSize   = 20
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// StoreService serves the browsing surface: home page, category pages,
// search, and per-product related items. Browsing reads only the immutable
// catalog and the recommendation engine, so none of it takes locks.
type StoreService struct {
	catalog *domain.Catalog
	engine  *recommend.Engine
	logger  *zap.Logger
}

// NewStoreService creates a store browsing service.
func NewStoreService(catalog *domain.Catalog, engine *recommend.Engine, logger *zap.Logger) *StoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreService{catalog: catalog, engine: engine, logger: logger}
}

// Home returns the personalized store landing page.
func (s *StoreService) Home(ctx context.Context, userID string) (*domain.HomeData, error) {
	return s.engine.HomeData(ctx, userID)
}

// CategoryPage returns one page of a category, most popular products first.
// The page number is clamped into the valid range, so out-of-range requests
// return the nearest real page instead of an error.
func (s *StoreService) CategoryPage(category string, page int) *domain.CategoryPage {
	want := strings.ToLower(strings.TrimSpace(category))

	var items []domain.CatalogEntry
	for _, entry := range s.catalog.Entries() {
		if strings.ToLower(entry.Category) == want {
			items = append(items, entry)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PopularityCount > items[j].PopularityCount
	})

	total := len(items)
	pages := (total + categoryPageSize - 1) / categoryPageSize
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * categoryPageSize
	end := start + categoryPageSize
	if end > total {
		end = total
	}
	return &domain.CategoryPage{
		Category: category,
		Items:    items[start:end],
		Page:     page,
		Pages:    pages,
		Total:    total,
	}
}

// Search matches catalog entries whose key contains the query. Exact key
// matches rank first, then prefix matches, then plain containment; an
// optional price ceiling filters before ranking. An empty query browses the
// whole catalog.
func (s *StoreService) Search(query string, limit int, priceMax *float64) *domain.SearchResults {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))

	type hit struct {
		entry domain.CatalogEntry
		rank  int
	}
	var hits []hit
	for _, key := range s.catalog.Keys() {
		if q != "" && !strings.Contains(key, q) {
			continue
		}
		entry, ok := s.catalog.Lookup(key)
		if !ok {
			continue
		}
		if priceMax != nil && entry.AvgPrice > *priceMax {
			continue
		}
		rank := 2
		switch {
		case key == q:
			rank = 0
		case strings.HasPrefix(key, q):
			rank = 1
		}
		hits = append(hits, hit{entry: *entry, rank: rank})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	total := len(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	items := make([]domain.CatalogEntry, 0, len(hits))
	for _, h := range hits {
		items = append(items, h.entry)
	}
	return &domain.SearchResults{Query: query, Total: total, Items: items}
}

// Related returns co-purchase and substitute names for a product page.
func (s *StoreService) Related(itemName string) domain.RelatedProducts {
	return s.engine.Related(itemName)
}
