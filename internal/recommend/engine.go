package recommend

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cartvoice/backend/internal/domain"
)

// Layer fan-out sizes.
const (
	coPurchaseTopK   = 6
	substituteTopK   = 4
	seasonalTopK     = 6
	reorderTopK      = 4
	catalogMatchTopK = 8

	homeSeasonalTopK = 8
	homePopularTopK  = 12
	homeReorderTopK  = 5

	// sparseCoPurchaseMin triggers cold-start padding when the rule lookup
	// returns fewer names.
	sparseCoPurchaseMin = 3
)

const defaultSuggestionsTTL = 5 * time.Minute

// Reasons shown next to each layer's suggestions.
const (
	reasonCoPurchase = "Frequently bought together"
	reasonSubstitute = "Similar item"
	reasonSeasonal   = "In season now"
	reasonCatalog    = "Related item"
)

// Data file names expected under the data directory.
const (
	coPurchaseFile   = "co_purchase_rules.json"
	similaritiesFile = "item_similarities.json"
	substitutesFile  = "substitutes.json"
	seasonalFile     = "seasonal_items.json"
)

// SuggestionSource pads sparse co-purchase results for cold-start items,
// typically backed by an LLM. Implementations must honor ctx.
type SuggestionSource interface {
	Suggest(ctx context.Context, itemName string) ([]string, error)
}

// EngineConfig holds tuning for the recommendation engine.
type EngineConfig struct {
	SuggestionsTTL time.Duration
}

// Engine combines the recommendation layers: co-purchase rules, substitutes,
// seasonal picks, and personal reorder frequency, with optional cold-start
// padding. Results are deduplicated across layers and cached.
type Engine struct {
	catalog    *domain.Catalog
	coPurchase *CoPurchase
	similarity *Similarity
	seasonal   *Seasonal
	personal   *Personal
	llm        SuggestionSource
	cache      domain.CacheRepository
	ttl        time.Duration
	logger     *zap.Logger
}

// NewEngine loads the layer data files from dataDir and wires the engine.
// llm and cache may be nil; the engine then skips cold-start padding and
// caching respectively.
func NewEngine(
	dataDir string,
	catalog *domain.Catalog,
	store domain.ListStore,
	llm SuggestionSource,
	cache domain.CacheRepository,
	config EngineConfig,
	logger *zap.Logger,
) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	coPurchase, err := NewCoPurchase(filepath.Join(dataDir, coPurchaseFile), logger)
	if err != nil {
		return nil, err
	}
	similarity, err := NewSimilarity(
		filepath.Join(dataDir, similaritiesFile),
		filepath.Join(dataDir, substitutesFile),
		logger,
	)
	if err != nil {
		return nil, err
	}
	seasonal, err := NewSeasonal(filepath.Join(dataDir, seasonalFile), logger)
	if err != nil {
		return nil, err
	}

	ttl := config.SuggestionsTTL
	if ttl <= 0 {
		ttl = defaultSuggestionsTTL
	}

	logger.Info("recommendation engine ready", zap.Bool("coldStart", llm != nil))
	return &Engine{
		catalog:    catalog,
		coPurchase: coPurchase,
		similarity: similarity,
		seasonal:   seasonal,
		personal:   NewPersonal(store),
		llm:        llm,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
	}, nil
}

// GetSuggestions gathers suggestions from every layer for an item the user
// just added or asked about. Names are deduplicated across layers in layer
// priority order; the queried item itself and any excluded names (typically
// items already on the list) never appear. The cache holds the unfiltered
// result so one entry serves every list state.
func (e *Engine) GetSuggestions(ctx context.Context, itemName, userID string, exclude ...string) (*domain.Suggestions, error) {
	cacheKey := fmt.Sprintf("suggestions:%s:%s", strings.ToLower(strings.TrimSpace(itemName)), userID)
	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, cacheKey); err == nil {
			if s, ok := cached.(*domain.Suggestions); ok {
				return filterSuggestions(s, exclude), nil
			}
		}
	}

	subs := e.similarity.GetSubstitutes(itemName, substituteTopK)
	seasonal := e.seasonal.Current(seasonalTopK)

	var (
		co      []string
		reorder []domain.SuggestionItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		co = e.coPurchase.Get(itemName, coPurchaseTopK)
		if len(co) >= sparseCoPurchaseMin || e.llm == nil {
			return nil
		}
		co = e.padColdStart(gctx, itemName, co)
		return nil
	})
	g.Go(func() error {
		var err error
		reorder, err = e.personal.Reorder(gctx, userID, reorderTopK)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]bool{strings.ToLower(strings.TrimSpace(itemName)): true}
	dedup := func(names []string, reason string) []domain.SuggestionItem {
		var out []domain.SuggestionItem
		for _, n := range names {
			key := strings.ToLower(n)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, domain.SuggestionItem{Name: n, Reason: reason})
		}
		return out
	}

	suggestions := &domain.Suggestions{
		CoPurchase:     dedup(co, reasonCoPurchase),
		Substitutes:    dedup(subs, reasonSubstitute),
		Seasonal:       dedup(seasonal, reasonSeasonal),
		Reorder:        reorder,
		CatalogMatches: dedup(e.catalogMatches(itemName, catalogMatchTopK), reasonCatalog),
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, cacheKey, suggestions, e.ttl); err != nil {
			e.logger.Warn("suggestions cache write failed", zap.Error(err))
		}
	}
	return filterSuggestions(suggestions, exclude), nil
}

// filterSuggestions drops excluded names from every layer. The input is never
// mutated; cached values stay intact.
func filterSuggestions(s *domain.Suggestions, exclude []string) *domain.Suggestions {
	if len(exclude) == 0 {
		return s
	}
	drop := make(map[string]bool, len(exclude))
	for _, n := range exclude {
		if key := strings.ToLower(strings.TrimSpace(n)); key != "" {
			drop[key] = true
		}
	}
	if len(drop) == 0 {
		return s
	}

	keep := func(items []domain.SuggestionItem) []domain.SuggestionItem {
		var out []domain.SuggestionItem
		for _, it := range items {
			if drop[strings.ToLower(it.Name)] {
				continue
			}
			out = append(out, it)
		}
		return out
	}
	return &domain.Suggestions{
		CoPurchase:     keep(s.CoPurchase),
		Substitutes:    keep(s.Substitutes),
		Seasonal:       keep(s.Seasonal),
		Reorder:        keep(s.Reorder),
		CatalogMatches: keep(s.CatalogMatches),
	}
}

// padColdStart extends a sparse co-purchase list from the LLM source. Padding
// failures are logged and ignored; the sparse list still serves.
func (e *Engine) padColdStart(ctx context.Context, itemName string, co []string) []string {
	padded, err := e.llm.Suggest(ctx, itemName)
	if err != nil {
		e.logger.Warn("cold-start suggestions failed", zap.String("item", itemName), zap.Error(err))
		return co
	}

	seen := make(map[string]bool, len(co))
	for _, n := range co {
		seen[strings.ToLower(n)] = true
	}
	for _, n := range padded {
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		co = append(co, n)
		seen[key] = true
		if len(co) >= coPurchaseTopK {
			break
		}
	}
	return co
}

// catalogMatches finds catalog keys related to the item by containment.
// Prefix hits rank ahead of plain containment; reverse containment (a catalog
// key inside a longer query) comes last. The item's own key is skipped.
func (e *Engine) catalogMatches(itemName string, topK int) []string {
	query := strings.ToLower(strings.TrimSpace(itemName))
	if query == "" {
		return nil
	}

	var buckets [3][]string
	for _, key := range e.catalog.Keys() {
		switch {
		case key == query:
		case strings.Contains(key, query):
			if strings.HasPrefix(key, query) {
				buckets[0] = append(buckets[0], key)
			} else {
				buckets[1] = append(buckets[1], key)
			}
		case strings.Contains(query, key):
			buckets[2] = append(buckets[2], key)
		}
	}

	var out []string
	for _, bucket := range buckets {
		for _, key := range bucket {
			if len(out) >= topK {
				return out
			}
			out = append(out, key)
		}
	}
	return out
}

// HomeData assembles the store landing page: seasonal picks resolved against
// the catalog, the most popular products, personal reorders, and category
// counts ordered largest first.
func (e *Engine) HomeData(ctx context.Context, userID string) (*domain.HomeData, error) {
	cacheKey := "store:home:" + userID
	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, cacheKey); err == nil {
			if h, ok := cached.(*domain.HomeData); ok {
				return h, nil
			}
		}
	}

	var seasonal []domain.CatalogEntry
	for _, name := range e.seasonal.Current(homeSeasonalTopK) {
		if entry, ok := e.catalog.Lookup(strings.ToLower(name)); ok {
			seasonal = append(seasonal, *entry)
		}
	}

	reorder, err := e.personal.Reorder(ctx, userID, homeReorderTopK)
	if err != nil {
		return nil, err
	}

	counts := e.catalog.Categories()
	categories := make([]domain.CategoryMeta, 0, len(counts))
	for name, count := range counts {
		categories = append(categories, domain.CategoryMeta{Name: name, Count: count})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return categories[i].Name < categories[j].Name
	})

	home := &domain.HomeData{
		Seasonal:   seasonal,
		Popular:    e.popularEntries(homePopularTopK),
		Reorder:    reorder,
		Categories: categories,
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, cacheKey, home, e.ttl); err != nil {
			e.logger.Warn("home data cache write failed", zap.Error(err))
		}
	}
	return home, nil
}

// Related returns co-purchase and substitute names for a product page.
func (e *Engine) Related(itemName string) domain.RelatedProducts {
	return domain.RelatedProducts{
		CoPurchase:  e.coPurchase.Get(itemName, coPurchaseTopK),
		Substitutes: e.similarity.GetSubstitutes(itemName, substituteTopK),
	}
}

// popularEntries returns the topK catalog entries by popularity, key order
// breaking ties.
func (e *Engine) popularEntries(topK int) []domain.CatalogEntry {
	entries := e.catalog.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PopularityCount > entries[j].PopularityCount
	})
	if len(entries) > topK {
		entries = entries[:topK]
	}
	return entries
}
