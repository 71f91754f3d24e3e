package recommend

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cartvoice/backend/internal/domain"
)

type mapCache struct {
	values map[string]interface{}
	sets   int
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]interface{})}
}

func (c *mapCache) Get(ctx context.Context, key string) (interface{}, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return nil, domain.ErrCacheMiss
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets++
	c.values[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	delete(c.values, key)
	return nil
}

func (c *mapCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.values[key]
	return ok, nil
}

type stubSuggestionSource struct {
	names []string
	err   error
	calls int
}

func (s *stubSuggestionSource) Suggest(ctx context.Context, itemName string) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.names, nil
}

func newEngineCatalog() *domain.Catalog {
	return domain.NewCatalog([]domain.CatalogEntry{
		{Name: "Bananas", NameKey: "bananas", Category: "produce", AvgPrice: 1.2, PopularityCount: 40},
		{Name: "Milk", NameKey: "milk", Category: "dairy", AvgPrice: 3.5, PopularityCount: 50},
		{Name: "Whole Milk", NameKey: "whole milk", Category: "dairy", AvgPrice: 4.2, PopularityCount: 20},
		{Name: "Almond Milk", NameKey: "almond milk", Category: "dairy", AvgPrice: 6.5, PopularityCount: 10},
		{Name: "Watermelon", NameKey: "watermelon", Category: "produce", IsSeasonal: true, PopularityCount: 30},
		{Name: "Peaches", NameKey: "peaches", Category: "produce", IsSeasonal: true, PopularityCount: 5},
		{Name: "Bread", NameKey: "bread", Category: "bakery", AvgPrice: 2.5, PopularityCount: 25},
		{Name: "Honey", NameKey: "honey", Category: "pantry", AvgPrice: 5.0, PopularityCount: 15},
	})
}

// allMonthsJSON lists the same names under every month so Current stays
// deterministic regardless of when the test runs.
func allMonthsJSON(names string) string {
	entries := make([]string, 0, 12)
	for m := 1; m <= 12; m++ {
		entries = append(entries, fmt.Sprintf("%q: %s", fmt.Sprint(m), names))
	}
	return "{" + strings.Join(entries, ",") + "}"
}

func newTestEngine(t *testing.T, store domain.ListStore, llm SuggestionSource, cache domain.CacheRepository) *Engine {
	t.Helper()
	dir := t.TempDir()
	writeDataFile(t, dir, coPurchaseFile, `{
		"bananas": ["Peanut Butter", "Honey", "Oats"],
		"milk": ["Cereal"]
	}`)
	writeDataFile(t, dir, similaritiesFile, `{"milk": ["Oat Milk"]}`)
	writeDataFile(t, dir, substitutesFile, `{
		"milk": ["Almond Milk", "Soy Milk"],
		"bananas": ["Plantains"]
	}`)
	writeDataFile(t, dir, seasonalFile, allMonthsJSON(`["Watermelon", "Honey"]`))

	e, err := NewEngine(dir, newEngineCatalog(), store, llm, cache, EngineConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func itemNames(items []domain.SuggestionItem) []string {
	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	return names
}

func TestNewEngineBadDataFile(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, coPurchaseFile, `{broken`)

	_, err := NewEngine(dir, newEngineCatalog(), &stubListStore{}, nil, nil, EngineConfig{}, nil)
	if err == nil {
		t.Error("NewEngine() error = nil, want parse error")
	}
}

func TestGetSuggestionsLayers(t *testing.T) {
	store := &stubListStore{recent: []domain.PurchaseRecord{
		record("Milk"), record("Bread"), record("Milk"),
	}}
	e := newTestEngine(t, store, nil, nil)

	got, err := e.GetSuggestions(context.Background(), "bananas", "u1")
	if err != nil {
		t.Fatalf("GetSuggestions() error = %v", err)
	}

	if names := itemNames(got.CoPurchase); !reflect.DeepEqual(names, []string{"Peanut Butter", "Honey", "Oats"}) {
		t.Errorf("CoPurchase = %v", names)
	}
	for _, it := range got.CoPurchase {
		if it.Reason != "Frequently bought together" {
			t.Errorf("CoPurchase reason = %q", it.Reason)
		}
	}
	if names := itemNames(got.Substitutes); !reflect.DeepEqual(names, []string{"Plantains"}) {
		t.Errorf("Substitutes = %v", names)
	}
	// Honey already appeared in the co-purchase layer.
	if names := itemNames(got.Seasonal); !reflect.DeepEqual(names, []string{"Watermelon"}) {
		t.Errorf("Seasonal = %v", names)
	}
	if names := itemNames(got.Reorder); !reflect.DeepEqual(names, []string{"Milk", "Bread"}) {
		t.Errorf("Reorder = %v", names)
	}
	if len(got.CatalogMatches) != 0 {
		t.Errorf("CatalogMatches = %v, want empty", itemNames(got.CatalogMatches))
	}
}

func TestGetSuggestionsExcludesNames(t *testing.T) {
	cache := newMapCache()
	e := newTestEngine(t, &stubListStore{}, nil, cache)

	got, err := e.GetSuggestions(context.Background(), "bananas", "u1", "PEANUT butter", "Watermelon")
	if err != nil {
		t.Fatalf("GetSuggestions() error = %v", err)
	}
	if names := itemNames(got.CoPurchase); !reflect.DeepEqual(names, []string{"Honey", "Oats"}) {
		t.Errorf("CoPurchase = %v, want [Honey Oats]", names)
	}
	if len(got.Seasonal) != 0 {
		t.Errorf("Seasonal = %v, want empty", itemNames(got.Seasonal))
	}

	// The cache holds the unfiltered result; a later call with nothing to
	// exclude sees the full set again.
	full, err := e.GetSuggestions(context.Background(), "bananas", "u1")
	if err != nil {
		t.Fatalf("GetSuggestions() error = %v", err)
	}
	if names := itemNames(full.CoPurchase); !reflect.DeepEqual(names, []string{"Peanut Butter", "Honey", "Oats"}) {
		t.Errorf("CoPurchase after cache = %v", names)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
}

func TestGetSuggestionsCatalogMatches(t *testing.T) {
	e := newTestEngine(t, &stubListStore{}, nil, nil)

	got, err := e.GetSuggestions(context.Background(), "milk", "u1")
	if err != nil {
		t.Fatalf("GetSuggestions() error = %v", err)
	}

	// "almond milk" is claimed by the substitutes layer first; the catalog
	// layer keeps only the remaining containment hit.
	if names := itemNames(got.Substitutes); !reflect.DeepEqual(names, []string{"Almond Milk", "Soy Milk"}) {
		t.Errorf("Substitutes = %v", names)
	}
	if names := itemNames(got.CatalogMatches); !reflect.DeepEqual(names, []string{"whole milk"}) {
		t.Errorf("CatalogMatches = %v, want [whole milk]", names)
	}
	if len(got.CatalogMatches) > 0 && got.CatalogMatches[0].Reason != "Related item" {
		t.Errorf("CatalogMatches reason = %q", got.CatalogMatches[0].Reason)
	}
}

func TestGetSuggestionsColdStartPadding(t *testing.T) {
	t.Run("sparse rules padded", func(t *testing.T) {
		llm := &stubSuggestionSource{names: []string{"Butter", "cereal", "Eggs", "Bread", "Coffee", "Tea", "Juice"}}
		e := newTestEngine(t, &stubListStore{}, llm, nil)

		got, err := e.GetSuggestions(context.Background(), "milk", "u1")
		if err != nil {
			t.Fatalf("GetSuggestions() error = %v", err)
		}
		want := []string{"Cereal", "Butter", "Eggs", "Bread", "Coffee", "Tea"}
		if names := itemNames(got.CoPurchase); !reflect.DeepEqual(names, want) {
			t.Errorf("CoPurchase = %v, want %v", names, want)
		}
		if llm.calls != 1 {
			t.Errorf("llm calls = %d, want 1", llm.calls)
		}
	})

	t.Run("rich rules skip the source", func(t *testing.T) {
		llm := &stubSuggestionSource{names: []string{"Never"}}
		e := newTestEngine(t, &stubListStore{}, llm, nil)

		if _, err := e.GetSuggestions(context.Background(), "bananas", "u1"); err != nil {
			t.Fatalf("GetSuggestions() error = %v", err)
		}
		if llm.calls != 0 {
			t.Errorf("llm calls = %d, want 0", llm.calls)
		}
	})

	t.Run("source failure keeps sparse rules", func(t *testing.T) {
		llm := &stubSuggestionSource{err: errors.New("upstream down")}
		e := newTestEngine(t, &stubListStore{}, llm, nil)

		got, err := e.GetSuggestions(context.Background(), "milk", "u1")
		if err != nil {
			t.Fatalf("GetSuggestions() error = %v", err)
		}
		if names := itemNames(got.CoPurchase); !reflect.DeepEqual(names, []string{"Cereal"}) {
			t.Errorf("CoPurchase = %v, want [Cereal]", names)
		}
	})
}

func TestGetSuggestionsCaching(t *testing.T) {
	cache := newMapCache()
	e := newTestEngine(t, &stubListStore{}, nil, cache)

	first, err := e.GetSuggestions(context.Background(), "bananas", "u1")
	if err != nil {
		t.Fatalf("GetSuggestions() error = %v", err)
	}
	second, err := e.GetSuggestions(context.Background(), "bananas", "u1")
	if err != nil {
		t.Fatalf("GetSuggestions() error = %v", err)
	}
	if first != second {
		t.Error("second call did not serve the cached value")
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
}

func TestGetSuggestionsStoreError(t *testing.T) {
	wantErr := errors.New("db gone")
	e := newTestEngine(t, &stubListStore{failWith: wantErr}, nil, nil)

	if _, err := e.GetSuggestions(context.Background(), "bananas", "u1"); !errors.Is(err, wantErr) {
		t.Errorf("GetSuggestions() error = %v, want %v", err, wantErr)
	}
}

func TestHomeData(t *testing.T) {
	store := &stubListStore{recent: []domain.PurchaseRecord{
		record("Milk"), record("Bread"), record("Milk"),
	}}
	e := newTestEngine(t, store, nil, nil)

	got, err := e.HomeData(context.Background(), "u1")
	if err != nil {
		t.Fatalf("HomeData() error = %v", err)
	}

	var seasonal []string
	for _, entry := range got.Seasonal {
		seasonal = append(seasonal, entry.Name)
	}
	if !reflect.DeepEqual(seasonal, []string{"Watermelon", "Honey"}) {
		t.Errorf("Seasonal = %v", seasonal)
	}

	if len(got.Popular) != 8 {
		t.Fatalf("Popular returned %d entries, want 8", len(got.Popular))
	}
	if got.Popular[0].Name != "Milk" || got.Popular[1].Name != "Bananas" {
		t.Errorf("Popular head = %q, %q, want Milk, Bananas", got.Popular[0].Name, got.Popular[1].Name)
	}

	if names := itemNames(got.Reorder); !reflect.DeepEqual(names, []string{"Milk", "Bread"}) {
		t.Errorf("Reorder = %v", names)
	}

	wantCategories := []domain.CategoryMeta{
		{Name: "dairy", Count: 3},
		{Name: "produce", Count: 3},
		{Name: "bakery", Count: 1},
		{Name: "pantry", Count: 1},
	}
	if !reflect.DeepEqual(got.Categories, wantCategories) {
		t.Errorf("Categories = %v, want %v", got.Categories, wantCategories)
	}
}

func TestHomeDataCaching(t *testing.T) {
	cache := newMapCache()
	e := newTestEngine(t, &stubListStore{}, nil, cache)

	first, err := e.HomeData(context.Background(), "u1")
	if err != nil {
		t.Fatalf("HomeData() error = %v", err)
	}
	second, err := e.HomeData(context.Background(), "u1")
	if err != nil {
		t.Fatalf("HomeData() error = %v", err)
	}
	if first != second {
		t.Error("second call did not serve the cached value")
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
}

func TestRelated(t *testing.T) {
	e := newTestEngine(t, &stubListStore{}, nil, nil)

	got := e.Related("bananas")
	if !reflect.DeepEqual(got.CoPurchase, []string{"Peanut Butter", "Honey", "Oats"}) {
		t.Errorf("CoPurchase = %v", got.CoPurchase)
	}
	if !reflect.DeepEqual(got.Substitutes, []string{"Plantains"}) {
		t.Errorf("Substitutes = %v", got.Substitutes)
	}

	if unknown := e.Related("durian"); len(unknown.CoPurchase) != 0 || len(unknown.Substitutes) != 0 {
		t.Errorf("Related(unknown) = %+v, want empty", unknown)
	}
}
