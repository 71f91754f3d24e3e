package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cartvoice/backend/internal/domain"
)

// entryWire mirrors one product record in item_catalog.json.
type entryWire struct {
	Name        string   `json:"name"`
	NameLower   string   `json:"name_lower"`
	Category    string   `json:"category"`
	CommonUnits []string `json:"common_units"`
	AvgPrice    float64  `json:"avg_price"`
	IsSeasonal  bool     `json:"is_seasonal"`
	OrderCount  int      `json:"order_count"`
}

// Load reads the product catalog from path. The file is required since
// matching and browsing cannot run without it. Records missing a name are
// skipped; a missing name_lower falls back to the lowercased name.
func Load(path string, logger *zap.Logger) (*domain.Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var wires []entryWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(wires))
	for _, w := range wires {
		if w.Name == "" {
			logger.Warn("skipping catalog record without a name")
			continue
		}
		key := w.NameLower
		if key == "" {
			key = strings.ToLower(w.Name)
		}
		entries = append(entries, domain.CatalogEntry{
			Name:            w.Name,
			NameKey:         key,
			Category:        w.Category,
			CommonUnits:     w.CommonUnits,
			AvgPrice:        w.AvgPrice,
			IsSeasonal:      w.IsSeasonal,
			PopularityCount: w.OrderCount,
		})
	}

	c := domain.NewCatalog(entries)
	logger.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("items", c.Len()),
		zap.Int("categories", len(c.Categories())))
	return c, nil
}
