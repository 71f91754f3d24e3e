package nlp

import (
	"math"
	"strings"

	"github.com/cartvoice/backend/internal/domain"
)

// Confidence formula weights. Intent detection is total (worst case defaults
// to add_item), so its bonus always applies.
const (
	confidenceBase          = 0.5
	confidenceIntentBonus   = 0.2
	confidenceCatalogBonus  = 0.25
	confidenceItemBonus     = 0.1
	confidenceQuantityBonus = 0.05
)

// ConfidenceScorer turns extraction signal strength into a heuristic score
// in [0,1]. The score is a pure function of (item, item-is-catalog-key,
// quantity-present) and gates fallback escalation.
type ConfidenceScorer struct {
	catalog *domain.Catalog
}

// NewConfidenceScorer creates a scorer that checks items against catalog
// keys for the exact-match bonus.
func NewConfidenceScorer(catalog *domain.Catalog) *ConfidenceScorer {
	return &ConfidenceScorer{catalog: catalog}
}

// Score computes the confidence for a primary extraction, rounded to two
// decimals and clamped to 1.0.
func (s *ConfidenceScorer) Score(item string, quantity *float64) float64 {
	score := confidenceBase + confidenceIntentBonus

	if item != "" {
		if s.catalog.Has(strings.ToLower(item)) {
			score += confidenceCatalogBonus
		} else {
			score += confidenceItemBonus
		}
	}

	if quantity != nil {
		score += confidenceQuantityBonus
	}

	score = math.Round(score*100) / 100
	if score > 1.0 {
		score = 1.0
	}
	return score
}
