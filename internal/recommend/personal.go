package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cartvoice/backend/internal/domain"
)

const (
	// reorderWindowDays bounds the recent-purchase window.
	reorderWindowDays = 30
	// broadHistoryLimit caps the all-time fallback scan when the window is
	// empty.
	broadHistoryLimit = 200
)

// Personal suggests reorders from the user's purchase frequency.
type Personal struct {
	store domain.ListStore
}

// NewPersonal creates a personal recommender over the purchase history.
func NewPersonal(store domain.ListStore) *Personal {
	return &Personal{store: store}
}

// Reorder returns the user's most frequently purchased items within the
// recent window, ordered by count. When the window holds nothing, the
// all-time history is consulted instead. Ties keep first-purchased order.
func (p *Personal) Reorder(ctx context.Context, userID string, topK int) ([]domain.SuggestionItem, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -reorderWindowDays)
	records, err := p.store.PurchasesSince(ctx, userID, cutoff)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		records, err = p.store.PurchaseHistory(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(records) > broadHistoryLimit {
			records = records[:broadHistoryLimit]
		}
	}
	if len(records) == 0 {
		return nil, nil
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	display := make(map[string]string)
	for i, rec := range records {
		key := rec.NameKey
		if key == "" {
			key = strings.ToLower(rec.ItemName)
		}
		if _, ok := counts[key]; !ok {
			firstSeen[key] = i
			display[key] = rec.ItemName
		}
		counts[key]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return firstSeen[keys[i]] < firstSeen[keys[j]]
	})
	if len(keys) > topK {
		keys = keys[:topK]
	}

	out := make([]domain.SuggestionItem, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.SuggestionItem{
			Name:   display[k],
			Reason: fmt.Sprintf("Bought %dx recently", counts[k]),
		})
	}
	return out, nil
}
