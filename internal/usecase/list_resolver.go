package usecase

import (
	"strings"

	"github.com/cartvoice/backend/internal/domain"
)

// listArticles are stripped once from the front of a reference before
// matching against list items.
var listArticles = []string{"the ", "a ", "an ", "some "}

const defaultListFuzzyThreshold = 0.70

// ListResolver resolves a free-text item reference against a snapshot of the
// items currently on a list. It performs no I/O of its own; the caller
// supplies the snapshot and applies any mutation within its own transactional
// boundary.
type ListResolver struct {
	fuzzyThreshold float64
}

// NewListResolver creates a resolver. A non-positive threshold falls back to
// the default.
func NewListResolver(threshold float64) *ListResolver {
	if threshold <= 0 {
		threshold = defaultListFuzzyThreshold
	}
	return &ListResolver{fuzzyThreshold: threshold}
}

// Resolve finds the list item referred to by name. Matching runs in three
// steps: exact normalized-name equality, containment in either direction
// (first hit in list order), then best edit-distance ratio at or above the
// threshold. Returns nil when nothing clears the bar.
func (r *ListResolver) Resolve(name string, items []domain.ListItem) *domain.ListItem {
	ref := strings.ToLower(strings.TrimSpace(name))
	if ref == "" || len(items) == 0 {
		return nil
	}

	for _, article := range listArticles {
		if strings.HasPrefix(ref, article) {
			ref = strings.TrimSpace(ref[len(article):])
			break
		}
	}
	if ref == "" {
		return nil
	}

	for i := range items {
		if items[i].NameKey == ref {
			return &items[i]
		}
	}

	// "mango" should find "fresh mangoes" and vice versa.
	for i := range items {
		if strings.Contains(items[i].NameKey, ref) || strings.Contains(ref, items[i].NameKey) {
			return &items[i]
		}
	}

	var best *domain.ListItem
	bestScore := 0.0
	for i := range items {
		score := similarityRatio(ref, items[i].NameKey)
		if score > bestScore {
			bestScore = score
			best = &items[i]
		}
	}
	if bestScore >= r.fuzzyThreshold {
		return best
	}
	return nil
}
