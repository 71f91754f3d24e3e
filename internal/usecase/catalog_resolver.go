package usecase

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cartvoice/backend/internal/domain"
)

// leadingNumberPattern strips quantity artifacts such as "1 pizza" left
// behind by upstream entity extraction.
var leadingNumberPattern = regexp.MustCompile(`^\d+\s+`)

// noiseWords never name a grocery item on their own.
var noiseWords = map[string]bool{
	// pronouns, articles, prepositions
	"i": true, "me": true, "my": true, "we": true, "he": true, "she": true,
	"it": true, "a": true, "an": true, "the": true, "to": true, "of": true,
	"in": true, "on": true, "at": true, "for": true, "is": true, "am": true,
	"are": true, "was": true, "be": true, "do": true, "did": true, "no": true,
	"not": true, "or": true, "so": true, "if": true, "up": true, "by": true,
	// common speech-to-text noise
	"sorry": true, "day": true, "way": true, "time": true, "thing": true,
	"stuff": true, "ok": true, "okay": true, "yes": true, "yeah": true,
	"nah": true, "thanks": true, "thank": true, "please": true, "hello": true,
	"hi": true, "hey": true, "bye": true, "um": true, "uh": true, "hmm": true,
	"hm": true, "oh": true, "ah": true,
	// bare digits left behind by quantity extraction
	"0": true, "1": true, "2": true, "3": true, "4": true, "5": true,
	"6": true, "7": true, "8": true, "9": true, "10": true,
}

const (
	// minItemLength rejects one-character fragments before any matching runs.
	minItemLength = 2
	// minMeaningfulWordLength is the shortest query word that counts toward
	// word-overlap matching.
	minMeaningfulWordLength = 3
)

// Fixed scores for the deterministic tiers. Fuzzy matches report their
// similarity ratio instead.
const (
	exactMatchScore     = 1.0
	substringMatchScore = 0.85
)

// Resolver defaults, applied when the config leaves a knob unset.
const (
	defaultLooseCutoff          = 0.60
	defaultAutoCorrectThreshold = 0.80
	defaultMaxSuggestions       = 5
	broadSuggestionCutoff       = 0.45
)

// ResolverConfig holds tuning knobs for the catalog resolver.
type ResolverConfig struct {
	LooseCutoff          float64
	AutoCorrectThreshold float64
	MaxSuggestions       int
}

// CatalogResolver matches free-text item references against the product
// catalog in three tiers: exact key lookup, word-boundary substring, then
// edit-distance fuzzy. Tier priority is fixed; a substring hit wins over any
// fuzzy candidate regardless of ratio.
type CatalogResolver struct {
	catalog        *domain.Catalog
	looseCutoff    float64
	autoCorrect    float64
	maxSuggestions int
	logger         *zap.Logger
}

// NewCatalogResolver creates a resolver over the given catalog with the
// given configuration. Unset config fields fall back to defaults.
func NewCatalogResolver(catalog *domain.Catalog, config ResolverConfig, logger *zap.Logger) *CatalogResolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	loose := config.LooseCutoff
	if loose <= 0 {
		loose = defaultLooseCutoff
	}

	auto := config.AutoCorrectThreshold
	if auto <= 0 {
		auto = defaultAutoCorrectThreshold
	}

	maxSuggestions := config.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = defaultMaxSuggestions
	}

	return &CatalogResolver{
		catalog:        catalog,
		looseCutoff:    loose,
		autoCorrect:    auto,
		maxSuggestions: maxSuggestions,
		logger:         logger,
	}
}

// Resolve runs the three-tier match for a free-text item reference. It never
// fails; the worst case is an unmatched result with no suggestions.
func (r *CatalogResolver) Resolve(itemName string) domain.CatalogMatch {
	query := strings.ToLower(strings.TrimSpace(itemName))
	if query == "" {
		return domain.UnmatchedResult(nil)
	}

	if noiseWords[query] || len(query) < minItemLength {
		r.logger.Debug("catalog rejected noise or short item", zap.String("query", query))
		return domain.UnmatchedResult(nil)
	}

	// "1 pizza" → "pizza", "2 bananas" → "bananas"
	stripped := strings.TrimSpace(leadingNumberPattern.ReplaceAllString(query, ""))
	if stripped != "" && stripped != query && !noiseWords[stripped] {
		query = stripped
	}

	if entry, ok := r.catalog.Lookup(query); ok {
		r.logger.Debug("catalog exact match", zap.String("query", query))
		return domain.MatchedResult(entry.Name, domain.TierExact, exactMatchScore)
	}

	if match, ok := r.substringMatch(query); ok {
		return match
	}

	return r.fuzzyMatch(query)
}

// substringMatch accepts a catalog key when it shares a meaningful word with
// the query, or when the whole query sits inside the key at word boundaries.
// The shortest accepted key wins; iterating the sorted key order breaks
// length ties lexicographically.
func (r *CatalogResolver) substringMatch(query string) (domain.CatalogMatch, bool) {
	meaningful := meaningfulWords(query)
	if len(meaningful) == 0 {
		return domain.CatalogMatch{}, false
	}

	best := ""
	for _, key := range r.catalog.Keys() {
		if !sharesMeaningfulWord(meaningful, key) && !containsAtWordBoundary(key, query) {
			continue
		}
		if best == "" || len(key) < len(best) {
			best = key
		}
	}
	if best == "" {
		return domain.CatalogMatch{}, false
	}

	entry, _ := r.catalog.Lookup(best)
	r.logger.Debug("catalog substring match",
		zap.String("query", query),
		zap.String("matched", entry.Name))
	return domain.MatchedResult(entry.Name, domain.TierSubstring, substringMatchScore), true
}

// fuzzyMatch ranks catalog keys by edit-distance similarity. A best ratio at
// or above the auto-correct threshold resolves the query outright; below it
// the close keys come back as suggestions only. When the loose cutoff finds
// nothing, one broader pass gathers whatever is left.
func (r *CatalogResolver) fuzzyMatch(query string) domain.CatalogMatch {
	ranked := r.closeMatches(query, r.looseCutoff)
	if len(ranked) > 0 {
		best := ranked[0]
		entry, _ := r.catalog.Lookup(best.key)
		if best.ratio >= r.autoCorrect {
			r.logger.Debug("catalog fuzzy auto-correct",
				zap.String("query", query),
				zap.String("matched", entry.Name),
				zap.Float64("ratio", best.ratio))
			return domain.MatchedResult(entry.Name, domain.TierFuzzy, best.ratio)
		}
		return domain.UnmatchedResult(r.suggestionNames(ranked))
	}

	broad := r.closeMatches(query, broadSuggestionCutoff)
	return domain.UnmatchedResult(r.suggestionNames(broad))
}

// rankedKey pairs a catalog key with its similarity to the current query.
type rankedKey struct {
	key   string
	ratio float64
}

// closeMatches returns up to maxSuggestions keys whose similarity to the
// query clears cutoff, ordered by ratio descending then key ascending.
func (r *CatalogResolver) closeMatches(query string, cutoff float64) []rankedKey {
	var ranked []rankedKey
	for _, key := range r.catalog.Keys() {
		ratio := similarityRatio(query, key)
		if ratio >= cutoff {
			ranked = append(ranked, rankedKey{key: key, ratio: ratio})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ratio != ranked[j].ratio {
			return ranked[i].ratio > ranked[j].ratio
		}
		return ranked[i].key < ranked[j].key
	})

	if len(ranked) > r.maxSuggestions {
		ranked = ranked[:r.maxSuggestions]
	}
	return ranked
}

// suggestionNames maps ranked keys to their canonical display names.
func (r *CatalogResolver) suggestionNames(ranked []rankedKey) []string {
	if len(ranked) == 0 {
		return nil
	}
	names := make([]string, 0, len(ranked))
	for _, m := range ranked {
		if entry, ok := r.catalog.Lookup(m.key); ok {
			names = append(names, entry.Name)
		}
	}
	return names
}

// meaningfulWords returns the query words long enough to carry signal,
// excluding noise words and bare numbers.
func meaningfulWords(query string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(query) {
		if len(w) < minMeaningfulWordLength || noiseWords[w] || isNumericWord(w) {
			continue
		}
		words[w] = true
	}
	return words
}

// sharesMeaningfulWord reports whether any word of the catalog key is one of
// the query's meaningful words.
func sharesMeaningfulWord(meaningful map[string]bool, key string) bool {
	for _, w := range strings.Fields(key) {
		if meaningful[w] {
			return true
		}
	}
	return false
}

// containsAtWordBoundary reports whether query appears inside key as a whole
// word run rather than a fragment of a longer word. Only the first
// occurrence is considered.
func containsAtWordBoundary(key, query string) bool {
	idx := strings.Index(key, query)
	if idx < 0 {
		return false
	}
	atStart := idx == 0 || key[idx-1] == ' '
	end := idx + len(query)
	atEnd := end == len(key) || key[end] == ' '
	return atStart && atEnd
}

// similarityRatio converts edit distance into a similarity in [0,1] where 1
// is an exact match.
func similarityRatio(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	longest := len([]rune(s1))
	if n := len([]rune(s2)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(s1, s2))/float64(longest)
}

// isNumericWord checks if a string contains only digits.
func isNumericWord(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// levenshteinDistance calculates the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix for space efficiency.
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
