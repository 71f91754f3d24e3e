package domain

import "sort"

// CatalogEntry is one product in the fixed reference catalog.
type CatalogEntry struct {
	Name            string   `json:"name"`
	NameKey         string   `json:"nameKey"`
	Category        string   `json:"category"`
	CommonUnits     []string `json:"commonUnits,omitempty"`
	AvgPrice        float64  `json:"avgPrice,omitempty"`
	IsSeasonal      bool     `json:"isSeasonal,omitempty"`
	PopularityCount int      `json:"popularityCount,omitempty"`
}

// Catalog is the immutable set of known products, keyed by normalized name.
// It is built once at startup; concurrent readers need no locking.
type Catalog struct {
	entries map[string]*CatalogEntry
	keys    []string
}

// NewCatalog builds a catalog from entries. Entries with an empty NameKey are
// dropped; on duplicate keys the first entry wins. The key order exposed by
// Keys is sorted so that iteration-order-dependent matching stays
// deterministic.
func NewCatalog(entries []CatalogEntry) *Catalog {
	c := &Catalog{entries: make(map[string]*CatalogEntry, len(entries))}
	for i := range entries {
		e := entries[i]
		if e.NameKey == "" {
			continue
		}
		if _, ok := c.entries[e.NameKey]; ok {
			continue
		}
		c.entries[e.NameKey] = &e
		c.keys = append(c.keys, e.NameKey)
	}
	sort.Strings(c.keys)
	return c
}

// Lookup returns the entry stored under the normalized key.
func (c *Catalog) Lookup(key string) (*CatalogEntry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Has reports whether key is a catalog key.
func (c *Catalog) Has(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// Keys returns the sorted normalized keys. Callers must not modify the
// returned slice.
func (c *Catalog) Keys() []string { return c.keys }

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.keys) }

// Entries returns copies of all entries in key order.
func (c *Catalog) Entries() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, *c.entries[k])
	}
	return out
}

// ByCategory returns copies of the entries whose category equals cat, in key
// order.
func (c *Catalog) ByCategory(cat string) []CatalogEntry {
	var out []CatalogEntry
	for _, k := range c.keys {
		if c.entries[k].Category == cat {
			out = append(out, *c.entries[k])
		}
	}
	return out
}

// Categories returns category names mapped to entry counts.
func (c *Catalog) Categories() map[string]int {
	counts := make(map[string]int)
	for _, k := range c.keys {
		counts[c.entries[k].Category]++
	}
	return counts
}

// MatchTier identifies which catalog matching strategy produced a result.
type MatchTier string

const (
	TierExact     MatchTier = "exact"
	TierSubstring MatchTier = "substring"
	TierFuzzy     MatchTier = "fuzzy"
)

// CatalogMatch is the outcome of resolving a free-text reference against the
// catalog. Matched implies CanonicalName and Tier are set; an unmatched
// result carries no canonical name but may still carry suggestions. Build
// values through MatchedResult/UnmatchedResult to keep that invariant.
type CatalogMatch struct {
	Matched       bool      `json:"matched"`
	CanonicalName string    `json:"canonicalName,omitempty"`
	Tier          MatchTier `json:"tier,omitempty"`
	Score         float64   `json:"score"`
	Suggestions   []string  `json:"suggestions,omitempty"`
}

// MatchedResult builds a successful match.
func MatchedResult(canonical string, tier MatchTier, score float64) CatalogMatch {
	return CatalogMatch{Matched: true, CanonicalName: canonical, Tier: tier, Score: score}
}

// UnmatchedResult builds a miss carrying zero or more suggestions.
func UnmatchedResult(suggestions []string) CatalogMatch {
	return CatalogMatch{Matched: false, Suggestions: suggestions}
}
