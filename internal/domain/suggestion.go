package domain

// SuggestionItem is one recommended item with a human-readable reason.
type SuggestionItem struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Suggestions holds the recommendation layers for one item/user, in layer
// priority order. Names are deduplicated across the layers.
type Suggestions struct {
	CoPurchase     []SuggestionItem `json:"coPurchase"`
	Substitutes    []SuggestionItem `json:"substitutes"`
	Seasonal       []SuggestionItem `json:"seasonal"`
	Reorder        []SuggestionItem `json:"reorder"`
	CatalogMatches []SuggestionItem `json:"catalogMatches"`
}

// Empty reports whether no layer produced anything.
func (s Suggestions) Empty() bool {
	return len(s.CoPurchase) == 0 && len(s.Substitutes) == 0 &&
		len(s.Seasonal) == 0 && len(s.Reorder) == 0 && len(s.CatalogMatches) == 0
}

// CategoryMeta is one catalog category with its product count.
type CategoryMeta struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// HomeData backs the store landing page.
type HomeData struct {
	Seasonal   []CatalogEntry   `json:"seasonal"`
	Popular    []CatalogEntry   `json:"popular"`
	Reorder    []SuggestionItem `json:"reorder"`
	Categories []CategoryMeta   `json:"categories"`
}

// RelatedProducts pairs co-purchase and substitute names for one product.
type RelatedProducts struct {
	CoPurchase  []string `json:"coPurchase"`
	Substitutes []string `json:"substitutes"`
}
