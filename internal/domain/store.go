package domain

// CategoryPage is one page of a category browse, most popular first.
type CategoryPage struct {
	Category string         `json:"category"`
	Items    []CatalogEntry `json:"items"`
	Page     int            `json:"page"`
	Pages    int            `json:"pages"`
	Total    int            `json:"total"`
}

// SearchResults holds ranked catalog search hits. Total counts every hit,
// not just the returned page.
type SearchResults struct {
	Query string         `json:"query"`
	Total int            `json:"total"`
	Items []CatalogEntry `json:"items"`
}
