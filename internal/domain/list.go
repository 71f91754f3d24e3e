package domain

import "time"

// ShoppingList is one named list owned by a user.
type ShoppingList struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListItem is one line on a shopping list. NameKey is the normalized form
// used for matching; Name preserves what the user said.
type ListItem struct {
	ID        int64     `json:"id"`
	ListID    int64     `json:"listId"`
	Name      string    `json:"name"`
	NameKey   string    `json:"nameKey"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit"`
	Category  string    `json:"category"`
	Checked   bool      `json:"checked"`
	AddedVia  string    `json:"addedVia,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListView is a list rendered for clients: items grouped by category with
// aggregate counts.
type ListView struct {
	ListID       int64                 `json:"listId"`
	Name         string                `json:"name"`
	Categories   map[string][]ListItem `json:"categories"`
	TotalItems   int                   `json:"totalItems"`
	CheckedItems int                   `json:"checkedItems"`
}

// ItemNames returns the name of every item on the view, in no particular
// order. Safe on a nil view.
func (v *ListView) ItemNames() []string {
	if v == nil {
		return nil
	}
	var names []string
	for _, items := range v.Categories {
		for _, it := range items {
			names = append(names, it.Name)
		}
	}
	return names
}

// PurchaseRecord is one purchased item in the order history.
type PurchaseRecord struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"userId"`
	ItemName    string    `json:"itemName"`
	NameKey     string    `json:"nameKey"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	Category    string    `json:"category"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

// Order groups the purchase records that were placed together. Records share
// one PlacedAt timestamp.
type Order struct {
	PlacedAt   time.Time        `json:"placedAt"`
	Items      []PurchaseRecord `json:"items"`
	TotalItems int              `json:"totalItems"`
}
