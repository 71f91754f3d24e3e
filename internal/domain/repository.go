package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// FallbackExtractor defines the interface for the external structured-
// extraction service invoked when primary parsing confidence is low. Extract
// must honor ctx cancellation; callers enforce the hard timeout.
type FallbackExtractor interface {
	Extract(ctx context.Context, text string) (*ExtractedFields, error)
}

// ListStore defines the interface for shopping list persistence. The core
// pipeline only reads snapshots via ItemsFor; mutation is driven by the list
// service.
type ListStore interface {
	CreateList(ctx context.Context, userID, name string) (*ShoppingList, error)
	GetList(ctx context.Context, listID int64) (*ShoppingList, error)
	Lists(ctx context.Context, userID string) ([]ShoppingList, error)
	DeleteList(ctx context.Context, listID int64) error
	EnsureDefaultList(ctx context.Context, userID string) (*ShoppingList, error)

	ItemsFor(ctx context.Context, listID int64) ([]ListItem, error)
	InsertItem(ctx context.Context, item *ListItem) (*ListItem, error)
	UpdateItem(ctx context.Context, item *ListItem) error
	DeleteItem(ctx context.Context, listID, itemID int64) error
	ClearItems(ctx context.Context, listID int64) (int64, error)

	RecordPurchases(ctx context.Context, userID string, items []ListItem, at time.Time) error
	PurchasesSince(ctx context.Context, userID string, since time.Time) ([]PurchaseRecord, error)
	PurchaseHistory(ctx context.Context, userID string) ([]PurchaseRecord, error)
}
