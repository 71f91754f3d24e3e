package liststore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/cartvoice/backend/internal/domain"
)

// timeLayout keeps a fixed-width fraction so stored strings compare
// chronologically and round-trip to the nanosecond.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const defaultListName = "My Shopping List"

const listsDDL = `
CREATE TABLE IF NOT EXISTS shopping_lists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lists_user ON shopping_lists(user_id);
`

const itemsDDL = `
CREATE TABLE IF NOT EXISTS list_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	list_id INTEGER NOT NULL,
	item_name TEXT NOT NULL,
	item_name_lower TEXT NOT NULL,
	quantity REAL NOT NULL DEFAULT 1,
	unit TEXT NOT NULL DEFAULT 'pieces',
	category TEXT NOT NULL DEFAULT 'other',
	checked INTEGER NOT NULL DEFAULT 0,
	added_via TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_list ON list_items(list_id);
CREATE INDEX IF NOT EXISTS idx_items_name ON list_items(item_name_lower);
`

const purchasesDDL = `
CREATE TABLE IF NOT EXISTS purchase_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	item_name TEXT NOT NULL,
	item_name_lower TEXT NOT NULL,
	quantity REAL NOT NULL DEFAULT 1,
	unit TEXT NOT NULL DEFAULT 'pieces',
	category TEXT NOT NULL DEFAULT 'other',
	purchased_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_purchases_user ON purchase_history(user_id, purchased_at);
`

// Store persists shopping lists, their items, and the purchase history in
// SQLite. Implements domain.ListStore.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
	logger *zap.Logger
}

// New opens the SQLite database at path, creating the file, its parent
// directory, and the schema as needed.
func New(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("list store ready", zap.String("path", path))
	return s, nil
}

func (s *Store) initSchema() error {
	for _, ddl := range []string{listsDDL, itemsDDL, purchasesDDL} {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle. Closing twice reports
// ErrStoreClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return domain.ErrStoreClosed
	}
	return s.db.Close()
}

// CreateList creates a named list for the user.
func (s *Store) CreateList(ctx context.Context, userID, name string) (*domain.ShoppingList, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO shopping_lists (user_id, name, created_at) VALUES (?, ?, ?)`,
		userID, name, now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	return &domain.ShoppingList{ID: id, UserID: userID, Name: name, CreatedAt: now}, nil
}

// GetList returns one list by ID.
func (s *Store) GetList(ctx context.Context, listID int64) (*domain.ShoppingList, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM shopping_lists WHERE id = ?`, listID)
	return scanList(row)
}

// Lists returns the user's lists, oldest first.
func (s *Store) Lists(ctx context.Context, userID string) ([]domain.ShoppingList, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM shopping_lists WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	var lists []domain.ShoppingList
	for rows.Next() {
		var list domain.ShoppingList
		var created string
		if err := rows.Scan(&list.ID, &list.UserID, &list.Name, &created); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		list.CreatedAt = parseStoredTime(created)
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// DeleteList removes a list and everything on it.
func (s *Store) DeleteList(ctx context.Context, listID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM list_items WHERE list_id = ?`, listID); err != nil {
		return fmt.Errorf("delete list items: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = ?`, listID)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete list: %w", err)
	} else if n == 0 {
		return domain.ErrListNotFound
	}
	return tx.Commit()
}

// EnsureDefaultList returns the user's first list, creating one under the
// default name when the user has none.
func (s *Store) EnsureDefaultList(ctx context.Context, userID string) (*domain.ShoppingList, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM shopping_lists WHERE user_id = ? ORDER BY id LIMIT 1`,
		userID)
	list, err := scanList(row)
	if err == nil {
		return list, nil
	}
	if !errors.Is(err, domain.ErrListNotFound) {
		return nil, err
	}
	return s.CreateList(ctx, userID, defaultListName)
}

// ItemsFor returns the items on a list in insertion order.
func (s *Store) ItemsFor(ctx context.Context, listID int64) ([]domain.ListItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, list_id, item_name, item_name_lower, quantity, unit, category, checked, added_via, created_at, updated_at
		 FROM list_items WHERE list_id = ? ORDER BY id`, listID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.ListItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// InsertItem appends an item to its list and returns the stored row.
func (s *Store) InsertItem(ctx context.Context, item *domain.ListItem) (*domain.ListItem, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO list_items
		 (list_id, item_name, item_name_lower, quantity, unit, category, checked, added_via, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ListID, item.Name, item.NameKey, item.Quantity, item.Unit, item.Category,
		item.Checked, item.AddedVia, now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	stored := *item
	stored.ID = id
	stored.CreatedAt = now
	stored.UpdatedAt = now
	return &stored, nil
}

// UpdateItem rewrites a stored item's mutable fields.
func (s *Store) UpdateItem(ctx context.Context, item *domain.ListItem) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE list_items
		 SET item_name = ?, item_name_lower = ?, quantity = ?, unit = ?, category = ?, checked = ?, updated_at = ?
		 WHERE id = ? AND list_id = ?`,
		item.Name, item.NameKey, item.Quantity, item.Unit, item.Category, item.Checked,
		now.Format(timeLayout), item.ID, item.ListID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update item: %w", err)
	} else if n == 0 {
		return domain.ErrItemNotFound
	}
	item.UpdatedAt = now
	return nil
}

// DeleteItem removes one item from a list.
func (s *Store) DeleteItem(ctx context.Context, listID, itemID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM list_items WHERE id = ? AND list_id = ?`, itemID, listID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete item: %w", err)
	} else if n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// ClearItems removes every item on a list and reports how many went.
func (s *Store) ClearItems(ctx context.Context, listID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM list_items WHERE list_id = ?`, listID)
	if err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	return n, nil
}

// RecordPurchases writes one history row per item, all sharing the given
// timestamp so the rows read back as one order.
func (s *Store) RecordPurchases(ctx context.Context, userID string, items []domain.ListItem, at time.Time) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record purchases: %w", err)
	}
	defer tx.Rollback()

	stamp := at.UTC().Format(timeLayout)
	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO purchase_history
			 (user_id, item_name, item_name_lower, quantity, unit, category, purchased_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, item.Name, item.NameKey, item.Quantity, item.Unit, item.Category, stamp); err != nil {
			return fmt.Errorf("record purchase: %w", err)
		}
	}
	return tx.Commit()
}

// PurchasesSince returns the user's purchases at or after the cutoff, oldest
// first.
func (s *Store) PurchasesSince(ctx context.Context, userID string, since time.Time) ([]domain.PurchaseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, item_name, item_name_lower, quantity, unit, category, purchased_at
		 FROM purchase_history WHERE user_id = ? AND purchased_at >= ?
		 ORDER BY purchased_at ASC, id ASC`,
		userID, since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	return collectPurchases(rows)
}

// PurchaseHistory returns the user's full purchase history, newest order
// first with each order's rows in insertion order.
func (s *Store) PurchaseHistory(ctx context.Context, userID string) ([]domain.PurchaseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, item_name, item_name_lower, quantity, unit, category, purchased_at
		 FROM purchase_history WHERE user_id = ?
		 ORDER BY purchased_at DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query purchase history: %w", err)
	}
	return collectPurchases(rows)
}

func scanList(row *sql.Row) (*domain.ShoppingList, error) {
	var list domain.ShoppingList
	var created string
	err := row.Scan(&list.ID, &list.UserID, &list.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan list: %w", err)
	}
	list.CreatedAt = parseStoredTime(created)
	return &list, nil
}

func scanItem(rows *sql.Rows) (*domain.ListItem, error) {
	var item domain.ListItem
	var created, updated string
	if err := rows.Scan(&item.ID, &item.ListID, &item.Name, &item.NameKey, &item.Quantity,
		&item.Unit, &item.Category, &item.Checked, &item.AddedVia, &created, &updated); err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}
	item.CreatedAt = parseStoredTime(created)
	item.UpdatedAt = parseStoredTime(updated)
	return &item, nil
}

func collectPurchases(rows *sql.Rows) ([]domain.PurchaseRecord, error) {
	defer rows.Close()

	var records []domain.PurchaseRecord
	for rows.Next() {
		var rec domain.PurchaseRecord
		var purchased string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ItemName, &rec.NameKey, &rec.Quantity,
			&rec.Unit, &rec.Category, &purchased); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		rec.PurchasedAt = parseStoredTime(purchased)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// parseStoredTime tolerates rows written by other tools with plain RFC3339.
func parseStoredTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
