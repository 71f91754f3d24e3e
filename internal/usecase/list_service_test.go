package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/cartvoice/backend/internal/domain"
)

// MockListStore is an in-memory implementation of domain.ListStore.
type MockListStore struct {
	lists      map[int64]*domain.ShoppingList
	items      []domain.ListItem
	purchases  []domain.PurchaseRecord
	nextListID int64
	nextItemID int64
	failWith   error
}

func NewMockListStore() *MockListStore {
	return &MockListStore{lists: make(map[int64]*domain.ShoppingList)}
}

func (m *MockListStore) CreateList(ctx context.Context, userID, name string) (*domain.ShoppingList, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.nextListID++
	list := &domain.ShoppingList{ID: m.nextListID, UserID: userID, Name: name, CreatedAt: time.Now()}
	m.lists[list.ID] = list
	return list, nil
}

func (m *MockListStore) GetList(ctx context.Context, listID int64) (*domain.ShoppingList, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	list, ok := m.lists[listID]
	if !ok {
		return nil, domain.ErrListNotFound
	}
	return list, nil
}

func (m *MockListStore) Lists(ctx context.Context, userID string) ([]domain.ShoppingList, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []domain.ShoppingList
	for _, l := range m.lists {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockListStore) DeleteList(ctx context.Context, listID int64) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.lists[listID]; !ok {
		return domain.ErrListNotFound
	}
	delete(m.lists, listID)
	kept := m.items[:0]
	for _, it := range m.items {
		if it.ListID != listID {
			kept = append(kept, it)
		}
	}
	m.items = kept
	return nil
}

func (m *MockListStore) EnsureDefaultList(ctx context.Context, userID string) (*domain.ShoppingList, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	lists, _ := m.Lists(ctx, userID)
	if len(lists) > 0 {
		return &lists[0], nil
	}
	return m.CreateList(ctx, userID, "My Shopping List")
}

func (m *MockListStore) ItemsFor(ctx context.Context, listID int64) ([]domain.ListItem, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []domain.ListItem
	for _, it := range m.items {
		if it.ListID == listID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *MockListStore) InsertItem(ctx context.Context, item *domain.ListItem) (*domain.ListItem, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.nextItemID++
	stored := *item
	stored.ID = m.nextItemID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.items = append(m.items, stored)
	return &stored, nil
}

func (m *MockListStore) UpdateItem(ctx context.Context, item *domain.ListItem) error {
	if m.failWith != nil {
		return m.failWith
	}
	for i := range m.items {
		if m.items[i].ID == item.ID {
			updated := *item
			updated.UpdatedAt = time.Now()
			m.items[i] = updated
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (m *MockListStore) DeleteItem(ctx context.Context, listID, itemID int64) error {
	if m.failWith != nil {
		return m.failWith
	}
	for i := range m.items {
		if m.items[i].ID == itemID && m.items[i].ListID == listID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (m *MockListStore) ClearItems(ctx context.Context, listID int64) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	var removed int64
	kept := m.items[:0]
	for _, it := range m.items {
		if it.ListID == listID {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	m.items = kept
	return removed, nil
}

func (m *MockListStore) RecordPurchases(ctx context.Context, userID string, items []domain.ListItem, at time.Time) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, it := range items {
		m.purchases = append(m.purchases, domain.PurchaseRecord{
			ID:          int64(len(m.purchases) + 1),
			UserID:      userID,
			ItemName:    it.Name,
			NameKey:     it.NameKey,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			Category:    it.Category,
			PurchasedAt: at,
		})
	}
	return nil
}

func (m *MockListStore) PurchasesSince(ctx context.Context, userID string, since time.Time) ([]domain.PurchaseRecord, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []domain.PurchaseRecord
	for _, p := range m.purchases {
		if p.UserID == userID && !p.PurchasedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockListStore) PurchaseHistory(ctx context.Context, userID string) ([]domain.PurchaseRecord, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []domain.PurchaseRecord
	for _, p := range m.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, nil
}

func newListServiceForTest() (*ListService, *MockListStore) {
	store := NewMockListStore()
	catalog := domain.NewCatalog([]domain.CatalogEntry{
		{Name: "Bananas", NameKey: "bananas", Category: "produce", AvgPrice: 1.2},
		{Name: "Milk", NameKey: "milk", Category: "dairy", AvgPrice: 3.5},
		{Name: "Whole Milk", NameKey: "whole milk", Category: "dairy", AvgPrice: 4.2},
		{Name: "Almond Milk", NameKey: "almond milk", Category: "dairy", AvgPrice: 6.5},
	})
	svc := NewListService(store, catalog, ListServiceConfig{}, nil)
	return svc, store
}

func seedList(t *testing.T, store *MockListStore) int64 {
	t.Helper()
	list, err := store.CreateList(context.Background(), "default_user", "My Shopping List")
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	return list.ID
}

func TestExecuteAddItem(t *testing.T) {
	svc, store := newListServiceForTest()
	ctx := context.Background()
	listID := seedList(t, store)

	cmd := &domain.ParsedCommand{Intent: domain.IntentAddItem, Item: "bananas", Quantity: domain.Float64Ptr(2)}
	result, view, err := svc.Execute(ctx, listID, cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Status != domain.ActionSuccess || result.Message != "Added bananas" {
		t.Errorf("result = %+v, want success Added bananas", result)
	}
	if view.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", view.TotalItems)
	}

	items := view.Categories["produce"]
	if len(items) != 1 {
		t.Fatalf("produce items = %v, want one entry", items)
	}
	if items[0].Quantity != 2 || items[0].Unit != "pieces" {
		t.Errorf("item = %+v, want quantity 2 unit pieces", items[0])
	}

	t.Run("duplicate add merges quantity", func(t *testing.T) {
		again := &domain.ParsedCommand{Intent: domain.IntentAddItem, Item: "bananas", Quantity: domain.Float64Ptr(3)}
		result, view, err := svc.Execute(ctx, listID, again)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if result.Message != "Updated bananas quantity to 5" {
			t.Errorf("message = %q, want quantity merge to 5", result.Message)
		}
		if view.TotalItems != 1 {
			t.Errorf("TotalItems = %d, want 1 after merge", view.TotalItems)
		}
	})
}

func TestExecuteAddWithoutItem(t *testing.T) {
	svc, store := newListServiceForTest()
	listID := seedList(t, store)

	result, _, err := svc.Execute(context.Background(), listID, &domain.ParsedCommand{Intent: domain.IntentAddItem})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Status != domain.ActionError {
		t.Errorf("status = %v, want error", result.Status)
	}
}

func TestExecuteRemoveItem(t *testing.T) {
	svc, store := newListServiceForTest()
	ctx := context.Background()
	listID := seedList(t, store)

	if _, _, err := svc.Add(ctx, listID, AddItemInput{Name: "bananas"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	result, view, err := svc.Execute(ctx, listID, &domain.ParsedCommand{Intent: domain.IntentRemoveItem, Item: "bananas"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Status != domain.ActionSuccess || result.Message != "Removed bananas" {
		t.Errorf("result = %+v, want Removed bananas", result)
	}
	if view.TotalItems != 0 {
		t.Errorf("TotalItems = %d, want 0", view.TotalItems)
	}

	t.Run("missing item is no_change", func(t *testing.T) {
		result, _, err := svc.Execute(ctx, listID, &domain.ParsedCommand{Intent: domain.IntentRemoveItem, Item: "bananas"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if result.Status != domain.ActionNoChange {
			t.Errorf("status = %v, want no_change", result.Status)
		}
	})
}

func TestExecuteModifyItem(t *testing.T) {
	svc, store := newListServiceForTest()
	ctx := context.Background()
	listID := seedList(t, store)

	if _, _, err := svc.Add(ctx, listID, AddItemInput{Name: "milk", Unit: "gallon"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	cmd := &domain.ParsedCommand{Intent: domain.IntentModifyItem, Item: "milk", Quantity: domain.Float64Ptr(3)}
	result, view, err := svc.Execute(ctx, listID, cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Status != domain.ActionSuccess {
		t.Fatalf("result = %+v, want success", result)
	}

	items := view.Categories["dairy"]
	if len(items) != 1 || items[0].Quantity != 3 || items[0].Unit != "gallon" {
		t.Errorf("items = %+v, want quantity 3 and unchanged unit", items)
	}
}

func TestExecuteCheckItemToggles(t *testing.T) {
	svc, store := newListServiceForTest()
	ctx := context.Background()
	listID := seedList(t, store)

	if _, _, err := svc.Add(ctx, listID, AddItemInput{Name: "bananas"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	cmd := &domain.ParsedCommand{Intent: domain.IntentCheckItem, Item: "bananas"}

	result, _, err := svc.Execute(ctx, listID, cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Message != "bananas checked" {
		t.Errorf("message = %q, want bananas checked", result.Message)
	}

	result, view, err := svc.Execute(ctx, listID, cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Message != "bananas unchecked" {
		t.Errorf("message = %q, want bananas unchecked", result.Message)
	}
	if view.CheckedItems != 0 {
		t.Errorf("CheckedItems = %d, want 0 after second toggle", view.CheckedItems)
	}
}

func TestExecuteClearList(t *testing.T) {
	svc, store := newListServiceForTest()
	ctx := context.Background()
	listID := seedList(t, store)

	for _, name := range []string{"bananas", "milk"} {
		if _, _, err := svc.Add(ctx, listID, AddItemInput{Name: name}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	result, view, err := svc.Execute(ctx, listID, &domain.ParsedCommand{Intent: domain.IntentClearList})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Message != "List cleared" || view.TotalItems != 0 {
		t.Errorf("result = %+v view total = %d, want cleared empty list", result, view.TotalItems)
	}
}

func TestExecuteSearchItem(t *testing.T) {
	svc, store := newListServiceForTest()
	listID := seedList(t, store)

	t.Run("price ceiling filters results", func(t *testing.T) {
		cmd := &domain.ParsedCommand{Intent: domain.IntentSearchItem, Item: "milk", PriceMax: domain.Float64Ptr(5)}
		result, _, err := svc.Execute(context.Background(), listID, cmd)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		want := `Found 2 results for "milk" under $5: milk, whole milk`
		if result.Status != domain.ActionSuccess || result.Message != want {
			t.Errorf("result = %+v, want %q", result, want)
		}
	})

	t.Run("no hits is no_change", func(t *testing.T) {
		cmd := &domain.ParsedCommand{Intent: domain.IntentSearchItem, Item: "caviar"}
		result, _, err := svc.Execute(context.Background(), listID, cmd)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if result.Status != domain.ActionNoChange {
			t.Errorf("status = %v, want no_change", result.Status)
		}
	})
}

func TestExecuteReadOnlyIntents(t *testing.T) {
	svc, store := newListServiceForTest()
	listID := seedList(t, store)

	for _, intent := range []domain.Intent{domain.IntentListItems, domain.IntentGetSuggestions} {
		result, _, err := svc.Execute(context.Background(), listID, &domain.ParsedCommand{Intent: intent})
		if err != nil {
			t.Fatalf("Execute(%s) failed: %v", intent, err)
		}
		if result.Status != domain.ActionSuccess {
			t.Errorf("Execute(%s) status = %v, want success", intent, result.Status)
		}
	}
}

func TestExecuteUnknownIntent(t *testing.T) {
	svc, store := newListServiceForTest()
	listID := seedList(t, store)

	result, _, err := svc.Execute(context.Background(), listID, &domain.ParsedCommand{Intent: "teleport"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Status != domain.ActionNoChange || !strings.Contains(result.Message, "teleport") {
		t.Errorf("result = %+v, want no_change naming the intent", result)
	}
}

func TestAddMergesFuzzyDuplicate(t *testing.T) {
	svc, store := newListServiceForTest()
	ctx := context.Background()
	listID := seedList(t, store)

	if _, _, err := svc.Add(ctx, listID, AddItemInput{Name: "Whole Milk"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	result, item, err := svc.Add(ctx, listID, AddItemInput{Name: "milk"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if item.Name != "Whole Milk" || item.Quantity != 2 {
		t.Errorf("item = %+v, want Whole Milk with quantity 2", item)
	}
	if result.Message != "Updated Whole Milk quantity to 2" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestAddLooksUpCatalogCategory(t *testing.T) {
	svc, store := newListServiceForTest()
	listID := seedList(t, store)

	_, item, err := svc.Add(context.Background(), listID, AddItemInput{Name: "Bananas"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if item.Category != "produce" {
		t.Errorf("Category = %q, want produce from catalog", item.Category)
	}

	_, unknown, err := svc.Add(context.Background(), listID, AddItemInput{Name: "dragonfruit"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if unknown.Category != defaultCategory {
		t.Errorf("Category = %q, want %q for unknown item", unknown.Category, defaultCategory)
	}
}

func TestUpdateItemNotFound(t *testing.T) {
	svc, store := newListServiceForTest()
	listID := seedList(t, store)

	_, err := svc.UpdateItem(context.Background(), listID, 999, UpdateItemInput{Quantity: domain.Float64Ptr(2)})
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("error = %v, want ErrItemNotFound", err)
	}
}

func TestShareText(t *testing.T) {
	svc, store := newListServiceForTest()
	ctx := context.Background()
	listID := seedList(t, store)

	t.Run("empty list", func(t *testing.T) {
		text, err := svc.ShareText(ctx, listID)
		if err != nil {
			t.Fatalf("ShareText failed: %v", err)
		}
		if text != "Your shopping list is empty." {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("items rendered with check marks", func(t *testing.T) {
		_, _, err := svc.Add(ctx, listID, AddItemInput{Name: "bananas", Quantity: 2})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		_, milk, err := svc.Add(ctx, listID, AddItemInput{Name: "milk", Unit: "gallon"})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		checked := true
		if _, err := svc.UpdateItem(ctx, listID, milk.ID, UpdateItemInput{Checked: &checked}); err != nil {
			t.Fatalf("UpdateItem failed: %v", err)
		}

		text, err := svc.ShareText(ctx, listID)
		if err != nil {
			t.Fatalf("ShareText failed: %v", err)
		}
		want := "My Shopping List:\n  [ ] 2 pieces bananas\n  [x] 1 gallon milk"
		if text != want {
			t.Errorf("text = %q, want %q", text, want)
		}
	})
}

func TestPlaceOrderAndHistory(t *testing.T) {
	svc, store := newListServiceForTest()
	ctx := context.Background()
	listID := seedList(t, store)

	t.Run("empty list is no_change", func(t *testing.T) {
		result, err := svc.PlaceOrder(ctx, listID, "default_user")
		if err != nil {
			t.Fatalf("PlaceOrder failed: %v", err)
		}
		if result.Status != domain.ActionNoChange {
			t.Errorf("status = %v, want no_change", result.Status)
		}
	})

	t.Run("order records items and clears list", func(t *testing.T) {
		for _, name := range []string{"bananas", "milk"} {
			if _, _, err := svc.Add(ctx, listID, AddItemInput{Name: name}); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
		}

		result, err := svc.PlaceOrder(ctx, listID, "default_user")
		if err != nil {
			t.Fatalf("PlaceOrder failed: %v", err)
		}
		if result.Message != "Order placed with 2 items" {
			t.Errorf("message = %q", result.Message)
		}

		view, err := svc.View(ctx, listID)
		if err != nil {
			t.Fatalf("View failed: %v", err)
		}
		if view.TotalItems != 0 {
			t.Errorf("TotalItems = %d, want 0 after order", view.TotalItems)
		}

		// Second order lands in history ahead of the first.
		time.Sleep(5 * time.Millisecond)
		if _, _, err := svc.Add(ctx, listID, AddItemInput{Name: "bread"}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if _, err := svc.PlaceOrder(ctx, listID, "default_user"); err != nil {
			t.Fatalf("PlaceOrder failed: %v", err)
		}

		orders, err := svc.OrderHistory(ctx, "default_user")
		if err != nil {
			t.Fatalf("OrderHistory failed: %v", err)
		}
		if len(orders) != 2 {
			t.Fatalf("orders = %d, want 2", len(orders))
		}
		if orders[0].TotalItems != 1 || orders[1].TotalItems != 2 {
			t.Errorf("order sizes = %d, %d, want newest first (1, 2)", orders[0].TotalItems, orders[1].TotalItems)
		}
	})
}

func TestViewMissingListRendersEmpty(t *testing.T) {
	svc, _ := newListServiceForTest()

	view, err := svc.View(context.Background(), 42)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if view.Name != defaultListName || view.TotalItems != 0 {
		t.Errorf("view = %+v, want empty default view", view)
	}
}

func TestExecuteSurfacesViewError(t *testing.T) {
	svc, store := newListServiceForTest()
	listID := seedList(t, store)

	store.failWith = errors.New("disk full")
	_, _, err := svc.Execute(context.Background(), listID, &domain.ParsedCommand{Intent: domain.IntentListItems})
	if err == nil {
		t.Error("Execute returned nil error with failing store")
	}
}
