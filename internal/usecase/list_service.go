package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cartvoice/backend/internal/domain"
)

// Defaults applied when a command or request omits a field.
const (
	defaultQuantity = 1.0
	defaultUnit     = "pieces"
	defaultCategory = "other"
	defaultListName = "My Shopping List"
)

// searchResultLimit caps how many catalog hits a search reply names.
const searchResultLimit = 5

// ListServiceConfig holds configuration for the list service.
type ListServiceConfig struct {
	ListFuzzyThreshold float64
}

// AddItemInput is a request to put one item on a list.
type AddItemInput struct {
	Name     string
	Quantity float64
	Unit     string
	Category string
	AddedVia string
}

// UpdateItemInput carries the mutable fields of a list item. Nil fields are
// left unchanged.
type UpdateItemInput struct {
	Quantity *float64
	Unit     *string
	Checked  *bool
}

// ListService translates parsed commands and REST requests into list store
// operations. Item references inside commands are resolved against a list
// snapshot with the fuzzy list resolver.
type ListService struct {
	store    domain.ListStore
	catalog  *domain.Catalog
	resolver *ListResolver
	logger   *zap.Logger
}

// NewListService creates a list service with its dependencies.
func NewListService(store domain.ListStore, catalog *domain.Catalog, config ListServiceConfig, logger *zap.Logger) *ListService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListService{
		store:    store,
		catalog:  catalog,
		resolver: NewListResolver(config.ListFuzzyThreshold),
		logger:   logger,
	}
}

// Execute dispatches a parsed command to the matching handler and returns the
// action outcome together with the updated list view. Store failures inside a
// handler are folded into an error-status result; the view is built
// regardless so callers always see current list state.
func (s *ListService) Execute(ctx context.Context, listID int64, cmd *domain.ParsedCommand) (domain.ActionResult, *domain.ListView, error) {
	var result domain.ActionResult

	switch cmd.Intent {
	case domain.IntentAddItem:
		result = s.addFromCommand(ctx, listID, cmd)
	case domain.IntentRemoveItem:
		result = s.removeFromCommand(ctx, listID, cmd)
	case domain.IntentModifyItem:
		result = s.modifyFromCommand(ctx, listID, cmd)
	case domain.IntentCheckItem:
		result = s.checkFromCommand(ctx, listID, cmd)
	case domain.IntentClearList:
		result = s.clearFromCommand(ctx, listID)
	case domain.IntentSearchItem:
		result = s.searchCatalog(cmd)
	case domain.IntentListItems, domain.IntentGetSuggestions:
		result = domain.ActionResult{Status: domain.ActionSuccess, Message: "Here is your list."}
	default:
		result = domain.ActionResult{Status: domain.ActionNoChange, Message: fmt.Sprintf("Unknown intent: %s", cmd.Intent)}
	}

	view, err := s.View(ctx, listID)
	if err != nil {
		return result, nil, err
	}
	return result, view, nil
}

// Add puts an item on the list. When the list resolver finds an existing
// entry for the same item the quantities are merged instead of duplicating
// the line.
func (s *ListService) Add(ctx context.Context, listID int64, in AddItemInput) (domain.ActionResult, *domain.ListItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.ActionResult{}, nil, fmt.Errorf("%w: item name required", domain.ErrInvalidRequest)
	}

	quantity := in.Quantity
	if quantity <= 0 {
		quantity = defaultQuantity
	}
	unit := in.Unit
	if unit == "" {
		unit = defaultUnit
	}

	items, err := s.store.ItemsFor(ctx, listID)
	if err != nil {
		return domain.ActionResult{}, nil, err
	}

	if existing := s.resolver.Resolve(name, items); existing != nil {
		existing.Quantity += quantity
		if err := s.store.UpdateItem(ctx, existing); err != nil {
			return domain.ActionResult{}, nil, err
		}
		msg := fmt.Sprintf("Updated %s quantity to %s", existing.Name, formatQuantity(existing.Quantity))
		return domain.ActionResult{Status: domain.ActionSuccess, Message: msg}, existing, nil
	}

	nameKey := strings.ToLower(name)
	category := in.Category
	if category == "" {
		category = s.categoryFor(nameKey)
	}

	item := &domain.ListItem{
		ListID:   listID,
		Name:     name,
		NameKey:  nameKey,
		Quantity: quantity,
		Unit:     unit,
		Category: category,
		AddedVia: in.AddedVia,
	}
	created, err := s.store.InsertItem(ctx, item)
	if err != nil {
		return domain.ActionResult{}, nil, err
	}

	msg := fmt.Sprintf("Added %s", created.Name)
	return domain.ActionResult{Status: domain.ActionSuccess, Message: msg}, created, nil
}

// UpdateItem applies the non-nil fields of in to an item.
func (s *ListService) UpdateItem(ctx context.Context, listID, itemID int64, in UpdateItemInput) (*domain.ListItem, error) {
	items, err := s.store.ItemsFor(ctx, listID)
	if err != nil {
		return nil, err
	}

	var item *domain.ListItem
	for i := range items {
		if items[i].ID == itemID {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}

	if in.Quantity != nil {
		item.Quantity = *in.Quantity
	}
	if in.Unit != nil {
		item.Unit = *in.Unit
	}
	if in.Checked != nil {
		item.Checked = *in.Checked
	}
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem deletes one item by ID.
func (s *ListService) RemoveItem(ctx context.Context, listID, itemID int64) error {
	return s.store.DeleteItem(ctx, listID, itemID)
}

// CreateList creates a new list for the user. An empty name gets the default.
func (s *ListService) CreateList(ctx context.Context, userID, name string) (*domain.ShoppingList, error) {
	if name == "" {
		name = defaultListName
	}
	return s.store.CreateList(ctx, userID, name)
}

// GetList returns the list header row.
func (s *ListService) GetList(ctx context.Context, listID int64) (*domain.ShoppingList, error) {
	return s.store.GetList(ctx, listID)
}

// Lists returns the user's lists, oldest first.
func (s *ListService) Lists(ctx context.Context, userID string) ([]domain.ShoppingList, error) {
	return s.store.Lists(ctx, userID)
}

// DeleteList removes a list and all its items.
func (s *ListService) DeleteList(ctx context.Context, listID int64) error {
	return s.store.DeleteList(ctx, listID)
}

// EnsureDefaultList returns the user's default list, creating it when absent.
func (s *ListService) EnsureDefaultList(ctx context.Context, userID string) (*domain.ShoppingList, error) {
	return s.store.EnsureDefaultList(ctx, userID)
}

// View renders the list grouped by category. A missing list renders as an
// empty view rather than an error so read paths stay total.
func (s *ListService) View(ctx context.Context, listID int64) (*domain.ListView, error) {
	list, err := s.store.GetList(ctx, listID)
	if errors.Is(err, domain.ErrListNotFound) {
		list = &domain.ShoppingList{ID: listID, Name: defaultListName}
	} else if err != nil {
		return nil, err
	}

	items, err := s.store.ItemsFor(ctx, listID)
	if err != nil {
		return nil, err
	}

	categories := make(map[string][]domain.ListItem)
	checked := 0
	for _, item := range items {
		cat := item.Category
		if cat == "" {
			cat = defaultCategory
		}
		categories[cat] = append(categories[cat], item)
		if item.Checked {
			checked++
		}
	}

	return &domain.ListView{
		ListID:       list.ID,
		Name:         list.Name,
		Categories:   categories,
		TotalItems:   len(items),
		CheckedItems: checked,
	}, nil
}

// ShareText renders the list as plain text suitable for messaging apps.
func (s *ListService) ShareText(ctx context.Context, listID int64) (string, error) {
	items, err := s.store.ItemsFor(ctx, listID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "Your shopping list is empty.", nil
	}

	lines := []string{"My Shopping List:"}
	for _, item := range items {
		check := "[ ]"
		if item.Checked {
			check = "[x]"
		}
		lines = append(lines, fmt.Sprintf("  %s %s %s %s", check, formatQuantity(item.Quantity), item.Unit, item.Name))
	}
	return strings.Join(lines, "\n"), nil
}

// PlaceOrder records every list item to the purchase history under a shared
// timestamp and clears the list. The shared timestamp is what groups the
// records into one order later.
func (s *ListService) PlaceOrder(ctx context.Context, listID int64, userID string) (domain.ActionResult, error) {
	items, err := s.store.ItemsFor(ctx, listID)
	if err != nil {
		return domain.ActionResult{}, err
	}
	if len(items) == 0 {
		return domain.ActionResult{Status: domain.ActionNoChange, Message: "List is empty, nothing to order"}, nil
	}

	now := time.Now().UTC()
	if err := s.store.RecordPurchases(ctx, userID, items, now); err != nil {
		return domain.ActionResult{}, err
	}
	if _, err := s.store.ClearItems(ctx, listID); err != nil {
		return domain.ActionResult{}, err
	}

	msg := fmt.Sprintf("Order placed with %d items", len(items))
	return domain.ActionResult{Status: domain.ActionSuccess, Message: msg}, nil
}

// OrderHistory groups the user's purchase records into orders. Records that
// share a PurchasedAt timestamp were placed together; the store returns them
// newest first.
func (s *ListService) OrderHistory(ctx context.Context, userID string) ([]domain.Order, error) {
	records, err := s.store.PurchaseHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	var orders []domain.Order
	for _, rec := range records {
		if len(orders) == 0 || !orders[len(orders)-1].PlacedAt.Equal(rec.PurchasedAt) {
			orders = append(orders, domain.Order{PlacedAt: rec.PurchasedAt})
		}
		last := &orders[len(orders)-1]
		last.Items = append(last.Items, rec)
		last.TotalItems++
	}
	return orders, nil
}

// addFromCommand handles the add_item intent with command-level defaults.
func (s *ListService) addFromCommand(ctx context.Context, listID int64, cmd *domain.ParsedCommand) domain.ActionResult {
	if cmd.Item == "" {
		return domain.ActionResult{Status: domain.ActionError, Message: "No item found in command"}
	}

	quantity := defaultQuantity
	if cmd.Quantity != nil {
		quantity = *cmd.Quantity
	}

	result, _, err := s.Add(ctx, listID, AddItemInput{
		Name:     cmd.Item,
		Quantity: quantity,
		Unit:     cmd.Unit,
		Category: cmd.Category,
		AddedVia: "voice",
	})
	if err != nil {
		s.logger.Error("add item failed", zap.String("item", cmd.Item), zap.Error(err))
		return domain.ActionResult{Status: domain.ActionError, Message: err.Error()}
	}
	return result
}

func (s *ListService) removeFromCommand(ctx context.Context, listID int64, cmd *domain.ParsedCommand) domain.ActionResult {
	if cmd.Item == "" {
		return domain.ActionResult{Status: domain.ActionError, Message: "No item specified to remove"}
	}

	items, err := s.store.ItemsFor(ctx, listID)
	if err != nil {
		s.logger.Error("remove item failed", zap.String("item", cmd.Item), zap.Error(err))
		return domain.ActionResult{Status: domain.ActionError, Message: err.Error()}
	}

	item := s.resolver.Resolve(cmd.Item, items)
	if item == nil {
		return domain.ActionResult{Status: domain.ActionNoChange, Message: fmt.Sprintf("%s not found in list", cmd.Item)}
	}

	if err := s.store.DeleteItem(ctx, listID, item.ID); err != nil {
		s.logger.Error("remove item failed", zap.String("item", cmd.Item), zap.Error(err))
		return domain.ActionResult{Status: domain.ActionError, Message: err.Error()}
	}
	return domain.ActionResult{Status: domain.ActionSuccess, Message: fmt.Sprintf("Removed %s", item.Name)}
}

func (s *ListService) modifyFromCommand(ctx context.Context, listID int64, cmd *domain.ParsedCommand) domain.ActionResult {
	if cmd.Item == "" {
		return domain.ActionResult{Status: domain.ActionError, Message: "No item specified to modify"}
	}

	items, err := s.store.ItemsFor(ctx, listID)
	if err != nil {
		s.logger.Error("modify item failed", zap.String("item", cmd.Item), zap.Error(err))
		return domain.ActionResult{Status: domain.ActionError, Message: err.Error()}
	}

	item := s.resolver.Resolve(cmd.Item, items)
	if item == nil {
		return domain.ActionResult{Status: domain.ActionNoChange, Message: fmt.Sprintf("%s not found in list", cmd.Item)}
	}

	if cmd.Quantity != nil {
		item.Quantity = *cmd.Quantity
	}
	if cmd.Unit != "" {
		item.Unit = cmd.Unit
	}
	if err := s.store.UpdateItem(ctx, item); err != nil {
		s.logger.Error("modify item failed", zap.String("item", cmd.Item), zap.Error(err))
		return domain.ActionResult{Status: domain.ActionError, Message: err.Error()}
	}
	return domain.ActionResult{Status: domain.ActionSuccess, Message: fmt.Sprintf("Updated %s", item.Name)}
}

func (s *ListService) checkFromCommand(ctx context.Context, listID int64, cmd *domain.ParsedCommand) domain.ActionResult {
	if cmd.Item == "" {
		return domain.ActionResult{Status: domain.ActionError, Message: "No item specified to check"}
	}

	items, err := s.store.ItemsFor(ctx, listID)
	if err != nil {
		s.logger.Error("check item failed", zap.String("item", cmd.Item), zap.Error(err))
		return domain.ActionResult{Status: domain.ActionError, Message: err.Error()}
	}

	item := s.resolver.Resolve(cmd.Item, items)
	if item == nil {
		return domain.ActionResult{Status: domain.ActionNoChange, Message: fmt.Sprintf("%s not found in list", cmd.Item)}
	}

	item.Checked = !item.Checked
	if err := s.store.UpdateItem(ctx, item); err != nil {
		s.logger.Error("check item failed", zap.String("item", cmd.Item), zap.Error(err))
		return domain.ActionResult{Status: domain.ActionError, Message: err.Error()}
	}

	state := "unchecked"
	if item.Checked {
		state = "checked"
	}
	return domain.ActionResult{Status: domain.ActionSuccess, Message: fmt.Sprintf("%s %s", item.Name, state)}
}

func (s *ListService) clearFromCommand(ctx context.Context, listID int64) domain.ActionResult {
	if _, err := s.store.ClearItems(ctx, listID); err != nil {
		s.logger.Error("clear list failed", zap.Int64("listId", listID), zap.Error(err))
		return domain.ActionResult{Status: domain.ActionError, Message: err.Error()}
	}
	return domain.ActionResult{Status: domain.ActionSuccess, Message: "List cleared"}
}

// searchCatalog answers search_item against catalog keys with an optional
// price ceiling. Pure catalog read, no store access.
func (s *ListService) searchCatalog(cmd *domain.ParsedCommand) domain.ActionResult {
	if cmd.Item == "" {
		return domain.ActionResult{Status: domain.ActionNoChange, Message: "No search term specified"}
	}

	query := strings.ToLower(strings.TrimSpace(cmd.Item))
	var matches []string
	for _, key := range s.catalog.Keys() {
		if !strings.Contains(key, query) {
			continue
		}
		if cmd.PriceMax != nil {
			entry, _ := s.catalog.Lookup(key)
			if entry.AvgPrice > *cmd.PriceMax {
				continue
			}
		}
		matches = append(matches, key)
	}

	if len(matches) == 0 {
		return domain.ActionResult{Status: domain.ActionNoChange, Message: fmt.Sprintf("No items found for %q", cmd.Item)}
	}

	top := matches
	if len(top) > searchResultLimit {
		top = top[:searchResultLimit]
	}
	priceNote := ""
	if cmd.PriceMax != nil {
		priceNote = fmt.Sprintf(" under $%s", formatQuantity(*cmd.PriceMax))
	}
	msg := fmt.Sprintf("Found %d results for %q%s: %s", len(matches), cmd.Item, priceNote, strings.Join(top, ", "))
	return domain.ActionResult{Status: domain.ActionSuccess, Message: msg}
}

// categoryFor looks up the catalog category for a normalized item name.
func (s *ListService) categoryFor(nameKey string) string {
	if entry, ok := s.catalog.Lookup(nameKey); ok && entry.Category != "" {
		return entry.Category
	}
	return defaultCategory
}

// formatQuantity renders a quantity without trailing zeros ("2", "0.5").
func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
