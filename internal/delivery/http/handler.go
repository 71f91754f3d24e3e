package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartvoice/backend/internal/domain"
	"github.com/cartvoice/backend/internal/nlp"
	"github.com/cartvoice/backend/internal/recommend"
	"github.com/cartvoice/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	pipeline    *nlp.Pipeline
	lists       *usecase.ListService
	store       *usecase.StoreService
	resolver    *usecase.CatalogResolver
	engine      *recommend.Engine
	defaultUser string
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	pipeline *nlp.Pipeline,
	lists *usecase.ListService,
	store *usecase.StoreService,
	resolver *usecase.CatalogResolver,
	engine *recommend.Engine,
	defaultUser string,
	logger *zap.Logger,
) *Handler {
	if defaultUser == "" {
		defaultUser = "default_user"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		pipeline:    pipeline,
		lists:       lists,
		store:       store,
		resolver:    resolver,
		engine:      engine,
		defaultUser: defaultUser,
		logger:      logger,
	}
}

type processRequest struct {
	Text string `json:"text"`
}

type commandRequest struct {
	Text   string `json:"text"`
	ListID int64  `json:"listId"`
}

type commandResponse struct {
	Transcript  string               `json:"transcript"`
	Parsed      domain.ParsedCommand `json:"parsed"`
	Result      domain.ActionResult  `json:"result"`
	List        *domain.ListView     `json:"list"`
	Suggestions *domain.Suggestions  `json:"suggestions,omitempty"`
	ElapsedMs   float64              `json:"elapsedMs"`
}

type createListRequest struct {
	Name string `json:"name"`
}

type addItemRequest struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
	AddedVia string  `json:"addedVia"`
}

type updateItemRequest struct {
	Quantity *float64 `json:"quantity"`
	Unit     *string  `json:"unit"`
	Checked  *bool    `json:"checked"`
}

type placeOrderRequest struct {
	ListID int64 `json:"listId"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cartvoice-backend",
		"version": "1.0.0",
	})
}

// ProcessCommand parses a text command without executing it.
func (h *Handler) ProcessCommand(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text must not be empty"})
		return
	}

	cmd := h.pipeline.Process(c.Request.Context(), req.Text)
	c.JSON(http.StatusOK, cmd)
}

// ExecuteCommand runs the full pipeline: parse the text, apply the resulting
// action to the list, and refresh the list view. Suggestions are attached for
// add and suggestion intents; a suggestion failure never fails the command.
func (h *Handler) ExecuteCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text must not be empty"})
		return
	}

	ctx := c.Request.Context()
	start := time.Now()

	cmd := h.pipeline.Process(ctx, req.Text)

	listID := req.ListID
	if listID == 0 {
		list, err := h.lists.EnsureDefaultList(ctx, h.defaultUser)
		if err != nil {
			h.respondError(c, err)
			return
		}
		listID = list.ID
	}

	result, view, err := h.lists.Execute(ctx, listID, &cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var suggestions *domain.Suggestions
	if h.engine != nil && cmd.Item != "" && wantsSuggestions(cmd.Intent) {
		sugg, err := h.engine.GetSuggestions(ctx, cmd.Item, h.defaultUser, view.ItemNames()...)
		if err != nil {
			h.logger.Warn("suggestions unavailable",
				zap.String("item", cmd.Item),
				zap.Error(err))
		} else if sugg != nil && !sugg.Empty() {
			suggestions = sugg
		}
	}

	c.JSON(http.StatusOK, commandResponse{
		Transcript:  req.Text,
		Parsed:      cmd,
		Result:      result,
		List:        view,
		Suggestions: suggestions,
		ElapsedMs:   elapsedMillis(start),
	})
}

// ResolveItem matches a free-text item reference against the catalog.
func (h *Handler) ResolveItem(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	c.JSON(http.StatusOK, h.resolver.Resolve(query))
}

// CreateList creates a shopping list and returns its (empty) view.
func (h *Handler) CreateList(c *gin.Context) {
	var req createListRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	ctx := c.Request.Context()
	list, err := h.lists.CreateList(ctx, h.defaultUser, strings.TrimSpace(req.Name))
	if err != nil {
		h.respondError(c, err)
		return
	}

	view, err := h.lists.View(ctx, list.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetLists returns the user's lists.
func (h *Handler) GetLists(c *gin.Context) {
	lists, err := h.lists.Lists(c.Request.Context(), h.defaultUser)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if lists == nil {
		lists = []domain.ShoppingList{}
	}
	c.JSON(http.StatusOK, gin.H{"lists": lists, "total": len(lists)})
}

// GetList returns the list with items grouped by category.
func (h *Handler) GetList(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.lists.GetList(ctx, listID); err != nil {
		h.respondError(c, err)
		return
	}

	view, err := h.lists.View(ctx, listID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteList removes a list and all its items.
func (h *Handler) DeleteList(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.lists.DeleteList(c.Request.Context(), listID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.ActionResult{
		Status:  domain.ActionSuccess,
		Message: fmt.Sprintf("List %d deleted", listID),
	})
}

// ShareList returns a plain-text rendering of the list.
func (h *Handler) ShareList(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.lists.GetList(ctx, listID); err != nil {
		h.respondError(c, err)
		return
	}

	text, err := h.lists.ShareText(ctx, listID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// AddItem puts an item on the list, merging quantities with an existing entry
// for the same item.
func (h *Handler) AddItem(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.lists.GetList(ctx, listID); err != nil {
		h.respondError(c, err)
		return
	}

	_, item, err := h.lists.Add(ctx, listID, usecase.AddItemInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Category: req.Category,
		AddedVia: req.AddedVia,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateItem updates quantity, unit, or checked state of an item.
func (h *Handler) UpdateItem(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.lists.UpdateItem(c.Request.Context(), listID, itemID, usecase.UpdateItemInput{
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Checked:  req.Checked,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// RemoveItem deletes a specific item from the list.
func (h *Handler) RemoveItem(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	if err := h.lists.RemoveItem(c.Request.Context(), listID, itemID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.ActionResult{
		Status:  domain.ActionSuccess,
		Message: fmt.Sprintf("Removed item %d", itemID),
	})
}

// StoreHome returns the store landing page data.
func (h *Handler) StoreHome(c *gin.Context) {
	data, err := h.store.Home(c.Request.Context(), h.defaultUser)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// StoreCategory returns one page of products in a category.
func (h *Handler) StoreCategory(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
			return
		}
		page = parsed
	}

	c.JSON(http.StatusOK, h.store.CategoryPage(c.Param("name"), page))
}

// StoreSearch searches the catalog by name with an optional price ceiling.
func (h *Handler) StoreSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	var priceMax *float64
	if raw := c.Query("maxPrice"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "maxPrice must be a non-negative number"})
			return
		}
		priceMax = &parsed
	}

	c.JSON(http.StatusOK, h.store.Search(query, limit, priceMax))
}

// RelatedProducts returns co-purchase and substitute names for a product.
func (h *Handler) RelatedProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Related(c.Param("name")))
}

// PlaceOrder records the list items to purchase history and clears the list.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ListID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listId is required"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.lists.GetList(ctx, req.ListID); err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.lists.PlaceOrder(ctx, req.ListID, h.defaultUser)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// OrderHistory returns past orders, newest first.
func (h *Handler) OrderHistory(c *gin.Context) {
	orders, err := h.lists.OrderHistory(c.Request.Context(), h.defaultUser)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

// respondError maps domain sentinel errors onto HTTP statuses. Unrecognized
// errors surface as 500 and are logged with the request path.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrListNotFound), errors.Is(err, domain.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrFallbackUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func wantsSuggestions(intent domain.Intent) bool {
	return intent == domain.IntentAddItem || intent == domain.IntentGetSuggestions
}

func elapsedMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// pathID parses a positive integer path parameter, responding 400 itself
// when the value is malformed.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return id, true
}
