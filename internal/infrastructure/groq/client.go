package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cartvoice/backend/internal/domain"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the low-latency model used for both extraction and
	// suggestion calls.
	DefaultModel = "llama-3.1-8b-instant"

	// defaultRequestsPerMinute matches Groq's free-tier ceiling.
	defaultRequestsPerMinute = 30
	limiterBurst             = 5
)

// Extraction wants deterministic JSON; suggestions tolerate a little variety.
const (
	extractTemperature = 0.0
	extractMaxTokens   = 200
	suggestTemperature = 0.3
	suggestMaxTokens   = 100
)

const extractSystemPrompt = `You are a voice shopping assistant NLP parser.
Given a shopping voice command, extract structured information and return ONLY valid JSON.

Supported intents: add_item, remove_item, modify_item, check_item, search_item, list_items, clear_list, get_suggestions

JSON schema (all fields required, use null if not found):
{
  "intent": "<intent>",
  "item": "<item name or null>",
  "quantity": <number or null>,
  "unit": "<unit string or null>",
  "category": "<grocery category or null>",
  "brand": "<brand name or null>",
  "price_max": <number or null>
}

Examples:
"add 2 bananas" -> {"intent":"add_item","item":"bananas","quantity":2,"unit":null,"category":"produce","brand":null,"price_max":null}
"remove milk from my list" -> {"intent":"remove_item","item":"milk","quantity":null,"unit":null,"category":null,"brand":null,"price_max":null}
"show my list" -> {"intent":"list_items","item":null,"quantity":null,"unit":null,"category":null,"brand":null,"price_max":null}
"clear my list" -> {"intent":"clear_list","item":null,"quantity":null,"unit":null,"category":null,"brand":null,"price_max":null}`

const suggestSystemPrompt = `You are a grocery shopping assistant.
Given an item name, suggest 5 commonly bought-together grocery items.
Return ONLY a JSON array of strings.
Example: ["item1", "item2", "item3", "item4", "item5"]`

// Config holds Groq connection settings. Zero-value fields take defaults;
// only APIKey is required.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute float64
}

// Client talks to Groq's OpenAI-compatible chat API. It backs two concerns:
// structured re-extraction of low-confidence commands and co-purchase
// suggestions for items the rule data does not cover. One shared limiter
// keeps both under the account's request budget.
type Client struct {
	api     *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a Groq client. A missing API key is reported as
// domain.ErrFallbackUnavailable so callers can degrade to rules-only mode.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key not set", domain.ErrFallbackUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}

	api := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
	)

	logger.Info("groq client ready",
		zap.String("model", model),
		zap.Float64("requestsPerMinute", rpm))
	return &Client{
		api:     &api,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(rpm/60.0), limiterBurst),
		logger:  logger,
	}, nil
}

// extractedWire mirrors the JSON schema the system prompt demands. Quantity
// and price arrive as numbers or numeric strings depending on the model, so
// both stay raw until coercion.
type extractedWire struct {
	Intent   string          `json:"intent"`
	Item     string          `json:"item"`
	Quantity json.RawMessage `json:"quantity"`
	Unit     string          `json:"unit"`
	Category string          `json:"category"`
	Brand    string          `json:"brand"`
	PriceMax json.RawMessage `json:"price_max"`
}

// Extract asks the model to re-parse one shopping command into structured
// fields. Implements domain.FallbackExtractor. Unknown intents collapse to
// add_item rather than leaking free-form strings downstream.
func (c *Client) Extract(ctx context.Context, text string) (*domain.ExtractedFields, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractSystemPrompt),
			openai.UserMessage(fmt.Sprintf("Parse this shopping command: %q", text)),
		},
		Temperature: openai.Float(extractTemperature),
		MaxTokens:   openai.Int(extractMaxTokens),
	}
	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFallbackUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", domain.ErrExtractionFailed)
	}

	raw := unfence(completion.Choices[0].Message.Content, '{', '}')
	if raw == "" {
		raw = "{}"
	}
	var wire extractedWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	intent := domain.Intent(wire.Intent)
	if !domain.ValidIntent(wire.Intent) {
		intent = domain.IntentAddItem
	}
	fields := &domain.ExtractedFields{
		Intent:   intent,
		Item:     wire.Item,
		Quantity: coerceFloat(wire.Quantity),
		Unit:     wire.Unit,
		Category: wire.Category,
		Brand:    wire.Brand,
		PriceMax: coerceFloat(wire.PriceMax),
	}

	c.logger.Debug("fallback extraction complete",
		zap.String("intent", string(fields.Intent)),
		zap.String("item", fields.Item))
	return fields, nil
}

// Suggest returns model-generated co-purchase names for cold-start items.
// Implements the recommendation engine's suggestion source.
func (c *Client) Suggest(ctx context.Context, itemName string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(suggestSystemPrompt),
			openai.UserMessage("Item: " + itemName),
		},
		Temperature: openai.Float(suggestTemperature),
		MaxTokens:   openai.Int(suggestMaxTokens),
	}
	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("suggestion request: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("suggestion request: no choices returned")
	}

	raw := unfence(completion.Choices[0].Message.Content, '[', ']')
	if raw == "" {
		raw = "[]"
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

// unfence unwraps a markdown-fenced response by keeping the slice from the
// first opener to the last closer. Responses without fences pass through
// untouched; a fenced response missing the delimiters is returned as-is and
// left for the JSON parser to reject.
func unfence(raw string, opener, closer byte) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "```") {
		return raw
	}
	start := strings.IndexByte(raw, opener)
	end := strings.LastIndexByte(raw, closer)
	if start == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

// coerceFloat accepts JSON numbers and numeric strings; null and anything
// else become nil.
func coerceFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &v
		}
	}
	return nil
}
