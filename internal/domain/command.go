package domain

// Intent is the abstract action a shopping command requests.
type Intent string

const (
	IntentAddItem        Intent = "add_item"
	IntentRemoveItem     Intent = "remove_item"
	IntentModifyItem     Intent = "modify_item"
	IntentCheckItem      Intent = "check_item"
	IntentSearchItem     Intent = "search_item"
	IntentListItems      Intent = "list_items"
	IntentClearList      Intent = "clear_list"
	IntentGetSuggestions Intent = "get_suggestions"
)

// ValidIntent reports whether s is one of the known intent values.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentAddItem, IntentRemoveItem, IntentModifyItem, IntentCheckItem,
		IntentSearchItem, IntentListItems, IntentClearList, IntentGetSuggestions:
		return true
	}
	return false
}

// ParseMethod tags which extraction path produced a ParsedCommand.
type ParseMethod string

const (
	// MethodPrimary marks results from the rule-based pipeline.
	MethodPrimary ParseMethod = "primary"

	// MethodFallback marks results replaced by the external extraction service.
	MethodFallback ParseMethod = "fallback"
)

// ParsedCommand is the structured form of one natural-language shopping
// command. Optional fields are zero/nil when the corresponding signal was
// absent from the text.
type ParsedCommand struct {
	Intent         Intent             `json:"intent"`
	Item           string             `json:"item,omitempty"`
	Quantity       *float64           `json:"quantity,omitempty"`
	Unit           string             `json:"unit,omitempty"`
	Category       string             `json:"category,omitempty"`
	Brand          string             `json:"brand,omitempty"`
	PriceMax       *float64           `json:"priceMax,omitempty"`
	Confidence     float64            `json:"confidence"`
	Method         ParseMethod        `json:"method"`
	NormalizedText string             `json:"normalizedText"`
	StageTimings   map[string]float64 `json:"stageTimings,omitempty"`
}

// ExtractedFields is the structured output of the fallback extraction
// service. On a successful escalation these fields replace the primary
// extraction wholesale.
type ExtractedFields struct {
	Intent   Intent   `json:"intent"`
	Item     string   `json:"item,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Category string   `json:"category,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	PriceMax *float64 `json:"priceMax,omitempty"`
}

// ActionStatus is the outcome class of executing a command against a list.
type ActionStatus string

const (
	ActionSuccess  ActionStatus = "success"
	ActionNoChange ActionStatus = "no_change"
	ActionError    ActionStatus = "error"
)

// ActionResult describes what executing a ParsedCommand did to a list.
type ActionResult struct {
	Status  ActionStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Float64Ptr returns a pointer to v. Helper for optional numeric fields.
func Float64Ptr(v float64) *float64 { return &v }
