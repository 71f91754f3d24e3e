package nlp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cartvoice/backend/internal/domain"
)

// Entities holds the best-effort extractions from one normalized command.
// Absent signals are zero/nil, never an error.
type Entities struct {
	Item     string
	Quantity *float64
	Unit     string
	PriceMax *float64
}

// EntityExtractor pulls item, quantity, unit, and price ceiling out of
// normalized text. Item extraction prefers exact catalog phrases, then
// noun chunks, then a bare noun token.
type EntityExtractor struct {
	catalog         *domain.Catalog
	annotator       Annotator
	maxPhraseTokens int
}

// unitKeywords is the measurement vocabulary for unit extraction. Broader
// than the normalizer's unit set: abbreviations and cooking measures count
// here even though they never force an article to a number.
var unitKeywords = map[string]bool{
	"kg": true, "kilogram": true, "kilograms": true, "g": true,
	"gram": true, "grams": true, "lb": true, "lbs": true, "pound": true,
	"pounds": true, "oz": true, "ounce": true, "ounces": true, "l": true,
	"liter": true, "liters": true, "litre": true, "litres": true,
	"ml": true, "milliliter": true, "milliliters": true,
	"millilitre": true, "millilitres": true, "piece": true,
	"pieces": true, "pc": true, "pcs": true, "pack": true, "packs": true,
	"packet": true, "packets": true, "bag": true, "bags": true,
	"box": true, "boxes": true, "can": true, "cans": true,
	"bottle": true, "bottles": true, "bunch": true, "bunches": true,
	"dozen": true, "loaf": true, "loaves": true, "jar": true,
	"jars": true, "carton": true, "cartons": true, "tray": true,
	"trays": true, "roll": true, "rolls": true, "cup": true,
	"cups": true, "tbsp": true, "tablespoon": true, "tablespoons": true,
	"tsp": true, "teaspoon": true, "teaspoons": true, "slice": true,
	"slices": true,
}

// chunkStopWords disqualify a noun chunk (or bare noun) from being an item.
var chunkStopWords = map[string]bool{
	"list": true, "all": true, "everything": true, "me": true,
	"my": true, "the": true, "some": true, "any": true, "i": true,
	"it": true, "you": true, "we": true, "he": true, "she": true,
	"they": true, "us": true, "that": true, "this": true, "thing": true,
	"things": true, "stuff": true, "way": true, "day": true,
	"time": true, "sorry": true, "lot": true, "bit": true,
	"something": true, "nothing": true,
}

var (
	// chunkArticlePattern strips one leading article or small count from a
	// noun chunk ("a pizza" → "pizza", "2 bananas" → "bananas").
	chunkArticlePattern = regexp.MustCompile(`^(?:a|an|the|some|my|1|2|3)\s+`)

	// quantityPattern finds a bare digit sequence when no numeric token
	// survived tokenization.
	quantityPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)

	// pricePattern requires an explicit money marker: "$5", "$ 5.99",
	// "10 dollars", "5 bucks". A bare number is a quantity, not a price.
	pricePattern = regexp.MustCompile(`\$\s*(\d+(?:\.\d{1,2})?)|\b(\d+(?:\.\d{1,2})?)\s*(?:dollars?|bucks?)\b`)
)

// NewEntityExtractor creates an extractor over the given catalog and
// annotator. The catalog drives phrase matching; the annotator supplies the
// noun-chunk and part-of-speech signals for the fallback paths.
func NewEntityExtractor(catalog *domain.Catalog, annotator Annotator) *EntityExtractor {
	maxTokens := 1
	for _, key := range catalog.Keys() {
		if n := len(strings.Fields(key)); n > maxTokens {
			maxTokens = n
		}
	}
	return &EntityExtractor{
		catalog:         catalog,
		annotator:       annotator,
		maxPhraseTokens: maxTokens,
	}
}

// Extract runs all extractions over normalized text. Each signal is
// independent and best-effort.
func (e *EntityExtractor) Extract(text string) Entities {
	ann := e.annotator.Annotate(text)
	return Entities{
		Item:     e.extractItem(ann),
		Quantity: extractQuantity(ann, text),
		Unit:     extractUnit(ann),
		PriceMax: extractPrice(text),
	}
}

// extractItem tries, in order: the longest catalog phrase in the token
// stream, the first meaningful noun chunk, the first meaningful noun token.
// The first chunk wins over later ones: noisy transcripts tend to carry
// garbage at the end, and the earliest chunk sits closest to the
// intent-bearing verb.
func (e *EntityExtractor) extractItem(ann Annotation) string {
	if phrase := e.longestCatalogPhrase(ann.Tokens); phrase != "" {
		return phrase
	}

	for _, chunk := range ann.NounChunks {
		chunk = strings.TrimSpace(strings.ToLower(chunk))
		if chunkStopWords[chunk] || unitKeywords[chunk] || len(chunk) < 2 {
			continue
		}
		cleaned := strings.TrimSpace(chunkArticlePattern.ReplaceAllString(chunk, ""))
		if cleaned != "" && !chunkStopWords[cleaned] && len(cleaned) >= 2 {
			return cleaned
		}
	}

	for _, tok := range ann.Tokens {
		if tok.POS != POSNoun || tok.IsStop {
			continue
		}
		if chunkStopWords[tok.Text] || unitKeywords[tok.Text] || len(tok.Text) < 2 {
			continue
		}
		return tok.Text
	}
	return ""
}

// longestCatalogPhrase scans token spans longest-first, leftmost-first, and
// returns the first span that is a catalog key.
func (e *EntityExtractor) longestCatalogPhrase(tokens []Token) string {
	words := make([]string, len(tokens))
	for i, tok := range tokens {
		words[i] = tok.Text
	}
	maxSpan := e.maxPhraseTokens
	if maxSpan > len(words) {
		maxSpan = len(words)
	}
	for span := maxSpan; span >= 1; span-- {
		for start := 0; start+span <= len(words); start++ {
			phrase := strings.Join(words[start:start+span], " ")
			if e.catalog.Has(phrase) {
				return phrase
			}
		}
	}
	return ""
}

// extractQuantity returns the first numeric token, else the first digit
// sequence found by regex scan.
func extractQuantity(ann Annotation, text string) *float64 {
	for _, tok := range ann.Tokens {
		if tok.POS != POSNumber {
			continue
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(tok.Text, ",", ""), 64); err == nil {
			return &v
		}
	}
	if m := quantityPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &v
		}
	}
	return nil
}

// extractUnit returns the first token in the unit vocabulary.
func extractUnit(ann Annotation) string {
	for _, tok := range ann.Tokens {
		if unitKeywords[tok.Text] {
			return tok.Text
		}
	}
	return ""
}

// extractPrice returns the price ceiling when the text carries an explicit
// money marker.
func extractPrice(text string) *float64 {
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return &v
	}
	return nil
}
