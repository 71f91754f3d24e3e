package nlp

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer cleans raw transcripts before parsing: polite openers and filler
// words go away, spoken numbers become digits, whitespace collapses. The
// result is stable under repeated normalization.
type Normalizer struct {
	logger *zap.Logger
}

// Compiled patterns for transcript cleanup
var (
	// politeOpenerPattern matches a leading run of greeting/request openers
	// ("hey there", "can you", "i'd like you to", ...)
	politeOpenerPattern = regexp.MustCompile(
		`^(?:hey\s+(?:there\s+)?|hi\s+|hello\s+|okay\s+|ok\s+|` +
			`can\s+you\s+|could\s+you\s+|would\s+you\s+|will\s+you\s+|` +
			`i\s+(?:want\s+(?:you\s+)?to\s+|need\s+you\s+to\s+|'d\s+like\s+(?:you\s+)?to\s+)|` +
			`please\s+)+`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// stripAccents folds accented characters to their base form so transcripts
// like "jalapeño" match ASCII catalog keys.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// numberWords maps spoken numbers to their value. "a"/"an" are special-cased
// in replaceNumberWords: they only become 1 before a unit or another number
// word, otherwise they stay articles.
var numberWords = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19, "twenty": 20, "thirty": 30,
	"forty": 40, "fifty": 50, "a": 1, "an": 1,
	"half": 0.5, "couple": 2, "few": 3, "dozen": 12, "handful": 5,
}

// multiWordFillers are removed by straight substring replacement before
// single-word filler removal.
var multiWordFillers = []string{"you know", "i mean", "kind of", "sort of"}

// fillerWords are hedge/filler tokens dropped wherever they stand alone.
var fillerWords = map[string]bool{
	"um": true, "uh": true, "erm": true, "er": true, "hmm": true,
	"hm": true, "ah": true, "oh": true, "like": true, "basically": true,
	"literally": true, "actually": true, "really": true, "kind": true,
	"sort": true, "well": true, "so": true, "just": true, "maybe": true,
	"perhaps": true, "please": true,
}

// articleUnitWords decides whether "a"/"an" reads as the number 1
// ("a dozen eggs") or as an article ("a pizza").
var articleUnitWords = map[string]bool{
	"kg": true, "kilogram": true, "kilograms": true, "gram": true,
	"grams": true, "lb": true, "lbs": true, "pound": true, "pounds": true,
	"oz": true, "ounce": true, "ounces": true, "liter": true,
	"liters": true, "litre": true, "litres": true, "ml": true,
	"piece": true, "pieces": true, "pack": true, "packs": true,
	"packet": true, "packets": true, "bag": true, "bags": true,
	"box": true, "boxes": true, "can": true, "cans": true,
	"bottle": true, "bottles": true, "bunch": true, "bunches": true,
	"dozen": true, "loaf": true, "loaves": true, "jar": true,
	"jars": true, "carton": true, "cartons": true, "roll": true,
	"rolls": true, "cup": true, "cups": true, "slice": true,
	"slices": true, "tray": true, "trays": true,
}

// NewNormalizer creates a transcript normalizer. A nil logger disables debug
// output.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize cleans a raw transcript for parsing. It is total: any input,
// including empty, yields a (possibly empty) normalized string, and
// normalizing an already-normalized string returns it unchanged.
//
// Cleanup passes repeat until the text stops changing. A single pass is not
// enough: filler removal can expose a polite opener that was not at the start
// of the raw text ("um can you add..." loses "um" first, "can you" second),
// and whitespace collapse can recombine a removed phrase's neighbors into a
// fresh occurrence of it.
func (n *Normalizer) Normalize(raw string) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	text = foldAccents(text)

	// Every changing pass shortens the text, except one that only swaps
	// articles to digits, and digits trigger no further rewrites. A fixed
	// point is always reached.
	for {
		next := normalizePass(text)
		if next == text {
			break
		}
		text = next
	}

	n.logger.Debug("normalized transcript",
		zap.String("raw", raw),
		zap.String("normalized", text))
	return text
}

// normalizePass runs the cleanup steps once, in order.
func normalizePass(text string) string {
	// Step 1: strip the polite-opener run
	text = politeOpenerPattern.ReplaceAllString(text, "")

	// Step 2: multi-word fillers
	for _, phrase := range multiWordFillers {
		text = strings.ReplaceAll(text, phrase, "")
	}

	// Step 3: spoken numbers to digits
	text = replaceNumberWords(text)

	// Step 4: single-word fillers
	text = removeFillerWords(text)

	// Step 5: boundary punctuation, then whitespace
	text = strings.Trim(text, ".,!?;:")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func foldAccents(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return out
}

// replaceNumberWords rewrites standalone number words as digit strings.
// "a"/"an" convert only when the next token is a unit or number word.
func replaceNumberWords(text string) string {
	tokens := strings.Fields(text)
	result := make([]string, 0, len(tokens))
	for i, token := range tokens {
		clean := strings.Trim(token, ".,!?")
		value, ok := numberWords[clean]
		if !ok {
			result = append(result, token)
			continue
		}
		if clean == "a" || clean == "an" {
			next := ""
			if i+1 < len(tokens) {
				next = strings.Trim(tokens[i+1], ".,!?")
			}
			if articleUnitWords[next] || isNumberWord(next) {
				result = append(result, "1")
			} else {
				result = append(result, token)
			}
			continue
		}
		result = append(result, formatNumber(value))
	}
	return strings.Join(result, " ")
}

func isNumberWord(w string) bool {
	_, ok := numberWords[w]
	return ok
}

// formatNumber renders whole values without a decimal point ("2", "0.5").
func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func removeFillerWords(text string) string {
	tokens := strings.Fields(text)
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !fillerWords[token] {
			kept = append(kept, token)
		}
	}
	return strings.Join(kept, " ")
}
