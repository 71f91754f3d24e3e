package nlp

import (
	"strconv"
	"strings"
)

// PartOfSpeech is the coarse word class assigned by an Annotator.
type PartOfSpeech string

const (
	POSNoun        PartOfSpeech = "NOUN"
	POSVerb        PartOfSpeech = "VERB"
	POSAdjective   PartOfSpeech = "ADJ"
	POSNumber      PartOfSpeech = "NUM"
	POSDeterminer  PartOfSpeech = "DET"
	POSPronoun     PartOfSpeech = "PRON"
	POSPreposition PartOfSpeech = "ADP"
	POSConjunction PartOfSpeech = "CONJ"
	POSAdverb      PartOfSpeech = "ADV"
	POSOther       PartOfSpeech = "X"
)

// Token is one word of annotated text.
type Token struct {
	Text   string
	POS    PartOfSpeech
	IsStop bool
}

// Annotation is the linguistic view of one normalized command: its tokens in
// order plus the noun-phrase-like chunks found in them.
type Annotation struct {
	Tokens     []Token
	NounChunks []string
}

// Annotator produces linguistic annotations for normalized text. Entity
// extraction only consumes coarse noun/stop-word signals, so implementations
// do not need full grammatical accuracy.
type Annotator interface {
	Annotate(text string) Annotation
}

// Word-class lexicons for the rule tagger. Unknown words default to NOUN,
// which is the right guess for product names.
var (
	tagDeterminers = map[string]bool{
		"the": true, "a": true, "an": true, "some": true, "any": true,
		"this": true, "that": true, "these": true, "those": true,
		"my": true, "your": true, "his": true, "her": true, "its": true,
		"our": true, "their": true, "each": true, "every": true,
		"all": true, "both": true, "no": true, "another": true,
	}

	tagPronouns = map[string]bool{
		"i": true, "you": true, "he": true, "she": true, "it": true,
		"we": true, "they": true, "me": true, "him": true, "them": true,
		"us": true, "myself": true, "yourself": true, "something": true,
		"anything": true, "everything": true, "nothing": true, "who": true,
		"what": true, "which": true,
	}

	tagPrepositions = map[string]bool{
		"of": true, "in": true, "on": true, "at": true, "to": true,
		"from": true, "with": true, "without": true, "for": true,
		"by": true, "about": true, "under": true, "over": true,
		"off": true, "out": true, "up": true, "down": true,
		"into": true, "onto": true, "per": true,
	}

	tagConjunctions = map[string]bool{
		"and": true, "or": true, "but": true, "nor": true,
		"because": true, "while": true, "if": true, "then": true,
	}

	// Command verbs plus auxiliaries. Shopping nouns that double as verbs
	// elsewhere ("list", "pack") are deliberately absent.
	tagVerbs = map[string]bool{
		"add": true, "put": true, "get": true, "buy": true, "need": true,
		"want": true, "grab": true, "throw": true, "pick": true,
		"include": true, "remove": true, "delete": true, "take": true,
		"cross": true, "drop": true, "change": true, "update": true,
		"modify": true, "set": true, "make": true, "adjust": true,
		"check": true, "mark": true, "tick": true, "got": true,
		"bought": true, "purchased": true, "checked": true, "done": true,
		"show": true, "read": true, "tell": true, "display": true,
		"view": true, "clear": true, "empty": true, "reset": true,
		"wipe": true, "search": true, "find": true, "locate": true,
		"look": true, "suggest": true, "recommend": true, "help": true,
		"give": true, "bring": true, "order": true, "use": true,
		"is": true, "are": true, "was": true, "were": true, "be": true,
		"been": true, "am": true, "do": true, "does": true, "did": true,
		"can": true, "could": true, "would": true, "should": true,
		"will": true, "shall": true, "may": true, "might": true,
		"must": true, "have": true, "has": true, "had": true,
	}

	tagAdverbs = map[string]bool{
		"very": true, "really": true, "quite": true, "too": true,
		"also": true, "now": true, "then": true, "there": true,
		"here": true, "again": true, "not": true, "never": true,
		"always": true, "more": true, "less": true, "else": true,
		"instead": true, "maybe": true, "perhaps": true, "only": true,
		"how": true, "when": true, "where": true, "why": true,
	}

	// Descriptors common in grocery phrasing. Unknown modifiers fall back to
	// NOUN, which still lands them inside the same noun chunk.
	tagAdjectives = map[string]bool{
		"fresh": true, "organic": true, "frozen": true, "canned": true,
		"dried": true, "raw": true, "ripe": true, "whole": true,
		"skim": true, "lowfat": true, "nonfat": true, "sliced": true,
		"diced": true, "ground": true, "boneless": true, "skinless": true,
		"sweet": true, "sour": true, "spicy": true, "hot": true,
		"cold": true, "red": true, "green": true, "yellow": true,
		"white": true, "brown": true, "black": true, "big": true,
		"small": true, "large": true, "cheap": true, "expensive": true,
		"new": true, "same": true, "other": true, "good": true,
		"free": true, "gluten-free": true, "sugar-free": true,
	}

	// Compact English function-word stop list. Flags tokens the extractor
	// must never pick as an item on the last-resort path.
	tagStopList = map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true,
		"but": true, "of": true, "in": true, "on": true, "at": true,
		"to": true, "from": true, "with": true, "for": true, "by": true,
		"is": true, "are": true, "was": true, "were": true, "be": true,
		"do": true, "does": true, "did": true, "have": true, "has": true,
		"had": true, "can": true, "could": true, "would": true,
		"should": true, "will": true, "i": true, "you": true, "he": true,
		"she": true, "it": true, "we": true, "they": true, "me": true,
		"my": true, "your": true, "this": true, "that": true,
		"these": true, "those": true, "some": true, "any": true,
		"all": true, "no": true, "not": true, "so": true, "too": true,
		"very": true, "just": true, "about": true, "there": true,
		"here": true, "now": true, "then": true, "what": true,
		"which": true, "who": true, "how": true, "when": true,
		"where": true, "why": true, "please": true, "also": true,
		"than": true, "more": true, "less": true, "out": true, "up": true,
		"down": true, "off": true, "over": true, "under": true,
	}
)

// RuleTagger is a lightweight rule-based Annotator: lexicon lookups plus a
// noun default, with noun chunks built from contiguous determiner/number/
// adjective/noun runs. It stands in for a statistical tagger; the extractor
// only needs coarse signals.
type RuleTagger struct{}

// NewRuleTagger creates a rule-based annotator.
func NewRuleTagger() *RuleTagger { return &RuleTagger{} }

// Annotate tokenizes text, tags each token, and derives noun chunks.
func (t *RuleTagger) Annotate(text string) Annotation {
	tokens, breaks := tagTokenize(text)
	ann := Annotation{Tokens: make([]Token, 0, len(tokens))}
	for _, w := range tokens {
		ann.Tokens = append(ann.Tokens, Token{
			Text:   w,
			POS:    tagWord(w),
			IsStop: tagStopList[w],
		})
	}
	ann.NounChunks = nounChunks(ann.Tokens, breaks)
	return ann
}

// tagTokenize splits on whitespace and trims surrounding punctuation from
// each token, keeping internal apostrophes and hyphens. breaks[i] marks a
// phrase boundary after token i (the token carried trailing punctuation).
func tagTokenize(text string) ([]string, []bool) {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	breaks := make([]bool, 0, len(fields))
	for _, f := range fields {
		trimmed := strings.Trim(f, ".,!?;:\"()[]")
		if trimmed == "" {
			// Standalone punctuation still separates phrases.
			if n := len(breaks); n > 0 {
				breaks[n-1] = true
			}
			continue
		}
		tokens = append(tokens, trimmed)
		breaks = append(breaks, strings.ContainsAny(f[len(f)-1:], ".,!?;:"))
	}
	return tokens, breaks
}

func tagWord(w string) PartOfSpeech {
	switch {
	case isNumericToken(w):
		return POSNumber
	case tagDeterminers[w]:
		return POSDeterminer
	case tagPronouns[w]:
		return POSPronoun
	case tagVerbs[w]:
		return POSVerb
	case tagPrepositions[w]:
		return POSPreposition
	case tagConjunctions[w]:
		return POSConjunction
	case tagAdverbs[w]:
		return POSAdverb
	case tagAdjectives[w]:
		return POSAdjective
	default:
		return POSNoun
	}
}

// isNumericToken reports whether w is a digit string like "2" or "2.5".
func isNumericToken(w string) bool {
	if w == "" {
		return false
	}
	if _, err := strconv.ParseFloat(strings.ReplaceAll(w, ",", ""), 64); err != nil {
		return false
	}
	for _, r := range w {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return false
		}
	}
	return true
}

// nounChunks collects maximal runs of determiner/number/adjective/noun tokens
// that contain at least one noun. Runs split at other word classes and at
// trailing-punctuation boundaries.
func nounChunks(tokens []Token, breaks []bool) []string {
	var chunks []string
	var run []string
	hasNoun := false

	flush := func() {
		if hasNoun && len(run) > 0 {
			chunks = append(chunks, strings.Join(run, " "))
		}
		run = nil
		hasNoun = false
	}

	for i, tok := range tokens {
		switch tok.POS {
		case POSDeterminer, POSNumber, POSAdjective:
			run = append(run, tok.Text)
		case POSNoun:
			run = append(run, tok.Text)
			hasNoun = true
		default:
			flush()
		}
		if i < len(breaks) && breaks[i] {
			flush()
		}
	}
	flush()
	return chunks
}
