package nlp

import (
	"regexp"
	"strings"

	"github.com/cartvoice/backend/internal/domain"
)

// IntentClassifier maps normalized text to one of the fixed intents by
// trigger phrases checked in priority order. Classification is total: text
// that matches nothing reads as add_item.
type IntentClassifier struct{}

type intentPattern struct {
	intent   domain.Intent
	triggers []string
}

// intentPatterns is checked top to bottom; within an intent, triggers are
// checked left to right. Order is load-bearing: overlapping trigger words
// resolve to the higher-priority intent.
var intentPatterns = []intentPattern{
	{domain.IntentClearList, []string{"clear", "empty", "reset", "wipe", "start over", "delete all", "remove all", "remove everything"}},
	{domain.IntentListItems, []string{"show", "list", "read", "tell me", "what's on", "what is on", "what do i have", "display", "view"}},
	{domain.IntentGetSuggestions, []string{"suggest", "recommend", "what else", "what should", "ideas", "idea", "help me"}},
	{domain.IntentCheckItem, []string{"check", "mark", "got", "have", "checked", "tick", "done with", "bought", "purchased"}},
	{domain.IntentSearchItem, []string{"search", "find", "look for", "where", "locate", "do you have", "is there"}},
	{domain.IntentRemoveItem, []string{"remove", "delete", "take out", "take off", "cross off", "get rid of", "don't need", "do not need"}},
	{domain.IntentModifyItem, []string{"change", "update", "modify", "set", "make it", "adjust"}},
	{domain.IntentAddItem, []string{"add", "put", "get", "buy", "need", "want", "throw in", "pick up", "grab", "include", "i need", "i want"}},
}

// harmlessClearTails are the only remainders allowed after a clear_list
// trigger. Anything else ("...all the milk") means a specific item is named
// and a lower-priority intent should win.
var harmlessClearTails = map[string]bool{
	"":              true,
	"items":         true,
	"things":        true,
	"list":          true,
	"my list":       true,
	"the list":      true,
	"my cart":       true,
	"the cart":      true,
	"from my list":  true,
	"from the list": true,
	"from list":     true,
}

// singleWordTriggers holds the word-boundary patterns for one-word triggers.
var singleWordTriggers = compileSingleWordTriggers()

func compileSingleWordTriggers() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp)
	for _, p := range intentPatterns {
		for _, trigger := range p.triggers {
			if !strings.Contains(trigger, " ") {
				m[trigger] = regexp.MustCompile(`\b` + regexp.QuoteMeta(trigger) + `\b`)
			}
		}
	}
	return m
}

// NewIntentClassifier creates an intent classifier.
func NewIntentClassifier() *IntentClassifier { return &IntentClassifier{} }

// Classify returns the intent for normalized text. Multi-word triggers match
// by containment, single-word triggers on whole-word boundaries. A clear_list
// trigger only fires when nothing meaningful follows it, so "remove all the
// milk" falls through to remove_item.
func (c *IntentClassifier) Classify(text string) domain.Intent {
	for _, p := range intentPatterns {
		for _, trigger := range p.triggers {
			end := triggerEnd(text, trigger)
			if end < 0 {
				continue
			}
			if p.intent == domain.IntentClearList {
				tail := strings.TrimSpace(text[end:])
				if !harmlessClearTails[tail] {
					continue
				}
			}
			return p.intent
		}
	}
	return domain.IntentAddItem
}

// triggerEnd returns the index just past the first occurrence of trigger in
// text, or -1 when it does not occur.
func triggerEnd(text, trigger string) int {
	if strings.Contains(trigger, " ") {
		idx := strings.Index(text, trigger)
		if idx < 0 {
			return -1
		}
		return idx + len(trigger)
	}
	loc := singleWordTriggers[trigger].FindStringIndex(text)
	if loc == nil {
		return -1
	}
	return loc[1]
}
