package nlp

import (
	"testing"

	"github.com/cartvoice/backend/internal/domain"
)

func TestClassify(t *testing.T) {
	c := NewIntentClassifier()

	testCases := []struct {
		name string
		text string
		want domain.Intent
	}{
		{"add by keyword", "add 2 bananas", domain.IntentAddItem},
		{"add by phrase", "pick up some milk", domain.IntentAddItem},
		{"remove by keyword", "delete the milk", domain.IntentRemoveItem},
		{"remove by phrase", "get rid of the milk", domain.IntentRemoveItem},
		{"modify", "change milk to 2 liters", domain.IntentModifyItem},
		{"check", "mark the milk as done", domain.IntentCheckItem},
		{"search", "look for cheap pasta", domain.IntentSearchItem},
		{"list by phrase", "what's on my list", domain.IntentListItems},
		{"list by keyword", "show my list", domain.IntentListItems},
		{"suggestions", "what else should i get", domain.IntentGetSuggestions},
		{"clear bare", "clear", domain.IntentClearList},
		{"clear with list tail", "clear my list", domain.IntentClearList},
		{"clear with items tail", "remove all items", domain.IntentClearList},
		{"start over", "start over", domain.IntentClearList},
		{"remove everything with harmless tail", "remove everything from my list", domain.IntentClearList},
		{"default when nothing matches", "bananas", domain.IntentAddItem},
		{"empty text defaults", "", domain.IntentAddItem},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.text)
			if got != tc.want {
				t.Errorf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
			}
		})
	}
}

func TestClassifyClearListGuard(t *testing.T) {
	c := NewIntentClassifier()

	t.Run("named item defeats clear trigger", func(t *testing.T) {
		got := c.Classify("remove all the milk")
		if got != domain.IntentRemoveItem {
			t.Errorf("Classify = %s, want remove_item", got)
		}
	})

	t.Run("guard applies to single-word triggers too", func(t *testing.T) {
		got := c.Classify("clear the milk from my list")
		if got == domain.IntentClearList {
			t.Error("expected clear_list to be suppressed when an item follows")
		}
	})
}

func TestClassifyWordBoundaries(t *testing.T) {
	c := NewIntentClassifier()

	t.Run("trigger inside a longer word does not fire", func(t *testing.T) {
		// "additional" contains "add" but is not the verb.
		got := c.Classify("additional napkins")
		if got != domain.IntentAddItem {
			t.Errorf("Classify = %s, want add_item (default)", got)
		}
	})

	t.Run("priority places check above search", func(t *testing.T) {
		got := c.Classify("do you have milk")
		if got != domain.IntentCheckItem {
			t.Errorf("Classify = %s, want check_item", got)
		}
	})
}
