package usecase

import (
	"testing"

	"github.com/cartvoice/backend/internal/domain"
)

func snapshotItems() []domain.ListItem {
	return []domain.ListItem{
		{ID: 1, Name: "Fresh Mangoes", NameKey: "fresh mangoes", Quantity: 2, Unit: "pieces"},
		{ID: 2, Name: "Whole Milk", NameKey: "whole milk", Quantity: 1, Unit: "gallon"},
		{ID: 3, Name: "Bread", NameKey: "bread", Quantity: 1, Unit: "loaf"},
	}
}

func TestNewListResolver(t *testing.T) {
	t.Run("default threshold when zero", func(t *testing.T) {
		r := NewListResolver(0)
		if r.fuzzyThreshold != defaultListFuzzyThreshold {
			t.Errorf("fuzzyThreshold = %v, want %v", r.fuzzyThreshold, defaultListFuzzyThreshold)
		}
	})

	t.Run("keeps provided threshold", func(t *testing.T) {
		r := NewListResolver(0.9)
		if r.fuzzyThreshold != 0.9 {
			t.Errorf("fuzzyThreshold = %v, want 0.9", r.fuzzyThreshold)
		}
	})
}

func TestListResolverResolve(t *testing.T) {
	r := NewListResolver(0)
	items := snapshotItems()

	t.Run("exact normalized name", func(t *testing.T) {
		got := r.Resolve("whole milk", items)
		if got == nil || got.ID != 2 {
			t.Errorf("Resolve(whole milk) = %+v, want item 2", got)
		}
	})

	t.Run("leading article stripped", func(t *testing.T) {
		got := r.Resolve("the bread", items)
		if got == nil || got.ID != 3 {
			t.Errorf("Resolve(the bread) = %+v, want item 3", got)
		}
	})

	t.Run("reference contained in item name", func(t *testing.T) {
		got := r.Resolve("mango", items)
		if got == nil || got.ID != 1 {
			t.Errorf("Resolve(mango) = %+v, want Fresh Mangoes", got)
		}
	})

	t.Run("item name contained in reference", func(t *testing.T) {
		got := r.Resolve("organic whole milk from the store", items)
		if got == nil || got.ID != 2 {
			t.Errorf("Resolve(long reference) = %+v, want item 2", got)
		}
	})

	t.Run("fuzzy match above threshold", func(t *testing.T) {
		got := r.Resolve("fresh mangos", items)
		if got == nil || got.ID != 1 {
			t.Errorf("Resolve(fresh mangos) = %+v, want item 1", got)
		}
	})

	t.Run("no match below threshold", func(t *testing.T) {
		if got := r.Resolve("cilantro", items); got != nil {
			t.Errorf("Resolve(cilantro) = %+v, want nil", got)
		}
	})

	t.Run("empty reference", func(t *testing.T) {
		if got := r.Resolve("", items); got != nil {
			t.Errorf("Resolve(empty) = %+v, want nil", got)
		}
	})

	t.Run("article only reference", func(t *testing.T) {
		if got := r.Resolve("the", items); got != nil {
			t.Errorf("Resolve(the) = %+v, want nil", got)
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		if got := r.Resolve("milk", nil); got != nil {
			t.Errorf("Resolve on empty snapshot = %+v, want nil", got)
		}
	})

	t.Run("containment returns first hit in list order", func(t *testing.T) {
		ordered := []domain.ListItem{
			{ID: 10, Name: "Almond Milk", NameKey: "almond milk"},
			{ID: 11, Name: "Whole Milk", NameKey: "whole milk"},
		}
		got := r.Resolve("milk", ordered)
		if got == nil || got.ID != 10 {
			t.Errorf("Resolve(milk) = %+v, want first hit item 10", got)
		}
	})

	t.Run("raised threshold rejects near miss", func(t *testing.T) {
		strict := NewListResolver(0.95)
		if got := strict.Resolve("fresh mangos", items); got != nil {
			t.Errorf("Resolve(fresh mangos) at 0.95 = %+v, want nil", got)
		}
	})
}
