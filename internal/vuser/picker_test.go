package vuser

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

type weighted struct {
	name   string
	weight int
}

func TestPickerConvergesToWeights(t *testing.T) {
	items := []weighted{{"a", 10}, {"b", 5}, {"c", 4}, {"d", 1}}
	p, err := NewPicker(items, func(w weighted) int { return w.weight })
	if err != nil {
		t.Fatalf("NewPicker: %v", err)
	}

	const draws = 100000
	rng := rand.New(rand.NewSource(7))
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		item, ok := p.Pick(rng)
		if !ok {
			t.Fatal("Pick returned no item")
		}
		counts[item.name]++
	}

	for _, item := range items {
		want := float64(item.weight) / 20
		got := float64(counts[item.name]) / draws
		if math.Abs(got-want) > 0.02 {
			t.Errorf("%s: frequency %.4f, want %.4f ± 0.02", item.name, got, want)
		}
	}
}

func TestPickerSkipsNonPositiveWeights(t *testing.T) {
	items := []weighted{{"zero", 0}, {"neg", -3}, {"only", 2}}
	p, err := NewPicker(items, func(w weighted) int { return w.weight })
	if err != nil {
		t.Fatalf("NewPicker: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		if item, _ := p.Pick(rng); item.name != "only" {
			t.Fatalf("picked %q", item.name)
		}
	}
}

func TestPickerRequiresPositiveTotal(t *testing.T) {
	_, err := NewPicker([]weighted{{"a", 0}}, func(w weighted) int { return w.weight })
	if !errors.Is(err, ErrNoWeight) {
		t.Fatalf("expected ErrNoWeight, got %v", err)
	}
	_, err = NewPicker(nil, func(w weighted) int { return w.weight })
	if !errors.Is(err, ErrNoWeight) {
		t.Fatalf("expected ErrNoWeight for no items, got %v", err)
	}
}

func TestNilPickerPicksNothing(t *testing.T) {
	var p *Picker[weighted]
	if _, ok := p.Pick(rand.New(rand.NewSource(1))); ok {
		t.Fatal("nil picker returned an item")
	}
	if p.Len() != 0 {
		t.Fatal("nil picker has items")
	}
}
