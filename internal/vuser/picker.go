package vuser

import (
	"errors"
	"math/rand"
	"sort"
)

// ErrNoWeight is returned when no item has a positive weight.
var ErrNoWeight = errors.New("no item has a positive weight")

// Picker draws items with probability weight / total weight. Items with a
// non-positive weight are never drawn. A Picker is immutable; the caller
// supplies the random source.
type Picker[T any] struct {
	items      []T
	cumulative []int
	total      int
}

// NewPicker builds a Picker over items using weight to read each item's weight.
func NewPicker[T any](items []T, weight func(T) int) (*Picker[T], error) {
	p := &Picker[T]{}
	for _, item := range items {
		w := weight(item)
		if w <= 0 {
			continue
		}
		p.total += w
		p.items = append(p.items, item)
		p.cumulative = append(p.cumulative, p.total)
	}
	if p.total == 0 {
		return nil, ErrNoWeight
	}
	return p, nil
}

// Pick draws one item.
func (p *Picker[T]) Pick(rng *rand.Rand) (T, bool) {
	var zero T
	if p == nil || p.total == 0 {
		return zero, false
	}
	n := rng.Intn(p.total)
	idx := sort.Search(len(p.cumulative), func(i int) bool { return p.cumulative[i] > n })
	return p.items[idx], true
}

// Len returns the number of drawable items.
func (p *Picker[T]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}
