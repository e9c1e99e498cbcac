// Package inventory tracks the decks and cards a single virtual user believes
// it owns.
//
// An Inventory is a local, best-effort approximation of server state. It is
// owned by exactly one virtual user loop and is not safe for concurrent use.
// Iteration order is insertion order so that seeded random selection is
// reproducible.
package inventory

import "math/rand"

type deck struct {
	cards []string
}

func (d *deck) indexOf(cardID string) int {
	for i, id := range d.cards {
		if id == cardID {
			return i
		}
	}
	return -1
}

// Inventory maps deck identifiers to the card identifiers created under them.
type Inventory struct {
	decks map[string]*deck
	order []string
}

// New returns an empty Inventory.
func New() *Inventory {
	return &Inventory{decks: make(map[string]*deck)}
}

// AddDeck records a newly created deck with an empty card set. It returns
// false if the id is empty or already known; a known deck keeps its cards.
func (inv *Inventory) AddDeck(deckID string) bool {
	if deckID == "" {
		return false
	}
	if _, ok := inv.decks[deckID]; ok {
		return false
	}
	inv.decks[deckID] = &deck{}
	inv.order = append(inv.order, deckID)
	return true
}

// EnsureDeck returns the cards recorded for deckID, inserting an empty set
// first if the deck is unknown. created reports whether an insert happened.
func (inv *Inventory) EnsureDeck(deckID string) (cards []string, created bool) {
	created = inv.AddDeck(deckID)
	if d, ok := inv.decks[deckID]; ok {
		cards = append([]string(nil), d.cards...)
	}
	return cards, created
}

// AddCard records cardID under deckID. It returns false, dropping the card,
// when the deck is unknown or the card is already recorded.
func (inv *Inventory) AddCard(deckID, cardID string) bool {
	if cardID == "" {
		return false
	}
	d, ok := inv.decks[deckID]
	if !ok {
		return false
	}
	if d.indexOf(cardID) >= 0 {
		return false
	}
	d.cards = append(d.cards, cardID)
	return true
}

// RemoveCard forgets cardID under deckID.
func (inv *Inventory) RemoveCard(deckID, cardID string) bool {
	d, ok := inv.decks[deckID]
	if !ok {
		return false
	}
	idx := d.indexOf(cardID)
	if idx < 0 {
		return false
	}
	d.cards = append(d.cards[:idx], d.cards[idx+1:]...)
	return true
}

// HasDeck reports whether deckID is known.
func (inv *Inventory) HasDeck(deckID string) bool {
	_, ok := inv.decks[deckID]
	return ok
}

// HasCard reports whether cardID is recorded under deckID.
func (inv *Inventory) HasCard(deckID, cardID string) bool {
	d, ok := inv.decks[deckID]
	return ok && d.indexOf(cardID) >= 0
}

// Decks returns the known deck ids in insertion order.
func (inv *Inventory) Decks() []string {
	return append([]string(nil), inv.order...)
}

// Cards returns the cards recorded under deckID. ok is false when the deck
// is unknown, which is distinct from a known deck with no cards.
func (inv *Inventory) Cards(deckID string) (cards []string, ok bool) {
	d, ok := inv.decks[deckID]
	if !ok {
		return nil, false
	}
	return append([]string(nil), d.cards...), true
}

// DeckCount returns the number of known decks.
func (inv *Inventory) DeckCount() int {
	return len(inv.order)
}

// CardCount returns the number of cards across all decks.
func (inv *Inventory) CardCount() int {
	n := 0
	for _, d := range inv.decks {
		n += len(d.cards)
	}
	return n
}

// RandomDeck picks a known deck uniformly at random.
func (inv *Inventory) RandomDeck(rng *rand.Rand) (string, bool) {
	if len(inv.order) == 0 {
		return "", false
	}
	return inv.order[rng.Intn(len(inv.order))], true
}

// RandomCard picks a (deck, card) pair uniformly among all recorded cards,
// so the returned card always belongs to the returned deck.
func (inv *Inventory) RandomCard(rng *rand.Rand) (deckID, cardID string, ok bool) {
	total := inv.CardCount()
	if total == 0 {
		return "", "", false
	}
	n := rng.Intn(total)
	for _, id := range inv.order {
		d := inv.decks[id]
		if n < len(d.cards) {
			return id, d.cards[n], true
		}
		n -= len(d.cards)
	}
	return "", "", false
}
