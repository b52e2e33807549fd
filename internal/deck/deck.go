package deck

import rand "math/rand/v2"

// Deck is a drawable set of cards. It is not safe for concurrent use; each
// solve traversal owns its own deck.
type Deck struct {
	cards []Card
	next  int
}

// New returns a full 52-card deck in fixed order.
func New() *Deck {
	return &Deck{cards: AllCards()}
}

// NewWithout returns a deck missing the given cards, in fixed order.
func NewWithout(excluded []Card) *Deck {
	return &Deck{cards: Remaining(NewCardSet(excluded))}
}

// Shuffle randomizes the undrawn portion of the deck.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rest := d.cards[d.next:]
	rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
}

// Draw removes and returns the next n cards. It panics if the deck is
// exhausted; callers size their deals against Len.
func (d *Deck) Draw(n int) []Card {
	if d.next+n > len(d.cards) {
		panic("deck: draw past end of deck")
	}
	out := d.cards[d.next : d.next+n]
	d.next += n
	return out
}

// Len returns the number of undrawn cards.
func (d *Deck) Len() int {
	return len(d.cards) - d.next
}
