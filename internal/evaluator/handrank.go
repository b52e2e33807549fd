package evaluator

import "fmt"

// Hand categories, weakest to strongest.
const (
	CategoryHighCard = iota
	CategoryPair
	CategoryTwoPair
	CategoryThreeOfAKind
	CategoryStraight
	CategoryFlush
	CategoryFullHouse
	CategoryFourOfAKind
	CategoryStraightFlush
	CategoryRoyalFlush
)

// HandRank encodes a hand's category and kicker ranks in a single monotonic
// value: category in the top bits, five 4-bit kicker slots below. Any two
// hands compare in O(1); equal values are a tie.
type HandRank uint32

const kickerBits = 20

// NewHandRank packs a category and up to five kicker ranks (most significant
// first). Unused slots stay zero.
func NewHandRank(category int, kickers ...int) HandRank {
	v := uint32(category) << kickerBits
	shift := kickerBits - 4
	for _, k := range kickers {
		v |= uint32(k&0xF) << shift
		shift -= 4
	}
	return HandRank(v)
}

// Category returns the hand category (CategoryHighCard..CategoryRoyalFlush).
func (h HandRank) Category() int {
	return int(h >> kickerBits)
}

// Kicker returns the rank stored in kicker slot i (0 = most significant).
func (h HandRank) Kicker(i int) int {
	shift := kickerBits - 4 - 4*i
	return int(h>>shift) & 0xF
}

// Compare returns 1 if h is stronger, -1 if other is stronger, 0 on a tie.
func (h HandRank) Compare(other HandRank) int {
	if h > other {
		return 1
	}
	if h < other {
		return -1
	}
	return 0
}

// String returns the readable name of the hand category
func (h HandRank) String() string {
	switch h.Category() {
	case CategoryRoyalFlush:
		return "Royal Flush"
	case CategoryStraightFlush:
		return "Straight Flush"
	case CategoryFourOfAKind:
		return "Four of a Kind"
	case CategoryFullHouse:
		return "Full House"
	case CategoryFlush:
		return "Flush"
	case CategoryStraight:
		return "Straight"
	case CategoryThreeOfAKind:
		return "Three of a Kind"
	case CategoryTwoPair:
		return "Two Pair"
	case CategoryPair:
		return "One Pair"
	case CategoryHighCard:
		return "High Card"
	default:
		return fmt.Sprintf("Unknown(%d)", h.Category())
	}
}
