// Package evaluator ranks 5-7 card poker hands and estimates equity via
// Monte-Carlo simulation.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/pokeriq/gtocore/internal/deck"
)

// ValidationError reports input that violates a structural invariant. It is
// rejected before any work begins and is never retried internally.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Evaluate returns the best 5-card HandRank achievable from 5-7 cards by
// enumerating every C(n,5) combination and keeping the maximum.
func Evaluate(cards []deck.Card) (HandRank, error) {
	n := len(cards)
	if n < 5 || n > 7 {
		return 0, Validationf("evaluate requires 5-7 cards, got %d", n)
	}

	var seen deck.CardSet
	for _, c := range cards {
		if seen.Contains(c) {
			return 0, Validationf("duplicate card %s", c)
		}
		seen.Add(c)
	}

	best := HandRank(0)
	var combo [5]deck.Card
	for i := 0; i < n-4; i++ {
		for j := i + 1; j < n-3; j++ {
			for k := j + 1; k < n-2; k++ {
				for l := k + 1; l < n-1; l++ {
					for m := l + 1; m < n; m++ {
						combo[0], combo[1], combo[2], combo[3], combo[4] =
							cards[i], cards[j], cards[k], cards[l], cards[m]
						if rank := evaluate5(combo); rank > best {
							best = rank
						}
					}
				}
			}
		}
	}
	return best, nil
}

// MustEvaluate is Evaluate for inputs already known to be valid (solver
// internals); it panics on error.
func MustEvaluate(cards []deck.Card) HandRank {
	rank, err := Evaluate(cards)
	if err != nil {
		panic(err)
	}
	return rank
}

// evaluate5 ranks exactly five cards.
func evaluate5(cards [5]deck.Card) HandRank {
	ranks := make([]int, 5)
	flush := true
	for i, c := range cards {
		ranks[i] = int(c.Rank)
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	straightHigh := straightHighCard(ranks)

	if flush && straightHigh > 0 {
		if straightHigh == int(deck.Ace) {
			return NewHandRank(CategoryRoyalFlush, straightHigh)
		}
		return NewHandRank(CategoryStraightFlush, straightHigh)
	}

	// Group ranks by multiplicity, strongest group first.
	counts := map[int]int{}
	for _, r := range ranks {
		counts[r]++
	}
	type group struct{ rank, count int }
	groups := make([]group, 0, 5)
	for r, c := range counts {
		groups = append(groups, group{rank: r, count: c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	switch {
	case groups[0].count == 4:
		return NewHandRank(CategoryFourOfAKind, groups[0].rank, groups[1].rank)
	case groups[0].count == 3 && groups[1].count == 2:
		return NewHandRank(CategoryFullHouse, groups[0].rank, groups[1].rank)
	case flush:
		return NewHandRank(CategoryFlush, ranks[0], ranks[1], ranks[2], ranks[3], ranks[4])
	case straightHigh > 0:
		return NewHandRank(CategoryStraight, straightHigh)
	case groups[0].count == 3:
		return NewHandRank(CategoryThreeOfAKind, groups[0].rank, groups[1].rank, groups[2].rank)
	case groups[0].count == 2 && groups[1].count == 2:
		return NewHandRank(CategoryTwoPair, groups[0].rank, groups[1].rank, groups[2].rank)
	case groups[0].count == 2:
		return NewHandRank(CategoryPair, groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank)
	default:
		return NewHandRank(CategoryHighCard, ranks[0], ranks[1], ranks[2], ranks[3], ranks[4])
	}
}

// straightHighCard returns the high card of a straight formed by the five
// distinct ranks (sorted descending), 5 for the wheel, or 0 if none.
func straightHighCard(sorted []int) int {
	for i := 1; i < 5; i++ {
		if sorted[i] == sorted[i-1] {
			return 0
		}
	}
	if sorted[0]-sorted[4] == 4 {
		return sorted[0]
	}
	// Wheel: A-5-4-3-2 sorts as [14 5 4 3 2].
	if sorted[0] == int(deck.Ace) && sorted[1] == int(deck.Five) && sorted[1]-sorted[4] == 3 {
		return int(deck.Five)
	}
	return 0
}
