package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pokeriq/gtocore/internal/deck"
)

// InfoSetKey builds the opaque key identifying everything the acting player
// can observe: street, own hole cards, board, position, bucketed pot size, an
// abstracted action-history signature, and relative position among the
// players still in the hand. Two states that are indistinguishable to the
// actor produce the same key and therefore share one strategy accumulator.
func (s GameState) InfoSetKey(abs Abstraction) string {
	if s.ToAct < 0 {
		return ""
	}
	p := s.Players[s.ToAct]

	var b strings.Builder
	b.WriteString(s.Street.String())
	b.WriteByte('|')
	b.WriteString(canonicalCards(p.Hole))
	b.WriteByte('|')
	b.WriteString(canonicalCards(s.Board))
	b.WriteByte('|')
	b.WriteString(p.Position)
	b.WriteByte('|')
	fmt.Fprintf(&b, "p%d", potBucket(s.Pot, s.BigBlind, abs.PotBuckets))
	b.WriteByte('|')
	b.WriteString(s.historySignature(abs.BetSizeBuckets))
	b.WriteByte('|')
	b.WriteString(s.relativePosition())
	return b.String()
}

// canonicalCards sorts cards so permuted inputs collapse to one key.
func canonicalCards(cards []deck.Card) string {
	sorted := append([]deck.Card(nil), cards...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank > sorted[j].Rank
		}
		return sorted[i].Suit < sorted[j].Suit
	})
	return deck.FormatCards(sorted)
}

// potBucket maps a pot size in big blinds onto the configured boundaries.
func potBucket(pot, bigBlind int, boundaries []int) int {
	if bigBlind <= 0 {
		bigBlind = 1
	}
	bb := pot / bigBlind
	for i, boundary := range boundaries {
		if bb <= boundary {
			return i
		}
	}
	return len(boundaries)
}

// historySignature compresses the action history into one character per
// action, with aggressive actions tagged by bet-size class (small, medium,
// pot, overbet) relative to the pot they were made into.
func (s GameState) historySignature(buckets []float64) string {
	if len(s.History) == 0 {
		return "-"
	}

	// Reconstruct the pot before each action from the suffix of amounts.
	potBefore := make([]int, len(s.History))
	pot := s.Pot
	for i := len(s.History) - 1; i >= 0; i-- {
		pot -= s.History[i].Amount
		potBefore[i] = pot
	}

	var b strings.Builder
	for i, a := range s.History {
		switch a.Type {
		case Fold:
			b.WriteByte('f')
		case Check:
			b.WriteByte('x')
		case Call:
			b.WriteByte('c')
		case Bet, Raise, AllIn:
			b.WriteByte(betSizeClass(a.Amount, potBefore[i], buckets))
		}
	}
	return b.String()
}

// betSizeClass buckets an aggressive action by its pot ratio. The boundary
// list is configuration; with the defaults the classes read small ('s'),
// medium ('m'), pot ('p'), overbet ('o').
func betSizeClass(amount, potBefore int, buckets []float64) byte {
	classes := [...]byte{'s', 'm', 'p', 'o'}
	if potBefore <= 0 {
		return classes[len(classes)-1]
	}
	ratio := float64(amount) / float64(potBefore)
	for i, boundary := range buckets {
		if ratio <= boundary && i < len(classes) {
			return classes[i]
		}
	}
	return classes[len(classes)-1]
}

// relativePosition encodes where the actor sits among the players still in
// the hand, e.g. "2/3" for the second of three remaining.
func (s GameState) relativePosition() string {
	order := 0
	total := 0
	for i, p := range s.Players {
		if p.Folded {
			continue
		}
		total++
		if i <= s.ToAct {
			order++
		}
	}
	return fmt.Sprintf("%d/%d", order, total)
}

// StateKey identifies the exact concrete state (as opposed to the information
// set): the full action history plus board. Solver node memoization keys on
// this so distinct states never share a node even when they share an infoset.
func (s GameState) StateKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s:", s.Street, deck.FormatCards(s.Board))
	for _, a := range s.History {
		b.WriteString(a.Signature())
		b.WriteByte('.')
	}
	return b.String()
}
