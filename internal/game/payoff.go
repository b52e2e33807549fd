package game

import (
	"github.com/pokeriq/gtocore/internal/deck"
	"github.com/pokeriq/gtocore/internal/evaluator"
)

// IsTerminal reports whether the hand is over: one player left, showdown
// reached, or every remaining player all-in with the board run out.
func (s GameState) IsTerminal() bool {
	return s.Terminal
}

// Payoffs computes each player's net chip result for a terminal state. If one
// player remains uncalled they win pot minus their own investment and every
// other player loses what they invested. At showdown the best hands split the
// pot equally (odd chips go to the earliest winning seats) and non-winners
// lose their investment.
//
// The returned vector always sums to exactly zero: chips are conserved.
func (s GameState) Payoffs() ([]int, error) {
	if !s.Terminal {
		return nil, evaluator.Validationf("payoffs are only defined for terminal states")
	}

	payoffs := make([]int, len(s.Players))

	winners, err := s.winners()
	if err != nil {
		return nil, err
	}

	share := s.Pot / len(winners)
	remainder := s.Pot % len(winners)
	won := make(map[int]int, len(winners))
	for i, seat := range winners {
		won[seat] = share
		if i < remainder {
			won[seat]++
		}
	}

	for i, p := range s.Players {
		payoffs[i] = won[p.Seat] - p.Invested
	}
	return payoffs, nil
}

// winners returns the seats entitled to the pot, earliest seat first.
func (s GameState) winners() ([]int, error) {
	contenders := make([]int, 0, len(s.Players))
	for i, p := range s.Players {
		if !p.Folded {
			contenders = append(contenders, i)
		}
	}
	if len(contenders) == 0 {
		return nil, evaluator.Validationf("terminal state has no remaining players")
	}
	if len(contenders) == 1 {
		return contenders, nil
	}

	if len(s.Board) != 5 {
		return nil, evaluator.Validationf("showdown requires a complete board, have %d cards", len(s.Board))
	}

	best := evaluator.HandRank(0)
	var winners []int
	hand := make([]deck.Card, 7)
	copy(hand[2:], s.Board)
	for _, seat := range contenders {
		if len(s.Players[seat].Hole) != 2 {
			return nil, evaluator.Validationf("seat %d reached showdown without hole cards", seat)
		}
		copy(hand[:2], s.Players[seat].Hole)
		rank, err := evaluator.Evaluate(hand)
		if err != nil {
			return nil, err
		}
		switch rank.Compare(best) {
		case 1:
			best = rank
			winners = winners[:0]
			winners = append(winners, seat)
		case 0:
			winners = append(winners, seat)
		}
	}
	return winners, nil
}

// PotOdds returns the break-even equity for the acting player's call:
// toCall / (pot + toCall). Zero when nothing is owed.
func (s GameState) PotOdds() float64 {
	if s.ToAct < 0 {
		return 0
	}
	toCall := s.CurrentBet - s.Players[s.ToAct].StreetBet
	if toCall <= 0 {
		return 0
	}
	return float64(toCall) / float64(s.Pot+toCall)
}
