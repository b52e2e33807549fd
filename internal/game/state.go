// Package game models No-Limit Texas Hold'em betting states: legal actions,
// immutable state transitions, terminal detection, and payoffs.
package game

import (
	"fmt"

	"github.com/pokeriq/gtocore/internal/deck"
	"github.com/pokeriq/gtocore/internal/evaluator"
)

// Street represents the betting round
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	return [...]string{"preflop", "flop", "turn", "river", "showdown"}[s]
}

// BoardCards returns how many community cards belong to this street.
func (s Street) BoardCards() int {
	return [...]int{0, 3, 4, 5, 5}[s]
}

// ActionType is the kind of player action.
type ActionType int

const (
	Fold ActionType = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a ActionType) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "allin"}[a]
}

// Action is one player action. Amount is the number of chips the action adds
// to the pot (zero for fold and check).
type Action struct {
	Type   ActionType
	Amount int
	Player int
}

// Signature returns a compact stable identifier for the action, used to key
// child nodes in the solver.
func (a Action) Signature() string {
	switch a.Type {
	case Fold:
		return "f"
	case Check:
		return "x"
	case Call:
		return "c"
	case Bet:
		return fmt.Sprintf("b%d", a.Amount)
	case Raise:
		return fmt.Sprintf("r%d", a.Amount)
	case AllIn:
		return "a"
	default:
		return "?"
	}
}

func (a Action) String() string {
	if a.Amount > 0 {
		return fmt.Sprintf("%s %d", a.Type, a.Amount)
	}
	return a.Type.String()
}

// PlayerState is one player's view within a hand.
//
// Invariants: Stack >= 0 always; Invested is monotonically non-decreasing
// within a hand.
type PlayerState struct {
	Seat      int
	Position  string
	Stack     int
	Invested  int // total chips committed this hand
	StreetBet int // chips committed this street
	Hole      []deck.Card
	Folded    bool
	AllIn     bool
}

// GameState is an immutable snapshot of a hand in progress. Transitions go
// through Apply and Deal, which return fresh copies.
//
// Invariant: Pot == sum of all Invested at every non-terminal point. Once
// Terminal, no further actions are legal.
type GameState struct {
	Street       Street
	Pot          int
	Board        []deck.Card
	Players      []PlayerState
	ToAct        int // -1 when no decision is pending (chance node or terminal)
	History      []Action
	Terminal     bool
	CurrentBet   int // highest StreetBet this street
	MinRaise     int // minimum raise-by amount
	BigBlind     int
	acted        uint32 // seats that have acted this street
	streetRaises int    // bets and raises made this street
}

// PositionLabels assigns standard position names for n seats, small blind
// first.
func PositionLabels(n int) []string {
	full := []string{"SB", "BB", "UTG", "MP", "CO", "BTN"}
	if n <= len(full) {
		return full[:n]
	}
	labels := make([]string, n)
	copy(labels, full)
	for i := len(full); i < n; i++ {
		labels[i] = fmt.Sprintf("MP%d", i-len(full)+2)
	}
	return labels
}

// NewHand starts a fresh preflop hand: blinds posted, seat 0 = small blind,
// seat 1 = big blind, first actor after the big blind (small blind heads-up).
func NewHand(smallBlind, bigBlind int, stacks []int, holes [][]deck.Card) (GameState, error) {
	n := len(stacks)
	if n < 2 {
		return GameState{}, evaluator.Validationf("a hand requires at least 2 players, got %d", n)
	}
	if len(holes) != n {
		return GameState{}, evaluator.Validationf("hole card count %d does not match %d players", len(holes), n)
	}
	if smallBlind <= 0 || bigBlind <= smallBlind {
		return GameState{}, evaluator.Validationf("blinds must satisfy 0 < small < big, got %d/%d", smallBlind, bigBlind)
	}

	labels := PositionLabels(n)
	players := make([]PlayerState, n)
	for i := range players {
		if stacks[i] <= 0 {
			return GameState{}, evaluator.Validationf("seat %d stack must be positive, got %d", i, stacks[i])
		}
		if len(holes[i]) != 2 {
			return GameState{}, evaluator.Validationf("seat %d must hold exactly 2 cards, got %d", i, len(holes[i]))
		}
		players[i] = PlayerState{
			Seat:     i,
			Position: labels[i],
			Stack:    stacks[i],
			Hole:     append([]deck.Card(nil), holes[i]...),
		}
	}

	s := GameState{
		Street:   Preflop,
		Players:  players,
		MinRaise: bigBlind,
		BigBlind: bigBlind,
	}

	s.post(0, min(smallBlind, players[0].Stack))
	s.post(1, min(bigBlind, players[1].Stack))
	s.CurrentBet = s.Players[1].StreetBet

	if n == 2 {
		s.ToAct = 0
	} else {
		s.ToAct = 2
	}
	if err := s.Validate(); err != nil {
		return GameState{}, err
	}
	return s, nil
}

// post commits blind chips without recording an action.
func (s *GameState) post(seat, amount int) {
	p := &s.Players[seat]
	p.Stack -= amount
	p.Invested += amount
	p.StreetBet += amount
	s.Pot += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}

// Validate enforces the structural invariants of the state. It fails fast
// with a ValidationError before any solve work is attempted on bad input.
func (s GameState) Validate() error {
	if len(s.Players) < 2 {
		return evaluator.Validationf("state requires at least 2 players, got %d", len(s.Players))
	}
	if s.BigBlind <= 0 {
		return evaluator.Validationf("big blind must be positive, got %d", s.BigBlind)
	}

	invested := 0
	var seen deck.CardSet
	for i, p := range s.Players {
		if p.Stack < 0 {
			return evaluator.Validationf("seat %d has negative stack %d", i, p.Stack)
		}
		if p.Invested < 0 {
			return evaluator.Validationf("seat %d has negative invested %d", i, p.Invested)
		}
		if len(p.Hole) != 0 && len(p.Hole) != 2 {
			return evaluator.Validationf("seat %d must hold 0 or 2 cards, got %d", i, len(p.Hole))
		}
		for _, c := range p.Hole {
			if seen.Contains(c) {
				return evaluator.Validationf("duplicate card %s", c)
			}
			seen.Add(c)
		}
		invested += p.Invested
	}
	for _, c := range s.Board {
		if seen.Contains(c) {
			return evaluator.Validationf("duplicate card %s", c)
		}
		seen.Add(c)
	}

	if s.Pot != invested {
		return evaluator.Validationf("pot %d does not equal total invested %d", s.Pot, invested)
	}
	if len(s.Board) > s.Street.BoardCards() {
		return evaluator.Validationf("board has %d cards but street %s allows %d", len(s.Board), s.Street, s.Street.BoardCards())
	}
	if !s.Terminal && s.ToAct >= 0 {
		if s.ToAct >= len(s.Players) {
			return evaluator.Validationf("acting player %d out of range", s.ToAct)
		}
		p := s.Players[s.ToAct]
		if p.Folded || p.AllIn {
			return evaluator.Validationf("acting player %d cannot act (folded=%v allin=%v)", s.ToAct, p.Folded, p.AllIn)
		}
	}
	return nil
}

// clone deep-copies the mutable slices so transitions never alias.
func (s GameState) clone() GameState {
	next := s
	next.Board = append([]deck.Card(nil), s.Board...)
	next.Players = make([]PlayerState, len(s.Players))
	for i, p := range s.Players {
		next.Players[i] = p
		next.Players[i].Hole = append([]deck.Card(nil), p.Hole...)
	}
	next.History = append([]Action(nil), s.History...)
	return next
}

// PendingCards reports how many community cards must be dealt before the
// current street is complete. A positive value marks a chance node.
func (s GameState) PendingCards() int {
	if s.Terminal {
		return 0
	}
	return s.Street.BoardCards() - len(s.Board)
}

// VisibleCards returns every card on the board plus all hole cards, for
// excluding from chance-node deals.
func (s GameState) VisibleCards() []deck.Card {
	cards := append([]deck.Card(nil), s.Board...)
	for _, p := range s.Players {
		cards = append(cards, p.Hole...)
	}
	return cards
}

// activeCount counts non-folded players.
func (s GameState) activeCount() int {
	n := 0
	for _, p := range s.Players {
		if !p.Folded {
			n++
		}
	}
	return n
}

// bettorCount counts players still able to put chips in.
func (s GameState) bettorCount() int {
	n := 0
	for _, p := range s.Players {
		if !p.Folded && !p.AllIn {
			n++
		}
	}
	return n
}
