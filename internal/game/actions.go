package game

import (
	"math"
	"sort"

	"github.com/pokeriq/gtocore/internal/deck"
	"github.com/pokeriq/gtocore/internal/evaluator"
)

// Abstraction holds the hand-tuned granularity knobs for the action and
// information-set abstraction. Treat these as configuration: solution quality
// is sensitive to them and they were tuned empirically.
type Abstraction struct {
	// BetSizes is the pot-fraction grid bets and raises are drawn from.
	BetSizes []float64

	// BetSizeBuckets are the pot-ratio boundaries separating the
	// small/medium/pot/overbet classes in history signatures.
	BetSizeBuckets []float64

	// PotBuckets are pot-size boundaries in big blinds for info-set keys.
	PotBuckets []int

	// MaxRaisesPerStreet caps how many bets and raises the grid exposes on
	// one street; all-in stays available past the cap. Zero means no cap.
	// Without a cap deep stacks make the betting tree intractable.
	MaxRaisesPerStreet int
}

// DefaultAbstraction returns the tuned default granularity.
func DefaultAbstraction() Abstraction {
	return Abstraction{
		BetSizes:           []float64{0.33, 0.5, 0.67, 1.0},
		BetSizeBuckets:     []float64{0.4, 0.8, 1.2},
		PotBuckets:         []int{2, 4, 8, 16, 32},
		MaxRaisesPerStreet: 3,
	}
}

// Validate ensures the abstraction is well-formed before solving begins.
func (a Abstraction) Validate() error {
	if len(a.BetSizes) == 0 {
		return evaluator.Validationf("at least one bet size fraction is required")
	}
	last := 0.0
	for i, v := range a.BetSizes {
		if v <= last {
			return evaluator.Validationf("bet sizes[%d] must be strictly increasing and positive", i)
		}
		last = v
	}
	last = 0.0
	for i, v := range a.BetSizeBuckets {
		if v <= last {
			return evaluator.Validationf("bet size buckets[%d] must be strictly increasing and positive", i)
		}
		last = v
	}
	lastPot := 0
	for i, v := range a.PotBuckets {
		if v <= lastPot {
			return evaluator.Validationf("pot buckets[%d] must be strictly increasing and positive", i)
		}
		lastPot = v
	}
	if a.MaxRaisesPerStreet < 0 {
		return evaluator.Validationf("max raises per street cannot be negative")
	}
	return nil
}

// LegalActions enumerates the actions available to the acting player. Fold is
// offered only when a call is owed; check only when nothing is owed; call and
// all-in are bounded by the stack; bet and raise amounts come from the
// pot-fraction grid clipped to [min-raise, stack].
func (s GameState) LegalActions(abs Abstraction) []Action {
	if s.Terminal || s.ToAct < 0 {
		return nil
	}
	p := s.Players[s.ToAct]
	toCall := s.CurrentBet - p.StreetBet

	actions := make([]Action, 0, 3+len(abs.BetSizes))

	if toCall > 0 {
		actions = append(actions, Action{Type: Fold, Player: p.Seat})
		if toCall >= p.Stack {
			// Short call: the whole stack goes in.
			return append(actions, Action{Type: AllIn, Amount: p.Stack, Player: p.Seat})
		}
		actions = append(actions, Action{Type: Call, Amount: toCall, Player: p.Seat})
	} else {
		actions = append(actions, Action{Type: Check, Player: p.Seat})
	}

	// Raise sizes from the pot-fraction grid, deduplicated, capped below a
	// full shove which is always offered separately. Past the per-street
	// raise cap only the shove remains.
	if abs.MaxRaisesPerStreet > 0 && s.streetRaises >= abs.MaxRaisesPerStreet {
		return append(actions, Action{Type: AllIn, Amount: p.Stack, Player: p.Seat})
	}
	aggType := Raise
	if s.CurrentBet == 0 {
		aggType = Bet
	}
	amounts := make([]int, 0, len(abs.BetSizes))
	seen := make(map[int]struct{}, len(abs.BetSizes))
	for _, fraction := range abs.BetSizes {
		raiseBy := int(math.Round(float64(s.Pot) * fraction))
		if raiseBy < s.MinRaise {
			raiseBy = s.MinRaise
		}
		amount := toCall + raiseBy
		if amount >= p.Stack {
			continue
		}
		if _, dup := seen[amount]; dup {
			continue
		}
		seen[amount] = struct{}{}
		amounts = append(amounts, amount)
	}
	sort.Ints(amounts)
	for _, amount := range amounts {
		actions = append(actions, Action{Type: aggType, Amount: amount, Player: p.Seat})
	}

	actions = append(actions, Action{Type: AllIn, Amount: p.Stack, Player: p.Seat})
	return actions
}

// Apply executes an action and returns the successor state; the receiver is
// never mutated. Illegal actions return a ValidationError.
func (s GameState) Apply(a Action) (GameState, error) {
	if s.Terminal {
		return GameState{}, evaluator.Validationf("no actions are legal in a terminal state")
	}
	if s.ToAct < 0 {
		return GameState{}, evaluator.Validationf("no decision pending: %d community cards must be dealt", s.PendingCards())
	}
	if a.Player != s.ToAct {
		return GameState{}, evaluator.Validationf("action by seat %d but seat %d is to act", a.Player, s.ToAct)
	}

	next := s.clone()
	p := &next.Players[next.ToAct]
	toCall := next.CurrentBet - p.StreetBet

	switch a.Type {
	case Fold:
		if toCall <= 0 {
			return GameState{}, evaluator.Validationf("cannot fold when no call is owed")
		}
		p.Folded = true

	case Check:
		if toCall != 0 {
			return GameState{}, evaluator.Validationf("cannot check facing a bet of %d", toCall)
		}

	case Call:
		if toCall <= 0 {
			return GameState{}, evaluator.Validationf("nothing to call")
		}
		if a.Amount != toCall {
			return GameState{}, evaluator.Validationf("call must be exactly %d, got %d", toCall, a.Amount)
		}
		next.commit(p, a.Amount)

	case Bet, Raise:
		if a.Amount <= toCall {
			return GameState{}, evaluator.Validationf("%s of %d does not exceed the %d owed", a.Type, a.Amount, toCall)
		}
		if a.Amount >= p.Stack {
			return GameState{}, evaluator.Validationf("%s of %d must be all-in", a.Type, a.Amount)
		}
		raiseBy := a.Amount - toCall
		if raiseBy < next.MinRaise {
			return GameState{}, evaluator.Validationf("raise of %d is below the minimum raise %d", raiseBy, next.MinRaise)
		}
		next.commit(p, a.Amount)
		next.MinRaise = p.StreetBet - next.CurrentBet
		next.CurrentBet = p.StreetBet
		next.streetRaises++

	case AllIn:
		if p.Stack <= 0 {
			return GameState{}, evaluator.Validationf("cannot go all-in with an empty stack")
		}
		if a.Amount != p.Stack {
			return GameState{}, evaluator.Validationf("all-in must commit the full stack %d, got %d", p.Stack, a.Amount)
		}
		next.commit(p, a.Amount)
		if p.StreetBet > next.CurrentBet {
			// A short all-in raise does not reopen betting below min-raise;
			// larger shoves reset it.
			if raiseBy := p.StreetBet - next.CurrentBet; raiseBy >= next.MinRaise {
				next.MinRaise = raiseBy
			}
			next.CurrentBet = p.StreetBet
			next.streetRaises++
		}

	default:
		return GameState{}, evaluator.Validationf("unknown action type %d", a.Type)
	}

	next.acted |= 1 << next.ToAct
	next.History = append(next.History, a)
	next.advance()
	return next, nil
}

// commit moves chips from the player's stack into the pot.
func (s *GameState) commit(p *PlayerState, amount int) {
	p.Stack -= amount
	p.Invested += amount
	p.StreetBet += amount
	s.Pot += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}

// advance moves the action pointer or closes the betting round.
func (s *GameState) advance() {
	if s.activeCount() <= 1 {
		s.Terminal = true
		s.ToAct = -1
		return
	}

	if !s.roundClosed() {
		s.ToAct = s.nextBettor(s.ToAct)
		if s.ToAct >= 0 {
			return
		}
	}
	s.rollStreet()
}

// roundClosed reports whether every player able to act has matched the
// current bet and had their turn. A lone bettor who has matched is done even
// without acting: everyone else is all-in and cannot respond.
func (s *GameState) roundClosed() bool {
	for i, p := range s.Players {
		if p.Folded || p.AllIn {
			continue
		}
		if p.StreetBet != s.CurrentBet {
			return false
		}
		if s.acted&(1<<i) == 0 && s.bettorCount() > 1 {
			return false
		}
	}
	return true
}

// nextBettor returns the next seat after `from` still able to act, or -1.
func (s *GameState) nextBettor(from int) int {
	n := len(s.Players)
	for i := 1; i <= n; i++ {
		seat := (from + i) % n
		p := s.Players[seat]
		if !p.Folded && !p.AllIn {
			return seat
		}
	}
	return -1
}

// rollStreet closes the betting round and moves to the next street. Community
// cards are NOT dealt here: dealing is a chance event owned by the caller
// (the solver samples it; live play draws from a deck).
func (s *GameState) rollStreet() {
	if s.Street == River {
		s.Street = Showdown
		s.Terminal = true
		s.ToAct = -1
		return
	}

	s.Street++
	s.CurrentBet = 0
	s.MinRaise = s.BigBlind
	s.acted = 0
	s.streetRaises = 0
	for i := range s.Players {
		s.Players[i].StreetBet = 0
	}
	s.ToAct = -1 // pending community cards
}

// Deal appends community cards for the pending street and re-opens betting.
// When no player can act (all-in runout), it keeps rolling streets until
// showdown.
func (s GameState) Deal(cards []deck.Card) (GameState, error) {
	pending := s.PendingCards()
	if pending == 0 {
		return GameState{}, evaluator.Validationf("no community cards are pending on %s", s.Street)
	}
	if len(cards) != pending {
		return GameState{}, evaluator.Validationf("street %s needs %d cards, got %d", s.Street, pending, len(cards))
	}

	next := s.clone()
	var used deck.CardSet
	for _, c := range next.VisibleCards() {
		used.Add(c)
	}
	for _, c := range cards {
		if used.Contains(c) {
			return GameState{}, evaluator.Validationf("card %s is already visible", c)
		}
		used.Add(c)
		next.Board = append(next.Board, c)
	}

	if next.bettorCount() >= 2 {
		next.ToAct = next.firstToActPostflop()
		return next, nil
	}

	// Runout: nobody can bet, keep advancing.
	next.rollStreet()
	return next, nil
}

// firstToActPostflop returns the first seat to act after a deal: the small
// blind for multiway pots, the big blind heads-up.
func (s GameState) firstToActPostflop() int {
	start := 0
	if len(s.Players) == 2 {
		start = 1
	}
	n := len(s.Players)
	for i := 0; i < n; i++ {
		seat := (start + i) % n
		p := s.Players[seat]
		if !p.Folded && !p.AllIn {
			return seat
		}
	}
	return -1
}
