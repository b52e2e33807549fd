package solver

import (
	rand "math/rand/v2"

	"github.com/pokeriq/gtocore/internal/game"
)

// measureExploitability estimates how far the current average strategy is
// from equilibrium: for each seat, the value a best responder earns against
// everyone else's average strategy, summed and normalised to big blinds per
// hand. At equilibrium the player values sum to zero, so the estimate tends
// to zero as the strategy converges. Chance nodes are sampled, so this is a
// Monte-Carlo estimate, averaged over the configured sample count.
func (s *Solver) measureExploitability(root game.GameState) float64 {
	total := 0.0
	for seat := range root.Players {
		sum := 0.0
		for i := 0; i < s.cfg.ExploitabilitySamples; i++ {
			sum += s.bestResponse(root, seat, s.brRNG)
		}
		total += sum / float64(s.cfg.ExploitabilitySamples)
	}

	perHand := total / float64(len(root.Players))
	if perHand < 0 {
		// Sampling noise; true exploitability is non-negative.
		perHand = 0
	}
	if root.BigBlind > 0 {
		perHand /= float64(root.BigBlind)
	}
	return perHand
}

// bestResponse returns the payoff seat br earns by playing maximally
// exploitatively while every other seat follows its average strategy.
// Information sets never reached during training fall back to uniform.
func (s *Solver) bestResponse(st game.GameState, br int, rng *rand.Rand) float64 {
	if st.IsTerminal() {
		payoffs, err := st.Payoffs()
		if err != nil {
			return 0
		}
		return float64(payoffs[br])
	}

	if pending := st.PendingCards(); pending > 0 {
		next, err := s.sampleDeal(st, pending, rng)
		if err != nil {
			return 0
		}
		return s.bestResponse(next, br, rng)
	}

	player := st.ToAct
	actions := st.LegalActions(s.cfg.Abstraction)

	if player == br {
		best := 0.0
		evaluated := false
		for _, a := range actions {
			child, err := st.Apply(a)
			if err != nil {
				continue
			}
			v := s.bestResponse(child, br, rng)
			if !evaluated || v > best {
				best = v
				evaluated = true
			}
		}
		return best
	}

	strat := s.averageStrategyFor(st, actions)
	value := 0.0
	for i, a := range actions {
		if strat[i] == 0 {
			continue
		}
		child, err := st.Apply(a)
		if err != nil {
			continue
		}
		value += strat[i] * s.bestResponse(child, br, rng)
	}
	return value
}

// averageStrategyFor looks up the trained average strategy for the acting
// player's information set, uniform when the set was never visited.
func (s *Solver) averageStrategyFor(st game.GameState, actions []game.Action) []float64 {
	if entry, ok := s.infosets.Lookup(st.InfoSetKey(s.cfg.Abstraction)); ok {
		avg := entry.AverageStrategy()
		if len(avg) == len(actions) {
			return avg
		}
	}
	uniform := make([]float64, len(actions))
	v := 1.0 / float64(len(actions))
	for i := range uniform {
		uniform[i] = v
	}
	return uniform
}
