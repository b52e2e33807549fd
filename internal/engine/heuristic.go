package engine

import (
	"fmt"

	"github.com/pokeriq/gtocore/internal/game"
)

// Heuristic thresholds, in multiples of the break-even pot odds. Below
// foldMargin the call is clearly unprofitable; above raiseMargin the hand is
// strong enough to raise for value.
const (
	foldMargin  = 0.8
	raiseMargin = 1.6
	betEquity   = 0.6 // bet threshold when checking is free
	shoveEquity = 0.9
)

// heuristicDecision is the deterministic always-answer fallback: compare
// Monte-Carlo equity against pot odds and pick from the legal actions.
// Confidence is capped low so callers can tell it apart from solved advice.
func (e *Engine) heuristicDecision(state game.GameState, abs game.Abstraction, equity, potOdds float64) *Decision {
	actions := state.LegalActions(abs)
	chosen, reasoning := chooseHeuristic(actions, equity, potOdds)

	ranked := make([]RankedAction, len(actions))
	for i, a := range actions {
		p := 0.0
		if a.Type == chosen.Type && a.Amount == chosen.Amount {
			p = 1.0
		}
		ranked[i] = RankedAction{Action: a, Probability: p}
	}

	return &Decision{
		Action:       chosen,
		Probability:  1,
		Confidence:   0.3,
		Reasoning:    reasoning,
		Ranked:       ranked,
		HandStrength: equity,
		PotOdds:      potOdds,
		Source:       SourceHeuristic,
	}
}

// chooseHeuristic picks one legal action from the equity/pot-odds comparison.
func chooseHeuristic(actions []game.Action, equity, potOdds float64) (game.Action, string) {
	var fold, check, call, allin *game.Action
	var aggressive []game.Action
	for i := range actions {
		a := &actions[i]
		switch a.Type {
		case game.Fold:
			fold = a
		case game.Check:
			check = a
		case game.Call:
			call = a
		case game.AllIn:
			allin = a
		case game.Bet, game.Raise:
			aggressive = append(aggressive, *a)
		}
	}

	// Facing a bet: fold below the margin, raise well above it, call between.
	if fold != nil {
		switch {
		case equity < potOdds*foldMargin:
			return *fold, fmt.Sprintf("equity %.0f%% is below the %.0f%% needed to continue", equity*100, potOdds*100)
		case equity >= shoveEquity && allin != nil:
			return *allin, fmt.Sprintf("equity %.0f%% is strong enough to play for stacks", equity*100)
		case equity >= potOdds*raiseMargin && len(aggressive) > 0:
			return aggressive[0], fmt.Sprintf("equity %.0f%% comfortably beats %.0f%% pot odds, raising for value", equity*100, potOdds*100)
		case call != nil:
			return *call, fmt.Sprintf("equity %.0f%% beats %.0f%% pot odds", equity*100, potOdds*100)
		case allin != nil:
			// Short stack: calling means committing everything.
			return *allin, fmt.Sprintf("equity %.0f%% beats %.0f%% pot odds for the remaining stack", equity*100, potOdds*100)
		}
	}

	// Nothing owed: bet strong hands, otherwise take the free card.
	if equity >= shoveEquity && allin != nil && len(aggressive) == 0 {
		return *allin, fmt.Sprintf("equity %.0f%% is strong enough to play for stacks", equity*100)
	}
	if equity >= betEquity && len(aggressive) > 0 {
		return aggressive[0], fmt.Sprintf("equity %.0f%% is ahead of the field, betting for value", equity*100)
	}
	if check != nil {
		return *check, fmt.Sprintf("equity %.0f%% does not justify building the pot", equity*100)
	}

	// LegalActions always offers one of the branches above.
	return actions[0], "taking the first legal action"
}
