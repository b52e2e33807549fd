package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/pokeriq/gtocore/internal/evaluator"
	"github.com/pokeriq/gtocore/internal/game"
)

// Evaluation grades a user's action against the solved strategy for the same
// spot.
type Evaluation struct {
	Optimal            bool        `json:"optimal"`
	OptimalAction      game.Action `json:"optimal_action"`
	UserProbability    float64     `json:"user_probability"`
	OptimalProbability float64     `json:"optimal_probability"`
	EVLoss             float64     `json:"ev_loss"` // chips
	Score              int         `json:"score"`   // 0-100
	Explanation        string      `json:"explanation"`
}

// EvaluateDecision grades the user's action for the state. The EV-loss figure
// is the probability-gap proxy (bestProb - userProb) x pot, not a true
// counterfactual value; it ranks mistakes consistently and is cheap.
func (e *Engine) EvaluateDecision(ctx context.Context, state game.GameState, action game.Action) (*Evaluation, error) {
	decision, err := e.GetDecision(ctx, state)
	if err != nil {
		return nil, err
	}

	userProb := math.NaN()
	for _, ra := range decision.Ranked {
		if sameAction(ra.Action, action) {
			userProb = ra.Probability
			break
		}
	}
	if math.IsNaN(userProb) {
		return nil, evaluator.Validationf("action %s is not legal in this state", action)
	}

	e.evaluations.Add(1)

	best := decision.Ranked[0]
	evLoss := (best.Probability - userProb) * float64(state.Pot)
	if evLoss < 0 {
		evLoss = 0
	}

	optimal := sameAction(best.Action, action) || best.Probability-userProb < 1e-9
	score := 100
	if !optimal && best.Probability > 0 {
		score = int(math.Round(100 * userProb / best.Probability))
	}
	if score < 0 {
		score = 0
	}

	return &Evaluation{
		Optimal:            optimal,
		OptimalAction:      best.Action,
		UserProbability:    userProb,
		OptimalProbability: best.Probability,
		EVLoss:             evLoss,
		Score:              score,
		Explanation:        evaluationExplanation(optimal, action, best, userProb, evLoss),
	}, nil
}

// sameAction matches on type and, for sized actions, amount.
func sameAction(a, b game.Action) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case game.Bet, game.Raise:
		return a.Amount == b.Amount
	default:
		return true
	}
}

func evaluationExplanation(optimal bool, action game.Action, best RankedAction, userProb, evLoss float64) string {
	if optimal {
		return fmt.Sprintf("%s is the highest-frequency equilibrium action here (%.0f%%)",
			action.Type, best.Probability*100)
	}
	if userProb > 0 {
		return fmt.Sprintf("%s is in the equilibrium mix at %.0f%%, but %s is preferred at %.0f%% (EV loss ~%.1f chips)",
			action.Type, userProb*100, best.Action.Type, best.Probability*100, evLoss)
	}
	return fmt.Sprintf("equilibrium never takes %s here; %s is preferred at %.0f%% (EV loss ~%.1f chips)",
		action.Type, best.Action.Type, best.Probability*100, evLoss)
}
