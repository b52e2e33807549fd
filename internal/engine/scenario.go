package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/pokeriq/gtocore/internal/deck"
	"github.com/pokeriq/gtocore/internal/evaluator"
	"github.com/pokeriq/gtocore/internal/game"
)

// Scenario is a generated training spot: a betting state at the requested
// street, solved advice for the acting player, and an explanation.
type Scenario struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Difficulty string         `json:"difficulty"`
	State      game.GameState `json:"state"`
	HeroSeat   int            `json:"hero_seat"`
	Decision   *Decision      `json:"decision"`
}

// Scenario streets and difficulties accepted by GenerateTrainingScenario.
var (
	scenarioStreets = map[string]game.Street{
		"preflop": game.Preflop,
		"flop":    game.Flop,
		"turn":    game.Turn,
		"river":   game.River,
	}
	// Difficulty sets the stack depth and table size; deeper and multiway
	// spots have harder trees.
	scenarioShapes = map[string]struct {
		stackBB int
		players int
	}{
		"easy":   {stackBB: 30, players: 2},
		"medium": {stackBB: 60, players: 2},
		"hard":   {stackBB: 100, players: 3},
	}
)

// GenerateTrainingScenario builds one solved training spot. scenarioType is
// the street the decision happens on; difficulty controls stack depth and
// table size.
func (e *Engine) GenerateTrainingScenario(ctx context.Context, scenarioType, difficulty string) (*Scenario, error) {
	state, err := e.DealScenario(scenarioType, difficulty)
	if err != nil {
		return nil, err
	}

	decision, err := e.GetDecision(ctx, state)
	if err != nil {
		return nil, err
	}

	e.scenarios.Add(1)
	return &Scenario{
		ID:         uuid.NewString(),
		Type:       scenarioType,
		Difficulty: difficulty,
		State:      state,
		HeroSeat:   state.ToAct,
		Decision:   decision,
	}, nil
}

// GenerateTrainingBatch builds n scenarios, cycling through the given types
// and difficulties. It stops early on context cancellation, returning the
// scenarios built so far.
func (e *Engine) GenerateTrainingBatch(ctx context.Context, n int, types, difficulties []string) ([]*Scenario, error) {
	if n <= 0 {
		return nil, evaluator.Validationf("batch size must be positive, got %d", n)
	}
	if len(types) == 0 {
		types = []string{"preflop", "flop", "turn", "river"}
	}
	if len(difficulties) == 0 {
		difficulties = []string{"easy", "medium", "hard"}
	}

	scenarios := make([]*Scenario, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return scenarios, nil
		default:
		}
		s, err := e.GenerateTrainingScenario(ctx, types[i%len(types)], difficulties[i%len(difficulties)])
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// dealScenario deals a fresh hand and walks it passively (calls and checks
// only) to the target street, so the interesting decision is the hero's
// first real choice there.
func (e *Engine) dealScenario(street game.Street, stackBB, players int) (game.GameState, error) {
	const smallBlind, bigBlind = 5, 10

	d := deck.New()
	e.rngMu.Lock()
	d.Shuffle(e.rng)
	e.rngMu.Unlock()

	stacks := make([]int, players)
	holes := make([][]deck.Card, players)
	for i := range stacks {
		stacks[i] = stackBB * bigBlind
		holes[i] = append([]deck.Card(nil), d.Draw(2)...)
	}

	state, err := game.NewHand(smallBlind, bigBlind, stacks, holes)
	if err != nil {
		return game.GameState{}, err
	}

	abs := e.cfg.GameAbstraction()
	for state.Street < street {
		if state.ToAct >= 0 {
			state, err = state.Apply(passiveAction(state, abs))
		} else {
			state, err = state.Deal(d.Draw(state.PendingCards()))
		}
		if err != nil {
			return game.GameState{}, err
		}
	}
	if state.ToAct < 0 {
		state, err = state.Deal(d.Draw(state.PendingCards()))
		if err != nil {
			return game.GameState{}, err
		}
	}
	return state, nil
}

// passiveAction returns the call or check that keeps the hand moving.
func passiveAction(state game.GameState, abs game.Abstraction) game.Action {
	actions := state.LegalActions(abs)
	for _, a := range actions {
		if a.Type == game.Call || a.Type == game.Check {
			return a
		}
	}
	return actions[0]
}
