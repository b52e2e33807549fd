package engine

import (
	"context"

	"github.com/pokeriq/gtocore/internal/evaluator"
	"github.com/pokeriq/gtocore/internal/game"
	"github.com/pokeriq/gtocore/internal/solver"
)

// DealScenario deals a fresh hand for the scenario type and difficulty and
// walks it to the target street, without solving it. Callers that want a
// deeper solve than GetDecision's quick pass feed the state to SolveTraining.
func (e *Engine) DealScenario(scenarioType, difficulty string) (game.GameState, error) {
	street, ok := scenarioStreets[scenarioType]
	if !ok {
		return game.GameState{}, evaluator.Validationf("unknown scenario type %q", scenarioType)
	}
	shape, ok := scenarioShapes[difficulty]
	if !ok {
		return game.GameState{}, evaluator.Validationf("unknown difficulty %q", difficulty)
	}
	return e.dealScenario(street, shape.stackBB, shape.players)
}

// SolveTraining runs the full training-budget solve for the state, with
// interim exploitability measurement and the progress callback, and stores
// the result in the strategy cache. Unlike the quick pass there is no
// response deadline; the caller's context is the only budget.
func (e *Engine) SolveTraining(ctx context.Context, state game.GameState, progress func(solver.Progress)) (*solver.Result, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if state.IsTerminal() || state.ToAct < 0 {
		return nil, evaluator.Validationf("training solves need a pending decision")
	}

	key := state.InfoSetKey(e.cfg.GameAbstraction())
	cfg := e.cfg.TrainingSolverConfig()
	cfg.Seed = e.seedFor(key)

	sv, err := solver.New(cfg)
	if err != nil {
		return nil, err
	}
	res, err := sv.Run(ctx, state, progress)
	if err != nil {
		return nil, err
	}
	if _, ok := res.StrategyAt(key); ok {
		e.cache.Put(key, res)
	}

	e.logger.Info("training solve finished",
		"key", key,
		"iterations", res.Iterations,
		"exploitability", res.Exploitability,
		"converged", res.Converged,
		"interrupted", res.Interrupted)
	return res, nil
}
