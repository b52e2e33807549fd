package engine

import (
	"context"
	"errors"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/gtocore/internal/deck"
	"github.com/pokeriq/gtocore/internal/evaluator"
	"github.com/pokeriq/gtocore/internal/game"
	"github.com/pokeriq/gtocore/internal/solver"
)

// testConfig keeps solves and equity sampling small enough for unit tests.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Solver.QuickIterations = 50
	cfg.Solver.TrainingIterations = 100
	cfg.Solver.ExploitabilitySamples = 1
	cfg.Engine.EquityIterations = 2000
	cfg.Cache.PrecomputeWorkers = 1
	return cfg
}

func newTestEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	e, err := New(cfg, log.New(io.Discard), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = e.Shutdown(context.Background())
	})
	return e
}

// riverState deals a heads-up hand and checks it down to the river.
func riverState(t *testing.T, hole0, hole1 string) game.GameState {
	t.Helper()
	s, err := game.NewHand(5, 10,
		[]int{200, 200},
		[][]deck.Card{deck.MustParseCards(hole0), deck.MustParseCards(hole1)},
	)
	require.NoError(t, err)

	apply := func(a game.Action) {
		s, err = s.Apply(a)
		require.NoError(t, err)
	}
	deal := func(cards string) {
		s, err = s.Deal(deck.MustParseCards(cards))
		require.NoError(t, err)
	}

	apply(game.Action{Type: game.Call, Amount: 5, Player: 0})
	apply(game.Action{Type: game.Check, Player: 1})
	deal("2c7d9h")
	apply(game.Action{Type: game.Check, Player: 1})
	apply(game.Action{Type: game.Check, Player: 0})
	deal("3s")
	apply(game.Action{Type: game.Check, Player: 1})
	apply(game.Action{Type: game.Check, Player: 0})
	deal("Qd")
	return s
}

func TestGetDecisionSolvesAndCaches(t *testing.T) {
	e := newTestEngine(t, testConfig())
	state := riverState(t, "AsKs", "QhQc")

	d, err := e.GetDecision(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, SourceSolve, d.Source)
	assert.NotEmpty(t, d.Ranked)
	assert.NotEmpty(t, d.Reasoning)
	assert.Greater(t, d.Iterations, 0)

	sum := 0.0
	for i, ra := range d.Ranked {
		assert.GreaterOrEqual(t, ra.Probability, 0.0)
		if i > 0 {
			assert.LessOrEqual(t, ra.Probability, d.Ranked[i-1].Probability, "ranked actions are sorted")
		}
		sum += ra.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Equal(t, d.Ranked[0].Action, d.Action, "top ranked action is the advice")

	assert.GreaterOrEqual(t, d.Confidence, 0.3)
	assert.LessOrEqual(t, d.Confidence, 0.95)
	assert.GreaterOrEqual(t, d.HandStrength, 0.0)
	assert.LessOrEqual(t, d.HandStrength, 1.0)

	// Same spot again: served from cache.
	d2, err := e.GetDecision(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, d2.Source)
	assert.Equal(t, d.Action, d2.Action)
	assert.Equal(t, int64(1), e.Stats().Cache.Hits)
}

func TestGetDecisionRejectsMalformedInput(t *testing.T) {
	e := newTestEngine(t, testConfig())
	var vErr *evaluator.ValidationError

	s, err := game.NewHand(5, 10,
		[]int{200, 200},
		[][]deck.Card{deck.MustParseCards("AsKs"), deck.MustParseCards("QhQc")},
	)
	require.NoError(t, err)

	folded, err := s.Apply(game.Action{Type: game.Fold, Player: 0})
	require.NoError(t, err)
	_, err = e.GetDecision(context.Background(), folded)
	require.True(t, errors.As(err, &vErr), "terminal state")

	corrupt := s
	corrupt.Pot = 1
	_, err = e.GetDecision(context.Background(), corrupt)
	require.True(t, errors.As(err, &vErr), "pot mismatch")
}

func TestGetDecisionPotOddsExample(t *testing.T) {
	e := newTestEngine(t, testConfig())
	state := riverState(t, "AsKs", "QhQc")

	// Seat 1 bets 10 into 20; seat 0 now owes 10 into 30.
	state, err := state.Apply(game.Action{Type: game.Bet, Amount: 10, Player: 1})
	require.NoError(t, err)

	d, err := e.GetDecision(context.Background(), state)
	require.NoError(t, err)
	assert.InDelta(t, 10.0/40.0, d.PotOdds, 1e-9)
}

func TestEvaluateDecision(t *testing.T) {
	e := newTestEngine(t, testConfig())
	state := riverState(t, "AsKs", "QhQc")

	d, err := e.GetDecision(context.Background(), state)
	require.NoError(t, err)

	ev, err := e.EvaluateDecision(context.Background(), state, d.Action)
	require.NoError(t, err)
	assert.True(t, ev.Optimal)
	assert.Equal(t, 100, ev.Score)
	assert.Zero(t, ev.EVLoss)
	assert.NotEmpty(t, ev.Explanation)

	// Grade the worst ranked action instead.
	worst := d.Ranked[len(d.Ranked)-1]
	ev, err = e.EvaluateDecision(context.Background(), state, worst.Action)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ev.Score, 0)
	assert.LessOrEqual(t, ev.Score, 100)
	assert.GreaterOrEqual(t, ev.EVLoss, 0.0)
	assert.Equal(t, d.Action, ev.OptimalAction)

	// Illegal action for the spot.
	_, err = e.EvaluateDecision(context.Background(), state, game.Action{Type: game.Fold, Player: 1})
	var vErr *evaluator.ValidationError
	require.True(t, errors.As(err, &vErr), "fold with nothing owed is not gradeable")
}

func TestHeuristicChoices(t *testing.T) {
	fold := game.Action{Type: game.Fold}
	call := game.Action{Type: game.Call, Amount: 50}
	raise := game.Action{Type: game.Raise, Amount: 150}
	check := game.Action{Type: game.Check}
	bet := game.Action{Type: game.Bet, Amount: 66}
	allin := game.Action{Type: game.AllIn, Amount: 400}

	facing := []game.Action{fold, call, raise, allin}
	free := []game.Action{check, bet, allin}

	cases := []struct {
		name    string
		actions []game.Action
		equity  float64
		potOdds float64
		want    game.ActionType
	}{
		{"hopeless hands fold", facing, 0.10, 0.33, game.Fold},
		{"marginal hands call", facing, 0.40, 0.33, game.Call},
		{"strong hands raise", facing, 0.60, 0.33, game.Raise},
		{"monsters shove", facing, 0.95, 0.33, game.AllIn},
		{"weak hands check back", free, 0.30, 0, game.Check},
		{"strong hands bet", free, 0.70, 0, game.Bet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reasoning := chooseHeuristic(tc.actions, tc.equity, tc.potOdds)
			assert.Equal(t, tc.want, got.Type)
			assert.NotEmpty(t, reasoning)
		})
	}
}

func TestGetDecisionExpiredContextDoesNotPoisonCache(t *testing.T) {
	e := newTestEngine(t, testConfig())
	state := riverState(t, "AsKs", "QhQc")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := e.GetDecision(ctx, state)
	require.NoError(t, err, "an expired deadline still gets an answer")
	assert.Equal(t, SourceHeuristic, d.Source)
	assert.InDelta(t, 0.3, d.Confidence, 1e-9)

	// The empty interrupted solve must not have been cached: with time to
	// spare the same spot gets a real strategy, not the heuristic again.
	d2, err := e.GetDecision(context.Background(), state)
	require.NoError(t, err)
	assert.NotEqual(t, SourceHeuristic, d2.Source)
	assert.NotEmpty(t, d2.Ranked)
	assert.Greater(t, d2.Iterations, 0)
}

func TestSolveTrainingRunsFullBudgetAndCaches(t *testing.T) {
	cfg := testConfig()
	e := newTestEngine(t, cfg)
	state := riverState(t, "AsKs", "QhQc")

	var calls int
	var last solver.Progress
	res, err := e.SolveTraining(context.Background(), state, func(p solver.Progress) {
		calls++
		last = p
	})
	require.NoError(t, err)
	assert.False(t, res.Interrupted)
	assert.Greater(t, res.Iterations, 0)
	assert.LessOrEqual(t, res.Iterations, cfg.Solver.TrainingIterations)
	assert.False(t, math.IsNaN(res.Exploitability), "training solves measure exploitability")
	assert.Greater(t, calls, 0)
	assert.Equal(t, res.Iterations, last.Iteration)

	// The result lands in the cache for the serving path.
	d, err := e.GetDecision(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, d.Source)
	assert.Equal(t, res.Iterations, d.Iterations)

	// A cancelled training solve caches nothing.
	fresh := newTestEngine(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err = fresh.SolveTraining(ctx, state, nil)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Zero(t, fresh.Stats().Cache.Size)
}

func TestDealScenarioValidatesInput(t *testing.T) {
	e := newTestEngine(t, testConfig())

	state, err := e.DealScenario("turn", "medium")
	require.NoError(t, err)
	assert.Equal(t, game.Turn, state.Street)
	assert.Len(t, state.Board, 4)
	assert.GreaterOrEqual(t, state.ToAct, 0)

	_, err = e.DealScenario("omaha", "medium")
	assert.Error(t, err)
	_, err = e.DealScenario("turn", "impossible")
	assert.Error(t, err)
}

func TestGenerateTrainingScenario(t *testing.T) {
	e := newTestEngine(t, testConfig())

	s, err := e.GenerateTrainingScenario(context.Background(), "river", "easy")
	require.NoError(t, err)

	_, err = uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "river", s.Type)
	assert.Equal(t, "easy", s.Difficulty)
	assert.Equal(t, game.River, s.State.Street)
	assert.Len(t, s.State.Board, 5)
	assert.GreaterOrEqual(t, s.HeroSeat, 0)
	require.NotNil(t, s.Decision)
	assert.NotEmpty(t, s.Decision.Ranked)

	_, err = e.GenerateTrainingScenario(context.Background(), "omaha", "easy")
	assert.Error(t, err)
	_, err = e.GenerateTrainingScenario(context.Background(), "river", "impossible")
	assert.Error(t, err)
}

func TestGenerateTrainingBatch(t *testing.T) {
	e := newTestEngine(t, testConfig())

	batch, err := e.GenerateTrainingBatch(context.Background(), 3, []string{"river"}, []string{"easy"})
	require.NoError(t, err)
	require.Len(t, batch, 3)

	ids := map[string]bool{}
	for _, s := range batch {
		assert.False(t, ids[s.ID], "scenario ids are unique")
		ids[s.ID] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batch, err = e.GenerateTrainingBatch(ctx, 5, []string{"river"}, []string{"easy"})
	require.NoError(t, err)
	assert.Empty(t, batch, "cancelled batch returns what was built")

	_, err = e.GenerateTrainingBatch(context.Background(), 0, nil, nil)
	assert.Error(t, err)
}

func TestShutdownPersistsCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.json")

	cfg := testConfig()
	cfg.Cache.SnapshotPath = path
	e, err := New(cfg, log.New(io.Discard), nil)
	require.NoError(t, err)

	state := riverState(t, "AsKs", "QhQc")
	_, err = e.GetDecision(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, e.Shutdown(context.Background()))

	// A fresh engine warm-starts from the snapshot.
	cfg2 := testConfig()
	cfg2.Cache.SnapshotPath = path
	e2 := newTestEngine(t, cfg2)
	assert.Greater(t, e2.Stats().Cache.Size, 0)

	d, err := e2.GetDecision(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, d.Source)
}

func TestStatsCounters(t *testing.T) {
	e := newTestEngine(t, testConfig())
	state := riverState(t, "AsKs", "QhQc")

	_, err := e.GetDecision(context.Background(), state)
	require.NoError(t, err)
	_, err = e.GetDecision(context.Background(), state)
	require.NoError(t, err)

	stats := e.Stats()
	assert.Equal(t, int64(2), stats.Decisions)
	assert.Equal(t, int64(1), stats.Cache.Solves)
}
