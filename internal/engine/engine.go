package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	rand "math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/pokeriq/gtocore/internal/cache"
	"github.com/pokeriq/gtocore/internal/evaluator"
	"github.com/pokeriq/gtocore/internal/game"
	"github.com/pokeriq/gtocore/internal/randutil"
	"github.com/pokeriq/gtocore/internal/solver"
)

// RankedAction is one action with its solved probability, strongest first in
// a Decision's Ranked slice.
type RankedAction struct {
	Action      game.Action `json:"action"`
	Probability float64     `json:"probability"`
}

// Decision is the engine's answer for one betting state. The engine always
// answers for a valid state; Source records whether the strategy came from
// the cache, a fresh solve, or the heuristic fallback.
type Decision struct {
	Action         game.Action    `json:"action"`
	Probability    float64        `json:"probability"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	Ranked         []RankedAction `json:"ranked"`
	HandStrength   float64        `json:"hand_strength"`
	PotOdds        float64        `json:"pot_odds"`
	Exploitability float64        `json:"exploitability,omitempty"`
	Iterations     int            `json:"iterations"`
	Converged      bool           `json:"converged"`
	Source         string         `json:"source"`
}

// Decision sources.
const (
	SourceCache     = "cache"
	SourceSolve     = "solve"
	SourceHeuristic = "heuristic"
)

// Stats aggregates engine and cache counters.
type Stats struct {
	Decisions   int64       `json:"decisions"`
	Fallbacks   int64       `json:"fallbacks"`
	Evaluations int64       `json:"evaluations"`
	Scenarios   int64       `json:"scenarios"`
	Cache       cache.Stats `json:"cache"`
}

// Engine coordinates the evaluator, solver, and strategy cache behind the
// decision API. It is safe for concurrent use.
type Engine struct {
	cfg    *Config
	logger *log.Logger
	clock  quartz.Clock
	cache  *cache.Cache
	store  cache.Store

	rngMu sync.Mutex
	rng   *rand.Rand // scenario dealing

	decisions   atomic.Int64
	fallbacks   atomic.Int64
	evaluations atomic.Int64
	scenarios   atomic.Int64
}

// New constructs an engine. A nil clock uses the real clock. When the config
// names a snapshot path, a previously saved cache is loaded and Shutdown
// writes it back.
func New(cfg *Config, logger *log.Logger, clock quartz.Clock) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = quartz.NewReal()
	}

	c, err := cache.New(cfg.CacheConfig(), logger, clock)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		logger: logger.WithPrefix("engine"),
		clock:  clock,
		cache:  c,
		rng:    randutil.New(cfg.Solver.Seed + 0x5ce),
	}

	if path := cfg.Cache.SnapshotPath; path != "" {
		e.store = &cache.FileStore{Path: path}
		if err := c.LoadFrom(e.store); err != nil {
			// A broken snapshot costs warm-up time, not correctness.
			e.logger.Warn("could not load cache snapshot", "path", path, "error", err)
		}
	}
	return e, nil
}

// GetDecision returns advice for the acting player. It errors only on
// malformed input; solver trouble (deadline, non-convergence) degrades to the
// hand-strength heuristic instead of surfacing.
func (e *Engine) GetDecision(ctx context.Context, state game.GameState) (*Decision, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if state.IsTerminal() {
		return nil, evaluator.Validationf("no decision in a terminal state")
	}
	if state.ToAct < 0 {
		return nil, evaluator.Validationf("no decision pending: community cards must be dealt first")
	}

	e.decisions.Add(1)
	abs := e.cfg.GameAbstraction()
	key := state.InfoSetKey(abs)

	equity, err := e.handEquity(state)
	if err != nil {
		return nil, err
	}
	potOdds := state.PotOdds()

	res, cached := e.cache.Get(key)
	source := SourceCache
	if !cached {
		source = SourceSolve
		solveCtx, cancel := context.WithTimeout(ctx, e.cfg.ResponseDeadline())
		defer cancel()
		res, err = e.cache.GetOrSolve(solveCtx, key, e.solveSpot(key, state))
	}
	if err == nil {
		if strat, ok := res.StrategyAt(key); ok {
			return e.decisionFromStrategy(strat, res, equity, potOdds, source), nil
		}
		err = fmt.Errorf("solve produced no strategy for the root information set")
	}

	// Always answer: fall back to the documented equity-vs-pot-odds
	// heuristic rather than erroring. A background solve without the
	// deadline is queued so the next request for this spot hits the cache.
	e.fallbacks.Add(1)
	e.logger.Debug("falling back to heuristic", "key", key, "error", err)
	e.Precompute(state)
	return e.heuristicDecision(state, abs, equity, potOdds), nil
}

// solveSpot builds the quick-solve SolveFunc for a spot. A solve cut off
// before it produced a strategy for the root information set is an error, so
// nothing is cached and the next request solves again instead of inheriting
// an empty entry for the whole TTL.
func (e *Engine) solveSpot(key string, state game.GameState) cache.SolveFunc {
	return func(ctx context.Context) (*solver.Result, error) {
		sv, err := solver.New(e.quickConfigFor(key))
		if err != nil {
			return nil, err
		}
		res, err := sv.Run(ctx, state, nil)
		if err != nil {
			return nil, err
		}
		if _, ok := res.StrategyAt(key); !ok {
			return nil, fmt.Errorf("solve interrupted before producing a root strategy")
		}
		return res, nil
	}
}

// seedFor derives a key-dependent seed, so repeated solves of one spot are
// reproducible without making every spot share a deal sequence.
func (e *Engine) seedFor(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return e.cfg.Solver.Seed + int64(h.Sum64()&0x7fffffff)
}

func (e *Engine) quickConfigFor(key string) solver.Config {
	cfg := e.cfg.QuickSolverConfig()
	cfg.Seed = e.seedFor(key)
	return cfg
}

// handEquity estimates the acting player's equity against the number of
// opponents still in the hand. The rng is derived from the configured seed
// and the cards, keeping answers reproducible.
func (e *Engine) handEquity(state game.GameState) (float64, error) {
	p := state.Players[state.ToAct]
	opponents := 0
	for i, other := range state.Players {
		if i != state.ToAct && !other.Folded {
			opponents++
		}
	}
	if opponents == 0 {
		return 1, nil
	}

	h := fnv.New64a()
	for _, c := range p.Hole {
		h.Write([]byte(c.String()))
	}
	for _, c := range state.Board {
		h.Write([]byte(c.String()))
	}
	rng := randutil.New(e.cfg.Solver.Seed + int64(h.Sum64()&0x7fffffff))
	return evaluator.EquityParallel(p.Hole, state.Board, opponents, e.cfg.Engine.EquityIterations, rng)
}

// decisionFromStrategy converts a solved strategy into ranked advice.
// Confidence grows with the probability gap between the top two actions and
// is discounted when the solve never converged.
func (e *Engine) decisionFromStrategy(strat solver.Strategy, res *solver.Result, equity, potOdds float64, source string) *Decision {
	ranked := make([]RankedAction, len(strat.Actions))
	for i, a := range strat.Actions {
		ranked[i] = RankedAction{Action: a, Probability: strat.Probabilities[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})

	gap := ranked[0].Probability
	if len(ranked) > 1 {
		gap -= ranked[1].Probability
	}
	confidence := 0.5 + min(0.45, gap)
	if !res.Converged {
		confidence *= 0.8
	}

	// A solve interrupted before any measurement has no exploitability;
	// decisions get JSON-encoded, and NaN does not survive that.
	exploit := res.Exploitability
	if math.IsNaN(exploit) {
		exploit = 0
	}

	top := ranked[0]
	return &Decision{
		Action:         top.Action,
		Probability:    top.Probability,
		Confidence:     confidence,
		Reasoning:      solveReasoning(top, equity, potOdds, res),
		Ranked:         ranked,
		HandStrength:   equity,
		PotOdds:        potOdds,
		Exploitability: exploit,
		Iterations:     res.Iterations,
		Converged:      res.Converged,
		Source:         source,
	}
}

func solveReasoning(top RankedAction, equity, potOdds float64, res *solver.Result) string {
	verdict := "a converged"
	if !res.Converged {
		verdict = "an approximate"
	}
	return fmt.Sprintf(
		"%s is played %.0f%% of the time by %s equilibrium strategy (%d iterations); hand equity %.0f%% against %.0f%% pot odds",
		top.Action.Type, top.Probability*100, verdict, res.Iterations, equity*100, potOdds*100)
}

// Precompute schedules a background solve for the state so a later
// GetDecision hits the cache. Returns false when the queue is full or the
// spot is already cached.
func (e *Engine) Precompute(state game.GameState) bool {
	if state.Validate() != nil || state.IsTerminal() || state.ToAct < 0 {
		return false
	}
	key := state.InfoSetKey(e.cfg.GameAbstraction())
	return e.cache.Precompute(key, e.solveSpot(key, state))
}

// Stats snapshots engine and cache counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Decisions:   e.decisions.Load(),
		Fallbacks:   e.fallbacks.Load(),
		Evaluations: e.evaluations.Load(),
		Scenarios:   e.scenarios.Load(),
		Cache:       e.cache.Stats(),
	}
}

// Shutdown flushes the cache through the persistence hook and stops the
// precompute workers. The engine must not be used afterwards.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.store != nil {
		if err := e.cache.SaveTo(e.store); err != nil {
			e.logger.Error("could not save cache snapshot", "error", err)
		}
	}
	return e.cache.Close(ctx)
}
