package solver

import (
	"context"
	"math"
	rand "math/rand/v2"
	"time"

	"github.com/pokeriq/gtocore/internal/deck"
	"github.com/pokeriq/gtocore/internal/evaluator"
	"github.com/pokeriq/gtocore/internal/game"
	"github.com/pokeriq/gtocore/internal/randutil"
)

// TraversalStats captures instrumentation metrics for a single CFR iteration.
type TraversalStats struct {
	NodesVisited  int64
	TerminalNodes int64
	MaxDepth      int
	IterationTime time.Duration
}

// Progress contains metadata emitted during long-running solves.
type Progress struct {
	Iteration      int
	InfoSets       int
	Nodes          int
	Exploitability float64 // NaN until first measured
	Stats          TraversalStats
}

// Strategy is the solved distribution over the legal actions at one
// information set. Probabilities line up index-for-index with Actions.
type Strategy struct {
	Actions       []game.Action
	Probabilities []float64
}

// Result is the outcome of a solve: the average strategy per information set
// plus convergence metadata. A Result is valid even when Interrupted; it is
// simply less converged.
type Result struct {
	Strategies     map[string]Strategy
	Iterations     int
	Exploitability float64 // big blinds per hand, NaN if never measured
	Converged      bool
	Interrupted    bool
	InfoSets       int
	Nodes          int
	Stats          TraversalStats
}

// StrategyAt returns the solved strategy for an information-set key.
func (r *Result) StrategyAt(key string) (Strategy, bool) {
	s, ok := r.Strategies[key]
	return s, ok
}

// Solver runs vanilla CFR with chance sampling from a fixed root state. It is
// single-use: construct, Run once, read the Result.
type Solver struct {
	cfg      Config
	tree     *tree
	infosets *InfoSetTable
	rng      *rand.Rand
	brRNG    *rand.Rand // dedicated stream so measurement never perturbs training
	stats    TraversalStats
	players  int
}

// New constructs a solver for the given configuration.
func New(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Solver{
		cfg:      cfg,
		tree:     newTree(),
		infosets: NewInfoSetTable(),
		rng:      randutil.New(seed),
		brRNG:    randutil.New(seed + 1),
	}, nil
}

// Run executes the configured number of CFR iterations from root. Each
// iteration samples one board runout per chance node and updates every
// player's regrets in a single vector traversal.
//
// Cancelling the context stops between iterations and returns the
// best-so-far result with Interrupted set; it is not an error.
func (s *Solver) Run(ctx context.Context, root game.GameState, progress func(Progress)) (*Result, error) {
	if err := root.Validate(); err != nil {
		return nil, err
	}
	if root.IsTerminal() {
		return nil, evaluator.Validationf("cannot solve from a terminal state")
	}
	s.players = len(root.Players)

	batch := s.cfg.ProgressEvery
	if batch == 0 {
		batch = s.cfg.Iterations / 100
		if batch == 0 {
			batch = 1
		}
	}

	exploit := math.NaN()
	interrupted := false
	completed := 0

	reach := make([]float64, s.players)

loop:
	for i := 0; i < s.cfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			interrupted = true
			break loop
		default:
		}

		start := time.Now()
		s.stats = TraversalStats{}
		for p := range reach {
			reach[p] = 1.0
		}
		if _, err := s.traverse(root, reach, 0); err != nil {
			return nil, err
		}
		s.stats.IterationTime = time.Since(start)
		completed = i + 1

		if s.cfg.ExploitabilityEvery > 0 && completed%s.cfg.ExploitabilityEvery == 0 {
			exploit = s.measureExploitability(root)
			if exploit < s.cfg.ConvergenceThreshold {
				break loop
			}
		}

		if progress != nil && completed%batch == 0 {
			progress(Progress{
				Iteration:      completed,
				InfoSets:       s.infosets.Size(),
				Nodes:          s.tree.size(),
				Exploitability: exploit,
				Stats:          s.stats,
			})
		}
	}

	// No final measurement after cancellation: the caller's budget is spent
	// and best-response traversals cost as much as CFR iterations.
	if completed > 0 && math.IsNaN(exploit) && !interrupted {
		exploit = s.measureExploitability(root)
	}
	if progress != nil {
		progress(Progress{
			Iteration:      completed,
			InfoSets:       s.infosets.Size(),
			Nodes:          s.tree.size(),
			Exploitability: exploit,
			Stats:          s.stats,
		})
	}

	return &Result{
		Strategies:     s.collectStrategies(),
		Iterations:     completed,
		Exploitability: exploit,
		Converged:      !math.IsNaN(exploit) && exploit < s.cfg.ConvergenceThreshold,
		Interrupted:    interrupted,
		InfoSets:       s.infosets.Size(),
		Nodes:          s.tree.size(),
		Stats:          s.stats,
	}, nil
}

// traverse walks one sampled subtree and returns the expected payoff vector,
// one value per seat, under the current strategies. reach[p] is the
// probability player p's own actions assign to reaching this node.
func (s *Solver) traverse(st game.GameState, reach []float64, depth int) ([]float64, error) {
	s.stats.NodesVisited++
	if depth > s.stats.MaxDepth {
		s.stats.MaxDepth = depth
	}

	if st.IsTerminal() {
		s.stats.TerminalNodes++
		payoffs, err := st.Payoffs()
		if err != nil {
			return nil, err
		}
		vals := make([]float64, len(payoffs))
		for i, p := range payoffs {
			vals[i] = float64(p)
		}
		return vals, nil
	}

	// Chance node: sample one deal uniformly from the undealt cards. The
	// sample leaves reach untouched; averaging across iterations recovers
	// the expectation.
	if pending := st.PendingCards(); pending > 0 {
		next, err := s.sampleDeal(st, pending, s.rng)
		if err != nil {
			return nil, err
		}
		return s.traverse(next, reach, depth+1)
	}

	player := st.ToAct
	h := s.tree.nodeFor(st, s.cfg.Abstraction)
	n := s.tree.get(h)
	entry := s.infosets.Get(n.infoKey, len(n.actions))
	strat := entry.Strategy()

	actionVals := make([][]float64, len(n.actions))
	nodeVal := make([]float64, s.players)
	childReach := make([]float64, s.players)

	for i, a := range n.actions {
		child, err := st.Apply(a)
		if err != nil {
			return nil, err
		}
		copy(childReach, reach)
		childReach[player] *= strat[i]
		v, err := s.traverse(child, childReach, depth+1)
		if err != nil {
			return nil, err
		}
		actionVals[i] = v
		for p := range nodeVal {
			nodeVal[p] += strat[i] * v[p]
		}
	}

	// Counterfactual reach: probability everyone else plays to here.
	cfReach := 1.0
	for p, r := range reach {
		if p != player {
			cfReach *= r
		}
	}

	regrets := make([]float64, len(n.actions))
	for i := range regrets {
		regrets[i] = (actionVals[i][player] - nodeVal[player]) * cfReach
	}
	entry.Update(regrets, strat, reach[player])

	return nodeVal, nil
}

// sampleDeal draws the street's pending community cards uniformly from the
// cards no player holds and the board does not show.
func (s *Solver) sampleDeal(st game.GameState, pending int, rng *rand.Rand) (game.GameState, error) {
	d := deck.NewWithout(st.VisibleCards())
	if d.Len() < pending {
		return game.GameState{}, evaluator.Validationf("only %d undealt cards remain, need %d", d.Len(), pending)
	}
	d.Shuffle(rng)
	return st.Deal(d.Draw(pending))
}

// collectStrategies materialises the average strategy per information set.
// Action lists come from the first node seen for each set; all member nodes
// enumerate the same abstract grid.
func (s *Solver) collectStrategies() map[string]Strategy {
	out := make(map[string]Strategy, s.infosets.Size())
	for _, n := range s.tree.nodes {
		if _, done := out[n.infoKey]; done {
			continue
		}
		entry, ok := s.infosets.Lookup(n.infoKey)
		if !ok {
			continue
		}
		out[n.infoKey] = Strategy{
			Actions:       append([]game.Action(nil), n.actions...),
			Probabilities: entry.AverageStrategy(),
		}
	}
	return out
}
