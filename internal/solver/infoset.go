package solver

import "sync"

// InfoSetEntry accumulates regrets and strategy sums for one information set.
// Values are kept in slices to avoid map churn during traversals. Every node
// belonging to the same information set shares one entry, so regret collected
// anywhere in the tree trains a single strategy.
type InfoSetEntry struct {
	RegretSum   []float64
	StrategySum []float64
	Normalising float64
	Visits      int64
	mutex       sync.Mutex
}

// Strategy returns the current regret-matching distribution: positive regrets
// normalised, or uniform when no action has accumulated positive regret.
func (e *InfoSetEntry) Strategy() []float64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	total := 0.0
	strat := make([]float64, len(e.RegretSum))
	for i, r := range e.RegretSum {
		if r > 0 {
			strat[i] = r
			total += r
		}
	}
	if total <= 0 {
		v := 1.0 / float64(len(strat))
		for i := range strat {
			strat[i] = v
		}
		return strat
	}
	for i := range strat {
		strat[i] /= total
	}
	return strat
}

// Update accumulates counterfactual regrets and the reach-weighted strategy.
func (e *InfoSetEntry) Update(regret, strategy []float64, reachWeight float64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	for i := range regret {
		e.RegretSum[i] += regret[i]
		e.StrategySum[i] += reachWeight * strategy[i]
	}
	e.Normalising += reachWeight
	e.Visits++
}

// AverageStrategy returns the normalised average strategy, the quantity that
// converges to equilibrium. Unvisited entries fall back to uniform.
func (e *InfoSetEntry) AverageStrategy() []float64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	strat := make([]float64, len(e.StrategySum))
	if e.Normalising <= 0 {
		v := 1.0 / float64(len(strat))
		for i := range strat {
			strat[i] = v
		}
		return strat
	}
	for i := range strat {
		strat[i] = e.StrategySum[i] / e.Normalising
	}
	return strat
}

// InfoSetTable maps information-set keys to their shared accumulators.
type InfoSetTable struct {
	mu      sync.RWMutex
	entries map[string]*InfoSetEntry
}

// NewInfoSetTable returns an empty table ready for use.
func NewInfoSetTable() *InfoSetTable {
	return &InfoSetTable{entries: make(map[string]*InfoSetEntry)}
}

// Get returns the entry for the key, creating it sized for actionCount when
// missing.
func (t *InfoSetTable) Get(key string, actionCount int) *InfoSetEntry {
	t.mu.RLock()
	entry, ok := t.entries[key]
	t.mu.RUnlock()
	if ok {
		return entry
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok = t.entries[key]; ok {
		return entry
	}
	entry = &InfoSetEntry{
		RegretSum:   make([]float64, actionCount),
		StrategySum: make([]float64, actionCount),
	}
	t.entries[key] = entry
	return entry
}

// Lookup returns the entry for the key without creating it.
func (t *InfoSetTable) Lookup(key string) (*InfoSetEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.entries[key]
	return entry, ok
}

// Size returns the number of information sets tracked.
func (t *InfoSetTable) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Each calls fn for every entry. The callback must not retain the map.
func (t *InfoSetTable) Each(fn func(key string, entry *InfoSetEntry)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for k, v := range t.entries {
		fn(k, v)
	}
}
