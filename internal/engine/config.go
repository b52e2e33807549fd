// Package engine exposes the decision API: solved (or heuristic) advice for
// a betting state, decision grading, and training scenario generation.
package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/pokeriq/gtocore/internal/cache"
	"github.com/pokeriq/gtocore/internal/game"
	"github.com/pokeriq/gtocore/internal/solver"
)

// Config is the complete engine configuration, loaded from HCL.
type Config struct {
	Abstraction *AbstractionConfig `hcl:"abstraction,block"`
	Solver      *SolverConfig      `hcl:"solver,block"`
	Cache       *CacheConfig       `hcl:"cache,block"`
	Engine      *EngineConfig      `hcl:"engine,block"`
}

// AbstractionConfig exposes the action and information-set granularity knobs.
// Bucket boundaries are configuration, never hard-coded. MaxRaisesPerStreet
// is a pointer because 0 is meaningful: it lifts the raise cap.
type AbstractionConfig struct {
	BetSizes           []float64 `hcl:"bet_sizes,optional"`
	BetSizeBuckets     []float64 `hcl:"bet_size_buckets,optional"`
	PotBuckets         []int     `hcl:"pot_buckets,optional"`
	MaxRaisesPerStreet *int      `hcl:"max_raises_per_street,optional"`
}

// SolverConfig controls both solve presets.
type SolverConfig struct {
	QuickIterations       int     `hcl:"quick_iterations,optional"`
	TrainingIterations    int     `hcl:"training_iterations,optional"`
	Seed                  int64   `hcl:"seed,optional"`
	ExploitabilityEvery   int     `hcl:"exploitability_every,optional"`
	ExploitabilitySamples int     `hcl:"exploitability_samples,optional"`
	ConvergenceThreshold  float64 `hcl:"convergence_threshold,optional"`
}

// CacheConfig controls the strategy cache.
type CacheConfig struct {
	MaxEntries        int    `hcl:"max_entries,optional"`
	TTLSeconds        int    `hcl:"ttl_seconds,optional"`
	PrecomputeWorkers int    `hcl:"precompute_workers,optional"`
	PrecomputeQueue   int    `hcl:"precompute_queue,optional"`
	SnapshotPath      string `hcl:"snapshot_path,optional"`
}

// EngineConfig controls the decision path.
type EngineConfig struct {
	ResponseDeadlineMS int `hcl:"response_deadline_ms,optional"`
	EquityIterations   int `hcl:"equity_iterations,optional"`
}

// DefaultConfig returns the tuned defaults used when no file is supplied.
func DefaultConfig() *Config {
	abs := game.DefaultAbstraction()
	raises := abs.MaxRaisesPerStreet
	return &Config{
		Abstraction: &AbstractionConfig{
			BetSizes:           abs.BetSizes,
			BetSizeBuckets:     abs.BetSizeBuckets,
			PotBuckets:         abs.PotBuckets,
			MaxRaisesPerStreet: &raises,
		},
		Solver: &SolverConfig{
			QuickIterations:       200,
			TrainingIterations:    10000,
			Seed:                  1,
			ExploitabilityEvery:   50,
			ExploitabilitySamples: 64,
			ConvergenceThreshold:  0.05,
		},
		Cache: &CacheConfig{
			MaxEntries:        10000,
			TTLSeconds:        3600,
			PrecomputeWorkers: 2,
			PrecomputeQueue:   256,
		},
		Engine: &EngineConfig{
			ResponseDeadlineMS: 2000,
			EquityIterations:   5000,
		},
	}
}

// LoadConfig reads an HCL configuration file. A missing file yields the
// defaults; a present file is decoded and backfilled with defaults for any
// block or field it omits.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	if diags := gohcl.DecodeBody(file.Body, nil, &config); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

// applyDefaults backfills every unset block and field.
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Abstraction == nil {
		c.Abstraction = def.Abstraction
	}
	if len(c.Abstraction.BetSizes) == 0 {
		c.Abstraction.BetSizes = def.Abstraction.BetSizes
	}
	if len(c.Abstraction.BetSizeBuckets) == 0 {
		c.Abstraction.BetSizeBuckets = def.Abstraction.BetSizeBuckets
	}
	if len(c.Abstraction.PotBuckets) == 0 {
		c.Abstraction.PotBuckets = def.Abstraction.PotBuckets
	}
	if c.Abstraction.MaxRaisesPerStreet == nil {
		c.Abstraction.MaxRaisesPerStreet = def.Abstraction.MaxRaisesPerStreet
	}

	if c.Solver == nil {
		c.Solver = def.Solver
	}
	if c.Solver.QuickIterations == 0 {
		c.Solver.QuickIterations = def.Solver.QuickIterations
	}
	if c.Solver.TrainingIterations == 0 {
		c.Solver.TrainingIterations = def.Solver.TrainingIterations
	}
	if c.Solver.Seed == 0 {
		c.Solver.Seed = def.Solver.Seed
	}
	if c.Solver.ExploitabilityEvery == 0 {
		c.Solver.ExploitabilityEvery = def.Solver.ExploitabilityEvery
	}
	if c.Solver.ExploitabilitySamples == 0 {
		c.Solver.ExploitabilitySamples = def.Solver.ExploitabilitySamples
	}
	if c.Solver.ConvergenceThreshold == 0 {
		c.Solver.ConvergenceThreshold = def.Solver.ConvergenceThreshold
	}

	if c.Cache == nil {
		c.Cache = def.Cache
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = def.Cache.MaxEntries
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = def.Cache.TTLSeconds
	}
	if c.Cache.PrecomputeWorkers == 0 {
		c.Cache.PrecomputeWorkers = def.Cache.PrecomputeWorkers
	}
	if c.Cache.PrecomputeQueue == 0 {
		c.Cache.PrecomputeQueue = def.Cache.PrecomputeQueue
	}

	if c.Engine == nil {
		c.Engine = def.Engine
	}
	if c.Engine.ResponseDeadlineMS == 0 {
		c.Engine.ResponseDeadlineMS = def.Engine.ResponseDeadlineMS
	}
	if c.Engine.EquityIterations == 0 {
		c.Engine.EquityIterations = def.Engine.EquityIterations
	}
}

// Validate checks the configuration before the engine starts.
func (c *Config) Validate() error {
	if err := c.GameAbstraction().Validate(); err != nil {
		return fmt.Errorf("abstraction: %w", err)
	}
	if c.Solver.QuickIterations <= 0 || c.Solver.TrainingIterations <= 0 {
		return fmt.Errorf("solver: iteration counts must be positive")
	}
	if c.Solver.QuickIterations > c.Solver.TrainingIterations {
		return fmt.Errorf("solver: quick iterations %d exceed training iterations %d",
			c.Solver.QuickIterations, c.Solver.TrainingIterations)
	}
	if err := c.CacheConfig().Validate(); err != nil {
		return err
	}
	if c.Engine.ResponseDeadlineMS <= 0 {
		return fmt.Errorf("engine: response deadline must be positive")
	}
	if c.Engine.EquityIterations <= 0 {
		return fmt.Errorf("engine: equity iterations must be positive")
	}
	return nil
}

// GameAbstraction converts the config block into the game-model form.
func (c *Config) GameAbstraction() game.Abstraction {
	return game.Abstraction{
		BetSizes:           c.Abstraction.BetSizes,
		BetSizeBuckets:     c.Abstraction.BetSizeBuckets,
		PotBuckets:         c.Abstraction.PotBuckets,
		MaxRaisesPerStreet: *c.Abstraction.MaxRaisesPerStreet,
	}
}

// QuickSolverConfig is the low-latency preset for request-path solves.
func (c *Config) QuickSolverConfig() solver.Config {
	return solver.Config{
		Iterations:            c.Solver.QuickIterations,
		Seed:                  c.Solver.Seed,
		Abstraction:           c.GameAbstraction(),
		ExploitabilityEvery:   0,
		ExploitabilitySamples: c.Solver.ExploitabilitySamples,
		ConvergenceThreshold:  c.Solver.ConvergenceThreshold,
	}
}

// TrainingSolverConfig is the full-budget preset for offline solves.
func (c *Config) TrainingSolverConfig() solver.Config {
	return solver.Config{
		Iterations:            c.Solver.TrainingIterations,
		Seed:                  c.Solver.Seed,
		Abstraction:           c.GameAbstraction(),
		ExploitabilityEvery:   c.Solver.ExploitabilityEvery,
		ExploitabilitySamples: c.Solver.ExploitabilitySamples,
		ConvergenceThreshold:  c.Solver.ConvergenceThreshold,
	}
}

// CacheConfig converts the cache block.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		MaxEntries:        c.Cache.MaxEntries,
		TTL:               time.Duration(c.Cache.TTLSeconds) * time.Second,
		PrecomputeWorkers: c.Cache.PrecomputeWorkers,
		PrecomputeQueue:   c.Cache.PrecomputeQueue,
	}
}

// ResponseDeadline is the hard budget for a foreground decision.
func (c *Config) ResponseDeadline() time.Duration {
	return time.Duration(c.Engine.ResponseDeadlineMS) * time.Millisecond
}
