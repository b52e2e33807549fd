// Package solver implements vanilla counterfactual regret minimization over
// the betting model in internal/game. Community cards are sampled at chance
// nodes rather than enumerated, so each iteration walks one dealt subtree.
package solver

import (
	"errors"

	"github.com/pokeriq/gtocore/internal/game"
)

// Config aggregates the parameters that control a CFR run.
type Config struct {
	// Iterations is the number of full CFR traversals to run.
	Iterations int

	// Seed fixes the chance-node sampling sequence. Zero means the solver
	// derives a seed from the wall clock.
	Seed int64

	// Abstraction controls the action grid and information-set granularity.
	Abstraction game.Abstraction

	// ExploitabilityEvery measures exploitability every N iterations. Zero
	// disables interim measurement; a final measurement always happens.
	ExploitabilityEvery int

	// ExploitabilitySamples is how many sampled deals each best-response
	// measurement averages over.
	ExploitabilitySamples int

	// ConvergenceThreshold marks the run converged once measured
	// exploitability, in big blinds per hand, drops below it.
	ConvergenceThreshold float64

	// ProgressEvery invokes the progress callback every N iterations.
	// Zero picks roughly one report per percent.
	ProgressEvery int
}

// Validate ensures the parameters are safe to train with.
func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return errors.New("iterations must be > 0")
	}
	if c.ExploitabilityEvery < 0 {
		return errors.New("exploitability interval cannot be negative")
	}
	if c.ExploitabilitySamples <= 0 {
		return errors.New("exploitability samples must be > 0")
	}
	if c.ConvergenceThreshold < 0 {
		return errors.New("convergence threshold cannot be negative")
	}
	if c.ProgressEvery < 0 {
		return errors.New("progress interval cannot be negative")
	}
	return c.Abstraction.Validate()
}

// QuickConfig returns a low-iteration configuration for latency-bound solves,
// where an approximate answer now beats an exact answer later.
func QuickConfig() Config {
	return Config{
		Iterations:            200,
		Abstraction:           game.DefaultAbstraction(),
		ExploitabilityEvery:   0,
		ExploitabilitySamples: 32,
		ConvergenceThreshold:  0.05,
		ProgressEvery:         0,
	}
}

// TrainingConfig returns the configuration used for offline strategy
// generation.
func TrainingConfig() Config {
	return Config{
		Iterations:            10000,
		Abstraction:           game.DefaultAbstraction(),
		ExploitabilityEvery:   50,
		ExploitabilitySamples: 128,
		ConvergenceThreshold:  0.05,
		ProgressEvery:         100,
	}
}
