package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"

	"github.com/pokeriq/gtocore/internal/engine"
	"github.com/pokeriq/gtocore/internal/solver"
)

// TrainCmd runs full-budget training solves over generated scenarios and
// writes the resulting strategy cache snapshot, which later engine runs
// warm-start from.
type TrainCmd struct {
	Out          string   `help:"path to write the strategy cache snapshot" required:""`
	Count        int      `help:"number of scenarios to solve" default:"100"`
	Types        []string `help:"scenario streets to cycle through" default:"preflop,flop,turn,river"`
	Difficulties []string `help:"difficulties to cycle through" default:"easy,medium,hard"`
}

func (cmd *TrainCmd) Run(ctx context.Context, cfg *engine.Config, logger *log.Logger) error {
	if cmd.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", cmd.Count)
	}

	cfg.Cache.SnapshotPath = cmd.Out

	eng, err := engine.New(cfg, logger, nil)
	if err != nil {
		return err
	}

	perSolve := cfg.Solver.TrainingIterations
	logger.Info("starting training run",
		"count", cmd.Count,
		"iterations_per_solve", perSolve,
		"types", cmd.Types,
		"difficulties", cmd.Difficulties,
		"out", cmd.Out)

	bar := progressbar.NewOptions(cmd.Count*perSolve,
		progressbar.OptionSetDescription("solving"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)

	solved := 0
	for i := 0; i < cmd.Count && ctx.Err() == nil; i++ {
		state, err := eng.DealScenario(
			cmd.Types[i%len(cmd.Types)],
			cmd.Difficulties[i%len(cmd.Difficulties)])
		if err != nil {
			return err
		}

		base := i * perSolve
		res, err := eng.SolveTraining(ctx, state, func(p solver.Progress) {
			_ = bar.Set(base + p.Iteration)
			if !math.IsNaN(p.Exploitability) {
				bar.Describe(fmt.Sprintf("solving (%.3f bb/hand)", p.Exploitability))
			}
		})
		if err != nil {
			return err
		}
		if res.Interrupted {
			logger.Warn("interrupted, flushing what was solved", "solved", solved)
			break
		}
		// Early convergence leaves the bar short of this solve's budget.
		_ = bar.Set(base + perSolve)
		solved++
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	stats := eng.Stats()
	logger.Info("training complete",
		"solved", solved,
		"cached", stats.Cache.Size,
		"fallbacks", stats.Fallbacks)

	// Shutdown flushes the cache snapshot to --out.
	if err := eng.Shutdown(context.Background()); err != nil {
		return err
	}

	summary, _ := json.Marshal(stats)
	logger.Debug("final stats", "stats", string(summary))
	return nil
}
