package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/pokeriq/gtocore/internal/engine"
)

// ScenarioCmd generates solved training scenarios and prints them as JSON,
// one document per run.
type ScenarioCmd struct {
	Count      int    `help:"number of scenarios to generate" default:"1"`
	Type       string `help:"scenario street" enum:"preflop,flop,turn,river" default:"flop"`
	Difficulty string `help:"scenario difficulty" enum:"easy,medium,hard" default:"medium"`
	Pretty     bool   `help:"indent the JSON output"`
}

func (cmd *ScenarioCmd) Run(ctx context.Context, cfg *engine.Config, logger *log.Logger) error {
	if cmd.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", cmd.Count)
	}

	eng, err := engine.New(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Shutdown(context.Background()); err != nil {
			logger.Warn("engine shutdown", "error", err)
		}
	}()

	scenarios, err := eng.GenerateTrainingBatch(ctx, cmd.Count,
		[]string{cmd.Type}, []string{cmd.Difficulty})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if cmd.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(scenarios)
}
