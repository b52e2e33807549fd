package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/pokeriq/gtocore/internal/engine"
)

var cli struct {
	Config string `help:"path to HCL configuration file" default:"gtocore.hcl"`
	Debug  bool   `help:"enable debug logging"`

	Advise   AdviseCmd   `cmd:"" help:"solve one spot and print the recommended strategy"`
	Train    TrainCmd    `cmd:"" help:"batch-solve generated scenarios into a strategy cache file"`
	Scenario ScenarioCmd `cmd:"" help:"emit generated training scenarios as JSON"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("gtocore"),
		kong.Description("GTO solving core for No-Limit Texas Hold'em"),
		kong.UsageOnError(),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	if cli.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := engine.LoadConfig(cli.Config)
	if err != nil {
		logger.Fatal("could not load configuration", "path", cli.Config, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch kctx.Command() {
	case "advise":
		err = cli.Advise.Run(ctx, cfg, logger)
	case "train":
		err = cli.Train.Run(ctx, cfg, logger)
	case "scenario":
		err = cli.Scenario.Run(ctx, cfg, logger)
	default:
		logger.Fatal("unknown command", "command", kctx.Command())
	}
	if err != nil {
		logger.Fatal("command failed", "error", err)
	}
}
