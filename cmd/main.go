package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/tracklake/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "tracklake",
		Usage:    "Batch pipeline for the track release dimension",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrMergeFailed) {
			// Surfaced loudly so the failed cycle is reconciled before the
			// scheduler retries.
			logger.Fatalf("merge error, dimension table may need reconciliation: %v", err)
		}
		logger.Fatalf("application error: %v", err)
	}
}
