package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tracklake/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup initializes the warehouse and applies schema migrations, creating a
// config file from the embedded template when none exists.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.reloadConfig(cmd)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			r.reloadConfig(cmd)
		}
	}

	db, driver, err := r.openWarehouse(ctx)
	if err != nil {
		return fmt.Errorf("failed to open warehouse: %w", err)
	}
	if r.db == nil {
		defer db.Close()
	}

	r.logger.Info("running warehouse migrations", "driver", driver)
	if err := shared.RunMigrations(db, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Info("setup complete", "driver", driver)
	return nil
}
