package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tracklake/internal/formatter"
	"github.com/desertthunder/tracklake/internal/repositories"
	"github.com/desertthunder/tracklake/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints every persisted version of a track in the requested format.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	trackID := cmd.String("id")

	db, driver, err := r.openWarehouse(ctx)
	if err != nil {
		return err
	}
	if r.db == nil {
		defer db.Close()
	}

	dimension := repositories.NewDimensionRepository(db, driver)
	records, err := dimension.History(ctx, trackID)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		r.writePlain("No history for track %s\n", trackID)
		return nil
	}

	switch format := cmd.String("format"); format {
	case "table":
		r.writePlain("%s\n", formatter.HistoryToTable(records))
	case "csv":
		output, err := formatter.HistoryToCSV(records)
		if err != nil {
			return err
		}
		r.writePlain("%s", output)
	case "json":
		output, err := formatter.HistoryToJSON(records)
		if err != nil {
			return err
		}
		r.writePlain("%s\n", output)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	return nil
}

// Status prints staging and dimension table counters.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, driver, err := r.openWarehouse(ctx)
	if err != nil {
		return err
	}
	if r.db == nil {
		defer db.Close()
	}

	staging := repositories.NewStagingRepository(db, driver)
	dimension := repositories.NewDimensionRepository(db, driver)

	staged, err := staging.Count(ctx)
	if err != nil {
		return err
	}
	total, current, err := dimension.Counts(ctx)
	if err != nil {
		return err
	}

	summary := map[string]int{
		"staged rows":      staged,
		"dimension rows":   total,
		"current versions": current,
		"expired versions": total - current,
	}
	order := []string{"staged rows", "dimension rows", "current versions", "expired versions"}
	r.writePlain("%s\n", formatter.SummaryToTable(summary, order))

	return nil
}
