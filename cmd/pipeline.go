package main

import (
	"context"
	"time"

	"github.com/desertthunder/tracklake/internal/formatter"
	"github.com/urfave/cli/v3"
)

// Run executes a full batch cycle and prints the summary.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	p, cleanup, err := r.buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("Cycle %s complete\n", result.CycleID)
	summary := map[string]int{
		"albums":    result.Albums,
		"tracks":    result.Tracks,
		"copied":    result.Copied,
		"skipped":   result.Skipped,
		"inserted":  result.Inserted,
		"expired":   result.Expired,
		"unchanged": result.Unchanged,
		"dropped":   result.Dropped,
	}
	order := []string{"albums", "tracks", "copied", "skipped", "inserted", "expired", "unchanged", "dropped"}
	r.writePlain("%s\n", formatter.SummaryToTable(summary, order))

	return nil
}

// Extract fetches new releases and lands them without staging or merging.
func (r *Runner) Extract(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	p, cleanup, err := r.buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	tracks, albums, err := p.Extract(ctx)
	if err != nil {
		return err
	}

	if len(tracks) == 0 {
		r.writePlain("No new tracks found.\n")
		return nil
	}

	zone, err := r.buildZone(ctx)
	if err != nil {
		return err
	}

	key, err := zone.Land(ctx, tracks, time.Now().UTC())
	if err != nil {
		return err
	}

	r.writePlain("Landed %d tracks from %d albums at %s\n", len(tracks), len(albums), key)
	return nil
}

// Merge bulk copies an optional landed object into staging, then merges
// whatever is staged into the dimension table.
func (r *Runner) Merge(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	p, cleanup, err := r.buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if key := cmd.String("key"); key != "" {
		copied, err := p.Copy(ctx, key, time.Now().UTC())
		if err != nil {
			return err
		}
		r.writePlain("Copied %d rows (%d skipped) from %s\n", copied.Copied, copied.Skipped, key)
	}

	result, err := p.Merge(ctx)
	if err != nil {
		return err
	}

	r.writePlain("Merged %d rows: %d inserted, %d expired, %d unchanged\n",
		result.Normalized, result.Inserted, result.Expired, result.Unchanged)
	return nil
}
