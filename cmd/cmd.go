// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the warehouse schema
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize warehouse tables and run migrations",
		Flags: []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// runCommand executes a full batch cycle
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a full cycle: extract, land, copy, merge",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the cycle summary as JSON",
			},
		},
		Action: r.Run,
	}
}

// extractCommand fetches and lands without merging
func extractCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Extract new releases and land them, without merging",
		Flags: []cli.Flag{configFlag()},
		Action: r.Extract,
	}
}

// mergeCommand merges whatever is staged
func mergeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Merge staged rows into the dimension table",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "key",
				Usage: "Landed object key to bulk copy into staging first",
			},
		},
		Action: r.Merge,
	}
}

// historyCommand prints a track's version history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the version history of a track",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Track ID to look up",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: table, csv, json",
				Value: "table",
			},
		},
		Action: r.History,
	}
}

// statusCommand prints staging and dimension counters
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show staging and dimension table counts",
		Flags: []cli.Flag{configFlag()},
		Action: r.Status,
	}
}
