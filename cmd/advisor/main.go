package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newStateFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "state",
		Usage:   "JSON file holding the suggestions of the latest run",
		Value:   "./data/output/advisor-state.json",
		EnvVars: []string{"ADVISOR_STATE_FILE"},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "advisor",
		Usage: "Compute and manage replenishment suggestions from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Calculate suggestions from a snapshot directory or bucket prefix",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "snapshot-dir",
						Usage:   "Directory containing the snapshot CSV or XLSX files",
						EnvVars: []string{"APP_SNAPSHOT_DIR"},
					},
					&cli.StringFlag{
						Name:  "bucket-prefix",
						Usage: "Download the snapshot from this object storage prefix instead",
					},
					newStateFlag(),
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write the ranked suggestions to this CSV file",
					},
					&cli.StringFlag{
						Name:  "now",
						Usage: "Run as of this date (YYYY-MM-DD or RFC3339)",
					},
				},
				Action: runCalculation,
			},
			{
				Name:      "list",
				Usage:     "Print the stored suggestions",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					newStateFlag(),
					&cli.StringSliceFlag{
						Name:  "urgency",
						Usage: "Only show these urgency tiers",
					},
					&cli.StringFlag{
						Name:  "location",
						Usage: "Only show suggestions for this destination",
					},
				},
				Action: listSuggestions,
			},
			{
				Name:      "accept",
				Usage:     "Accept a suggestion",
				ArgsUsage: "<suggestion-id>",
				Flags: []cli.Flag{
					newStateFlag(),
					&cli.Float64Flag{
						Name:  "qty",
						Usage: "Override the recommended quantity",
					},
				},
				Action: acceptSuggestion,
			},
			{
				Name:      "dismiss",
				Usage:     "Dismiss a suggestion",
				ArgsUsage: "<suggestion-id>",
				Flags: []cli.Flag{
					newStateFlag(),
					&cli.StringFlag{
						Name:  "reason",
						Usage: "Why the suggestion is not acted on",
					},
				},
				Action: dismissSuggestion,
			},
			{
				Name:      "snooze",
				Usage:     "Snooze a suggestion until a date",
				ArgsUsage: "<suggestion-id>",
				Flags: []cli.Flag{
					newStateFlag(),
					&cli.StringFlag{
						Name:     "until",
						Usage:    "Snooze end (YYYY-MM-DD or RFC3339)",
						Required: true,
					},
				},
				Action: snoozeSuggestion,
			},
			{
				Name:   "migrate",
				Usage:  "Create the replenishment tables",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "import",
				Usage: "Load a snapshot directory into the database",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "snapshot-dir",
						Usage:    "Directory containing the snapshot CSV or XLSX files",
						Required: true,
						EnvVars:  []string{"APP_SNAPSHOT_DIR"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runImport,
			},
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("advisor failed")
	}
}
