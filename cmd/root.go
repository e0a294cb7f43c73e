package cmd

import (
	"github.com/urfave/cli/v3"
)

var version = "dev"

func App() *cli.Command {
	return &cli.Command{
		Name:    "homeduty",
		Version: version,
		Usage:   "Household management API with a fair cleaning-duty rotation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML config file",
				Sources: cli.EnvVars("HOMEDUTY_CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("HOMEDUTY_LOGGING_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			serverCmd(),
			migrateCmd(),
		},
	}
}
