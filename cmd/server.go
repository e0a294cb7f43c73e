package cmd

import (
	"context"
	"fmt"

	"github.com/homeduty/homeduty/internal/config"
	"github.com/homeduty/homeduty/internal/server"
	"github.com/urfave/cli/v3"
)

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the homeduty API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection string",
				Sources: cli.EnvVars("HD_DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if v := cmd.String("database-url"); v != "" {
				cfg.Database.URL = v
			}
			if v := cmd.String("log-level"); v != "" {
				cfg.Logging.Level = v
			}

			if cfg.Database.URL == "" {
				return fmt.Errorf("database URL is required (set HD_DATABASE_URL env or database.url in config)")
			}

			return server.Run(ctx, cfg)
		},
	}
}
