package cmd

import (
	"context"
	"fmt"

	"github.com/homeduty/homeduty/internal/config"
	"github.com/homeduty/homeduty/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"
)

func migrateCmd() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "PostgreSQL connection string",
			Sources: cli.EnvVars("HD_DATABASE_URL"),
		},
	}

	withPool := func(fn func(ctx context.Context, pool *pgxpool.Pool) error) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if v := cmd.String("database-url"); v != "" {
				cfg.Database.URL = v
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("database URL is required (set HD_DATABASE_URL or --database-url)")
			}

			pool, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			return fn(ctx, pool)
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Flags:  flags,
				Action: withPool(database.Migrate),
			},
			{
				Name:   "down",
				Usage:  "Roll back the last migration",
				Flags:  flags,
				Action: withPool(database.MigrateDown),
			},
		},
	}
}
