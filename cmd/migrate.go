package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/store/pg"
)

var migrationsDir string

func resolveDSN() (string, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.DSN == "" {
		return "", fmt.Errorf("JARVIS_POSTGRES_DSN environment variable is not set")
	}
	return cfg.Database.DSN, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert database migrations",
	}
	cmd.PersistentFlags().StringVar(&migrationsDir, "migrations-dir", "migrations", "path to migrations directory")

	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := resolveDSN()
			if err != nil {
				return err
			}
			if err := pg.Migrate(dsn, migrationsDir); err != nil {
				return err
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var steps int
	c := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (default: 1 step)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := resolveDSN()
			if err != nil {
				return err
			}
			if steps <= 0 {
				steps = 1
			}
			if err := pg.MigrateDown(dsn, migrationsDir, steps); err != nil {
				return err
			}
			slog.Info("migrations reverted", "steps", steps)
			return nil
		},
	}
	c.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to revert")
	return c
}
