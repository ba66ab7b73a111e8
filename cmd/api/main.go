package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/diagnosis/luxsuv-accounts/pkg/config"
	"github.com/diagnosis/luxsuv-accounts/pkg/database"
	"github.com/diagnosis/luxsuv-accounts/pkg/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "accounts",
		Short:         "Accounts service: signup, verification codes and tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newPruneCommand(),
	)
	return cmd
}

// loadConfig reads configuration and sets up the process logger.
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg
}

func newMigrateCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pool, err := connectDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.Migrate(ctx, pool); err != nil {
				logger.Error("Migration failed", "error", err)
				return err
			}
			logger.Info("Schema applied")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "operation timeout")
	return cmd
}

func newPruneCommand() *cobra.Command {
	var (
		timeout   time.Duration
		retention time.Duration
	)
	cmd := &cobra.Command{
		Use:   "prune-codes",
		Short: "Delete verification codes that expired unconfirmed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pool, err := connectDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := newPruner(pool).Prune(ctx, retention)
			if err != nil {
				logger.Error("Prune failed", "error", err)
				return err
			}
			logger.Info("Expired verification codes deleted", "count", n, "retention", retention.String())
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "operation timeout")
	cmd.Flags().DurationVar(&retention, "retention", 24*time.Hour, "keep expired codes this long")
	return cmd
}
