package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/LovationAdmin/family-budget-api/config"
	"github.com/LovationAdmin/family-budget-api/utils"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "family-budget-api",
		Short:         "Family budget tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply postgres schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context())
		},
	})

	return root
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	logger := utils.NewLogger(os.Stdout, utils.LoggerOptions{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		Production: cfg.IsProduction(),
	})
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", utils.FieldError, err)
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runMigrate(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DataBackend != config.BackendPostgres {
		return fmt.Errorf("migrate: backend %q has no schema migrations", cfg.DataBackend)
	}

	db, err := config.InitPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", utils.FieldError, err)
		return err
	}
	defer db.Close()

	if err := config.RunMigrations(db); err != nil {
		logger.Error("failed to run migrations", utils.FieldError, err)
		return err
	}
	logger.Info("migrations applied")
	return nil
}
