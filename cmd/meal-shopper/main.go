package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"meal-shopper/internal/app"
	"meal-shopper/internal/config"
	"meal-shopper/internal/logx"
)

func main() {
	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "meal-shopper",
		Short:         "Meal plans and the cheapest store to shop them at",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serveCmd(), planCmd(), priceCheckCmd(), metricsCleanupCmd())
	return cmd
}

// loadApp reads the configuration, initializes logging and builds the App.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logx.Init(cfg.Environment)
	return app.New(ctx, cfg)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the Telegram webhook when configured)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logx.Error().Err(err).Msg("failed to release resources")
				}
			}()
			return a.Serve(ctx)
		},
	}
}

func planCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   `plan "<preferences>"`,
		Short: "Generate a one-off meal plan and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var daysPtr *int
			if cmd.Flags().Changed("days") {
				if days < 1 {
					return fmt.Errorf("--days must be at least 1")
				}
				daysPtr = &days
			}
			return a.GenerateMealPlan(ctx, args[0], daysPtr, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "number of meals to plan (the model decides when omitted)")
	return cmd
}

func priceCheckCmd() *cobra.Command {
	var (
		sessionID string
		delay     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "price-check",
		Short: "Scrape store prices for a session's shopping list and submit them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.NewWorkerFromEnv()
			logx.Init(cfg.Environment)
			return app.PriceCheck(ctx, cfg, sessionID, delay, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id returned by POST /plan")
	cmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "pause between searches in the same store")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func metricsCleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Delete LLM usage records older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.CleanupMetrics(ctx, days)
			if err != nil {
				return err
			}
			logx.Info().Int64("removed", removed).Int("older_than_days", days).Msg("metrics cleanup complete")
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "retention in days")
	return cmd
}
