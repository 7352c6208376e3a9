package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"supplement-coach/internal/app"
	"supplement-coach/internal/config"
	"supplement-coach/internal/logging"
	"supplement-coach/internal/supplement"
)

var (
	profileFlag string
	daysFlag    int
)

// rootCmd is the supplement-coach CLI.
var rootCmd = &cobra.Command{
	Use:   "supplement-coach",
	Short: "Daily supplement checklist with label scanning",
	Long: `Supplement Coach keeps a per-profile daily supplement plan, tracks what
has been taken today and reads supplement labels from photos with Gemini.

Configuration is read from the environment (and an optional .env file).`,
	SilenceUsage: true,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the default plan of a profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := supplement.ParseProfile(profileFlag)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.PrintPlan(cmd.OutOrStdout(), p)
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <image-file>",
	Short: "Read a supplement label from an image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.ScanFile(cmd.Context(), cmd.OutOrStdout(), args[0])
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old metric records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.CleanupMetrics(cmd.OutOrStdout(), daysFlag)
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server (and the Telegram webhook when configured)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.Serve(cmd.Context())
		})
	},
}

func init() {
	planCmd.Flags().StringVarP(&profileFlag, "profile", "p", string(supplement.ProfileEugen), "Profile name")
	cleanupCmd.Flags().IntVar(&daysFlag, "days", 30, "Keep records for the last N days")

	rootCmd.AddCommand(planCmd, scanCmd, cleanupCmd, serveCmd)
}

func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a, err := app.New(ctx, cfg, logging.New(cfg.AppEnv))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
