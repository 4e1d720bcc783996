package commands

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nexiro/internal/bootstrap"
	"nexiro/internal/infra"
)

var (
	verbose    bool
	timeout    time.Duration
	inputFile  string
	outputFile string
)

var rootCmd = &cobra.Command{
	Use:   "nexiroctl",
	Short: "Administer credit accounts and run enhancement requests",
	Long: `nexiroctl - command line companion for the nexiro API.

Configuration is read from the environment (and .env when present), using
the same keys as the API server: LEDGER_BACKEND, DATABASE_URL,
GEMINI_API_KEY and friends.

Examples:
  nexiroctl migrate
  nexiroctl plan --email owner@warung.id --plan pro
  nexiroctl compile -f request.yaml
  nexiroctl enhance -f request.yaml --email owner@warung.id -o out.png`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() { _ = godotenv.Load() })

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall command timeout")

	rootCmd.AddCommand(migrateCmd, creditsCmd, planCmd, geminiKeyCmd, compileCmd, enhanceCmd)
}

func newLogger() infra.Logger {
	if verbose {
		return infra.NewLoggerTo(os.Stderr, "development")
	}
	return infra.NewLoggerTo(os.Stderr, "cli").Level(zerolog.WarnLevel)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func loadConfig() (*infra.Config, error) {
	return infra.LoadToolConfig()
}

func openLedger(ctx context.Context) (*bootstrap.Services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return bootstrap.OpenLedger(ctx, cfg, newLogger())
}
