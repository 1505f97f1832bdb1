package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ltgsite/internal/backend"
	"ltgsite/internal/config"
	"ltgsite/internal/jobs"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ltg-admin",
	Short: "Maintain the job postings of the site",
	Long: `ltg-admin works on the same job postings table as the admin page.

Configuration is read from the environment (and a .env file, if present):
SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY or SUPABASE_ANON_KEY, JOBS_TABLE,
and BACKEND_DRIVER=postgres with the DATABASE_* variables for direct access.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every backend attempt")
	rootCmd.AddCommand(jobsCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openRepository builds the jobs repository from the environment.
func openRepository() (*jobs.Repository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return jobs.NewRepository(backend.NewProviderFromConfig(cfg), cfg.Backend.Table, logger), nil
}
