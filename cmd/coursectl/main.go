package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/app"
	"github.com/designengineer/course-api/internal/config"
)

var (
	logger  *zap.Logger
	timeout time.Duration
	asJSON  bool

	// openStores is replaced in tests with an in-memory backend.
	openStores = func(ctx context.Context) (app.Stores, config.Config, error) {
		cfg := config.Load()
		st, err := app.OpenStores(ctx, cfg)
		return st, cfg, err
	}
)

var rootCmd = &cobra.Command{
	Use:   "coursectl",
	Short: "Operator tooling for the course API",
	Long: `coursectl talks to the same database as the API server.

It reads the server's environment (and .env) for the store driver and
connection settings.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	rootCmd.AddCommand(codesCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(lessonsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withStores opens the configured backend for the duration of fn.
func withStores(cmd *cobra.Command, fn func(ctx context.Context, st app.Stores, cfg config.Config) error) error {
	ctx, cancel := context.WithTimeout(cmdContext(cmd), timeout)
	defer cancel()
	st, cfg, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return fn(ctx, st, cfg)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
