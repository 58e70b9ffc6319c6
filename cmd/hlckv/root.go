package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// GlobalFlags are shared by every command.
type GlobalFlags struct {
	LogLevel string
	JSONLogs bool
}

var (
	globalFlags GlobalFlags
	logger      *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hlckv",
	Short: "Replicated key-value store ordered by hybrid logical clocks",
	Long: `hlckv runs and talks to a fully replicated key-value store.

Every write is versioned with a hybrid logical clock timestamp: wall-clock
time plus a logical counter. Replicas keep the value with the highest
version, so concurrent writers converge on the same result.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(globalFlags.LogLevel, globalFlags.JSONLogs)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSONLogs, "json-logs", false, "emit JSON logs")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
}

func newLogger(level string, json bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	if json {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}
