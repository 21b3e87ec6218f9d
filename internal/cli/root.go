// Package cli implements the seqthink CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"seqthink/internal/config"
)

var (
	configPath string
	verbose    bool
	logger     *zap.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "seqthink",
	Short: "Sequential thinking MCP server",
	Long: `An MCP server for structured sequential reasoning. Thoughts are validated,
recorded in branch-aware session memory, enriched with a digest of prior
insights, and processed by an external reasoning model.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr; stdout belongs to the MCP transport.
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: $SEQTHINK_CONFIG if set)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("SEQTHINK_CONFIG")
	}
	if path == "" {
		home, _ := os.UserHomeDir()
		candidate := filepath.Join(home, ".seqthink", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	return config.Load(path)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
