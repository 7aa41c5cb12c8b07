// Package main implements the agentcore CLI: the process boundary around
// internal/controller.Controller, the global singleton spec.md §9 names.
//
// Modeled on the teacher's cmd/nerd/main.go: a cobra root command with
// global persistent flags, a PersistentPreRunE that brings up the zap
// logger plus the internal/logging file-telemetry system, and a
// PersistentPostRun that flushes both on the way out.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agentcore/internal/logging"
)

var (
	verbose   bool
	workspace string
	timeout   time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "agentcore",
	Short: "agentcore - tick-driven autonomous agent control core",
	Long: `agentcore drives an embodied game agent's control loop: belief
ingestion, reflex arbitration, GOAP planning, contingency survival
policies, acquisition solving, and gated execution, behind one
Controller singleton per process.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Run duration before a soak run stops (0 = run until interrupted)")

	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file (default: built-in defaults)")
	runCmd.Flags().StringVar(&goalKind, "goal", "distance", "Demo goal kind: distance, item, or threat")
	statusCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file (default: built-in defaults)")

	driftCheckCmd.Flags().StringVar(&driftRoot, "root", ".", "module root to scan")
	driftCheckCmd.Flags().BoolVar(&driftFailOnWarn, "fail-on-warn", true, "exit non-zero if any issues found")

	rootCmd.AddCommand(runCmd, statusCmd, driftCheckCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
