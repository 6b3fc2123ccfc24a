package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Usoramara/alive-intelligence-v3/internal/config"
	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded configuration, available to every subcommand
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "alive",
	Short: "alive - a cooperative cognitive core",
	Long: `alive runs a small cognitive architecture: a priority signal bus, a
cooperative frame scheduler over heterogeneous-cadence engines, a damped
emotional self-state, and asynchronous bridges to a language model and an
optional body host.

Run "alive run" to start it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		zcfg := zap.NewDevelopmentConfig()
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		var zl zapcore.Level
		if err := zl.UnmarshalText([]byte(level)); err != nil {
			zl = zapcore.InfoLevel
		}
		zcfg.Level = zap.NewAtomicLevelAt(zl)
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Initialize(logger)
		logging.SetLevel(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
