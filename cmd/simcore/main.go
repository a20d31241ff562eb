// simcore runs the simulation core from the command line.
//
// Usage:
//
//	simcore run                 - Run a level live until interrupted
//	simcore simulate <req...>   - Run headless requests and print results
//	simcore replay <log>        - Replay a recorded input log
//	simcore slots               - List, show or delete save slots
//
// Global flags:
//
//	--config <path>     - Engine config (default: search order, then embedded)
//	--log-level <lvl>   - Override the configured log level
//	--db <path>         - Override the save-slot database path
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/logging"
)

var (
	flagConfig   string
	flagLogLevel string
	flagDBPath   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "simcore",
	Short: "Deterministic 2D simulation core",
	Long: `simcore steps a tile world with physics, interactions and scripts at a
fixed rate. The same step drives live runs, headless simulations and replays.

Examples:
  simcore run --level levels/cave.json --record run.json
  simcore simulate jump.yaml
  simcore replay run.json
  simcore slots`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to engine config")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to save-slot database")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(slotsCmd)
}

// setup loads the config and builds the logger every command shares.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, nil, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagDBPath != "" {
		cfg.Store.Path = flagDBPath
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
