package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/milk9111/simcore/prefabs"
	"github.com/milk9111/simcore/sim"
)

var (
	flagExpectHash uint64
	flagStates     bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <input-log.json>",
	Short: "Replay a recorded input log",
	Long: `Restore the snapshot an input log starts from, re-apply its commands at
their recorded ticks and print the final tick and state hash.

Examples:
  simcore replay run.json
  simcore replay run.json --expect 1234567890 --states`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().Uint64Var(&flagExpectHash, "expect", 0, "Fail unless the final state hash matches")
	replayCmd.Flags().BoolVar(&flagStates, "states", false, "Print final entity states as JSON")
}

func runReplay(_ *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	log, err := sim.ReadInputLog(args[0])
	if err != nil {
		return err
	}
	e, err := sim.Replay(log, sim.Options{Config: cfg, Logger: logger, Prefabs: prefabs.NewLibrary(cfg.Prefabs.Dir)})
	if err != nil {
		return err
	}

	hash := e.Hash()
	fmt.Printf("Run %s: %d ticks, %d commands\n", log.RunID, log.Ticks, len(log.Entries))
	fmt.Printf("Final tick %d, hash %d\n", e.Tick(), hash)

	if flagStates {
		data, err := json.MarshalIndent(e.States(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	if flagExpectHash != 0 && hash != flagExpectHash {
		fmt.Fprintf(os.Stderr, "hash mismatch: expected %d\n", flagExpectHash)
		return fmt.Errorf("replay diverged")
	}
	return nil
}
