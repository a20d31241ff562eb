package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/milk9111/simcore/prefabs"
	"github.com/milk9111/simcore/sim"
)

var (
	flagOut    string
	flagEvents bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <request.yaml>...",
	Short: "Run headless simulation requests",
	Long: `Run one or more simulation requests back to back, without a clock, and
print their results as JSON. Several requests run in parallel; results keep
the order of the arguments.

Examples:
  simcore simulate jump.yaml
  simcore simulate a.yaml b.yaml --out results.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&flagOut, "out", "", "Write results here instead of stdout")
	simulateCmd.Flags().BoolVar(&flagEvents, "events", false, "Include every event in the output")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	reqs := make([]sim.Request, 0, len(args))
	for _, path := range args {
		req, err := sim.LoadRequest(path)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	opts := sim.Options{Config: cfg, Logger: logger, Prefabs: prefabs.NewLibrary(cfg.Prefabs.Dir)}
	results, err := sim.SimulateBatch(cmd.Context(), reqs, opts)
	if err != nil {
		return err
	}
	for i, res := range results {
		logger.Info("simulation finished",
			zap.String("request", args[i]),
			zap.String("outcome", string(res.Outcome)),
			zap.Uint64("ticks", res.Ticks))
		if !flagEvents {
			res.Events = nil
		}
	}

	var out any = results
	if len(results) == 1 {
		out = results[0]
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if flagOut != "" {
		return os.WriteFile(flagOut, data, 0o644)
	}
	_, err = os.Stdout.Write(data)
	return err
}
