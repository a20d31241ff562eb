package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/levels"
	"github.com/milk9111/simcore/prefabs"
	"github.com/milk9111/simcore/sim"
	"github.com/milk9111/simcore/store"
)

var (
	flagLevel    string
	flagTicks    uint64
	flagRecord   string
	flagFromSlot string
	flagSaveSlot string
	flagWatch    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a level in real time",
	Long: `Run a level at the configured tick rate until interrupted or until
--ticks have elapsed.

With --watch, edits to scripts under the prefab directory are compiled and
swapped in at the next tick. With --record, every applied command is written
to an input log that "simcore replay" reproduces exactly.

Examples:
  simcore run
  simcore run --level cave.json --ticks 3600 --save quick
  simcore run --from quick --watch --record run.json`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagLevel, "level", "", "Level file (default: embedded level)")
	runCmd.Flags().Uint64Var(&flagTicks, "ticks", 0, "Stop after this many ticks (0 = until interrupted)")
	runCmd.Flags().StringVar(&flagRecord, "record", "", "Write an input log to this path")
	runCmd.Flags().StringVar(&flagFromSlot, "from", "", "Restore from a save slot instead of a level")
	runCmd.Flags().StringVar(&flagSaveSlot, "save", "", "Save the final state to this slot")
	runCmd.Flags().BoolVar(&flagWatch, "watch", false, "Hot-reload scripts from the prefab directory")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var start uint64
	opts := sim.Options{
		Config:  cfg,
		Logger:  logger,
		Prefabs: prefabs.NewLibrary(cfg.Prefabs.Dir),
		OnTick: func(tick uint64, events []ecs.Event) {
			for _, ev := range events {
				logger.Debug("event", zap.Uint64("tick", tick), zap.String("type", ev.Type), zap.Uint64("entity", uint64(ev.Entity)))
			}
			if flagTicks > 0 && tick+1-start >= flagTicks {
				cancel()
			}
		},
	}

	e, err := openEngine(cfg, opts)
	if err != nil {
		return err
	}
	start = e.Tick()

	if flagRecord != "" {
		if err := e.StartRecording(); err != nil {
			return err
		}
	}

	if flagWatch || cfg.Prefabs.Watch {
		w, err := prefabs.NewWatcher(opts.Prefabs, logger.Named("watch"))
		if err != nil {
			return err
		}
		defer w.Close()
		go forwardChanges(ctx, e, w, logger)
	}

	err = e.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("run finished", zap.Uint64("tick", e.Tick()), zap.Uint64("hash", e.Hash()))

	if flagRecord != "" {
		if err := e.FinishRecording().WriteFile(flagRecord); err != nil {
			return fmt.Errorf("write input log: %w", err)
		}
	}
	if flagSaveSlot != "" {
		if err := saveSlot(cfg, e, flagSaveSlot); err != nil {
			return err
		}
	}
	return nil
}

func openEngine(cfg config.Config, opts sim.Options) (*sim.Engine, error) {
	if flagFromSlot != "" {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		slot, err := s.Load(flagFromSlot)
		if err != nil {
			return nil, err
		}
		return sim.Restore(slot.Payload, opts)
	}

	var (
		lvl *levels.Level
		err error
	)
	if flagLevel != "" {
		lvl, err = levels.LoadLevelFile(flagLevel)
	} else {
		lvl, err = levels.LoadLevelFromFS("default.json")
	}
	if err != nil {
		return nil, err
	}
	return sim.NewFromLevel(lvl, opts)
}

// forwardChanges turns script edits into load and unload commands.
func forwardChanges(ctx context.Context, e *sim.Engine, w *prefabs.Watcher, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error", zap.Error(err))
		case ch, ok := <-w.Changes:
			if !ok {
				return
			}
			if !ch.Script {
				logger.Info("prefab changed", zap.String("prefab", ch.Name))
				continue
			}
			var c sim.Command = sim.LoadScriptCommand{Name: ch.Name, Source: string(ch.Source)}
			if ch.Removed {
				c = sim.UnloadScriptCommand{Name: ch.Name}
			}
			res, err := e.Submit(ctx, c)
			if err == nil {
				err = res.Err
			}
			if err != nil {
				logger.Warn("script reload failed", zap.String("script", ch.Name), zap.Error(err))
				continue
			}
			logger.Info("script reloaded", zap.String("script", ch.Name), zap.Int("entities", res.Matched))
		}
	}
}

func saveSlot(cfg config.Config, e *sim.Engine, name string) error {
	data, err := e.Save()
	if err != nil {
		return err
	}
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()
	slot, err := s.Save(name, e.Tick(), data)
	if err != nil {
		return err
	}
	fmt.Printf("Saved slot %s (%s) at tick %d\n", slot.Name, slot.ID, slot.Tick)
	return nil
}
