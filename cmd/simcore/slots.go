package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/milk9111/simcore/sim"
	"github.com/milk9111/simcore/store"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List save slots",
	Long: `List the save slots in the slot database, newest first.

Examples:
  simcore slots
  simcore slots show quick
  simcore slots delete quick`,
	Args: cobra.NoArgs,
	RunE: runSlotsList,
}

var slotsShowCmd = &cobra.Command{
	Use:   "show <name|id>",
	Short: "Show a save slot's contents",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlotsShow,
}

var slotsDeleteCmd = &cobra.Command{
	Use:   "delete <name|id>",
	Short: "Delete a save slot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlotsDelete,
}

func init() {
	slotsCmd.AddCommand(slotsShowCmd)
	slotsCmd.AddCommand(slotsDeleteCmd)
}

func openStore() (*store.Store, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, err
	}
	logger.Debug("opening slot store")
	return store.Open(cfg.Store.Path)
}

func runSlotsList(_ *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	slots, err := s.List()
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Println("No save slots yet.")
		return nil
	}

	fmt.Printf("  %-20s  %-10s  %-16s  %s\n", "Name", "Tick", "Saved", "ID")
	fmt.Printf("  %-20s  %-10s  %-16s  %s\n", "----", "----", "-----", "--")
	for _, slot := range slots {
		fmt.Printf("  %-20s  %-10d  %-16s  %s\n", slot.Name, slot.Tick, slot.CreatedAt.Local().Format("2006-01-02 15:04"), slot.ID)
	}
	return nil
}

func runSlotsShow(_ *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	slot, err := s.Load(args[0])
	if err != nil {
		return err
	}
	var snap sim.Snapshot
	if err := json.Unmarshal(slot.Payload, &snap); err != nil {
		return fmt.Errorf("decode slot %s: %w", slot.Name, err)
	}

	fmt.Printf("Slot %s (%s)\n", slot.Name, slot.ID)
	fmt.Printf("  tick:     %d\n", snap.Tick)
	fmt.Printf("  entities: %d (next id %d)\n", len(snap.Entities), snap.Counter+1)
	if snap.Level != nil {
		fmt.Printf("  level:    %dx%d\n", snap.Level.Width, snap.Level.Height)
	}
	fmt.Printf("  scripts:  %d (%d global)\n", len(snap.Scripts), len(snap.Globals))
	return nil
}

func runSlotsDelete(_ *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted slot %s\n", args[0])
	return nil
}
