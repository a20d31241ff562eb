package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// InputLog records every state-changing command with the tick it was
// applied on. Together with the snapshot taken when recording started it
// reproduces a run tick for tick.
type InputLog struct {
	RunID   string          `json:"run_id"`
	Initial json.RawMessage `json:"initial,omitempty"`
	Ticks   uint64          `json:"ticks"`
	Entries []LogEntry      `json:"entries"`

	mu sync.Mutex
}

type LogEntry struct {
	Tick    uint64          `json:"tick"`
	Kind    string          `json:"kind"`
	Command json.RawMessage `json:"command"`
}

func newInputLog() *InputLog {
	return &InputLog{RunID: uuid.NewString()}
}

func (l *InputLog) add(tick uint64, cmd Command) {
	if sc, ok := cmd.(SpawnCommand); ok {
		sc.Data, _ = encodeValue(sc.Data).(map[string]any)
		cmd = sc
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return
	}
	l.mu.Lock()
	l.Entries = append(l.Entries, LogEntry{Tick: tick, Kind: cmd.Kind(), Command: raw})
	l.mu.Unlock()
}

// StartRecording snapshots the current state as the log's starting point
// and clears any earlier entries. Call it before the first tick to record.
func (e *Engine) StartRecording() error {
	data, err := e.Save()
	if err != nil {
		return err
	}
	e.log = newInputLog()
	e.log.Initial = data
	return nil
}

// FinishRecording stamps the log with the number of ticks run since
// recording started and returns it.
func (e *Engine) FinishRecording() *InputLog {
	if e.log == nil {
		return nil
	}
	var start uint64
	var snap struct {
		Tick uint64 `json:"tick"`
	}
	if len(e.log.Initial) > 0 && json.Unmarshal(e.log.Initial, &snap) == nil {
		start = snap.Tick
	}
	e.log.mu.Lock()
	e.log.Ticks = e.world.Tick() - start
	e.log.mu.Unlock()
	return e.log
}

func (l *InputLog) WriteFile(path string) error {
	l.mu.Lock()
	data, err := json.MarshalIndent(l, "", "  ")
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ReadInputLog(path string) (*InputLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var l InputLog
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("sim: decode input log: %w", err)
	}
	return &l, nil
}

func decodeCommand(kind string, raw json.RawMessage) (Command, error) {
	var cmd Command
	switch kind {
	case "spawn":
		var c SpawnCommand
		if err := decodeNumbers(raw, &c); err != nil {
			return nil, err
		}
		c.Data, _ = decodeValue(c.Data).(map[string]any)
		cmd = c
	case "despawn":
		var c DespawnCommand
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		cmd = c
	case "mutate":
		var c MutateCommand
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		cmd = c
	case "load_script":
		var c LoadScriptCommand
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		cmd = c
	case "unload_script":
		var c UnloadScriptCommand
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		cmd = c
	case "set_config":
		var c SetConfigCommand
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		cmd = c
	case "set_tile":
		var c SetTileCommand
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		cmd = c
	case "input":
		var c InputCommand
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		cmd = c
	default:
		return nil, fmt.Errorf("sim: unknown command kind %q", kind)
	}
	return cmd, nil
}

// Replay restores the log's starting snapshot and re-applies its commands
// at their recorded ticks, running as many ticks as the recording did.
func Replay(l *InputLog, opts Options) (*Engine, error) {
	if len(l.Initial) == 0 {
		return nil, fmt.Errorf("sim: input log %s has no starting snapshot", l.RunID)
	}
	e, err := Restore(l.Initial, opts)
	if err != nil {
		return nil, err
	}

	byTick := map[uint64][]Command{}
	for i, entry := range l.Entries {
		cmd, err := decodeCommand(entry.Kind, entry.Command)
		if err != nil {
			return nil, fmt.Errorf("sim: entry %d: %w", i, err)
		}
		byTick[entry.Tick] = append(byTick[entry.Tick], cmd)
	}

	end := e.Tick() + l.Ticks
	for e.Tick() < end {
		e.StepWith(byTick[e.Tick()]...)
	}
	return e, nil
}
