package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/milk9111/simcore/levels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedDefaultParses(t *testing.T) {
	cfg, err := Parse(defaultYAML)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Tick.Rate)
	assert.Equal(t, time.Millisecond, cfg.Scripting.EntityBudget)
	assert.Equal(t, 5*time.Millisecond, cfg.Scripting.GlobalBudget)
	assert.Equal(t, 8, cfg.Scripting.MaxErrorStreak)
	assert.InDelta(t, 1.0/60.0, cfg.DT(), 1e-12)

	reg := cfg.Registry()
	assert.True(t, reg.Get(8).Solid)
	assert.Equal(t, 0.1, reg.Get(8).Friction)
	assert.True(t, reg.Get(levels.TilePlatform).Platform)
}

func TestParseKeepsDefaultsForOmittedKeys(t *testing.T) {
	cfg, err := Parse([]byte("physics:\n  gravity: 500\n"))
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.Physics.Gravity)
	assert.Equal(t, 400.0, cfg.Physics.JumpVelocity)
	assert.Equal(t, "player", cfg.Interaction.PlayerTag)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"zero_rate", "tick:\n  rate: 0\n"},
		{"bad_queue", "tick:\n  queue_capacity: -1\n"},
		{"empty_player_tag", "interaction:\n  player_tag: \"\"\n"},
		{"malformed", "tick: [\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadCustomPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick:\n  rate: 30\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Tick.Rate)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestScriptingConfigJSON(t *testing.T) {
	out, err := json.Marshal(Default().Scripting)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entity_budget":"1ms","global_budget":"5ms","max_error_streak":8}`, string(out))

	tests := []struct {
		name    string
		in      string
		want    ScriptingConfig
		wantErr bool
	}{
		{"strings", `{"entity_budget":"250us","global_budget":"2ms","max_error_streak":3}`, ScriptingConfig{EntityBudget: 250 * time.Microsecond, GlobalBudget: 2 * time.Millisecond, MaxErrorStreak: 3}, false},
		{"nanoseconds", `{"entity_budget":1000,"global_budget":0,"max_error_streak":1}`, ScriptingConfig{EntityBudget: time.Microsecond, MaxErrorStreak: 1}, false},
		{"omitted keys keep values", `{"max_error_streak":2}`, ScriptingConfig{EntityBudget: time.Millisecond, GlobalBudget: 5 * time.Millisecond, MaxErrorStreak: 2}, false},
		{"bad duration", `{"entity_budget":"soon"}`, ScriptingConfig{}, true},
		{"go field names are ignored", `{"EntityBudget":7}`, Default().Scripting, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Default().Scripting
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
