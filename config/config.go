package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/milk9111/simcore/levels"
	"github.com/milk9111/simcore/physics"
)

// Config is the engine configuration.
type Config struct {
	Tick        TickConfig        `yaml:"tick" json:"tick"`
	Physics     physics.Params    `yaml:"physics" json:"physics"`
	Spatial     SpatialConfig     `yaml:"spatial" json:"spatial"`
	Interaction InteractionConfig `yaml:"interaction" json:"interaction"`
	Scripting   ScriptingConfig   `yaml:"scripting" json:"scripting"`
	Tiles       []levels.TileType `yaml:"tiles" json:"tiles"`
	Log         LogConfig         `yaml:"log" json:"log"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Prefabs     PrefabsConfig     `yaml:"prefabs" json:"prefabs"`
}

type TickConfig struct {
	// Rate is ticks per second for the live loop and the step size everywhere.
	Rate          int `yaml:"rate" json:"rate"`
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity"`
}

type SpatialConfig struct {
	CellSize float64 `yaml:"cell_size" json:"cell_size"`
}

type InteractionConfig struct {
	PlayerTag            string  `yaml:"player_tag" json:"player_tag"`
	DeathDespawnDelay    int     `yaml:"death_despawn_delay" json:"death_despawn_delay"`
	HitboxInvincibility  int     `yaml:"hitbox_invincibility" json:"hitbox_invincibility"`
	ProjectileSize       float64 `yaml:"projectile_size" json:"projectile_size"`
	DefaultContactTarget string  `yaml:"default_contact_target" json:"default_contact_target"`
}

// ScriptingConfig budgets are wall-clock limits per script run. Zero
// disables a budget. In JSON they are duration strings such as "1ms".
type ScriptingConfig struct {
	EntityBudget   time.Duration `yaml:"entity_budget" json:"-"`
	GlobalBudget   time.Duration `yaml:"global_budget" json:"-"`
	MaxErrorStreak int           `yaml:"max_error_streak" json:"-"`
}

type scriptingJSON struct {
	EntityBudget   jsonDuration `json:"entity_budget"`
	GlobalBudget   jsonDuration `json:"global_budget"`
	MaxErrorStreak int          `json:"max_error_streak"`
}

func (c ScriptingConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(scriptingJSON{
		EntityBudget:   jsonDuration(c.EntityBudget),
		GlobalBudget:   jsonDuration(c.GlobalBudget),
		MaxErrorStreak: c.MaxErrorStreak,
	})
}

func (c *ScriptingConfig) UnmarshalJSON(data []byte) error {
	v := scriptingJSON{
		EntityBudget:   jsonDuration(c.EntityBudget),
		GlobalBudget:   jsonDuration(c.GlobalBudget),
		MaxErrorStreak: c.MaxErrorStreak,
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("config: scripting: %w", err)
	}
	c.EntityBudget = time.Duration(v.EntityBudget)
	c.GlobalBudget = time.Duration(v.GlobalBudget)
	c.MaxErrorStreak = v.MaxErrorStreak
	return nil
}

// jsonDuration reads "250us" style strings or integer nanoseconds and
// writes strings.
type jsonDuration time.Duration

func (d jsonDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = jsonDuration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer nanoseconds: %s", data)
	}
	*d = jsonDuration(n)
	return nil
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

type PrefabsConfig struct {
	Dir   string `yaml:"dir" json:"dir"`
	Watch bool   `yaml:"watch" json:"watch"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tick:    TickConfig{Rate: 60, QueueCapacity: 256},
		Physics: physics.DefaultParams(),
		Spatial: SpatialConfig{CellSize: 64},
		Interaction: InteractionConfig{
			PlayerTag:            "player",
			DeathDespawnDelay:    30,
			HitboxInvincibility:  8,
			ProjectileSize:       4,
			DefaultContactTarget: "player",
		},
		Scripting: ScriptingConfig{
			EntityBudget:   time.Millisecond,
			GlobalBudget:   5 * time.Millisecond,
			MaxErrorStreak: 8,
		},
		Log:   LogConfig{Level: "info"},
		Store: StoreConfig{Path: "simcore.db"},
	}
}

// DT is the fixed step in seconds.
func (c Config) DT() float64 {
	if c.Tick.Rate <= 0 {
		return 1.0 / 60.0
	}
	return 1.0 / float64(c.Tick.Rate)
}

// TickInterval is the wall-clock duration of one tick.
func (c Config) TickInterval() time.Duration {
	if c.Tick.Rate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Tick.Rate)
}

// Registry builds the tile registry with configured overrides applied.
func (c Config) Registry() *levels.Registry {
	reg := levels.DefaultRegistry()
	for _, t := range c.Tiles {
		reg.Set(t)
	}
	return reg
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Tick.Rate <= 0:
		return fmt.Errorf("config: tick.rate must be positive, got %d", c.Tick.Rate)
	case c.Tick.QueueCapacity <= 0:
		return fmt.Errorf("config: tick.queue_capacity must be positive, got %d", c.Tick.QueueCapacity)
	case c.Spatial.CellSize <= 0:
		return fmt.Errorf("config: spatial.cell_size must be positive, got %v", c.Spatial.CellSize)
	case c.Scripting.MaxErrorStreak <= 0:
		return fmt.Errorf("config: scripting.max_error_streak must be positive, got %d", c.Scripting.MaxErrorStreak)
	case c.Interaction.PlayerTag == "":
		return fmt.Errorf("config: interaction.player_tag must not be empty")
	}
	return nil
}
