package system

import (
	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/physics"
)

// Settings are the tunables systems read every tick. Systems share one
// pointer so a config change at the drain point reaches all of them.
type Settings struct {
	Physics              physics.Params
	DT                   float64
	PlayerTag            string
	DeathDespawnDelay    int
	HitboxInvincibility  int
	ProjectileSize       float64
	DefaultContactTarget string
}

func SettingsFromConfig(cfg config.Config) *Settings {
	s := &Settings{}
	s.Apply(cfg)
	return s
}

// Apply copies the simulation sections of cfg.
func (s *Settings) Apply(cfg config.Config) {
	s.Physics = cfg.Physics
	s.DT = cfg.DT()
	s.PlayerTag = cfg.Interaction.PlayerTag
	s.DeathDespawnDelay = cfg.Interaction.DeathDespawnDelay
	s.HitboxInvincibility = cfg.Interaction.HitboxInvincibility
	s.ProjectileSize = cfg.Interaction.ProjectileSize
	s.DefaultContactTarget = cfg.Interaction.DefaultContactTarget
}
