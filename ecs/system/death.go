package system

import (
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// DeathSystem processes entities whose health reached zero. Entities tagged
// with the player tag respawn at their spawn point with full health; the
// rest are despawned after the configured delay.
type DeathSystem struct {
	settings *Settings
}

func NewDeathSystem(settings *Settings) *DeathSystem {
	return &DeathSystem{settings: settings}
}

func (s *DeathSystem) Update(w *ecs.World) {
	// Health set directly by scripts or commands still dies once.
	ecs.ForEach(w, component.HealthComponent.Kind(), func(e ecs.Entity, h *component.Health) {
		if h.Dead() && !ecs.Has(w, e, component.PendingDeathComponent.Kind()) {
			Kill(w, e, 0, "health")
		}
	})

	ecs.ForEach(w, component.PendingDeathComponent.Kind(), func(e ecs.Entity, pd *component.PendingDeath) {
		if pd.Scheduled {
			return
		}
		if hasTag(w, e, s.settings.PlayerTag) {
			s.respawn(w, e)
			return
		}
		pd.Scheduled = true
		if s.settings.DeathDespawnDelay <= 0 {
			ecs.DestroyEntity(w, e)
			return
		}
		_ = ecs.Add(w, e, component.TTLComponent.Kind(), &component.TTL{Frames: s.settings.DeathDespawnDelay})
	})
}

func (s *DeathSystem) respawn(w *ecs.World, e ecs.Entity) {
	x, y := 0.0, 0.0
	if sp, ok := ecs.Get(w, e, component.SpawnPointComponent.Kind()); ok {
		x, y = sp.X, sp.Y
	} else if tm := w.Tilemap(); tm != nil {
		x, y = tm.SpawnX, tm.SpawnY
	}
	if t, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
		t.X, t.Y = x, y
	}
	if v, ok := ecs.Get(w, e, component.VelocityComponent.Kind()); ok {
		v.X, v.Y = 0, 0
	}
	if h, ok := ecs.Get(w, e, component.HealthComponent.Kind()); ok {
		h.Current = h.Max
	}
	if b, ok := ecs.Get(w, e, component.BodyComponent.Kind()); ok {
		b.Grounded, b.Coyote, b.JumpBuffer = false, 0, 0
	}
	_ = ecs.Remove(w, e, component.PendingDeathComponent.Kind())
	w.Emit(ecs.Event{Type: ecs.EventRespawned, Entity: ecs.IDOf(w, e), Data: map[string]any{"x": x, "y": y}})
}
