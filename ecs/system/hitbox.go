package system

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// HitboxSystem applies damage from active attack boxes. A victim that is hit
// becomes briefly invincible, and each pair also waits out the hitbox
// cooldown so one swing lands once.
type HitboxSystem struct {
	settings  *Settings
	cooldowns pairCooldowns
}

func NewHitboxSystem(settings *Settings) *HitboxSystem {
	return &HitboxSystem{settings: settings, cooldowns: pairCooldowns{}}
}

func (s *HitboxSystem) Update(w *ecs.World) {
	tick := w.Tick()
	s.cooldowns.prune(tick)

	ecs.ForEach2(w, component.HitboxComponent.Kind(), component.TransformComponent.Kind(), func(a ecs.Entity, hb *component.Hitbox, t *component.Transform) {
		if !hb.Active || hb.Width <= 0 || hb.Height <= 0 || !ecs.Alive(w, a) {
			return
		}
		box := boxShape(cp.NewBBForExtents(cp.Vector{X: t.X + hb.OffsetX, Y: t.Y + hb.OffsetY}, hb.Width/2, hb.Height/2))
		attacker := ecs.IDOf(w, a)
		cooldown := hb.Cooldown
		if cooldown <= 0 {
			cooldown = s.settings.HitboxInvincibility
		}

		for _, v := range candidates(w, box.bb, a) {
			if !hasTag(w, v, hb.TargetTag) || !ecs.Has(w, v, component.HealthComponent.Kind()) {
				continue
			}
			vs, ok := shapeOf(w, v)
			if !ok || !overlaps(box, vs) || !layersCompatible(w, a, v) {
				continue
			}
			key := pairKey{attacker: attacker, victim: ecs.IDOf(w, v)}
			if !s.cooldowns.ready(key, tick) || invincible(w, v) {
				continue
			}
			if !Damage(w, v, attacker, hb.Damage, "hitbox") {
				continue
			}
			s.cooldowns.start(key, tick, cooldown)
			knockback(w, v, t.X, hb.Knockback)
			if s.settings.HitboxInvincibility > 0 {
				_ = ecs.Add(w, v, component.InvincibilityComponent.Kind(), &component.Invincibility{Ticks: s.settings.HitboxInvincibility})
			}
			w.Emit(ecs.Event{Type: ecs.EventHitboxHit, Entity: attacker, Other: key.victim, Amount: hb.Damage})
		}
	})
}
