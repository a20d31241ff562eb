package system

import (
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// ContactDamageSystem hurts tag-matching victims overlapping an attacker's
// collider. Both sides need a collider; an attacker without one never deals
// damage. Hits are limited per attacker/victim pair by the cooldown.
type ContactDamageSystem struct {
	settings  *Settings
	cooldowns pairCooldowns
}

func NewContactDamageSystem(settings *Settings) *ContactDamageSystem {
	return &ContactDamageSystem{settings: settings, cooldowns: pairCooldowns{}}
}

func (s *ContactDamageSystem) Update(w *ecs.World) {
	tick := w.Tick()
	s.cooldowns.prune(tick)

	ecs.ForEach2(w, component.ContactDamageComponent.Kind(), component.ColliderComponent.Kind(), func(a ecs.Entity, cd *component.ContactDamage, _ *component.Collider) {
		if !ecs.Alive(w, a) {
			return
		}
		as, ok := shapeOf(w, a)
		if !ok {
			return
		}
		tag := cd.TargetTag
		if tag == "" {
			tag = s.settings.DefaultContactTarget
		}
		attacker := ecs.IDOf(w, a)

		for _, v := range candidates(w, as.bb, a) {
			if !hasTag(w, v, tag) || !ecs.Has(w, v, component.HealthComponent.Kind()) {
				continue
			}
			vs, ok := shapeOf(w, v)
			if !ok || !overlaps(as, vs) || !layersCompatible(w, a, v) {
				continue
			}
			key := pairKey{attacker: attacker, victim: ecs.IDOf(w, v)}
			if !s.cooldowns.ready(key, tick) || invincible(w, v) {
				continue
			}
			if Damage(w, v, attacker, cd.Amount, "contact") {
				s.cooldowns.start(key, tick, cd.Cooldown)
				knockback(w, v, as.center.X, cd.Knockback)
			}
		}
	})
}
