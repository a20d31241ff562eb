package system

import (
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// pairKey identifies an attacker/victim pair by StableID.
type pairKey struct {
	attacker ecs.StableID
	victim   ecs.StableID
}

// pairCooldowns remembers, per pair, the first tick a pair may hit again.
type pairCooldowns map[pairKey]uint64

func (c pairCooldowns) ready(k pairKey, tick uint64) bool {
	until, ok := c[k]
	return !ok || tick >= until
}

func (c pairCooldowns) start(k pairKey, tick uint64, frames int) {
	if frames <= 0 {
		return
	}
	c[k] = tick + uint64(frames)
}

func (c pairCooldowns) prune(tick uint64) {
	for k, until := range c {
		if tick >= until {
			delete(c, k)
		}
	}
}

// Damage lowers the victim's health and emits entity_damaged. When the hit
// takes health from above zero to zero or below, entity_died is emitted and
// the entity is marked for the death pass. It returns false when nothing
// was applied.
func Damage(w *ecs.World, victim ecs.Entity, source ecs.StableID, amount float64, cause string) bool {
	h, ok := ecs.Get(w, victim, component.HealthComponent.Kind())
	if !ok || !ecs.Alive(w, victim) {
		return false
	}
	id := ecs.IDOf(w, victim)
	h.Current -= amount
	w.Emit(ecs.Event{
		Type:   ecs.EventDamaged,
		Entity: id,
		Other:  source,
		Amount: amount,
		Data:   map[string]any{"health": max(h.Current, 0), "cause": cause},
	})
	if h.Dead() {
		Kill(w, victim, source, cause)
	}
	return true
}

// Kill marks the entity dead and emits entity_died, once.
func Kill(w *ecs.World, e ecs.Entity, source ecs.StableID, cause string) {
	if ecs.Has(w, e, component.PendingDeathComponent.Kind()) {
		return
	}
	if h, ok := ecs.Get(w, e, component.HealthComponent.Kind()); ok && h.Current > 0 {
		h.Current = 0
	}
	_ = ecs.Add(w, e, component.PendingDeathComponent.Kind(), &component.PendingDeath{Cause: cause})
	w.Emit(ecs.Event{Type: ecs.EventDied, Entity: ecs.IDOf(w, e), Other: source, Data: map[string]any{"cause": cause}})
}

// knockback pushes the victim's velocity away from the attacker on x.
func knockback(w *ecs.World, victim ecs.Entity, fromX, strength float64) {
	if strength == 0 {
		return
	}
	v, ok := ecs.Get(w, victim, component.VelocityComponent.Kind())
	if !ok {
		return
	}
	x, _, ok := position(w, victim)
	if !ok {
		return
	}
	dir := 1.0
	if x < fromX {
		dir = -1
	}
	v.X += dir * strength
}
