package system

import (
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// InvincibilitySystem counts invincibility down every tick and drops the
// component when it runs out.
type InvincibilitySystem struct{}

func NewInvincibilitySystem() *InvincibilitySystem { return &InvincibilitySystem{} }

func (s *InvincibilitySystem) Update(w *ecs.World) {
	ecs.ForEach(w, component.InvincibilityComponent.Kind(), func(e ecs.Entity, inv *component.Invincibility) {
		if inv.Ticks > 0 {
			inv.Ticks--
		}
		if inv.Ticks <= 0 {
			_ = ecs.Remove(w, e, component.InvincibilityComponent.Kind())
		}
	})
}

// TTLSystem decrements frame-based TTL components and destroys entities when
// the TTL reaches zero.
type TTLSystem struct{}

func NewTTLSystem() *TTLSystem {
	return &TTLSystem{}
}

func (s *TTLSystem) Update(w *ecs.World) {
	ecs.ForEach(w, component.TTLComponent.Kind(), func(e ecs.Entity, ttl *component.TTL) {
		if ttl.Frames > 0 {
			ttl.Frames--
			if ttl.Frames > 0 {
				return
			}
		}
		ecs.DestroyEntity(w, e)
	})
}
