package system

import (
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// PickupSystem hands each pickup to the first tag-matching collector that
// overlaps it, applies its single effect and destroys it in the same step.
type PickupSystem struct{}

func NewPickupSystem() *PickupSystem { return &PickupSystem{} }

func (s *PickupSystem) Update(w *ecs.World) {
	ecs.ForEach2(w, component.PickupComponent.Kind(), component.ColliderComponent.Kind(), func(e ecs.Entity, p *component.Pickup, _ *component.Collider) {
		ps, ok := shapeOf(w, e)
		if !ok {
			return
		}
		for _, c := range candidates(w, ps.bb, e) {
			if !hasTag(w, c, p.TargetTag) || !ecs.Alive(w, c) || ecs.Has(w, c, component.PickupComponent.Kind()) {
				continue
			}
			cs, ok := shapeOf(w, c)
			if !ok || !overlaps(ps, cs) || !layersCompatible(w, e, c) {
				continue
			}
			collect(w, e, c, p.Effect)
			return
		}
	})
}

func collect(w *ecs.World, pickup, collector ecs.Entity, eff component.PickupEffect) {
	pid, cid := ecs.IDOf(w, pickup), ecs.IDOf(w, collector)
	data := map[string]any{"effect": string(eff.Kind)}

	switch eff.Kind {
	case component.PickupHeal:
		if h, ok := ecs.Get(w, collector, component.HealthComponent.Kind()); ok {
			h.Current = min(h.Current+eff.Amount, h.Max)
			data["health"] = h.Current
		}
	case component.PickupScore:
		sc, ok := ecs.Get(w, collector, component.ScoreComponent.Kind())
		if !ok {
			sc = &component.Score{}
			_ = ecs.Add(w, collector, component.ScoreComponent.Kind(), sc)
		}
		sc.Value += eff.Amount
		data["score"] = sc.Value
	case component.PickupCustom:
		data["name"] = eff.Name
		if eff.Name != "" {
			w.Emit(ecs.Event{Type: eff.Name, Entity: cid, Other: pid})
		}
	}

	ecs.DestroyEntity(w, pickup)
	w.Emit(ecs.Event{Type: ecs.EventPickupCollected, Entity: pid, Other: cid, Amount: eff.Amount, Data: data})
}
