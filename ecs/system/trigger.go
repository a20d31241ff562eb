package system

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// TriggerSystem fires a zone's event when a tag-matching entity enters its
// radius. Actors with a collider overlap by shape, others by position.
type TriggerSystem struct{}

func NewTriggerSystem() *TriggerSystem { return &TriggerSystem{} }

func (s *TriggerSystem) Update(w *ecs.World) {
	grid := w.Spatial()
	if grid == nil {
		return
	}
	var spent []ecs.Entity

	ecs.ForEach2(w, component.TriggerZoneComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, z *component.TriggerZone, t *component.Transform) {
		zone := circleShape(cp.Vector{X: t.X, Y: t.Y}, z.Radius)
		id := ecs.IDOf(w, e)
		inside := map[uint64]struct{}{}
		fired := false

		for _, aid := range grid.QueryRadius(t.X, t.Y, z.Radius) {
			a, ok := ecs.Lookup(w, ecs.StableID(aid))
			if !ok || a == e || !hasTag(w, a, z.TargetTag) {
				continue
			}
			hit := false
			if as, ok := shapeOf(w, a); ok {
				hit = overlaps(zone, as)
			} else if ax, ay, ok := position(w, a); ok {
				hit = zone.center.DistanceSq(cp.Vector{X: ax, Y: ay}) <= z.Radius*z.Radius
			}
			if !hit {
				continue
			}
			inside[aid] = struct{}{}
			if z.Enter(aid) {
				fired = true
				w.Emit(ecs.Event{Type: z.EventName, Entity: id, Other: ecs.StableID(aid)})
			}
		}
		z.Retain(inside)
		if fired && z.OneShot {
			spent = append(spent, e)
		}
	})

	for _, e := range spent {
		ecs.DestroyEntity(w, e)
	}
}
