package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// shape is an entity's collider placed in the world.
type shape struct {
	circle bool
	center cp.Vector
	radius float64
	bb     cp.BB
}

func boxShape(bb cp.BB) shape {
	return shape{center: bb.Center(), bb: bb}
}

func circleShape(c cp.Vector, r float64) shape {
	return shape{circle: true, center: c, radius: r, bb: cp.NewBBForCircle(c, r)}
}

// shapeOf returns the placed collider. Entities without a transform or a
// collider have no shape.
func shapeOf(w *ecs.World, e ecs.Entity) (shape, bool) {
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return shape{}, false
	}
	c, ok := ecs.Get(w, e, component.ColliderComponent.Kind())
	if !ok {
		return shape{}, false
	}
	if c.Shape == component.ShapeCircle {
		return circleShape(c.Center(t.X, t.Y), c.Radius), true
	}
	return boxShape(c.Bounds(t.X, t.Y)), true
}

func overlaps(a, b shape) bool {
	switch {
	case a.circle && b.circle:
		r := a.radius + b.radius
		return a.center.DistanceSq(b.center) < r*r
	case a.circle:
		return circleBoxOverlap(a, b.bb)
	case b.circle:
		return circleBoxOverlap(b, a.bb)
	default:
		return a.bb.L < b.bb.R && b.bb.L < a.bb.R && a.bb.B < b.bb.T && b.bb.B < a.bb.T
	}
}

func circleBoxOverlap(c shape, bb cp.BB) bool {
	closest := bb.ClampVect(&c.center)
	return closest.DistanceSq(c.center) < c.radius*c.radius
}

// pushVector returns how far b must move, away from a, to stop overlapping.
func pushVector(a, b shape) cp.Vector {
	switch {
	case a.circle && b.circle:
		d := b.center.Sub(a.center)
		dist := d.Length()
		overlap := a.radius + b.radius - dist
		if overlap <= 0 {
			return cp.Vector{}
		}
		if dist < common.Epsilon {
			return cp.Vector{X: overlap}
		}
		return d.Mult(overlap / dist)
	case a.circle:
		return circleBoxPush(a, b.bb).Neg()
	case b.circle:
		return circleBoxPush(b, a.bb)
	}

	ox := math.Min(a.bb.R, b.bb.R) - math.Max(a.bb.L, b.bb.L)
	oy := math.Min(a.bb.T, b.bb.T) - math.Max(a.bb.B, b.bb.B)
	if ox <= 0 || oy <= 0 {
		return cp.Vector{}
	}
	if ox < oy {
		if b.center.X < a.center.X {
			return cp.Vector{X: -ox}
		}
		return cp.Vector{X: ox}
	}
	if b.center.Y < a.center.Y {
		return cp.Vector{Y: -oy}
	}
	return cp.Vector{Y: oy}
}

// circleBoxPush moves the circle out of the box.
func circleBoxPush(c shape, bb cp.BB) cp.Vector {
	closest := bb.ClampVect(&c.center)
	d := c.center.Sub(closest)
	dist := d.Length()
	overlap := c.radius - dist
	if overlap <= 0 {
		return cp.Vector{}
	}
	if dist < common.Epsilon {
		return cp.Vector{X: overlap}
	}
	return d.Mult(overlap / dist)
}

func hasTag(w *ecs.World, e ecs.Entity, tag string) bool {
	if tag == "" {
		return false
	}
	tags, ok := ecs.Get(w, e, component.TagsComponent.Kind())
	return ok && tags.Has(tag)
}

func layersCompatible(w *ecs.World, a, b ecs.Entity) bool {
	la, lb := component.CollisionLayer{}, component.CollisionLayer{}
	if l, ok := ecs.Get(w, a, component.CollisionLayerComponent.Kind()); ok {
		la = *l
	}
	if l, ok := ecs.Get(w, b, component.CollisionLayerComponent.Kind()); ok {
		lb = *l
	}
	return la.Interacts(lb)
}

func invincible(w *ecs.World, e ecs.Entity) bool {
	inv, ok := ecs.Get(w, e, component.InvincibilityComponent.Kind())
	return ok && inv.Ticks > 0
}

func position(w *ecs.World, e ecs.Entity) (float64, float64, bool) {
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return 0, 0, false
	}
	return t.X, t.Y, true
}

// candidates resolves broad-phase ids for a box, skipping self.
func candidates(w *ecs.World, bb cp.BB, self ecs.Entity) []ecs.Entity {
	grid := w.Spatial()
	if grid == nil {
		return nil
	}
	ids := grid.QueryRect(bb.L, bb.B, bb.R, bb.T)
	out := make([]ecs.Entity, 0, len(ids))
	for _, id := range ids {
		e, ok := ecs.Lookup(w, ecs.StableID(id))
		if !ok || e == self {
			continue
		}
		out = append(out, e)
	}
	return out
}
