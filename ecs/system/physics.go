package system

import (
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/levels"
	"github.com/milk9111/simcore/physics"
)

// PhysicsSystem moves every body through physics.Step, the same function the
// headless harness relies on. Player-tagged bodies touching hazard tiles are
// killed and touching goal tiles emit goal_reached on entry.
type PhysicsSystem struct {
	settings *Settings
	counters physics.Counters
	atGoal   map[ecs.StableID]struct{}
}

func NewPhysicsSystem(settings *Settings) *PhysicsSystem {
	return &PhysicsSystem{settings: settings, atGoal: map[ecs.StableID]struct{}{}}
}

// Counters exposes collision probe counts for diagnostics.
func (s *PhysicsSystem) Counters() physics.Counters {
	return s.counters
}

func (s *PhysicsSystem) Update(w *ecs.World) {
	tm := w.Tilemap()
	if tm == nil {
		return
	}
	p := s.settings.Physics
	dt := s.settings.DT

	ecs.ForEach3(w, component.TransformComponent.Kind(), component.VelocityComponent.Kind(), component.ColliderComponent.Kind(), func(e ecs.Entity, t *component.Transform, v *component.Velocity, c *component.Collider) {
		if ecs.Has(w, e, component.ProjectileComponent.Kind()) || !ecs.Alive(w, e) {
			return
		}
		hw, hh := c.HalfExtents()
		motion := physics.Motion{X: t.X + c.OffsetX, Y: t.Y + c.OffsetY, VX: v.X, VY: v.Y, Width: hw * 2, Height: hh * 2}

		body, hasBody := ecs.Get(w, e, component.BodyComponent.Kind())
		if !hasBody {
			motion = physics.ResolveMotion(tm, motion, dt, &s.counters)
		} else {
			var in *physics.Input
			if ci, ok := ecs.Get(w, e, component.InputComponent.Kind()); ok {
				in = &physics.Input{Left: ci.Left, Right: ci.Right, Up: ci.Up, Down: ci.Down, Jump: ci.Jump, JumpPressed: ci.JumpPressed}
				defer ci.Settle()
			}
			steered := false
			if pf, ok := ecs.Get(w, e, component.PathFollowerComponent.Kind()); ok {
				steered = pf.HasGoal
			}
			next, _ := physics.Step(tm, p, physics.Body{
				Motion:       motion,
				GravityScale: body.GravityScale,
				Grounded:     body.Grounded,
				Coyote:       body.Coyote,
				JumpBuffer:   body.JumpBuffer,
				Steered:      steered,
			}, in, dt, &s.counters)
			motion = next.Motion
			body.Grounded, body.Coyote, body.JumpBuffer = next.Grounded, next.Coyote, next.JumpBuffer
		}

		t.X, t.Y = motion.X-c.OffsetX, motion.Y-c.OffsetY
		v.X, v.Y = motion.VX, motion.VY
		s.checkTiles(w, e, tm, motion)
	})

	// Velocity without a collider integrates freely.
	ecs.ForEach2(w, component.TransformComponent.Kind(), component.VelocityComponent.Kind(), func(e ecs.Entity, t *component.Transform, v *component.Velocity) {
		if ecs.Has(w, e, component.ColliderComponent.Kind()) || ecs.Has(w, e, component.ProjectileComponent.Kind()) {
			return
		}
		t.X += v.X * dt
		t.Y += v.Y * dt
	})
}

func (s *PhysicsSystem) checkTiles(w *ecs.World, e ecs.Entity, tm *levels.Tilemap, m physics.Motion) {
	if !hasTag(w, e, s.settings.PlayerTag) {
		return
	}
	id := ecs.IDOf(w, e)
	if physics.CollidesTile(tm, m.X, m.Y, m.Width, m.Height, func(t levels.TileType) bool { return t.Hazard }, &s.counters) {
		w.Emit(ecs.Event{Type: ecs.EventHazard, Entity: id})
		Kill(w, e, 0, ecs.EventHazard)
		return
	}

	goal := physics.CollidesTile(tm, m.X, m.Y, m.Width, m.Height, func(t levels.TileType) bool { return t.Goal }, &s.counters)
	if !goal && tm.HasGoal {
		ts := tm.TileSize()
		gx, gy := tm.TileCenter(tm.GoalX, tm.GoalY)
		goal = physics.Box(m.X, m.Y, m.Width, m.Height).Intersects(physics.Box(gx, gy, ts, ts))
	}
	_, was := s.atGoal[id]
	switch {
	case goal && !was:
		s.atGoal[id] = struct{}{}
		w.Emit(ecs.Event{Type: ecs.EventGoalReached, Entity: id, Data: map[string]any{"x": m.X, "y": m.Y}})
	case !goal && was:
		delete(s.atGoal, id)
	}
}
