package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// ProjectileSystem moves projectiles along their direction, expires them,
// and despawns them on a solid tile or after damaging a target once.
type ProjectileSystem struct {
	settings *Settings
}

func NewProjectileSystem(settings *Settings) *ProjectileSystem {
	return &ProjectileSystem{settings: settings}
}

func (s *ProjectileSystem) Update(w *ecs.World) {
	tm := w.Tilemap()
	dt := s.settings.DT

	ecs.ForEach2(w, component.ProjectileComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, p *component.Projectile, t *component.Transform) {
		id := ecs.IDOf(w, e)
		dir := cp.Vector{X: p.DirX, Y: p.DirY}
		if dir.LengthSq() > 0 {
			dir = dir.Normalize()
		} else {
			dir = cp.Vector{X: 1}
		}
		t.X += dir.X * p.Speed * dt
		t.Y += dir.Y * p.Speed * dt

		if p.Lifetime > 0 {
			p.Lifetime--
		}
		if p.Lifetime == 0 {
			w.Emit(ecs.Event{Type: ecs.EventProjectileExpired, Entity: id})
			ecs.DestroyEntity(w, e)
			return
		}

		if tm != nil {
			tx, ty := tm.WorldToTile(t.X), tm.WorldToTile(t.Y)
			if tm.IsSolid(tx, ty) {
				w.Emit(ecs.Event{Type: ecs.EventProjectileHitWall, Entity: id, Data: map[string]any{"tile": []any{tx, ty}}})
				ecs.DestroyEntity(w, e)
				return
			}
		}

		ps, ok := shapeOf(w, e)
		if !ok {
			size := math.Max(s.settings.ProjectileSize, 1)
			ps = boxShape(cp.NewBBForExtents(cp.Vector{X: t.X, Y: t.Y}, size/2, size/2))
		}
		for _, v := range candidates(w, ps.bb, e) {
			vid := ecs.IDOf(w, v)
			if uint64(vid) == p.Owner || ecs.Has(w, v, component.ProjectileComponent.Kind()) {
				continue
			}
			if !hasTag(w, v, p.TargetTag) || !layersCompatible(w, e, v) || !ecs.Alive(w, v) {
				continue
			}
			vs, ok := shapeOf(w, v)
			if !ok || !overlaps(ps, vs) {
				continue
			}
			if !invincible(w, v) && Damage(w, v, id, p.Damage, "projectile") {
				w.Emit(ecs.Event{Type: ecs.EventProjectileHit, Entity: id, Other: vid, Amount: p.Damage})
			}
			ecs.DestroyEntity(w, e)
			return
		}
	})
}
