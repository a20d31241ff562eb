package system

import (
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/script"
)

// EntityView flattens an entity for scripts and external readers.
func EntityView(w *ecs.World, e ecs.Entity) script.EntityView {
	v := script.EntityView{ID: uint64(ecs.IDOf(w, e)), Alive: ecs.Alive(w, e)}
	if t, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
		v.X, v.Y = t.X, t.Y
	}
	if vel, ok := ecs.Get(w, e, component.VelocityComponent.Kind()); ok {
		v.VX, v.VY = vel.X, vel.Y
	}
	if b, ok := ecs.Get(w, e, component.BodyComponent.Kind()); ok {
		v.Grounded = b.Grounded
	}
	if h, ok := ecs.Get(w, e, component.HealthComponent.Kind()); ok {
		v.Health, v.MaxHealth, v.HasHealth = h.Current, h.Max, true
	}
	if tags, ok := ecs.Get(w, e, component.TagsComponent.Kind()); ok {
		v.Tags = tags.List()
	}
	if s, ok := ecs.Get(w, e, component.ScriptComponent.Kind()); ok {
		v.State = s.State
	}
	return v
}

// scriptWorld is the WorldView handed to scripts. Writes never go through
// it, so it stays a stable snapshot for one invocation.
type scriptWorld struct {
	w      *ecs.World
	self   ecs.StableID
	recent []ecs.Event
}

var _ script.WorldView = (*scriptWorld)(nil)

func (s *scriptWorld) Tick() uint64 { return s.w.Tick() }

func (s *scriptWorld) TileSize() float64 {
	if tm := s.w.Tilemap(); tm != nil {
		return tm.TileSize()
	}
	return 0
}

func (s *scriptWorld) Tile(tx, ty int) int {
	return s.w.Tilemap().GetTile(tx, ty)
}

func (s *scriptWorld) IsSolid(tx, ty int) bool {
	return s.w.Tilemap().IsSolid(tx, ty)
}

func (s *scriptWorld) Entity(id uint64) (script.EntityView, bool) {
	e, ok := ecs.Lookup(s.w, ecs.StableID(id))
	if !ok {
		return script.EntityView{}, false
	}
	return EntityView(s.w, e), true
}

func (s *scriptWorld) Query(tag string, x, y, radius float64) []script.EntityView {
	f := ecs.Filter{Tag: tag}
	if radius > 0 {
		f.Near = &ecs.Near{X: x, Y: y, Radius: radius}
	}
	var out []script.EntityView
	for _, e := range ecs.Select(s.w, f) {
		out = append(out, EntityView(s.w, e))
	}
	return out
}

func (s *scriptWorld) Raycast(x, y, dx, dy, maxDist float64) script.RayHit {
	hit := Raycast(s.w, x, y, dx, dy, maxDist, s.self)
	return script.RayHit{Hit: hit.Hit, X: hit.X, Y: hit.Y, Distance: hit.Distance, Entity: uint64(hit.Entity), Tile: hit.Tile}
}

func (s *scriptWorld) FindPath(fromX, fromY, toX, toY float64) [][2]float64 {
	path := FindPath(s.w.Tilemap(), fromX, fromY, toX, toY)
	out := make([][2]float64, 0, len(path))
	for _, p := range path {
		out = append(out, [2]float64{p.X, p.Y})
	}
	return out
}

func (s *scriptWorld) Events(kind string) []map[string]any {
	var out []map[string]any
	for _, ev := range s.recent {
		if kind != "" && ev.Type != kind {
			continue
		}
		m := map[string]any{"type": ev.Type, "tick": int64(ev.Tick), "entity": int64(ev.Entity), "other": int64(ev.Other), "amount": ev.Amount}
		if len(ev.Data) > 0 {
			m["data"] = ev.Data
		}
		out = append(out, m)
	}
	return out
}

func (s *scriptWorld) ReserveID() uint64 {
	return uint64(ecs.ReserveID(s.w))
}
