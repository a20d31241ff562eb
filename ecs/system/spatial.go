package system

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/spatial"
)

// SpatialSystem rebuilds the broad-phase grid from current positions.
// Entities without a collider are indexed as points so radius queries
// still find them.
type SpatialSystem struct {
	items []spatial.Item
}

func NewSpatialSystem() *SpatialSystem {
	return &SpatialSystem{}
}

func (s *SpatialSystem) Update(w *ecs.World) {
	if w == nil || w.Spatial() == nil {
		return
	}
	s.items = s.items[:0]
	ecs.ForEach(w, component.TransformComponent.Kind(), func(e ecs.Entity, t *component.Transform) {
		bb := cp.BB{L: t.X, B: t.Y, R: t.X, T: t.Y}
		if sh, ok := shapeOf(w, e); ok {
			bb = sh.bb
		}
		s.items = append(s.items, spatial.Item{ID: uint64(ecs.IDOf(w, e)), Bounds: bb})
	})
	w.Spatial().Rebuild(s.items)
}
