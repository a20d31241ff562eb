package system

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// SolidBodySystem separates overlapping solid bodies, each moving half of
// the push along the minimum axis.
type SolidBodySystem struct{}

func NewSolidBodySystem() *SolidBodySystem { return &SolidBodySystem{} }

func (s *SolidBodySystem) Update(w *ecs.World) {
	disp := map[ecs.Entity]cp.Vector{}
	var order []ecs.Entity

	ecs.ForEach(w, component.SolidBodyComponent.Kind(), func(a ecs.Entity, _ *component.SolidBody) {
		as, ok := shapeOf(w, a)
		if !ok {
			return
		}
		aid := ecs.IDOf(w, a)
		for _, b := range candidates(w, as.bb, a) {
			if ecs.IDOf(w, b) <= aid || !ecs.Has(w, b, component.SolidBodyComponent.Kind()) {
				continue
			}
			bs, ok := shapeOf(w, b)
			if !ok || !overlaps(as, bs) || !layersCompatible(w, a, b) {
				continue
			}
			half := pushVector(as, bs).Mult(0.5)
			for _, e := range []ecs.Entity{a, b} {
				if _, seen := disp[e]; !seen {
					order = append(order, e)
				}
			}
			disp[a] = disp[a].Sub(half)
			disp[b] = disp[b].Add(half)
		}
	})

	for _, e := range order {
		if t, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
			d := disp[e]
			t.X += d.X
			t.Y += d.Y
		}
	}
}
