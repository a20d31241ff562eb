package sim

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// StateHash digests the tick and every entity's id, transform, velocity,
// health, liveness and tags. Two runs with equal hashes at the same tick
// followed the same trajectory up to float bit patterns.
func StateHash(w *ecs.World) uint64 {
	d := xxhash.New()
	var buf [8]byte
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	f64 := func(v float64) { u64(math.Float64bits(v)) }

	u64(w.Tick())
	u64(ecs.Counter(w))
	for _, e := range ecs.Entities(w) {
		u64(uint64(ecs.IDOf(w, e)))
		if t, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
			f64(t.X)
			f64(t.Y)
		}
		if v, ok := ecs.Get(w, e, component.VelocityComponent.Kind()); ok {
			f64(v.X)
			f64(v.Y)
		}
		if h, ok := ecs.Get(w, e, component.HealthComponent.Kind()); ok {
			f64(h.Current)
			f64(h.Max)
		}
		if ecs.Alive(w, e) {
			u64(1)
		} else {
			u64(0)
		}
		if tags, ok := ecs.Get(w, e, component.TagsComponent.Kind()); ok {
			for _, t := range tags.List() {
				_, _ = d.WriteString(t)
				_, _ = d.Write([]byte{0})
			}
		}
	}
	return d.Sum64()
}

// Hash is StateHash of the engine's world.
func (e *Engine) Hash() uint64 {
	return StateHash(e.world)
}
