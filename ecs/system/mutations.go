package system

import (
	"errors"
	"fmt"

	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/script"
)

// Spawner instantiates a named prefab under an already reserved StableID.
type Spawner func(w *ecs.World, id ecs.StableID, prefab string, x, y float64, data map[string]any) error

// ApplyMutations applies buffered script writes in order. Ops aimed at
// entities that no longer exist are skipped and reported in the joined
// error; the remaining ops still apply.
func ApplyMutations(w *ecs.World, ops []script.Op, source ecs.StableID, spawn Spawner) error {
	var errs []error
	for _, op := range ops {
		if err := applyOp(w, op, source, spawn); err != nil {
			errs = append(errs, fmt.Errorf("%s %d: %w", op.Kind, op.Target, err))
		}
	}
	return errors.Join(errs...)
}

func applyOp(w *ecs.World, op script.Op, source ecs.StableID, spawn Spawner) error {
	switch op.Kind {
	case script.OpEmit:
		w.Emit(ecs.Event{Type: op.Name, Entity: source, Data: op.Data})
		return nil
	case script.OpSpawn:
		if spawn == nil {
			return errors.New("no spawner")
		}
		return spawn(w, ecs.StableID(op.Target), op.Name, op.X, op.Y, op.Data)
	case script.OpDespawn:
		return ecs.Despawn(w, ecs.StableID(op.Target))
	}

	e, ok := ecs.Lookup(w, ecs.StableID(op.Target))
	if !ok {
		return ecs.ErrNotFound
	}

	switch op.Kind {
	case script.OpSetPosition:
		t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
		if !ok {
			return ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{X: op.X, Y: op.Y})
		}
		t.X, t.Y = op.X, op.Y
	case script.OpSetVelocity:
		v, ok := ecs.Get(w, e, component.VelocityComponent.Kind())
		if !ok {
			return ecs.Add(w, e, component.VelocityComponent.Kind(), &component.Velocity{X: op.X, Y: op.Y})
		}
		v.X, v.Y = op.X, op.Y
	case script.OpSetHealth:
		h, ok := ecs.Get(w, e, component.HealthComponent.Kind())
		if !ok {
			return fmt.Errorf("no health")
		}
		h.Current = min(op.Value, h.Max)
	case script.OpAddTag:
		tags, ok := ecs.Get(w, e, component.TagsComponent.Kind())
		if !ok {
			return ecs.Add(w, e, component.TagsComponent.Kind(), component.NewTags(op.Name))
		}
		tags.Add(op.Name)
	case script.OpRemoveTag:
		if tags, ok := ecs.Get(w, e, component.TagsComponent.Kind()); ok {
			tags.Remove(op.Name)
		}
	case script.OpSetHitbox:
		hb, ok := ecs.Get(w, e, component.HitboxComponent.Kind())
		if !ok {
			return fmt.Errorf("no hitbox")
		}
		hb.Active = op.Flag
	default:
		return fmt.Errorf("unknown op")
	}
	return nil
}
