package ecs

import (
	"errors"
	"fmt"

	"github.com/milk9111/simcore/ecs/component"
)

// Near restricts a filter to entities whose bounds touch a circle.
type Near struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Radius float64 `json:"radius" yaml:"radius"`
}

// Filter selects entities for queries and bulk mutation. A non-empty IDs list
// overrides every other field.
type Filter struct {
	IDs       []StableID `json:"ids,omitempty" yaml:"ids"`
	Tag       string     `json:"tag,omitempty" yaml:"tag"`
	Component string     `json:"component,omitempty" yaml:"component"`
	Alive     *bool      `json:"alive,omitempty" yaml:"alive"`
	HasScript *bool      `json:"has_script,omitempty" yaml:"has_script"`
	Near      *Near      `json:"near,omitempty" yaml:"near"`
}

// Alive reports whether the entity has not died: no pending death and, if it
// has health, health above zero.
func Alive(w *World, e Entity) bool {
	if Has(w, e, component.PendingDeathComponent.Kind()) {
		return false
	}
	if h, ok := Get(w, e, component.HealthComponent.Kind()); ok {
		return !h.Dead()
	}
	return true
}

func (f Filter) matches(w *World, e Entity) bool {
	if f.Tag != "" {
		tags, ok := Get(w, e, component.TagsComponent.Kind())
		if !ok || !tags.Has(f.Tag) {
			return false
		}
	}
	if f.Component != "" {
		id, ok := component.IDByName(f.Component)
		if !ok || !w.HasComponentID(e, id) {
			return false
		}
	}
	if f.Alive != nil && Alive(w, e) != *f.Alive {
		return false
	}
	if f.HasScript != nil {
		s, ok := Get(w, e, component.ScriptComponent.Kind())
		has := ok && s.Name != ""
		if has != *f.HasScript {
			return false
		}
	}
	return true
}

// Select returns the entities matching f in StableID order.
func Select(w *World, f Filter) []Entity {
	if w == nil {
		return nil
	}
	if len(f.IDs) > 0 {
		out := make([]Entity, 0, len(f.IDs))
		seen := make(map[StableID]struct{}, len(f.IDs))
		for _, id := range f.IDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if e, ok := w.entities.lookup(id); ok {
				out = append(out, e)
			}
		}
		w.sortByStable(out)
		return out
	}

	var candidates []Entity
	if f.Near != nil {
		if w.spatial == nil {
			return nil
		}
		for _, id := range w.spatial.QueryRadius(f.Near.X, f.Near.Y, f.Near.Radius) {
			if e, ok := w.entities.lookup(StableID(id)); ok {
				candidates = append(candidates, e)
			}
		}
		w.sortByStable(candidates)
	} else {
		candidates = Entities(w)
	}

	out := candidates[:0]
	for _, e := range candidates {
		if f.matches(w, e) {
			out = append(out, e)
		}
	}
	return out
}

// MutateResult separates how many entities the filter matched from how many
// the patch was applied to.
type MutateResult struct {
	Matched int
	Mutated int
	Err     error
}

// Mutate applies patch to each entity matched by f. A failing entity does not
// roll back or stop the others; failures are joined into Err.
func Mutate(w *World, f Filter, patch func(e Entity) error) MutateResult {
	var res MutateResult
	var errs []error
	for _, e := range Select(w, f) {
		res.Matched++
		if err := patch(e); err != nil {
			errs = append(errs, fmt.Errorf("entity %d: %w", IDOf(w, e), err))
			continue
		}
		res.Mutated++
	}
	res.Err = errors.Join(errs...)
	return res
}
