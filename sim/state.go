package sim

import (
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

// EntityState is the read view of one entity handed to collaborators.
type EntityState struct {
	ID        ecs.StableID   `json:"id" yaml:"id"`
	X         float64        `json:"x" yaml:"x"`
	Y         float64        `json:"y" yaml:"y"`
	VX        float64        `json:"vx" yaml:"vx"`
	VY        float64        `json:"vy" yaml:"vy"`
	Grounded  bool           `json:"grounded" yaml:"grounded"`
	Alive     bool           `json:"alive" yaml:"alive"`
	Health    *float64       `json:"health,omitempty" yaml:"health,omitempty"`
	MaxHealth *float64       `json:"max_health,omitempty" yaml:"max_health,omitempty"`
	Tags      []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Script    string         `json:"script,omitempty" yaml:"script,omitempty"`
	State     map[string]any `json:"state,omitempty" yaml:"state,omitempty"`
}

func stateOf(w *ecs.World, e ecs.Entity) EntityState {
	s := EntityState{ID: ecs.IDOf(w, e), Alive: ecs.Alive(w, e)}
	if t, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
		s.X, s.Y = t.X, t.Y
	}
	if v, ok := ecs.Get(w, e, component.VelocityComponent.Kind()); ok {
		s.VX, s.VY = v.X, v.Y
	}
	if b, ok := ecs.Get(w, e, component.BodyComponent.Kind()); ok {
		s.Grounded = b.Grounded
	}
	if h, ok := ecs.Get(w, e, component.HealthComponent.Kind()); ok {
		cur, max := h.Current, h.Max
		s.Health, s.MaxHealth = &cur, &max
	}
	if tags, ok := ecs.Get(w, e, component.TagsComponent.Kind()); ok {
		s.Tags = tags.List()
	}
	if sc, ok := ecs.Get(w, e, component.ScriptComponent.Kind()); ok {
		s.Script = sc.Name
		if len(sc.State) > 0 {
			s.State = make(map[string]any, len(sc.State))
			for k, v := range sc.State {
				s.State[k] = v
			}
		}
	}
	return s
}

// States returns the read view of every entity in StableID order.
func (e *Engine) States() []EntityState {
	ents := ecs.Entities(e.world)
	out := make([]EntityState, 0, len(ents))
	for _, ent := range ents {
		out = append(out, stateOf(e.world, ent))
	}
	return out
}
