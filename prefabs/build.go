package prefabs

import (
	"errors"
	"fmt"

	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

type attachFunc func(w *ecs.World, e ecs.Entity, x, y float64) error

var decoders = map[string]func(raw any) (attachFunc, error){
	"velocity": decodeWith(func(s VelocitySpec) (attachFunc, error) {
		return add(component.VelocityComponent.Kind(), &component.Velocity{X: s.X, Y: s.Y}), nil
	}),
	"collider": decodeWith(func(s ColliderSpec) (attachFunc, error) {
		shape := component.Shape(s.Shape)
		switch shape {
		case "":
			shape = component.ShapeAABB
		case component.ShapeAABB, component.ShapeCircle:
		default:
			return nil, fmt.Errorf("unknown shape %q", s.Shape)
		}
		if shape == component.ShapeCircle && s.Radius <= 0 {
			return nil, errors.New("circle needs a positive radius")
		}
		if shape == component.ShapeAABB && (s.Width <= 0 || s.Height <= 0) {
			return nil, errors.New("aabb needs a positive width and height")
		}
		return add(component.ColliderComponent.Kind(), &component.Collider{
			Shape:   shape,
			Width:   s.Width,
			Height:  s.Height,
			Radius:  s.Radius,
			OffsetX: s.OffsetX,
			OffsetY: s.OffsetY,
		}), nil
	}),
	"body": decodeWith(func(s BodySpec) (attachFunc, error) {
		return add(component.BodyComponent.Kind(), &component.Body{GravityScale: s.GravityScale}), nil
	}),
	"health": decodeWith(func(s HealthSpec) (attachFunc, error) {
		if s.Max <= 0 {
			return nil, errors.New("max must be positive")
		}
		cur := s.Current
		if cur == 0 || cur > s.Max {
			cur = s.Max
		}
		return add(component.HealthComponent.Kind(), &component.Health{Current: cur, Max: s.Max}), nil
	}),
	"contact_damage": decodeWith(func(s ContactDamageSpec) (attachFunc, error) {
		return add(component.ContactDamageComponent.Kind(), &component.ContactDamage{
			Amount:    s.Amount,
			Cooldown:  s.Cooldown,
			Knockback: s.Knockback,
			TargetTag: s.TargetTag,
		}), nil
	}),
	"hitbox": decodeWith(func(s HitboxSpec) (attachFunc, error) {
		return add(component.HitboxComponent.Kind(), &component.Hitbox{
			Active:    s.Active,
			Width:     s.Width,
			Height:    s.Height,
			OffsetX:   s.OffsetX,
			OffsetY:   s.OffsetY,
			Damage:    s.Damage,
			Knockback: s.Knockback,
			Cooldown:  s.Cooldown,
			TargetTag: s.TargetTag,
		}), nil
	}),
	"projectile": decodeWith(func(s ProjectileSpec) (attachFunc, error) {
		return add(component.ProjectileComponent.Kind(), &component.Projectile{
			DirX:      s.DirX,
			DirY:      s.DirY,
			Speed:     s.Speed,
			Lifetime:  s.Lifetime,
			Damage:    s.Damage,
			Owner:     s.Owner,
			TargetTag: s.TargetTag,
		}), nil
	}),
	"pickup": decodeWith(func(s PickupSpec) (attachFunc, error) {
		kind := component.PickupEffectKind(s.Effect.Kind)
		switch kind {
		case component.PickupHeal, component.PickupScore:
		case component.PickupCustom:
			if s.Effect.Name == "" {
				return nil, errors.New("custom effect needs a name")
			}
		default:
			return nil, fmt.Errorf("unknown effect %q", s.Effect.Kind)
		}
		return add(component.PickupComponent.Kind(), &component.Pickup{
			Effect:    component.PickupEffect{Kind: kind, Amount: s.Effect.Amount, Name: s.Effect.Name},
			TargetTag: s.TargetTag,
		}), nil
	}),
	"trigger": decodeWith(func(s TriggerSpec) (attachFunc, error) {
		if s.Event == "" {
			return nil, errors.New("trigger needs an event name")
		}
		return add(component.TriggerZoneComponent.Kind(), &component.TriggerZone{
			Radius:    s.Radius,
			EventName: s.Event,
			TargetTag: s.TargetTag,
			OneShot:   s.OneShot,
		}), nil
	}),
	"ai": decodeWith(func(s AISpec) (attachFunc, error) {
		behavior := component.Behavior(s.Behavior)
		switch behavior {
		case component.BehaviorPatrol, component.BehaviorChase, component.BehaviorFlee,
			component.BehaviorGuard, component.BehaviorWander:
		default:
			return nil, fmt.Errorf("unknown behavior %q", s.Behavior)
		}
		waypoints := make([]component.PathNode, 0, len(s.Waypoints))
		for _, wp := range s.Waypoints {
			waypoints = append(waypoints, component.PathNode{X: wp[0], Y: wp[1]})
		}
		return func(w *ecs.World, e ecs.Entity, x, y float64) error {
			return ecs.Add(w, e, component.AIComponent.Kind(), &component.AI{
				Behavior:    behavior,
				Speed:       s.Speed,
				Range:       s.Range,
				Radius:      s.Radius,
				PauseFrames: s.PauseFrames,
				TargetTag:   s.TargetTag,
				Waypoints:   waypoints,
				NeedsSight:  s.NeedsSight,
				HomeX:       x,
				HomeY:       y,
			})
		}, nil
	}),
	"path_follower": decodeWith(func(s PathFollowerSpec) (attachFunc, error) {
		return add(component.PathFollowerComponent.Kind(), &component.PathFollower{
			Speed:        s.Speed,
			RepathFrames: s.RepathFrames,
		}), nil
	}),
	"input": decodeWith(func(struct{}) (attachFunc, error) {
		return add(component.InputComponent.Kind(), &component.Input{}), nil
	}),
	"solid_body": decodeWith(func(struct{}) (attachFunc, error) {
		return add(component.SolidBodyComponent.Kind(), &component.SolidBody{}), nil
	}),
	"collision_layer": decodeWith(func(s CollisionLayerSpec) (attachFunc, error) {
		return add(component.CollisionLayerComponent.Kind(), &component.CollisionLayer{Category: s.Category, Mask: s.Mask}), nil
	}),
	"spawn_point": decodeWith(func(s PointSpec) (attachFunc, error) {
		return add(component.SpawnPointComponent.Kind(), &component.SpawnPoint{X: s.X, Y: s.Y}), nil
	}),
	"invincibility": decodeWith(func(s InvincibilitySpec) (attachFunc, error) {
		return add(component.InvincibilityComponent.Kind(), &component.Invincibility{Ticks: s.Ticks}), nil
	}),
	"ttl": decodeWith(func(s TTLSpec) (attachFunc, error) {
		if s.Frames <= 0 {
			return nil, errors.New("frames must be positive")
		}
		return add(component.TTLComponent.Kind(), &component.TTL{Frames: s.Frames}), nil
	}),
	"score": decodeWith(func(s ScoreSpec) (attachFunc, error) {
		return add(component.ScoreComponent.Kind(), &component.Score{Value: s.Value}), nil
	}),
}

func decodeWith[S any](build func(S) (attachFunc, error)) func(any) (attachFunc, error) {
	return func(raw any) (attachFunc, error) {
		spec, err := DecodeComponentSpec[S](raw)
		if err != nil {
			return nil, err
		}
		return build(spec)
	}
}

func add[T any](kind component.ComponentKind[T], value *T) attachFunc {
	return func(w *ecs.World, e ecs.Entity, _, _ float64) error {
		return ecs.Add(w, e, kind, value)
	}
}

// Plan is a spec whose component blocks all decoded.
type Plan struct {
	spec   EntitySpec
	attach []attachFunc
}

// Prepare decodes every component block of spec without touching a world.
func Prepare(spec EntitySpec) (*Plan, error) {
	names := spec.componentNames()
	p := &Plan{spec: spec, attach: make([]attachFunc, 0, len(names))}
	for _, name := range names {
		dec, ok := decoders[name]
		if !ok {
			return nil, fmt.Errorf("prefabs: unknown component %q", name)
		}
		fn, err := dec(spec.Components[name])
		if err != nil {
			return nil, fmt.Errorf("prefabs: component %s: %w", name, err)
		}
		p.attach = append(p.attach, fn)
	}
	return p, nil
}

// Build creates the entity described by spec under id at (x, y). Nothing is
// added to the world when any component block fails to decode.
func Build(w *ecs.World, id ecs.StableID, spec EntitySpec, x, y float64) (ecs.Entity, error) {
	p, err := Prepare(spec)
	if err != nil {
		return 0, err
	}
	return p.Build(w, id, x, y)
}

// Build creates the planned entity under id, or under a fresh id when id is
// zero. A failure leaves nothing behind in the world.
func (p *Plan) Build(w *ecs.World, id ecs.StableID, x, y float64) (ecs.Entity, error) {
	var e ecs.Entity
	if id == 0 {
		e = ecs.CreateEntity(w)
	} else {
		var err error
		if e, err = ecs.CreateEntityWithID(w, id); err != nil {
			return 0, err
		}
	}

	if err := ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{X: x, Y: y}); err != nil {
		ecs.DestroyEntity(w, e)
		return 0, err
	}
	if err := ecs.Add(w, e, component.TagsComponent.Kind(), component.NewTags(p.spec.Tags...)); err != nil {
		ecs.DestroyEntity(w, e)
		return 0, err
	}
	for _, fn := range p.attach {
		if err := fn(w, e, x, y); err != nil {
			ecs.DestroyEntity(w, e)
			return 0, err
		}
	}
	if p.spec.Script != "" {
		state := copyMap(p.spec.State)
		if state == nil {
			state = map[string]any{}
		}
		if err := ecs.Add(w, e, component.ScriptComponent.Kind(), &component.Script{Name: p.spec.Script, State: state}); err != nil {
			ecs.DestroyEntity(w, e)
			return 0, err
		}
	}
	return e, nil
}
