package prefabs

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// EntitySpec describes an entity as a tag list, an optional script binding and
// a set of named component blocks. Prefab files are EntitySpecs; spawn
// requests may also carry one inline.
type EntitySpec struct {
	Name       string         `yaml:"name" json:"name,omitempty"`
	Tags       []string       `yaml:"tags" json:"tags,omitempty"`
	Script     string         `yaml:"script" json:"script,omitempty"`
	State      map[string]any `yaml:"state" json:"state,omitempty"`
	Components map[string]any `yaml:"components" json:"components,omitempty"`
}

func ParseEntitySpec(data []byte) (EntitySpec, error) {
	var spec EntitySpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return EntitySpec{}, err
	}
	if err := spec.Validate(); err != nil {
		return EntitySpec{}, err
	}
	return spec, nil
}

// Validate decodes every component block once so malformed prefabs are
// rejected before they reach a world.
func (s EntitySpec) Validate() error {
	for _, name := range s.componentNames() {
		dec, ok := decoders[name]
		if !ok {
			return fmt.Errorf("prefabs: unknown component %q", name)
		}
		if _, err := dec(s.Components[name]); err != nil {
			return fmt.Errorf("prefabs: component %s: %w", name, err)
		}
	}
	return nil
}

func (s EntitySpec) componentNames() []string {
	names := make([]string, 0, len(s.Components))
	for name := range s.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge overlays spawn-time data on a copy of the spec. Keys "tags", "script"
// and "state" replace or extend the matching fields; every other key names a
// component block whose fields are merged over the prefab's.
func (s EntitySpec) Merge(data map[string]any) (EntitySpec, error) {
	out := EntitySpec{
		Name:       s.Name,
		Tags:       append([]string(nil), s.Tags...),
		Script:     s.Script,
		State:      copyMap(s.State),
		Components: copyMap(s.Components),
	}
	for key, raw := range data {
		switch key {
		case "tags":
			tags, err := DecodeComponentSpec[[]string](raw)
			if err != nil {
				return EntitySpec{}, fmt.Errorf("prefabs: tags: %w", err)
			}
			out.Tags = append(out.Tags, tags...)
		case "script":
			name, ok := raw.(string)
			if !ok {
				return EntitySpec{}, fmt.Errorf("prefabs: script must be a string, got %T", raw)
			}
			out.Script = name
		case "state":
			state, ok := normalize(raw).(map[string]any)
			if !ok {
				return EntitySpec{}, fmt.Errorf("prefabs: state must be a map, got %T", raw)
			}
			if out.State == nil {
				out.State = map[string]any{}
			}
			for k, v := range state {
				out.State[k] = v
			}
		default:
			if _, ok := decoders[key]; !ok {
				return EntitySpec{}, fmt.Errorf("prefabs: unknown component %q", key)
			}
			if out.Components == nil {
				out.Components = map[string]any{}
			}
			base, _ := normalize(out.Components[key]).(map[string]any)
			patch, ok := normalize(raw).(map[string]any)
			if !ok || base == nil {
				out.Components[key] = normalize(raw)
				continue
			}
			merged := copyMap(base)
			for k, v := range patch {
				merged[k] = v
			}
			out.Components[key] = merged
		}
	}
	return out, nil
}

// DecodeComponentSpec re-decodes a loosely typed block into T through YAML,
// the way prefab files are decoded.
func DecodeComponentSpec[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	b, err := yaml.Marshal(normalize(raw))
	if err != nil {
		return zero, err
	}
	var out T
	if err := yaml.Unmarshal(b, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// normalize turns JSON and YAML decoder output into plain maps, slices and
// float64s.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type VelocitySpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type ColliderSpec struct {
	Shape   string  `yaml:"shape"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Radius  float64 `yaml:"radius"`
	OffsetX float64 `yaml:"offset_x"`
	OffsetY float64 `yaml:"offset_y"`
}

type BodySpec struct {
	GravityScale float64 `yaml:"gravity_scale"`
}

type HealthSpec struct {
	Current float64 `yaml:"current"`
	Max     float64 `yaml:"max"`
}

type ContactDamageSpec struct {
	Amount    float64 `yaml:"amount"`
	Cooldown  int     `yaml:"cooldown"`
	Knockback float64 `yaml:"knockback"`
	TargetTag string  `yaml:"target_tag"`
}

type HitboxSpec struct {
	Active    bool    `yaml:"active"`
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
	OffsetX   float64 `yaml:"offset_x"`
	OffsetY   float64 `yaml:"offset_y"`
	Damage    float64 `yaml:"damage"`
	Knockback float64 `yaml:"knockback"`
	Cooldown  int     `yaml:"cooldown"`
	TargetTag string  `yaml:"target_tag"`
}

type ProjectileSpec struct {
	DirX      float64 `yaml:"dir_x"`
	DirY      float64 `yaml:"dir_y"`
	Speed     float64 `yaml:"speed"`
	Lifetime  int     `yaml:"lifetime"`
	Damage    float64 `yaml:"damage"`
	Owner     uint64  `yaml:"owner"`
	TargetTag string  `yaml:"target_tag"`
}

type PickupSpec struct {
	Effect    PickupEffectSpec `yaml:"effect"`
	TargetTag string           `yaml:"target_tag"`
}

type PickupEffectSpec struct {
	Kind   string  `yaml:"kind"`
	Amount float64 `yaml:"amount"`
	Name   string  `yaml:"name"`
}

type TriggerSpec struct {
	Radius    float64 `yaml:"radius"`
	Event     string  `yaml:"event"`
	TargetTag string  `yaml:"target_tag"`
	OneShot   bool    `yaml:"one_shot"`
}

type AISpec struct {
	Behavior    string       `yaml:"behavior"`
	Speed       float64      `yaml:"speed"`
	Range       float64      `yaml:"range"`
	Radius      float64      `yaml:"radius"`
	PauseFrames int          `yaml:"pause_frames"`
	TargetTag   string       `yaml:"target_tag"`
	Waypoints   [][2]float64 `yaml:"waypoints"`
	NeedsSight  bool         `yaml:"needs_sight"`
}

type PathFollowerSpec struct {
	Speed        float64 `yaml:"speed"`
	RepathFrames int     `yaml:"repath_frames"`
}

type CollisionLayerSpec struct {
	Category uint32 `yaml:"category"`
	Mask     uint32 `yaml:"mask"`
}

type PointSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type InvincibilitySpec struct {
	Ticks int `yaml:"ticks"`
}

type TTLSpec struct {
	Frames int `yaml:"frames"`
}

type ScoreSpec struct {
	Value float64 `yaml:"value"`
}
