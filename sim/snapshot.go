package sim

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/levels"
)

const snapshotVersion = 1

var ErrSnapshotVersion = errors.New("sim: unsupported snapshot version")

// Snapshot is the persisted form of an engine: the tilemap, every entity
// with its full component set, the StableID counter, and the script
// runtime. Per-pair contact cooldowns and trigger occupancy are not part of
// it.
type Snapshot struct {
	Version  int               `json:"version"`
	Tick     uint64            `json:"tick"`
	Counter  uint64            `json:"counter"`
	Level    *levels.Level     `json:"level"`
	Entities []EntitySnapshot  `json:"entities"`
	Scripts  map[string]string `json:"scripts,omitempty"`
	Globals  []string          `json:"globals,omitempty"`
	Vars     map[string]any    `json:"vars,omitempty"`
}

type EntitySnapshot struct {
	ID         ecs.StableID               `json:"id"`
	Components map[string]json.RawMessage `json:"components"`
}

type codec struct {
	save func(w *ecs.World, e ecs.Entity) (any, bool)
	load func(w *ecs.World, e ecs.Entity, raw json.RawMessage) error
}

func typed[T any](h component.ComponentHandle[T]) codec {
	return codec{
		save: func(w *ecs.World, e ecs.Entity) (any, bool) {
			v, ok := ecs.Get(w, e, h.Kind())
			return v, ok
		},
		load: func(w *ecs.World, e ecs.Entity, raw json.RawMessage) error {
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return err
			}
			return ecs.Add(w, e, h.Kind(), v)
		},
	}
}

type savedScript struct {
	Name     string         `json:"name"`
	State    map[string]any `json:"state,omitempty"`
	Errors   int            `json:"errors,omitempty"`
	Disabled bool           `json:"disabled,omitempty"`
}

var codecs = map[string]codec{
	component.TransformComponent.Name():      typed(component.TransformComponent),
	component.VelocityComponent.Name():       typed(component.VelocityComponent),
	component.ColliderComponent.Name():       typed(component.ColliderComponent),
	component.CollisionLayerComponent.Name(): typed(component.CollisionLayerComponent),
	component.BodyComponent.Name():           typed(component.BodyComponent),
	component.SolidBodyComponent.Name():      typed(component.SolidBodyComponent),
	component.InputComponent.Name():          typed(component.InputComponent),
	component.HealthComponent.Name():         typed(component.HealthComponent),
	component.ScoreComponent.Name():          typed(component.ScoreComponent),
	component.ContactDamageComponent.Name():  typed(component.ContactDamageComponent),
	component.HitboxComponent.Name():         typed(component.HitboxComponent),
	component.ProjectileComponent.Name():     typed(component.ProjectileComponent),
	component.PickupComponent.Name():         typed(component.PickupComponent),
	component.TriggerZoneComponent.Name():    typed(component.TriggerZoneComponent),
	component.AIComponent.Name():             typed(component.AIComponent),
	component.PathFollowerComponent.Name():   typed(component.PathFollowerComponent),
	component.InvincibilityComponent.Name():  typed(component.InvincibilityComponent),
	component.TTLComponent.Name():            typed(component.TTLComponent),
	component.PendingDeathComponent.Name():   typed(component.PendingDeathComponent),
	component.SpawnPointComponent.Name():     typed(component.SpawnPointComponent),
	component.TagsComponent.Name(): {
		save: func(w *ecs.World, e ecs.Entity) (any, bool) {
			tags, ok := ecs.Get(w, e, component.TagsComponent.Kind())
			if !ok {
				return nil, false
			}
			return tags.List(), true
		},
		load: func(w *ecs.World, e ecs.Entity, raw json.RawMessage) error {
			var list []string
			if err := json.Unmarshal(raw, &list); err != nil {
				return err
			}
			return ecs.Add(w, e, component.TagsComponent.Kind(), component.NewTags(list...))
		},
	},
	component.ScriptComponent.Name(): {
		save: func(w *ecs.World, e ecs.Entity) (any, bool) {
			sc, ok := ecs.Get(w, e, component.ScriptComponent.Kind())
			if !ok {
				return nil, false
			}
			state, _ := encodeValue(sc.State).(map[string]any)
			return savedScript{Name: sc.Name, State: state, Errors: sc.Errors, Disabled: sc.Disabled}, true
		},
		load: func(w *ecs.World, e ecs.Entity, raw json.RawMessage) error {
			var s savedScript
			if err := decodeNumbers(raw, &s); err != nil {
				return err
			}
			state, _ := decodeValue(s.State).(map[string]any)
			if state == nil {
				state = map[string]any{}
			}
			return ecs.Add(w, e, component.ScriptComponent.Kind(), &component.Script{
				Name:     s.Name,
				State:    state,
				Errors:   s.Errors,
				Disabled: s.Disabled,
			})
		},
	},
}

// Snapshot captures the engine's current state. It must be called from the
// goroutine that steps the engine; live callers use SaveCommand.
func (e *Engine) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Version: snapshotVersion,
		Tick:    e.world.Tick(),
		Counter: ecs.Counter(e.world),
		Level:   levels.FromTilemap(e.world.Tilemap()),
		Globals: e.scripts.Globals(),
	}

	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, ent := range ecs.Entities(e.world) {
		es := EntitySnapshot{ID: ecs.IDOf(e.world, ent), Components: map[string]json.RawMessage{}}
		for _, name := range names {
			v, ok := codecs[name].save(e.world, ent)
			if !ok {
				continue
			}
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("sim: save entity %d %s: %w", es.ID, name, err)
			}
			es.Components[name] = raw
		}
		snap.Entities = append(snap.Entities, es)
	}

	backend := e.scripts.Backend()
	if list := backend.List(); len(list) > 0 {
		snap.Scripts = make(map[string]string, len(list))
		for _, name := range list {
			if src, ok := backend.Source(name); ok {
				snap.Scripts[name] = src
			}
		}
	}
	if vars := backend.Vars(); len(vars) > 0 {
		snap.Vars, _ = encodeValue(vars).(map[string]any)
	}
	return snap, nil
}

// Save serializes Snapshot as JSON.
func (e *Engine) Save() ([]byte, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(snap)
}

// Restore builds an engine from Save output. Restored entities keep their
// StableIDs and later spawns continue past the saved counter.
func Restore(data []byte, opts Options) (*Engine, error) {
	var snap Snapshot
	if err := decodeNumbers(data, &snap); err != nil {
		return nil, fmt.Errorf("sim: decode snapshot: %w", err)
	}
	return FromSnapshot(&snap, opts)
}

func FromSnapshot(snap *Snapshot, opts Options) (*Engine, error) {
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}
	if snap.Level == nil {
		return nil, fmt.Errorf("%w: snapshot has no level", levels.ErrInvalidTilemap)
	}
	opts = opts.withDefaults()
	tm, err := snap.Level.Tilemap(opts.Config.Registry())
	if err != nil {
		return nil, err
	}
	e, err := New(tm, opts)
	if err != nil {
		return nil, err
	}

	for _, es := range snap.Entities {
		ent, err := ecs.CreateEntityWithID(e.world, es.ID)
		if err != nil {
			return nil, err
		}
		for name, raw := range es.Components {
			c, ok := codecs[name]
			if !ok {
				return nil, fmt.Errorf("sim: entity %d: unknown component %q", es.ID, name)
			}
			if err := c.load(e.world, ent, raw); err != nil {
				return nil, fmt.Errorf("sim: entity %d %s: %w", es.ID, name, err)
			}
		}
	}
	ecs.RestoreCounter(e.world, snap.Counter)
	e.world.SetTick(snap.Tick)

	backend := e.scripts.Backend()
	names := make([]string, 0, len(snap.Scripts))
	for name := range snap.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := backend.Load(name, snap.Scripts[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range snap.Globals {
		e.scripts.SetGlobal(name, true)
	}
	if len(snap.Vars) > 0 {
		vars, _ := decodeValue(snap.Vars).(map[string]any)
		backend.RestoreVars(vars)
	}
	return e, nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// encodeValue keeps the int/float distinction of script values through
// JSON: integral floats are written with a trailing ".0".
func encodeValue(v any) any {
	switch t := v.(type) {
	case float64:
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return json.Number(s)
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case int:
		return json.Number(strconv.Itoa(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = encodeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = encodeValue(val)
		}
		return out
	default:
		return v
	}
}

func decodeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = decodeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = decodeValue(val)
		}
		return out
	default:
		return v
	}
}
