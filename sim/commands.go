package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/ecs/system"
	"github.com/milk9111/simcore/physics"
	"github.com/milk9111/simcore/prefabs"
	"github.com/milk9111/simcore/script"
)

// Status distinguishes how a command went.
type Status int

const (
	StatusOK Status = iota
	// StatusNoMatch means nothing matched: the entity, script or tile the
	// command named does not exist.
	StatusNoMatch
	// StatusPartial means some targets were changed and some failed.
	StatusPartial
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoMatch:
		return "no_match"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the reply to one command.
type Result struct {
	Status   Status         `json:"status"`
	Matched  int            `json:"matched"`
	Mutated  int            `json:"mutated"`
	IDs      []ecs.StableID `json:"ids,omitempty"`
	Entities []EntityState  `json:"entities,omitempty"`
	Payload  []byte         `json:"payload,omitempty"`
	Err      error          `json:"-"`

	// reserved is set when a failed command still used up a StableID.
	reserved bool
}

// ValidationError rejects a malformed command before it is queued.
type ValidationError struct {
	Command string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("sim: invalid command: %v", e.Err)
	}
	return fmt.Sprintf("sim: invalid %s command: %v", e.Command, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Command is a request applied at the start of a tick.
type Command interface {
	Kind() string
	Validate() error
	apply(e *Engine) Result
}

// resultFor folds matched and mutated counts into a status.
func resultFor(matched, mutated int, err error) Result {
	res := Result{Matched: matched, Mutated: mutated, Err: err}
	switch {
	case matched == 0:
		res.Status = StatusNoMatch
		if res.Err == nil {
			res.Err = ecs.ErrNotFound
		}
	case mutated == matched:
		res.Status = StatusOK
	case mutated == 0:
		res.Status = StatusFailed
	default:
		res.Status = StatusPartial
	}
	return res
}

// SpawnCommand creates an entity from a prefab, from an inline spec, or from
// data alone. The StableID is assigned when the command is drained.
type SpawnCommand struct {
	Prefab string              `json:"prefab,omitempty" yaml:"prefab"`
	Spec   *prefabs.EntitySpec `json:"spec,omitempty" yaml:"spec"`
	X      float64             `json:"x" yaml:"x"`
	Y      float64             `json:"y" yaml:"y"`
	Data   map[string]any      `json:"data,omitempty" yaml:"data"`
}

func (c SpawnCommand) Kind() string { return "spawn" }

func (c SpawnCommand) Validate() error {
	if c.Prefab != "" && c.Spec != nil {
		return errors.New("prefab and spec are exclusive")
	}
	if c.Prefab == "" && c.Spec == nil && len(c.Data) == 0 {
		return errors.New("nothing to spawn")
	}
	if !finite(c.X, c.Y) {
		return errors.New("position must be finite")
	}
	if c.Spec != nil {
		return c.Spec.Validate()
	}
	return nil
}

// apply resolves and decodes the spawn before reserving its id, so a spawn
// that cannot be built does not advance the id counter.
func (c SpawnCommand) apply(e *Engine) Result {
	spec, err := c.resolve(e.lib)
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	plan, err := prefabs.Prepare(spec)
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	id := ecs.ReserveID(e.world)
	if _, err := plan.Build(e.world, id, c.X, c.Y); err != nil {
		return Result{Status: StatusFailed, Err: err, reserved: true}
	}
	return Result{Status: StatusOK, Matched: 1, Mutated: 1, IDs: []ecs.StableID{id}}
}

func (c SpawnCommand) resolve(lib *prefabs.Library) (prefabs.EntitySpec, error) {
	if c.Spec == nil {
		return lib.Resolve(c.Prefab, c.Data)
	}
	if len(c.Data) == 0 {
		return *c.Spec, nil
	}
	return c.Spec.Merge(c.Data)
}

// DespawnCommand destroys entities by StableID. Unknown ids are reported,
// not fatal.
type DespawnCommand struct {
	IDs []ecs.StableID `json:"ids" yaml:"ids"`
}

func (c DespawnCommand) Kind() string { return "despawn" }

func (c DespawnCommand) Validate() error {
	if len(c.IDs) == 0 {
		return errors.New("no ids")
	}
	return nil
}

func (c DespawnCommand) apply(e *Engine) Result {
	var errs []error
	res := Result{}
	for _, id := range c.IDs {
		if err := ecs.Despawn(e.world, id); err != nil {
			errs = append(errs, fmt.Errorf("%d: %w", id, err))
			continue
		}
		res.IDs = append(res.IDs, id)
	}
	n := len(res.IDs)
	out := resultFor(n, n, errors.Join(errs...))
	if n > 0 && n < len(c.IDs) {
		out.Status = StatusPartial
	}
	out.IDs = res.IDs
	return out
}

// Patch is a set of field writes. Nil fields are left alone.
type Patch struct {
	X                *float64 `json:"x,omitempty" yaml:"x"`
	Y                *float64 `json:"y,omitempty" yaml:"y"`
	VX               *float64 `json:"vx,omitempty" yaml:"vx"`
	VY               *float64 `json:"vy,omitempty" yaml:"vy"`
	HealthCurrent    *float64 `json:"health_current,omitempty" yaml:"health_current"`
	HealthMax        *float64 `json:"health_max,omitempty" yaml:"health_max"`
	AddTags          []string `json:"add_tags,omitempty" yaml:"add_tags"`
	RemoveTags       []string `json:"remove_tags,omitempty" yaml:"remove_tags"`
	ContactDamage    *float64 `json:"contact_damage,omitempty" yaml:"contact_damage"`
	ContactKnockback *float64 `json:"contact_knockback,omitempty" yaml:"contact_knockback"`
	HitboxActive     *bool    `json:"hitbox_active,omitempty" yaml:"hitbox_active"`
	HitboxDamage     *float64 `json:"hitbox_damage,omitempty" yaml:"hitbox_damage"`
	Alive            *bool    `json:"alive,omitempty" yaml:"alive"`
	Script           *string  `json:"script,omitempty" yaml:"script"`
}

func (p Patch) empty() bool {
	return p.X == nil && p.Y == nil && p.VX == nil && p.VY == nil &&
		p.HealthCurrent == nil && p.HealthMax == nil &&
		len(p.AddTags) == 0 && len(p.RemoveTags) == 0 &&
		p.ContactDamage == nil && p.ContactKnockback == nil &&
		p.HitboxActive == nil && p.HitboxDamage == nil &&
		p.Alive == nil && p.Script == nil
}

func (p Patch) validate() error {
	if p.empty() {
		return errors.New("empty patch")
	}
	for _, v := range []*float64{p.X, p.Y, p.VX, p.VY, p.HealthCurrent, p.HealthMax, p.ContactDamage, p.ContactKnockback, p.HitboxDamage} {
		if v != nil && !finite(*v) {
			return errors.New("values must be finite")
		}
	}
	if p.HealthMax != nil && *p.HealthMax <= 0 {
		return errors.New("health_max must be positive")
	}
	return nil
}

// MutateCommand applies a patch to every entity matched by a filter.
type MutateCommand struct {
	Filter ecs.Filter `json:"filter" yaml:"filter"`
	Patch  Patch      `json:"patch" yaml:"patch"`
}

func (c MutateCommand) Kind() string { return "mutate" }

func (c MutateCommand) Validate() error {
	return c.Patch.validate()
}

func (c MutateCommand) apply(e *Engine) Result {
	w := e.world
	res := ecs.Mutate(w, c.Filter, func(ent ecs.Entity) error {
		return applyPatch(w, ent, c.Patch)
	})
	return resultFor(res.Matched, res.Mutated, res.Err)
}

// checkPatch reports a component the patch writes that e does not have.
func checkPatch(w *ecs.World, e ecs.Entity, p Patch) error {
	required := []struct {
		need bool
		has  bool
		name string
	}{
		{p.X != nil || p.Y != nil, ecs.Has(w, e, component.TransformComponent.Kind()), "transform"},
		{p.HealthCurrent != nil || p.HealthMax != nil, ecs.Has(w, e, component.HealthComponent.Kind()), "health"},
		{p.ContactDamage != nil || p.ContactKnockback != nil, ecs.Has(w, e, component.ContactDamageComponent.Kind()), "contact_damage"},
		{p.HitboxActive != nil || p.HitboxDamage != nil, ecs.Has(w, e, component.HitboxComponent.Kind()), "hitbox"},
	}
	for _, r := range required {
		if r.need && !r.has {
			return fmt.Errorf("no %s", r.name)
		}
	}
	if !ecs.IsAlive(w, e) {
		return ecs.ErrNotFound
	}
	return nil
}

// applyPatch writes every field of p to e or, when e lacks a component the
// patch needs, nothing at all.
func applyPatch(w *ecs.World, e ecs.Entity, p Patch) error {
	if err := checkPatch(w, e, p); err != nil {
		return err
	}
	if p.X != nil || p.Y != nil {
		t, _ := ecs.Get(w, e, component.TransformComponent.Kind())
		if p.X != nil {
			t.X = *p.X
		}
		if p.Y != nil {
			t.Y = *p.Y
		}
	}
	if p.VX != nil || p.VY != nil {
		v, ok := ecs.Get(w, e, component.VelocityComponent.Kind())
		if !ok {
			v = &component.Velocity{}
			if err := ecs.Add(w, e, component.VelocityComponent.Kind(), v); err != nil {
				return err
			}
		}
		if p.VX != nil {
			v.X = *p.VX
		}
		if p.VY != nil {
			v.Y = *p.VY
		}
	}
	if p.HealthCurrent != nil || p.HealthMax != nil {
		h, _ := ecs.Get(w, e, component.HealthComponent.Kind())
		if p.HealthMax != nil {
			h.Max = *p.HealthMax
		}
		if p.HealthCurrent != nil {
			h.Current = *p.HealthCurrent
		}
		h.Current = math.Min(h.Current, h.Max)
	}
	if len(p.AddTags) > 0 || len(p.RemoveTags) > 0 {
		tags, ok := ecs.Get(w, e, component.TagsComponent.Kind())
		if !ok {
			tags = component.NewTags()
			if err := ecs.Add(w, e, component.TagsComponent.Kind(), tags); err != nil {
				return err
			}
		}
		for _, t := range p.AddTags {
			tags.Add(t)
		}
		for _, t := range p.RemoveTags {
			tags.Remove(t)
		}
	}
	if p.ContactDamage != nil || p.ContactKnockback != nil {
		cd, _ := ecs.Get(w, e, component.ContactDamageComponent.Kind())
		if p.ContactDamage != nil {
			cd.Amount = *p.ContactDamage
		}
		if p.ContactKnockback != nil {
			cd.Knockback = *p.ContactKnockback
		}
	}
	if p.HitboxActive != nil || p.HitboxDamage != nil {
		hb, _ := ecs.Get(w, e, component.HitboxComponent.Kind())
		if p.HitboxActive != nil {
			hb.Active = *p.HitboxActive
		}
		if p.HitboxDamage != nil {
			hb.Damage = *p.HitboxDamage
		}
	}
	if p.Script != nil {
		sc, ok := ecs.Get(w, e, component.ScriptComponent.Kind())
		switch {
		case *p.Script == "":
			ecs.Remove(w, e, component.ScriptComponent.Kind())
		case ok:
			sc.Name, sc.Errors, sc.Disabled = *p.Script, 0, false
		default:
			if err := ecs.Add(w, e, component.ScriptComponent.Kind(), &component.Script{Name: *p.Script, State: map[string]any{}}); err != nil {
				return err
			}
		}
	}
	if p.Alive != nil {
		if *p.Alive {
			revive(w, e)
		} else if ecs.Alive(w, e) {
			system.Kill(w, e, 0, "command")
		}
	}
	return nil
}

func revive(w *ecs.World, e ecs.Entity) {
	ecs.Remove(w, e, component.PendingDeathComponent.Kind())
	ecs.Remove(w, e, component.TTLComponent.Kind())
	if h, ok := ecs.Get(w, e, component.HealthComponent.Kind()); ok && h.Dead() {
		h.Current = h.Max
	}
}

// LoadScriptCommand compiles a script and re-enables every entity bound to
// it. A compile failure leaves the previous version running.
type LoadScriptCommand struct {
	Name   string `json:"name" yaml:"name"`
	Source string `json:"source" yaml:"source"`
	Global bool   `json:"global,omitempty" yaml:"global"`
}

func (c LoadScriptCommand) Kind() string { return "load_script" }

func (c LoadScriptCommand) Validate() error {
	if c.Name == "" {
		return errors.New("empty name")
	}
	if c.Source == "" {
		return errors.New("empty source")
	}
	return nil
}

func (c LoadScriptCommand) apply(e *Engine) Result {
	if err := e.scripts.Backend().Load(c.Name, c.Source); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	if c.Global {
		e.scripts.SetGlobal(c.Name, true)
	}
	n := e.scripts.Reload(e.world, c.Name)
	return Result{Status: StatusOK, Matched: n, Mutated: n}
}

// UnloadScriptCommand removes a script. Entities bound to it stay bound and
// skip it until it is loaded again.
type UnloadScriptCommand struct {
	Name string `json:"name" yaml:"name"`
}

func (c UnloadScriptCommand) Kind() string { return "unload_script" }

func (c UnloadScriptCommand) Validate() error {
	if c.Name == "" {
		return errors.New("empty name")
	}
	return nil
}

func (c UnloadScriptCommand) apply(e *Engine) Result {
	e.scripts.SetGlobal(c.Name, false)
	if !e.scripts.Backend().Unload(c.Name) {
		return Result{Status: StatusNoMatch, Err: script.ErrNotLoaded}
	}
	return Result{Status: StatusOK, Matched: 1, Mutated: 1}
}

// SetConfigCommand replaces configuration sections. Omitted sections keep
// their current values.
type SetConfigCommand struct {
	Physics     *physics.Params           `json:"physics,omitempty" yaml:"physics"`
	Interaction *config.InteractionConfig `json:"interaction,omitempty" yaml:"interaction"`
	Scripting   *config.ScriptingConfig   `json:"scripting,omitempty" yaml:"scripting"`
}

func (c SetConfigCommand) Kind() string { return "set_config" }

func (c SetConfigCommand) Validate() error {
	if c.Physics == nil && c.Interaction == nil && c.Scripting == nil {
		return errors.New("no sections")
	}
	if c.Physics != nil && (c.Physics.Gravity < 0 || c.Physics.MoveSpeed < 0) {
		return errors.New("gravity and move_speed must not be negative")
	}
	return nil
}

func (c SetConfigCommand) apply(e *Engine) Result {
	cfg := e.cfg
	if c.Physics != nil {
		cfg.Physics = *c.Physics
	}
	if c.Interaction != nil {
		cfg.Interaction = *c.Interaction
	}
	if c.Scripting != nil {
		cfg.Scripting = *c.Scripting
	}
	if err := cfg.Validate(); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	e.cfg = cfg
	e.settings.Apply(cfg)
	e.scripts.SetOptions(scriptOptions(cfg.Scripting))
	return Result{Status: StatusOK, Matched: 1, Mutated: 1}
}

// SetTileCommand changes one tile.
type SetTileCommand struct {
	X    int `json:"x" yaml:"x"`
	Y    int `json:"y" yaml:"y"`
	Tile int `json:"tile" yaml:"tile"`
}

func (c SetTileCommand) Kind() string { return "set_tile" }

func (c SetTileCommand) Validate() error {
	if c.Tile < 0 {
		return errors.New("negative tile id")
	}
	return nil
}

func (c SetTileCommand) apply(e *Engine) Result {
	if !e.world.Tilemap().SetTile(c.X, c.Y, c.Tile) {
		return Result{Status: StatusNoMatch, Err: fmt.Errorf("tile %d,%d out of bounds", c.X, c.Y)}
	}
	return Result{Status: StatusOK, Matched: 1, Mutated: 1}
}

// InputCommand sets the control state of one entity, or of every
// player-tagged entity with an input component when Entity is zero.
type InputCommand struct {
	Entity ecs.StableID `json:"entity,omitempty" yaml:"entity"`
	Left   bool         `json:"left,omitempty" yaml:"left"`
	Right  bool         `json:"right,omitempty" yaml:"right"`
	Up     bool         `json:"up,omitempty" yaml:"up"`
	Down   bool         `json:"down,omitempty" yaml:"down"`
	Jump   bool         `json:"jump,omitempty" yaml:"jump"`
}

func (c InputCommand) Kind() string { return "input" }

func (c InputCommand) Validate() error { return nil }

func (c InputCommand) apply(e *Engine) Result {
	f := ecs.Filter{Component: component.InputComponent.Name()}
	if c.Entity != 0 {
		f.IDs = []ecs.StableID{c.Entity}
	} else {
		f.Tag = e.settings.PlayerTag
	}
	res := ecs.Mutate(e.world, f, func(ent ecs.Entity) error {
		in, ok := ecs.Get(e.world, ent, component.InputComponent.Kind())
		if !ok {
			return errors.New("no input")
		}
		in.Left, in.Right, in.Up, in.Down = c.Left, c.Right, c.Up, c.Down
		in.SetJump(c.Jump)
		return nil
	})
	return resultFor(res.Matched, res.Mutated, res.Err)
}

// QueryCommand reads entity states at the drain point.
type QueryCommand struct {
	Filter ecs.Filter `json:"filter" yaml:"filter"`
}

func (c QueryCommand) Kind() string { return "query" }

func (c QueryCommand) Validate() error {
	if n := c.Filter.Near; n != nil && (n.Radius < 0 || !finite(n.X, n.Y, n.Radius)) {
		return errors.New("near needs a finite, non-negative radius")
	}
	return nil
}

func (c QueryCommand) apply(e *Engine) Result {
	if c.Filter.Near != nil {
		e.index.Update(e.world)
	}
	ents := ecs.Select(e.world, c.Filter)
	states := make([]EntityState, 0, len(ents))
	for _, ent := range ents {
		states = append(states, stateOf(e.world, ent))
	}
	return Result{Status: StatusOK, Matched: len(states), Entities: states}
}

// SaveCommand serializes the world at the drain point into Result.Payload.
type SaveCommand struct{}

func (c SaveCommand) Kind() string { return "save" }

func (c SaveCommand) Validate() error { return nil }

func (c SaveCommand) apply(e *Engine) Result {
	data, err := e.Save()
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	return Result{Status: StatusOK, Matched: 1, Payload: data}
}

func recorded(cmd Command) bool {
	switch cmd.(type) {
	case QueryCommand, SaveCommand:
		return false
	}
	return true
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
