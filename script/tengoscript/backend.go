// Package tengoscript runs behavior scripts written in Tengo.
//
// Every script defines update. Entity scripts receive (entity, engine, dt)
// and global scripts receive (engine, dt). The entity map exposes id, x, y,
// vx, vy, grounded, health, max_health, alive, tags and a persistent state
// map; writes to x, y, vx, vy, health and state are picked up after the call.
package tengoscript

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/simcore/script"
	"go.uber.org/zap"
)

const dispatchScript = `
if __mode == "entity" {
	update(__entity, __engine, __dt)
} else if __mode == "global" {
	update(__engine, __dt)
}
`

// Modules are the stdlib modules scripts may import. Modules that read the
// clock, randomness or the OS are left out to keep runs reproducible.
var Modules = []string{"math", "text", "enum", "json", "base64", "hex", "fmt"}

type program struct {
	source   string
	compiled *tengo.Compiled
}

// Backend implements script.Backend on Tengo.
type Backend struct {
	programs map[string]*program
	vars     script.Vars
	logger   *zap.Logger
}

var _ script.Backend = (*Backend)(nil)

func New(logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{programs: map[string]*program{}, logger: logger}
}

// Load compiles source under name. On failure the previous program, if any,
// stays in place.
func (b *Backend) Load(name, source string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &script.CompileError{Name: name, Err: errors.New("empty script name")}
	}

	s := tengo.NewScript([]byte(source + "\n" + dispatchScript))
	_ = s.Add("__mode", "")
	_ = s.Add("__entity", map[string]any{})
	_ = s.Add("__engine", map[string]any{})
	_ = s.Add("__dt", 0.0)
	s.SetImports(stdlib.GetModuleMap(Modules...))

	compiled, err := s.Compile()
	if err != nil {
		return &script.CompileError{Name: name, Err: err}
	}
	b.programs[name] = &program{source: source, compiled: compiled}
	return nil
}

func (b *Backend) Unload(name string) bool {
	if _, ok := b.programs[name]; !ok {
		return false
	}
	delete(b.programs, name)
	return true
}

func (b *Backend) List() []string {
	out := make([]string, 0, len(b.programs))
	for name := range b.programs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (b *Backend) Source(name string) (string, bool) {
	p, ok := b.programs[name]
	if !ok {
		return "", false
	}
	return p.source, true
}

func (b *Backend) GetVar(name string) (any, bool) {
	return b.vars.Get(name)
}

func (b *Backend) SetVar(name string, value any) {
	b.vars.Set(name, value)
}

func (b *Backend) Vars() map[string]any {
	return b.vars.Snapshot()
}

func (b *Backend) RestoreVars(vars map[string]any) {
	b.vars.Restore(vars)
}

func (b *Backend) RunEntity(ctx context.Context, name string, entity *script.EntityView, world script.WorldView, dt float64, out *script.Mutations) error {
	p, ok := b.programs[name]
	if !ok {
		return script.ErrNotLoaded
	}
	if entity == nil {
		return fmt.Errorf("script: nil entity view")
	}

	entityObj := entityToObject(*entity, true)
	engine := b.buildEngine(world, out)
	if err := b.setGlobals(p, "entity", entityObj, engine, dt); err != nil {
		return err
	}

	err := p.compiled.RunContext(ctx)
	readBack(entityObj, entity, out)
	return runError(err)
}

func (b *Backend) RunGlobal(ctx context.Context, name string, world script.WorldView, dt float64, out *script.Mutations) error {
	p, ok := b.programs[name]
	if !ok {
		return script.ErrNotLoaded
	}
	engine := b.buildEngine(world, out)
	empty := &tengo.Map{Value: map[string]tengo.Object{}}
	if err := b.setGlobals(p, "global", empty, engine, dt); err != nil {
		return err
	}
	return runError(p.compiled.RunContext(ctx))
}

func (b *Backend) setGlobals(p *program, mode string, entity *tengo.Map, engine *tengo.ImmutableMap, dt float64) error {
	if err := p.compiled.Set("__mode", mode); err != nil {
		return err
	}
	if err := p.compiled.Set("__entity", entity); err != nil {
		return err
	}
	if err := p.compiled.Set("__engine", engine); err != nil {
		return err
	}
	return p.compiled.Set("__dt", dt)
}

func runError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", script.ErrBudgetExceeded, err)
	}
	return err
}

// readBack turns changes the script made to its entity map into buffered
// writes and copies the state map back.
func readBack(obj *tengo.Map, entity *script.EntityView, out *script.Mutations) {
	get := func(key string, fallback float64) float64 {
		if v, ok := obj.Value[key]; ok {
			if f, ok := tengo.ToFloat64(v); ok {
				return f
			}
		}
		return fallback
	}

	x, y := get("x", entity.X), get("y", entity.Y)
	if x != entity.X || y != entity.Y {
		out.SetPosition(entity.ID, x, y)
		entity.X, entity.Y = x, y
	}
	vx, vy := get("vx", entity.VX), get("vy", entity.VY)
	if vx != entity.VX || vy != entity.VY {
		out.SetVelocity(entity.ID, vx, vy)
		entity.VX, entity.VY = vx, vy
	}
	if entity.HasHealth {
		if h := get("health", entity.Health); h != entity.Health {
			out.SetHealth(entity.ID, h)
			entity.Health = h
		}
	}

	if st, ok := obj.Value["state"]; ok {
		if m, ok := objectToAny(st).(map[string]any); ok {
			entity.State = m
		}
	}
}
