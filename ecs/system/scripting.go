package system

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/script"
	"go.uber.org/zap"
)

// ScriptOptions bound script execution.
type ScriptOptions struct {
	EntityBudget   time.Duration
	GlobalBudget   time.Duration
	MaxErrorStreak int
}

// ScriptSystem runs every bound entity script, then the global scripts.
// Writes are applied after each invocation returns. Failures are counted per
// entity and a script that fails MaxErrorStreak times in a row is disabled
// until it is reloaded.
type ScriptSystem struct {
	backend  script.Backend
	settings *Settings
	opts     ScriptOptions
	spawn    Spawner
	logger   *zap.Logger

	globals      map[string]struct{}
	globalErrors map[string]int
	recent       []ecs.Event
	out          script.Mutations
}

func NewScriptSystem(backend script.Backend, settings *Settings, opts ScriptOptions, logger *zap.Logger) *ScriptSystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxErrorStreak <= 0 {
		opts.MaxErrorStreak = 8
	}
	return &ScriptSystem{
		backend:      backend,
		settings:     settings,
		opts:         opts,
		logger:       logger,
		globals:      map[string]struct{}{},
		globalErrors: map[string]int{},
	}
}

func (s *ScriptSystem) Backend() script.Backend { return s.backend }

// SetSpawner installs the prefab spawner used by script spawn requests.
func (s *ScriptSystem) SetSpawner(fn Spawner) { s.spawn = fn }

// SetOptions replaces the budgets and the error streak limit.
func (s *ScriptSystem) SetOptions(opts ScriptOptions) {
	if opts.MaxErrorStreak <= 0 {
		opts.MaxErrorStreak = s.opts.MaxErrorStreak
	}
	s.opts = opts
}

// SetRecentEvents hands scripts the events of the previous tick.
func (s *ScriptSystem) SetRecentEvents(events []ecs.Event) {
	s.recent = events
}

// SetGlobal adds or removes name from the global script set.
func (s *ScriptSystem) SetGlobal(name string, global bool) {
	if global {
		s.globals[name] = struct{}{}
		return
	}
	delete(s.globals, name)
	delete(s.globalErrors, name)
}

// Globals lists global scripts in run order.
func (s *ScriptSystem) Globals() []string {
	out := make([]string, 0, len(s.globals))
	for name := range s.globals {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reload clears the failure streak of every entity bound to name and of the
// global script of that name, re-enabling them.
func (s *ScriptSystem) Reload(w *ecs.World, name string) int {
	n := 0
	ecs.ForEach(w, component.ScriptComponent.Kind(), func(_ ecs.Entity, sc *component.Script) {
		if sc.Name != name {
			return
		}
		sc.Errors, sc.Disabled = 0, false
		n++
	})
	delete(s.globalErrors, name)
	return n
}

func (s *ScriptSystem) Update(w *ecs.World) {
	if s.backend == nil {
		return
	}
	dt := s.settings.DT

	ecs.ForEach(w, component.ScriptComponent.Kind(), func(e ecs.Entity, sc *component.Script) {
		if sc.Name == "" || sc.Disabled || !ecs.Alive(w, e) {
			return
		}
		id := ecs.IDOf(w, e)
		view := EntityView(w, e)
		if view.State == nil {
			view.State = map[string]any{}
		}
		world := &scriptWorld{w: w, self: id, recent: s.recent}

		ctx, cancel := budget(s.opts.EntityBudget)
		err := s.backend.RunEntity(ctx, sc.Name, &view, world, dt, &s.out)
		cancel()

		sc.State = view.State
		s.apply(w, id, sc.Name)
		s.record(w, id, sc.Name, err, &sc.Errors, &sc.Disabled)
	})

	ctx, cancel := budget(s.opts.GlobalBudget)
	defer cancel()
	for _, name := range s.Globals() {
		if s.globalErrors[name] >= s.opts.MaxErrorStreak {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = s.backend.RunGlobal(ctx, name, &scriptWorld{w: w, recent: s.recent}, dt, &s.out)
		} else {
			err = script.ErrBudgetExceeded
		}
		s.apply(w, 0, name)

		streak := s.globalErrors[name]
		disabled := false
		s.record(w, 0, name, err, &streak, &disabled)
		s.globalErrors[name] = streak
	}
}

// budget bounds a run in wall-clock time. Zero means unbounded.
func budget(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), d)
}

func (s *ScriptSystem) apply(w *ecs.World, source ecs.StableID, name string) {
	if s.out.Len() == 0 {
		return
	}
	if err := ApplyMutations(w, s.out.Ops, source, s.spawn); err != nil {
		s.logger.Debug("script mutations skipped", zap.String("script", name), zap.Uint64("entity", uint64(source)), zap.Error(err))
	}
	s.out.Reset()
}

// record updates a failure streak for one invocation.
func (s *ScriptSystem) record(w *ecs.World, id ecs.StableID, name string, err error, streak *int, disabled *bool) {
	fields := []zap.Field{zap.String("script", name), zap.Uint64("entity", uint64(id)), zap.Uint64("tick", w.Tick())}
	switch {
	case err == nil:
		*streak = 0
	case errors.Is(err, script.ErrNotLoaded):
		// Bound before its source arrived; nothing ran.
	case errors.Is(err, script.ErrBudgetExceeded):
		s.logger.Warn("script over budget", fields...)
		w.Emit(ecs.Event{Type: ecs.EventScriptBudget, Entity: id, Data: map[string]any{"script": name}})
	default:
		serr := &script.ScriptError{Name: name, Entity: uint64(id), Tick: w.Tick(), Err: err}
		*streak++
		s.logger.Debug("script error", append(fields, zap.Error(serr))...)
		w.Emit(ecs.Event{Type: ecs.EventScriptError, Entity: id, Data: map[string]any{"script": name, "error": err.Error(), "streak": *streak}})
		if *streak >= s.opts.MaxErrorStreak {
			*disabled = true
			s.logger.Warn("script disabled", append(fields, zap.Int("streak", *streak))...)
			w.Emit(ecs.Event{Type: ecs.EventScriptDisabled, Entity: id, Data: map[string]any{"script": name}})
		}
	}
}
