// Package sim drives the simulation: a fixed pass order run once per tick,
// a bounded command queue drained at the start of each tick, and the live,
// headless and replay front ends that share the same step.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/system"
	"github.com/milk9111/simcore/levels"
	"github.com/milk9111/simcore/prefabs"
	"github.com/milk9111/simcore/script"
	"github.com/milk9111/simcore/script/tengoscript"
	"github.com/milk9111/simcore/spatial"
	"go.uber.org/zap"
)

var (
	ErrStopped   = errors.New("sim: engine stopped")
	ErrQueueFull = errors.New("sim: command queue full")
	ErrRunning   = errors.New("sim: engine already running")
)

const historySize = 1024

// Options configure an engine. Zero values fall back to the defaults.
type Options struct {
	Config  config.Config
	Logger  *zap.Logger
	Prefabs *prefabs.Library
	// NewBackend builds the scripting backend. Each engine owns its own so
	// script variables never leak between runs.
	NewBackend func(*zap.Logger) script.Backend
	// OnTick is called after every tick with the events it produced.
	OnTick func(tick uint64, events []ecs.Event)
}

func (o Options) withDefaults() Options {
	if o.Config.Tick.Rate == 0 {
		o.Config = config.Default()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Prefabs == nil {
		o.Prefabs = prefabs.NewLibrary(o.Config.Prefabs.Dir)
	}
	if o.NewBackend == nil {
		o.NewBackend = func(l *zap.Logger) script.Backend { return tengoscript.New(l) }
	}
	return o
}

type envelope struct {
	cmd   Command
	reply chan Result
}

// Engine owns a world and advances it one tick at a time. World state is
// touched only by the goroutine running Step or Run; other goroutines talk
// to it through Submit and Enqueue.
type Engine struct {
	cfg      config.Config
	logger   *zap.Logger
	lib      *prefabs.Library
	onTick   func(uint64, []ecs.Event)
	world    *ecs.World
	settings *system.Settings
	scripts  *system.ScriptSystem
	physics  *system.PhysicsSystem
	index    *system.SpatialSystem
	sched    *ecs.Scheduler

	queue   chan envelope
	done    chan struct{}
	stop    sync.Once
	running sync.Mutex
	// sendMu is held for reading around every queue send and for writing
	// when shutdown closes the queue, so no send lands after the final drain.
	sendMu sync.RWMutex
	closed bool

	history *ring
	log     *InputLog
}

// New builds an engine over tm with no entities.
func New(tm *levels.Tilemap, opts Options) (*Engine, error) {
	if tm == nil {
		return nil, fmt.Errorf("%w: nil tilemap", levels.ErrInvalidTilemap)
	}
	opts = opts.withDefaults()
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      opts.Config,
		logger:   opts.Logger,
		lib:      opts.Prefabs,
		onTick:   opts.OnTick,
		world:    ecs.NewWorld(),
		settings: system.SettingsFromConfig(opts.Config),
		queue:    make(chan envelope, opts.Config.Tick.QueueCapacity),
		done:     make(chan struct{}),
		history:  newRing(historySize),
	}
	tm.SetRegistry(opts.Config.Registry())
	e.world.SetTilemap(tm)
	e.world.SetSpatial(spatial.NewGrid(opts.Config.Spatial.CellSize))

	e.scripts = system.NewScriptSystem(opts.NewBackend(opts.Logger.Named("script")), e.settings, scriptOptions(opts.Config.Scripting), opts.Logger.Named("script"))
	e.scripts.SetSpawner(e.lib.Spawn)
	e.physics = system.NewPhysicsSystem(e.settings)

	e.index = system.NewSpatialSystem()
	e.sched = ecs.NewScheduler(
		ecs.Stage{Name: "index", System: e.index},
		ecs.Stage{Name: "ai", System: system.NewAISystem()},
		ecs.Stage{Name: "path", System: system.NewPathFollowerSystem(e.settings)},
		ecs.Stage{Name: "scripts", System: e.scripts},
		ecs.Stage{Name: "physics", System: e.physics},
		ecs.Stage{Name: "reindex", System: e.index},
		ecs.Stage{Name: "contact", System: system.NewContactDamageSystem(e.settings)},
		ecs.Stage{Name: "hitbox", System: system.NewHitboxSystem(e.settings)},
		ecs.Stage{Name: "projectile", System: system.NewProjectileSystem(e.settings)},
		ecs.Stage{Name: "pickup", System: system.NewPickupSystem()},
		ecs.Stage{Name: "trigger", System: system.NewTriggerSystem()},
		ecs.Stage{Name: "solids", System: system.NewSolidBodySystem()},
		ecs.Stage{Name: "death", System: system.NewDeathSystem(e.settings)},
		ecs.Stage{Name: "invincibility", System: system.NewInvincibilitySystem()},
		ecs.Stage{Name: "ttl", System: system.NewTTLSystem()},
	)

	if err := e.loadLibraryScripts(); err != nil {
		return nil, err
	}
	return e, nil
}

// loadLibraryScripts compiles every script the prefab library knows so
// prefabs that bind one run from the first tick.
func (e *Engine) loadLibraryScripts() error {
	srcs, err := e.lib.Scripts()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(srcs))
	for name := range srcs {
		names = append(names, name)
	}
	sort.Strings(names)
	backend := e.scripts.Backend()
	for _, name := range names {
		if err := backend.Load(name, srcs[name]); err != nil {
			return fmt.Errorf("sim: library script %s: %w", name, err)
		}
	}
	return nil
}

// NewFromLevel builds the level's tilemap and spawns its entity list.
func NewFromLevel(lvl *levels.Level, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	tm, err := lvl.Tilemap(opts.Config.Registry())
	if err != nil {
		return nil, err
	}
	e, err := New(tm, opts)
	if err != nil {
		return nil, err
	}
	for i, ent := range lvl.Entities {
		if err := e.lib.Spawn(e.world, 0, ent.Prefab, ent.X, ent.Y, ent.Props); err != nil {
			return nil, fmt.Errorf("sim: level entity %d (%s): %w", i, ent.Prefab, err)
		}
	}
	return e, nil
}

func scriptOptions(c config.ScriptingConfig) system.ScriptOptions {
	return system.ScriptOptions{
		EntityBudget:   c.EntityBudget,
		GlobalBudget:   c.GlobalBudget,
		MaxErrorStreak: c.MaxErrorStreak,
	}
}

// World exposes the engine's world. It must only be used from the goroutine
// that steps the engine, or while it is stopped.
func (e *Engine) World() *ecs.World { return e.world }

func (e *Engine) Tick() uint64 { return e.world.Tick() }

func (e *Engine) Config() config.Config { return e.cfg }

func (e *Engine) Prefabs() *prefabs.Library { return e.lib }

// Backend is the engine's scripting backend.
func (e *Engine) Backend() script.Backend { return e.scripts.Backend() }

// InputLog returns the log being recorded, or nil when StartRecording was
// never called.
func (e *Engine) InputLog() *InputLog { return e.log }

// History returns the most recent events, oldest first.
func (e *Engine) History() []ecs.Event { return e.history.list() }

// CollisionChecks reports how many tile probes the physics pass has made.
func (e *Engine) CollisionChecks() uint64 {
	return e.physics.Counters().CollisionChecks
}

// Step drains every queued command, then runs one tick.
func (e *Engine) Step() []ecs.Event {
	return e.step(e.drainQueue())
}

// StepWith applies cmds as if they had been queued, then runs one tick.
// Headless and replay drivers use it to inject commands at exact ticks.
func (e *Engine) StepWith(cmds ...Command) []ecs.Event {
	pending := make([]envelope, 0, len(cmds))
	for _, c := range cmds {
		pending = append(pending, envelope{cmd: c})
	}
	return e.step(append(pending, e.drainQueue()...))
}

// step is the single driver shared by the live loop, headless simulation
// and replay.
func (e *Engine) step(pending []envelope) []ecs.Event {
	tick := e.world.Tick()
	for _, env := range pending {
		res := e.apply(env.cmd)
		if res.Err != nil {
			e.logger.Debug("command failed",
				zap.Uint64("tick", tick),
				zap.String("command", env.cmd.Kind()),
				zap.String("status", res.Status.String()),
				zap.Error(res.Err))
		}
		if env.reply != nil {
			env.reply <- res
		}
	}

	e.sched.Update(e.world)
	if budget := e.cfg.TickInterval(); budget > 0 && e.sched.Elapsed() > budget {
		stage, d := e.sched.Slowest()
		e.logger.Debug("tick overran",
			zap.Uint64("tick", tick),
			zap.Duration("elapsed", e.sched.Elapsed()),
			zap.String("slowest", stage),
			zap.Duration("slowest_elapsed", d))
	}

	events := e.world.Events().Drain()
	e.history.push(events...)
	e.scripts.SetRecentEvents(events)
	if e.onTick != nil {
		e.onTick(tick, events)
	}
	e.world.AdvanceTick()
	return events
}

func (e *Engine) apply(cmd Command) Result {
	if err := cmd.Validate(); err != nil {
		return Result{Status: StatusFailed, Err: &ValidationError{Command: cmd.Kind(), Err: err}}
	}
	res := cmd.apply(e)
	if e.log != nil && recorded(cmd) && (res.Status != StatusFailed || res.reserved) {
		e.log.add(e.world.Tick(), cmd)
	}
	return res
}

func (e *Engine) drainQueue() []envelope {
	n := len(e.queue)
	if n == 0 {
		return nil
	}
	out := make([]envelope, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, <-e.queue)
	}
	return out
}

// Enqueue validates cmd and queues it without blocking. The result arrives
// on the returned channel when the next tick drains it.
func (e *Engine) Enqueue(cmd Command) (<-chan Result, error) {
	if err := validate(cmd); err != nil {
		return nil, err
	}
	env := envelope{cmd: cmd, reply: make(chan Result, 1)}
	e.sendMu.RLock()
	defer e.sendMu.RUnlock()
	if e.closed {
		return nil, ErrStopped
	}
	select {
	case <-e.done:
		return nil, ErrStopped
	default:
	}
	select {
	case e.queue <- env:
		return env.reply, nil
	default:
		return nil, ErrQueueFull
	}
}

// Submit validates cmd, queues it, and waits for its result. It blocks while
// the queue is full but never blocks the tick loop.
func (e *Engine) Submit(ctx context.Context, cmd Command) (Result, error) {
	if err := validate(cmd); err != nil {
		return Result{Status: StatusFailed, Err: err}, err
	}
	env := envelope{cmd: cmd, reply: make(chan Result, 1)}
	if err := e.send(ctx, env); err != nil {
		return Result{}, err
	}
	select {
	case res := <-env.reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-e.done:
		return Result{}, ErrStopped
	}
}

// send blocks until env is queued. Once shutdown has begun it fails with
// ErrStopped instead.
func (e *Engine) send(ctx context.Context, env envelope) error {
	e.sendMu.RLock()
	defer e.sendMu.RUnlock()
	if e.closed {
		return ErrStopped
	}
	select {
	case e.queue <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
}

func validate(cmd Command) error {
	if cmd == nil {
		return &ValidationError{Err: errors.New("nil command")}
	}
	if err := cmd.Validate(); err != nil {
		return &ValidationError{Command: cmd.Kind(), Err: err}
	}
	return nil
}

// Run paces Step to the configured tick rate until ctx is cancelled or Stop
// is called. Commands still queued when it returns are answered with
// ErrStopped.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.TryLock() {
		return ErrRunning
	}
	defer e.running.Unlock()

	ticker := time.NewTicker(e.cfg.TickInterval())
	defer ticker.Stop()

	e.logger.Info("engine started",
		zap.Int("rate", e.cfg.Tick.Rate),
		zap.Uint64("tick", e.world.Tick()))

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		case <-e.done:
			e.shutdown()
			return nil
		case <-ticker.C:
			e.Step()
		}
	}
}

// Stop ends Run and rejects further commands.
func (e *Engine) Stop() {
	e.stop.Do(func() { close(e.done) })
}

func (e *Engine) shutdown() {
	e.Stop()
	e.sendMu.Lock()
	e.closed = true
	e.sendMu.Unlock()
	for _, env := range e.drainQueue() {
		env.reply <- Result{Status: StatusFailed, Err: ErrStopped}
	}
	e.logger.Info("engine stopped", zap.Uint64("tick", e.world.Tick()))
}

type ring struct {
	mu    sync.Mutex
	items []ecs.Event
	next  int
	full  bool
}

func newRing(size int) *ring {
	return &ring{items: make([]ecs.Event, size)}
}

func (r *ring) push(events ...ecs.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range events {
		r.items[r.next] = ev
		r.next = (r.next + 1) % len(r.items)
		if r.next == 0 {
			r.full = true
		}
	}
}

func (r *ring) list() []ecs.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]ecs.Event(nil), r.items[:r.next]...)
	}
	out := make([]ecs.Event, 0, len(r.items))
	out = append(out, r.items[r.next:]...)
	return append(out, r.items[:r.next]...)
}
