package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/levels"
)

type Outcome string

const (
	OutcomeGoalReached Outcome = "goal_reached"
	OutcomeDied        Outcome = "died"
	OutcomeTimeout     Outcome = "timeout"
)

// Input actions a scheduled input may hold.
const (
	ActionLeft  = "left"
	ActionRight = "right"
	ActionUp    = "up"
	ActionDown  = "down"
	ActionJump  = "jump"
)

const defaultMaxTicks = 600

// Request describes a headless run: a level and its entities, inputs
// scheduled at tick numbers, and when to stop.
type Request struct {
	Level *levels.Level `yaml:"level" json:"level"`
	// Entities are spawned after the level's own entity list.
	Entities []levels.Entity   `yaml:"entities" json:"entities,omitempty"`
	Scripts  map[string]string `yaml:"scripts" json:"scripts,omitempty"`
	Globals  []string          `yaml:"globals" json:"globals,omitempty"`
	Inputs   []ScheduledInput  `yaml:"inputs" json:"inputs,omitempty"`
	MaxTicks uint64            `yaml:"max_ticks" json:"max_ticks"`
	// RecordInterval is the trace sampling period in ticks; 0 disables the
	// trace.
	RecordInterval uint64 `yaml:"record_interval" json:"record_interval"`
	// Trace lists the entities to trace. Empty traces player-tagged
	// entities.
	Trace []ecs.StableID `yaml:"trace" json:"trace,omitempty"`
	// Goal ends the run when a player-tagged entity comes within Radius.
	// Without it the tilemap goal tile is used.
	Goal *Goal `yaml:"goal" json:"goal,omitempty"`
}

type Goal struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Radius float64 `yaml:"radius" json:"radius"`
}

// ScheduledInput holds Action for Duration ticks starting at Tick. A zero
// duration is one tick.
type ScheduledInput struct {
	Tick     uint64       `yaml:"tick" json:"tick"`
	Action   string       `yaml:"action" json:"action"`
	Duration uint64       `yaml:"duration" json:"duration,omitempty"`
	Entity   ecs.StableID `yaml:"entity" json:"entity,omitempty"`
}

func (in ScheduledInput) active(tick uint64) bool {
	d := in.Duration
	if d == 0 {
		d = 1
	}
	return tick >= in.Tick && tick < in.Tick+d
}

func (r Request) Validate() error {
	if r.Level == nil {
		return errors.New("sim: request has no level")
	}
	for i, in := range r.Inputs {
		switch in.Action {
		case ActionLeft, ActionRight, ActionUp, ActionDown, ActionJump:
		default:
			return fmt.Errorf("sim: input %d: unknown action %q", i, in.Action)
		}
	}
	if r.Goal != nil && (r.Goal.Radius <= 0 || math.IsNaN(r.Goal.Radius)) {
		return errors.New("sim: goal radius must be positive")
	}
	return nil
}

func LoadRequest(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, err
	}
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("sim: parse request %s: %w", path, err)
	}
	return req, nil
}

type TracePoint struct {
	ID       ecs.StableID `json:"id" yaml:"id"`
	X        float64      `json:"x" yaml:"x"`
	Y        float64      `json:"y" yaml:"y"`
	VX       float64      `json:"vx" yaml:"vx"`
	VY       float64      `json:"vy" yaml:"vy"`
	Grounded bool         `json:"grounded" yaml:"grounded"`
}

type TraceFrame struct {
	Tick     uint64       `json:"tick" yaml:"tick"`
	Entities []TracePoint `json:"entities" yaml:"entities"`
}

type SimResult struct {
	Outcome Outcome       `json:"outcome" yaml:"outcome"`
	Ticks   uint64        `json:"ticks" yaml:"ticks"`
	Trace   []TraceFrame  `json:"trace,omitempty" yaml:"trace,omitempty"`
	Events  []ecs.Event   `json:"events,omitempty" yaml:"events,omitempty"`
	Final   []EntityState `json:"final" yaml:"final"`
	Hash    uint64        `json:"hash" yaml:"hash"`
}

// Simulate runs req back to back on a fresh engine through the same step
// the live loop uses.
func Simulate(ctx context.Context, req Request, opts Options) (*SimResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lvl := *req.Level
	lvl.Entities = append(append([]levels.Entity(nil), req.Level.Entities...), req.Entities...)
	e, err := NewFromLevel(&lvl, opts)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(req.Scripts))
	for name := range req.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	globals := map[string]bool{}
	for _, g := range req.Globals {
		globals[g] = true
	}
	for _, name := range names {
		res := e.apply(LoadScriptCommand{Name: name, Source: req.Scripts[name], Global: globals[name]})
		if res.Status == StatusFailed {
			return nil, res.Err
		}
	}

	maxTicks := req.MaxTicks
	if maxTicks == 0 {
		maxTicks = defaultMaxTicks
	}
	playerTag := e.settings.PlayerTag

	out := &SimResult{Outcome: OutcomeTimeout}
	for n := uint64(0); n < maxTicks; n++ {
		if n%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		tick := e.Tick()
		events := e.StepWith(inputCommands(req.Inputs, tick)...)
		out.Events = append(out.Events, events...)
		out.Ticks = n + 1

		if req.RecordInterval > 0 && n%req.RecordInterval == 0 {
			out.Trace = append(out.Trace, e.traceFrame(tick, req.Trace))
		}
		if o, done := e.outcome(events, req.Goal, playerTag); done {
			out.Outcome = o
			break
		}
	}

	out.Final = e.States()
	out.Hash = e.Hash()
	return out, nil
}

// SimulateBatch runs independent requests in parallel. Results keep the
// order of reqs.
func SimulateBatch(ctx context.Context, reqs []Request, opts Options) ([]*SimResult, error) {
	results := make([]*SimResult, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := Simulate(ctx, req, opts)
			if err != nil {
				return fmt.Errorf("sim: request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// inputCommands turns the inputs held at tick into one command per target.
func inputCommands(inputs []ScheduledInput, tick uint64) []Command {
	held := map[ecs.StableID]*InputCommand{}
	var order []ecs.StableID
	for _, in := range inputs {
		cmd, ok := held[in.Entity]
		if !ok {
			cmd = &InputCommand{Entity: in.Entity}
			held[in.Entity] = cmd
			order = append(order, in.Entity)
		}
		if !in.active(tick) {
			continue
		}
		switch in.Action {
		case ActionLeft:
			cmd.Left = true
		case ActionRight:
			cmd.Right = true
		case ActionUp:
			cmd.Up = true
		case ActionDown:
			cmd.Down = true
		case ActionJump:
			cmd.Jump = true
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]Command, 0, len(order))
	for _, id := range order {
		out = append(out, *held[id])
	}
	return out
}

func (e *Engine) traceFrame(tick uint64, ids []ecs.StableID) TraceFrame {
	frame := TraceFrame{Tick: tick}
	var ents []ecs.Entity
	if len(ids) > 0 {
		ents = ecs.Select(e.world, ecs.Filter{IDs: ids})
	} else {
		ents = ecs.Select(e.world, ecs.Filter{Tag: e.settings.PlayerTag})
	}
	for _, ent := range ents {
		s := stateOf(e.world, ent)
		frame.Entities = append(frame.Entities, TracePoint{ID: s.ID, X: s.X, Y: s.Y, VX: s.VX, VY: s.VY, Grounded: s.Grounded})
	}
	return frame
}

func (e *Engine) outcome(events []ecs.Event, goal *Goal, playerTag string) (Outcome, bool) {
	for _, ev := range events {
		switch ev.Type {
		case ecs.EventGoalReached:
			if goal == nil {
				return OutcomeGoalReached, true
			}
		case ecs.EventDied:
			if ent, ok := ecs.Lookup(e.world, ev.Entity); ok {
				if tags, ok := ecs.Get(e.world, ent, component.TagsComponent.Kind()); ok && tags.Has(playerTag) {
					return OutcomeDied, true
				}
			}
		}
	}
	if goal == nil {
		return "", false
	}
	for _, ent := range ecs.Select(e.world, ecs.Filter{Tag: playerTag}) {
		t, ok := ecs.Get(e.world, ent, component.TransformComponent.Kind())
		if ok && math.Hypot(t.X-goal.X, t.Y-goal.Y) <= goal.Radius {
			return OutcomeGoalReached, true
		}
	}
	return "", false
}
