// Package script defines the host side of behavior scripting: the backend
// contract, the flattened entity and world views scripts see, and the
// mutation buffer their writes land in.
package script

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotLoaded      = errors.New("script: not loaded")
	ErrBudgetExceeded = errors.New("script: budget exceeded")
)

// CompileError is returned by Load when a source fails to compile. Any
// previously loaded version under the same name stays active.
type CompileError struct {
	Name string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("script %q: compile: %v", e.Name, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ScriptError describes one failed invocation.
type ScriptError struct {
	Name   string
	Entity uint64
	Tick   uint64
	Err    error
}

func (e *ScriptError) Error() string {
	if e.Entity == 0 {
		return fmt.Sprintf("script %q (global) tick %d: %v", e.Name, e.Tick, e.Err)
	}
	return fmt.Sprintf("script %q entity %d tick %d: %v", e.Name, e.Entity, e.Tick, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// EntityView is the flattened projection of one entity handed to a script.
type EntityView struct {
	ID        uint64
	X, Y      float64
	VX, VY    float64
	Grounded  bool
	Health    float64
	MaxHealth float64
	HasHealth bool
	Alive     bool
	Tags      []string
	State     map[string]any
}

// RayHit is the result of a world raycast.
type RayHit struct {
	Hit      bool
	X, Y     float64
	Distance float64
	Entity   uint64
	Tile     bool
}

// WorldView is the read-only query surface scripts use. It is a stable
// snapshot for the duration of one invocation.
type WorldView interface {
	Tick() uint64
	TileSize() float64
	Tile(tx, ty int) int
	IsSolid(tx, ty int) bool
	Entity(id uint64) (EntityView, bool)
	// Query returns tag-matching entities; a positive radius limits the
	// result to entities near (x, y).
	Query(tag string, x, y, radius float64) []EntityView
	Raycast(x, y, dx, dy, maxDist float64) RayHit
	FindPath(fromX, fromY, toX, toY float64) [][2]float64
	// Events returns last tick's events of the given type, or all of them
	// when kind is empty.
	Events(kind string) []map[string]any
	// ReserveID hands out the StableID a buffered spawn will receive.
	ReserveID() uint64
}

// Backend executes scripts in one scripting language. Exactly one backend is
// compiled into a build.
type Backend interface {
	Load(name, source string) error
	Unload(name string) bool
	RunEntity(ctx context.Context, name string, entity *EntityView, world WorldView, dt float64, out *Mutations) error
	RunGlobal(ctx context.Context, name string, world WorldView, dt float64, out *Mutations) error
	GetVar(name string) (any, bool)
	SetVar(name string, value any)
	Vars() map[string]any
	RestoreVars(vars map[string]any)
	List() []string
	Source(name string) (string, bool)
}
