package tengoscript

import (
	"context"
	"testing"
	"time"

	"github.com/milk9111/simcore/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorld struct {
	tick     uint64
	next     uint64
	entities map[uint64]script.EntityView
	events   []map[string]any
}

func (w *fakeWorld) Tick() uint64            { return w.tick }
func (w *fakeWorld) TileSize() float64       { return 16 }
func (w *fakeWorld) Tile(tx, ty int) int     { return 0 }
func (w *fakeWorld) IsSolid(tx, ty int) bool { return ty < 0 }
func (w *fakeWorld) Entity(id uint64) (script.EntityView, bool) {
	v, ok := w.entities[id]
	return v, ok
}
func (w *fakeWorld) Query(tag string, x, y, radius float64) []script.EntityView {
	var out []script.EntityView
	for _, v := range w.entities {
		for _, t := range v.Tags {
			if t == tag {
				out = append(out, v)
			}
		}
	}
	return out
}
func (w *fakeWorld) Raycast(x, y, dx, dy, maxDist float64) script.RayHit {
	return script.RayHit{}
}
func (w *fakeWorld) FindPath(fx, fy, tx, ty float64) [][2]float64 {
	return [][2]float64{{fx, fy}, {tx, ty}}
}
func (w *fakeWorld) Events(kind string) []map[string]any {
	var out []map[string]any
	for _, ev := range w.events {
		if kind == "" || ev["type"] == kind {
			out = append(out, ev)
		}
	}
	return out
}
func (w *fakeWorld) ReserveID() uint64 {
	w.next++
	return w.next
}

func run(t *testing.T, b *Backend, name string, view *script.EntityView, world script.WorldView) (*script.Mutations, error) {
	t.Helper()
	var out script.Mutations
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := b.RunEntity(ctx, name, view, world, 1.0/60, &out)
	return &out, err
}

func TestLoadKeepsPreviousOnCompileError(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.Load("walker", `update := func(e, engine, dt) { e.vx = 50 }`))

	err := b.Load("walker", `update := func(e, engine, dt) { e.vx = `)
	var ce *script.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "walker", ce.Name)

	view := &script.EntityView{ID: 3}
	out, err := run(t, b, "walker", view, &fakeWorld{})
	require.NoError(t, err)
	require.Len(t, out.Ops, 1)
	assert.Equal(t, script.OpSetVelocity, out.Ops[0].Kind)
	assert.Equal(t, 50.0, out.Ops[0].X)
}

func TestRunEntityWritesBack(t *testing.T) {
	b := New(nil)
	src := `
update := func(e, engine, dt) {
	count := e.state.count
	if count == undefined { count = 0 }
	e.state.count = count + 1
	e.x = e.x + 2
	if e.health != undefined { e.health = e.health - 1 }
}`
	require.NoError(t, b.Load("counter", src))

	view := &script.EntityView{ID: 1, X: 10, Y: 5, Health: 3, MaxHealth: 3, HasHealth: true}
	for i := 0; i < 3; i++ {
		_, err := run(t, b, "counter", view, &fakeWorld{})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), view.State["count"])
	assert.Equal(t, 16.0, view.X)
	assert.Equal(t, 0.0, view.Health)
}

func TestEngineFunctions(t *testing.T) {
	b := New(nil)
	src := `
update := func(e, engine, dt) {
	id := engine.spawn("bullet", e.x, e.y, {dir: 1})
	engine.emit("fired", {bullet: id})
	for other in engine.query("player") {
		engine.set_health(other.id, 1)
	}
	if engine.is_solid(0, -1) { engine.add_tag(e.id, "grounded_check") }
}`
	require.NoError(t, b.Load("gun", src))

	world := &fakeWorld{next: 40, entities: map[uint64]script.EntityView{
		7: {ID: 7, Tags: []string{"player"}},
	}}
	out, err := run(t, b, "gun", &script.EntityView{ID: 2, X: 1, Y: 2}, world)
	require.NoError(t, err)
	require.Len(t, out.Ops, 4)

	assert.Equal(t, script.OpSpawn, out.Ops[0].Kind)
	assert.Equal(t, uint64(41), out.Ops[0].Target)
	assert.Equal(t, "bullet", out.Ops[0].Name)
	assert.Equal(t, int64(1), out.Ops[0].Data["dir"])

	assert.Equal(t, script.OpEmit, out.Ops[1].Kind)
	assert.Equal(t, int64(41), out.Ops[1].Data["bullet"])

	assert.Equal(t, script.OpSetHealth, out.Ops[2].Kind)
	assert.Equal(t, uint64(7), out.Ops[2].Target)

	assert.Equal(t, script.OpAddTag, out.Ops[3].Kind)
}

func TestEventsConvertEveryPayload(t *testing.T) {
	b := New(nil)
	src := `
update := func(e, engine, dt) {
	sum := 0
	for ev in engine.events("projectile_hit_wall") {
		sum += ev.data.tile[0] + ev.data.tile[1]
	}
	engine.emit("seen", {n: len(engine.events()), sum: sum})
}`
	require.NoError(t, b.Load("watcher", src))

	world := &fakeWorld{events: []map[string]any{
		{"type": "projectile_hit_wall", "entity": int64(4), "data": map[string]any{"tile": []int{3, 4}}},
		{"type": "projectile_hit_wall", "entity": int64(5), "data": map[string]any{"tile": []any{1, 2}}},
		{"type": "entity_damaged", "entity": int64(6), "amount": 1.0, "data": map[string]any{"health": 2.0, "cause": "contact"}},
		{"type": "entity_died", "entity": int64(6), "data": map[string]any{"cause": "hazard", "path": []float64{1, 2}}},
	}}
	out, err := run(t, b, "watcher", &script.EntityView{ID: 1}, world)
	require.NoError(t, err)
	require.Len(t, out.Ops, 1)
	assert.Equal(t, script.OpEmit, out.Ops[0].Kind)
	assert.Equal(t, int64(4), out.Ops[0].Data["n"])
	assert.Equal(t, int64(10), out.Ops[0].Data["sum"])
}

func TestAbortReturnsError(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.Load("bad", `update := func(e, engine, dt) { engine.abort("nope") }`))
	_, err := run(t, b, "bad", &script.EntityView{ID: 1}, &fakeWorld{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.NotErrorIs(t, err, script.ErrBudgetExceeded)
}

func TestBudgetExceeded(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.Load("spin", `update := func(e, engine, dt) { for { e.x = e.x + 1 } }`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	var out script.Mutations
	err := b.RunEntity(ctx, "spin", &script.EntityView{ID: 1}, &fakeWorld{}, 1.0/60, &out)
	assert.ErrorIs(t, err, script.ErrBudgetExceeded)
}

func TestGlobalVars(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.Load("director", `
update := func(engine, dt) {
	engine.set_var("waves", engine.get_var("waves", 0) + 1)
}`))

	for i := 0; i < 2; i++ {
		var out script.Mutations
		require.NoError(t, b.RunGlobal(context.Background(), "director", &fakeWorld{}, 1.0/60, &out))
	}
	v, ok := b.GetVar("waves")
	require.True(t, ok)
	assert.Equal(t, int64(2), v)

	b.RestoreVars(map[string]any{"waves": int64(9)})
	assert.Equal(t, map[string]any{"waves": int64(9)}, b.Vars())
}

func TestNotLoaded(t *testing.T) {
	b := New(nil)
	_, err := run(t, b, "missing", &script.EntityView{ID: 1}, &fakeWorld{})
	assert.ErrorIs(t, err, script.ErrNotLoaded)
	assert.False(t, b.Unload("missing"))
}

func TestStdlibRestricted(t *testing.T) {
	b := New(nil)
	assert.NoError(t, b.Load("m", `math := import("math"); update := func(e, engine, dt) { e.x = math.abs(-3.0) }`))
	assert.Error(t, b.Load("r", `rand := import("rand"); update := func(e, engine, dt) {}`))
}
