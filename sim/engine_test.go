package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/levels"
	"github.com/milk9111/simcore/prefabs"
	"github.com/milk9111/simcore/script"
)

// flatLevel is 20x8 with a solid floor on row 0.
func flatLevel(entities ...levels.Entity) *levels.Level {
	tiles := make([]int, 20*8)
	for x := 0; x < 20; x++ {
		tiles[x] = levels.TileSolid
	}
	return &levels.Level{
		Width:    20,
		Height:   8,
		TileSize: 16,
		Tiles:    tiles,
		Spawn:    [2]float64{24, 23},
		Entities: entities,
	}
}

// testOptions lifts the wall-clock script budgets so slow machines cannot
// change script outcomes.
func testOptions() Options {
	cfg := config.Default()
	cfg.Scripting.EntityBudget = 0
	cfg.Scripting.GlobalBudget = 0
	return Options{Config: cfg}
}

func newEngine(t *testing.T, entities ...levels.Entity) *Engine {
	t.Helper()
	e, err := NewFromLevel(flatLevel(entities...), testOptions())
	require.NoError(t, err)
	return e
}

func ptr[T any](v T) *T { return &v }

func TestSubmitRejectsInvalidCommands(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name string
		cmd  Command
	}{
		{"nil", nil},
		{"empty patch", MutateCommand{}},
		{"non-finite position", SpawnCommand{Prefab: "coin", X: math.Inf(1)}},
		{"prefab and spec", SpawnCommand{Prefab: "coin", Spec: &prefabs.EntitySpec{}}},
		{"no despawn ids", DespawnCommand{}},
		{"unnamed script", LoadScriptCommand{Source: "x := 1"}},
		{"negative max health", MutateCommand{Patch: Patch{HealthMax: ptr(-1.0)}}},
		{"empty config", SetConfigCommand{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Submit(context.Background(), tt.cmd)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, StatusFailed, res.Status)
			assert.Equal(t, 0, len(e.queue), "rejected commands are never queued")
		})
	}
}

func TestSpawnAssignsIDAtDrain(t *testing.T) {
	e := newEngine(t, levels.Entity{Prefab: "player", X: 24, Y: 23})

	reply, err := e.Enqueue(SpawnCommand{Prefab: "coin", X: 80, Y: 24})
	require.NoError(t, err)
	e.Step()

	res := <-reply
	require.Equal(t, StatusOK, res.Status)
	require.Len(t, res.IDs, 1)
	assert.Equal(t, ecs.StableID(2), res.IDs[0])

	_, ok := ecs.Lookup(e.World(), res.IDs[0])
	assert.True(t, ok)
}

func TestDespawnTwiceReportsNoMatch(t *testing.T) {
	e := newEngine(t, levels.Entity{Prefab: "coin", X: 80, Y: 24})

	first := e.apply(DespawnCommand{IDs: []ecs.StableID{1}})
	assert.Equal(t, StatusOK, first.Status)

	second := e.apply(DespawnCommand{IDs: []ecs.StableID{1}})
	assert.Equal(t, StatusNoMatch, second.Status)
	assert.ErrorIs(t, second.Err, ecs.ErrNotFound)

	mixed := e.apply(SpawnCommand{Prefab: "coin", X: 60, Y: 24})
	require.Equal(t, StatusOK, mixed.Status)
	partial := e.apply(DespawnCommand{IDs: []ecs.StableID{1, mixed.IDs[0]}})
	assert.Equal(t, StatusPartial, partial.Status)
	assert.Equal(t, []ecs.StableID{mixed.IDs[0]}, partial.IDs)
}

func TestMutateStatuses(t *testing.T) {
	e := newEngine(t,
		levels.Entity{Prefab: "slime", X: 40, Y: 21},
		levels.Entity{Prefab: "player", X: 120, Y: 23},
	)

	tests := []struct {
		name    string
		cmd     MutateCommand
		status  Status
		matched int
		mutated int
	}{
		{
			name:    "ok",
			cmd:     MutateCommand{Filter: ecs.Filter{Tag: "enemy"}, Patch: Patch{ContactDamage: ptr(3.0)}},
			status:  StatusOK,
			matched: 1,
			mutated: 1,
		},
		{
			name:    "no match",
			cmd:     MutateCommand{Filter: ecs.Filter{IDs: []ecs.StableID{99}}, Patch: Patch{HealthCurrent: ptr(1.0)}},
			status:  StatusNoMatch,
			matched: 0,
			mutated: 0,
		},
		{
			name:    "partial",
			cmd:     MutateCommand{Filter: ecs.Filter{Component: "health"}, Patch: Patch{ContactKnockback: ptr(0.0)}},
			status:  StatusPartial,
			matched: 2,
			mutated: 1,
		},
		{
			name:    "failed",
			cmd:     MutateCommand{Filter: ecs.Filter{Tag: "player"}, Patch: Patch{HitboxActive: ptr(true)}},
			status:  StatusFailed,
			matched: 1,
			mutated: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.apply(tt.cmd)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.matched, res.Matched)
			assert.Equal(t, tt.mutated, res.Mutated)
		})
	}

	slime, _ := ecs.Lookup(e.World(), 1)
	cd, _ := ecs.Get(e.World(), slime, component.ContactDamageComponent.Kind())
	assert.Equal(t, 3.0, cd.Amount)
}

func TestMutateHealthClampsAndKills(t *testing.T) {
	e := newEngine(t, levels.Entity{Prefab: "slime", X: 40, Y: 21})

	res := e.apply(MutateCommand{Filter: ecs.Filter{IDs: []ecs.StableID{1}}, Patch: Patch{HealthCurrent: ptr(50.0)}})
	require.Equal(t, StatusOK, res.Status)
	slime, _ := ecs.Lookup(e.World(), 1)
	h, _ := ecs.Get(e.World(), slime, component.HealthComponent.Kind())
	assert.Equal(t, 2.0, h.Current)

	res = e.apply(MutateCommand{Filter: ecs.Filter{IDs: []ecs.StableID{1}}, Patch: Patch{Alive: ptr(false)}})
	require.Equal(t, StatusOK, res.Status)
	assert.False(t, ecs.Alive(e.World(), slime))

	events := e.Step()
	died := 0
	for _, ev := range events {
		if ev.Type == ecs.EventDied {
			died++
		}
	}
	assert.Equal(t, 1, died)
}

func TestLoadScriptCompileErrorKeepsPrevious(t *testing.T) {
	e := newEngine(t, levels.Entity{Prefab: "slime", X: 40, Y: 21, Props: map[string]any{"script": "count"}})

	ok := e.apply(LoadScriptCommand{Name: "count", Source: `update := func(e, g, dt) { e.state.n = (is_undefined(e.state.n) ? 0 : e.state.n) + 1 }`})
	require.Equal(t, StatusOK, ok.Status)
	assert.Equal(t, 1, ok.Matched)

	bad := e.apply(LoadScriptCommand{Name: "count", Source: `update := func(`})
	assert.Equal(t, StatusFailed, bad.Status)
	var cerr *script.CompileError
	assert.ErrorAs(t, bad.Err, &cerr)

	e.Step()
	e.Step()
	slime, _ := ecs.Lookup(e.World(), 1)
	sc, _ := ecs.Get(e.World(), slime, component.ScriptComponent.Kind())
	assert.Equal(t, int64(2), sc.State["n"])

	assert.Equal(t, StatusOK, e.apply(UnloadScriptCommand{Name: "count"}).Status)
	assert.Equal(t, StatusNoMatch, e.apply(UnloadScriptCommand{Name: "count"}).Status)
}

func TestSetConfigReachesSystems(t *testing.T) {
	e := newEngine(t)
	params := e.Config().Physics
	params.Gravity = 0

	res := e.apply(SetConfigCommand{Physics: &params})
	require.Equal(t, StatusOK, res.Status)
	assert.True(t, e.settings.Physics.TopDown())

	bad := config.Default().Interaction
	bad.PlayerTag = ""
	res = e.apply(SetConfigCommand{Interaction: &bad})
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "player", e.settings.PlayerTag)
}

func TestSetTileAndQuery(t *testing.T) {
	e := newEngine(t, levels.Entity{Prefab: "coin", X: 80, Y: 24}, levels.Entity{Prefab: "heart", X: 200, Y: 24})

	assert.Equal(t, StatusOK, e.apply(SetTileCommand{X: 3, Y: 2, Tile: levels.TileSolid}).Status)
	assert.True(t, e.World().Tilemap().IsSolid(3, 2))
	assert.Equal(t, StatusNoMatch, e.apply(SetTileCommand{X: 99, Y: 2, Tile: 1}).Status)

	res := e.apply(QueryCommand{Filter: ecs.Filter{Near: &ecs.Near{X: 80, Y: 24, Radius: 20}}})
	require.Equal(t, StatusOK, res.Status)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, ecs.StableID(1), res.Entities[0].ID)
	assert.Equal(t, []string{"pickup"}, res.Entities[0].Tags)
}

func TestRunAnswersSubmitsAndStops(t *testing.T) {
	cfg := config.Default()
	cfg.Tick.Rate = 1000
	e, err := NewFromLevel(flatLevel(levels.Entity{Prefab: "player", X: 24, Y: 23}), Options{Config: cfg})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	res, err := e.Submit(ctx, QueryCommand{Filter: ecs.Filter{Tag: "player"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}

	_, err = e.Submit(context.Background(), QueryCommand{})
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestEnqueueDuringStopIsAlwaysAnswered(t *testing.T) {
	cfg := config.Default()
	cfg.Tick.Rate = 1000
	e, err := NewFromLevel(flatLevel(), Options{Config: cfg})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	var (
		mu      sync.Mutex
		replies []<-chan Result
		wg      sync.WaitGroup
	)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				reply, err := e.Enqueue(QueryCommand{})
				if errors.Is(err, ErrStopped) {
					return
				}
				if err != nil {
					continue
				}
				mu.Lock()
				replies = append(replies, reply)
				mu.Unlock()
			}
		}()
	}
	time.Sleep(5 * time.Millisecond)
	e.Stop()
	wg.Wait()
	require.NoError(t, <-done)

	for _, reply := range replies {
		select {
		case res := <-reply:
			if res.Status == StatusFailed {
				assert.ErrorIs(t, res.Err, ErrStopped)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("queued command never answered")
		}
	}
	_, err = e.Enqueue(QueryCommand{})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestLiveRunReplaysIdentically(t *testing.T) {
	cfg := config.Default()
	cfg.Tick.Rate = 500
	e, err := NewFromLevel(flatLevel(
		levels.Entity{Prefab: "player", X: 24, Y: 23},
		levels.Entity{Prefab: "coin", X: 120, Y: 24},
	), Options{Config: cfg})
	require.NoError(t, err)
	require.NoError(t, e.StartRecording())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	cmds := []Command{
		InputCommand{Right: true},
		SpawnCommand{Prefab: "heart", X: 200, Y: 24},
		InputCommand{Right: true, Jump: true},
		InputCommand{},
	}
	for _, cmd := range cmds {
		_, err := e.Submit(ctx, cmd)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}
	e.Stop()
	require.NoError(t, <-done)

	log := e.FinishRecording()
	require.NotNil(t, log)
	assert.NotEmpty(t, log.RunID)
	assert.Len(t, log.Entries, len(cmds))

	replayed, err := Replay(log, Options{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, e.Tick(), replayed.Tick())
	assert.Equal(t, e.Hash(), replayed.Hash())
	assert.Equal(t, e.States(), replayed.States())
}

func TestHistoryKeepsRecentEvents(t *testing.T) {
	r := newRing(3)
	for i := 1; i <= 5; i++ {
		r.push(ecs.Event{Type: "e", Tick: uint64(i)})
	}
	got := r.list()
	require.Len(t, got, 3)
	assert.Equal(t, uint64(3), got[0].Tick)
	assert.Equal(t, uint64(5), got[2].Tick)
}
