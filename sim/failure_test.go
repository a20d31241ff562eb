package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/levels"
	"github.com/milk9111/simcore/prefabs"
)

func stateIDs(states []EntityState) []ecs.StableID {
	ids := make([]ecs.StableID, 0, len(states))
	for _, s := range states {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestFailedSpawnDoesNotShiftIDs(t *testing.T) {
	tests := []struct {
		name string
		cmd  SpawnCommand
	}{
		{"unknown prefab", SpawnCommand{Prefab: "no_such_prefab", X: 40, Y: 24}},
		{"unknown component in data", SpawnCommand{Prefab: "coin", X: 40, Y: 24, Data: map[string]any{"wings": map[string]any{"span": 2}}}},
		{"bad inline collider", SpawnCommand{Spec: &prefabs.EntitySpec{Components: map[string]any{"collider": map[string]any{"shape": "hexagon"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, levels.Entity{Prefab: "player", X: 24, Y: 23})
			require.NoError(t, e.StartRecording())

			failed := e.apply(tt.cmd)
			require.Equal(t, StatusFailed, failed.Status)
			e.Step()

			ok := e.apply(SpawnCommand{Prefab: "coin", X: 120, Y: 24})
			require.Equal(t, StatusOK, ok.Status)
			assert.Equal(t, []ecs.StableID{2}, ok.IDs)
			for i := 0; i < 5; i++ {
				e.Step()
			}

			log := e.FinishRecording()
			replayed, err := Replay(log, testOptions())
			require.NoError(t, err)
			assert.Equal(t, stateIDs(e.States()), stateIDs(replayed.States()))
			assert.Equal(t, e.Hash(), replayed.Hash())
		})
	}
}

func TestFailedPatchWritesNothing(t *testing.T) {
	e := newEngine(t,
		levels.Entity{Prefab: "player", X: 24, Y: 23},
		levels.Entity{Prefab: "coin", X: 120, Y: 24},
	)
	require.NoError(t, e.StartRecording())
	w := e.World()
	coin, _ := ecs.Lookup(w, 2)
	tr, _ := ecs.Get(w, coin, component.TransformComponent.Kind())

	patch := Patch{X: ptr(500.0), AddTags: []string{"moved"}, HealthCurrent: ptr(1.0)}
	res := e.apply(MutateCommand{Filter: ecs.Filter{IDs: []ecs.StableID{2}}, Patch: patch})
	require.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, 120.0, tr.X)
	tags, _ := ecs.Get(w, coin, component.TagsComponent.Kind())
	assert.False(t, tags.Has("moved"))

	res = e.apply(MutateCommand{Filter: ecs.Filter{IDs: []ecs.StableID{1, 2}}, Patch: patch})
	require.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, 1, res.Mutated)
	assert.Equal(t, 120.0, tr.X)
	player, _ := ecs.Lookup(w, 1)
	pt, _ := ecs.Get(w, player, component.TransformComponent.Kind())
	assert.Equal(t, 500.0, pt.X)

	for i := 0; i < 3; i++ {
		e.Step()
	}
	replayed, err := Replay(e.FinishRecording(), testOptions())
	require.NoError(t, err)
	assert.Equal(t, e.States(), replayed.States())
}

func TestScriptsReadWallHits(t *testing.T) {
	e := newEngine(t, levels.Entity{Prefab: "player", X: 24, Y: 23})
	src := `
update := func(engine, dt) {
	for ev in engine.events("projectile_hit_wall") {
		engine.emit("saw_wall", {tile: ev.data.tile})
	}
	for ev in engine.events() {
		if is_map(ev.data) { engine.set_var("last", ev.type) }
	}
}`
	require.Equal(t, StatusOK, e.apply(LoadScriptCommand{Name: "watcher", Source: src, Global: true}).Status)
	require.Equal(t, StatusOK, e.apply(SpawnCommand{Prefab: "bullet", X: 50, Y: 8}).Status)

	var all []ecs.Event
	for i := 0; i < 4; i++ {
		all = append(all, e.Step()...)
	}

	var saw []ecs.Event
	for _, ev := range all {
		assert.NotEqual(t, ecs.EventScriptError, ev.Type, "%v", ev.Data)
		assert.NotEqual(t, ecs.EventScriptDisabled, ev.Type)
		if ev.Type == "saw_wall" {
			saw = append(saw, ev)
		}
	}
	require.Len(t, saw, 1)
	assert.Equal(t, []any{int64(3), int64(0)}, saw[0].Data["tile"])
}

func TestSetConfigLogsReadableScripting(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.StartRecording())
	sc := config.Default().Scripting
	sc.MaxErrorStreak = 3
	require.Equal(t, StatusOK, e.apply(SetConfigCommand{Scripting: &sc}).Status)

	log := e.FinishRecording()
	require.Len(t, log.Entries, 1)
	assert.JSONEq(t, `{"scripting":{"entity_budget":"1ms","global_budget":"5ms","max_error_streak":3}}`, string(log.Entries[0].Command))

	cmd, err := decodeCommand(log.Entries[0].Kind, log.Entries[0].Command)
	require.NoError(t, err)
	assert.Equal(t, sc, *cmd.(SetConfigCommand).Scripting)
}
