package sim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/levels"
)

const countScript = `update := func(e, g, dt) {
	e.state.n = (is_undefined(e.state.n) ? 0 : e.state.n) + 1
	e.state.half = e.state.n / 2.0
}`

func scriptedEngine(t *testing.T) *Engine {
	t.Helper()
	e := newEngine(t,
		levels.Entity{Prefab: "player", X: 24, Y: 23},
		levels.Entity{Prefab: "coin", X: 120, Y: 24},
		levels.Entity{Prefab: "heart", X: 260, Y: 24, Props: map[string]any{"script": "count"}},
	)
	require.Equal(t, StatusOK, e.apply(LoadScriptCommand{Name: "count", Source: countScript}).Status)
	return e
}

func TestSnapshotRoundTrip(t *testing.T) {
	e := scriptedEngine(t)
	e.StepWith(InputCommand{Right: true})
	e.Step()
	require.Equal(t, StatusOK, e.apply(DespawnCommand{IDs: []ecs.StableID{2}}).Status)
	e.Step()

	data, err := e.Save()
	require.NoError(t, err)

	restored, err := Restore(data, testOptions())
	require.NoError(t, err)

	assert.Equal(t, e.Tick(), restored.Tick())
	assert.Equal(t, e.States(), restored.States())
	assert.Equal(t, e.Hash(), restored.Hash())

	heart, ok := ecs.Lookup(restored.World(), 3)
	require.True(t, ok)
	sc, ok := ecs.Get(restored.World(), heart, component.ScriptComponent.Kind())
	require.True(t, ok)
	assert.Equal(t, int64(3), sc.State["n"])
	assert.Equal(t, 1.5, sc.State["half"])

	_, ok = ecs.Lookup(restored.World(), 2)
	assert.False(t, ok, "despawned ids stay gone")

	for i := 0; i < 10; i++ {
		e.Step()
		restored.Step()
	}
	assert.Equal(t, e.Hash(), restored.Hash())
}

func TestRestoredSpawnsContinuePastCounter(t *testing.T) {
	e := scriptedEngine(t)
	require.Equal(t, StatusOK, e.apply(DespawnCommand{IDs: []ecs.StableID{3}}).Status)

	data, err := e.Save()
	require.NoError(t, err)
	restored, err := Restore(data, testOptions())
	require.NoError(t, err)

	res := restored.apply(SpawnCommand{Prefab: "coin", X: 40, Y: 24})
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, ecs.StableID(4), res.IDs[0], "ids are never reused")
}

func TestRestoreRejectsUnknownVersion(t *testing.T) {
	e := scriptedEngine(t)
	snap, err := e.Snapshot()
	require.NoError(t, err)
	snap.Version = 99
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	_, err = Restore(data, testOptions())
	assert.ErrorIs(t, err, ErrSnapshotVersion)
}

func TestSaveCommandReturnsPayload(t *testing.T) {
	e := scriptedEngine(t)
	res := e.apply(SaveCommand{})
	require.Equal(t, StatusOK, res.Status)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(res.Payload, &snap))
	assert.Len(t, snap.Entities, 3)
	assert.Contains(t, snap.Scripts, "count")
}

func TestValueEncodingKeepsNumberKinds(t *testing.T) {
	in := map[string]any{"i": int64(4), "f": 4.0, "list": []any{int64(1), 2.5}}
	raw, err := json.Marshal(encodeValue(in))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, decodeNumbers(raw, &decoded))
	assert.Equal(t, in, decodeValue(decoded))
}
