package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/levels"
)

func runRight(lvl *levels.Level) Request {
	return Request{
		Level:          lvl,
		Entities:       []levels.Entity{{Prefab: "player", X: 24, Y: 23}},
		Inputs:         []ScheduledInput{{Tick: 0, Action: ActionRight, Duration: 1000}},
		MaxTicks:       300,
		RecordInterval: 10,
	}
}

func TestSimulateOutcomes(t *testing.T) {
	spiked := flatLevel()
	spiked.Tiles[1*spiked.Width+3] = levels.TileSpike

	tests := []struct {
		name    string
		req     func() Request
		outcome Outcome
	}{
		{
			name: "goal circle",
			req: func() Request {
				r := runRight(flatLevel())
				r.Goal = &Goal{X: 200, Y: 23, Radius: 12}
				return r
			},
			outcome: OutcomeGoalReached,
		},
		{
			name:    "hazard",
			req:     func() Request { return runRight(spiked) },
			outcome: OutcomeDied,
		},
		{
			name: "timeout",
			req: func() Request {
				r := runRight(flatLevel())
				r.Inputs = nil
				r.MaxTicks = 20
				return r
			},
			outcome: OutcomeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Simulate(context.Background(), tt.req(), Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.NotEmpty(t, res.Trace)
			assert.NotEmpty(t, res.Final)
		})
	}
}

func TestSimulateIsDeterministic(t *testing.T) {
	req := runRight(flatLevel())
	req.Entities = append(req.Entities,
		levels.Entity{Prefab: "slime", X: 200, Y: 21},
		levels.Entity{Prefab: "coin", X: 100, Y: 24},
	)
	req.Inputs = append(req.Inputs, ScheduledInput{Tick: 15, Action: ActionJump, Duration: 6})
	req.MaxTicks = 120

	a, err := Simulate(context.Background(), req, Options{})
	require.NoError(t, err)
	b, err := Simulate(context.Background(), req, Options{})
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.Trace, b.Trace)
	assert.Equal(t, a.Events, b.Events)
}

func TestSimulateBatchKeepsOrder(t *testing.T) {
	reqs := make([]Request, 4)
	for i := range reqs {
		reqs[i] = runRight(flatLevel())
		reqs[i].MaxTicks = uint64(10 * (i + 1))
	}

	results, err := SimulateBatch(context.Background(), reqs, Options{})
	require.NoError(t, err)
	require.Len(t, results, len(reqs))
	for i, res := range results {
		assert.Equal(t, uint64(10*(i+1)), res.Ticks)
	}
}

func TestSimulateRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no level", Request{}},
		{"unknown action", Request{Level: flatLevel(), Inputs: []ScheduledInput{{Action: "dash"}}}},
		{"zero goal radius", Request{Level: flatLevel(), Goal: &Goal{X: 1, Y: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(context.Background(), tt.req, Options{})
			assert.Error(t, err)
		})
	}
}

func TestSimulateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Simulate(ctx, runRight(flatLevel()), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInputCommandsPerEntity(t *testing.T) {
	inputs := []ScheduledInput{
		{Tick: 0, Action: ActionRight, Duration: 5, Entity: 2},
		{Tick: 3, Action: ActionJump},
		{Tick: 10, Action: ActionLeft, Entity: 2},
	}

	cmds := inputCommands(inputs, 3)
	require.Len(t, cmds, 2)
	assert.Equal(t, InputCommand{Entity: 0, Jump: true}, cmds[0])
	assert.Equal(t, InputCommand{Entity: 2, Right: true}, cmds[1])

	cmds = inputCommands(inputs, 7)
	assert.Equal(t, InputCommand{Entity: 2}, cmds[1], "released inputs are sent as a release")
}

func TestLoadRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	src := `
level:
  width: 4
  height: 2
  tile_size: 16
  tiles: [1, 1, 1, 1, 0, 0, 0, 0]
entities:
  - prefab: player
    x: 24
    y: 23
inputs:
  - tick: 0
    action: right
    duration: 30
max_ticks: 30
trace: [1]
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	req, err := LoadRequest(path)
	require.NoError(t, err)
	require.NoError(t, req.Validate())
	assert.Equal(t, 4, req.Level.Width)
	assert.Equal(t, []ecs.StableID{1}, req.Trace)
	assert.Equal(t, "player", req.Entities[0].Prefab)
}
