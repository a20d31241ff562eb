package physics

import (
	"math"
	"testing"

	"github.com/milk9111/simcore/levels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60.0

// grid4 builds a 4x4 map with one tile set at (1, 1).
func grid4(t *testing.T, id int) *levels.Tilemap {
	t.Helper()
	tiles := make([]int, 16)
	tiles[4+1] = id
	tm, err := levels.NewTilemap(4, 4, 16, tiles, nil)
	require.NoError(t, err)
	return tm
}

func body(x, y, vx, vy float64) Motion {
	return Motion{X: x, Y: y, VX: vx, VY: vy, Width: 12, Height: 14}
}

func TestApplyGravity(t *testing.T) {
	cases := []struct {
		name     string
		vy       float64
		grounded bool
		want     float64
	}{
		{"grounded_unchanged", -10, true, -10},
		{"rising_normal_gravity", 100, false, 100 - 980*dt},
		{"falling_uses_multiplier", -10, false, -10 - 980*1.5*dt},
		{"clamped_to_max_fall", -799, false, -MaxFallSpeed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.InDelta(t, c.want, ApplyGravity(c.vy, c.grounded, 980, 1.5, dt), 1e-9)
		})
	}
}

func TestResolveMotionStopsAtSolidTile(t *testing.T) {
	tm := grid4(t, levels.TileSolid)
	out := ResolveMotion(tm, body(8, 24, 1200, 0), dt, nil)
	assert.Less(t, out.X, 28.0)
	assert.Equal(t, 0.0, out.VX)
}

func TestOneWayPlatform(t *testing.T) {
	tm := grid4(t, levels.TilePlatform)

	t.Run("lands_from_above", func(t *testing.T) {
		out := ResolveMotion(tm, body(24, 45, 0, -1200), dt, nil)
		assert.InDelta(t, 39.0, out.Y, 0.01)
		assert.Equal(t, 0.0, out.VY)
	})
	t.Run("passes_through_from_below", func(t *testing.T) {
		out := ResolveMotion(tm, body(24, 20, 0, 600), dt, nil)
		assert.Greater(t, out.Y, 20.0)
		assert.Equal(t, 600.0, out.VY)
	})
	t.Run("no_horizontal_block", func(t *testing.T) {
		out := ResolveMotion(tm, body(4, 24, 600, 0), dt, nil)
		assert.InDelta(t, 14.0, out.X, 1e-9)
		assert.Equal(t, 600.0, out.VX)
	})
	t.Run("grounded_on_top", func(t *testing.T) {
		assert.True(t, ComputeGrounded(tm, 24, 39, 12, 14, nil))
	})
}

func TestSlopes(t *testing.T) {
	t.Run("slope_up", func(t *testing.T) {
		out := ResolveMotion(grid4(t, levels.TileSlopeUp), body(20, 40, 0, -1200), dt, nil)
		assert.InDelta(t, 27.0, out.Y, 0.1)
		assert.Equal(t, 0.0, out.VY)
	})
	t.Run("slope_down", func(t *testing.T) {
		out := ResolveMotion(grid4(t, levels.TileSlopeDown), body(20, 45, 0, -1200), dt, nil)
		assert.InDelta(t, 35.0, out.Y, 0.1)
		assert.Equal(t, 0.0, out.VY)
	})
}

func TestComputeGroundedOnFloor(t *testing.T) {
	tiles := make([]int, 16)
	tiles[0] = levels.TileSolid
	tm, err := levels.NewTilemap(4, 4, 16, tiles, nil)
	require.NoError(t, err)
	var counters Counters
	assert.True(t, ComputeGrounded(tm, 8, 23, 12, 14, &counters))
	assert.NotZero(t, counters.CollisionChecks)
	assert.False(t, ComputeGrounded(tm, 8, 40, 12, 14, &counters))
}

func TestMaxFallSpeedDoesNotTunnel(t *testing.T) {
	// one-tile-thick floor at row 1, body falling at exactly the cap
	tm := grid4(t, levels.TileSolid)
	m := body(24, 40, 0, -MaxFallSpeed)
	for i := 0; i < 10; i++ {
		m = ResolveMotion(tm, m, dt, nil)
	}
	assert.InDelta(t, 32+7, m.Y, 1e-6)

	fast := ResolveMotion(tm, body(24, 40, 0, -5000), dt, nil)
	assert.GreaterOrEqual(t, fast.Y, 39.0)
}

func TestJumpCounters(t *testing.T) {
	assert.Equal(t, 5, UpdateCoyote(true, 0, 5))
	assert.Equal(t, 4, UpdateCoyote(false, 5, 5))
	assert.Equal(t, 0, UpdateCoyote(false, 0, 5))

	assert.Equal(t, 3, UpdateJumpBuffer(true, 0, 4))
	assert.Equal(t, 2, UpdateJumpBuffer(false, 3, 4))

	t.Run("coyote_allows_jump", func(t *testing.T) {
		s, ok := TryJump(JumpState{Coyote: 2, JustPressed: true}, 400)
		require.True(t, ok)
		assert.Equal(t, 400.0, s.VY)
		assert.Zero(t, s.Coyote)
		assert.Zero(t, s.JumpBuffer)
	})
	t.Run("buffer_fires_on_landing", func(t *testing.T) {
		_, ok := TryJump(JumpState{Grounded: true, JumpBuffer: 1}, 400)
		assert.True(t, ok)
	})
	t.Run("airborne_without_coyote", func(t *testing.T) {
		_, ok := TryJump(JumpState{JustPressed: true}, 400)
		assert.False(t, ok)
	})
}

func TestVariableJumpAndFriction(t *testing.T) {
	assert.Equal(t, 50.0, ApplyVariableJump(100, false, true))
	assert.Equal(t, 100.0, ApplyVariableJump(100, true, true))
	assert.Equal(t, -100.0, ApplyVariableJump(-100, false, true))

	assert.InDelta(t, 75.0, ApplySurfaceFriction(100, 1), 1e-9)
	assert.Equal(t, 0.0, ApplySurfaceFriction(0.1, 1))
	assert.Equal(t, 100.0, ApplySurfaceFriction(100, 0))
}

func TestCollidesTile(t *testing.T) {
	tm := grid4(t, levels.TileSpike)
	hazard := func(tt levels.TileType) bool { return tt.Hazard }
	assert.True(t, CollidesTile(tm, 24, 24, 12, 14, hazard, nil))
	assert.False(t, CollidesTile(tm, 56, 56, 12, 14, hazard, nil))
}

func TestStepLandsAndJumps(t *testing.T) {
	tiles := make([]int, 8*4)
	for x := 0; x < 8; x++ {
		tiles[x] = levels.TileSolid
	}
	tm, err := levels.NewTilemap(8, 4, 16, tiles, nil)
	require.NoError(t, err)
	p := DefaultParams()

	b := Body{Motion: body(40, 40, 0, 0)}
	landed := false
	for i := 0; i < 60 && !b.Grounded; i++ {
		var ev StepEvents
		b, ev = Step(tm, p, b, &Input{}, dt, nil)
		landed = landed || ev.Landed
	}
	require.True(t, b.Grounded)
	assert.True(t, landed)
	assert.InDelta(t, 23.0, b.Y, 1e-6)
	assert.Equal(t, p.CoyoteFrames, b.Coyote)

	b, ev := Step(tm, p, b, &Input{Jump: true, JumpPressed: true}, dt, nil)
	assert.True(t, ev.Jumped)
	assert.Greater(t, b.VY, 0.0)
	assert.False(t, b.Grounded)
}

func TestStepIsDeterministic(t *testing.T) {
	tm := grid4(t, levels.TilePlatform)
	run := func() Body {
		b := Body{Motion: body(10, 60, 30, 0)}
		for i := 0; i < 120; i++ {
			in := &Input{Right: i%40 < 20, Jump: i%30 == 0, JumpPressed: i%30 == 0}
			b, _ = Step(tm, DefaultParams(), b, in, dt, nil)
		}
		return b
	}
	a, b := run(), run()
	assert.Equal(t, math.Float64bits(a.X), math.Float64bits(b.X))
	assert.Equal(t, math.Float64bits(a.Y), math.Float64bits(b.Y))
}

func TestStepClimbsLadders(t *testing.T) {
	tm := grid4(t, levels.TileLadder)
	p := DefaultParams()
	climb := p.MoveSpeed * ClimbFactor

	cases := []struct {
		name   string
		x, y   float64
		in     *Input
		wantVY float64
	}{
		{"up on ladder", 24, 24, &Input{Up: true}, climb},
		{"down on ladder", 24, 24, &Input{Down: true}, -climb},
		{"idle on ladder falls", 24, 24, &Input{}, -p.Gravity * dt},
		{"up off ladder falls", 56, 56, &Input{Up: true}, -p.Gravity * dt},
		{"uncontrolled falls", 24, 24, nil, -p.Gravity * dt},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b, _ := Step(tm, p, Body{Motion: body(c.x, c.y, 0, 0)}, c.in, dt, nil)
			assert.InDelta(t, c.wantVY, b.VY, 1e-9)
		})
	}
}

func TestStepJumpsOffLadder(t *testing.T) {
	tm := grid4(t, levels.TileLadder)
	p := DefaultParams()
	b, ev := Step(tm, p, Body{Motion: body(24, 24, 0, 0)}, &Input{Up: true, Jump: true, JumpPressed: true}, dt, nil)
	assert.True(t, ev.Jumped)
	assert.InDelta(t, p.JumpVelocity, b.VY, 1e-9)
}
