// Package physics holds the pure motion and tile-collision functions. The live
// tick, headless simulation and replay all call these and nothing else.
package physics

import (
	"errors"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/levels"
)

// MaxFallSpeed caps downward velocity so a body never moves more than one
// tile per tick at the default rate.
const MaxFallSpeed = 800.0

// InvariantViolation marks states correct code can never produce.
var InvariantViolation = errors.New("physics: invariant violation")

// Counters tallies tile probes for diagnostics.
type Counters struct {
	CollisionChecks uint64
}

func (c *Counters) probe() {
	if c != nil {
		c.CollisionChecks++
	}
}

// Box returns the AABB of a body centred at (x, y).
func Box(x, y, width, height float64) cp.BB {
	return cp.NewBBForExtents(cp.Vector{X: x, Y: y}, width/2, height/2)
}

// ApplyGravity integrates gravity into vy for an airborne body. Falling uses
// the fall multiplier and the result never drops below -MaxFallSpeed.
func ApplyGravity(vy float64, grounded bool, gravity, fallMultiplier, dt float64) float64 {
	if grounded {
		return vy
	}
	mult := 1.0
	if vy < 0 {
		mult = fallMultiplier
	}
	vy -= gravity * mult * dt
	return math.Max(vy, -MaxFallSpeed)
}

// HorizontalVelocity maps left/right input to a signed speed.
func HorizontalVelocity(left, right bool, speed float64) float64 {
	dir := 0.0
	if left {
		dir--
	}
	if right {
		dir++
	}
	return dir * speed
}

// UpdateJumpBuffer arms the buffer on a fresh press and counts it down.
func UpdateJumpBuffer(justPressed bool, buffer, frames int) int {
	if justPressed {
		buffer = frames
	}
	if buffer > 0 {
		buffer--
	}
	return buffer
}

// UpdateCoyote refills the coyote counter while grounded and drains it in the air.
func UpdateCoyote(grounded bool, coyote, frames int) int {
	if grounded {
		return frames
	}
	if coyote > 0 {
		return coyote - 1
	}
	return 0
}

// JumpState is the input to TryJump.
type JumpState struct {
	Grounded    bool
	Coyote      int
	JumpBuffer  int
	JustPressed bool
	VY          float64
}

// TryJump applies the jump impulse when the body may jump and wants to.
// A successful jump clears both the coyote and buffer counters.
func TryJump(s JumpState, jumpVelocity float64) (JumpState, bool) {
	canJump := s.Grounded || s.Coyote > 0
	wantsJump := s.JumpBuffer > 0 || s.JustPressed
	if !canJump || !wantsJump {
		return s, false
	}
	s.VY = jumpVelocity
	s.Coyote = 0
	s.JumpBuffer = 0
	return s, true
}

// ApplyVariableJump halves upward velocity once the jump button is released.
func ApplyVariableJump(vy float64, jumpHeld, enabled bool) float64 {
	if enabled && !jumpHeld && vy > 0 {
		return vy * 0.5
	}
	return vy
}

// ApplySurfaceFriction decays vx by the surface friction and snaps tiny
// speeds to zero.
func ApplySurfaceFriction(vx, friction float64) float64 {
	decay := common.Clamp(1-common.Clamp(friction, 0, 1)*0.25, 0, 1)
	vx *= decay
	if math.Abs(vx) < 0.1 {
		return 0
	}
	return vx
}

// SurfaceFriction averages the friction of the tiles under the body's feet.
func SurfaceFriction(tm *levels.Tilemap, x, y, width, height float64) float64 {
	ts := tm.TileSize()
	minTX := common.FloorDiv(x-width*0.5+0.5, ts)
	maxTX := common.FloorDiv(x+width*0.5-0.5, ts)
	ty := common.FloorDiv(y-height*0.5-0.25, ts)
	total, count := 0.0, 0
	for tx := minTX; tx <= maxTX; tx++ {
		total += tm.TileFriction(tx, ty)
		count++
	}
	if count == 0 {
		return 1
	}
	return total / float64(count)
}

// Motion is a body's kinematic state for ResolveMotion.
type Motion struct {
	X, Y          float64
	VX, VY        float64
	Width, Height float64
}

// ResolveMotion integrates velocity over dt and resolves the result against
// the tilemap, x axis first. Solid tiles block on both axes, one-way platforms
// only stop downward entry, and slopes land the body on their diagonal.
func ResolveMotion(tm *levels.Tilemap, m Motion, dt float64, counters *Counters) Motion {
	ts := tm.TileSize()
	m.VY = math.Max(m.VY, -MaxFallSpeed)
	dx := m.VX * dt
	dy := m.VY * dt

	newX := m.X + dx
	xBox := Box(newX, m.Y, m.Width, m.Height)
	if !collidesSolid(tm, xBox, counters) {
		m.X = newX
	} else {
		if dx > 0 {
			tx := common.FloorDiv(xBox.R, ts)
			m.X = float64(tx)*ts - m.Width/2 - 0.01
		} else if dx < 0 {
			tx := common.FloorDiv(xBox.L, ts)
			m.X = float64(tx+1)*ts + m.Width/2 + 0.01
		}
		m.VX = 0
	}

	newY := m.Y + dy
	yBox := Box(m.X, newY, m.Width, m.Height)
	landing, landed := 0.0, false
	if dy < 0 {
		probe := landingProbe{x: m.X, prevY: m.Y, newY: newY, width: m.Width, height: m.Height}
		if y, ok := findPlatformLanding(tm, probe, counters); ok {
			landing, landed = y, true
		}
		if y, ok := findSlopeLanding(tm, probe, counters); ok && (!landed || y > landing) {
			landing, landed = y, true
		}
	}

	if !landed && !collidesSolid(tm, yBox, counters) {
		m.Y = newY
		return m
	}
	switch {
	case landed:
		m.Y = landing
	case dy < 0:
		ty := common.FloorDiv(yBox.B, ts)
		m.Y = float64(ty+1)*ts + m.Height/2
	case dy > 0:
		ty := common.FloorDiv(yBox.T, ts)
		m.Y = float64(ty)*ts - m.Height/2 - 0.01
	}
	m.VY = 0
	return m
}

// ComputeGrounded reports whether the body stands on a solid, platform or
// slope tile within a small downward epsilon.
func ComputeGrounded(tm *levels.Tilemap, x, y, width, height float64, counters *Counters) bool {
	ts := tm.TileSize()
	checkY := y - height/2 - 0.5
	leftTX := common.FloorDiv(x-width/2+1, ts)
	rightTX := common.FloorDiv(x+width/2-1, ts)
	ty := common.FloorDiv(checkY, ts)
	bottom := y - height/2

	for tx := leftTX; tx <= rightTX; tx++ {
		counters.probe()
		t := tm.Type(tx, ty)
		if t.Solid || t.Platform {
			return true
		}
		if surface, ok := slopeSurfaceY(t.Slope, tx, ty, x, ts); ok {
			if bottom >= surface-1 && bottom <= surface+1.5 {
				return true
			}
		}
	}
	return false
}

// CollidesTile reports whether the body overlaps any tile accepted by match.
func CollidesTile(tm *levels.Tilemap, x, y, width, height float64, match func(levels.TileType) bool, counters *Counters) bool {
	return overlapsTiles(tm, Box(x, y, width, height), match, counters)
}

// OnClimbable reports whether m overlaps a ladder or other climbable tile.
func OnClimbable(tm *levels.Tilemap, m Motion, counters *Counters) bool {
	return CollidesTile(tm, m.X, m.Y, m.Width, m.Height, func(t levels.TileType) bool { return t.Climbable }, counters)
}

// CollidesPoint reports whether a world point lies inside a solid tile.
func CollidesPoint(tm *levels.Tilemap, x, y float64) bool {
	ts := tm.TileSize()
	return tm.IsSolid(common.FloorDiv(x, ts), common.FloorDiv(y, ts))
}

func collidesSolid(tm *levels.Tilemap, bb cp.BB, counters *Counters) bool {
	return overlapsTiles(tm, bb, func(t levels.TileType) bool { return t.Solid }, counters)
}

func overlapsTiles(tm *levels.Tilemap, bb cp.BB, match func(levels.TileType) bool, counters *Counters) bool {
	ts := tm.TileSize()
	minTX := common.FloorDiv(bb.L, ts)
	maxTX := common.FloorDiv(bb.R-0.01, ts)
	minTY := common.FloorDiv(bb.B, ts)
	maxTY := common.FloorDiv(bb.T-0.01, ts)

	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			counters.probe()
			if !match(tm.Type(tx, ty)) {
				continue
			}
			tMinX, tMinY := float64(tx)*ts, float64(ty)*ts
			if bb.R > tMinX && bb.L < tMinX+ts && bb.T > tMinY && bb.B < tMinY+ts {
				return true
			}
		}
	}
	return false
}

type landingProbe struct {
	x, prevY, newY float64
	width, height  float64
}

func (p landingProbe) span(ts float64) (leftTX, rightTX, minTY, maxTY int, prevBottom, newBottom float64) {
	prevBottom = p.prevY - p.height/2
	newBottom = p.newY - p.height/2
	leftTX = common.FloorDiv(p.x-p.width/2+0.01, ts)
	rightTX = common.FloorDiv(p.x+p.width/2-0.01, ts)
	minTY = common.FloorDiv(newBottom, ts)
	maxTY = common.FloorDiv(prevBottom-0.01, ts)
	return
}

func findPlatformLanding(tm *levels.Tilemap, p landingProbe, counters *Counters) (float64, bool) {
	ts := tm.TileSize()
	leftTX, rightTX, minTY, maxTY, prevBottom, newBottom := p.span(ts)
	if prevBottom <= newBottom {
		return 0, false
	}

	best, found := 0.0, false
	for ty := minTY; ty <= maxTY; ty++ {
		top := float64(ty+1) * ts
		if prevBottom < top-0.01 || newBottom > top {
			continue
		}
		for tx := leftTX; tx <= rightTX; tx++ {
			counters.probe()
			if tm.IsPlatform(tx, ty) && (!found || top > best) {
				best, found = top, true
			}
		}
	}
	if !found {
		return 0, false
	}
	return best + p.height/2, true
}

func findSlopeLanding(tm *levels.Tilemap, p landingProbe, counters *Counters) (float64, bool) {
	ts := tm.TileSize()
	leftTX, rightTX, minTY, maxTY, prevBottom, newBottom := p.span(ts)
	if prevBottom <= newBottom {
		return 0, false
	}

	best, found := 0.0, false
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := leftTX; tx <= rightTX; tx++ {
			counters.probe()
			surface, ok := slopeSurfaceY(tm.SlopeAt(tx, ty), tx, ty, p.x, ts)
			if !ok {
				continue
			}
			if prevBottom >= surface-0.01 && newBottom <= surface && (!found || surface > best) {
				best, found = surface, true
			}
		}
	}
	if !found {
		return 0, false
	}
	return best + p.height/2, true
}

// slopeSurfaceY projects worldX onto the slope diagonal of tile (tx, ty).
func slopeSurfaceY(slope levels.Slope, tx, ty int, worldX, ts float64) (float64, bool) {
	local := common.Clamp(worldX-float64(tx)*ts, 0, ts)
	base := float64(ty) * ts
	switch slope {
	case levels.SlopeUp:
		return base + local, true
	case levels.SlopeDown:
		return base + (ts - local), true
	default:
		return 0, false
	}
}
