package physics

import "github.com/milk9111/simcore/levels"

// Params are the tunable movement constants.
type Params struct {
	Gravity          float64 `yaml:"gravity" json:"gravity"`
	FallMultiplier   float64 `yaml:"fall_multiplier" json:"fall_multiplier"`
	JumpVelocity     float64 `yaml:"jump_velocity" json:"jump_velocity"`
	MoveSpeed        float64 `yaml:"move_speed" json:"move_speed"`
	CoyoteFrames     int     `yaml:"coyote_frames" json:"coyote_frames"`
	JumpBufferFrames int     `yaml:"jump_buffer_frames" json:"jump_buffer_frames"`
	VariableJump     bool    `yaml:"variable_jump" json:"variable_jump"`
}

// ClimbFactor scales MoveSpeed for vertical movement on climbable tiles.
const ClimbFactor = 0.6

func DefaultParams() Params {
	return Params{
		Gravity:          980,
		FallMultiplier:   1.5,
		JumpVelocity:     400,
		MoveSpeed:        200,
		CoyoteFrames:     5,
		JumpBufferFrames: 4,
		VariableJump:     true,
	}
}

// TopDown reports whether the parameters describe a gravity-free world in
// which bodies steer on both axes.
func (p Params) TopDown() bool {
	return p.Gravity <= 1e-6 || p.JumpVelocity <= 0
}

// Input is the control state a body is driven by for one step.
type Input struct {
	Left, Right, Up, Down bool
	Jump                  bool
	JumpPressed           bool
}

// Body is everything Step reads and writes for one entity.
type Body struct {
	Motion
	GravityScale float64
	Grounded     bool
	Coyote       int
	JumpBuffer   int
	// Steered bodies keep the horizontal velocity they were given instead of
	// sliding to a stop on the ground.
	Steered bool
}

// StepEvents reports transitions that happened during a step.
type StepEvents struct {
	Jumped bool
	Landed bool
}

// Step advances one body by dt. Controlled bodies read in; uncontrolled
// bodies only fall and slide to a stop.
func Step(tm *levels.Tilemap, p Params, b Body, in *Input, dt float64, counters *Counters) (Body, StepEvents) {
	var ev StepEvents
	wasGrounded := b.Grounded
	topDown := p.TopDown()
	scale := b.GravityScale
	if scale == 0 {
		scale = 1
	}

	switch {
	case topDown && in != nil:
		b.VX = HorizontalVelocity(in.Left, in.Right, p.MoveSpeed)
		b.VY = HorizontalVelocity(in.Down, in.Up, p.MoveSpeed)
	case topDown:
	default:
		climbing := in != nil && (in.Up || in.Down) && OnClimbable(tm, b.Motion, counters)
		if climbing {
			b.VY = HorizontalVelocity(in.Down, in.Up, p.MoveSpeed*ClimbFactor)
		} else {
			b.VY = ApplyGravity(b.VY, b.Grounded, p.Gravity*scale, p.FallMultiplier, dt)
		}
		if in != nil && (in.Left || in.Right) {
			b.VX = HorizontalVelocity(in.Left, in.Right, p.MoveSpeed)
		} else if b.Grounded && !b.Steered {
			b.VX = ApplySurfaceFriction(b.VX, SurfaceFriction(tm, b.X, b.Y, b.Width, b.Height))
		}
		if in != nil {
			b.JumpBuffer = UpdateJumpBuffer(in.JumpPressed, b.JumpBuffer, p.JumpBufferFrames)
			js, jumped := TryJump(JumpState{
				Grounded:    b.Grounded || climbing,
				Coyote:      b.Coyote,
				JumpBuffer:  b.JumpBuffer,
				JustPressed: in.JumpPressed,
				VY:          b.VY,
			}, p.JumpVelocity)
			b.VY, b.Coyote, b.JumpBuffer = js.VY, js.Coyote, js.JumpBuffer
			ev.Jumped = jumped
			if !climbing || jumped {
				b.VY = ApplyVariableJump(b.VY, in.Jump, p.VariableJump)
			}
		}
	}

	b.Motion = ResolveMotion(tm, b.Motion, dt, counters)

	if topDown {
		b.Grounded = true
		return b, ev
	}
	b.Grounded = ComputeGrounded(tm, b.X, b.Y, b.Width, b.Height, counters)
	b.Coyote = UpdateCoyote(b.Grounded, b.Coyote, p.CoyoteFrames)
	ev.Landed = b.Grounded && !wasGrounded
	return b, ev
}
