package component

// Input is the latest control state for a player-driven entity. JumpPressed
// is true only on the tick the jump button went down.
type Input struct {
	Left        bool
	Right       bool
	Up          bool
	Down        bool
	Jump        bool
	JumpPressed bool
	prevJump    bool
}

var InputComponent = NewNamedComponent[Input]("input")

// SetJump updates the held state and derives JumpPressed.
func (i *Input) SetJump(held bool) {
	i.Jump = held
	i.JumpPressed = held && !i.prevJump
	i.prevJump = held
}

// Settle clears the edge flag after a tick consumed it.
func (i *Input) Settle() {
	i.JumpPressed = false
	i.prevJump = i.Jump
}
