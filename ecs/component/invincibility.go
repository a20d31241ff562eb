package component

// Invincibility makes an entity immune to damage for Ticks more ticks. The
// component is removed when the countdown reaches zero.
type Invincibility struct {
	Ticks int
}

var InvincibilityComponent = NewNamedComponent[Invincibility]("invincibility")
