package component

// Hitbox represents an offensive AABB relative to the entity transform. It
// only deals damage while Active is set.
type Hitbox struct {
	Active    bool
	Width     float64
	Height    float64
	OffsetX   float64
	OffsetY   float64
	Damage    float64
	Knockback float64
	Cooldown  int
	TargetTag string
}

var HitboxComponent = NewNamedComponent[Hitbox]("hitbox")
