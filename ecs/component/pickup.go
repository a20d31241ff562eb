package component

type PickupEffectKind string

const (
	PickupHeal   PickupEffectKind = "heal"
	PickupScore  PickupEffectKind = "score"
	PickupCustom PickupEffectKind = "custom"
)

// PickupEffect is applied once to the collecting entity.
type PickupEffect struct {
	Kind   PickupEffectKind
	Amount float64
	Name   string
}

// Pickup is a collectible consumed by the first tag-matching entity that
// overlaps it.
type Pickup struct {
	Effect    PickupEffect
	TargetTag string
}

var PickupComponent = NewNamedComponent[Pickup]("pickup")
