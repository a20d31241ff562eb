package component

// ContactDamage hurts tag-matching entities that overlap the owner's
// collider. Cooldown is counted in ticks per attacker/victim pair.
type ContactDamage struct {
	Amount    float64
	Cooldown  int
	Knockback float64
	TargetTag string
}

var ContactDamageComponent = NewNamedComponent[ContactDamage]("contact_damage")
