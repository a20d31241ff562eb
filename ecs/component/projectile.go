package component

// Projectile travels along a fixed direction at a constant speed until its
// lifetime runs out, it hits a solid tile, or it hits a target.
type Projectile struct {
	DirX      float64
	DirY      float64
	Speed     float64
	Lifetime  int
	Damage    float64
	Owner     uint64
	TargetTag string
}

var ProjectileComponent = NewNamedComponent[Projectile]("projectile")
