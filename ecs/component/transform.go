package component

// Transform is the entity's centre position in world units (y up).
type Transform struct {
	X float64
	Y float64
}

var TransformComponent = NewNamedComponent[Transform]("transform")

type Velocity struct {
	X float64
	Y float64
}

var VelocityComponent = NewNamedComponent[Velocity]("velocity")
