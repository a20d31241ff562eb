package component

// Body opts an entity into gravity and tile collision. The counters carry
// coyote time and jump buffering between ticks.
type Body struct {
	GravityScale float64
	Grounded     bool
	Coyote       int
	JumpBuffer   int
}

var BodyComponent = NewNamedComponent[Body]("body")

// SolidBody entities are pushed apart when they overlap each other.
type SolidBody struct{}

var SolidBodyComponent = NewNamedComponent[SolidBody]("solid_body")
