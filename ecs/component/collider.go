package component

import "github.com/jakecoffman/cp"

type Shape string

const (
	ShapeAABB   Shape = "aabb"
	ShapeCircle Shape = "circle"
)

// Collider is an axis-aligned box or a circle centred on the transform plus
// an offset. Entities without one never take part in contact damage or
// pickups.
type Collider struct {
	Shape   Shape
	Width   float64
	Height  float64
	Radius  float64
	OffsetX float64
	OffsetY float64
}

var ColliderComponent = NewNamedComponent[Collider]("collider")

// Center returns the collider centre for an entity at (x, y).
func (c Collider) Center(x, y float64) cp.Vector {
	return cp.Vector{X: x + c.OffsetX, Y: y + c.OffsetY}
}

// Bounds returns the collider's bounding box for an entity at (x, y).
func (c Collider) Bounds(x, y float64) cp.BB {
	center := c.Center(x, y)
	if c.Shape == ShapeCircle {
		return cp.NewBBForCircle(center, c.Radius)
	}
	return cp.NewBBForExtents(center, c.Width/2, c.Height/2)
}

// HalfExtents returns half width and half height of the bounding box.
func (c Collider) HalfExtents() (float64, float64) {
	if c.Shape == ShapeCircle {
		return c.Radius, c.Radius
	}
	return c.Width / 2, c.Height / 2
}
