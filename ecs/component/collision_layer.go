package component

// CollisionLayer gates which entity pairs interact. A zero Category is
// treated as 1 and a zero Mask as all bits.
type CollisionLayer struct {
	Category uint32
	Mask     uint32
}

var CollisionLayerComponent = NewNamedComponent[CollisionLayer]("collision_layer")

func (l CollisionLayer) category() uint32 {
	if l.Category == 0 {
		return 1
	}
	return l.Category
}

func (l CollisionLayer) mask() uint32 {
	if l.Mask == 0 {
		return ^uint32(0)
	}
	return l.Mask
}

// Interacts reports whether two layers accept each other.
func (l CollisionLayer) Interacts(other CollisionLayer) bool {
	return l.mask()&other.category() != 0 && other.mask()&l.category() != 0
}
