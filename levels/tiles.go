package levels

import "sort"

// Built-in tile ids.
const (
	TileEmpty     = 0
	TileSolid     = 1
	TileSpike     = 2
	TileGoal      = 3
	TilePlatform  = 4
	TileSlopeUp   = 5
	TileSlopeDown = 6
	TileLadder    = 7
)

type Slope int

const (
	SlopeNone Slope = iota
	// SlopeUp rises to the right.
	SlopeUp
	// SlopeDown falls to the right.
	SlopeDown
)

// TileType describes how physics and interaction treat a tile id.
type TileType struct {
	ID        int     `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Solid     bool    `json:"solid" yaml:"solid"`
	Platform  bool    `json:"platform" yaml:"platform"`
	Climbable bool    `json:"climbable" yaml:"climbable"`
	Slope     Slope   `json:"slope" yaml:"slope"`
	Friction  float64 `json:"friction" yaml:"friction"`
	Hazard    bool    `json:"hazard" yaml:"hazard"`
	Goal      bool    `json:"goal" yaml:"goal"`
}

// Registry maps tile ids to their types. Unknown ids behave as empty.
type Registry struct {
	types map[int]TileType
}

func DefaultRegistry() *Registry {
	r := &Registry{types: map[int]TileType{}}
	for _, t := range []TileType{
		{ID: TileEmpty, Name: "empty"},
		{ID: TileSolid, Name: "solid", Solid: true, Friction: 1},
		{ID: TileSpike, Name: "spike", Hazard: true},
		{ID: TileGoal, Name: "goal", Goal: true},
		{ID: TilePlatform, Name: "platform", Platform: true, Friction: 1},
		{ID: TileSlopeUp, Name: "slope_up", Slope: SlopeUp, Friction: 1},
		{ID: TileSlopeDown, Name: "slope_down", Slope: SlopeDown, Friction: 1},
		{ID: TileLadder, Name: "ladder", Climbable: true},
	} {
		r.types[t.ID] = t
	}
	return r
}

// Set adds or replaces a tile type.
func (r *Registry) Set(t TileType) {
	if r.types == nil {
		r.types = map[int]TileType{}
	}
	r.types[t.ID] = t
}

func (r *Registry) Get(id int) TileType {
	if r == nil {
		return TileType{ID: id}
	}
	if t, ok := r.types[id]; ok {
		return t
	}
	return TileType{ID: id}
}

// Types lists registered types ordered by id.
func (r *Registry) Types() []TileType {
	out := make([]TileType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	out := &Registry{types: make(map[int]TileType, len(r.types))}
	for id, t := range r.types {
		out.types[id] = t
	}
	return out
}
