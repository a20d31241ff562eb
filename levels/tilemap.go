package levels

import (
	"errors"
	"fmt"

	"github.com/milk9111/simcore/common"
)

var ErrInvalidTilemap = errors.New("levels: invalid tilemap")

// DefaultTileSize is the edge length of a tile in world units.
const DefaultTileSize = 16.0

// Tilemap is a width x height grid of tile ids stored row-major with row 0 at
// the bottom. Consumers use the accessors only.
type Tilemap struct {
	width    int
	height   int
	tileSize float64
	tiles    []int
	registry *Registry

	SpawnX float64
	SpawnY float64
	// Goal is a tile coordinate; HasGoal is false when the map has none.
	GoalX   int
	GoalY   int
	HasGoal bool
}

// NewTilemap validates and builds a tilemap. A nil registry uses the defaults.
func NewTilemap(width, height int, tileSize float64, tiles []int, reg *Registry) (*Tilemap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidTilemap, width, height)
	}
	if len(tiles) != width*height {
		return nil, fmt.Errorf("%w: %d tiles for %dx%d grid", ErrInvalidTilemap, len(tiles), width, height)
	}
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Tilemap{
		width:    width,
		height:   height,
		tileSize: tileSize,
		tiles:    append([]int(nil), tiles...),
		registry: reg,
	}, nil
}

func (m *Tilemap) Width() int          { return m.width }
func (m *Tilemap) Height() int         { return m.height }
func (m *Tilemap) TileSize() float64   { return m.tileSize }
func (m *Tilemap) Registry() *Registry { return m.registry }

// SetRegistry swaps tile type definitions without touching tile ids.
func (m *Tilemap) SetRegistry(r *Registry) {
	if r != nil {
		m.registry = r
	}
}

func (m *Tilemap) inBounds(tx, ty int) bool {
	return tx >= 0 && ty >= 0 && tx < m.width && ty < m.height
}

// GetTile returns the tile id at (tx, ty). Out-of-bounds tiles are empty.
func (m *Tilemap) GetTile(tx, ty int) int {
	if m == nil || !m.inBounds(tx, ty) {
		return TileEmpty
	}
	return m.tiles[ty*m.width+tx]
}

// SetTile writes a tile id, ignoring out-of-bounds coordinates.
func (m *Tilemap) SetTile(tx, ty, id int) bool {
	if m == nil || !m.inBounds(tx, ty) {
		return false
	}
	m.tiles[ty*m.width+tx] = id
	return true
}

func (m *Tilemap) Type(tx, ty int) TileType {
	if m == nil {
		return TileType{}
	}
	return m.registry.Get(m.GetTile(tx, ty))
}

func (m *Tilemap) IsSolid(tx, ty int) bool     { return m.Type(tx, ty).Solid }
func (m *Tilemap) IsPlatform(tx, ty int) bool  { return m.Type(tx, ty).Platform }
func (m *Tilemap) IsClimbable(tx, ty int) bool { return m.Type(tx, ty).Climbable }
func (m *Tilemap) TileFriction(tx, ty int) float64 {
	return m.Type(tx, ty).Friction
}

// SlopeAt returns the slope orientation of a tile.
func (m *Tilemap) SlopeAt(tx, ty int) Slope {
	return m.Type(tx, ty).Slope
}

// Tiles returns a copy of the raw tile ids.
func (m *Tilemap) Tiles() []int {
	return append([]int(nil), m.tiles...)
}

// Clone returns a deep copy sharing the registry.
func (m *Tilemap) Clone() *Tilemap {
	cp := *m
	cp.tiles = append([]int(nil), m.tiles...)
	return &cp
}

// WorldToTile converts a world coordinate to its tile index on one axis.
func (m *Tilemap) WorldToTile(v float64) int {
	return common.FloorDiv(v, m.tileSize)
}

// TileCenter returns the world centre of a tile.
func (m *Tilemap) TileCenter(tx, ty int) (float64, float64) {
	return (float64(tx) + 0.5) * m.tileSize, (float64(ty) + 0.5) * m.tileSize
}
