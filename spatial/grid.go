// Package spatial is a uniform-grid broad phase keyed by entity StableID.
package spatial

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"
	"github.com/kamstrup/intmap"
)

// DefaultCellSize fits the largest expected collider.
const DefaultCellSize = 64.0

// Item is one entity inserted into the grid.
type Item struct {
	ID     uint64
	Bounds cp.BB
}

// Grid maps world cells to the entities whose bounds touch them.
type Grid struct {
	cellSize float64
	cells    *intmap.Map[uint64, []uint64]
	bounds   *intmap.Map[uint64, cp.BB]
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize: cellSize,
		cells:    intmap.New[uint64, []uint64](256),
		bounds:   intmap.New[uint64, cp.BB](256),
	}
}

func (g *Grid) CellSize() float64 {
	return g.cellSize
}

func cellKey(cx, cy int) uint64 {
	return uint64(uint32(int32(cx)))<<32 | uint64(uint32(int32(cy)))
}

func (g *Grid) cellRange(bb cp.BB) (minX, minY, maxX, maxY int) {
	return int(math.Floor(bb.L / g.cellSize)), int(math.Floor(bb.B / g.cellSize)),
		int(math.Floor(bb.R / g.cellSize)), int(math.Floor(bb.T / g.cellSize))
}

// Clear removes every entity.
func (g *Grid) Clear() {
	g.cells.Clear()
	g.bounds.Clear()
}

// Insert adds an entity to every cell its bounds cover.
func (g *Grid) Insert(id uint64, bb cp.BB) {
	g.bounds.Put(id, bb)
	minX, minY, maxX, maxY := g.cellRange(bb)
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			key := cellKey(cx, cy)
			members, _ := g.cells.Get(key)
			g.cells.Put(key, append(members, id))
		}
	}
}

// Rebuild replaces the grid contents with items.
func (g *Grid) Rebuild(items []Item) {
	g.Clear()
	for _, it := range items {
		g.Insert(it.ID, it.Bounds)
	}
}

// Len returns the number of indexed entities.
func (g *Grid) Len() int {
	return g.bounds.Len()
}

// Bounds returns the indexed bounds for id.
func (g *Grid) Bounds(id uint64) (cp.BB, bool) {
	return g.bounds.Get(id)
}

// candidates gathers every id in the cells overlapping bb, sorted and
// deduplicated.
func (g *Grid) candidates(bb cp.BB) []uint64 {
	minX, minY, maxX, maxY := g.cellRange(bb)
	var out []uint64
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			if members, ok := g.cells.Get(cellKey(cx, cy)); ok {
				out = append(out, members...)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return dedup(out)
}

func dedup(ids []uint64) []uint64 {
	if len(ids) < 2 {
		return ids
	}
	w := 1
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[w-1] {
			ids[w] = ids[i]
			w++
		}
	}
	return ids[:w]
}

// QueryRect returns ids whose bounds touch the box [min, max], in ascending
// order. Touching edges count as a hit.
func (g *Grid) QueryRect(minX, minY, maxX, maxY float64) []uint64 {
	query := cp.BB{L: minX, B: minY, R: maxX, T: maxY}
	ids := g.candidates(query)
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if bb, ok := g.bounds.Get(id); ok && bb.Intersects(query) {
			out = append(out, id)
		}
	}
	return out
}

// QueryRadius returns ids whose bounds touch the circle, in ascending order.
func (g *Grid) QueryRadius(x, y, r float64) []uint64 {
	center := cp.Vector{X: x, Y: y}
	ids := g.candidates(cp.NewBBForCircle(center, r))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		bb, ok := g.bounds.Get(id)
		if !ok {
			continue
		}
		closest := bb.ClampVect(&center)
		if closest.DistanceSq(center) <= r*r {
			out = append(out, id)
		}
	}
	return out
}
