package system

import (
	"container/heap"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/levels"
)

type gridPos struct {
	x int
	y int
}

// walkable reports whether a top-down actor can stand in a tile: inside the
// map and neither solid nor a hazard.
func walkable(tm *levels.Tilemap, tx, ty int) bool {
	if tx < 0 || ty < 0 || tx >= tm.Width() || ty >= tm.Height() {
		return false
	}
	t := tm.Type(tx, ty)
	return !t.Solid && !t.Hazard
}

// FindPath returns world-space waypoints from one point to another through
// walkable tiles, ending exactly at the destination. It returns nil when the
// destination cannot be reached.
func FindPath(tm *levels.Tilemap, fromX, fromY, toX, toY float64) []component.PathNode {
	if tm == nil {
		return nil
	}
	start := gridPos{x: tm.WorldToTile(fromX), y: tm.WorldToTile(fromY)}
	goal := gridPos{x: tm.WorldToTile(toX), y: tm.WorldToTile(toY)}
	if start == goal {
		return []component.PathNode{{X: toX, Y: toY}}
	}
	if !walkable(tm, goal.x, goal.y) || start.x < 0 || start.y < 0 || start.x >= tm.Width() || start.y >= tm.Height() {
		return nil
	}

	tiles := astarPath(tm, start, goal)
	if len(tiles) == 0 {
		return nil
	}
	out := make([]component.PathNode, 0, len(tiles))
	for _, p := range tiles[1 : len(tiles)-1] {
		x, y := tm.TileCenter(p.x, p.y)
		out = append(out, component.PathNode{X: x, Y: y})
	}
	return append(out, component.PathNode{X: toX, Y: toY})
}

func astarPath(tm *levels.Tilemap, start, goal gridPos) []gridPos {
	gridW, gridH := tm.Width(), tm.Height()
	open := &openSet{}
	heap.Init(open)

	cameFrom := make([]int, gridW*gridH)
	for i := range cameFrom {
		cameFrom[i] = -1
	}
	gScore := make([]float64, gridW*gridH)
	for i := range gScore {
		gScore[i] = math.Inf(1)
	}
	startIdx := start.y*gridW + start.x
	goalIdx := goal.y*gridW + goal.x
	gScore[startIdx] = 0
	seq := 0
	heap.Push(open, &openItem{pos: start, f: heuristic(start, goal), seq: seq})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*openItem).pos
		curIdx := cur.y*gridW + cur.x
		if curIdx == goalIdx {
			return reconstructPath(cameFrom, gridW, startIdx, goalIdx)
		}
		for _, n := range neighbors(tm, cur) {
			idx := n.y*gridW + n.x
			step := 1.0
			if n.x != cur.x && n.y != cur.y {
				step = math.Sqrt2
			}
			tentative := gScore[curIdx] + step
			if tentative < gScore[idx] {
				cameFrom[idx] = curIdx
				gScore[idx] = tentative
				seq++
				heap.Push(open, &openItem{pos: n, f: tentative + heuristic(n, goal), seq: seq})
			}
		}
	}
	return nil
}

func reconstructPath(cameFrom []int, gridW int, startIdx, goalIdx int) []gridPos {
	path := make([]gridPos, 0, 32)
	for cur := goalIdx; cur != -1; cur = cameFrom[cur] {
		path = append(path, gridPos{x: cur % gridW, y: cur / gridW})
		if cur == startIdx {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// neighbors yields walkable 8-way steps; diagonals may not cut corners.
func neighbors(tm *levels.Tilemap, p gridPos) []gridPos {
	out := make([]gridPos, 0, 8)
	for _, d := range [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
		nx, ny := p.x+d[0], p.y+d[1]
		if !walkable(tm, nx, ny) {
			continue
		}
		if d[0] != 0 && d[1] != 0 && (!walkable(tm, p.x+d[0], p.y) || !walkable(tm, p.x, p.y+d[1])) {
			continue
		}
		out = append(out, gridPos{x: nx, y: ny})
	}
	return out
}

// heuristic is the octile distance.
func heuristic(a, b gridPos) float64 {
	dx := math.Abs(float64(a.x - b.x))
	dy := math.Abs(float64(a.y - b.y))
	return math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)
}

type openItem struct {
	pos   gridPos
	f     float64
	seq   int
	index int
}

type openSet []*openItem

func (o openSet) Len() int { return len(o) }

// Less breaks f ties by insertion order so paths are reproducible.
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}

func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}

func (o *openSet) Push(x any) {
	item := x.(*openItem)
	item.index = len(*o)
	*o = append(*o, item)
}

func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return item
}

// LineOfSight samples the segment in quarter-tile steps and fails on the
// first solid tile.
func LineOfSight(tm *levels.Tilemap, fromX, fromY, toX, toY float64) bool {
	if tm == nil {
		return true
	}
	from, to := cp.Vector{X: fromX, Y: fromY}, cp.Vector{X: toX, Y: toY}
	dist := from.Distance(to)
	if dist <= 0.001 {
		return true
	}
	dir := to.Sub(from).Mult(1 / dist)
	step := math.Min(math.Max(tm.TileSize()*0.25, 0.25), 4)
	for d := 0.0; d <= dist; d += step {
		p := from.Add(dir.Mult(d))
		if tm.IsSolid(tm.WorldToTile(p.X), tm.WorldToTile(p.Y)) {
			return false
		}
	}
	return true
}

// RayHit is the closest thing a ray struck.
type RayHit struct {
	Hit      bool
	X, Y     float64
	Distance float64
	Entity   ecs.StableID
	Tile     bool
}

// Raycast walks the tile grid with a DDA and tests indexed entity bounds,
// returning whichever is nearer. ignore is skipped.
func Raycast(w *ecs.World, x, y, dx, dy, maxDist float64, ignore ecs.StableID) RayHit {
	dir := cp.Vector{X: dx, Y: dy}
	if dir.Length() <= 1e-4 || maxDist <= 0 {
		return RayHit{}
	}
	dir = dir.Normalize()
	origin := cp.Vector{X: x, Y: y}
	best := RayHit{Distance: math.Inf(1)}

	if tm := w.Tilemap(); tm != nil {
		if d, ok := tileRay(tm, origin, dir, maxDist); ok {
			p := origin.Add(dir.Mult(d))
			best = RayHit{Hit: true, X: p.X, Y: p.Y, Distance: d, Tile: true}
		}
	}

	if grid := w.Spatial(); grid != nil {
		end := origin.Add(dir.Mult(maxDist))
		box := cp.NewBBForExtents(origin.Lerp(end, 0.5), math.Abs(end.X-origin.X)/2, math.Abs(end.Y-origin.Y)/2)
		for _, id := range grid.QueryRect(box.L, box.B, box.R, box.T) {
			if ecs.StableID(id) == ignore {
				continue
			}
			bb, ok := grid.Bounds(id)
			if !ok || bb.L == bb.R || bb.B == bb.T {
				continue
			}
			frac := bb.SegmentQuery(origin, end)
			if math.IsInf(frac, 0) || frac > 1 {
				continue
			}
			if d := frac * maxDist; d < best.Distance {
				p := origin.Add(dir.Mult(d))
				best = RayHit{Hit: true, X: p.X, Y: p.Y, Distance: d, Entity: ecs.StableID(id)}
			}
		}
	}

	if !best.Hit {
		return RayHit{}
	}
	return best
}

// tileRay returns the distance to the first solid tile along the ray.
func tileRay(tm *levels.Tilemap, origin, dir cp.Vector, maxDist float64) (float64, bool) {
	ts := tm.TileSize()
	tx, ty := tm.WorldToTile(origin.X), tm.WorldToTile(origin.Y)
	if tm.IsSolid(tx, ty) {
		return 0, true
	}

	stepX, stepY := 1, 1
	if dir.X < 0 {
		stepX = -1
	}
	if dir.Y < 0 {
		stepY = -1
	}
	boundary := func(t int, step int) float64 {
		if step > 0 {
			return float64(t+1) * ts
		}
		return float64(t) * ts
	}
	tMaxX, tDeltaX := math.Inf(1), math.Inf(1)
	if dir.X != 0 {
		tMaxX = (boundary(tx, stepX) - origin.X) / dir.X
		tDeltaX = ts / math.Abs(dir.X)
	}
	tMaxY, tDeltaY := math.Inf(1), math.Inf(1)
	if dir.Y != 0 {
		tMaxY = (boundary(ty, stepY) - origin.Y) / dir.Y
		tDeltaY = ts / math.Abs(dir.Y)
	}

	for {
		var d float64
		if tMaxX < tMaxY {
			d = tMaxX
			tx += stepX
			tMaxX += tDeltaX
		} else {
			d = tMaxY
			ty += stepY
			tMaxY += tDeltaY
		}
		if d > maxDist {
			return 0, false
		}
		if tm.IsSolid(tx, ty) {
			return d, true
		}
		if tx < -1 || ty < -1 || tx > tm.Width() || ty > tm.Height() {
			return 0, false
		}
	}
}
