package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

const (
	waypointReach       = 8.0
	nodeReach           = 4.0
	defaultRepathFrames = 15
)

// AISystem runs the built-in behaviors. Each behavior only decides where to
// go; PathFollowerSystem does the moving.
type AISystem struct{}

func NewAISystem() *AISystem { return &AISystem{} }

func (s *AISystem) Update(w *ecs.World) {
	ecs.ForEach2(w, component.AIComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, ai *component.AI, t *component.Transform) {
		if !ecs.Alive(w, e) {
			return
		}
		pf, ok := ecs.Get(w, e, component.PathFollowerComponent.Kind())
		if !ok {
			pf = &component.PathFollower{}
			_ = ecs.Add(w, e, component.PathFollowerComponent.Kind(), pf)
		}
		pf.Speed = ai.Speed
		self := cp.Vector{X: t.X, Y: t.Y}

		switch ai.Behavior {
		case component.BehaviorPatrol:
			if len(ai.Waypoints) == 0 {
				return
			}
			ai.Index %= len(ai.Waypoints)
			wp := ai.Waypoints[ai.Index]
			if self.Distance(cp.Vector{X: wp.X, Y: wp.Y}) <= waypointReach {
				ai.Index = (ai.Index + 1) % len(ai.Waypoints)
				wp = ai.Waypoints[ai.Index]
			}
			ai.State = "patrolling"
			setGoal(pf, wp.X, wp.Y)

		case component.BehaviorChase:
			if target, ok := nearestTagged(w, e, self, ai.Range, ai.TargetTag, ai.NeedsSight); ok {
				ai.State = "chasing"
				setGoal(pf, target.X, target.Y)
			} else if ai.State == "chasing" && self.Distance(cp.Vector{X: pf.GoalX, Y: pf.GoalY}) > ai.Range*1.5 {
				ai.State = "idle"
				clearGoal(pf)
			}

		case component.BehaviorFlee:
			if threat, ok := nearestTagged(w, e, self, ai.Range, ai.TargetTag, ai.NeedsSight); ok {
				ai.State = "fleeing"
				away := self.Sub(threat)
				if away.LengthSq() > 0 {
					away = away.Normalize()
				} else {
					away = cp.Vector{X: 1}
				}
				dest := self.Add(away.Mult(common.Clamp(ai.Range, 48, 240)))
				if tm := w.Tilemap(); tm != nil {
					ts := tm.TileSize()
					dest.X = common.Clamp(dest.X, 0, float64(tm.Width())*ts)
					dest.Y = common.Clamp(dest.Y, 0, float64(tm.Height())*ts)
				}
				setGoal(pf, dest.X, dest.Y)
			} else if ai.State == "fleeing" {
				ai.State = "idle"
				clearGoal(pf)
			}

		case component.BehaviorGuard:
			home := cp.Vector{X: ai.HomeX, Y: ai.HomeY}
			if target, ok := nearestTagged(w, e, self, ai.Range, ai.TargetTag, ai.NeedsSight); ok {
				ai.State = "chasing"
				setGoal(pf, target.X, target.Y)
			} else if self.Distance(home) > ai.Radius {
				ai.State = "returning"
				setGoal(pf, home.X, home.Y)
			} else {
				ai.State = "idle"
				clearGoal(pf)
			}

		case component.BehaviorWander:
			if ai.Timer > 0 {
				ai.Timer--
				clearGoal(pf)
				return
			}
			// Seeded from identity and position so runs replay identically.
			seed := uint64(ecs.IDOf(w, e))*6364136223846793005 +
				math.Float64bits(t.X*13) + math.Float64bits(t.Y*29)
			angle := float64(seed%628) / 100
			ai.State = "wandering"
			ai.Timer = ai.PauseFrames
			setGoal(pf, t.X+math.Cos(angle)*ai.Radius, t.Y+math.Sin(angle)*ai.Radius)
		}
	})
}

func setGoal(pf *component.PathFollower, x, y float64) {
	pf.GoalX, pf.GoalY, pf.HasGoal = x, y, true
}

func clearGoal(pf *component.PathFollower) {
	pf.HasGoal = false
	pf.Path = nil
}

// nearestTagged finds the closest live entity carrying tag within radius.
func nearestTagged(w *ecs.World, self ecs.Entity, from cp.Vector, radius float64, tag string, sight bool) (cp.Vector, bool) {
	grid := w.Spatial()
	if grid == nil || tag == "" || radius <= 0 {
		return cp.Vector{}, false
	}
	best, bestDist, found := cp.Vector{}, math.Inf(1), false
	for _, id := range grid.QueryRadius(from.X, from.Y, radius) {
		e, ok := ecs.Lookup(w, ecs.StableID(id))
		if !ok || e == self || !hasTag(w, e, tag) || !ecs.Alive(w, e) {
			continue
		}
		x, y, ok := position(w, e)
		if !ok {
			continue
		}
		p := cp.Vector{X: x, Y: y}
		d := from.Distance(p)
		if d > radius || d >= bestDist {
			continue
		}
		if sight && !LineOfSight(w.Tilemap(), from.X, from.Y, x, y) {
			continue
		}
		best, bestDist, found = p, d, true
	}
	return best, found
}

// PathFollowerSystem steers entities along a path to their goal. Bodies under
// gravity only steer horizontally and jump toward higher nodes; everything
// else follows a top-down tile path.
type PathFollowerSystem struct {
	settings *Settings
}

func NewPathFollowerSystem(settings *Settings) *PathFollowerSystem {
	return &PathFollowerSystem{settings: settings}
}

func (s *PathFollowerSystem) Update(w *ecs.World) {
	tm := w.Tilemap()
	p := s.settings.Physics
	ts := 16.0
	if tm != nil {
		ts = tm.TileSize()
	}

	ecs.ForEach3(w, component.PathFollowerComponent.Kind(), component.TransformComponent.Kind(), component.VelocityComponent.Kind(), func(e ecs.Entity, pf *component.PathFollower, t *component.Transform, v *component.Velocity) {
		if !ecs.Alive(w, e) {
			return
		}
		body, hasBody := ecs.Get(w, e, component.BodyComponent.Kind())
		platformer := hasBody && !p.TopDown()
		pos := cp.Vector{X: t.X, Y: t.Y}

		if !pf.HasGoal {
			v.X = 0
			if !platformer {
				v.Y = 0
			}
			return
		}

		goal := cp.Vector{X: pf.GoalX, Y: pf.GoalY}
		stale := len(pf.Path) == 0
		if !stale {
			last := pf.Path[len(pf.Path)-1]
			stale = goal.Distance(cp.Vector{X: last.X, Y: last.Y}) > ts
		}
		if stale || pf.FrameCounter <= 0 {
			if platformer {
				pf.Path = []component.PathNode{{X: goal.X, Y: goal.Y}}
			} else if path := FindPath(tm, t.X, t.Y, goal.X, goal.Y); path != nil {
				pf.Path = path
			} else {
				pf.Path = []component.PathNode{{X: goal.X, Y: goal.Y}}
			}
			pf.FrameCounter = pf.RepathFrames
			if pf.FrameCounter <= 0 {
				pf.FrameCounter = defaultRepathFrames
			}
		} else {
			pf.FrameCounter--
		}

		for len(pf.Path) > 0 && pos.Distance(cp.Vector{X: pf.Path[0].X, Y: pf.Path[0].Y}) <= nodeReach {
			pf.Path = pf.Path[1:]
		}
		if len(pf.Path) == 0 {
			v.X = 0
			if !platformer {
				v.Y = 0
			}
			return
		}

		next := cp.Vector{X: pf.Path[0].X, Y: pf.Path[0].Y}
		if !platformer {
			dir := next.Sub(pos)
			if dir.LengthSq() > 0 {
				dir = dir.Normalize()
			}
			v.X, v.Y = dir.X*pf.Speed, dir.Y*pf.Speed
			return
		}
		dx := next.X - pos.X
		if math.Abs(dx) <= 2 {
			v.X = 0
		} else {
			v.X = common.Sign(dx) * pf.Speed
		}
		if next.Y > pos.Y+ts*0.6 && body.Grounded && v.Y <= 1 {
			v.Y = p.JumpVelocity
		}
	})
}
