package component

// PathNode represents a world-space point along a path.
type PathNode struct {
	X float64
	Y float64
}

// PathFollower walks an entity toward a goal along a tile-grid path.
type PathFollower struct {
	Speed        float64
	GoalX        float64
	GoalY        float64
	HasGoal      bool
	RepathFrames int
	FrameCounter int
	Path         []PathNode
}

var PathFollowerComponent = NewNamedComponent[PathFollower]("path_follower")
