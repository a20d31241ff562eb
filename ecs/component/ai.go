package component

type Behavior string

const (
	BehaviorPatrol Behavior = "patrol"
	BehaviorChase  Behavior = "chase"
	BehaviorFlee   Behavior = "flee"
	BehaviorGuard  Behavior = "guard"
	BehaviorWander Behavior = "wander"
)

// AI drives a PathFollower goal from a built-in behavior. Range is the
// detection radius; Radius is the guard leash or the wander distance.
type AI struct {
	Behavior    Behavior
	Speed       float64
	Range       float64
	Radius      float64
	PauseFrames int
	TargetTag   string
	Waypoints   []PathNode
	// NeedsSight requires a clear tile line to the target before chasing or fleeing.
	NeedsSight bool

	Index int
	HomeX float64
	HomeY float64
	Timer int
	State string
}

var AIComponent = NewNamedComponent[AI]("ai")
