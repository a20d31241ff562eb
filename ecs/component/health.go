package component

type Health struct {
	Current float64
	Max     float64
}

var HealthComponent = NewNamedComponent[Health]("health")

// Dead reports whether current health has reached zero.
func (h Health) Dead() bool {
	return h.Current <= 0
}

// Score accumulates points granted by score pickups.
type Score struct {
	Value float64
}

var ScoreComponent = NewNamedComponent[Score]("score")
