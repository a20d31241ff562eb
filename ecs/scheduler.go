package ecs

import "time"

// System updates a world once per tick.
type System interface {
	Update(w *World)
}

// SystemFunc adapts a function to System.
type SystemFunc func(w *World)

func (f SystemFunc) Update(w *World) {
	f(w)
}

// Stage is a named slot in the tick order. The same System may fill more
// than one stage.
type Stage struct {
	Name   string
	System System
}

// Scheduler runs its stages in a fixed order and times each one.
type Scheduler struct {
	stages  []Stage
	elapsed []time.Duration
}

func NewScheduler(stages ...Stage) *Scheduler {
	s := &Scheduler{}
	for _, st := range stages {
		if st.System != nil {
			s.stages = append(s.stages, st)
		}
	}
	s.elapsed = make([]time.Duration, len(s.stages))
	return s
}

func (s *Scheduler) Update(w *World) {
	for i, st := range s.stages {
		start := time.Now()
		st.System.Update(w)
		s.elapsed[i] = time.Since(start)
	}
}

// Elapsed is the total time the last Update took.
func (s *Scheduler) Elapsed() time.Duration {
	var total time.Duration
	for _, d := range s.elapsed {
		total += d
	}
	return total
}

// Slowest names the stage that took longest in the last Update.
func (s *Scheduler) Slowest() (string, time.Duration) {
	name, worst := "", time.Duration(-1)
	for i, d := range s.elapsed {
		if d > worst {
			name, worst = s.stages[i].Name, d
		}
	}
	if worst < 0 {
		return "", 0
	}
	return name, worst
}

// Stages lists stage names in run order.
func (s *Scheduler) Stages() []string {
	names := make([]string, len(s.stages))
	for i, st := range s.stages {
		names[i] = st.Name
	}
	return names
}
