package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsStagesInOrder(t *testing.T) {
	var order []string
	record := func(name string) System {
		return SystemFunc(func(*World) { order = append(order, name) })
	}
	shared := record("shared")

	s := NewScheduler(
		Stage{Name: "first", System: shared},
		Stage{Name: "skipped"},
		Stage{Name: "middle", System: record("middle")},
		Stage{Name: "again", System: shared},
	)
	assert.Equal(t, []string{"first", "middle", "again"}, s.Stages())

	s.Update(NewWorld())
	s.Update(NewWorld())
	assert.Equal(t, []string{"shared", "middle", "shared", "shared", "middle", "shared"}, order)

	name, d := s.Slowest()
	assert.Contains(t, s.Stages(), name)
	assert.LessOrEqual(t, d, s.Elapsed())
}

func TestEmptySchedulerHasNoSlowest(t *testing.T) {
	s := NewScheduler()
	s.Update(NewWorld())
	name, d := s.Slowest()
	assert.Empty(t, name)
	assert.Zero(t, d)
	assert.Zero(t, s.Elapsed())
}
