package ecs

import (
	"sync/atomic"

	"github.com/kamstrup/intmap"
)

// entityStore tracks entity generations, free ids and the stable id index.
type entityStore struct {
	gen    []generation
	stable []StableID
	free   []entityID
	alive  int

	counter  atomic.Uint64
	byStable *intmap.Map[StableID, Entity]
}

func (s *entityStore) init() {
	if s.byStable == nil {
		s.byStable = intmap.New[StableID, Entity](256)
	}
}

// nextStableID reserves the next id from the counter.
func (s *entityStore) nextStableID() StableID {
	return StableID(s.counter.Add(1))
}

func (s *entityStore) create(id StableID) Entity {
	s.init()
	var eid entityID
	if len(s.free) > 0 {
		eid = s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
	} else {
		s.gen = append(s.gen, 0)
		s.stable = append(s.stable, 0)
		eid = entityID(len(s.gen))
	}
	s.stable[eid-1] = id
	s.alive++
	e := makeEntity(eid, s.gen[eid-1])
	s.byStable.Put(id, e)
	return e
}

func (s *entityStore) destroy(e Entity) bool {
	if !s.isAlive(e) {
		return false
	}
	idx := e.id() - 1
	s.byStable.Del(s.stable[idx])
	s.stable[idx] = 0
	s.gen[idx]++
	s.free = append(s.free, e.id())
	s.alive--
	return true
}

func (s *entityStore) isAlive(e Entity) bool {
	id := e.id()
	if id == 0 || int(id) > len(s.gen) {
		return false
	}
	return s.gen[id-1] == e.generation() && s.stable[id-1] != 0
}

func (s *entityStore) stableOf(e Entity) (StableID, bool) {
	if !s.isAlive(e) {
		return 0, false
	}
	return s.stable[e.id()-1], true
}

func (s *entityStore) lookup(id StableID) (Entity, bool) {
	if s.byStable == nil {
		return 0, false
	}
	return s.byStable.Get(id)
}

// restoreCounter raises the counter so later spawns never collide with
// restored ids. It never lowers it.
func (s *entityStore) restoreCounter(v uint64) {
	for {
		cur := s.counter.Load()
		if v <= cur || s.counter.CompareAndSwap(cur, v) {
			return
		}
	}
}
