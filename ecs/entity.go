package ecs

import "strconv"

// Entity is an internal, recyclable handle. It never leaves the simulation
// core; everything outside refers to entities by StableID.
type Entity uint64

type entityID uint32
type generation uint32

const entityIDBits = 32

func makeEntity(id entityID, gen generation) Entity {
	return Entity(uint64(gen)<<entityIDBits | uint64(id))
}

func (e Entity) id() entityID {
	return entityID(uint32(e))
}

func (e Entity) generation() generation {
	return generation(uint32(uint64(e) >> entityIDBits))
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

func (e Entity) Valid() bool {
	return e.id() > 0
}

// StableID is the external identity of an entity. It is assigned once at
// spawn from a monotonic counter and never reused within a process.
type StableID uint64

func (id StableID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
