package ecs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/levels"
	"github.com/milk9111/simcore/spatial"
)

var (
	ErrNotFound    = errors.New("ecs: entity not found")
	ErrDuplicateID = errors.New("ecs: stable id already in use")
)

// World owns entities, their components and the per-tick resources shared by
// systems: the tilemap, the spatial index and the event queue.
type World struct {
	entities entityStore
	stores   map[component.ComponentID]*SparseSet
	events   EventQueue
	tick     uint64

	tilemap *levels.Tilemap
	spatial *spatial.Grid
}

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	w := &World{stores: map[component.ComponentID]*SparseSet{}}
	w.entities.init()
	return w
}

// CreateEntity allocates a new entity with a fresh StableID.
func CreateEntity(w *World) Entity {
	return w.entities.create(w.entities.nextStableID())
}

// CreateEntityWithID allocates an entity under a known StableID, as when a
// save is restored. The id counter is raised past id.
func CreateEntityWithID(w *World, id StableID) (Entity, error) {
	if id == 0 {
		return 0, fmt.Errorf("%w: zero", ErrDuplicateID)
	}
	if _, ok := w.entities.lookup(id); ok {
		return 0, fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	w.entities.restoreCounter(uint64(id))
	return w.entities.create(id), nil
}

// ReserveID hands out the next StableID without creating an entity, for
// spawns that are requested now and applied later.
func ReserveID(w *World) StableID {
	return w.entities.nextStableID()
}

// DestroyEntity removes the entity and all of its components. It returns false
// for handles that are no longer alive.
func DestroyEntity(w *World, e Entity) bool {
	if !w.entities.isAlive(e) {
		return false
	}
	for _, store := range w.stores {
		store.Remove(e.id())
	}
	return w.entities.destroy(e)
}

// Despawn destroys the entity with the given StableID.
func Despawn(w *World, id StableID) error {
	e, ok := w.entities.lookup(id)
	if !ok || !DestroyEntity(w, e) {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// IsAlive reports whether an entity handle is valid.
func IsAlive(w *World, e Entity) bool {
	return w != nil && w.entities.isAlive(e)
}

// Lookup resolves a StableID to the live handle.
func Lookup(w *World, id StableID) (Entity, bool) {
	if w == nil {
		return 0, false
	}
	return w.entities.lookup(id)
}

// IDOf returns the StableID of a live handle.
func IDOf(w *World, e Entity) StableID {
	id, _ := w.entities.stableOf(e)
	return id
}

// Entities returns all live entities ordered by StableID.
func Entities(w *World) []Entity {
	out := make([]Entity, 0, w.entities.alive)
	for i, id := range w.entities.stable {
		if id == 0 {
			continue
		}
		out = append(out, makeEntity(entityID(i+1), w.entities.gen[i]))
	}
	w.sortByStable(out)
	return out
}

// Count returns the number of live entities.
func Count(w *World) int {
	return w.entities.alive
}

// Counter returns the last StableID handed out.
func Counter(w *World) uint64 {
	return w.entities.counter.Load()
}

// RestoreCounter raises the StableID counter to at least v.
func RestoreCounter(w *World, v uint64) {
	w.entities.restoreCounter(v)
}

// Tick returns the number of completed ticks.
func (w *World) Tick() uint64 {
	return w.tick
}

// AdvanceTick finishes the current tick.
func (w *World) AdvanceTick() {
	w.tick++
}

// SetTick overrides the tick counter, used when restoring saves.
func (w *World) SetTick(t uint64) {
	w.tick = t
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

// Emit appends an event stamped with the current tick.
func (w *World) Emit(evt Event) {
	evt.Tick = w.tick
	w.events.Push(evt)
}

// SetTilemap attaches the tile grid used by physics and interaction.
func (w *World) SetTilemap(tm *levels.Tilemap) {
	w.tilemap = tm
}

func (w *World) Tilemap() *levels.Tilemap {
	if w == nil {
		return nil
	}
	return w.tilemap
}

// SetSpatial attaches the broad-phase grid.
func (w *World) SetSpatial(g *spatial.Grid) {
	w.spatial = g
}

func (w *World) Spatial() *spatial.Grid {
	if w == nil {
		return nil
	}
	return w.spatial
}

func (w *World) store(id component.ComponentID, create bool) *SparseSet {
	s := w.stores[id]
	if s == nil && create {
		s = &SparseSet{}
		w.stores[id] = s
	}
	return s
}

func (w *World) addComponent(e Entity, id component.ComponentID, value any) error {
	if w == nil || !w.entities.isAlive(e) {
		return component.ErrEntityNotAlive
	}
	if id == 0 {
		return component.ErrInvalidComponentKind
	}
	if value == nil {
		return component.ErrNilComponent
	}
	w.store(id, true).Set(e.id(), value)
	return nil
}

func (w *World) getComponent(e Entity, id component.ComponentID) (any, bool) {
	if w == nil || !w.entities.isAlive(e) {
		return nil, false
	}
	s := w.store(id, false)
	if s == nil || !s.Has(e.id()) {
		return nil, false
	}
	return s.Get(e.id()), true
}

// HasComponentID reports whether e carries the component with the given id.
func (w *World) HasComponentID(e Entity, id component.ComponentID) bool {
	_, ok := w.getComponent(e, id)
	return ok
}

func (w *World) removeComponent(e Entity, id component.ComponentID) bool {
	if w == nil || !w.entities.isAlive(e) {
		return false
	}
	return w.store(id, false).Remove(e.id())
}

// sortedMembers snapshots a store's live members in StableID order so
// iteration never depends on insertion or swap-remove history.
func (w *World) sortedMembers(s *SparseSet) []Entity {
	ids := s.ids()
	if len(ids) == 0 {
		return nil
	}
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, makeEntity(id, w.entities.gen[id-1]))
	}
	w.sortByStable(out)
	return out
}

func (w *World) sortByStable(ents []Entity) {
	sort.Slice(ents, func(i, j int) bool {
		return w.entities.stable[ents[i].id()-1] < w.entities.stable[ents[j].id()-1]
	})
}
