package component

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	ErrEntityNotAlive       = errors.New("ecs: entity not alive")
	ErrNilComponent         = errors.New("ecs: component is nil")
	ErrInvalidComponentKind = errors.New("ecs: invalid component kind")
)

type ComponentKind[T any] struct {
	id ComponentID
}

func NewComponentKind[T any]() ComponentKind[T] {
	return ComponentKind[T]{id: ComponentID(nextComponentID.Add(1))}
}

func (k ComponentKind[T]) ID() ComponentID {
	return k.id
}

func (k ComponentKind[T]) Valid() bool {
	return k.id != 0
}

type ComponentHandle[T any] struct {
	kind ComponentKind[T]
	name string
}

func NewComponent[T any]() ComponentHandle[T] {
	return ComponentHandle[T]{kind: NewComponentKind[T]()}
}

// NewNamedComponent creates a handle that can also be looked up by name, which
// is how filters and scripts refer to component kinds.
func NewNamedComponent[T any](name string) ComponentHandle[T] {
	h := ComponentHandle[T]{kind: NewComponentKind[T](), name: name}
	registry.Lock()
	registry.byName[name] = h.kind.id
	registry.Unlock()
	return h
}

func (h ComponentHandle[T]) Kind() ComponentKind[T] {
	return h.kind
}

func (h ComponentHandle[T]) Name() string {
	return h.name
}

type ComponentID uint32

var nextComponentID atomic.Uint32

var registry = struct {
	sync.RWMutex
	byName map[string]ComponentID
}{byName: map[string]ComponentID{}}

// IDByName resolves a registered component name.
func IDByName(name string) (ComponentID, bool) {
	registry.RLock()
	defer registry.RUnlock()
	id, ok := registry.byName[name]
	return id, ok
}

// Names lists every registered component name in sorted order.
func Names() []string {
	registry.RLock()
	out := make([]string, 0, len(registry.byName))
	for name := range registry.byName {
		out = append(out, name)
	}
	registry.RUnlock()
	sort.Strings(out)
	return out
}
