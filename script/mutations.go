package script

type OpKind string

const (
	OpSetPosition OpKind = "set_position"
	OpSetVelocity OpKind = "set_velocity"
	OpSetHealth   OpKind = "set_health"
	OpAddTag      OpKind = "add_tag"
	OpRemoveTag   OpKind = "remove_tag"
	OpSetHitbox   OpKind = "set_hitbox"
	OpSpawn       OpKind = "spawn"
	OpDespawn     OpKind = "despawn"
	OpEmit        OpKind = "emit"
)

// Op is one buffered write. Fields are used according to Kind.
type Op struct {
	Kind   OpKind
	Target uint64
	X, Y   float64
	Value  float64
	Flag   bool
	Name   string
	Data   map[string]any
}

// Mutations collects a script's writes. They are applied in order after the
// script returns, so the world never changes under a running script.
type Mutations struct {
	Ops []Op
}

func (m *Mutations) push(op Op) {
	m.Ops = append(m.Ops, op)
}

func (m *Mutations) SetPosition(id uint64, x, y float64) {
	m.push(Op{Kind: OpSetPosition, Target: id, X: x, Y: y})
}

func (m *Mutations) SetVelocity(id uint64, vx, vy float64) {
	m.push(Op{Kind: OpSetVelocity, Target: id, X: vx, Y: vy})
}

func (m *Mutations) SetHealth(id uint64, v float64) {
	m.push(Op{Kind: OpSetHealth, Target: id, Value: v})
}

func (m *Mutations) AddTag(id uint64, tag string) {
	m.push(Op{Kind: OpAddTag, Target: id, Name: tag})
}

func (m *Mutations) RemoveTag(id uint64, tag string) {
	m.push(Op{Kind: OpRemoveTag, Target: id, Name: tag})
}

func (m *Mutations) SetHitbox(id uint64, active bool) {
	m.push(Op{Kind: OpSetHitbox, Target: id, Flag: active})
}

// Spawn requests a prefab instance under a StableID reserved from the world.
func (m *Mutations) Spawn(id uint64, prefab string, x, y float64, data map[string]any) {
	m.push(Op{Kind: OpSpawn, Target: id, Name: prefab, X: x, Y: y, Data: data})
}

func (m *Mutations) Despawn(id uint64) {
	m.push(Op{Kind: OpDespawn, Target: id})
}

func (m *Mutations) Emit(name string, data map[string]any) {
	m.push(Op{Kind: OpEmit, Name: name, Data: data})
}

// Len returns the number of buffered ops.
func (m *Mutations) Len() int {
	return len(m.Ops)
}

// Reset drops all buffered ops, keeping capacity.
func (m *Mutations) Reset() {
	m.Ops = m.Ops[:0]
}
