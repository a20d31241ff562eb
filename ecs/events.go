package ecs

// Event types emitted by the simulation.
const (
	EventDamaged           = "entity_damaged"
	EventDied              = "entity_died"
	EventRespawned         = "entity_respawned"
	EventPickupCollected   = "pickup_collected"
	EventProjectileHit     = "projectile_hit"
	EventProjectileHitWall = "projectile_hit_wall"
	EventProjectileExpired = "projectile_expired"
	EventHitboxHit         = "hitbox_hit"
	EventHazard            = "hazard"
	EventGoalReached       = "goal_reached"
	EventScriptError       = "script_error"
	EventScriptDisabled    = "script_disabled"
	EventScriptBudget      = "script_budget_exceeded"
)

// Event is one entry of the per-tick event stream.
type Event struct {
	Type   string         `json:"type"`
	Tick   uint64         `json:"tick"`
	Entity StableID       `json:"entity,omitempty"`
	Other  StableID       `json:"other,omitempty"`
	Amount float64        `json:"amount,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// EventQueue is a simple FIFO queue.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Pending returns the queued events without clearing them.
func (q *EventQueue) Pending() []Event {
	if q == nil {
		return nil
	}
	return q.items
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
