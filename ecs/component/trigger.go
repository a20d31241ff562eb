package component

// TriggerZone fires EventName when a tag-matching entity enters Radius.
type TriggerZone struct {
	Radius    float64
	EventName string
	TargetTag string
	OneShot   bool

	inside map[uint64]struct{}
}

var TriggerZoneComponent = NewNamedComponent[TriggerZone]("trigger")

// Enter records id as inside and reports whether it was outside before.
func (t *TriggerZone) Enter(id uint64) bool {
	if t.inside == nil {
		t.inside = map[uint64]struct{}{}
	}
	if _, ok := t.inside[id]; ok {
		return false
	}
	t.inside[id] = struct{}{}
	return true
}

// Retain drops every occupant not present in current.
func (t *TriggerZone) Retain(current map[uint64]struct{}) {
	for id := range t.inside {
		if _, ok := current[id]; !ok {
			delete(t.inside, id)
		}
	}
}
