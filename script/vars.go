package script

import "sort"

// Vars is the global script variable store. It is created empty when the
// engine starts and is saved and restored with the rest of the state.
type Vars struct {
	values map[string]any
}

func (v *Vars) Get(name string) (any, bool) {
	val, ok := v.values[name]
	return val, ok
}

func (v *Vars) Set(name string, value any) {
	if v.values == nil {
		v.values = map[string]any{}
	}
	if value == nil {
		delete(v.values, name)
		return
	}
	v.values[name] = value
}

// Snapshot returns a shallow copy.
func (v *Vars) Snapshot() map[string]any {
	out := make(map[string]any, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

// Restore replaces all values.
func (v *Vars) Restore(values map[string]any) {
	v.values = make(map[string]any, len(values))
	for k, val := range values {
		v.values[k] = val
	}
}

// Names lists variable names in sorted order.
func (v *Vars) Names() []string {
	out := make([]string, 0, len(v.values))
	for k := range v.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
