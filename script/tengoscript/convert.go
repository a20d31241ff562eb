package tengoscript

import (
	"sort"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/milk9111/simcore/script"
)

// entityToObject flattens a view into a mutable map. Only the entity a script
// runs for gets its state map.
func entityToObject(v script.EntityView, withState bool) *tengo.Map {
	tags := make([]tengo.Object, 0, len(v.Tags))
	for _, t := range v.Tags {
		tags = append(tags, &tengo.String{Value: t})
	}
	m := map[string]tengo.Object{
		"id":       &tengo.Int{Value: int64(v.ID)},
		"x":        &tengo.Float{Value: v.X},
		"y":        &tengo.Float{Value: v.Y},
		"vx":       &tengo.Float{Value: v.VX},
		"vy":       &tengo.Float{Value: v.VY},
		"grounded": boolObject(v.Grounded),
		"alive":    boolObject(v.Alive),
		"tags":     &tengo.Array{Value: tags},
	}
	if v.HasHealth {
		m["health"] = &tengo.Float{Value: v.Health}
		m["max_health"] = &tengo.Float{Value: v.MaxHealth}
	}
	if withState {
		m["state"] = anyToObject(v.State)
	}
	return &tengo.Map{Value: m}
}

// anyToObject converts state values. Unsupported values become undefined.
func anyToObject(v any) tengo.Object {
	switch t := v.(type) {
	case nil:
		return &tengo.Map{Value: map[string]tengo.Object{}}
	case map[string]any:
		out := make(map[string]tengo.Object, len(t))
		for k, item := range t {
			out[k] = valueToObject(item)
		}
		return &tengo.Map{Value: out}
	default:
		return valueToObject(v)
	}
}

func valueToObject(v any) tengo.Object {
	switch t := v.(type) {
	case map[string]any:
		return anyToObject(t)
	case []any:
		arr := make([]tengo.Object, 0, len(t))
		for _, item := range t {
			arr = append(arr, valueToObject(item))
		}
		return &tengo.Array{Value: arr}
	case []string:
		arr := make([]tengo.Object, 0, len(t))
		for _, item := range t {
			arr = append(arr, &tengo.String{Value: item})
		}
		return &tengo.Array{Value: arr}
	case []int:
		arr := make([]tengo.Object, 0, len(t))
		for _, item := range t {
			arr = append(arr, &tengo.Int{Value: int64(item)})
		}
		return &tengo.Array{Value: arr}
	case []float64:
		arr := make([]tengo.Object, 0, len(t))
		for _, item := range t {
			arr = append(arr, &tengo.Float{Value: item})
		}
		return &tengo.Array{Value: arr}
	}
	obj, err := tengo.FromInterface(v)
	if err != nil {
		return tengo.UndefinedValue
	}
	return obj
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}

func objectToAny(obj tengo.Object) any {
	if obj == nil {
		return nil
	}

	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Int:
		return v.Value
	case *tengo.Float:
		return v.Value
	case *tengo.Bool:
		return !v.IsFalsy()
	case *tengo.Char:
		return string(v.Value)
	case *tengo.Array:
		out := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			out = append(out, objectToAny(item))
		}
		return out
	case *tengo.ImmutableArray:
		out := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			out = append(out, objectToAny(item))
		}
		return out
	case *tengo.Map:
		return mapToAny(v.Value)
	case *tengo.ImmutableMap:
		return mapToAny(v.Value)
	case *tengo.Undefined:
		return nil
	default:
		return v.String()
	}
}

func mapToAny(m map[string]tengo.Object) map[string]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(m))
	for _, k := range keys {
		if v := objectToAny(m[k]); v != nil {
			out[k] = v
		}
	}
	return out
}
