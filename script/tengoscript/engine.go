package tengoscript

import (
	"errors"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/milk9111/simcore/script"
	"go.uber.org/zap"
)

// buildEngine exposes the world view and the mutation buffer as the
// __engine map of host functions.
func (b *Backend) buildEngine(world script.WorldView, out *script.Mutations) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}
	fn := func(name string, f tengo.CallableFunc) {
		values[name] = &tengo.UserFunction{Name: name, Value: f}
	}

	fn("tick", func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Int{Value: int64(world.Tick())}, nil
	})

	fn("tile_size", func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: world.TileSize()}, nil
	})

	fn("tile", func(args ...tengo.Object) (tengo.Object, error) {
		tx, ty, err := intPair(args)
		if err != nil {
			return nil, err
		}
		return &tengo.Int{Value: int64(world.Tile(tx, ty))}, nil
	})

	fn("is_solid", func(args ...tengo.Object) (tengo.Object, error) {
		tx, ty, err := intPair(args)
		if err != nil {
			return nil, err
		}
		return boolObject(world.IsSolid(tx, ty)), nil
	})

	fn("entity", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		id, ok := tengo.ToInt64(args[0])
		if !ok {
			return nil, typeError("id", "int", args[0])
		}
		view, found := world.Entity(uint64(id))
		if !found {
			return tengo.UndefinedValue, nil
		}
		return entityToObject(view, false), nil
	})

	fn("query", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 && len(args) != 4 {
			return nil, tengo.ErrWrongNumArguments
		}
		tag := objectAsString(args[0])
		var x, y, r float64
		if len(args) == 4 {
			nums, err := floats(args[1:])
			if err != nil {
				return nil, err
			}
			x, y, r = nums[0], nums[1], nums[2]
		}
		views := world.Query(tag, x, y, r)
		arr := make([]tengo.Object, 0, len(views))
		for _, v := range views {
			arr = append(arr, entityToObject(v, false))
		}
		return &tengo.Array{Value: arr}, nil
	})

	fn("raycast", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 5 {
			return nil, tengo.ErrWrongNumArguments
		}
		n, err := floats(args)
		if err != nil {
			return nil, err
		}
		hit := world.Raycast(n[0], n[1], n[2], n[3], n[4])
		return &tengo.ImmutableMap{Value: map[string]tengo.Object{
			"hit":      boolObject(hit.Hit),
			"x":        &tengo.Float{Value: hit.X},
			"y":        &tengo.Float{Value: hit.Y},
			"distance": &tengo.Float{Value: hit.Distance},
			"entity":   &tengo.Int{Value: int64(hit.Entity)},
			"tile":     boolObject(hit.Tile),
		}}, nil
	})

	fn("find_path", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 4 {
			return nil, tengo.ErrWrongNumArguments
		}
		n, err := floats(args)
		if err != nil {
			return nil, err
		}
		path := world.FindPath(n[0], n[1], n[2], n[3])
		arr := make([]tengo.Object, 0, len(path))
		for _, p := range path {
			arr = append(arr, &tengo.Array{Value: []tengo.Object{&tengo.Float{Value: p[0]}, &tengo.Float{Value: p[1]}}})
		}
		return &tengo.Array{Value: arr}, nil
	})

	fn("events", func(args ...tengo.Object) (tengo.Object, error) {
		kind := ""
		if len(args) > 0 {
			kind = objectAsString(args[0])
		}
		evs := world.Events(kind)
		arr := make([]tengo.Object, 0, len(evs))
		for _, ev := range evs {
			arr = append(arr, valueToObject(ev))
		}
		return &tengo.Array{Value: arr}, nil
	})

	fn("spawn", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 3 {
			return nil, tengo.ErrWrongNumArguments
		}
		prefab := strings.TrimSpace(objectAsString(args[0]))
		if prefab == "" {
			return nil, errors.New("spawn: empty prefab name")
		}
		n, err := floats(args[1:3])
		if err != nil {
			return nil, err
		}
		var data map[string]any
		if len(args) > 3 {
			data, _ = objectToAny(args[3]).(map[string]any)
		}
		id := world.ReserveID()
		out.Spawn(id, prefab, n[0], n[1], data)
		return &tengo.Int{Value: int64(id)}, nil
	})

	fn("despawn", func(args ...tengo.Object) (tengo.Object, error) {
		id, err := idArg(args)
		if err != nil {
			return nil, err
		}
		out.Despawn(id)
		return tengo.TrueValue, nil
	})

	fn("set_position", func(args ...tengo.Object) (tengo.Object, error) {
		id, x, y, err := idAndPair(args)
		if err != nil {
			return nil, err
		}
		out.SetPosition(id, x, y)
		return tengo.TrueValue, nil
	})

	fn("set_velocity", func(args ...tengo.Object) (tengo.Object, error) {
		id, vx, vy, err := idAndPair(args)
		if err != nil {
			return nil, err
		}
		out.SetVelocity(id, vx, vy)
		return tengo.TrueValue, nil
	})

	fn("set_health", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		id, err := idArg(args[:1])
		if err != nil {
			return nil, err
		}
		v, ok := tengo.ToFloat64(args[1])
		if !ok {
			return nil, typeError("health", "float", args[1])
		}
		out.SetHealth(id, v)
		return tengo.TrueValue, nil
	})

	fn("add_tag", func(args ...tengo.Object) (tengo.Object, error) {
		id, tag, err := idAndString(args)
		if err != nil {
			return nil, err
		}
		out.AddTag(id, tag)
		return tengo.TrueValue, nil
	})

	fn("remove_tag", func(args ...tengo.Object) (tengo.Object, error) {
		id, tag, err := idAndString(args)
		if err != nil {
			return nil, err
		}
		out.RemoveTag(id, tag)
		return tengo.TrueValue, nil
	})

	fn("set_hitbox", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		id, err := idArg(args[:1])
		if err != nil {
			return nil, err
		}
		out.SetHitbox(id, !args[1].IsFalsy())
		return tengo.TrueValue, nil
	})

	fn("emit", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		name := strings.TrimSpace(objectAsString(args[0]))
		if name == "" {
			return tengo.FalseValue, nil
		}
		var data map[string]any
		if len(args) > 1 {
			data, _ = objectToAny(args[1]).(map[string]any)
		}
		out.Emit(name, data)
		return tengo.TrueValue, nil
	})

	fn("get_var", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		v, ok := b.vars.Get(objectAsString(args[0]))
		if !ok {
			if len(args) > 1 {
				return args[1], nil
			}
			return tengo.UndefinedValue, nil
		}
		return tengo.FromInterface(v)
	})

	fn("set_var", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		b.vars.Set(objectAsString(args[0]), objectToAny(args[1]))
		return tengo.TrueValue, nil
	})

	fn("log", func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		b.logger.Debug("script log", zap.String("msg", strings.Join(parts, " ")), zap.Uint64("tick", world.Tick()))
		return tengo.UndefinedValue, nil
	})

	fn("abort", func(args ...tengo.Object) (tengo.Object, error) {
		msg := "aborted"
		if len(args) > 0 {
			msg = objectAsString(args[0])
		}
		return nil, errors.New(msg)
	})

	return &tengo.ImmutableMap{Value: values}
}

func boolObject(v bool) tengo.Object {
	if v {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func typeError(name, expected string, found tengo.Object) error {
	return tengo.ErrInvalidArgumentType{Name: name, Expected: expected, Found: found.TypeName()}
}

func floats(args []tengo.Object) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, ok := tengo.ToFloat64(a)
		if !ok {
			return nil, typeError("number", "float", a)
		}
		out[i] = f
	}
	return out, nil
}

func intPair(args []tengo.Object) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, tengo.ErrWrongNumArguments
	}
	a, ok := tengo.ToInt(args[0])
	if !ok {
		return 0, 0, typeError("tx", "int", args[0])
	}
	c, ok := tengo.ToInt(args[1])
	if !ok {
		return 0, 0, typeError("ty", "int", args[1])
	}
	return a, c, nil
}

func idArg(args []tengo.Object) (uint64, error) {
	if len(args) < 1 {
		return 0, tengo.ErrWrongNumArguments
	}
	id, ok := tengo.ToInt64(args[0])
	if !ok || id <= 0 {
		return 0, typeError("id", "int", args[0])
	}
	return uint64(id), nil
}

func idAndPair(args []tengo.Object) (uint64, float64, float64, error) {
	if len(args) != 3 {
		return 0, 0, 0, tengo.ErrWrongNumArguments
	}
	id, err := idArg(args[:1])
	if err != nil {
		return 0, 0, 0, err
	}
	n, err := floats(args[1:])
	if err != nil {
		return 0, 0, 0, err
	}
	return id, n[0], n[1], nil
}

func idAndString(args []tengo.Object) (uint64, string, error) {
	if len(args) != 2 {
		return 0, "", tengo.ErrWrongNumArguments
	}
	id, err := idArg(args[:1])
	if err != nil {
		return 0, "", err
	}
	return id, objectAsString(args[1]), nil
}
