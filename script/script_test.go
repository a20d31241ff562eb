package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsUnwrap(t *testing.T) {
	inner := errors.New("boom")
	var err error = &ScriptError{Name: "patrol", Entity: 4, Tick: 9, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "entity 4")

	global := &ScriptError{Name: "director", Tick: 1, Err: ErrBudgetExceeded}
	assert.ErrorIs(t, global, ErrBudgetExceeded)
	assert.Contains(t, global.Error(), "global")

	var ce *CompileError
	assert.ErrorAs(t, error(&CompileError{Name: "x", Err: inner}), &ce)
}

func TestMutationsKeepOrder(t *testing.T) {
	var m Mutations
	m.SetPosition(1, 2, 3)
	m.Emit("hello", nil)
	m.Despawn(1)

	kinds := make([]OpKind, 0, m.Len())
	for _, op := range m.Ops {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []OpKind{OpSetPosition, OpEmit, OpDespawn}, kinds)

	m.Reset()
	assert.Zero(t, m.Len())
}

func TestVars(t *testing.T) {
	var v Vars
	v.Set("score", 10)
	v.Set("level", "one")
	assert.Equal(t, []string{"level", "score"}, v.Names())

	snap := v.Snapshot()
	v.Set("score", nil)
	_, ok := v.Get("score")
	assert.False(t, ok)

	v.Restore(snap)
	got, ok := v.Get("score")
	assert.True(t, ok)
	assert.Equal(t, 10, got)
}
