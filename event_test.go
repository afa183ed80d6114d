package weakevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEmitsInRegistrationOrder(t *testing.T) {
	var ev Event[func(string)]
	var got []string

	a := NewHandler(func(s string) { got = append(got, "a:"+s) })
	b := NewHandler(func(s string) { got = append(got, "b:"+s) })
	require.NoError(t, ev.Attach(a))
	require.NoError(t, ev.Attach(b))

	ev.Emit(func(fn func(string)) { fn("x") })
	assert.Equal(t, []string{"a:x", "b:x"}, got)
	assert.Equal(t, 2, ev.Len())
}

func TestEventDetach(t *testing.T) {
	var ev Event[func()]
	calls := 0
	h := NewHandler(func() { calls++ })
	other := NewHandler(func() {})

	require.NoError(t, ev.Attach(h))
	require.NoError(t, ev.Attach(h))
	require.NoError(t, ev.Detach(other), "unknown handlers are ignored")
	require.NoError(t, ev.Detach(h))
	assert.Equal(t, 1, ev.Len())

	ev.Emit(func(fn func()) { fn() })
	assert.Equal(t, 1, calls)

	require.NoError(t, ev.Detach(h))
	assert.Equal(t, 0, ev.Len())
}

func TestEventAttachNil(t *testing.T) {
	var ev Event[func()]
	err := ev.Attach(nil)
	require.Error(t, err)
	assert.Equal(t, "NIL_HANDLER", ErrorCode(err))
}

func TestEventEmitUsesSnapshot(t *testing.T) {
	var ev Event[func()]
	calls := 0
	var self *Handler[func()]
	self = NewHandler(func() {
		calls++
		_ = ev.Detach(self)
		_ = ev.Attach(NewHandler(func() { calls += 10 }))
	})
	require.NoError(t, ev.Attach(self))

	ev.Emit(func(fn func()) { fn() })
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, ev.Len())

	ev.Emit(func(fn func()) { fn() })
	assert.Equal(t, 11, calls)
}
