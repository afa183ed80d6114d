package weakevent

import (
	"sync"

	"github.com/goliatone/go-errors"
)

// Slot is the contract a publisher exposes for one broadcast slot. F is the
// declared handler func type. Broadcasting must invoke every attached handler
// once, in registration order. Handlers are identified by pointer.
type Slot[F any] interface {
	Attach(h *Handler[F]) error
	Detach(h *Handler[F]) error
}

// Handler wraps a callback so a slot can tell handlers apart on detach.
type Handler[F any] struct {
	fn F
}

func NewHandler[F any](fn F) *Handler[F] {
	return &Handler[F]{fn: fn}
}

// Func returns the wrapped callback.
func (h *Handler[F]) Func() F {
	return h.fn
}

// Event is a ready made Slot for publishers.
//
//	type Button struct {
//		Clicked weakevent.Event[func(sender any, x, y int)]
//	}
//
//	func (b *Button) click(x, y int) {
//		b.Clicked.Emit(func(h func(any, int, int)) { h(b, x, y) })
//	}
type Event[F any] struct {
	mu       sync.RWMutex
	handlers []*Handler[F]
}

func (e *Event[F]) Attach(h *Handler[F]) error {
	if h == nil {
		return errors.New("handler cannot be nil", errors.CategoryBadInput).
			WithTextCode("NIL_HANDLER")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
	return nil
}

// Detach removes the last registration of h. Unknown handlers are ignored.
func (e *Event[F]) Detach(h *Handler[F]) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.handlers) - 1; i >= 0; i-- {
		if e.handlers[i] != h {
			continue
		}
		next := make([]*Handler[F], 0, len(e.handlers)-1)
		next = append(next, e.handlers[:i]...)
		next = append(next, e.handlers[i+1:]...)
		e.handlers = next
		return nil
	}
	return nil
}

// Len returns the number of attached handlers.
func (e *Event[F]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}

// Handlers returns a snapshot of the attached callbacks in registration order.
func (e *Event[F]) Handlers() []F {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]F, len(e.handlers))
	for i, h := range e.handlers {
		out[i] = h.fn
	}
	return out
}

// Emit calls invoke once per attached handler, in registration order. The
// handler list is copied first so handlers may attach or detach while the
// broadcast runs.
func (e *Event[F]) Emit(invoke func(F)) {
	for _, fn := range e.Handlers() {
		invoke(fn)
	}
}
