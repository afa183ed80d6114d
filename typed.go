package weakevent

import (
	"reflect"
	"weak"
)

// The SubscribeN helpers cover slots whose shape is known at compile time.
// They build the forwarding shim as a plain closure, so broadcasts do not go
// through reflection. Parameter types must match the slot exactly.

func Subscribe0[F ~func(), R any](m *Manager[F], name string, slot Slot[F], recv *R, method func(*R)) (Handle, error) {
	return subscribeStatic(m, name, slot, recv, method, func(ref weak.Pointer[R], sub *subscription) F {
		return F(func() {
			if r := ref.Value(); r != nil {
				sub.forward(func() { method(r) })
				return
			}
			sub.expire()
		})
	})
}

func Subscribe1[F ~func(A), R, A any](m *Manager[F], name string, slot Slot[F], recv *R, method func(*R, A)) (Handle, error) {
	return subscribeStatic(m, name, slot, recv, method, func(ref weak.Pointer[R], sub *subscription) F {
		return F(func(a A) {
			if r := ref.Value(); r != nil {
				sub.forward(func() { method(r, a) })
				return
			}
			sub.expire()
		})
	})
}

func Subscribe2[F ~func(A, B), R, A, B any](m *Manager[F], name string, slot Slot[F], recv *R, method func(*R, A, B)) (Handle, error) {
	return subscribeStatic(m, name, slot, recv, method, func(ref weak.Pointer[R], sub *subscription) F {
		return F(func(a A, b B) {
			if r := ref.Value(); r != nil {
				sub.forward(func() { method(r, a, b) })
				return
			}
			sub.expire()
		})
	})
}

func Subscribe3[F ~func(A, B, C), R, A, B, C any](m *Manager[F], name string, slot Slot[F], recv *R, method func(*R, A, B, C)) (Handle, error) {
	return subscribeStatic(m, name, slot, recv, method, func(ref weak.Pointer[R], sub *subscription) F {
		return F(func(a A, b B, c C) {
			if r := ref.Value(); r != nil {
				sub.forward(func() { method(r, a, b, c) })
				return
			}
			sub.expire()
		})
	})
}

func subscribeStatic[F, R any](
	m *Manager[F],
	name string,
	slot Slot[F],
	recv *R,
	method any,
	shim func(ref weak.Pointer[R], sub *subscription) F,
) (Handle, error) {
	if m == nil {
		m = NewManager[F]()
	}
	if slot == nil {
		return nil, slotNotFound(name, nil, false)
	}
	shape, err := ShapeFor[F]()
	if err != nil {
		return nil, unsupportedSlotShape(name, err.Error())
	}
	if err := checkSlotShape(name, shape); err != nil {
		return nil, err
	}
	if recv == nil {
		return nil, incompatibleCallable(name, 0, "callable has no receiver")
	}
	if reason := checkWeakReceiver[R](); reason != "" {
		return nil, incompatibleCallable(name, 0, reason)
	}
	mv := reflect.ValueOf(method)
	if mv.IsNil() {
		return nil, incompatibleCallable(name, 0, "method is not a func")
	}

	sub := m.newSubscription(name, funcName(mv))
	h := NewHandler(shim(weak.Make(recv), sub))
	sub.attachFn = func() error { return slot.Attach(h) }
	sub.detachFn = func() error { return slot.Detach(h) }

	handle, err := attachAll(name, []*subscription{sub}, m.logger)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("weak subscription attached to %s", name)
	return handle, nil
}
