package weakevent

import (
	"reflect"

	"github.com/google/uuid"
)

// Manager subscribes callables to slots whose handler type is F. F is the
// caller's description of the slot; a located slot declared with any other
// handler type is rejected.
type Manager[F any] struct {
	settings
}

func NewManager[F any](opts ...Option) *Manager[F] {
	m := &Manager[F]{
		settings: settings{
			config: DefaultConfig(),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m.settings)
		}
	}
	m.logger = normalizeLogger(m.logger)
	if m.panicLogger == nil {
		m.panicLogger = LoggerPanicLogger(m.logger)
	}
	return m
}

// Registry returns the registry used for name based lookups.
func (m *Manager[F]) Registry() *Registry {
	return m.registry
}

// Subscribe weakly subscribes callable to the instance slot name of owner.
func (m *Manager[F]) Subscribe(owner any, name string, callable Callable) (Handle, error) {
	d, err := m.registry.Locate(owner, name)
	if err != nil {
		return nil, err
	}
	return m.subscribe(d, callable)
}

// SubscribeType weakly subscribes callable to the process-wide slot name
// declared on ownerType.
func (m *Manager[F]) SubscribeType(ownerType reflect.Type, name string, callable Callable) (Handle, error) {
	d, err := m.registry.LocateType(ownerType, name)
	if err != nil {
		return nil, err
	}
	return m.subscribe(d, callable)
}

// SubscribeSlot weakly subscribes callable to slot directly. name is only
// used in errors and logs.
func (m *Manager[F]) SubscribeSlot(name string, slot Slot[F], callable Callable) (Handle, error) {
	if slot == nil {
		return nil, slotNotFound(name, nil, false)
	}
	return m.subscribe(Descriptor{Name: name, binding: Expose(slot)}, callable)
}

func (m *Manager[F]) subscribe(d Descriptor, callable Callable) (Handle, error) {
	shape, err := slotShape(d)
	if err != nil {
		return nil, err
	}
	if err := checkDeclared(reflect.TypeFor[F](), d.HandlerType()); err != nil {
		return nil, err
	}
	plans, err := planTargets(d.Name, shape, callable)
	if err != nil {
		return nil, err
	}

	members := make([]*subscription, len(plans))
	for i, plan := range plans {
		sub := m.newSubscription(d.Name, plan.target.Name())
		shim := buildShim(d.HandlerType(), shape, plan, sub)
		sub.attachFn, sub.detachFn = d.binding.bind(shim)
		members[i] = sub
	}

	handle, err := attachAll(d.Name, members, m.logger)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("weak subscription attached to %s (%d targets)", d.Name, len(members))
	return handle, nil
}

func (s *settings) newSubscription(slot, target string) *subscription {
	sub := &subscription{
		id:            uuid.NewString(),
		slot:          slot,
		target:        target,
		trace:         s.config.TraceForwarding,
		logSelfDetach: s.config.LogSelfDetach,
	}
	sub.logger = withLoggerFields(s.logger, map[string]any{
		"subscription_id": sub.id,
		"slot":            slot,
		"target":          target,
	})
	if s.config.RecoverPanics {
		sub.recoverPanic = MakePanicHandler(s.panicLogger)
	}
	return sub
}
