package weakevent

import (
	"sync/atomic"

	"github.com/goliatone/go-errors"
)

// Subscription is one forwarding shim attached to a slot.
type Subscription interface {
	ID() string
	Slot() string
	Target() string
	Attached() bool
	Dispose() error
}

// Handle is returned by every subscribe call. It owns all subscriptions
// created for one callable.
type Handle interface {
	// Dispose detaches every member once. Later calls are no-ops.
	Dispose() error
	// Unsubscribe is Dispose for callers that do not handle errors; failures
	// are logged.
	Unsubscribe()
	// Active reports whether any member is still attached.
	Active() bool
	Subscriptions() []Subscription
}

type subscription struct {
	id     string
	slot   string
	target string

	attached atomic.Bool
	attachFn func() error
	detachFn func() error

	logger        Logger
	trace         bool
	logSelfDetach bool
	recoverPanic  func(funcName string, fields ...map[string]any)
}

func (s *subscription) ID() string     { return s.id }
func (s *subscription) Slot() string   { return s.slot }
func (s *subscription) Target() string { return s.target }
func (s *subscription) Attached() bool { return s.attached.Load() }

// attach marks the subscription active before calling into the slot so a
// broadcast racing with Attach can already self-detach.
func (s *subscription) attach() error {
	s.attached.Store(true)
	if err := s.attachFn(); err != nil {
		s.attached.CompareAndSwap(true, false)
		return err
	}
	return nil
}

func (s *subscription) Dispose() error {
	if !s.attached.CompareAndSwap(true, false) {
		return nil
	}
	s.logger.Debug("weak subscription disposed")
	if err := s.detachFn(); err != nil {
		return detachFailed(s.slot, s.id, err)
	}
	return nil
}

// expire runs from inside a broadcast once the receiver is gone. Nobody can
// receive an error here, so failures are only logged.
func (s *subscription) expire() {
	if !s.attached.CompareAndSwap(true, false) {
		return
	}
	if s.logSelfDetach {
		s.logger.Debug("receiver collected, detaching weak subscription")
	}
	if err := s.detachFn(); err != nil {
		s.logger.Error("self detach failed: %v", detachFailed(s.slot, s.id, err))
	}
}

func (s *subscription) forward(call func()) {
	if !s.attached.Load() {
		return
	}
	if s.trace {
		s.logger.Trace("forwarding broadcast")
	}
	if s.recoverPanic != nil {
		defer s.recoverPanic("weakevent.forward", map[string]any{
			"subscription_id": s.id,
			"slot":            s.slot,
			"target":          s.target,
		})
	}
	call()
}

type composite struct {
	members  []*subscription
	disposed atomic.Bool
	logger   Logger
}

// attachAll attaches members in order. On failure every member attached so
// far is detached again and the original error is returned.
func attachAll(slot string, members []*subscription, logger Logger) (*composite, error) {
	for i, m := range members {
		if err := m.attach(); err != nil {
			for _, prev := range members[:i] {
				if rerr := prev.Dispose(); rerr != nil {
					logger.Error("rollback after failed attach: %v", rerr)
				}
			}
			return nil, attachFailed(slot, err)
		}
	}
	return &composite{members: members, logger: logger}, nil
}

func (c *composite) Dispose() error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}
	var errs error
	for _, m := range c.members {
		if err := m.Dispose(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func (c *composite) Unsubscribe() {
	if err := c.Dispose(); err != nil {
		c.logger.Error("unsubscribe failed: %v", err)
	}
}

func (c *composite) Active() bool {
	for _, m := range c.members {
		if m.Attached() {
			return true
		}
	}
	return false
}

func (c *composite) Subscriptions() []Subscription {
	out := make([]Subscription, len(c.members))
	for i, m := range c.members {
		out[i] = m
	}
	return out
}
