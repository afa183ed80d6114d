package weakevent

import (
	"errors"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type ChangedArgs struct {
	Value int
}

type ChangedHandler func(sender any, args ChangedArgs)
type CountHandler func(n int, total Ref[int], limit In[int])
type ValuedHandler func(n int) int
type OutputHandler func(n int, result Out[int])
type LogHandler func(prefix string, parts ...string)

var errAttachRejected = errors.New("attach rejected")

// recordingSlot counts every attach and detach call the manager makes.
type recordingSlot[F any] struct {
	Event[F]

	attaches atomic.Int32
	detaches atomic.Int32

	failAttachAt int32
	detachErr    error
}

func (s *recordingSlot[F]) Attach(h *Handler[F]) error {
	n := s.attaches.Add(1)
	if s.failAttachAt > 0 && n == s.failAttachAt {
		return errAttachRejected
	}
	return s.Event.Attach(h)
}

func (s *recordingSlot[F]) Detach(h *Handler[F]) error {
	s.detaches.Add(1)
	if err := s.Event.Detach(h); err != nil {
		return err
	}
	return s.detachErr
}

type publisher struct {
	Changed recordingSlot[ChangedHandler]
	Counted recordingSlot[CountHandler]
	Valued  recordingSlot[ValuedHandler]
	Output  recordingSlot[OutputHandler]
	Logged  recordingSlot[LogHandler]
}

func (p *publisher) raiseChanged(sender any, v int) {
	p.Changed.Emit(func(h ChangedHandler) { h(sender, ChangedArgs{Value: v}) })
}

func (p *publisher) raiseCount(n, start, limit int) int {
	total := start
	p.Counted.Emit(func(h CountHandler) { h(n, RefOf(&total), InOf(&limit)) })
	return total
}

func (p *publisher) raiseLog(prefix string, parts ...string) {
	p.Logged.Emit(func(h LogHandler) { h(prefix, parts...) })
}

type listener struct {
	name  string
	calls *atomic.Int32

	mu         sync.Mutex
	lastSender any
	lastValue  int
	seenTotal  int
	order      *[]string
}

func newListener(name string) *listener {
	return &listener{name: name, calls: &atomic.Int32{}}
}

func (l *listener) OnChanged(sender any, args ChangedArgs) {
	l.calls.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastSender = sender
	l.lastValue = args.Value
	if l.order != nil {
		*l.order = append(*l.order, l.name)
	}
}

func (l *listener) OnChangedInt(sender any, v int) {
	l.calls.Add(1)
}

func (l *listener) OnCount(n int, total Ref[int], limit In[int]) {
	l.calls.Add(1)
	if next := total.Get() + n; next <= limit.Get() {
		total.Set(next)
	}
}

func (l *listener) OnCountPeek(n int, total In[int], limit In[int]) {
	l.calls.Add(1)
	l.seenTotal = total.Get()
}

func (l *listener) OnCountGreedy(n int, total Ref[int], limit Ref[int]) {
	limit.Set(limit.Get() * 2)
}

func (l *listener) OnCountByValue(n int, total int, limit int) {}

func (l *listener) OnValued(n int) int { return n }

func (l *listener) OnOutput(n int, result Out[int]) { result.Set(n) }

func (l *listener) OnLog(prefix string, parts ...string) {
	l.calls.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastSender = prefix + strings.Join(parts, ",")
}

type stranger struct {
	name string
}

func (s *stranger) OnChanged(sender any, args ChangedArgs) {}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, RegisterInstance(reg, "Changed", func(p *publisher) Slot[ChangedHandler] { return &p.Changed }))
	require.NoError(t, RegisterInstance(reg, "Counted", func(p *publisher) Slot[CountHandler] { return &p.Counted }))
	require.NoError(t, RegisterInstance(reg, "Valued", func(p *publisher) Slot[ValuedHandler] { return &p.Valued }))
	require.NoError(t, RegisterInstance(reg, "Output", func(p *publisher) Slot[OutputHandler] { return &p.Output }))
	require.NoError(t, RegisterInstance(reg, "Logged", func(p *publisher) Slot[LogHandler] { return &p.Logged }))
	return reg
}

// subscribeTransient subscribes a listener that is unreachable once the
// function returns.
//
//go:noinline
func subscribeTransient(t *testing.T, m *Manager[ChangedHandler], p *publisher, calls *atomic.Int32) Handle {
	t.Helper()
	l := &listener{name: "transient", calls: calls}
	h, err := m.Subscribe(p, "Changed", Method(l, (*listener).OnChanged))
	require.NoError(t, err)

	p.raiseChanged(p, 1)
	require.Equal(t, int32(1), calls.Load())
	runtime.KeepAlive(l)
	return h
}

func collect() {
	runtime.GC()
	runtime.GC()
}
