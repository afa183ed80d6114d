package main

import (
	"runtime"
	"sync/atomic"

	"github.com/goliatone/go-weakevent"
)

type clickHandler func(sender any, n int)
type tallyHandler func(sender any, total weakevent.Ref[int])

type publisher struct {
	id      int
	Clicked weakevent.Event[clickHandler]
	Tallied weakevent.Event[tallyHandler]
}

func (p *publisher) click(n int) {
	p.Clicked.Emit(func(h clickHandler) { h(p, n) })
}

// tally asks every listener to bump total and returns the result.
func (p *publisher) tally() int {
	total := 0
	p.Tallied.Emit(func(h tallyHandler) { h(p, weakevent.RefOf(&total)) })
	return total
}

func (p *publisher) attached() int {
	return p.Clicked.Len() + p.Tallied.Len()
}

type listener struct {
	id     int
	clicks *atomic.Int64
	seen   int
}

func (l *listener) OnClicked(sender any, n int) {
	l.seen += n
	l.clicks.Add(int64(n))
}

func (l *listener) OnTally(sender any, total weakevent.Ref[int]) {
	total.Set(total.Get() + 1)
}

type stats struct {
	Round          int
	Publishers     int
	Subscribed     int
	Forwarded      int64
	Tallied        int
	AttachedBefore int
	AttachedAfter  int
	Errors         int
}

// sandbox runs rounds of publishers whose listeners are dropped right after
// subscribing, then checks that every subscription went away with them.
type sandbox struct {
	clicks     *weakevent.Manager[clickHandler]
	tallies    *weakevent.Manager[tallyHandler]
	logger     weakevent.Logger
	publishers int
	listeners  int
	round      atomic.Int32
}

func newSandbox(publishers, listeners int, logger weakevent.Logger, opts ...weakevent.Option) (*sandbox, error) {
	reg := weakevent.NewRegistry()
	err := weakevent.RegisterInstance(reg, "Clicked", func(p *publisher) weakevent.Slot[clickHandler] {
		return &p.Clicked
	})
	if err != nil {
		return nil, err
	}
	err = weakevent.RegisterInstance(reg, "Tallied", func(p *publisher) weakevent.Slot[tallyHandler] {
		return &p.Tallied
	})
	if err != nil {
		return nil, err
	}

	opts = append(opts, weakevent.WithRegistry(reg), weakevent.WithLogger(logger))
	return &sandbox{
		clicks:     weakevent.NewManager[clickHandler](opts...),
		tallies:    weakevent.NewManager[tallyHandler](opts...),
		logger:     logger,
		publishers: publishers,
		listeners:  listeners,
	}, nil
}

func (s *sandbox) runRound() stats {
	st := stats{Round: int(s.round.Add(1)), Publishers: s.publishers}
	clicks := &atomic.Int64{}

	pubs := make([]*publisher, s.publishers)
	for i := range pubs {
		pubs[i] = &publisher{id: i}
		s.subscribeListeners(pubs[i], clicks, &st)
	}

	for _, p := range pubs {
		p.click(1)
		st.Tallied += p.tally()
		st.AttachedBefore += p.attached()
	}
	st.Forwarded = clicks.Load()

	runtime.GC()
	runtime.GC()

	// the first broadcast after collection detaches the dead subscriptions
	for _, p := range pubs {
		p.click(1)
		p.tally()
		st.AttachedAfter += p.attached()
	}
	return st
}

// subscribeListeners keeps no reference to the listeners it creates.
//
//go:noinline
func (s *sandbox) subscribeListeners(p *publisher, clicks *atomic.Int64, st *stats) {
	for j := 0; j < s.listeners; j++ {
		l := &listener{id: j, clicks: clicks}
		clicked, err := s.clicks.Subscribe(p, "Clicked", weakevent.Method(l, (*listener).OnClicked))
		if err != nil {
			s.logger.Error("subscribe Clicked: %v", err)
			st.Errors++
			continue
		}
		if _, err := s.tallies.Subscribe(p, "Tallied", weakevent.MethodByName(l, "OnTally")); err != nil {
			s.logger.Error("subscribe Tallied: %v", err)
			st.Errors++
			// a listener is either on both slots or on neither
			clicked.Unsubscribe()
			continue
		}
		st.Subscribed++
	}
}
