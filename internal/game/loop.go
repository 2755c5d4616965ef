// Package game runs the session manager on a fixed tick.
//
// A single goroutine owns the manager. Host events and queries are handed to
// it over channels and applied in arrival order between ticks.
package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/resizer/internal/session"
)

// ErrInboxFull is returned by Post when events arrive faster than the loop
// drains them.
var ErrInboxFull = errors.New("game: event inbox full")

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("game: loop stopped")

// Config holds loop settings.
type Config struct {
	Interval  time.Duration
	InboxSize int
}

// Stats is a snapshot of the loop counters.
type Stats struct {
	Ticks    uint64
	Sessions int
	Events   uint64
	Dropped  uint64
}

// Loop drives a session.Manager.
type Loop struct {
	mgr      *session.Manager
	interval time.Duration
	log      *zap.Logger

	events chan session.Event
	calls  chan func(*session.Manager)
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	hooksMu sync.Mutex
	before  []func(tick uint64)
	after   []func(tick uint64)

	ticks    atomic.Uint64
	sessions atomic.Int64
	handled  atomic.Uint64
	dropped  atomic.Uint64
}

// New creates a loop around mgr.
func New(mgr *session.Manager, cfg Config, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 50 * time.Millisecond
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 1024
	}
	return &Loop{
		mgr:      mgr,
		interval: cfg.Interval,
		log:      log,
		events:   make(chan session.Event, cfg.InboxSize),
		calls:    make(chan func(*session.Manager)),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// BeforeTick registers fn to run on the loop goroutine before each tick.
func (l *Loop) BeforeTick(fn func(tick uint64)) {
	l.hooksMu.Lock()
	defer l.hooksMu.Unlock()
	l.before = append(l.before, fn)
}

// AfterTick registers fn to run on the loop goroutine after each tick.
func (l *Loop) AfterTick(fn func(tick uint64)) {
	l.hooksMu.Lock()
	defer l.hooksMu.Unlock()
	l.after = append(l.after, fn)
}

// Post queues an event without blocking.
func (l *Loop) Post(ev session.Event) error {
	select {
	case l.events <- ev:
		return nil
	default:
		l.dropped.Add(1)
		return ErrInboxFull
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func(*session.Manager)) error {
	finished := make(chan struct{})
	call := func(m *session.Manager) {
		defer close(finished)
		fn(m)
	}
	select {
	case l.calls <- call:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the current counters. Safe to call from any goroutine.
func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:    l.ticks.Load(),
		Sessions: int(l.sessions.Load()),
		Events:   l.handled.Load(),
		Dropped:  l.dropped.Load(),
	}
}

// Stop asks Run to return.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Run processes events and ticks until ctx is done or Stop is called.
// Every live session is cancelled on the way out, and the after-tick hooks
// run once more so the resulting writes reach the host.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	defer close(l.done)

	l.log.Info("tick loop started", zap.Duration("interval", l.interval))

	for {
		select {
		case <-ctx.Done():
			l.exit()
			return ctx.Err()
		case <-l.stop:
			l.exit()
			return nil
		case ev := <-l.events:
			l.mgr.Handle(ev)
			l.handled.Add(1)
		case fn := <-l.calls:
			fn(l.mgr)
		case <-ticker.C:
			l.step()
		}
	}
}

func (l *Loop) hooks() (before, after []func(tick uint64)) {
	l.hooksMu.Lock()
	defer l.hooksMu.Unlock()
	return l.before, l.after
}

// step runs one tick. Events queued before the tick fired are applied first.
func (l *Loop) step() {
	l.drain()
	before, after := l.hooks()

	tick := l.mgr.Ticks() + 1
	for _, fn := range before {
		fn(tick)
	}
	l.mgr.Tick()
	for _, fn := range after {
		fn(tick)
	}
	l.ticks.Store(l.mgr.Ticks())
	l.sessions.Store(int64(l.mgr.Count()))
}

func (l *Loop) exit() {
	l.drain()
	l.mgr.Shutdown()
	_, after := l.hooks()
	tick := l.mgr.Ticks()
	for _, fn := range after {
		fn(tick)
	}
	l.sessions.Store(int64(l.mgr.Count()))
	l.log.Info("tick loop stopped", zap.Uint64("ticks", tick))
}

// drain applies the events queued when it was called. Later arrivals wait
// for the next select so a busy host cannot starve the ticker.
func (l *Loop) drain() {
	for n := len(l.events); n > 0; n-- {
		l.mgr.Handle(<-l.events)
		l.handled.Add(1)
	}
}
