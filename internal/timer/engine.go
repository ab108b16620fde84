// Package timer implements the focus-timer state machine and its per-session
// tick scheduler. One Engine instance is shared by every control surface; it
// is the single source of truth for whether a session is active.
package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pomodoroai/pomod/internal/events"
	"github.com/pomodoroai/pomod/internal/idgen"
	"github.com/pomodoroai/pomod/internal/model"
)

// State-conflict errors. These are expected, recoverable outcomes of racing
// callers, not defects.
var (
	ErrAlreadyRunning = errors.New("a timer is already running")
	ErrNotRunning     = errors.New("no timer is running")
)

// Engine is the timer state machine. All transitions happen inside one
// critical section; the lock is never held across I/O.
type Engine struct {
	mu            sync.Mutex
	session       *model.Session
	remainingSecs int64
	cancel        chan struct{}

	bus          *events.Bus
	tickInterval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTickInterval overrides the one-second tick cadence. The countdown still
// decrements by one logical second per tick, so a shorter interval runs
// sessions in compressed time.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tickInterval = d
		}
	}
}

// WithBusCapacity sets the per-subscriber event buffer size.
func WithBusCapacity(n int) Option {
	return func(e *Engine) {
		e.bus = events.NewBus(n)
	}
}

// New creates an idle engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		bus:          events.NewBus(events.DefaultBusCapacity),
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers a new observer of the engine's event stream.
func (e *Engine) Subscribe() *events.Subscription {
	return e.bus.Subscribe()
}

// Start validates the request, transitions Idle -> Running, publishes a
// Started event, and launches the tick scheduler for the new session. It
// returns without waiting for the timer to run. Exactly one of N racing
// callers succeeds; the rest get ErrAlreadyRunning.
func (e *Engine) Start(durationMinutes int, label string, origin model.Origin) (*model.Session, error) {
	// Validation happens before any shared state is touched.
	label, err := model.ValidateLabel(label)
	if err != nil {
		return nil, err
	}
	durationSecs, err := model.ValidateDuration(durationMinutes)
	if err != nil {
		return nil, err
	}
	id, err := idgen.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return nil, ErrAlreadyRunning
	}

	session := &model.Session{
		ID:           id,
		Label:        label,
		DurationSecs: durationSecs,
		StartedAt:    time.Now().UTC(),
		Origin:       origin,
		Status:       model.StatusRunning,
	}

	cancel := make(chan struct{})
	e.session = session
	e.remainingSecs = durationSecs
	e.cancel = cancel

	e.bus.Publish(events.Started(session.Clone()))

	go e.run(cancel)

	return session.Clone(), nil
}

// Stop transitions Running -> Idle, cancels the tick scheduler, publishes a
// Stopped event, and returns the final session snapshot.
func (e *Engine) Stop() (*model.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, ErrNotRunning
	}

	now := time.Now().UTC()
	session := e.session
	session.Status = model.StatusStopped
	session.EndedAt = &now

	e.session = nil
	e.remainingSecs = 0
	close(e.cancel)
	e.cancel = nil

	e.bus.Publish(events.Stopped(session.Clone()))

	return session.Clone(), nil
}

// Status returns a point-in-time snapshot. It never fails.
func (e *Engine) Status() model.TimerStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return model.TimerStatus{
		Session:       e.session.Clone(),
		RemainingSecs: e.remainingSecs,
		IsRunning:     e.session != nil,
	}
}

// Close stops any active session and shuts down the event bus.
func (e *Engine) Close() {
	if _, err := e.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		// Stop only fails with ErrNotRunning; nothing else to handle.
		_ = err
	}
	e.bus.Close()
}

// run is the tick scheduler: one instance per session lifetime. It counts the
// session down on the tick cadence and exits on cancellation or completion.
func (e *Engine) run(cancel <-chan struct{}) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			// Stopped explicitly; the Stopped event was published by Stop.
			return
		case <-ticker.C:
			if e.tick(cancel) {
				return
			}
		}
	}
}

// tick advances the countdown by one second inside the engine critical
// section and reports whether the scheduler should terminate.
func (e *Engine) tick(cancel <-chan struct{}) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Stop (or a successor session's start) may have raced the ticker; the
	// closed cancel channel means this scheduler no longer owns the state.
	select {
	case <-cancel:
		return true
	default:
	}

	if e.session == nil {
		return true
	}

	e.remainingSecs--
	if e.remainingSecs <= 0 {
		now := time.Now().UTC()
		session := e.session
		session.Status = model.StatusCompleted
		session.EndedAt = &now

		e.session = nil
		e.remainingSecs = 0
		e.cancel = nil

		e.bus.Publish(events.Completed(session.Clone()))
		return true
	}

	e.bus.Publish(events.Tick(e.remainingSecs, e.session.Clone()))
	return false
}
