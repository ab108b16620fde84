package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pomodoroai/pomod/internal/events"
	"github.com/pomodoroai/pomod/internal/store"
	"github.com/pomodoroai/pomod/internal/timer"
)

// Forwarder consumes the engine's event stream and reacts on behalf of the
// durable and external worlds: Started events are saved to the store,
// terminal events update the stored row, and every event is republished to
// the external Publisher. Persistence and publish failures are logged and
// never fed back into the engine; live state stays authoritative.
type Forwarder struct {
	engine    *timer.Engine
	store     store.Store
	publisher events.Publisher
	logger    *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewForwarder wires the engine's bus to the store and external publisher.
func NewForwarder(engine *timer.Engine, st store.Store, publisher events.Publisher, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		engine:    engine,
		store:     st,
		publisher: publisher,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start subscribes to the engine and begins forwarding in the background.
func (f *Forwarder) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	sub := f.engine.Subscribe()
	go func() {
		defer close(f.done)
		defer sub.Cancel()
		f.run(ctx, sub)
	}()
}

// Stop cancels the forwarder and waits for it to drain.
func (f *Forwarder) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	<-f.done
}

func (f *Forwarder) run(ctx context.Context, sub *events.Subscription) {
	for {
		event, missed, err := sub.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, events.ErrBusClosed) {
				f.logger.Error("event forwarder stopped", "err", err)
			}
			return
		}
		if missed > 0 {
			f.logger.Warn("event forwarder lagged", "missed", missed)
		}
		f.handle(ctx, event)
	}
}

func (f *Forwarder) handle(ctx context.Context, event events.Event) {
	session := event.Session
	switch event.Type {
	case events.TypeStarted:
		if err := f.store.SaveSession(ctx, session); err != nil {
			f.logger.Warn("failed to save session", "session_id", session.ID, "err", err)
		}
	case events.TypeCompleted, events.TypeStopped:
		if session.EndedAt == nil {
			f.logger.Warn("terminal event without ended_at", "session_id", session.ID, "type", event.Type)
			break
		}
		if err := f.store.UpdateSession(ctx, session.ID, session.Status, *session.EndedAt); err != nil {
			f.logger.Warn("failed to update session", "session_id", session.ID, "err", err)
		}
	case events.TypeTick:
		// Ticks are transient; republished below but never persisted.
	}

	if err := f.publisher.Publish(ctx, event.Topic(), event); err != nil {
		f.logger.Warn("failed to publish event", "topic", event.Topic(), "err", err)
	}
}
