// Package server exposes the shared timer engine and session store to every
// control surface: an in-process service facade for local callers and a
// unix-socket listener for remote ones. All serialization of concurrent
// callers is delegated to the engine's critical section; this package adds
// no locking of its own.
package server

import (
	"context"

	"github.com/pomodoroai/pomod/internal/events"
	"github.com/pomodoroai/pomod/internal/model"
	"github.com/pomodoroai/pomod/internal/store"
	"github.com/pomodoroai/pomod/internal/timer"
)

// Service is the local command surface: the four timer operations bound to
// the one shared engine and store. A single Service instance is shared by
// the socket listener and any in-process caller.
type Service struct {
	engine *timer.Engine
	store  store.Store
}

// NewService binds the shared engine and store.
func NewService(engine *timer.Engine, st store.Store) *Service {
	return &Service{engine: engine, store: st}
}

// StartTimer starts a new session.
func (s *Service) StartTimer(ctx context.Context, durationMinutes int, label string, origin model.Origin) (*model.Session, error) {
	return s.engine.Start(durationMinutes, label, origin)
}

// StopTimer stops the active session.
func (s *Service) StopTimer(ctx context.Context) (*model.Session, error) {
	return s.engine.Stop()
}

// GetStatus returns a point-in-time engine snapshot. It never fails.
func (s *Service) GetStatus(ctx context.Context) model.TimerStatus {
	return s.engine.Status()
}

// GetHistory returns persisted sessions, newest first.
func (s *Service) GetHistory(ctx context.Context, filter model.HistoryFilter) ([]*model.Session, error) {
	return s.store.History(ctx, filter)
}

// Subscribe registers an observer on the engine's event stream.
func (s *Service) Subscribe() *events.Subscription {
	return s.engine.Subscribe()
}
