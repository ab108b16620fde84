// Package sync periodically exports the session history as JSONL to one or
// more destinations (local file, S3 bucket, git repository).
package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pomodoroai/pomod/internal/store"
)

// Destination is the interface for an export target (file, S3, git, etc.).
type Destination interface {
	// Write delivers one history snapshot to the destination.
	Write(ctx context.Context, export *Export) error
}

// Scheduler periodically snapshots the session history and fans it out to
// every destination. One snapshot per cycle; destinations that fail are
// logged and skipped until the next cycle.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to the given
// destinations at the specified interval.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the in-flight export (if any) to
// finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	// First export at startup, so a fresh daemon publishes its history
	// without waiting a full interval.
	s.exportOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.exportOnce(ctx)
		}
	}
}

func (s *Scheduler) exportOnce(ctx context.Context) {
	export, err := BuildExport(ctx, s.store)
	if err != nil {
		s.logger.Error("history export failed", "err", err)
		return
	}

	for i, dest := range s.destinations {
		if err := dest.Write(ctx, export); err != nil {
			s.logger.Error("export destination write failed", "destination", i, "err", err)
		}
	}

	s.logger.Info("history export completed",
		"sessions", len(export.Sessions),
		"destinations", len(s.destinations),
	)
}
