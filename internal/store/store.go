// Package store defines the persistence interface for session history.
package store

import (
	"context"
	"time"

	"github.com/pomodoroai/pomod/internal/model"
)

// Store is the durable, query-able session log. History is append/update
// only; rows are never deleted. Implementations serialize every call on a
// single underlying connection.
type Store interface {
	// SaveSession inserts a new session row. Called exactly once per
	// session, at Started time.
	SaveSession(ctx context.Context, session *model.Session) error

	// UpdateSession records the terminal transition for a session. It is
	// idempotent and silently no-ops for an unknown id.
	UpdateSession(ctx context.Context, id string, status model.SessionStatus, endedAt time.Time) error

	// History returns sessions ordered by started_at descending. Filter
	// bounds are inclusive on started_at; nil bounds impose no filter.
	History(ctx context.Context, filter model.HistoryFilter) ([]*model.Session, error)

	// RecoverStale transitions every row still marked running (left over
	// from an unclean shutdown) to stopped with the current time as
	// ended_at, and returns the number of rows recovered.
	RecoverStale(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}
