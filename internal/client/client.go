// Package client provides a transport-agnostic interface for the pomod
// daemon and a unix-socket JSON-RPC implementation of it.
package client

import (
	"context"
	"fmt"

	"github.com/pomodoroai/pomod/internal/events"
	"github.com/pomodoroai/pomod/internal/model"
)

// TimerClient is the interface that all pomod CLI commands use to talk to
// the daemon. It is implemented by SocketClient (default) and can be backed
// by any transport.
type TimerClient interface {
	StartTimer(ctx context.Context, req *StartTimerRequest) (*model.Session, error)
	StopTimer(ctx context.Context) (*model.Session, error)
	GetStatus(ctx context.Context) (*model.TimerStatus, error)
	GetHistory(ctx context.Context, req *GetHistoryRequest) ([]*model.Session, error)

	// WatchEvents streams timer events until ctx is canceled or the daemon
	// goes away. The channel is closed when the stream ends.
	WatchEvents(ctx context.Context) (<-chan WatchedEvent, error)

	Close() error
}

// StartTimerRequest holds parameters for starting a session.
type StartTimerRequest struct {
	DurationMinutes int    `json:"duration_minutes"`
	Label           string `json:"label"`
	Origin          string `json:"origin,omitempty"`
}

// GetHistoryRequest holds optional RFC 3339 bounds on session start time.
type GetHistoryRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// WatchedEvent is one delivery on a watch stream. Missed counts events
// dropped since the previous delivery when the consumer lagged.
type WatchedEvent struct {
	Event  events.Event `json:"event"`
	Missed uint64       `json:"missed,omitempty"`
}

// RPCError is a structured error returned by the daemon.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsStateConflict reports whether the daemon rejected the call because the
// timer was in the wrong state (already running / not running).
func (e *RPCError) IsStateConflict() bool {
	return e.Code == -32002
}
