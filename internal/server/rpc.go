package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/pomodoroai/pomod/internal/model"
	"github.com/pomodoroai/pomod/internal/timer"
)

// The control channel speaks newline-delimited JSON-RPC 2.0. Method names
// and error codes are the wire contract clients depend on; the core only
// dispatches them onto the Service.
const (
	MethodStartTimer  = "start_timer"
	MethodStopTimer   = "stop_timer"
	MethodGetStatus   = "get_status"
	MethodGetHistory  = "get_history"
	MethodWatchEvents = "watch_events"

	// NotifyTimerEvent is the server-to-client notification method used by
	// watch_events streams.
	NotifyTimerEvent = "timer_event"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603

	// codeStateConflict maps AlreadyRunning/NotRunning: expected,
	// recoverable outcomes rather than protocol failures.
	codeStateConflict = -32002
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }

type startTimerParams struct {
	DurationMinutes int    `json:"duration_minutes"`
	Label           string `json:"label"`
	// Origin is optional; remote callers default to agent. The local CLI
	// sets it to human for sessions the user starts interactively.
	Origin string `json:"origin,omitempty"`
}

type getHistoryParams struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// watchEventParams is the payload of a timer_event notification.
type watchEventParams struct {
	Event  any    `json:"event"`
	Missed uint64 `json:"missed,omitempty"`
}

// toRPCError maps domain errors onto the protocol taxonomy.
func toRPCError(err error) *rpcError {
	var labelErr *model.InvalidLabelError
	switch {
	case errors.As(err, &labelErr), errors.Is(err, model.ErrInvalidDuration):
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, timer.ErrAlreadyRunning), errors.Is(err, timer.ErrNotRunning):
		return &rpcError{Code: codeStateConflict, Message: err.Error()}
	default:
		return &rpcError{Code: codeInternal, Message: err.Error()}
	}
}

// parseHistoryFilter converts optional ISO-8601 bounds into a HistoryFilter.
func parseHistoryFilter(params getHistoryParams) (model.HistoryFilter, *rpcError) {
	var filter model.HistoryFilter
	if params.StartDate != "" {
		t, err := time.Parse(time.RFC3339, params.StartDate)
		if err != nil {
			return filter, &rpcError{Code: codeInvalidParams, Message: "start_date: " + err.Error()}
		}
		filter.Start = &t
	}
	if params.EndDate != "" {
		t, err := time.Parse(time.RFC3339, params.EndDate)
		if err != nil {
			return filter, &rpcError{Code: codeInvalidParams, Message: "end_date: " + err.Error()}
		}
		filter.End = &t
	}
	return filter, nil
}

// parseOrigin resolves the optional origin param; remote callers are agents
// unless they say otherwise.
func parseOrigin(raw string) (model.Origin, *rpcError) {
	if raw == "" {
		return model.OriginAgent, nil
	}
	origin := model.Origin(raw)
	if !origin.IsValid() {
		return "", &rpcError{Code: codeInvalidParams, Message: "origin must be \"human\" or \"agent\""}
	}
	return origin, nil
}
