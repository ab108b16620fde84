package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/pomodoroai/pomod/internal/model"
)

// maxFrameBytes bounds a single request line. Requests are small; anything
// beyond this is a broken or hostile client.
const maxFrameBytes = 1 << 20

// Listener accepts control connections on a unix domain socket and serves
// newline-delimited JSON-RPC 2.0 against the shared Service. Each connection
// gets its own goroutine; a failure on one connection never affects another.
type Listener struct {
	service    *Service
	socketPath string
	logger     *slog.Logger

	ln     net.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewListener binds the service to a socket path. The socket is not created
// until Start.
func NewListener(service *Service, socketPath string, logger *slog.Logger) *Listener {
	return &Listener{
		service:    service,
		socketPath: socketPath,
		logger:     logger,
	}
}

// Start creates the socket and begins accepting connections in the
// background. A leftover socket file from a previous run is removed first; a
// live daemon would still hold the listener, so a bindable path means the
// file is stale.
func (l *Listener) Start() error {
	if err := os.MkdirAll(filepath.Dir(l.socketPath), 0o755); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.Remove(l.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", l.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.socketPath, err)
	}
	l.ln = ln

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.acceptLoop(ctx)
	}()

	l.logger.Info("control socket listening", "path", l.socketPath)
	return nil
}

// Addr returns the socket path the listener is bound to.
func (l *Listener) Addr() string {
	return l.socketPath
}

// Close stops accepting, terminates open connections via context, and waits
// for all connection goroutines to exit.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	var err error
	if l.ln != nil {
		err = l.ln.Close()
	}
	l.wg.Wait()
	os.Remove(l.socketPath)
	return err
}

func (l *Listener) acceptLoop(ctx context.Context) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("accept failed", "err", err)
			continue
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer conn.Close()
			l.serveConn(ctx, conn)
		}()
	}
}

// serveConn reads one request per line until the client disconnects or the
// listener shuts down. Malformed frames get an error response; the
// connection stays open.
func (l *Listener) serveConn(ctx context.Context, conn net.Conn) {
	// Unblock reads on shutdown.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	enc := json.NewEncoder(conn)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := enc.Encode(rpcResponse{
				JSONRPC: "2.0",
				Error:   &rpcError{Code: codeParseError, Message: "parse error: " + err.Error()},
			}); writeErr != nil {
				return
			}
			continue
		}

		if req.Method == MethodWatchEvents {
			// Streaming takes over the connection; it ends when the client
			// disconnects or the listener shuts down.
			l.serveWatch(ctx, enc, req)
			return
		}

		resp := l.dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
	// Scanner errors (including ErrTooLong) end only this connection.
}

func (l *Listener) dispatch(ctx context.Context, req rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case MethodStartTimer:
		var params startTimerParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			resp.Error = err
			return resp
		}
		origin, perr := parseOrigin(params.Origin)
		if perr != nil {
			resp.Error = perr
			return resp
		}
		session, err := l.service.StartTimer(ctx, params.DurationMinutes, params.Label, origin)
		if err != nil {
			resp.Error = toRPCError(err)
			return resp
		}
		resp.Result = session

	case MethodStopTimer:
		session, err := l.service.StopTimer(ctx)
		if err != nil {
			resp.Error = toRPCError(err)
			return resp
		}
		resp.Result = session

	case MethodGetStatus:
		resp.Result = l.service.GetStatus(ctx)

	case MethodGetHistory:
		var params getHistoryParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			resp.Error = err
			return resp
		}
		filter, perr := parseHistoryFilter(params)
		if perr != nil {
			resp.Error = perr
			return resp
		}
		sessions, herr := l.service.GetHistory(ctx, filter)
		if herr != nil {
			resp.Error = toRPCError(herr)
			return resp
		}
		if sessions == nil {
			sessions = []*model.Session{}
		}
		resp.Result = sessions

	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: "unknown method: " + req.Method}
	}

	return resp
}

// serveWatch acknowledges the subscription then streams timer_event
// notifications until the connection or listener goes away.
func (l *Listener) serveWatch(ctx context.Context, enc *json.Encoder, req rpcRequest) {
	sub := l.service.Subscribe()
	defer sub.Cancel()

	if err := enc.Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]bool{"subscribed": true}}); err != nil {
		return
	}

	for {
		event, missed, err := sub.Next(ctx)
		if err != nil {
			return
		}
		note := rpcNotification{
			JSONRPC: "2.0",
			Method:  NotifyTimerEvent,
			Params:  watchEventParams{Event: event, Missed: missed},
		}
		if err := enc.Encode(note); err != nil {
			return
		}
	}
}

func unmarshalParams(raw json.RawMessage, dst any) *rpcError {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &rpcError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}
