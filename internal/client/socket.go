package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pomodoroai/pomod/internal/model"
)

// maxFrameBytes mirrors the daemon's per-line limit.
const maxFrameBytes = 1 << 20

// SocketClient implements TimerClient over the daemon's unix control socket
// using newline-delimited JSON-RPC 2.0. Request/response calls share one
// connection, serialized by a mutex; each watch stream gets its own.
type SocketClient struct {
	socketPath string

	mu      sync.Mutex
	conn    net.Conn
	scanner *bufio.Scanner
	nextID  int64
	closed  bool
}

// Compile-time check that SocketClient implements TimerClient.
var _ TimerClient = (*SocketClient)(nil)

// NewSocketClient connects to the daemon socket at the given path.
func NewSocketClient(socketPath string) (*SocketClient, error) {
	conn, err := dialSocket(socketPath)
	if err != nil {
		return nil, err
	}
	return &SocketClient{
		socketPath: socketPath,
		conn:       conn,
		scanner:    newFrameScanner(conn),
	}, nil
}

func dialSocket(socketPath string) (net.Conn, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon at %s (is the daemon running?): %w", socketPath, err)
	}
	return conn, nil
}

func newFrameScanner(conn net.Conn) *bufio.Scanner {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)
	return scanner
}

// Close closes the shared call connection.
func (c *SocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.scanner = nil
	return err
}

// dropConnLocked discards the shared connection; the next call redials. Used
// after transport failures, when request and response framing can no longer
// be trusted to line up.
func (c *SocketClient) dropConnLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.scanner = nil
	}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call performs one request/response round trip and decodes the result into
// dst when non-nil.
func (c *SocketClient) call(ctx context.Context, method string, params, dst any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client is closed")
	}
	if c.conn == nil {
		conn, err := dialSocket(c.socketPath)
		if err != nil {
			return err
		}
		c.conn = conn
		c.scanner = newFrameScanner(conn)
	}

	// Cancellation poisons the connection's deadline to unblock the read;
	// the unix transport has no per-request deadline. A poisoned connection
	// is dropped so the next call starts clean on a fresh dial.
	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer func() {
		if !stop() {
			c.dropConnLocked()
		}
	}()

	c.nextID++
	data, err := json.Marshal(request{JSONRPC: "2.0", ID: c.nextID, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		c.dropConnLocked()
		return fmt.Errorf("send %s request: %w", method, err)
	}

	if !c.scanner.Scan() {
		scanErr := c.scanner.Err()
		c.dropConnLocked()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if scanErr != nil {
			return fmt.Errorf("read %s response: %w", method, scanErr)
		}
		return fmt.Errorf("daemon closed the connection")
	}

	var resp response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if dst != nil {
		if err := json.Unmarshal(resp.Result, dst); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *SocketClient) StartTimer(ctx context.Context, req *StartTimerRequest) (*model.Session, error) {
	var session model.Session
	if err := c.call(ctx, "start_timer", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *SocketClient) StopTimer(ctx context.Context) (*model.Session, error) {
	var session model.Session
	if err := c.call(ctx, "stop_timer", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *SocketClient) GetStatus(ctx context.Context) (*model.TimerStatus, error) {
	var status model.TimerStatus
	if err := c.call(ctx, "get_status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *SocketClient) GetHistory(ctx context.Context, req *GetHistoryRequest) ([]*model.Session, error) {
	if req == nil {
		req = &GetHistoryRequest{}
	}
	var sessions []*model.Session
	if err := c.call(ctx, "get_history", req, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// WatchEvents opens a dedicated connection and streams timer events on the
// returned channel until ctx is canceled or the daemon disconnects.
func (c *SocketClient) WatchEvents(ctx context.Context) (<-chan WatchedEvent, error) {
	conn, err := dialSocket(c.socketPath)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(request{JSONRPC: "2.0", ID: 1, Method: "watch_events"})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("marshal watch request: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send watch request: %w", err)
	}

	scanner := newFrameScanner(conn)
	if !scanner.Scan() {
		conn.Close()
		return nil, fmt.Errorf("watch subscribe: daemon closed the connection")
	}
	var ack response
	if err := json.Unmarshal(scanner.Bytes(), &ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode watch ack: %w", err)
	}
	if ack.Error != nil {
		conn.Close()
		return nil, ack.Error
	}

	ch := make(chan WatchedEvent)
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	go func() {
		defer close(ch)
		defer stop()
		defer conn.Close()
		for scanner.Scan() {
			var note struct {
				Method string       `json:"method"`
				Params WatchedEvent `json:"params"`
			}
			if err := json.Unmarshal(scanner.Bytes(), &note); err != nil {
				continue
			}
			if note.Method != "timer_event" {
				continue
			}
			select {
			case ch <- note.Params:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
