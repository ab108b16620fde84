package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pomodoroai/pomod/internal/model"
	"github.com/pomodoroai/pomod/internal/store"
)

// Export is one point-in-time snapshot of the session history. Sessions are
// ordered oldest first so repeated exports extend naturally over time, and
// GeneratedAt is fixed at build time so rendering the same snapshot twice
// yields identical bytes.
type Export struct {
	GeneratedAt time.Time
	Sessions    []*model.Session
}

// BuildExport reads the full session history from the store.
func BuildExport(ctx context.Context, s store.Store) (*Export, error) {
	// No date bounds: exports always carry the complete history.
	sessions, err := s.History(ctx, model.HistoryFilter{})
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})

	return &Export{
		GeneratedAt: time.Now().UTC(),
		Sessions:    sessions,
	}, nil
}

// header is the first JSONL record of a rendered export.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	SessionCount int       `json:"session_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WriteJSONL renders the export as JSONL: a header line followed by one
// session record per line.
func (e *Export) WriteJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      "1",
		Type:         "header",
		Timestamp:    e.GeneratedAt,
		SessionCount: len(e.Sessions),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, session := range e.Sessions {
		if err := enc.Encode(record{Type: "session", Data: session}); err != nil {
			return fmt.Errorf("encode session %s: %w", session.ID, err)
		}
	}

	return nil
}

// MarshalJSONL renders the export to a byte slice.
func (e *Export) MarshalJSONL() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.WriteJSONL(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
