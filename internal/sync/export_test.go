package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pomodoroai/pomod/internal/model"
)

func TestBuildExport_Empty(t *testing.T) {
	ms := newMockStore()

	export, err := BuildExport(context.Background(), ms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(export.Sessions) != 0 {
		t.Fatalf("sessions = %+v, want none", export.Sessions)
	}

	var buf bytes.Buffer
	if err := export.WriteJSONL(&buf); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.SessionCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if !h.Timestamp.Equal(export.GeneratedAt) {
		t.Errorf("header timestamp %v != snapshot time %v", h.Timestamp, export.GeneratedAt)
	}
}

func TestBuildExport_OldestFirst(t *testing.T) {
	ms := newMockStore()
	early := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	late := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	endedEarly := early.Add(25 * time.Minute)

	// Add sessions out of time order to verify sorting.
	ms.add(&model.Session{ID: "ses-late", Label: "Second", DurationSecs: 1500, StartedAt: late, Origin: model.OriginAgent, Status: model.StatusRunning})
	ms.add(&model.Session{ID: "ses-early", Label: "First", DurationSecs: 1500, StartedAt: early, EndedAt: &endedEarly, Origin: model.OriginHuman, Status: model.StatusCompleted})

	export, err := BuildExport(context.Background(), ms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(export.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(export.Sessions))
	}
	if export.Sessions[0].ID != "ses-early" || export.Sessions[1].ID != "ses-late" {
		t.Fatalf("sessions not oldest first: %q, %q", export.Sessions[0].ID, export.Sessions[1].ID)
	}

	var buf bytes.Buffer
	if err := export.WriteJSONL(&buf); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 2 sessions = 3 lines
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.SessionCount != 2 {
		t.Fatalf("header session count = %d, want 2", h.SessionCount)
	}

	var rec1 record
	if err := json.Unmarshal([]byte(lines[1]), &rec1); err != nil {
		t.Fatalf("unmarshal line 1: %v", err)
	}
	if rec1.Type != "session" {
		t.Fatalf("expected session type, got %q", rec1.Type)
	}
	data1, _ := json.Marshal(rec1.Data)
	var s1 model.Session
	if err := json.Unmarshal(data1, &s1); err != nil {
		t.Fatalf("unmarshal s1: %v", err)
	}
	if s1.ID != "ses-early" || s1.EndedAt == nil || s1.Status != model.StatusCompleted {
		t.Fatalf("first rendered session = %+v", s1)
	}
}

func TestMarshalJSONL_Deterministic(t *testing.T) {
	endedAt := time.Date(2024, 1, 1, 9, 25, 0, 0, time.UTC)
	export := &Export{
		GeneratedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Sessions: []*model.Session{{
			ID: "ses-1", Label: "Work", DurationSecs: 1500,
			StartedAt: endedAt.Add(-25 * time.Minute), EndedAt: &endedAt,
			Origin: model.OriginHuman, Status: model.StatusCompleted,
		}},
	}

	first, err := export.MarshalJSONL()
	if err != nil {
		t.Fatalf("MarshalJSONL: %v", err)
	}
	second, err := export.MarshalJSONL()
	if err != nil {
		t.Fatalf("MarshalJSONL: %v", err)
	}
	// Same snapshot, same bytes: this is what lets the git destination
	// skip empty commits.
	if !bytes.Equal(first, second) {
		t.Error("rendering the same snapshot twice produced different bytes")
	}
}

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
