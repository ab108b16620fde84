package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/pomodoroai/pomod/internal/model"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var sessionColumns = []string{"id", "label", "duration_secs", "started_at", "ended_at", "origin", "status"}

func TestSaveSession(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	startedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("ses-1", "Work", int64(1500), startedAt, nil, "human", "running").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SaveSession(context.Background(), &model.Session{
		ID:           "ses-1",
		Label:        "Work",
		DurationSecs: 1500,
		StartedAt:    startedAt,
		Origin:       model.OriginHuman,
		Status:       model.StatusRunning,
	})
	if err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
}

func TestUpdateSession(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	endedAt := time.Date(2024, 1, 1, 12, 25, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE sessions SET status = \\$1, ended_at = \\$2 WHERE id = \\$3").
		WithArgs("completed", endedAt, "ses-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.UpdateSession(context.Background(), "ses-1", model.StatusCompleted, endedAt); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
}

func TestUpdateSessionUnknownID(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	endedAt := time.Date(2024, 1, 1, 12, 25, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE sessions SET status = \\$1, ended_at = \\$2 WHERE id = \\$3").
		WithArgs("stopped", endedAt, "ses-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Zero rows affected is not an error.
	if err := s.UpdateSession(context.Background(), "ses-missing", model.StatusStopped, endedAt); err != nil {
		t.Errorf("UpdateSession on unknown id = %v, want nil", err)
	}
}

func TestHistoryUnfiltered(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	late := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	early := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(sessionColumns).
		AddRow("ses-late", "Late", int64(1500), late, nil, "human", "running").
		AddRow("ses-early", "Early", int64(1500), early, early.Add(25*time.Minute), "agent", "completed")

	mock.ExpectQuery("SELECT .+ FROM sessions WHERE 1=1 ORDER BY started_at DESC").
		WillReturnRows(rows)

	sessions, err := s.History(context.Background(), model.HistoryFilter{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("history length = %d, want 2", len(sessions))
	}
	if sessions[0].ID != "ses-late" || sessions[1].ID != "ses-early" {
		t.Errorf("order = %q, %q, want ses-late then ses-early", sessions[0].ID, sessions[1].ID)
	}
	if sessions[0].EndedAt != nil {
		t.Errorf("running session ended_at = %v, want nil", sessions[0].EndedAt)
	}
	if sessions[1].Origin != model.OriginAgent || sessions[1].Status != model.StatusCompleted {
		t.Errorf("scanned enums = %q %q", sessions[1].Origin, sessions[1].Status)
	}
}

func TestHistoryWithBounds(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM sessions WHERE 1=1 AND started_at >= \\$1 AND started_at <= \\$2 ORDER BY started_at DESC").
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows(sessionColumns))

	sessions, err := s.History(context.Background(), model.HistoryFilter{Start: &start, End: &end})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("history = %+v, want empty", sessions)
	}
}

func TestRecoverStale(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectExec("UPDATE sessions SET status = \\$1, ended_at = \\$2 WHERE status = \\$3").
		WithArgs("stopped", sqlmock.AnyArg(), "running").
		WillReturnResult(sqlmock.NewResult(0, 3))

	recovered, err := s.RecoverStale(context.Background())
	if err != nil {
		t.Fatalf("RecoverStale: %v", err)
	}
	if recovered != 3 {
		t.Errorf("recovered = %d, want 3", recovered)
	}
}
