// Package sqlite implements the store.Store interface backed by a local
// SQLite database file. It is the default backend for single-machine use.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/pomodoroai/pomod/internal/model"
	"github.com/pomodoroai/pomod/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is how timestamps are stored. RFC 3339 in UTC keeps
// lexicographic and chronological order identical, so started_at range
// queries work directly on the TEXT column.
const timeLayout = time.RFC3339

// SQLiteStore implements store.Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements store.Store.
var _ store.Store = (*SQLiteStore)(nil)

// New opens (creating if necessary) the SQLite database at the given path
// and runs any pending migrations. The connection pool is capped at one
// connection, which serializes every store call.
func New(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSession(ctx context.Context, session *model.Session) error {
	var endedAt any
	if session.EndedAt != nil {
		endedAt = session.EndedAt.UTC().Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, duration_secs, started_at, ended_at, origin, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.Label,
		session.DurationSecs,
		session.StartedAt.UTC().Format(timeLayout),
		endedAt,
		string(session.Origin),
		string(session.Status),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, id string, status model.SessionStatus, endedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, ended_at = ? WHERE id = ?`,
		string(status),
		endedAt.UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, filter model.HistoryFilter) ([]*model.Session, error) {
	query := `SELECT id, label, duration_secs, started_at, ended_at, origin, status
		FROM sessions WHERE 1=1`
	var args []any

	if filter.Start != nil {
		query += ` AND started_at >= ?`
		args = append(args, filter.Start.UTC().Format(timeLayout))
	}
	if filter.End != nil {
		query += ` AND started_at <= ?`
		args = append(args, filter.End.UTC().Format(timeLayout))
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (s *SQLiteStore) RecoverStale(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, ended_at = ? WHERE status = ?`,
		string(model.StatusStopped),
		time.Now().UTC().Format(timeLayout),
		string(model.StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("recover stale sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recover stale sessions: rows affected: %w", err)
	}
	return int(n), nil
}

func scanSession(rows *sql.Rows) (*model.Session, error) {
	var (
		session   model.Session
		startedAt string
		endedAt   sql.NullString
		origin    string
		status    string
	)
	if err := rows.Scan(
		&session.ID,
		&session.Label,
		&session.DurationSecs,
		&startedAt,
		&endedAt,
		&origin,
		&status,
	); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	session.StartedAt = t

	if endedAt.Valid {
		t, err := time.Parse(timeLayout, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at %q: %w", endedAt.String, err)
		}
		session.EndedAt = &t
	}

	session.Origin = model.Origin(origin)
	session.Status = model.SessionStatus(status)
	return &session, nil
}
