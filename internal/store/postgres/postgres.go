// Package postgres implements the store.Store interface backed by
// PostgreSQL, for deployments that share one history across machines.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/pomodoroai/pomod/internal/model"
	"github.com/pomodoroai/pomod/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL and
// runs any pending migrations. The pool is capped at one connection so every
// store call is serialized, matching the SQLite backend's behavior.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveSession(ctx context.Context, session *model.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, duration_secs, started_at, ended_at, origin, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID,
		session.Label,
		session.DurationSecs,
		session.StartedAt.UTC(),
		nullTimePtr(session.EndedAt),
		string(session.Origin),
		string(session.Status),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", session.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateSession(ctx context.Context, id string, status model.SessionStatus, endedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = $1, ended_at = $2 WHERE id = $3`,
		string(status),
		endedAt.UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, filter model.HistoryFilter) ([]*model.Session, error) {
	query := `SELECT id, label, duration_secs, started_at, ended_at, origin, status
		FROM sessions WHERE 1=1`
	var args []any

	if filter.Start != nil {
		args = append(args, filter.Start.UTC())
		query += fmt.Sprintf(" AND started_at >= $%d", len(args))
	}
	if filter.End != nil {
		args = append(args, filter.End.UTC())
		query += fmt.Sprintf(" AND started_at <= $%d", len(args))
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

func (s *PostgresStore) RecoverStale(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = $1, ended_at = $2 WHERE status = $3`,
		string(model.StatusStopped),
		time.Now().UTC(),
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
		session model.Session
		endedAt sql.NullTime
		origin  string
		status  string
	)
	if err := rows.Scan(
		&session.ID,
		&session.Label,
		&session.DurationSecs,
		&session.StartedAt,
		&endedAt,
		&origin,
		&status,
	); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if endedAt.Valid {
		t := endedAt.Time
		session.EndedAt = &t
	}
	session.Origin = model.Origin(origin)
	session.Status = model.SessionStatus(status)
	return &session, nil
}

func nullTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
