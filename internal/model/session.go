package model

import "time"

// Origin records which control surface started a session.
type Origin string

const (
	OriginHuman Origin = "human"
	OriginAgent Origin = "agent"
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	return string(o)
}

// IsValid checks whether the origin is a known value.
func (o Origin) IsValid() bool {
	switch o {
	case OriginHuman, OriginAgent:
		return true
	}
	return false
}

// SessionStatus represents the current state of a session.
// A session transitions running -> completed (natural finish) or
// running -> stopped (explicit stop); terminal states never change.
type SessionStatus string

const (
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
	StatusStopped   SessionStatus = "stopped"
)

// String returns the string representation of the status.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s SessionStatus) IsValid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusStopped:
		return true
	}
	return false
}

// Session is one timer run, live or historical. All fields except Status and
// EndedAt are immutable after creation; EndedAt is set exactly once on the
// terminal transition.
type Session struct {
	ID           string        `json:"id"`
	Label        string        `json:"label"`
	DurationSecs int64         `json:"duration_secs"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      *time.Time    `json:"ended_at,omitempty"`
	Origin       Origin        `json:"origin"`
	Status       SessionStatus `json:"status"`
}

// Clone returns a copy of the session safe to hand to other goroutines.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// TimerStatus is a point-in-time view of the engine. It is never persisted.
type TimerStatus struct {
	Session       *Session `json:"session,omitempty"`
	RemainingSecs int64    `json:"remaining_secs"`
	IsRunning     bool     `json:"is_running"`
}

// HistoryFilter bounds a history query on started_at. Both bounds are
// inclusive; a nil bound imposes no filter.
type HistoryFilter struct {
	Start *time.Time
	End   *time.Time
}
