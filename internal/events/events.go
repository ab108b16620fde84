// Package events defines the timer event stream: the closed set of event
// variants, the in-process broadcast bus the engine publishes to, and the
// optional NATS republication used by external consumers.
package events

import (
	"context"

	"github.com/pomodoroai/pomod/internal/model"
)

// Event topic constants for the external (NATS) stream.
const (
	TopicStarted   = "pomod.timer.started"
	TopicTick      = "pomod.timer.tick"
	TopicCompleted = "pomod.timer.completed"
	TopicStopped   = "pomod.timer.stopped"

	// TopicAll matches every timer event (NATS wildcard).
	TopicAll = "pomod.timer.>"
)

// Type discriminates the closed set of timer event variants.
type Type string

const (
	TypeStarted   Type = "started"
	TypeTick      Type = "tick"
	TypeCompleted Type = "completed"
	TypeStopped   Type = "stopped"
)

// Event is one timer state transition (or tick), carrying a full session
// snapshot. RemainingSecs is meaningful only for tick events.
type Event struct {
	Type          Type           `json:"type"`
	Session       *model.Session `json:"session"`
	RemainingSecs int64          `json:"remaining_secs,omitempty"`
}

// Started builds a Started event from a session snapshot.
func Started(s *model.Session) Event {
	return Event{Type: TypeStarted, Session: s}
}

// Tick builds a Tick event carrying the remaining time.
func Tick(remainingSecs int64, s *model.Session) Event {
	return Event{Type: TypeTick, Session: s, RemainingSecs: remainingSecs}
}

// Completed builds a Completed event from a terminal session snapshot.
func Completed(s *model.Session) Event {
	return Event{Type: TypeCompleted, Session: s}
}

// Stopped builds a Stopped event from a terminal session snapshot.
func Stopped(s *model.Session) Event {
	return Event{Type: TypeStopped, Session: s}
}

// Topic returns the external stream topic for the event's type.
func (e Event) Topic() string {
	switch e.Type {
	case TypeStarted:
		return TopicStarted
	case TypeTick:
		return TopicTick
	case TypeCompleted:
		return TopicCompleted
	case TypeStopped:
		return TopicStopped
	}
	return "pomod.timer.unknown"
}

// Publisher is the interface for republishing events to an external stream.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
