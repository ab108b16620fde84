package ui

import (
	"fmt"

	"github.com/pomodoroai/pomod/internal/model"
)

// ANSI256 color codes.
const (
	colorRunning   = 74  // blue
	colorCompleted = 71  // green
	colorStopped   = 245 // medium gray
	colorMuted     = 245 // medium gray
	colorAccent    = 215 // orange, for the countdown
)

var noColor bool

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderStatus returns a session status colored by its meaning.
func RenderStatus(status model.SessionStatus) string {
	switch status {
	case model.StatusRunning:
		return paint(colorRunning, string(status))
	case model.StatusCompleted:
		return paint(colorCompleted, string(status))
	case model.StatusStopped:
		return paint(colorStopped, string(status))
	}
	return string(status)
}

// RenderCountdown returns remaining time styled for the live display.
func RenderCountdown(s string) string {
	return paint(colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return paint(colorMuted, s)
}

// FormatClock renders seconds as MM:SS, or H:MM:SS past the hour mark.
func FormatClock(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
