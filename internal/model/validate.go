package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Label and duration bounds for a session.
const (
	MaxLabelRunes   = 64
	MinDurationMins = 1
	MaxDurationMins = 1440
)

// ErrInvalidDuration is returned when the requested duration is outside
// the allowed 1-1440 minute range.
var ErrInvalidDuration = errors.New("invalid duration: must be between 1 and 1440 minutes")

// InvalidLabelError reports why a session label was rejected.
type InvalidLabelError struct {
	Reason string
}

func (e *InvalidLabelError) Error() string {
	return "invalid label: " + e.Reason
}

// ValidateLabel trims surrounding whitespace and checks the label
// constraints: non-empty, at most MaxLabelRunes runes, no control
// characters. It returns the trimmed label.
func ValidateLabel(label string) (string, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", &InvalidLabelError{Reason: "label cannot be empty"}
	}
	if len([]rune(trimmed)) > MaxLabelRunes {
		return "", &InvalidLabelError{
			Reason: fmt.Sprintf("label must be %d characters or fewer", MaxLabelRunes),
		}
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", &InvalidLabelError{Reason: "label cannot contain control characters"}
		}
	}
	return trimmed, nil
}

// ValidateDuration checks the requested duration in minutes and converts
// it to seconds.
func ValidateDuration(minutes int) (int64, error) {
	if minutes < MinDurationMins || minutes > MaxDurationMins {
		return 0, ErrInvalidDuration
	}
	return int64(minutes) * 60, nil
}
