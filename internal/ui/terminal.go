package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether CLI output on stdout should carry ANSI
// colors. POMOD_COLOR=always|never wins outright; otherwise the NO_COLOR and
// CLICOLOR conventions apply, falling back to TTY detection.
func ShouldUseColor() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("POMOD_COLOR"))) {
	case "always", "1", "true":
		return true
	case "never", "0", "false":
		return false
	}
	// https://no-color.org — any non-empty value disables color.
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
