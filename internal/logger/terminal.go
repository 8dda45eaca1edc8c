package logger

import (
	"os"

	"golang.org/x/term"
)

// isTerminal reports whether f is attached to a terminal. NO_COLOR disables
// color regardless.
func isTerminal(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
