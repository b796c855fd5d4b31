// Package obs wires structured logging for the host process. All of it
// goes to stderr: stdout is the native-messaging wire and must never carry
// anything but length-prefixed JSON (spec §4.A).
package obs

import (
	"log/slog"
	"os"
)

// New builds the process logger. verbose lowers the level to Debug;
// otherwise only Info and above are emitted.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
