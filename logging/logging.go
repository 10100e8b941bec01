// Package logging builds the process logger. Diagnostics go to stderr or
// journald; user-facing output never passes through here.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"

	"github.com/abihf/facelog/config"
)

// New returns a logger at conf.LogLevel. When conf.Journal is set and
// journald is reachable records are sent there instead of w.
func New(conf *config.Config, w io.Writer) *slog.Logger {
	level := ParseLevel(conf.LogLevel)
	if conf.Journal && journal.Enabled() {
		return slog.New(NewJournalHandler(level))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is warn.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
