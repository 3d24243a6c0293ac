// Package logging builds the zerolog logger shared by every ctrack surface.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w. format "json" emits one JSON object per
// line; anything else uses the human-readable console writer.
// Unknown levels fall back to info.
func New(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if !strings.EqualFold(format, "json") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything. Used by tests and library callers.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// OpenFile returns a JSON logger appending to dir/logs/ctrack-YYYY-MM-DD.log,
// for sessions where stderr belongs to the terminal UI. The returned func
// closes the file.
func OpenFile(dir, level string) (zerolog.Logger, func() error, error) {
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(logDir, fmt.Sprintf("ctrack-%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	return New(f, level, "json"), f.Close, nil
}
