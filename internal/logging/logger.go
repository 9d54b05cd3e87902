// Package logging builds the structured logger every component receives.
// By default it appends to .cellsim/logs/cellsim.log so users can inspect a
// run after the console output has scrolled away.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options selects level, format and destination.
type Options struct {
	Level  string
	Format string
	// Output is "stdout", "stderr" or a file path.
	Output string
}

// New creates a configured *slog.Logger. The returned closer should be
// deferred to release file handles.
func New(opts Options) (*slog.Logger, func() error, error) {
	writer, closer, err := openOutput(opts.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open log output: %w", err)
	}
	return slog.New(newHandler(writer, opts)), closer, nil
}

// NewWriter builds a logger over an existing writer.
func NewWriter(w io.Writer, opts Options) *slog.Logger {
	return slog.New(newHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	switch strings.ToLower(opts.Format) {
	case "json":
		return slog.NewJSONHandler(w, handlerOpts)
	default:
		return slog.NewTextHandler(w, handlerOpts)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(output)) {
	case "stdout":
		return os.Stdout, noop, nil
	case "stderr", "":
		return os.Stderr, noop, nil
	default:
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return nil, nil, fmt.Errorf("ensure log dir: %w", err)
		}
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}
