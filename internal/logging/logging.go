// Package logging provides structured logging using Go's slog package.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"mocap-fk/internal/skeleton"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	InitLogger(LevelInfo, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages, including per-joint traces.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatText outputs logs in human-readable text format.
	FormatText Format = iota
	// FormatJSON outputs logs in JSON format.
	FormatJSON
)

// ParseLevel maps debug, info, warn or error to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("logging: unknown level %q", s)
}

// ParseFormat maps text or json to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("logging: unknown format %q", s)
}

// InitLogger initializes the global logger, writing to stderr so that
// command output on stdout stays clean.
func InitLogger(level Level, format Format) {
	defaultLogger = New(os.Stderr, level, format)
	slog.SetDefault(defaultLogger)
}

// New builds a logger writing to w.
func New(w io.Writer, level Level, format Format) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Logger returns the global logger instance.
func Logger() *slog.Logger {
	return defaultLogger
}

// JointTrace returns a solver trace hook that logs every evaluated joint at
// debug level. A nil logger means the global one.
func JointTrace(logger *slog.Logger) skeleton.TraceFunc {
	if logger == nil {
		logger = defaultLogger
	}
	return func(j skeleton.JointState) {
		logger.Debug("joint",
			"name", j.Name,
			"index", j.Index,
			"parent", j.Parent,
			"x", j.Coordinate[0],
			"y", j.Coordinate[1],
			"z", j.Coordinate[2],
		)
	}
}

// FrameDone logs a completed frame with common fields.
func FrameDone(logger *slog.Logger, frame int, joints int, duration time.Duration, args ...any) {
	allArgs := []any{
		"frame", frame,
		"joints", joints,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	logger.Info("frame_done", allArgs...)
}
