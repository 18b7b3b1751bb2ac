package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a component-tagged structured logger for the application
type Logger struct {
	*slog.Logger
	component string
}

// NewLogger creates a new logger writing text records to stdout
func NewLogger(component string, level slog.Level) *Logger {
	return NewLoggerWithWriter(os.Stdout, component, level)
}

// NewLoggerWithWriter creates a new logger writing text records to w
func NewLoggerWithWriter(w io.Writer, component string, level slog.Level) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger:    slog.New(handler).With("component", component),
		component: component,
	}
}

// NopLogger returns a logger that discards everything
func NopLogger() *Logger {
	return NewLoggerWithWriter(io.Discard, "nop", slog.LevelError+1)
}

// WithComponent returns a child logger tagged with another component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info
func ParseLevel(s string) slog.Level {
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

// Log field names shared across packages
const (
	FieldOperation = "operation"
	FieldError     = "error"
	FieldID        = "id"
	FieldRequestID = "request_id"
)
