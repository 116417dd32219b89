package logger

import (
	"context"
)

// Logger defines the interface for structured logging throughout the library.
// All log methods accept a message string followed by key-value pairs for structured fields.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs
	Debug(msg string, args ...any)

	// Info logs an info-level message with optional key-value pairs
	Info(msg string, args ...any)

	// Warn logs a warning-level message with optional key-value pairs
	Warn(msg string, args ...any)

	// Error logs an error-level message with optional key-value pairs
	Error(msg string, args ...any)

	// With creates a child logger with additional key-value pairs that will be
	// included in all subsequent log entries
	With(args ...any) Logger

	// WithContext creates a child logger carrying the trace ID found in ctx, if any
	WithContext(ctx context.Context) Logger
}

// NopLogger discards every log entry. It is the default when no logger is
// configured, which keeps the logging side channel strictly observational.
type NopLogger struct{}

// NewNop returns a logger that discards everything.
func NewNop() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}

func (*NopLogger) Info(string, ...any) {}

func (*NopLogger) Warn(string, ...any) {}

func (*NopLogger) Error(string, ...any) {}

func (l *NopLogger) With(...any) Logger { return l }

func (l *NopLogger) WithContext(context.Context) Logger { return l }
