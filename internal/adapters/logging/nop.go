package logging

import "github.com/felixgeelhaar/rigup/internal/ports"

// NopLogger discards all log messages. Useful in tests.
type NopLogger struct{}

// NewNopLogger creates a logger that does nothing.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

// Debug discards the message.
func (l *NopLogger) Debug(string, ...ports.Field) {}

// Info discards the message.
func (l *NopLogger) Info(string, ...ports.Field) {}

// Warn discards the message.
func (l *NopLogger) Warn(string, ...ports.Field) {}

// Error discards the message.
func (l *NopLogger) Error(string, ...ports.Field) {}

// With returns the logger unchanged.
func (l *NopLogger) With(...ports.Field) ports.Logger { return l }

// Ensure NopLogger implements ports.Logger.
var _ ports.Logger = (*NopLogger)(nil)
