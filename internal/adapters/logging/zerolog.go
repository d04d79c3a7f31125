// Package logging provides ports.Logger adapters.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/rigup/internal/ports"
)

// ZerologLogger implements ports.Logger on rs/zerolog with dual output:
// human-readable console lines on stderr plus a JSON log file when a path
// is configured.
type ZerologLogger struct {
	logger zerolog.Logger
}

// Options configures the zerolog adapter.
type Options struct {
	Level   ports.Level
	Console io.Writer // defaults to os.Stderr
	LogFile string    // empty disables file output
	NoColor bool
}

// New creates a ZerologLogger. When opts.LogFile cannot be opened, console
// logging still works and the failure is reported on the returned logger.
func New(opts Options) *ZerologLogger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.Kitchen,
		NoColor:    opts.NoColor,
	}}

	var fileErr error
	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
			fileErr = err
		} else if f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			fileErr = err
		} else {
			writers = append(writers, f)
		}
	}

	zl := zerolog.New(io.MultiWriter(writers...)).
		Level(zerologLevel(opts.Level)).
		With().Timestamp().Logger()

	l := &ZerologLogger{logger: zl}
	if fileErr != nil {
		l.Warn("log file unavailable, console only",
			ports.F("path", opts.LogFile), ports.F("error", fileErr.Error()))
	}
	return l
}

func zerologLevel(level ports.Level) zerolog.Level {
	switch level {
	case ports.LevelDebug:
		return zerolog.DebugLevel
	case ports.LevelInfo:
		return zerolog.InfoLevel
	case ports.LevelWarn:
		return zerolog.WarnLevel
	case ports.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs a debug message.
func (l *ZerologLogger) Debug(msg string, fields ...ports.Field) {
	l.emit(l.logger.Debug(), msg, fields)
}

// Info logs an informational message.
func (l *ZerologLogger) Info(msg string, fields ...ports.Field) {
	l.emit(l.logger.Info(), msg, fields)
}

// Warn logs a warning message.
func (l *ZerologLogger) Warn(msg string, fields ...ports.Field) {
	l.emit(l.logger.Warn(), msg, fields)
}

// Error logs an error message.
func (l *ZerologLogger) Error(msg string, fields ...ports.Field) {
	l.emit(l.logger.Error(), msg, fields)
}

// With returns a new Logger with the given fields added to every entry.
func (l *ZerologLogger) With(fields ...ports.Field) ports.Logger {
	ctx := l.logger.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &ZerologLogger{logger: ctx.Logger()}
}

func (l *ZerologLogger) emit(ev *zerolog.Event, msg string, fields []ports.Field) {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

// Ensure ZerologLogger implements ports.Logger.
var _ ports.Logger = (*ZerologLogger)(nil)
