// Package logging provides structured logging for the s5bridge CLI.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for the optional log file. One megabyte with a single
// backup keeps long-running sessions bounded.
const (
	fileMaxSizeMB  = 1
	fileMaxBackups = 1
	timeFormat     = "15:04:05"
)

// Logger wraps zerolog with an optional rotating file tee.
type Logger struct {
	mu      sync.Mutex
	zlog    zerolog.Logger
	console io.Writer
	file    *lumberjack.Logger
}

// NewLogger creates a logger writing human-readable lines to out. When
// logFile is non-empty every entry is also written as JSON to a rotating
// file at that path.
func NewLogger(out io.Writer, logFile string) *Logger {
	l := &Logger{
		console: zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: timeFormat,
		},
	}
	if logFile != "" {
		l.file = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
		}
	}
	l.rebuild()
	return l
}

// NewDefaultCLILogger creates a console-only logger on stdout
// (stderr is reserved for progress bars).
func NewDefaultCLILogger() *Logger {
	return NewLogger(os.Stdout, "")
}

// Nop returns a logger that discards everything. Used by tests and by
// components constructed without a logger.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop(), console: io.Discard}
}

func (l *Logger) rebuild() {
	var w io.Writer = l.console
	if l.file != nil {
		w = zerolog.MultiLevelWriter(l.console, l.file)
	}
	l.zlog = zerolog.New(w).With().Timestamp().Logger()
}

// NewSession writes the marker that separates runs in the log file.
func (l *Logger) NewSession() {
	l.zlog.Info().Msg("New session")
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Fatal returns a fatal level event.
func (l *Logger) Fatal() *zerolog.Event {
	return l.zlog.Fatal()
}

// With creates a child logger context.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// SetOutput redirects console output, e.g. through a progress bar.
// The file tee is unaffected.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: timeFormat,
	}
	l.rebuild()
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Debugf logs a debug message with printf-style formatting.
// This is only shown when debug/verbose mode is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Errorf logs an error message with printf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: timeFormat,
	})
}
