// Package logger is the structured logger of the dashboard, a thin layer
// over zerolog that keeps credentials out of log lines.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey struct{}

// Redacted replaces the value of a sensitive field
const Redacted = "[REDACTED]"

// field names whose values are never written, matched case-insensitively
// as substrings
var sensitiveKeys = []string{"password", "token", "secret", "anon_key", "apikey", "api_key", "authorization"}

// Logger wraps zerolog logger
type Logger struct {
	logger zerolog.Logger
}

// Config contains logger configuration
type Config struct {
	Level      string
	Format     string // json or console
	OutputPath string // stdout, stderr or a file path
	Service    string // optional "service" field on every line
}

// New creates a new logger instance
func New(cfg Config) *Logger {
	output := openOutput(cfg.OutputPath)
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zctx := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp()
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	return &Logger{logger: zctx.Caller().Logger()}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// NewWriter returns a debug level JSON logger writing to w.
func NewWriter(w io.Writer) *Logger {
	return &Logger{logger: zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()}
}

func openOutput(path string) io.Writer {
	switch path {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return os.Stderr
	}
	return f
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Sensitive reports whether values under key are kept out of the log
func Sensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

func scrub(key string, value interface{}) interface{} {
	if Sensitive(key) {
		return Redacted
	}
	return value
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msgf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

// ErrorWithErr logs an error with error object
func (l *Logger) ErrorWithErr(err error, msg string) {
	l.logger.Error().Err(err).Msg(msg)
}

// WarnWithErr logs a warning with error object
func (l *Logger) WarnWithErr(err error, msg string) {
	l.logger.Warn().Err(err).Msg(msg)
}

// With returns a logger with an additional field
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, scrub(key, value)).Logger()}
}

// WithFields returns a logger with multiple fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, scrub(k, v))
	}
	return &Logger{logger: ctx.Logger()}
}

// IntoContext stores the logger in ctx.
func (l *Logger) IntoContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or fallback when there is none.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return fallback
}

// Init builds the process logger and routes zerolog's package logger, used
// by libraries, to it
func Init(cfg Config) *Logger {
	l := New(cfg)
	log.Logger = l.logger
	return l
}
