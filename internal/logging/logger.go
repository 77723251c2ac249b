package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Fields carries structured key/value pairs attached to a log line.
type Fields map[string]interface{}

const levelFatal = slog.Level(12)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(newLogger(os.Getenv("LOG_LEVEL")))
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lv,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			if len(groups) == 0 && a.Key == slog.LevelKey {
				if lv, ok := a.Value.Any().(slog.Level); ok && lv == levelFatal {
					a.Value = slog.StringValue("fatal")
				} else {
					a.Value = slog.StringValue(strings.ToLower(a.Value.String()))
				}
			}
			return a
		},
	})
	return slog.New(h)
}

// SetLevel replaces the process logger with one filtering at level.
func SetLevel(level string) {
	logger.Store(newLogger(level))
}

func output(level slog.Level, msg string, fields Fields) {
	l := logger.Load()
	if !l.Enabled(context.Background(), level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.LogAttrs(context.Background(), level, msg, attrs...)
}

// Debug logs a diagnostic message; dropped unless LOG_LEVEL=debug.
func Debug(msg string, fields Fields) {
	output(slog.LevelDebug, msg, fields)
}

// Info logs an informational message with optional fields.
func Info(msg string, fields Fields) {
	output(slog.LevelInfo, msg, fields)
}

func Warn(msg string, fields Fields) {
	output(slog.LevelWarn, msg, fields)
}

// Error logs an error message and includes the error text in the fields.
func Error(msg string, err error, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	output(slog.LevelError, msg, fields)
}

// Fatal logs a fatal error and exits the process.
func Fatal(msg string, err error, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	output(levelFatal, msg, fields)
	os.Exit(1)
}
