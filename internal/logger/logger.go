// Package logger wraps logrus for structured, leveled logging.
package logger

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry so callers can accumulate fields.
type Logger struct {
	*logrus.Entry
}

// New creates a logger on the logrus standard logger.
func New() *Logger {
	return &Logger{Entry: logrus.NewEntry(logrus.StandardLogger())}
}

// NewWithOutput creates an isolated JSON logger writing to w at the given
// level. Unknown levels fall back to info.
func NewWithOutput(w io.Writer, level string) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetLevel(ParseLevel(level))
	return &Logger{Entry: logrus.NewEntry(base)}
}

// Discard returns a logger that drops everything. Useful as a default.
func Discard() *Logger {
	return NewWithOutput(io.Discard, "panic")
}

// Configure sets the standard logger level and format.
func Configure(level, format string) {
	logrus.SetLevel(ParseLevel(level))
	if strings.EqualFold(format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// WithField adds a field to the logger.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithFields adds multiple fields to the logger.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithError attaches an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

// WithPlan scopes the logger to a breeding plan.
func (l *Logger) WithPlan(planID string) *Logger {
	return l.WithField("plan_id", planID)
}
