// Package logging wraps logr.Logger the way rstms-iso-kit's pkg/logging
// does, minimizing the logr surface the rest of this repo has to know
// about while keeping a pluggable sink.
package logging

import "github.com/go-logr/logr"

const (
	LevelInfo  = 0
	LevelDebug = 1
	LevelTrace = 2
)

// Logger wraps a logr.Logger with the three verbosity tiers the walker
// and rewriter checkpoints use.
type Logger struct {
	log logr.Logger
}

// New wraps an existing logr.Logger.
func New(log logr.Logger) *Logger {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Logger{log: log}
}

// Discard returns a Logger that drops everything, used as a safe default
// when callers construct a component without wiring a real sink.
func Discard() *Logger {
	return &Logger{log: logr.Discard()}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.V(LevelDebug).Info(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}

func (l *Logger) Trace(msg string, keysAndValues ...interface{}) {
	l.log.V(LevelTrace).Info(msg, keysAndValues...)
}

func (l *Logger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(err, msg, keysAndValues...)
}

// WithName returns a Logger scoped under name (e.g. "walker", "rewriter").
func (l *Logger) WithName(name string) *Logger {
	return &Logger{log: l.log.WithName(name)}
}
