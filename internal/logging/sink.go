package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
)

var (
	infoColor  = color.New(color.FgGreen).SprintFunc()
	debugColor = color.New(color.FgCyan).SprintFunc()
	traceColor = color.New(color.FgYellow).SprintFunc()
	errorColor = color.New(color.FgRed).SprintFunc()
)

// consoleSink implements logr.LogSink for human-readable, optionally
// colorized output to a writer (typically stderr, so stdout stays free
// for report/table output).
type consoleSink struct {
	writer       io.Writer
	minVerbosity int
	name         string
	mutex        *sync.Mutex
	useColor     bool
}

// NewConsoleLogger returns a logr.Logger writing to writer (os.Stderr if
// nil) at the given minimum verbosity (LevelInfo/LevelDebug/LevelTrace).
func NewConsoleLogger(writer io.Writer, minVerbosity int, useColor bool) logr.Logger {
	if writer == nil {
		writer = os.Stderr
	}
	sink := &consoleSink{
		writer:       writer,
		minVerbosity: minVerbosity,
		mutex:        &sync.Mutex{},
		useColor:     useColor,
	}
	return logr.New(sink)
}

func (s *consoleSink) Init(info logr.RuntimeInfo) {}

func (s *consoleSink) Enabled(level int) bool {
	return level <= s.minVerbosity
}

func (s *consoleSink) Info(level int, msg string, keysAndValues ...interface{}) {
	if !s.Enabled(level) {
		return
	}
	s.log(false, level, msg, keysAndValues...)
}

func (s *consoleSink) Error(err error, msg string, keysAndValues ...interface{}) {
	all := append(append([]interface{}{}, keysAndValues...), "error", err)
	s.log(true, 0, msg, all...)
}

func (s *consoleSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	return s
}

func (s *consoleSink) WithName(name string) logr.LogSink {
	newName := name
	if s.name != "" {
		newName = s.name + "." + name
	}
	return &consoleSink{writer: s.writer, minVerbosity: s.minVerbosity, mutex: s.mutex, useColor: s.useColor, name: newName}
}

func (s *consoleSink) V(level int) logr.LogSink {
	return s
}

func (s *consoleSink) log(isError bool, level int, msg string, keysAndValues ...interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var label string
	switch {
	case isError:
		label = s.colorize(errorColor, "[ERROR]")
	case level == LevelDebug:
		label = s.colorize(debugColor, "[DEBUG]")
	case level == LevelTrace:
		label = s.colorize(traceColor, "[TRACE]")
	default:
		label = s.colorize(infoColor, "[INFO]")
	}

	fullMsg := msg
	if s.name != "" {
		fullMsg = fmt.Sprintf("[%s] %s", s.name, msg)
	}
	fmt.Fprintf(s.writer, "%s %s\n", label, fullMsg)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("key%d", i/2)
		}
		fmt.Fprintf(s.writer, "  %s: %v\n", key, keysAndValues[i+1])
	}
}

func (s *consoleSink) colorize(f func(a ...interface{}) string, label string) string {
	if !s.useColor {
		return label
	}
	return f(label)
}
