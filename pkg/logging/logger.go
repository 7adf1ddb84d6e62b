// Package logging provides the engine's only I/O: leveled, structured
// logging of control-side advisory events (queue-full drops, invalid
// arguments, debug-assert failures). It is adapted from the teacher's
// pkg/framework/debug logger, trimmed to what a library needs: no file
// sink, no Fatal-panics (the engine never terminates the process from a
// logging call; see pkg/assert for that).
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log message.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Off
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a minimal leveled logger. Never called from Process; it exists
// purely for the control thread's advisory messages.
type Logger struct {
	mu     sync.Mutex
	output io.Writer
	level  Level
	prefix string
}

// New creates a logger writing to output, prefixed with prefix.
func New(output io.Writer, prefix string) *Logger {
	return &Logger{output: output, prefix: prefix, level: Info}
}

// SetLevel sets the minimum level that is written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000 "))
	sb.WriteString(fmt.Sprintf("[%s] ", level))
	if l.prefix != "" {
		sb.WriteString(fmt.Sprintf("[%s] ", l.prefix))
	}
	msg := fmt.Sprintf(format, args...)
	sb.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		sb.WriteString("\n")
	}
	l.output.Write([]byte(sb.String()))
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(Debug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(Info, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(Warn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(Error, format, args...) }

var defaultLogger = New(os.Stderr, "barelymusician")

// Default returns the package-level logger used when callers don't
// construct their own (e.g. Musician's advisory logging).
func Default() *Logger { return defaultLogger }

func SetLevel(level Level) { defaultLogger.SetLevel(level) }
func Debugf(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }
func Infof(format string, args ...interface{})  { defaultLogger.Info(format, args...) }
func Warnf(format string, args ...interface{})  { defaultLogger.Warn(format, args...) }
func Errorf(format string, args ...interface{}) { defaultLogger.Error(format, args...) }
