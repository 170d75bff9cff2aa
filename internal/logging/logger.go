package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides structured logging for the pipeline. It is passed explicitly to each
// stage; there is no package-level logger.
type Logger struct {
	prefix string
	level  Level
	fields []interface{}
	logger *log.Logger
}

// NewLogger creates a new logger with a prefix writing to stdout at info level
func NewLogger(prefix string) *Logger {
	return NewLoggerTo(os.Stdout, prefix, LevelInfo)
}

// NewLoggerTo creates a logger writing to w.
func NewLoggerTo(w io.Writer, prefix string, level Level) *Logger {
	return &Logger{
		prefix: prefix,
		level:  level,
		logger: log.New(w, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewLoggerTo(io.Discard, "nop", LevelError+1)
}

// With returns a child logger that appends keysAndValues to every line.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	fields := make([]interface{}, 0, len(l.fields)+len(keysAndValues))
	fields = append(fields, l.fields...)
	fields = append(fields, keysAndValues...)
	return &Logger{
		prefix: l.prefix,
		level:  l.level,
		fields: fields,
		logger: l.logger,
	}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelInfo, "INFO", msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelWarn, "WARN", msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelError, "ERROR", msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelDebug, "DEBUG", msg, keysAndValues...)
}

func (l *Logger) logWithKV(level Level, tag, msg string, keysAndValues ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	var kv strings.Builder
	writeKV(&kv, l.fields)
	writeKV(&kv, keysAndValues)
	l.logger.Printf("[%s] %s%s", tag, msg, kv.String())
}

func writeKV(b *strings.Builder, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
}

// AsynqLogger adapts Logger to the asynq.Logger interface.
type AsynqLogger struct {
	L *Logger
}

func (a AsynqLogger) Debug(args ...interface{}) { a.L.Debug(fmt.Sprint(args...)) }
func (a AsynqLogger) Info(args ...interface{})  { a.L.Info(fmt.Sprint(args...)) }
func (a AsynqLogger) Warn(args ...interface{})  { a.L.Warn(fmt.Sprint(args...)) }
func (a AsynqLogger) Error(args ...interface{}) { a.L.Error(fmt.Sprint(args...)) }

func (a AsynqLogger) Fatal(args ...interface{}) {
	a.L.Error(fmt.Sprint(args...))
	os.Exit(1)
}
