package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel orders log severities from debug up to error.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

// ParseLogLevel maps a level name to its LogLevel. Unknown names fall
// back to info.
func ParseLogLevel(s string) LogLevel {
	for i, name := range levelNames {
		if name == s {
			return LogLevel(i)
		}
	}
	return LevelInfo
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "info"
	}
	return levelNames[l]
}

// jsonLogger writes one JSON object per record. Child loggers returned by
// WithCache share the writer and its mutex with the parent.
type jsonLogger struct {
	level LogLevel
	out   io.Writer
	mu    *sync.Mutex
	bound []Field
}

// NewLogger returns a JSON line logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter returns a JSON line logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &jsonLogger{
		level: ParseLogLevel(level),
		out:   w,
		mu:    &sync.Mutex{},
	}
}

// WithCache returns a child logger that stamps every record with the
// cache identity and, when set, the operation and display name.
func (l *jsonLogger) WithCache(meta CacheMeta) Logger {
	bound := append([]Field(nil), l.bound...)
	bound = append(bound, Field{Key: "cache.identity", Value: meta.Identity})
	if meta.Operation != "" {
		bound = append(bound, Field{Key: "cache.operation", Value: meta.Operation})
	}
	if meta.DisplayName != "" && meta.DisplayName != meta.Identity {
		bound = append(bound, Field{Key: "cache.display_name", Value: meta.DisplayName})
	}
	return &jsonLogger{level: l.level, out: l.out, mu: l.mu, bound: bound}
}

func (l *jsonLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.emit(LevelDebug, msg, fields)
}

func (l *jsonLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.emit(LevelInfo, msg, fields)
}

func (l *jsonLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.emit(LevelWarn, msg, fields)
}

func (l *jsonLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.emit(LevelError, msg, fields)
}

func (l *jsonLogger) emit(level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.bound)+len(fields)+3)
	for _, f := range l.bound {
		entry[f.Key] = f.Value
	}
	for _, f := range fields {
		entry[f.Key] = f.Value
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	l.out.Write(line)
	l.mu.Unlock()
}

var _ Logger = (*jsonLogger)(nil)
