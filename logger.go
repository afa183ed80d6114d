package weakevent

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// Logger is the logging contract used by the manager. Messages are printf
// style.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// FieldsLogger is implemented by loggers that carry structured fields.
// Subscriptions tag their logger with subscription_id, slot and target.
type FieldsLogger interface {
	WithFields(map[string]any) Logger
}

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = []string{"trace", "debug", "info", "warn", "error", "fatal"}

func (l Level) String() string {
	if l < LevelTrace || l > LevelFatal {
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// ParseLevel accepts the level names used by go-logger.
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelInfo, errors.New(fmt.Sprintf("unknown log level %q", name), errors.CategoryBadInput).
		WithTextCode("INVALID_LOG_LEVEL").
		WithMetadata(map[string]any{"level": name})
}

// TextLogger writes one logfmt line per message and drops messages below its
// minimum level. Copies made by WithFields and WithContext share the writer.
type TextLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	min    Level
	fields map[string]any
	now    func() time.Time
}

// NewTextLogger writes to out, or stderr when out is nil.
func NewTextLogger(out io.Writer, minLevel Level) *TextLogger {
	if out == nil {
		out = os.Stderr
	}
	return &TextLogger{mu: &sync.Mutex{}, out: out, min: minLevel, now: time.Now}
}

func (l *TextLogger) Trace(msg string, args ...any) { l.write(LevelTrace, msg, args) }
func (l *TextLogger) Debug(msg string, args ...any) { l.write(LevelDebug, msg, args) }
func (l *TextLogger) Info(msg string, args ...any)  { l.write(LevelInfo, msg, args) }
func (l *TextLogger) Warn(msg string, args ...any)  { l.write(LevelWarn, msg, args) }
func (l *TextLogger) Error(msg string, args ...any) { l.write(LevelError, msg, args) }
func (l *TextLogger) Fatal(msg string, args ...any) { l.write(LevelFatal, msg, args) }

// WithContext returns l; context values are not rendered.
func (l *TextLogger) WithContext(context.Context) Logger { return l }

func (l *TextLogger) WithFields(fields map[string]any) Logger {
	cp := *l
	cp.fields = mergeFields(l.fields, fields)
	return &cp
}

// Enabled reports whether messages at level are written.
func (l *TextLogger) Enabled(level Level) bool {
	return level >= l.min
}

func (l *TextLogger) write(level Level, msg string, args []any) {
	if !l.Enabled(level) {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var b strings.Builder
	b.WriteString("time=")
	b.WriteString(l.now().UTC().Format(time.RFC3339))
	b.WriteString(" level=")
	b.WriteString(level.String())
	b.WriteString(" msg=")
	b.WriteString(strconv.Quote(strings.TrimSpace(msg)))
	appendFields(&b, l.fields)
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

type nopLogger struct{}

func (nopLogger) Trace(string, ...any)                 {}
func (nopLogger) Debug(string, ...any)                 {}
func (nopLogger) Info(string, ...any)                  {}
func (nopLogger) Warn(string, ...any)                  {}
func (nopLogger) Error(string, ...any)                 {}
func (nopLogger) Fatal(string, ...any)                 {}
func (n nopLogger) WithContext(context.Context) Logger { return n }

// NopLogger discards everything. It is the manager default.
func NopLogger() Logger { return nopLogger{} }

func normalizeLogger(logger Logger) Logger {
	if logger == nil {
		return nopLogger{}
	}
	return logger
}

func withLoggerFields(logger Logger, fields map[string]any) Logger {
	if fl, ok := logger.(FieldsLogger); ok {
		return fl.WithFields(fields)
	}
	return normalizeLogger(logger)
}

func mergeFields(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// appendFields renders fields sorted by key, quoting values with spaces.
func appendFields(b *strings.Builder, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fmt.Sprint(fields[k])
		if v == "" || strings.ContainsAny(v, " \t\"=") {
			v = strconv.Quote(v)
		}
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
}
