package weakevent

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-logger/glog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type glogCompatLogger struct {
	logger glog.Logger
}

func (l glogCompatLogger) Trace(msg string, args ...any) { l.logger.Trace(msg, args...) }
func (l glogCompatLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l glogCompatLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l glogCompatLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l glogCompatLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l glogCompatLogger) Fatal(msg string, args ...any) { l.logger.Fatal(msg, args...) }

func (l glogCompatLogger) WithContext(ctx context.Context) Logger {
	if l.logger == nil {
		return NopLogger()
	}
	return glogCompatLogger{logger: l.logger.WithContext(ctx)}
}

func (l glogCompatLogger) WithFields(fields map[string]any) Logger {
	if l.logger == nil {
		return NopLogger()
	}
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return glogCompatLogger{logger: fl.WithFields(fields)}
	}
	return l
}

func TestManagerLogsSelfDetachThroughGlog(t *testing.T) {
	buf := &bytes.Buffer{}
	base := glog.NewLogger(
		glog.WithWriter(buf),
		glog.WithLoggerTypeJSON(),
		glog.WithLevel("trace"),
	)

	p := &publisher{}
	m := NewManager[ChangedHandler](
		WithRegistry(newTestRegistry(t)),
		WithLogger(glogCompatLogger{logger: base}),
		WithConfig(Config{TraceForwarding: true, LogSelfDetach: true}),
	)
	calls := &atomic.Int32{}

	subscribeTransient(t, m, p, calls)
	collect()
	p.raiseChanged(p, 2)

	require.Equal(t, int32(1), p.Changed.detaches.Load())

	logged := buf.String()
	assert.NotEmpty(t, strings.TrimSpace(logged))
	assert.Contains(t, logged, "subscription_id")
	assert.Contains(t, logged, "receiver collected")
	assert.Contains(t, logged, "forwarding broadcast")
}

func TestTextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTextLogger(buf, LevelInfo)
	logger.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }

	tagged := withLoggerFields(logger, map[string]any{"slot": "Changed"})
	tagged = withLoggerFields(tagged, map[string]any{"target": "a b"})

	tagged.Debug("dropped")
	tagged.Info("attached %d", 2)
	logger.Warn("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `time=2026-10-18T09:30:00Z level=info msg="attached 2" slot=Changed target="a b"`, lines[0])
	assert.Equal(t, `time=2026-10-18T09:30:00Z level=warn msg="plain"`, lines[1])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"trace":   LevelTrace,
		"DEBUG":   LevelDebug,
		" info ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
	assert.Equal(t, "INVALID_LOG_LEVEL", ErrorCode(err))
}

func TestManagerWithTextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &publisher{}
	m := NewManager[ChangedHandler](
		WithRegistry(newTestRegistry(t)),
		WithLogger(NewTextLogger(buf, LevelDebug)),
	)

	subscribeTransient(t, m, p, &atomic.Int32{})
	collect()
	p.raiseChanged(p, 2)

	out := buf.String()
	assert.Contains(t, out, `level=debug msg="receiver collected, detaching weak subscription"`)
	assert.Contains(t, out, "slot=Changed")
	assert.Contains(t, out, "subscription_id=")
}

func TestNilLoggerNormalizesToNop(t *testing.T) {
	m := NewManager[ChangedHandler](WithLogger(nil))
	_, ok := m.logger.(nopLogger)
	assert.True(t, ok)
	assert.NotNil(t, m.panicLogger)
}

func TestLoggerPanicLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := MakePanicHandler(LoggerPanicLogger(NewTextLogger(buf, LevelError)))

	func() {
		defer handler("subscriber", map[string]any{"slot": "Changed"})
		panic("boom")
	}()

	out := buf.String()
	assert.Contains(t, out, "recovered from panic in subscriber")
	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, "slot: Changed")
}
