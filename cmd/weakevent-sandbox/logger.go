package main

import (
	"context"
	"io"

	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-weakevent"
)

type glogLogger struct {
	logger glog.Logger
}

// newLogger builds the sandbox logger: go-logger JSON output, or the
// weakevent text logger for format "text".
func newLogger(out io.Writer, format, level string) (weakevent.Logger, error) {
	if format == "text" {
		minLevel, err := weakevent.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		return weakevent.NewTextLogger(out, minLevel), nil
	}
	return glogLogger{logger: glog.NewLogger(
		glog.WithWriter(out),
		glog.WithLoggerTypeJSON(),
		glog.WithLevel(level),
	)}, nil
}

func (l glogLogger) Trace(msg string, args ...any) { l.logger.Trace(msg, args...) }
func (l glogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l glogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l glogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l glogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l glogLogger) Fatal(msg string, args ...any) { l.logger.Fatal(msg, args...) }

func (l glogLogger) WithContext(ctx context.Context) weakevent.Logger {
	return glogLogger{logger: l.logger.WithContext(ctx)}
}

func (l glogLogger) WithFields(fields map[string]any) weakevent.Logger {
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return glogLogger{logger: fl.WithFields(fields)}
	}
	return l
}

// cronLogger adapts a weakevent.Logger to robfig/cron's logger
type cronLogger struct {
	logger weakevent.Logger
}

func (l cronLogger) Info(msg string, args ...any) {
	l.logger.Debug("cron: %s %v", msg, args)
}

func (l cronLogger) Error(err error, msg string, args ...any) {
	l.logger.Error("cron: %s: %v %v", msg, err, args)
}
