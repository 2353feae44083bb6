package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/goliatone/go-guard"
	"github.com/goliatone/go-guard/activitymap"
)

// slogLogger backs guard.Logger with log/slog
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Debug(format string, args ...any) {
	s.l.Debug(fmt.Sprintf(format, args...))
}

func (s slogLogger) Info(format string, args ...any) {
	s.l.Info(fmt.Sprintf(format, args...))
}

func (s slogLogger) Error(format string, args ...any) {
	s.l.Error(fmt.Sprintf(format, args...))
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// eventLogger records guard events as structured debug lines
func eventLogger(l *slog.Logger) guard.EventSink {
	return guard.EventSinkFunc(func(ctx context.Context, e guard.Event) error {
		record := activitymap.Normalize(e, activitymap.WithActorFallback("guardd"))
		l.DebugContext(ctx, record.Verb, record.Attrs()...)
		return nil
	})
}
