package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger — общий интерфейс логирования для всех слоёв приложения.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(err error, format string, args ...any)
	With(args ...any) Logger
}

// SlogLogger реализует Logger поверх log/slog.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger создаёт JSON-логгер в stdout, уровень берётся из LOG_LEVEL.
func NewSlogLogger() *SlogLogger {
	return NewSlogLoggerWithWriter(os.Stdout, parseLevel(os.Getenv("LOG_LEVEL")))
}

func NewSlogLoggerWithWriter(w io.Writer, level slog.Level) *SlogLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &SlogLogger{log: slog.New(handler)}
}

// NewNopLogger возвращает логгер, который ничего не пишет. Используется в тестах.
func NewNopLogger() *SlogLogger {
	return NewSlogLoggerWithWriter(io.Discard, slog.LevelError+1)
}

func (l *SlogLogger) Debugf(format string, args ...any) {
	l.logf(slog.LevelDebug, nil, format, args...)
}

func (l *SlogLogger) Infof(format string, args ...any) {
	l.logf(slog.LevelInfo, nil, format, args...)
}

func (l *SlogLogger) Warnf(format string, args ...any) {
	l.logf(slog.LevelWarn, nil, format, args...)
}

func (l *SlogLogger) Errorf(err error, format string, args ...any) {
	l.logf(slog.LevelError, err, format, args...)
}

// With возвращает логгер с дополнительными атрибутами (например, request_id).
func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{log: l.log.With(args...)}
}

func (l *SlogLogger) logf(level slog.Level, err error, format string, args ...any) {
	ctx := context.Background()
	if !l.log.Enabled(ctx, level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if err != nil {
		l.log.Log(ctx, level, msg, slog.String("error", err.Error()))
		return
	}

	l.log.Log(ctx, level, msg)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
