package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogOptions — параметры логгера сервиса.
type LogOptions struct {
	Level  slog.Level
	Format string // "json" (default) или "text"
}

// LogOptionsFromEnv читает LOG_LEVEL и LOG_FORMAT.
func LogOptionsFromEnv() LogOptions {
	return LogOptions{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		Format: strings.ToLower(os.Getenv("LOG_FORMAT")),
	}
}

// ParseLevel понимает имена slog ("debug", "WARN", "info+2").
// Пустое или нераспознанное значение — INFO.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// SetupLogger создаёт логгер в stdout по LOG_LEVEL/LOG_FORMAT
// и делает его глобальным.
func SetupLogger() *slog.Logger {
	logger := NewLogger(os.Stdout, LogOptionsFromEnv())
	slog.SetDefault(logger)
	return logger
}

// NewLogger создаёт логгер, не трогая глобальный. На уровне DEBUG
// в записи добавляется источник.
func NewLogger(w io.Writer, opts LogOptions) *slog.Logger {
	ho := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.Level <= slog.LevelDebug,
	}

	if opts.Format == "text" {
		return slog.New(slog.NewTextHandler(w, ho))
	}
	return slog.New(slog.NewJSONHandler(w, ho))
}

type loggerKey struct{}

// WithLogger кладёт логгер в контекст запуска.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext достаёт логгер из контекста или возвращает slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// ForRun добавляет к логгеру идентификаторы запуска.
func ForRun(logger *slog.Logger, runID, featureID string) *slog.Logger {
	return logger.With("run_id", runID, "feature_id", featureID)
}
