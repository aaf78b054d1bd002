package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type Config struct {
	Env              string
	Level            string
	AddSource        bool
	SourcePathLength int
	TimeFormat       string
	Output           io.Writer
}

// Logger is a wrapper around slog.Logger with additional methods
type Logger struct {
	*slog.Logger
}

func New(config Config) (*Logger, error) {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.TimeFormat == "" {
		config.TimeFormat = "15:04:05.000"
	}

	handler, err := createHandler(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create log handler: %w", err)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return &Logger{
		Logger: logger,
	}, nil
}

// With returns a Logger carrying the given attributes on every record
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component tags records with the subsystem that produced them
func (l *Logger) Component(name string) *slog.Logger {
	return l.Logger.With("component", name)
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
