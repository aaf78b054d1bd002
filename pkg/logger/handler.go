package logger

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

func createHandler(config Config) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(config.Env, config.Level),
		AddSource: config.AddSource,
	}

	switch strings.ToLower(config.Env) {
	case "prod":
		opts.ReplaceAttr = replaceAttr("", config.SourcePathLength)
		return slog.NewJSONHandler(config.Output, opts), nil

	case "dev", "test":
		opts.ReplaceAttr = replaceAttr(config.TimeFormat, config.SourcePathLength)
		return slog.NewTextHandler(config.Output, opts), nil

	default:
		return nil, fmt.Errorf("unknown environment: %s (use 'dev', 'prod', or 'test')", config.Env)
	}
}

func parseLogLevel(env, explicitLevel string) slog.Level {
	switch strings.ToLower(explicitLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	switch strings.ToLower(env) {
	case "dev":
		return slog.LevelDebug
	case "test":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// replaceAttr formats the time key (text output only) and shortens source paths.
// An empty timeFormat keeps the handler's own time encoding.
func replaceAttr(timeFormat string, pathLength int) func([]string, slog.Attr) slog.Attr {
	if timeFormat == "" && pathLength <= 0 {
		return nil
	}

	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}

		switch a.Key {
		case slog.TimeKey:
			if timeFormat == "" {
				break
			}
			if t, ok := a.Value.Any().(time.Time); ok {
				a.Value = slog.StringValue(t.Format(timeFormat))
			}

		case slog.SourceKey:
			if source, ok := a.Value.Any().(*slog.Source); ok && source != nil && pathLength > 0 {
				source.File = shortenPath(source.File, pathLength)
			}
		}
		return a
	}
}

// shortenPath keeps the last segments of a path
func shortenPath(path string, segments int) string {
	if segments <= 0 {
		return path
	}

	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= segments {
		return path
	}

	return strings.Join(parts[len(parts)-segments:], "/")
}
