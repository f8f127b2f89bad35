// Package obs sets up the engine's structured logger and the per-component
// scoping convention used throughout the codebase. Grounded on
// cmd/semstreams/logging.go's level/format parsing, generalized into a
// reusable constructor and a With-style scoping helper.
package obs

import (
	"log/slog"
	"os"
	"strings"
)

const ServiceName = "gaussd"

// Config controls logger construction. Level is one of
// debug/info/warn/error; Format is json or text.
type Config struct {
	Level  string
	Format string
}

// NewLogger builds the root *slog.Logger for the process, tagged with
// service name, version, and pid the way the platform's CLI does.
func NewLogger(cfg Config, version string) *slog.Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"service", ServiceName,
		"version", version,
		"pid", os.Getpid(),
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a logger scoped to a named plugin instance or runtime
// component, the convention every processor/storage/supervisor call site
// uses instead of threading raw slog.Logger construction through itself.
func Component(base *slog.Logger, kind, name string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("component_kind", kind, "component_name", name)
}
