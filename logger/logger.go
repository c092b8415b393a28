// Package logger wraps log/slog with Arboric's console/file sink
// configuration (spec §6's arboric.log block), following the same
// package-level *slog.Logger shape the teacher's logger package uses.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/arboric-proxy/arboric/config"
)

// Log is the global logger instance.
var Log *slog.Logger

// Init initializes Log with no sinks configured beyond a plain stderr
// console handler at info level — used when no config has been loaded yet
// (e.g. before config.LoadYAML runs).
func Init() {
	Log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// InitFromConfig initializes Log from the arboric.log YAML block: a
// console sink and/or a file sink, each with its own level. ARBORIC_LOG
// (spec §6), when set, overrides the console level.
func InitFromConfig(cfg config.LogConfig) error {
	var handlers []slog.Handler

	consoleLevel := slog.LevelInfo
	if cfg.Console != nil {
		consoleLevel = parseLevel(cfg.Console.Level)
	}
	if override, ok := os.LookupEnv("ARBORIC_LOG"); ok {
		consoleLevel = parseLevel(override)
	}
	handlers = append(handlers, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: consoleLevel}))

	if cfg.File != nil {
		f, err := os.OpenFile(cfg.File.Location, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: parseLevel(cfg.File.Level)}))
	}

	Log = slog.New(fanOutHandler{handlers: handlers})
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanOutHandler fans a single Record out to every configured sink. Each
// sink's own level filters independently via Handler.Enabled.
type fanOutHandler struct {
	handlers []slog.Handler
}

func (f fanOutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanOutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f fanOutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return fanOutHandler{handlers: next}
}

func (f fanOutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return fanOutHandler{handlers: next}
}
