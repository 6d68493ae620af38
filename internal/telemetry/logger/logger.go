package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// Format is json or text. Empty means json.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
	// AddSource adds the calling file and line to every record.
	AddSource bool
	// Service, when set, is attached to every record as "service".
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// levels maps accepted level names to slog levels.
var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// levelNames holds the canonical name of each level.
var levelNames = map[slog.Level]string{
	slog.LevelDebug: "debug",
	slog.LevelInfo:  "info",
	slog.LevelWarn:  "warn",
	slog.LevelError: "error",
}

// level is shared by every logger built with New, so SetLevel applies to
// all of them at once.
var level = new(slog.LevelVar)

type slogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

// New builds a logger writing to cfg.Output. It fails on an unknown level
// or format.
func New(cfg Config) (Logger, error) {
	lvl := slog.LevelInfo
	if cfg.Level != "" {
		var ok bool
		if lvl, ok = levels[strings.ToLower(cfg.Level)]; !ok {
			return nil, fmt.Errorf("logger: unknown level %q", cfg.Level)
		}
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(out, opts)
	case "text", "console":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	sl := slog.New(h)
	if cfg.Service != "" {
		sl = sl.With("service", cfg.Service)
	}
	level.Set(lvl)
	return &slogLogger{logger: sl, ctx: context.Background()}, nil
}

// ForSession scopes l to one client connection.
func ForSession(l Logger, sessionID, remote string) Logger {
	return l.With("session", sessionID, "remote", remote)
}

// SetLevel changes the level of every logger. Unknown names fall back to
// info.
func SetLevel(name string) {
	lvl, ok := levels[strings.ToLower(name)]
	if !ok {
		lvl = slog.LevelInfo
	}
	level.Set(lvl)
}

// GetLevel returns the canonical name of the current level.
func GetLevel() string {
	if name, ok := levelNames[level.Level()]; ok {
		return name
	}
	return "info"
}

// ValidLevel reports whether name is an accepted level.
func ValidLevel(name string) bool {
	_, ok := levels[strings.ToLower(name)]
	return ok
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.DebugContext(l.ctx, msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.InfoContext(l.ctx, msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.WarnContext(l.ctx, msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.ErrorContext(l.ctx, msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...), ctx: l.ctx}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{logger: l.logger, ctx: ctx}
}

var std atomic.Pointer[slogLogger]

func init() {
	l, _ := New(DefaultConfig())
	std.Store(l.(*slogLogger))
}

// SetDefault replaces the process logger. Loggers not built by New are
// ignored.
func SetDefault(l Logger) {
	if sl, ok := l.(*slogLogger); ok {
		std.Store(sl)
	}
}

// Default returns the process logger.
func Default() Logger { return std.Load() }

// Debug logs through the process logger.
func Debug(msg string, args ...any) { std.Load().Debug(msg, args...) }

// Info logs through the process logger.
func Info(msg string, args ...any) { std.Load().Info(msg, args...) }

// Warn logs through the process logger.
func Warn(msg string, args ...any) { std.Load().Warn(msg, args...) }

// Error logs through the process logger.
func Error(msg string, args ...any) { std.Load().Error(msg, args...) }
