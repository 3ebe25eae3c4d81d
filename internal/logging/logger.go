// Package logging wraps log/slog with the attribute keys used across canvas.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// Options configures a logger.
type Options struct {
	// Level is the minimum level written. The zero value is LevelInfo.
	Level slog.Level
	// Output defaults to os.Stderr.
	Output io.Writer
	// JSON switches from the text handler to the JSON handler.
	JSON      bool
	AddSource bool
}

// DefaultOptions returns info-level text output on stderr.
func DefaultOptions() Options {
	return Options{Level: LevelInfo, Output: os.Stderr}
}

// LevelFor maps the --verbose and --debug flags to a level. Without either
// flag only warnings and errors are written, so normal command output stays
// readable.
func LevelFor(verbose, debug bool) slog.Level {
	switch {
	case debug:
		return LevelDebug
	case verbose:
		return LevelInfo
	default:
		return LevelWarn
	}
}

// New creates a logger from opts.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(out, ho))
	}
	return slog.New(slog.NewTextHandler(out, ho))
}

// Default returns the process logger, creating a default one on first use.
func Default() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = New(DefaultOptions())
	}
	return logger
}

// SetDefault replaces the process logger and slog's default.
func SetDefault(l *slog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
	slog.SetDefault(l)
}

// With returns the default logger with args attached.
func With(args ...any) *slog.Logger {
	return Default().With(args...)
}

type loggerKey struct{}

// NewContext attaches l to ctx.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger attached to ctx, or nil.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return nil
}

// WithContext returns the logger attached to ctx, falling back to the default.
func WithContext(ctx context.Context) *slog.Logger {
	if l := FromContext(ctx); l != nil {
		return l
	}
	return Default()
}

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// Attribute keys.
const (
	KeyRunID     = "run_id"
	KeyCourse    = "course"
	KeyKind      = "kind"
	KeyCanvasID  = "canvas_id"
	KeyPath      = "path"
	KeyOperation = "operation"
	KeyCount     = "count"
	KeyError     = "error"
	KeyStatus    = "status"
	KeyDuration  = "duration"
)

func RunID(id string) slog.Attr { return slog.String(KeyRunID, id) }

func Course(id int64) slog.Attr { return slog.Int64(KeyCourse, id) }

func Kind(kind string) slog.Attr { return slog.String(KeyKind, kind) }

// CanvasID logs a remote id. A nil id is logged as "new".
func CanvasID(id *int64) slog.Attr {
	if id == nil {
		return slog.String(KeyCanvasID, "new")
	}
	return slog.Int64(KeyCanvasID, *id)
}

func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }

// Status logs an HTTP status code.
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }

// Err returns an empty attribute for a nil error, which slog drops.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(KeyError, err)
}
