package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

var (
	once sync.Once
	base *slog.Logger
)

// Init configures the global logger exactly once.
// An empty filePath logs to stdout only.
// Call this in main(): logging.Init("order-api", "./logs/app.log", "info")
func Init(component, filePath, level string) *slog.Logger {
	once.Do(func() {
		var w io.Writer = os.Stdout
		if filePath != "" {
			_ = os.MkdirAll(filepath.Dir(filePath), 0755)
			rot := &lumberjack.Logger{
				Filename:   filePath,
				MaxSize:    50, // MB
				MaxBackups: 3,
				MaxAge:     7, // days
				Compress:   false,
			}
			w = io.MultiWriter(os.Stdout, rot)
		}

		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
		base = slog.New(WithTrace(h)).With("component", component)
	})
	return base
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
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

// Base returns the global logger (Init if not already called).
func Base() *slog.Logger {
	return Init("app", "", "info")
}

// New returns a child logger derived from the global one.
// IMPORTANT: does NOT create a new handler/writer; it reuses the global handler.
func New(component string) *slog.Logger {
	return Base().With("component", component)
}

// WithCtx stores a logger in a standard context (useful outside Gin).
func WithCtx(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx fetches a logger from ctx or falls back to the global one.
func FromCtx(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Base()
}

// With stores the logger in gin.Context and in the request context, so
// use cases called with c.Request.Context() log with the same attributes.
func With(c *gin.Context, l *slog.Logger) {
	c.Set("logger", l)
	c.Request = c.Request.WithContext(WithCtx(c.Request.Context(), l))
}

// From returns the request-scoped logger from gin.Context, or the global one.
func From(c *gin.Context) *slog.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Base()
}

// WithTrace wraps h so every record carries the trace and span ids of the
// span active in its context.
func WithTrace(h slog.Handler) slog.Handler {
	return &traceHandler{Handler: h}
}

type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}
