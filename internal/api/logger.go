package api

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// OtelHandler tags every record with the service name and, when the context
// carries a valid span, its trace and span ids.
type OtelHandler struct {
	next slog.Handler
}

func NewOtelHandler(next slog.Handler, serviceName string) *OtelHandler {
	if serviceName != "" {
		next = next.WithAttrs([]slog.Attr{slog.String("service", serviceName)})
	}
	return &OtelHandler{next: next}
}

func (h *OtelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *OtelHandler) Handle(ctx context.Context, r slog.Record) error {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h *OtelHandler) WithGroup(name string) slog.Handler {
	return &OtelHandler{next: h.next.WithGroup(name)}
}

func (h *OtelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &OtelHandler{next: h.next.WithAttrs(attrs)}
}

func newLogger(w io.Writer, serviceName string, level slog.Level) *slog.Logger {
	return slog.New(NewOtelHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), serviceName))
}

func SetupGlobalHandler(serviceName string, level slog.Level) {
	slog.SetDefault(newLogger(os.Stdout, serviceName, level))
	slog.Info("Logger initialized", slog.String("level", level.String()))
}
