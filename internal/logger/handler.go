package logger

import (
	"context"
	"log/slog"

	"iglivez/worker/internal/middleware"
)

// ContextHandler decorates a slog.Handler with the correlation ID carried in
// the context. The worker loop stamps a fresh ID into the context for every
// claimed job, so all records emitted while handling that job share it.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// Handle appends correlation_id when the context carries one.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
