package services

import (
	"context"
	"errors"
	"log/slog"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

// notifier publishes change events without failing the caller: the mutation
// has already committed when it runs.
type notifier struct {
	publisher EventPublisher
	logger    *log.Logger
}

func (n notifier) notify(ctx context.Context, entity core.Entity, action core.Action, id int64) {
	if n.publisher == nil {
		return
	}
	ev := core.NewChangeEvent(entity, action, id)
	if err := n.publisher.PublishChange(ctx, ev); err != nil {
		n.logger.LogFields(ctx, slog.LevelError, "Failed to publish change event", log.NewFields().
			WithOperation(log.OpPublish).
			With(log.FieldEntity, string(entity)).
			With(log.FieldAction, string(action)).
			With("id", id).
			WithError(err))
	}
}

// logList logs a listing at debug level, or its failure like logResult.
func logList(ctx context.Context, l *log.Logger, msg string, count int, err error) {
	f := log.NewFields().WithOperation(log.OpList)
	if err != nil {
		logResult(ctx, l, msg, f, err)
		return
	}
	l.LogFields(ctx, slog.LevelDebug, msg, f.With("count", count))
}

// logResult logs a finished operation: classified failures at warn, others at error.
func logResult(ctx context.Context, l *log.Logger, msg string, f log.Fields, err error) {
	if err == nil {
		l.LogFields(ctx, slog.LevelInfo, msg, f)
		return
	}
	level := slog.LevelError
	var de *core.Error
	if errors.As(err, &de) {
		level = slog.LevelWarn
		f = f.With(log.FieldErrorKind, de.Kind.String())
	}
	l.LogFields(ctx, level, msg+" failed", f.WithError(err))
}
