package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlog/internal/cache"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/sheets"
)

// ExpenseSource reads the current expense state the mirror copies.
type ExpenseSource interface {
	GetExpenseWithCategory(ctx context.Context, id int64) (core.ExpenseWithCategory, error)
	ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.ExpenseWithCategory, error)
}

const (
	writtenCacheSize = 10000
	// Rows are rewritten at least this often even when unchanged, so manual
	// edits in the sheet get overwritten by a later reconcile.
	writtenCacheTTL = time.Hour
)

// MirrorWorker applies change events to the spreadsheet mirror. Events only
// carry ids; the row content is always read fresh from the datastore.
type MirrorWorker struct {
	source      ExpenseSource
	mirror      sheets.Mirror
	logger      *log.Logger
	concurrency int
	// expense id -> last row written, to skip no-op upserts
	written *cache.LRU[int64, string]
}

func NewMirrorWorker(source ExpenseSource, mirror sheets.Mirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &MirrorWorker{
		source:      source,
		mirror:      mirror,
		logger:      logger.WithComponent(log.ComponentWorker),
		concurrency: 4,
		written:     cache.NewLRU[int64, string](writtenCacheSize, writtenCacheTTL),
	}
}

// HandleChange is an amqp.Handler.
func (w *MirrorWorker) HandleChange(ctx context.Context, ev core.ChangeEvent) error {
	w.logger.LogFields(ctx, slog.LevelInfo, "Processing change event", log.NewFields().
		WithOperation(log.OpMirror).
		With(log.FieldEntity, string(ev.Entity)).
		With(log.FieldAction, string(ev.Action)).
		With("id", ev.ID))

	switch ev.Entity {
	case core.EntityExpense:
		if ev.Action == core.ActionDeleted {
			return w.remove(ctx, ev.ID)
		}
		return w.mirrorExpense(ctx, ev.ID)
	case core.EntityCategory:
		if ev.Action != core.ActionUpdated {
			return nil
		}
		expenses, err := w.source.ListExpenses(ctx, core.ExpenseFilter{CategoryID: &ev.ID})
		if err != nil {
			return fmt.Errorf("list expenses of category %d: %w", ev.ID, err)
		}
		return w.upsertAll(ctx, expenses)
	}
	return nil
}

func (w *MirrorWorker) mirrorExpense(ctx context.Context, id int64) error {
	e, err := w.source.GetExpenseWithCategory(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the event was published; the delete event removes the row too.
		return w.remove(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get expense %d: %w", id, err)
	}
	return w.upsert(ctx, e)
}

func (w *MirrorWorker) upsert(ctx context.Context, e core.ExpenseWithCategory) error {
	fingerprint := strings.Join(sheets.Row(e), "\x1f")
	if prev, ok := w.written.Get(e.ID); ok && prev == fingerprint {
		return nil
	}
	if err := w.mirror.Upsert(ctx, e); err != nil {
		return fmt.Errorf("upsert expense %d: %w", e.ID, err)
	}
	w.written.Set(e.ID, fingerprint)
	return nil
}

func (w *MirrorWorker) remove(ctx context.Context, id int64) error {
	w.written.Delete(id)
	if err := w.mirror.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove expense %d: %w", id, err)
	}
	return nil
}

func (w *MirrorWorker) upsertAll(ctx context.Context, expenses []core.ExpenseWithCategory) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, e := range expenses {
		g.Go(func() error { return w.upsert(ctx, e) })
	}
	return g.Wait()
}

// Reconcile re-mirrors every expense and returns how many it checked.
func (w *MirrorWorker) Reconcile(ctx context.Context) (int, error) {
	w.written.CleanExpired()
	expenses, err := w.source.ListExpenses(ctx, core.ExpenseFilter{})
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}
	if err := w.upsertAll(ctx, expenses); err != nil {
		return 0, err
	}
	return len(expenses), nil
}

// RunReconciler calls Reconcile immediately and then every interval until ctx ends.
func (w *MirrorWorker) RunReconciler(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		start := time.Now()
		n, err := w.Reconcile(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Reconcile failed", "error", err)
		} else if err == nil {
			w.logger.InfoContext(ctx, "Reconcile completed", "expenses", n, log.FieldDuration, time.Since(start).Milliseconds())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
