package services

import (
	"context"
	"fmt"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

// ExpenseService validates expense input, persists it and announces the change.
type ExpenseService struct {
	store ExpenseStore
	notifier
}

func NewExpenseService(store ExpenseStore, publisher EventPublisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Default()
	}
	l := logger.WithComponent(log.ComponentExpense)
	return &ExpenseService{store: store, notifier: notifier{publisher: publisher, logger: l}}
}

func (s *ExpenseService) Create(ctx context.Context, in core.CreateExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.CreateExpense(ctx, in)
	logResult(ctx, s.logger, "Expense created", log.NewFields().
		WithOperation(log.OpCreate).
		WithExpense(e.ID).
		WithCategory(in.CategoryID).
		With(log.FieldAmount, in.Amount.String()), err)
	if err != nil {
		return core.Expense{}, passThrough("create expense", err)
	}
	s.notify(ctx, core.EntityExpense, core.ActionCreated, e.ID)
	return e, nil
}

// List returns the matching expenses; a nil filter lists everything.
func (s *ExpenseService) List(ctx context.Context, f *core.ExpenseFilter) ([]core.ExpenseWithCategory, error) {
	var filter core.ExpenseFilter
	if f != nil {
		filter = *f
	}
	expenses, err := s.store.ListExpenses(ctx, filter)
	logList(ctx, s.logger, "Expenses listed", len(expenses), err)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) Update(ctx context.Context, in core.UpdateExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.UpdateExpense(ctx, in)
	logResult(ctx, s.logger, "Expense updated", log.NewFields().WithOperation(log.OpUpdate).WithExpense(in.ID), err)
	if err != nil {
		return core.Expense{}, passThrough("update expense", err)
	}
	s.notify(ctx, core.EntityExpense, core.ActionUpdated, e.ID)
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	err := s.store.DeleteExpense(ctx, id)
	logResult(ctx, s.logger, "Expense deleted", log.NewFields().WithOperation(log.OpDelete).WithExpense(id), err)
	if err != nil {
		return passThrough("delete expense", err)
	}
	s.notify(ctx, core.EntityExpense, core.ActionDeleted, id)
	return nil
}
