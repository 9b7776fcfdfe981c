package services

import (
	"context"

	"spendlog/internal/core"
)

// CategoryStore persists categories. Implementations run each
// check-then-mutate sequence in one transaction.
type CategoryStore interface {
	CreateCategory(ctx context.Context, name string) (core.Category, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// ExpenseStore persists expenses.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, in core.CreateExpenseInput) (core.Expense, error)
	ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.ExpenseWithCategory, error)
	UpdateExpense(ctx context.Context, in core.UpdateExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
}

// EventPublisher announces committed changes.
type EventPublisher interface {
	PublishChange(ctx context.Context, ev core.ChangeEvent) error
}
