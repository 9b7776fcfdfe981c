package rpc

import (
	"context"
	"time"

	"spendlog/internal/core"
)

// CategoryAPI is the category surface exposed over RPC.
type CategoryAPI interface {
	Create(ctx context.Context, in core.CreateCategoryInput) (core.Category, error)
	List(ctx context.Context) ([]core.Category, error)
	Update(ctx context.Context, in core.UpdateCategoryInput) (core.Category, error)
	Delete(ctx context.Context, id int64) error
}

// ExpenseAPI is the expense surface exposed over RPC.
type ExpenseAPI interface {
	Create(ctx context.Context, in core.CreateExpenseInput) (core.Expense, error)
	List(ctx context.Context, f *core.ExpenseFilter) ([]core.ExpenseWithCategory, error)
	Update(ctx context.Context, in core.UpdateExpenseInput) (core.Expense, error)
	Delete(ctx context.Context, id int64) error
}

type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Procedure names.
const (
	ProcHealthcheck    = "healthcheck"
	ProcCreateCategory = "createCategory"
	ProcGetCategories  = "getCategories"
	ProcUpdateCategory = "updateCategory"
	ProcDeleteCategory = "deleteCategory"
	ProcCreateExpense  = "createExpense"
	ProcGetExpenses    = "getExpenses"
	ProcUpdateExpense  = "updateExpense"
	ProcDeleteExpense  = "deleteExpense"
)

// Register binds every procedure to its service method.
func Register(r *Router, categories CategoryAPI, expenses ExpenseAPI) {
	Query(r, ProcHealthcheck, func(context.Context, Void) (Health, error) {
		return Health{Status: "ok", Timestamp: time.Now().UTC()}, nil
	})

	Mutation(r, ProcCreateCategory, categories.Create)
	Query(r, ProcGetCategories, func(ctx context.Context, _ Void) ([]core.Category, error) {
		return categories.List(ctx)
	})
	Mutation(r, ProcUpdateCategory, categories.Update)
	Mutation(r, ProcDeleteCategory, func(ctx context.Context, id int64) (Void, error) {
		return Void{}, categories.Delete(ctx, id)
	})

	Mutation(r, ProcCreateExpense, expenses.Create)
	Query(r, ProcGetExpenses, expenses.List)
	Mutation(r, ProcUpdateExpense, expenses.Update)
	Mutation(r, ProcDeleteExpense, func(ctx context.Context, id int64) (Void, error) {
		return Void{}, expenses.Delete(ctx, id)
	})
}
