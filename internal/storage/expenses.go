package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

// CreateExpense inserts an expense after checking, in the same transaction,
// that its category exists.
func (r *Repository) CreateExpense(ctx context.Context, in core.CreateExpenseInput) (core.Expense, error) {
	var e core.Expense
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.getCategory(ctx, tx, in.CategoryID, "FOR SHARE"); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return core.NotFoundf("Category with id %d does not exist", in.CategoryID)
			}
			return err
		}

		query, args, err := r.sb.Insert("expenses").
			Columns("amount_cents", "description", "date", "category_id", "created_at").
			Values(in.Amount, in.Description, in.Date, in.CategoryID, now()).
			Suffix("RETURNING " + expenseColumns).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert expense: %w", err)
		}
		e, err = scanExpense(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}
	r.logger.DebugContext(ctx, "Expense inserted", log.FieldExpenseID, e.ID, log.FieldCategoryID, e.CategoryID)
	return e, nil
}

func (r *Repository) expensesWithCategory() sq.SelectBuilder {
	return r.sb.Select(
		"e.id", "e.amount_cents", "e.description", "e.date", "e.category_id", "e.created_at",
		"c.id", "c.name", "c.created_at",
	).
		From("expenses e").
		Join("categories c ON c.id = e.category_id")
}

// ListExpenses returns expenses joined with their category, newest date first
// and highest id first within a day.
func (r *Repository) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.ExpenseWithCategory, error) {
	q := r.expensesWithCategory()
	if f.CategoryID != nil {
		q = q.Where(sq.Eq{"e.category_id": *f.CategoryID})
	}
	if f.StartDate != nil {
		q = q.Where(sq.GtOrEq{"e.date": *f.StartDate})
	}
	if f.EndDate != nil {
		q = q.Where(sq.LtOrEq{"e.date": *f.EndDate})
	}

	query, args, err := q.OrderBy("e.date DESC", "e.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list expenses: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.ExpenseWithCategory{}
	for rows.Next() {
		e, err := scanExpenseWithCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := r.getExpense(ctx, r.db, id, "")
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NotFoundf("Expense with id %d not found", id)
	}
	return e, err
}

func (r *Repository) GetExpenseWithCategory(ctx context.Context, id int64) (core.ExpenseWithCategory, error) {
	query, args, err := r.expensesWithCategory().Where(sq.Eq{"e.id": id}).ToSql()
	if err != nil {
		return core.ExpenseWithCategory{}, fmt.Errorf("build get expense: %w", err)
	}
	e, err := scanExpenseWithCategory(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseWithCategory{}, core.NotFoundf("Expense with id %d not found", id)
	}
	if err != nil {
		return core.ExpenseWithCategory{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// UpdateExpense writes only the supplied fields. The expense lookup, the
// category check and the update share one transaction.
func (r *Repository) UpdateExpense(ctx context.Context, in core.UpdateExpenseInput) (core.Expense, error) {
	var e core.Expense
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.getExpense(ctx, tx, in.ID, "FOR UPDATE")
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFoundf("Expense not found")
		}
		if err != nil {
			return err
		}

		if in.CategoryID != nil {
			if _, err := r.getCategory(ctx, tx, *in.CategoryID, "FOR SHARE"); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return core.NotFoundf("Category not found")
				}
				return err
			}
		}

		set := updateSet(in)
		if len(set) == 0 {
			e = current
			return nil
		}

		query, args, err := r.sb.Update("expenses").
			SetMap(set).
			Where(sq.Eq{"id": in.ID}).
			Suffix("RETURNING " + expenseColumns).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update expense: %w", err)
		}
		e, err = scanExpense(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func updateSet(in core.UpdateExpenseInput) map[string]any {
	set := map[string]any{}
	if in.Amount != nil {
		set["amount_cents"] = *in.Amount
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Date != nil {
		set["date"] = *in.Date
	}
	if in.CategoryID != nil {
		set["category_id"] = *in.CategoryID
	}
	return set
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete("expenses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete expense: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if n == 0 {
		return core.NotFoundf("Expense with id %d not found", id)
	}
	return nil
}

func (r *Repository) getExpense(ctx context.Context, q queryer, id int64, lock string) (core.Expense, error) {
	query, args, err := r.sb.Select(expenseColumns).
		From("expenses").
		Where(sq.Eq{"id": id}).
		Suffix(r.lockSuffix(lock)).
		ToSql()
	if err != nil {
		return core.Expense{}, fmt.Errorf("build get expense: %w", err)
	}
	e, err := scanExpense(q.QueryRowContext(ctx, query, args...))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, err
}
