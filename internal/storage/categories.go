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

func (r *Repository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	query, args, err := r.sb.Insert("categories").
		Columns("name", "created_at").
		Values(name, now()).
		Suffix("RETURNING " + categoryColumns).
		ToSql()
	if err != nil {
		return core.Category{}, fmt.Errorf("build insert category: %w", err)
	}

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	r.logger.DebugContext(ctx, "Category inserted", log.FieldCategoryID, c.ID)
	return c, nil
}

// ListCategories returns every category ordered by name, then id.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	query, args, err := r.sb.Select(categoryColumns).
		From("categories").
		OrderBy("name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list categories: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := r.getCategory(ctx, r.db, id, "")
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NotFoundf("Category with id %d not found", id)
	}
	return c, err
}

// UpdateCategory renames a category; created_at is never written.
func (r *Repository) UpdateCategory(ctx context.Context, id int64, name string) (core.Category, error) {
	query, args, err := r.sb.Update("categories").
		Set("name", name).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + categoryColumns).
		ToSql()
	if err != nil {
		return core.Category{}, fmt.Errorf("build update category: %w", err)
	}

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NotFoundf("Category with id %d not found", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes a category that no expense references. The existence
// check, the usage check and the delete share one transaction.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.getCategory(ctx, tx, id, "FOR UPDATE"); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return core.NotFoundf("Category not found")
			}
			return err
		}

		n, err := r.countExpenses(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return core.Conflictf("Cannot delete category with associated expenses")
		}

		query, args, err := r.sb.Delete("categories").Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete category: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getCategory returns sql.ErrNoRows unwrapped so callers can pick their message.
func (r *Repository) getCategory(ctx context.Context, q queryer, id int64, lock string) (core.Category, error) {
	query, args, err := r.sb.Select(categoryColumns).
		From("categories").
		Where(sq.Eq{"id": id}).
		Suffix(r.lockSuffix(lock)).
		ToSql()
	if err != nil {
		return core.Category{}, fmt.Errorf("build get category: %w", err)
	}
	c, err := scanCategory(q.QueryRowContext(ctx, query, args...))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, err
}

func (r *Repository) countExpenses(ctx context.Context, q queryer, categoryID int64) (int64, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From("expenses").
		Where(sq.Eq{"category_id": categoryID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count expenses: %w", err)
	}
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}
