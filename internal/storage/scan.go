package storage

import (
	"fmt"
	"time"

	"spendlog/internal/core"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// timestamp scans instants stored as native times or text.
type timestamp struct {
	t *time.Time
}

func (ts timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (ts timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: invalid value %q", s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	categoryColumns = "id, name, created_at"
	expenseColumns  = "id, amount_cents, description, date, category_id, created_at"
)

func scanCategory(row rowScanner) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.Name, timestamp{&c.CreatedAt})
	return c, err
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	err := row.Scan(&e.ID, &e.Amount, &e.Description, &e.Date, &e.CategoryID, timestamp{&e.CreatedAt})
	return e, err
}

func scanExpenseWithCategory(row rowScanner) (core.ExpenseWithCategory, error) {
	var e core.ExpenseWithCategory
	err := row.Scan(
		&e.ID, &e.Amount, &e.Description, &e.Date, &e.CategoryID, timestamp{&e.CreatedAt},
		&e.Category.ID, &e.Category.Name, timestamp{&e.Category.CreatedAt},
	)
	return e, err
}

// now is the creation instant written by the application, truncated to the
// microsecond precision both backends keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
