package sheets

import (
	"context"
	"strconv"
	"time"

	"spendlog/internal/core"
)

// Mirror keeps a spreadsheet copy of the expense list, one row per expense
// keyed by expense id.
type Mirror interface {
	Upsert(ctx context.Context, e core.ExpenseWithCategory) error
	Remove(ctx context.Context, id int64) error
}

// Header is the first row of the mirror sheet.
var Header = []string{"ID", "Date", "Description", "Amount", "Category", "Created At"}

// Row renders an expense in Header order.
func Row(e core.ExpenseWithCategory) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Date.String(),
		e.Description,
		e.Amount.String(),
		e.Category.Name,
		e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
