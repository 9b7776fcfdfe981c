package core

import "time"

type (
	Category struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	}

	Expense struct {
		ID          int64     `json:"id"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description"`
		Date        Date      `json:"date"`
		CategoryID  int64     `json:"category_id"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// ExpenseWithCategory is the listing projection: expense fields plus the
	// owning category record.
	ExpenseWithCategory struct {
		Expense
		Category Category `json:"category"`
	}

	CreateCategoryInput struct {
		Name string `json:"name"`
	}

	UpdateCategoryInput struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	CreateExpenseInput struct {
		Amount      Money  `json:"amount"`
		Description string `json:"description"`
		Date        Date   `json:"date"`
		CategoryID  int64  `json:"category_id"`
	}

	// UpdateExpenseInput carries only the fields to change; nil means keep.
	UpdateExpenseInput struct {
		ID          int64   `json:"id"`
		Amount      *Money  `json:"amount,omitempty"`
		Description *string `json:"description,omitempty"`
		Date        *Date   `json:"date,omitempty"`
		CategoryID  *int64  `json:"category_id,omitempty"`
	}

	// ExpenseFilter predicates are ANDed; nil fields do not filter.
	ExpenseFilter struct {
		CategoryID *int64 `json:"category_id,omitempty"`
		StartDate  *Date  `json:"start_date,omitempty"`
		EndDate    *Date  `json:"end_date,omitempty"`
	}
)

// Apply returns e with every supplied field of the patch assigned.
func (in UpdateExpenseInput) Apply(e Expense) Expense {
	if in.Amount != nil {
		e.Amount = *in.Amount
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Date != nil {
		e.Date = *in.Date
	}
	if in.CategoryID != nil {
		e.CategoryID = *in.CategoryID
	}
	return e
}

// Empty reports whether no field would change.
func (in UpdateExpenseInput) Empty() bool {
	return in.Amount == nil && in.Description == nil && in.Date == nil && in.CategoryID == nil
}
