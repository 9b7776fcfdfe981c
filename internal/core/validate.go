package core

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxCategoryNameLength = 100
	MaxDescriptionLength  = 500
)

type issues []FieldIssue

func (is *issues) add(field, msg string) {
	*is = append(*is, FieldIssue{Field: field, Message: msg})
}

func (is *issues) text(field, value, label string, max int) {
	switch {
	case strings.TrimSpace(value) == "":
		is.add(field, label+" is required")
	case utf8.RuneCountInString(value) > max:
		is.add(field, label+" too long")
	}
}

func (is *issues) id(field string, id int64, msg string) {
	if id <= 0 {
		is.add(field, msg)
	}
}

func (is *issues) amount(m Money) {
	if m.Cents <= 0 {
		is.add("amount", "Amount must be positive")
	}
}

func (is *issues) date(field string, d Date) {
	if d.IsZero() {
		is.add(field, "Date is required")
	}
}

func (in CreateCategoryInput) Validate() error {
	var is issues
	is.text("name", in.Name, "Category name", MaxCategoryNameLength)
	return NewValidationError(is)
}

func (in UpdateCategoryInput) Validate() error {
	var is issues
	is.id("id", in.ID, "Category id must be positive")
	is.text("name", in.Name, "Category name", MaxCategoryNameLength)
	return NewValidationError(is)
}

func (in CreateExpenseInput) Validate() error {
	var is issues
	is.amount(in.Amount)
	is.text("description", in.Description, "Description", MaxDescriptionLength)
	is.date("date", in.Date)
	is.id("category_id", in.CategoryID, "Category is required")
	return NewValidationError(is)
}

func (in UpdateExpenseInput) Validate() error {
	var is issues
	is.id("id", in.ID, "Expense id must be positive")
	if in.Amount != nil {
		is.amount(*in.Amount)
	}
	if in.Description != nil {
		is.text("description", *in.Description, "Description", MaxDescriptionLength)
	}
	if in.Date != nil {
		is.date("date", *in.Date)
	}
	if in.CategoryID != nil {
		is.id("category_id", *in.CategoryID, "Category is required")
	}
	return NewValidationError(is)
}
