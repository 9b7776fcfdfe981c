package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateCategoryInput
		wantMsg string
	}{
		{"valid", CreateCategoryInput{Name: "Food"}, ""},
		{"max length", CreateCategoryInput{Name: strings.Repeat("a", 100)}, ""},
		{"multibyte counted as runes", CreateCategoryInput{Name: strings.Repeat("é", 100)}, ""},
		{"empty", CreateCategoryInput{Name: ""}, "Category name is required"},
		{"blank", CreateCategoryInput{Name: "   "}, "Category name is required"},
		{"too long", CreateCategoryInput{Name: strings.Repeat("a", 101)}, "Category name too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestUpdateCategoryInputValidate(t *testing.T) {
	assert.NoError(t, UpdateCategoryInput{ID: 1, Name: "New"}.Validate())

	err := UpdateCategoryInput{ID: 0, Name: ""}.Validate()
	require.Error(t, err)
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Len(t, de.Issues, 2)
}

func TestCreateExpenseInputValidate(t *testing.T) {
	valid := CreateExpenseInput{
		Amount:      NewMoney(2550),
		Description: "Lunch",
		Date:        NewDate(2024, 1, 15),
		CategoryID:  1,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*CreateExpenseInput)
		field  string
	}{
		{"zero amount", func(in *CreateExpenseInput) { in.Amount = NewMoney(0) }, "amount"},
		{"negative amount", func(in *CreateExpenseInput) { in.Amount = NewMoney(-100) }, "amount"},
		{"empty description", func(in *CreateExpenseInput) { in.Description = "" }, "description"},
		{"long description", func(in *CreateExpenseInput) { in.Description = strings.Repeat("x", 501) }, "description"},
		{"missing date", func(in *CreateExpenseInput) { in.Date = Date{} }, "date"},
		{"missing category", func(in *CreateExpenseInput) { in.CategoryID = 0 }, "category_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.Validate()
			var de *Error
			require.True(t, errors.As(err, &de), "expected domain error, got %v", err)
			assert.Equal(t, KindValidation, de.Kind)
			require.Len(t, de.Issues, 1)
			assert.Equal(t, tt.field, de.Issues[0].Field)
		})
	}
}

func TestUpdateExpenseInput(t *testing.T) {
	desc := "Dinner"
	zero := NewMoney(0)
	assert.NoError(t, UpdateExpenseInput{ID: 3}.Validate())
	assert.NoError(t, UpdateExpenseInput{ID: 3, Description: &desc}.Validate())
	assert.True(t, errors.Is(UpdateExpenseInput{ID: 3, Amount: &zero}.Validate(), ErrValidation))

	before := Expense{ID: 3, Amount: NewMoney(100), Description: "Lunch", Date: NewDate(2024, 1, 1), CategoryID: 7}
	patch := UpdateExpenseInput{ID: 3, Description: &desc}
	after := patch.Apply(before)
	assert.Equal(t, "Dinner", after.Description)
	assert.Equal(t, before.Amount, after.Amount)
	assert.Equal(t, before.Date, after.Date)
	assert.Equal(t, before.CategoryID, after.CategoryID)
	assert.False(t, patch.Empty())
	assert.True(t, UpdateExpenseInput{ID: 3}.Empty())
}

func TestErrorKinds(t *testing.T) {
	nf := NotFoundf("Expense with id %d not found", 999)
	assert.True(t, errors.Is(nf, ErrNotFound))
	assert.False(t, errors.Is(nf, ErrConflict))
	assert.Contains(t, nf.Error(), "999")

	wrapped := errors.Join(errors.New("ctx"), Conflictf("in use"))
	assert.True(t, errors.Is(wrapped, ErrConflict))

	assert.NoError(t, NewValidationError(nil))
	assert.Equal(t, "a; b", NewValidationError([]FieldIssue{{"x", "a"}, {"y", "b"}}).Error())
}
