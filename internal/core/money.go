package core

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents is the largest amount that fits NUMERIC(10,2): 99,999,999.99.
const MaxCents int64 = 9_999_999_999

var maxAmount = decimal.New(MaxCents, -2)

// Rounding a decimal costs time proportional to its exponent, so inputs are
// bounded before any arithmetic.
const (
	maxAmountInputLen = 64
	maxAmountExponent = 20
)

// Money is an amount with two fractional digits, held as integer cents.
type Money struct {
	Cents int64
}

func NewMoney(cents int64) Money { return Money{Cents: cents} }

// ParseMoney parses a decimal string ("25.5", "1,23", "1e2") and rounds it
// half away from zero to cents. Sign is preserved; positivity is checked by Validate.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, validationf("amount", "Amount is required")
	}
	if len(s) > maxAmountInputLen {
		return Money{}, validationf("amount", "Amount must be a number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, validationf("amount", "Amount must be a number")
	}
	switch exp := d.Exponent(); {
	case exp > maxAmountExponent:
		if d.IsZero() {
			return Money{}, nil
		}
		return Money{}, validationf("amount", "Amount too large")
	case exp < -maxAmountExponent:
		return Money{}, validationf("amount", "Amount has too many decimal places")
	}
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	d = d.Round(2)
	if d.Abs().GreaterThan(maxAmount) {
		return Money{}, validationf("amount", "Amount too large")
	}
	return Money{Cents: d.Shift(2).IntPart()}, nil
}

// Decimal returns the amount as a decimal with exponent -2.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Validate reports whether the amount is strictly positive.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return validationf("amount", "Amount must be positive")
	}
	return nil
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return validationf("amount", "Amount is required")
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return validationf("amount", "Amount must be a number")
		}
		s = unq
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.Cents, nil
}

func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		m.Cents = v
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scan money: %w", err)
		}
		m.Cents = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("scan money: %w", err)
		}
		m.Cents = n
	default:
		return fmt.Errorf("scan money: unsupported type %T", src)
	}
	return nil
}
