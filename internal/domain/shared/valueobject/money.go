package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erp/flattax/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	JPY Currency = "JPY" // Japanese Yen
	CNY Currency = "CNY" // Chinese Yuan
	KWD Currency = "KWD" // Kuwaiti Dinar
)

// defaultPrecision is used for codes the CLDR tables don't know about.
const defaultPrecision int32 = 2

// ParseCurrency normalizes and validates an ISO 4217 code.
func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("%w: unknown currency %q", shared.ErrInvalidInput, code)
	}
	return Currency(unit.String()), nil
}

// Precision returns the number of fractional digits used when rounding
// amounts of this currency for display, e.g. 2 for USD and 0 for JPY.
func (c Currency) Precision() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return defaultPrecision
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// Money is a value object representing monetary amounts
// It is immutable - all operations return new Money instances
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, fmt.Errorf("%w: currency cannot be empty", shared.ErrInvalidInput)
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyFromInt creates Money from an int64 value
func NewMoneyFromInt(amount int64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromInt(amount), currency)
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: invalid amount string %q", shared.ErrInvalidInput, amount)
	}
	return NewMoney(d, currency)
}

// MustMoney creates Money from a string, panicking on invalid input.
// Intended for fixtures and constants.
func MustMoney(amount string, currency Currency) Money {
	m, err := NewMoneyFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) sameCurrency(op string, other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: cannot %s %s and %s", shared.ErrCurrencyMismatch, op, m.currency, other.currency)
	}
	return nil
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency("add", other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns a new Money with the difference
// Returns error if currencies don't match
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency("subtract", other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Multiply returns a new Money multiplied by the given factor
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// MultiplyByInt returns a new Money multiplied by an integer
func (m Money) MultiplyByInt(factor int64) Money {
	return m.Multiply(decimal.NewFromInt(factor))
}

// Divide returns a new Money divided by the given divisor
// Returns error if divisor is zero
func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, fmt.Errorf("%w: cannot divide by zero", shared.ErrInvalidInput)
	}
	return Money{amount: m.amount.Div(divisor), currency: m.currency}, nil
}

// Quantize rounds the amount to the given number of fractional digits,
// half away from zero.
func (m Money) Quantize(places int32) Money {
	return Money{amount: m.amount.Round(places), currency: m.currency}
}

// QuantizeCurrency rounds the amount to the standard precision of its currency.
func (m Money) QuantizeCurrency() Money {
	return m.Quantize(m.currency.Precision())
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// LessThan returns true if this Money is less than the other
// Returns error if currencies don't match
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.sameCurrency("compare", other); err != nil {
		return false, err
	}
	return m.amount.LessThan(other.amount), nil
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency("compare", other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// Max returns the larger of a and b.
func Max(a, b Money) (Money, error) {
	less, err := a.LessThan(b)
	if err != nil {
		return Money{}, err
	}
	if less {
		return b, nil
	}
	return a, nil
}

// Min returns the smaller of a and b.
func Min(a, b Money) (Money, error) {
	greater, err := a.GreaterThan(b)
	if err != nil {
		return Money{}, err
	}
	if greater {
		return b, nil
	}
	return a, nil
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.String(), m.currency)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler. The currency is validated
// against ISO 4217.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("%w: invalid amount %q", shared.ErrInvalidInput, v.Amount)
	}
	cur, err := ParseCurrency(string(v.Currency))
	if err != nil {
		return err
	}
	m.amount = amount
	m.currency = cur
	return nil
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}
