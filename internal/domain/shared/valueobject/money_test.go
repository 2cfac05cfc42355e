package valueobject

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/erp/flattax/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.RequireFromString("100.50"), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("100.5")))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("123.45", EUR)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("123.45")))
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", EUR)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestMustMoneyPanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() { MustMoney("abc", USD) })
	assert.NotPanics(t, func() { MustMoney("1.00", USD) })
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("usd")
	require.NoError(t, err)
	assert.Equal(t, USD, c)

	_, err = ParseCurrency("ZZZ1")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCurrencyPrecision(t *testing.T) {
	tests := []struct {
		currency Currency
		want     int32
	}{
		{USD, 2},
		{EUR, 2},
		{JPY, 0},
		{KWD, 3},
		{Currency("NOPE"), 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.currency), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.currency.Precision())
		})
	}
}

func TestMoneyAdd(t *testing.T) {
	t.Run("adds same currency", func(t *testing.T) {
		result, err := MustMoney("100.50", USD).Add(MustMoney("50.25", USD))
		require.NoError(t, err)
		assert.True(t, result.Equals(MustMoney("150.75", USD)))
	})

	t.Run("fails for different currencies", func(t *testing.T) {
		_, err := MustMoney("100", USD).Add(MustMoney("50", EUR))
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrCurrencyMismatch))
		assert.Contains(t, err.Error(), "USD and EUR")
	})
}

func TestMoneySubtract(t *testing.T) {
	result, err := MustMoney("10.00", USD).Subtract(MustMoney("12.50", USD))
	require.NoError(t, err)
	assert.True(t, result.IsNegative())
	assert.True(t, result.Equals(MustMoney("-2.50", USD)))

	_, err = MustMoney("10", USD).Subtract(MustMoney("1", GBP))
	assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)
}

func TestMoneyMultiplyDivide(t *testing.T) {
	m := MustMoney("19.99", USD)
	assert.True(t, m.MultiplyByInt(3).Equals(MustMoney("59.97", USD)))
	assert.True(t, m.Multiply(decimal.RequireFromString("1.1")).Equals(MustMoney("21.989", USD)))

	q, err := MustMoney("10", USD).Divide(decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.True(t, q.Equals(MustMoney("2.5", USD)))

	_, err = m.Divide(decimal.Zero)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestMoneyQuantize(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		places int32
		want   string
	}{
		{"half rounds away from zero", "2.345", 2, "2.35"},
		{"negative half rounds away from zero", "-2.345", 2, "-2.35"},
		{"below half rounds down", "2.3449", 2, "2.34"},
		{"four digits", "90.909090", 4, "90.9091"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustMoney(tt.amount, USD).Quantize(tt.places)
			assert.True(t, got.Equals(MustMoney(tt.want, USD)), "got %s", got)
		})
	}

	assert.True(t, MustMoney("1234.5", JPY).QuantizeCurrency().Equals(MustMoney("1235", JPY)))
	assert.True(t, MustMoney("1.2345", KWD).QuantizeCurrency().Equals(MustMoney("1.235", KWD)))
}

func TestMaxMin(t *testing.T) {
	a := MustMoney("1", USD)
	b := MustMoney("2", USD)

	got, err := Max(a, b)
	require.NoError(t, err)
	assert.True(t, got.Equals(b))

	got, err = Min(a, b)
	require.NoError(t, err)
	assert.True(t, got.Equals(a))

	_, err = Max(a, MustMoney("2", EUR))
	assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(MustMoney("99.99", USD))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"99.99","currency":"USD"}`, string(data))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"12.30","currency":"eur"}`), &m))
	assert.True(t, m.Equals(MustMoney("12.3", EUR)))

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"x","currency":"EUR"}`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"amount":"1","currency":"??"}`), &m))
}
