package discount

import (
	"testing"

	"github.com/erp/flattax/internal/domain/shared"
	vo "github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(price string, qty int) Line {
	return Line{ID: uuid.New(), UnitPrice: vo.MustMoney(price, vo.USD), Quantity: qty}
}

func amounts(t *testing.T, allocs []Allocation, pick func(Allocation) vo.Money) []string {
	t.Helper()
	out := make([]string, len(allocs))
	for i, a := range allocs {
		out[i] = pick(a).Amount().StringFixed(2)
	}
	return out
}

func discountOf(a Allocation) vo.Money  { return a.Discount }
func appliedOf(a Allocation) vo.Money   { return a.Applied }
func unitPriceOf(a Allocation) vo.Money { return a.UnitPrice }

func TestProrate_ThreeLines(t *testing.T) {
	lines := []Line{line("30.00", 1), line("30.00", 1), line("40.00", 1)}

	allocs, err := Prorate(lines, dec("10.00"), vo.USD)
	require.NoError(t, err)
	require.Len(t, allocs, 3)

	assert.Equal(t, []string{"3.00", "3.00", "4.00"}, amounts(t, allocs, discountOf))
	assert.Equal(t, []string{"27.00", "27.00", "36.00"}, amounts(t, allocs, unitPriceOf))
	for i, a := range allocs {
		assert.Equal(t, lines[i].ID, a.LineID)
	}

	total, applied, err := Sum(allocs, vo.USD)
	require.NoError(t, err)
	assert.True(t, total.Equals(vo.MustMoney("10", vo.USD)))
	assert.True(t, applied.Equals(total))
}

func TestProrate_DiscountExceedsTotal(t *testing.T) {
	lines := []Line{line("30.00", 1), line("30.00", 1), line("40.00", 1)}

	allocs, err := Prorate(lines, dec("200.00"), vo.USD)
	require.NoError(t, err)

	assert.Equal(t, []string{"60.00", "60.00", "80.00"}, amounts(t, allocs, discountOf))
	assert.Equal(t, []string{"30.00", "30.00", "40.00"}, amounts(t, allocs, appliedOf))
	assert.Equal(t, []string{"0.00", "0.00", "0.00"}, amounts(t, allocs, unitPriceOf))

	total, applied, err := Sum(allocs, vo.USD)
	require.NoError(t, err)
	assert.True(t, total.Equals(vo.MustMoney("200", vo.USD)))
	assert.True(t, applied.Equals(vo.MustMoney("100", vo.USD)))
	short, err := applied.LessThan(total)
	require.NoError(t, err)
	assert.True(t, short)
}

func TestProrate_RemainderGoesToLastLine(t *testing.T) {
	lines := []Line{line("1.00", 1), line("1.00", 1), line("1.00", 1)}

	allocs, err := Prorate(lines, dec("1.00"), vo.USD)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.33", "0.33", "0.34"}, amounts(t, allocs, discountOf))

	// reordering moves the remainder, the total stays
	reordered := []Line{lines[2], lines[0], lines[1]}
	allocs, err = Prorate(reordered, dec("1.00"), vo.USD)
	require.NoError(t, err)
	assert.Equal(t, lines[1].ID, allocs[2].LineID)
	assert.Equal(t, "0.34", allocs[2].Discount.Amount().StringFixed(2))
}

func TestProrate_ExactSum(t *testing.T) {
	priceSets := [][]string{
		{"33.33", "12.01", "7.77"},
		{"0.01", "0.01", "0.01", "0.01", "0.01", "0.01", "0.01"},
		{"19.99", "5.00"},
		{"100.00", "0.10", "3.14", "2.72", "9.99"},
		{"0.00", "15.00", "0.00"},
	}
	discounts := []string{"0.01", "0.07", "1.00", "9.99", "24.99"}

	for _, prices := range priceSets {
		lines := make([]Line, len(prices))
		sum := decimal.Zero
		for i, p := range prices {
			lines[i] = line(p, i%3+1)
			sum = sum.Add(lines[i].TotalPrice().Amount())
		}
		for _, d := range discounts {
			if dec(d).GreaterThan(sum) {
				continue
			}
			allocs, err := Prorate(lines, dec(d), vo.USD)
			require.NoError(t, err)

			total, _, err := Sum(allocs, vo.USD)
			require.NoError(t, err)
			assert.True(t, total.Amount().Equal(dec(d)), "prices %v discount %s: got %s", prices, d, total)
			for _, a := range allocs {
				assert.False(t, a.UnitPrice.IsNegative(), "prices %v discount %s", prices, d)
			}
		}
	}
}

func TestProrate_SingleLine(t *testing.T) {
	tests := []struct {
		name         string
		discount     string
		wantDiscount string
		wantUnit     string
	}{
		{"partial", "5.00", "5.00", "7.50"},
		{"whole line", "20.00", "20.00", "0.00"},
		{"clamped to line total", "50.00", "20.00", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := line("10.00", 2)
			allocs, err := Prorate([]Line{l}, dec(tt.discount), vo.USD)
			require.NoError(t, err)
			require.Len(t, allocs, 1)
			assert.Equal(t, tt.wantDiscount, allocs[0].Discount.Amount().StringFixed(2))
			assert.Equal(t, tt.wantDiscount, allocs[0].Applied.Amount().StringFixed(2))
			assert.Equal(t, tt.wantUnit, allocs[0].UnitPrice.Amount().StringFixed(2))
		})
	}
}

func TestProrate_Quantities(t *testing.T) {
	lines := []Line{line("10.00", 3), line("20.00", 1)}

	allocs, err := Prorate(lines, dec("5.00"), vo.USD)
	require.NoError(t, err)
	assert.Equal(t, []string{"3.00", "2.00"}, amounts(t, allocs, discountOf))
	assert.Equal(t, []string{"9.00", "18.00"}, amounts(t, allocs, unitPriceOf))
}

func TestProrate_ZeroDiscountKeepsUnitPrices(t *testing.T) {
	lines := []Line{line("3.333", 1), line("4.00", 2)}

	allocs, err := Prorate(lines, decimal.Zero, vo.USD)
	require.NoError(t, err)
	for i, a := range allocs {
		assert.True(t, a.Discount.IsZero())
		assert.True(t, a.UnitPrice.Equals(lines[i].UnitPrice))
	}
}

func TestProrate_ZeroTotalsLastAbsorbs(t *testing.T) {
	lines := []Line{line("0", 1), line("0", 1)}

	allocs, err := Prorate(lines, dec("2.00"), vo.USD)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.00", "2.00"}, amounts(t, allocs, discountOf))
	assert.Equal(t, []string{"0.00", "0.00"}, amounts(t, allocs, appliedOf))
	assert.Equal(t, []string{"0.00", "0.00"}, amounts(t, allocs, unitPriceOf))
}

func TestProrate_CurrencyPrecision(t *testing.T) {
	lines := []Line{
		{ID: uuid.New(), UnitPrice: vo.MustMoney("100", vo.JPY), Quantity: 1},
		{ID: uuid.New(), UnitPrice: vo.MustMoney("200", vo.JPY), Quantity: 1},
	}

	allocs, err := Prorate(lines, dec("10"), vo.JPY)
	require.NoError(t, err)
	assert.Equal(t, "3", allocs[0].Discount.Amount().String())
	assert.Equal(t, "7", allocs[1].Discount.Amount().String())
}

func TestProrate_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		lines    []Line
		discount string
		currency vo.Currency
		wantErr  error
	}{
		{"no lines", nil, "1", vo.USD, shared.ErrInvalidInput},
		{"negative discount", []Line{line("1", 1)}, "-1", vo.USD, shared.ErrInvalidInput},
		{"zero quantity", []Line{line("1", 0)}, "1", vo.USD, shared.ErrInvalidInput},
		{"missing currency", []Line{line("1", 1)}, "1", "", shared.ErrInvalidInput},
		{"mixed currency", []Line{line("1", 1)}, "1", vo.EUR, shared.ErrCurrencyMismatch},
		{"duplicate IDs", duplicateLines(), "1", vo.USD, shared.ErrInvalidInput},
		{"zero-value IDs", []Line{
			{UnitPrice: vo.MustMoney("30", vo.USD), Quantity: 1},
			{UnitPrice: vo.MustMoney("70", vo.USD), Quantity: 1},
		}, "10", vo.USD, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prorate(tt.lines, dec(tt.discount), tt.currency)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func duplicateLines() []Line {
	first := line("30", 1)
	second := line("70", 1)
	second.ID = first.ID
	return []Line{first, second}
}

func TestProrate_NegativeRemainderRaisesLastLine(t *testing.T) {
	lines := []Line{line("1.00", 1), line("1.00", 1), line("1.00", 1), line("1.00", 1)}

	allocs, err := Prorate(lines, dec("0.02"), vo.USD)
	require.NoError(t, err)

	// 0.005 per line rounds up to 0.01, leaving -0.01 for the last line
	assert.Equal(t, []string{"0.01", "0.01", "0.01", "-0.01"}, amounts(t, allocs, discountOf))
	assert.Equal(t, []string{"0.99", "0.99", "0.99", "1.01"}, amounts(t, allocs, unitPriceOf))
	assert.Equal(t, []string{"0.01", "0.01", "0.01", "0.00"}, amounts(t, allocs, appliedOf))

	total, _, err := Sum(allocs, vo.USD)
	require.NoError(t, err)
	assert.True(t, total.Equals(vo.MustMoney("0.02", vo.USD)))
}

func TestByLineID(t *testing.T) {
	lines := []Line{line("30.00", 1), line("70.00", 1)}
	allocs, err := Prorate(lines, dec("10.00"), vo.USD)
	require.NoError(t, err)

	m := ByLineID(allocs)
	assert.Len(t, m, 2)
	assert.True(t, m[lines[0].ID].Equals(vo.MustMoney("3", vo.USD)))
	assert.True(t, m[lines[1].ID].Equals(vo.MustMoney("7", vo.USD)))
}

func TestClampShippingDiscount(t *testing.T) {
	got, err := ClampShippingDiscount(vo.MustMoney("10", vo.USD), vo.MustMoney("4", vo.USD))
	require.NoError(t, err)
	assert.True(t, got.Equals(vo.MustMoney("6", vo.USD)))

	got, err = ClampShippingDiscount(vo.MustMoney("10", vo.USD), vo.MustMoney("15", vo.USD))
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ClampShippingDiscount(vo.MustMoney("10", vo.USD), vo.MustMoney("1", vo.EUR))
	assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)

	_, err = ClampShippingDiscount(vo.MustMoney("10", vo.USD), vo.MustMoney("-5", vo.USD))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
