package taxes

import (
	"testing"

	vo "github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *RateTable {
	t.Helper()
	table, err := NewRateTable(map[string]decimal.Decimal{
		"standard": dec("10"),
		"food":     dec("5"),
		"luxury":   dec("25"),
	})
	require.NoError(t, err)
	return table
}

func TestResolveRateName(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    string
	}{
		{"product code wins", Product{TaxCode: "luxury", ProductTypeTaxCode: "food"}, "luxury"},
		{"falls back to product type", Product{ProductTypeTaxCode: "food"}, "food"},
		{"no override", Product{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRateName(tt.product))
		})
	}
	assert.Equal(t, DefaultRateName, RateNameOrDefault(Product{}))
}

func TestResolveRate(t *testing.T) {
	table := testTable(t)

	tests := []struct {
		name    string
		table   *RateTable
		product Product
		want    string
	}{
		{"product code", table, Product{ChargeTaxes: true, TaxCode: "luxury"}, "0.25"},
		{"product type code", table, Product{ChargeTaxes: true, ProductTypeTaxCode: "food"}, "0.05"},
		{"default rate", table, Product{ChargeTaxes: true}, "0.1"},
		{"unknown code uses default", table, Product{ChargeTaxes: true, TaxCode: "nope"}, "0.1"},
		{"charge taxes off", table, Product{ChargeTaxes: false, TaxCode: "luxury"}, "0"},
		{"empty table", EmptyRateTable(), Product{ChargeTaxes: true}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRate(tt.table, tt.product)
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestResolveRate_NoTaxWhenNotCharged(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "gift card", TaxCode: "standard", ChargeTaxes: false}
	tables := []*RateTable{nil, EmptyRateTable(), testTable(t)}
	for _, table := range tables {
		assert.True(t, ResolveRate(table, p).IsZero())
	}
}

func TestResolveRate_MissingDefault(t *testing.T) {
	table, err := NewRateTable(map[string]decimal.Decimal{"food": dec("5")})
	require.NoError(t, err)
	assert.True(t, ResolveRate(table, Product{ChargeTaxes: true, TaxCode: "other"}).IsZero())
}

func TestShippingRate(t *testing.T) {
	table := testTable(t)
	assert.True(t, ShippingRate(table, true).Equal(dec("0.1")))
	assert.True(t, ShippingRate(table, false).IsZero())

	noDefault, _ := NewRateTable(map[string]decimal.Decimal{"food": dec("5")})
	assert.True(t, ShippingRate(noDefault, true).IsZero())
}

func TestApplyTaxToProduct(t *testing.T) {
	table := testTable(t)

	got, err := ApplyTaxToProduct(table, Product{ChargeTaxes: true, ProductTypeTaxCode: "food"}, usd("20"), false)
	require.NoError(t, err)
	assert.True(t, got.(vo.TaxedMoney).Gross().Equals(usd("21")))

	got, err = ApplyTaxToProduct(table, Product{ChargeTaxes: false, TaxCode: "luxury"}, usd("20"), false)
	require.NoError(t, err)
	assert.False(t, got.(vo.TaxedMoney).IsTaxed())
}

func TestApplyTaxToShipping(t *testing.T) {
	table := testTable(t)

	got, err := ApplyTaxToShipping(table, usd("11"), true, true)
	require.NoError(t, err)
	assert.True(t, got.Net().Equals(usd("10")))
	assert.True(t, got.Gross().Equals(usd("11")))

	got, err = ApplyTaxToShipping(table, usd("11"), true, false)
	require.NoError(t, err)
	assert.False(t, got.IsTaxed())
}
