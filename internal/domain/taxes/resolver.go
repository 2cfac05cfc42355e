package taxes

import (
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product carries the tax attributes of a catalog product, already read from
// the catalog by the caller.
type Product struct {
	ID   uuid.UUID
	Name string
	// TaxCode overrides the product type's code when set.
	TaxCode string
	// ProductTypeTaxCode is the code configured on the product's type.
	ProductTypeTaxCode string
	ChargeTaxes        bool
}

// ResolveRateName returns the rate name that applies to p: the product's own
// code, else its product type's code, else "" meaning no override.
func ResolveRateName(p Product) string {
	if p.TaxCode != "" {
		return p.TaxCode
	}
	return p.ProductTypeTaxCode
}

// RateNameOrDefault is ResolveRateName with DefaultRateName in place of "".
func RateNameOrDefault(p Product) string {
	if name := ResolveRateName(p); name != "" {
		return name
	}
	return DefaultRateName
}

// ResolveRate returns the tax fraction for p (0.1 for 10%). It is zero when the
// product does not charge taxes or no applicable rate is configured.
func ResolveRate(table *RateTable, p Product) decimal.Decimal {
	if !p.ChargeTaxes || table.IsEmpty() {
		return decimal.Zero
	}
	entry, err := table.Lookup(RateNameOrDefault(p))
	if err != nil {
		return decimal.Zero
	}
	return entry.Fraction()
}

// ShippingRate returns the tax fraction charged on shipping: the default rate,
// or zero when shipping is not taxed or the default rate is missing.
func ShippingRate(table *RateTable, chargeTaxesOnShipping bool) decimal.Decimal {
	if !chargeTaxesOnShipping {
		return decimal.Zero
	}
	entry, ok := table.Entry(DefaultRateName)
	if !ok {
		return decimal.Zero
	}
	return entry.Fraction()
}

// ApplyTaxToProduct taxes a price of p. Products that don't charge taxes are
// priced as if the table were empty.
func ApplyTaxToProduct(table *RateTable, p Product, price valueobject.PriceValue, keepGross bool) (valueobject.PriceValue, error) {
	if !p.ChargeTaxes {
		table = nil
	}
	return ApplyTaxToPrice(table, RateNameOrDefault(p), price, keepGross)
}

// ApplyTaxToShipping taxes a shipping price with the default rate. When
// shipping is not taxed the price is only converted to net == gross.
func ApplyTaxToShipping(table *RateTable, price valueobject.Money, keepGross, chargeTaxesOnShipping bool) (valueobject.TaxedMoney, error) {
	if !chargeTaxesOnShipping {
		table = nil
	}
	return ApplyTaxToMoney(table, DefaultRateName, price, keepGross)
}
