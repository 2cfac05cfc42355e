package flattax

import (
	"github.com/erp/flattax/internal/domain/pipeline"
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settings are the host-level switches the stages honor.
type Settings struct {
	Active bool
	// Channel is the sales channel this configuration serves; orders from other
	// channels are left to other plugins.
	Channel string
	// IncludeTaxesInPrices means catalog prices are gross and net is derived.
	IncludeTaxesInPrices  bool
	ChargeTaxesOnShipping bool
}

// VoucherType says what a voucher discounts.
type VoucherType string

const (
	VoucherEntireOrder VoucherType = "entire_order"
	VoucherShipping    VoucherType = "shipping"
)

// Voucher is a discount code applied to a checkout or order.
type Voucher struct {
	Code     string            `json:"code"`
	Type     VoucherType       `json:"type"`
	Discount valueobject.Money `json:"discount"`
}

func (v *Voucher) is(t VoucherType) bool {
	return v != nil && v.Type == t && !v.Discount.IsZero()
}

// CheckoutLine is a line of a checkout. UnitPrice is the catalog unit price
// before voucher discounts.
type CheckoutLine struct {
	ID        uuid.UUID
	Product   taxes.Product
	UnitPrice valueobject.Money
	Quantity  int
}

// Checkout is the cart being priced. A nil DeliveryPrice means no delivery
// method is chosen yet.
type Checkout struct {
	ID            uuid.UUID
	Currency      valueobject.Currency
	Lines         []CheckoutLine
	DeliveryPrice *valueobject.Money
	Voucher       *Voucher
}

// OrderLine is a placed order line.
type OrderLine struct {
	ID      uuid.UUID
	Product taxes.Product
	// BaseUnitPrice is the unit price after catalog discounts.
	BaseUnitPrice valueobject.Money
	// UndiscountedBaseUnitPrice is the list price.
	UndiscountedBaseUnitPrice valueobject.Money
	Quantity                  int
}

// Order is a placed order. TotalDiscount is the order-level discount excluding
// shipping; it is prorated over the lines.
type Order struct {
	ID            uuid.UUID
	Channel       string
	Currency      valueobject.Currency
	Lines         []OrderLine
	ShippingPrice *valueobject.Money
	Voucher       *Voucher
	TotalDiscount decimal.Decimal
}

// TaxedOrderLine carries the recomputed prices of one order line.
type TaxedOrderLine struct {
	LineID                 uuid.UUID              `json:"line_id"`
	UnitPrice              valueobject.TaxedMoney `json:"unit_price"`
	UndiscountedUnitPrice  valueobject.TaxedMoney `json:"undiscounted_unit_price"`
	TotalPrice             valueobject.TaxedMoney `json:"total_price"`
	UndiscountedTotalPrice valueobject.TaxedMoney `json:"undiscounted_total_price"`
	TaxRate                decimal.Decimal        `json:"tax_rate"`
}

// Prices returns the line's prices in the shape earlier stages hand down.
func (l TaxedOrderLine) Prices() pipeline.OrderTaxedPrices {
	return pipeline.OrderTaxedPrices{
		Undiscounted:       l.UndiscountedTotalPrice,
		PriceWithDiscounts: l.TotalPrice,
	}
}

// TaxLineData is the per-line part of TaxData.
type TaxLineData struct {
	TotalNet   decimal.Decimal `json:"total_net_amount"`
	TotalGross decimal.Decimal `json:"total_gross_amount"`
	// TaxRate is a percentage (10 for 10%).
	TaxRate decimal.Decimal `json:"tax_rate"`
}

// TaxData is the tax summary of an order. Rates are percentages.
type TaxData struct {
	ShippingNet     decimal.Decimal `json:"shipping_price_net_amount"`
	ShippingGross   decimal.Decimal `json:"shipping_price_gross_amount"`
	ShippingTaxRate decimal.Decimal `json:"shipping_tax_rate"`
	Lines           []TaxLineData   `json:"lines"`
}
