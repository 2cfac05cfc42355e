package handler

import (
	"fmt"

	"github.com/erp/flattax/internal/application/flattax"
	"github.com/erp/flattax/internal/domain/discount"
	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyRequest is an amount in a currency. Amounts are decimal strings.
type MoneyRequest struct {
	Amount   string `json:"amount" binding:"required,numeric" example:"100.00"`
	Currency string `json:"currency" binding:"required,len=3" example:"USD"`
}

func (r MoneyRequest) toMoney() (valueobject.Money, error) {
	cur, err := valueobject.ParseCurrency(r.Currency)
	if err != nil {
		return valueobject.Money{}, err
	}
	return valueobject.NewMoneyFromString(r.Amount, cur)
}

func (r *MoneyRequest) toMoneyPtr() (*valueobject.Money, error) {
	if r == nil {
		return nil, nil
	}
	m, err := r.toMoney()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ProductRequest carries the tax attributes of a product.
type ProductRequest struct {
	ID                 string `json:"id" binding:"omitempty,uuid"`
	Name               string `json:"name"`
	TaxCode            string `json:"tax_code" example:"reduced"`
	ProductTypeTaxCode string `json:"product_type_tax_code"`
	// ChargeTaxes defaults to true
	ChargeTaxes *bool `json:"charge_taxes"`
}

func (r ProductRequest) toProduct() taxes.Product {
	p := taxes.Product{
		ID:                 parseOrNewID(r.ID),
		Name:               r.Name,
		TaxCode:            r.TaxCode,
		ProductTypeTaxCode: r.ProductTypeTaxCode,
		ChargeTaxes:        true,
	}
	if r.ChargeTaxes != nil {
		p.ChargeTaxes = *r.ChargeTaxes
	}
	return p
}

// parseOrNewID parses a binding-validated UUID, generating one when empty.
func parseOrNewID(s string) uuid.UUID {
	if s == "" {
		return uuid.New()
	}
	return uuid.MustParse(s)
}

// VoucherRequest is a voucher applied to a checkout or order.
type VoucherRequest struct {
	Code     string       `json:"code"`
	Type     string       `json:"type" binding:"required,oneof=entire_order shipping"`
	Discount MoneyRequest `json:"discount"`
}

func (r *VoucherRequest) toVoucher() (*flattax.Voucher, error) {
	if r == nil {
		return nil, nil
	}
	d, err := r.Discount.toMoney()
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: voucher %q has a negative discount", shared.ErrInvalidInput, r.Code)
	}
	return &flattax.Voucher{Code: r.Code, Type: flattax.VoucherType(r.Type), Discount: d}, nil
}

// ProductPriceRequest asks for the taxed price of a product. With PriceStop
// set the price is a range from Price to PriceStop.
type ProductPriceRequest struct {
	Product   ProductRequest `json:"product"`
	Price     MoneyRequest   `json:"price"`
	PriceStop *MoneyRequest  `json:"price_stop"`
}

// ShippingPriceRequest asks for the taxed price of shipping.
type ShippingPriceRequest struct {
	Price MoneyRequest `json:"price"`
}

// CheckoutLineRequest is a line of a checkout.
type CheckoutLineRequest struct {
	ID        string         `json:"id" binding:"omitempty,uuid"`
	Product   ProductRequest `json:"product"`
	UnitPrice MoneyRequest   `json:"unit_price"`
	Quantity  int            `json:"quantity" binding:"required,min=1"`
}

// CheckoutRequest is a checkout to price.
type CheckoutRequest struct {
	ID            string                `json:"id" binding:"omitempty,uuid"`
	Currency      string                `json:"currency" binding:"required,len=3"`
	Lines         []CheckoutLineRequest `json:"lines" binding:"required,min=1,dive"`
	DeliveryPrice *MoneyRequest         `json:"delivery_price"`
	Voucher       *VoucherRequest       `json:"voucher"`
}

func (r CheckoutRequest) toCheckout() (flattax.Checkout, error) {
	cur, err := valueobject.ParseCurrency(r.Currency)
	if err != nil {
		return flattax.Checkout{}, err
	}
	co := flattax.Checkout{ID: parseOrNewID(r.ID), Currency: cur, Lines: make([]flattax.CheckoutLine, len(r.Lines))}
	for i, l := range r.Lines {
		price, err := l.UnitPrice.toMoney()
		if err != nil {
			return flattax.Checkout{}, err
		}
		if price.Currency() != cur {
			return flattax.Checkout{}, fmt.Errorf("%w: line %d is priced in %s, checkout in %s",
				shared.ErrCurrencyMismatch, i, price.Currency(), cur)
		}
		co.Lines[i] = flattax.CheckoutLine{
			ID:        parseOrNewID(l.ID),
			Product:   l.Product.toProduct(),
			UnitPrice: price,
			Quantity:  l.Quantity,
		}
	}
	if co.DeliveryPrice, err = r.DeliveryPrice.toMoneyPtr(); err != nil {
		return flattax.Checkout{}, err
	}
	if co.Voucher, err = r.Voucher.toVoucher(); err != nil {
		return flattax.Checkout{}, err
	}
	return co, nil
}

// CheckoutLineResponse is the taxed price of one checkout line.
type CheckoutLineResponse struct {
	LineID     uuid.UUID              `json:"line_id"`
	UnitPrice  valueobject.TaxedMoney `json:"unit_price"`
	TotalPrice valueobject.TaxedMoney `json:"total_price"`
}

// CheckoutResponse is a priced checkout. Shipping is omitted without a delivery price.
type CheckoutResponse struct {
	CheckoutID uuid.UUID               `json:"checkout_id"`
	Lines      []CheckoutLineResponse  `json:"lines"`
	Shipping   *valueobject.TaxedMoney `json:"shipping,omitempty"`
	Total      valueobject.TaxedMoney  `json:"total"`
}

// OrderLineRequest is a placed order line. UndiscountedBaseUnitPrice
// defaults to BaseUnitPrice.
type OrderLineRequest struct {
	ID                        string         `json:"id" binding:"omitempty,uuid"`
	Product                   ProductRequest `json:"product"`
	BaseUnitPrice             MoneyRequest   `json:"base_unit_price"`
	UndiscountedBaseUnitPrice *MoneyRequest  `json:"undiscounted_base_unit_price"`
	Quantity                  int            `json:"quantity" binding:"required,min=1"`
}

// OrderRequest is a placed order to tax.
type OrderRequest struct {
	ID            string             `json:"id" binding:"omitempty,uuid"`
	Channel       string             `json:"channel"`
	Currency      string             `json:"currency" binding:"required,len=3"`
	Lines         []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
	ShippingPrice *MoneyRequest      `json:"shipping_price"`
	Voucher       *VoucherRequest    `json:"voucher"`
	TotalDiscount string             `json:"total_discount" binding:"omitempty,numeric"`
}

func (r OrderRequest) toOrder(defaultChannel string) (flattax.Order, error) {
	cur, err := valueobject.ParseCurrency(r.Currency)
	if err != nil {
		return flattax.Order{}, err
	}
	order := flattax.Order{
		ID:            parseOrNewID(r.ID),
		Channel:       r.Channel,
		Currency:      cur,
		Lines:         make([]flattax.OrderLine, len(r.Lines)),
		TotalDiscount: decimal.Zero,
	}
	if order.Channel == "" {
		order.Channel = defaultChannel
	}
	if r.TotalDiscount != "" {
		if order.TotalDiscount, err = decimal.NewFromString(r.TotalDiscount); err != nil {
			return flattax.Order{}, fmt.Errorf("%w: invalid total discount %q", shared.ErrInvalidInput, r.TotalDiscount)
		}
	}
	for i, l := range r.Lines {
		base, err := l.BaseUnitPrice.toMoney()
		if err != nil {
			return flattax.Order{}, err
		}
		undiscounted := base
		if l.UndiscountedBaseUnitPrice != nil {
			if undiscounted, err = l.UndiscountedBaseUnitPrice.toMoney(); err != nil {
				return flattax.Order{}, err
			}
		}
		order.Lines[i] = flattax.OrderLine{
			ID:                        parseOrNewID(l.ID),
			Product:                   l.Product.toProduct(),
			BaseUnitPrice:             base,
			UndiscountedBaseUnitPrice: undiscounted,
			Quantity:                  l.Quantity,
		}
	}
	if order.ShippingPrice, err = r.ShippingPrice.toMoneyPtr(); err != nil {
		return flattax.Order{}, err
	}
	if order.Voucher, err = r.Voucher.toVoucher(); err != nil {
		return flattax.Order{}, err
	}
	return order, nil
}

// OrderResponse carries the recomputed order lines, shipping and tax data.
type OrderResponse struct {
	OrderID  uuid.UUID                `json:"order_id"`
	Lines    []flattax.TaxedOrderLine `json:"lines"`
	Shipping *valueobject.TaxedMoney  `json:"shipping,omitempty"`
	TaxData  *flattax.TaxData         `json:"tax_data"`
}

// ProrateLineRequest is a line taking part in discount proration.
type ProrateLineRequest struct {
	ID        string `json:"id" binding:"omitempty,uuid"`
	UnitPrice string `json:"unit_price" binding:"required,numeric"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// ProrateRequest asks to spread a discount over lines.
type ProrateRequest struct {
	Currency      string               `json:"currency" binding:"required,len=3"`
	TotalDiscount string               `json:"total_discount" binding:"required,numeric"`
	Lines         []ProrateLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// AllocationResponse is one line's share of a prorated discount.
type AllocationResponse struct {
	LineID    uuid.UUID         `json:"line_id"`
	Discount  valueobject.Money `json:"discount"`
	Applied   valueobject.Money `json:"applied"`
	UnitPrice valueobject.Money `json:"unit_price"`
}

// ProrateResponse lists the allocations in request order with their sums.
type ProrateResponse struct {
	Allocations   []AllocationResponse `json:"allocations"`
	TotalDiscount valueobject.Money    `json:"total_discount"`
	TotalApplied  valueobject.Money    `json:"total_applied"`
}

func toAllocationResponses(allocs []discount.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, len(allocs))
	for i, a := range allocs {
		out[i] = AllocationResponse{LineID: a.LineID, Discount: a.Discount, Applied: a.Applied, UnitPrice: a.UnitPrice}
	}
	return out
}

// RatesResponse lists the rate table in effect. Percentages are decimal strings.
type RatesResponse struct {
	DefaultRate    string            `json:"default_rate"`
	Rates          map[string]string `json:"rates"`
	TaxTypes       []taxes.TaxType   `json:"tax_types"`
	ShippingRate   decimal.Decimal   `json:"shipping_tax_rate"`
	PricesAreGross bool              `json:"prices_include_taxes"`
	ShowTaxes      bool              `json:"show_taxes_on_storefront"`
}
