// Package pipeline holds the per-stage decision logic of the pricing chain: a
// stage receives what earlier stages produced and either computes a fresh
// result or hands the previous one back untouched.
package pipeline

import (
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PreviousKind tells which payload a Previous carries.
type PreviousKind int

const (
	KindNone PreviousKind = iota
	KindPrice
	KindOrderPrices
	KindRate
)

func (k PreviousKind) String() string {
	switch k {
	case KindPrice:
		return "price"
	case KindOrderPrices:
		return "order_prices"
	case KindRate:
		return "rate"
	default:
		return "none"
	}
}

// OrderTaxedPrices is an order line's undiscounted price together with the
// price after discounts, both taxed.
type OrderTaxedPrices struct {
	Undiscounted       valueobject.TaxedMoney `json:"undiscounted_price"`
	PriceWithDiscounts valueobject.TaxedMoney `json:"price_with_discounts"`
}

// Previous is the value an earlier stage handed down. Only the field matching
// Kind is meaningful.
type Previous struct {
	kind        PreviousKind
	price       valueobject.PriceValue
	orderPrices OrderTaxedPrices
	rate        decimal.Decimal
}

// None is the value seen by the first stage in the chain.
func None() Previous { return Previous{kind: KindNone} }

// FromPrice wraps a price value. A nil price yields None.
func FromPrice(p valueobject.PriceValue) Previous {
	if p == nil {
		return None()
	}
	return Previous{kind: KindPrice, price: p}
}

// FromOrderPrices wraps an order line's taxed prices.
func FromOrderPrices(p OrderTaxedPrices) Previous {
	return Previous{kind: KindOrderPrices, orderPrices: p}
}

// FromRate wraps a tax rate placeholder.
func FromRate(r decimal.Decimal) Previous {
	return Previous{kind: KindRate, rate: r}
}

func (p Previous) Kind() PreviousKind { return p.kind }

// Price returns the wrapped price, if any.
func (p Previous) Price() (valueobject.PriceValue, bool) {
	return p.price, p.kind == KindPrice
}

// OrderPrices returns the wrapped order prices, if any.
func (p Previous) OrderPrices() (OrderTaxedPrices, bool) {
	return p.orderPrices, p.kind == KindOrderPrices
}

// Rate returns the wrapped rate, if any.
func (p Previous) Rate() (decimal.Decimal, bool) {
	return p.rate, p.kind == KindRate
}

// TaxedMoney returns the wrapped price when it is a single TaxedMoney.
func (p Previous) TaxedMoney() (valueobject.TaxedMoney, bool) {
	tm, ok := p.price.(valueobject.TaxedMoney)
	return tm, ok && p.kind == KindPrice
}
