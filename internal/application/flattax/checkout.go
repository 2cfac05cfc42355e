package flattax

import (
	"context"
	"fmt"

	"github.com/erp/flattax/internal/domain/discount"
	"github.com/erp/flattax/internal/domain/pipeline"
	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/erp/flattax/internal/domain/taxes"
	"go.uber.org/zap"
)

// CheckoutLineUnitPrice returns the taxed unit price of the line at index in
// checkout.Lines. An entire-order voucher is prorated over all checkout lines
// first.
func (p *Plugin) CheckoutLineUnitPrice(ctx context.Context, checkout Checkout, index int, previous valueobject.TaxedMoney) (valueobject.TaxedMoney, error) {
	if p.skip(ctx, StageCheckoutLineUnit, pipeline.FromPrice(previous)) {
		return previous, nil
	}
	return p.checkoutLineUnit(checkout, index, p.Rates())
}

// CheckoutLineTotal is CheckoutLineUnitPrice times the line quantity.
func (p *Plugin) CheckoutLineTotal(ctx context.Context, checkout Checkout, index int, previous valueobject.TaxedMoney) (valueobject.TaxedMoney, error) {
	if p.skip(ctx, StageCheckoutLine, pipeline.FromPrice(previous)) {
		return previous, nil
	}
	unit, err := p.checkoutLineUnit(checkout, index, p.Rates())
	if err != nil {
		return valueobject.TaxedMoney{}, err
	}
	return unit.MultiplyByInt(int64(checkout.Lines[index].Quantity)), nil
}

// CheckoutShipping taxes the delivery price after any shipping voucher. Without
// a delivery method the previous value is returned.
func (p *Plugin) CheckoutShipping(ctx context.Context, checkout Checkout, previous valueobject.TaxedMoney) (valueobject.TaxedMoney, error) {
	if p.skip(ctx, StageCheckoutShipping, pipeline.FromPrice(previous)) {
		return previous, nil
	}
	if checkout.DeliveryPrice == nil {
		return previous, nil
	}
	return p.shipping(*checkout.DeliveryPrice, checkout.Voucher, p.Rates())
}

// CheckoutTotal is the sum of the line totals plus shipping. Vouchers are
// already reflected in those amounts and are not subtracted again.
func (p *Plugin) CheckoutTotal(ctx context.Context, checkout Checkout, previous valueobject.TaxedMoney) (valueobject.TaxedMoney, error) {
	if p.skip(ctx, StageCheckoutTotal, pipeline.FromPrice(previous)) {
		return previous, nil
	}
	table := p.Rates()
	prices, err := discountedUnitPrices(checkout)
	if err != nil {
		return valueobject.TaxedMoney{}, err
	}
	total := valueobject.ZeroTaxed(checkout.Currency)
	for i, line := range checkout.Lines {
		unit, err := p.taxProduct(table, line.Product, prices[i])
		if err != nil {
			return valueobject.TaxedMoney{}, err
		}
		if total, err = total.Add(unit.MultiplyByInt(int64(line.Quantity))); err != nil {
			return valueobject.TaxedMoney{}, err
		}
	}
	if checkout.DeliveryPrice != nil {
		ship, err := p.shipping(*checkout.DeliveryPrice, checkout.Voucher, table)
		if err != nil {
			return valueobject.TaxedMoney{}, err
		}
		if total, err = total.Add(ship); err != nil {
			return valueobject.TaxedMoney{}, err
		}
	}
	p.logger.Debug("checkout total",
		zap.String("stage", StageCheckoutTotal),
		zap.String("checkout_id", checkout.ID.String()),
		zap.Stringer("total", total),
	)
	return total, nil
}

func (p *Plugin) checkoutLineUnit(checkout Checkout, index int, table *taxes.RateTable) (valueobject.TaxedMoney, error) {
	if index < 0 || index >= len(checkout.Lines) {
		return valueobject.TaxedMoney{}, fmt.Errorf("%w: checkout %s has no line %d", shared.ErrNotFound, checkout.ID, index)
	}
	prices, err := discountedUnitPrices(checkout)
	if err != nil {
		return valueobject.TaxedMoney{}, err
	}
	return p.taxProduct(table, checkout.Lines[index].Product, prices[index])
}

// discountedUnitPrices returns the unit price of every line, in line order,
// after its share of an entire-order voucher.
func discountedUnitPrices(checkout Checkout) ([]valueobject.Money, error) {
	prices := make([]valueobject.Money, len(checkout.Lines))
	if !checkout.Voucher.is(VoucherEntireOrder) {
		for i, l := range checkout.Lines {
			prices[i] = l.UnitPrice
		}
		return prices, nil
	}
	lines := make([]discount.Line, len(checkout.Lines))
	for i, l := range checkout.Lines {
		lines[i] = discount.Line{ID: l.ID, UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	v := checkout.Voucher.Discount
	if v.Currency() != checkout.Currency {
		return nil, fmt.Errorf("%w: voucher %s is in %s, checkout in %s",
			shared.ErrCurrencyMismatch, checkout.Voucher.Code, v.Currency(), checkout.Currency)
	}
	allocs, err := discount.Prorate(lines, v.Amount(), checkout.Currency)
	if err != nil {
		return nil, err
	}
	for i, a := range allocs {
		prices[i] = a.UnitPrice
	}
	return prices, nil
}

func (p *Plugin) shipping(price valueobject.Money, voucher *Voucher, table *taxes.RateTable) (valueobject.TaxedMoney, error) {
	if voucher.is(VoucherShipping) {
		var err error
		if price, err = discount.ClampShippingDiscount(price, voucher.Discount); err != nil {
			return valueobject.TaxedMoney{}, err
		}
	}
	return p.taxShipping(table, price)
}
