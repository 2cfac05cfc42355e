package flattax

import (
	"context"

	"github.com/erp/flattax/internal/domain/discount"
	"github.com/erp/flattax/internal/domain/pipeline"
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// OrderShipping taxes the order's shipping price after any shipping voucher.
// Orders without a shipping method get the previous value back.
func (p *Plugin) OrderShipping(ctx context.Context, order Order, previous valueobject.TaxedMoney) (valueobject.TaxedMoney, error) {
	if p.skip(ctx, StageOrderShipping, pipeline.FromPrice(previous)) {
		return previous, nil
	}
	if order.ShippingPrice == nil {
		return previous, nil
	}
	return p.shipping(*order.ShippingPrice, order.Voucher, p.Rates())
}

// UpdateTaxesForOrderLines prorates the order discount over its lines and taxes
// the discounted and undiscounted unit prices of each. The order is not modified.
// previous is returned as is when the plugin is inactive or every previous line
// already carries a taxed price with discounts.
func (p *Plugin) UpdateTaxesForOrderLines(ctx context.Context, order Order, previous []TaxedOrderLine) ([]TaxedOrderLine, error) {
	prevs := make([]pipeline.Previous, len(previous))
	for i, l := range previous {
		prevs[i] = pipeline.FromOrderPrices(l.Prices())
	}
	if p.skipAll(ctx, StageOrderLines, prevs) {
		return previous, nil
	}
	return p.orderLines(order, p.Rates())
}

func (p *Plugin) orderLines(order Order, table *taxes.RateTable) ([]TaxedOrderLine, error) {
	if len(order.Lines) == 0 {
		return []TaxedOrderLine{}, nil
	}

	lines := make([]discount.Line, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = discount.Line{ID: l.ID, UnitPrice: l.BaseUnitPrice, Quantity: l.Quantity}
	}
	allocs, err := discount.Prorate(lines, order.TotalDiscount, order.Currency)
	if err != nil {
		return nil, err
	}

	out := make([]TaxedOrderLine, len(order.Lines))
	for i, l := range order.Lines {
		unit, err := p.taxProduct(table, l.Product, allocs[i].UnitPrice)
		if err != nil {
			return nil, err
		}
		undiscounted, err := p.taxProduct(table, l.Product, l.UndiscountedBaseUnitPrice)
		if err != nil {
			return nil, err
		}
		qty := int64(l.Quantity)
		out[i] = TaxedOrderLine{
			LineID:                 l.ID,
			UnitPrice:              unit,
			UndiscountedUnitPrice:  undiscounted,
			TotalPrice:             unit.MultiplyByInt(qty),
			UndiscountedTotalPrice: undiscounted.MultiplyByInt(qty),
			TaxRate:                taxes.ResolveRate(table, l.Product),
		}
	}

	p.logger.Debug("order lines taxed",
		zap.String("stage", StageOrderLines),
		zap.String("order_id", order.ID.String()),
		zap.Int("lines", len(out)),
		zap.String("discount", order.TotalDiscount.String()),
	)
	return out, nil
}

// TaxesForOrder summarizes line and shipping taxes of order with rates as
// percentages. Orders placed in another channel return previous.
func (p *Plugin) TaxesForOrder(ctx context.Context, order Order, previous *TaxData) (*TaxData, error) {
	if p.skip(ctx, StageOrderTaxes, pipeline.None()) {
		return previous, nil
	}
	if order.Channel != p.settings.Channel {
		p.logger.Debug("order from another channel",
			zap.String("stage", StageOrderTaxes),
			zap.String("channel", order.Channel),
		)
		return previous, nil
	}

	table := p.Rates()
	lines, err := p.orderLines(order, table)
	if err != nil {
		return nil, err
	}

	data := &TaxData{Lines: make([]TaxLineData, len(lines))}
	for i, l := range lines {
		data.Lines[i] = TaxLineData{
			TotalNet:   l.TotalPrice.Net().Amount(),
			TotalGross: l.TotalPrice.Gross().Amount(),
			TaxRate:    l.TaxRate.Mul(hundred),
		}
	}

	ship := valueobject.ZeroTaxed(order.Currency)
	if order.ShippingPrice != nil {
		if ship, err = p.shipping(*order.ShippingPrice, order.Voucher, table); err != nil {
			return nil, err
		}
	}
	data.ShippingNet = ship.Net().Amount()
	data.ShippingGross = ship.Gross().Amount()
	data.ShippingTaxRate = taxes.ShippingRate(table, p.settings.ChargeTaxesOnShipping).Mul(hundred)
	return data, nil
}
