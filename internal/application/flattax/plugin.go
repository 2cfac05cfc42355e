// Package flattax runs the flat-tax pricing stages for products, shipping,
// checkouts and orders on top of the taxes, discount and pipeline domains.
package flattax

import (
	"context"
	"fmt"

	"github.com/erp/flattax/internal/domain/pipeline"
	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/erp/flattax/internal/domain/taxes"
	"go.uber.org/zap"
)

// Stage names, used in logs and metrics.
const (
	StageProduct          = "apply_taxes_to_product"
	StageShipping         = "apply_taxes_to_shipping"
	StageCheckoutLineUnit = "checkout_line_unit_price"
	StageCheckoutLine     = "checkout_line_total"
	StageCheckoutShipping = "checkout_shipping"
	StageCheckoutTotal    = "checkout_total"
	StageOrderShipping    = "order_shipping"
	StageOrderLines       = "update_taxes_for_order_lines"
	StageOrderTaxes       = "taxes_for_order"
	StageLineTaxRate      = "line_tax_rate"
	StageShippingTaxRate  = "shipping_tax_rate"
)

// RateSource supplies the rate table in effect. Implementations swap tables
// atomically, so a stage reads it once and uses that table throughout.
type RateSource interface {
	Current() *taxes.RateTable
}

// Metrics records stage outcomes.
type Metrics interface {
	RecordStage(ctx context.Context, stage string, skipped bool)
}

type nopMetrics struct{}

func (nopMetrics) RecordStage(context.Context, string, bool) {}

// Plugin is the flat-tax implementation of the host's tax stages. Each stage
// receives the value produced by earlier plugins and returns it unchanged when
// the plugin is inactive or the value is already taxed.
type Plugin struct {
	settings Settings
	rates    RateSource
	logger   *zap.Logger
	metrics  Metrics
}

// NewPlugin creates a plugin reading rates from rates.
func NewPlugin(settings Settings, rates RateSource, logger *zap.Logger) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{
		settings: settings,
		rates:    rates,
		logger:   logger,
		metrics:  nopMetrics{},
	}
}

// WithMetrics sets the stage metrics recorder
func (p *Plugin) WithMetrics(m Metrics) *Plugin {
	if m != nil {
		p.metrics = m
	}
	return p
}

// Settings returns the plugin settings.
func (p *Plugin) Settings() Settings {
	return p.settings
}

// Rates returns the rate table currently in effect.
func (p *Plugin) Rates() *taxes.RateTable {
	if p.rates == nil {
		return nil
	}
	return p.rates.Current()
}

func (p *Plugin) skip(ctx context.Context, stage string, prev pipeline.Previous) bool {
	return p.recordSkip(ctx, stage, pipeline.ShouldSkip(prev), prev.Kind())
}

// skipAll is skip for stages that receive one previous value per line.
func (p *Plugin) skipAll(ctx context.Context, stage string, prevs []pipeline.Previous) bool {
	kind := pipeline.KindNone
	if len(prevs) > 0 {
		kind = prevs[0].Kind()
	}
	return p.recordSkip(ctx, stage, pipeline.ShouldSkipAll(prevs), kind)
}

func (p *Plugin) recordSkip(ctx context.Context, stage string, taxed bool, kind pipeline.PreviousKind) bool {
	skipped := !p.settings.Active || taxed
	p.metrics.RecordStage(ctx, stage, skipped)
	if skipped {
		p.logger.Debug("stage skipped",
			zap.String("stage", stage),
			zap.Bool("active", p.settings.Active),
			zap.Stringer("previous", kind),
		)
	}
	return skipped
}

func (p *Plugin) taxProduct(table *taxes.RateTable, product taxes.Product, price valueobject.Money) (valueobject.TaxedMoney, error) {
	v, err := taxes.ApplyTaxToProduct(table, product, price, p.settings.IncludeTaxesInPrices)
	if err != nil {
		return valueobject.TaxedMoney{}, err
	}
	tm, ok := v.(valueobject.TaxedMoney)
	if !ok {
		return valueobject.TaxedMoney{}, fmt.Errorf("%w: %T", shared.ErrUnsupportedValueKind, v)
	}
	return tm, nil
}

func (p *Plugin) taxShipping(table *taxes.RateTable, price valueobject.Money) (valueobject.TaxedMoney, error) {
	return taxes.ApplyTaxToShipping(table, price, p.settings.IncludeTaxesInPrices, p.settings.ChargeTaxesOnShipping)
}

// ApplyTaxesToProduct taxes a catalog price of product.
func (p *Plugin) ApplyTaxesToProduct(ctx context.Context, product taxes.Product, price valueobject.Money, previous valueobject.TaxedMoney) (valueobject.TaxedMoney, error) {
	if p.skip(ctx, StageProduct, pipeline.FromPrice(previous)) {
		return previous, nil
	}
	p.logger.Debug("taxing product",
		zap.String("stage", StageProduct),
		zap.String("product_id", product.ID.String()),
		zap.String("rate", taxes.RateNameOrDefault(product)),
	)
	return p.taxProduct(p.Rates(), product, price)
}

// ApplyTaxesToProductRange taxes a price range of product, such as its variant
// price span.
func (p *Plugin) ApplyTaxesToProductRange(ctx context.Context, product taxes.Product, price valueobject.MoneyRange, previous valueobject.TaxedMoneyRange) (valueobject.TaxedMoneyRange, error) {
	if p.skip(ctx, StageProduct, pipeline.FromPrice(previous)) {
		return previous, nil
	}
	v, err := taxes.ApplyTaxToProduct(p.Rates(), product, price, p.settings.IncludeTaxesInPrices)
	if err != nil {
		return valueobject.TaxedMoneyRange{}, err
	}
	r, ok := v.(valueobject.TaxedMoneyRange)
	if !ok {
		return valueobject.TaxedMoneyRange{}, fmt.Errorf("%w: %T", shared.ErrUnsupportedValueKind, v)
	}
	return r, nil
}

// ApplyTaxesToShipping taxes a shipping price with the default rate.
func (p *Plugin) ApplyTaxesToShipping(ctx context.Context, price valueobject.Money, previous valueobject.TaxedMoney) (valueobject.TaxedMoney, error) {
	if p.skip(ctx, StageShipping, pipeline.FromPrice(previous)) {
		return previous, nil
	}
	return p.taxShipping(p.Rates(), price)
}
