package flattax

import (
	"context"

	"github.com/erp/flattax/internal/domain/pipeline"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/shopspring/decimal"
)

// LineTaxRate returns the tax fraction applied to product. previous is kept
// when the plugin is inactive, the product is not taxed or no rates exist.
func (p *Plugin) LineTaxRate(ctx context.Context, product taxes.Product, previous decimal.Decimal) decimal.Decimal {
	if p.skip(ctx, StageLineTaxRate, pipeline.FromRate(previous)) {
		return previous
	}
	table := p.Rates()
	if !product.ChargeTaxes || table.IsEmpty() {
		return previous
	}
	return taxes.ResolveRate(table, product)
}

// ShippingTaxRate returns the fraction charged on shipping. It is zero when
// shipping is not taxed and previous when no default rate is configured.
func (p *Plugin) ShippingTaxRate(ctx context.Context, previous decimal.Decimal) decimal.Decimal {
	if p.skip(ctx, StageShippingTaxRate, pipeline.FromRate(previous)) {
		return previous
	}
	if !p.settings.ChargeTaxesOnShipping {
		return decimal.Zero
	}
	table := p.Rates()
	if _, ok := table.Entry(taxes.DefaultRateName); !ok {
		return previous
	}
	return taxes.ShippingRate(table, true)
}

// TaxRateTypeChoices lists the configured rates as tax types, sorted by code.
func (p *Plugin) TaxRateTypeChoices(previous []taxes.TaxType) []taxes.TaxType {
	if !p.settings.Active {
		return previous
	}
	return p.Rates().TaxTypes()
}

// ShowTaxesOnStorefront is always false while the plugin is active.
func (p *Plugin) ShowTaxesOnStorefront(previous bool) bool {
	if !p.settings.Active {
		return previous
	}
	return false
}
