// Package taxes implements flat-percentage taxation: converting prices between
// net and gross, the named rate table, and per-product rate resolution.
package taxes

import (
	"fmt"

	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TaxPrecision is the number of fractional digits kept on computed net/gross
// amounts. It is finer than currency precision; rounding to the currency
// happens later, when amounts are shown or prorated.
const TaxPrecision int32 = 4

var one = decimal.NewFromInt(1)

// ApplyFlatTax converts base into its taxed equivalent at the given tax fraction
// (0.10 for 10%). With keepGross the base is treated as gross and net is derived;
// otherwise the base is net and gross is derived. Ranges are converted end by end.
func ApplyFlatTax(base valueobject.PriceValue, fraction decimal.Decimal, keepGross bool) (valueobject.PriceValue, error) {
	if fraction.IsNegative() {
		return nil, fmt.Errorf("%w: tax fraction %s is negative", shared.ErrInvalidInput, fraction)
	}
	multiplier := one.Add(fraction)

	switch v := base.(type) {
	case valueobject.Money:
		return flatTaxMoney(v, multiplier, keepGross), nil
	case valueobject.TaxedMoney:
		return flatTaxTaxed(v, multiplier, keepGross), nil
	case valueobject.MoneyRange:
		return valueobject.NewTaxedMoneyRange(
			flatTaxMoney(v.Start(), multiplier, keepGross),
			flatTaxMoney(v.Stop(), multiplier, keepGross),
		)
	case valueobject.TaxedMoneyRange:
		return valueobject.NewTaxedMoneyRange(
			flatTaxTaxed(v.Start(), multiplier, keepGross),
			flatTaxTaxed(v.Stop(), multiplier, keepGross),
		)
	default:
		return nil, unsupported(base)
	}
}

func flatTaxMoney(base valueobject.Money, multiplier decimal.Decimal, keepGross bool) valueobject.TaxedMoney {
	if keepGross {
		net := divide(base, multiplier)
		return mustTaxed(net, base)
	}
	gross := base.Multiply(multiplier).Quantize(TaxPrecision)
	return mustTaxed(base, gross)
}

func flatTaxTaxed(base valueobject.TaxedMoney, multiplier decimal.Decimal, keepGross bool) valueobject.TaxedMoney {
	if keepGross {
		return mustTaxed(divide(base.Gross(), multiplier), base.Gross())
	}
	return mustTaxed(base.Net(), base.Net().Multiply(multiplier).Quantize(TaxPrecision))
}

// divide never sees a zero divisor: multiplier is 1 + a non-negative fraction.
func divide(m valueobject.Money, multiplier decimal.Decimal) valueobject.Money {
	q, err := m.Divide(multiplier)
	if err != nil {
		panic(err)
	}
	return q.Quantize(TaxPrecision)
}

// both halves are derived from the same Money, so the currencies always match.
func mustTaxed(net, gross valueobject.Money) valueobject.TaxedMoney {
	tm, err := valueobject.NewTaxedMoney(net, gross)
	if err != nil {
		panic(err)
	}
	return tm
}

// ToUntaxed converts base to its taxed shape without applying any tax:
// Money becomes net == gross, MoneyRange becomes a TaxedMoneyRange of such
// values, and already-taxed shapes are returned unchanged.
func ToUntaxed(base valueobject.PriceValue) (valueobject.PriceValue, error) {
	switch v := base.(type) {
	case valueobject.Money:
		return valueobject.Untaxed(v), nil
	case valueobject.MoneyRange:
		return valueobject.NewTaxedMoneyRange(valueobject.Untaxed(v.Start()), valueobject.Untaxed(v.Stop()))
	case valueobject.TaxedMoney, valueobject.TaxedMoneyRange:
		return v, nil
	default:
		return nil, unsupported(base)
	}
}

// ApplyTaxToPrice taxes base with the named rate from table. An empty table or an
// empty rate name means no tax is charged and base is only converted to its taxed
// shape. Names missing from the table fall back to DefaultRateName.
// keepGross comes from the host policy of whether displayed prices include tax.
func ApplyTaxToPrice(table *RateTable, rateName string, base valueobject.PriceValue, keepGross bool) (valueobject.PriceValue, error) {
	if table.IsEmpty() || rateName == "" {
		return ToUntaxed(base)
	}
	entry, err := table.Lookup(rateName)
	if err != nil {
		return nil, err
	}
	return entry.Apply(base, keepGross)
}

// ApplyTaxToMoney is ApplyTaxToPrice for a single Money amount.
func ApplyTaxToMoney(table *RateTable, rateName string, base valueobject.Money, keepGross bool) (valueobject.TaxedMoney, error) {
	v, err := ApplyTaxToPrice(table, rateName, base, keepGross)
	if err != nil {
		return valueobject.TaxedMoney{}, err
	}
	tm, ok := v.(valueobject.TaxedMoney)
	if !ok {
		return valueobject.TaxedMoney{}, unsupported(v)
	}
	return tm, nil
}

func unsupported(v valueobject.PriceValue) error {
	return fmt.Errorf("%w: %T", shared.ErrUnsupportedValueKind, v)
}
