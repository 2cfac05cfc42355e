package pipeline

import "github.com/erp/flattax/internal/domain/shared/valueobject"

// ShouldSkip reports whether prev already carries a taxed amount (net != gross),
// in which case a tax stage must return it unchanged. A range counts as taxed
// only when both ends are. Rates and untaxed shapes never skip.
func ShouldSkip(prev Previous) bool {
	switch prev.kind {
	case KindPrice:
		switch v := prev.price.(type) {
		case valueobject.TaxedMoney:
			return v.IsTaxed()
		case valueobject.TaxedMoneyRange:
			return v.Start().IsTaxed() && v.Stop().IsTaxed()
		}
	case KindOrderPrices:
		return prev.orderPrices.PriceWithDiscounts.IsTaxed()
	}
	return false
}

// ShouldSkipAll reports whether every value in prevs is already taxed. An
// empty slice never skips.
func ShouldSkipAll(prevs []Previous) bool {
	if len(prevs) == 0 {
		return false
	}
	for _, prev := range prevs {
		if !ShouldSkip(prev) {
			return false
		}
	}
	return true
}
