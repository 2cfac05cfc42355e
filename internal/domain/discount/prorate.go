// Package discount spreads an order-level discount over priced lines.
package discount

import (
	"fmt"

	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is a priced line taking part in proration.
type Line struct {
	ID        uuid.UUID
	UnitPrice valueobject.Money
	Quantity  int
}

// TotalPrice returns unit price times quantity.
func (l Line) TotalPrice() valueobject.Money {
	return l.UnitPrice.MultiplyByInt(int64(l.Quantity))
}

// Allocation is the share of the discount assigned to one line.
type Allocation struct {
	LineID uuid.UUID
	// Discount is the prorated share. With two or more lines the shares sum to the
	// total discount exactly; a single line's share is capped at its total.
	Discount valueobject.Money
	// Applied is the part of Discount the line can absorb before its price hits zero.
	Applied valueobject.Money
	// UnitPrice is the discounted unit price, never negative.
	UnitPrice valueobject.Money
}

// Prorate splits totalDiscount across lines in proportion to each line's total
// price. Every line but the last gets its share rounded to the currency precision
// and the last line takes the remainder, so the shares sum to totalDiscount
// exactly. Results come back in input order; callers must pass a stable order
// since the remainder follows the last line. When the other shares round up the
// remainder can be negative, raising the last line's price by at most the
// accumulated rounding: four 1.00 lines sharing 0.02 give the last line -0.01.
// Line IDs must be unique.
//
// A single line absorbs min(totalDiscount, line total). When the discount exceeds
// the sum of line totals the discounted prices floor at zero and the Applied
// amounts add up to less than totalDiscount.
func Prorate(lines []Line, totalDiscount decimal.Decimal, currency valueobject.Currency) ([]Allocation, error) {
	if err := validate(lines, totalDiscount, currency); err != nil {
		return nil, err
	}
	places := currency.Precision()

	totals := make([]decimal.Decimal, len(lines))
	sum := decimal.Zero
	for i, line := range lines {
		totals[i] = line.TotalPrice().Amount()
		sum = sum.Add(totals[i])
	}

	shares := make([]decimal.Decimal, len(lines))
	switch {
	case totalDiscount.IsZero():
		for i := range shares {
			shares[i] = decimal.Zero
		}
	case len(lines) == 1:
		shares[0] = decimal.Min(totalDiscount, totals[0])
	default:
		last := len(lines) - 1
		distributed := decimal.Zero
		for i := 0; i < last; i++ {
			shares[i] = decimal.Zero
			if sum.IsPositive() {
				shares[i] = totals[i].Div(sum).Mul(totalDiscount).Round(places)
			}
			distributed = distributed.Add(shares[i])
		}
		shares[last] = totalDiscount.Sub(distributed)
	}

	out := make([]Allocation, len(lines))
	for i, line := range lines {
		out[i] = allocate(line, totals[i], shares[i], currency, places)
	}
	return out, nil
}

func allocate(line Line, total, share decimal.Decimal, currency valueobject.Currency, places int32) Allocation {
	a := Allocation{
		LineID:    line.ID,
		Discount:  money(share, currency),
		Applied:   money(decimal.Max(decimal.Zero, decimal.Min(share, total)), currency),
		UnitPrice: line.UnitPrice,
	}
	if share.IsZero() {
		return a
	}
	unit := total.Sub(share).Div(decimal.NewFromInt(int64(line.Quantity))).Round(places)
	a.UnitPrice = money(decimal.Max(unit, decimal.Zero), currency)
	return a
}

func validate(lines []Line, totalDiscount decimal.Decimal, currency valueobject.Currency) error {
	if currency == "" {
		return fmt.Errorf("%w: currency is required", shared.ErrInvalidInput)
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: no lines to prorate over", shared.ErrInvalidInput)
	}
	if totalDiscount.IsNegative() {
		return fmt.Errorf("%w: discount %s is negative", shared.ErrInvalidInput, totalDiscount)
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, dup := seen[line.ID]; dup {
			return fmt.Errorf("%w: line %s appears more than once", shared.ErrInvalidInput, line.ID)
		}
		seen[line.ID] = struct{}{}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: line %s has quantity %d", shared.ErrInvalidInput, line.ID, line.Quantity)
		}
		if line.UnitPrice.Currency() != currency {
			return fmt.Errorf("%w: line %s is in %s, discount in %s",
				shared.ErrCurrencyMismatch, line.ID, line.UnitPrice.Currency(), currency)
		}
	}
	return nil
}

// currency was validated against every line, so construction cannot fail.
func money(amount decimal.Decimal, currency valueobject.Currency) valueobject.Money {
	m, err := valueobject.NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// ByLineID returns the discount share per line.
func ByLineID(allocations []Allocation) map[uuid.UUID]valueobject.Money {
	out := make(map[uuid.UUID]valueobject.Money, len(allocations))
	for _, a := range allocations {
		out[a.LineID] = a.Discount
	}
	return out
}

// Sum adds up the Discount and Applied amounts of allocations.
func Sum(allocations []Allocation, currency valueobject.Currency) (discount, applied valueobject.Money, err error) {
	discount, applied = valueobject.Zero(currency), valueobject.Zero(currency)
	for _, a := range allocations {
		if discount, err = discount.Add(a.Discount); err != nil {
			return valueobject.Money{}, valueobject.Money{}, err
		}
		if applied, err = applied.Add(a.Applied); err != nil {
			return valueobject.Money{}, valueobject.Money{}, err
		}
	}
	return discount, applied, nil
}

// ClampShippingDiscount applies a shipping voucher: max(price - discount, 0).
// A negative discount is rejected.
func ClampShippingDiscount(price, discount valueobject.Money) (valueobject.Money, error) {
	if discount.IsNegative() {
		return valueobject.Money{}, fmt.Errorf("%w: shipping discount %s is negative", shared.ErrInvalidInput, discount)
	}
	rest, err := price.Subtract(discount)
	if err != nil {
		return valueobject.Money{}, err
	}
	if rest.IsNegative() {
		return valueobject.Zero(price.Currency()), nil
	}
	return rest, nil
}
