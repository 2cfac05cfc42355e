package valueobject

import (
	"encoding/json"
	"fmt"

	"github.com/erp/flattax/internal/domain/shared"
)

// ValueKind identifies which shape a PriceValue has.
type ValueKind string

const (
	KindMoney           ValueKind = "money"
	KindTaxedMoney      ValueKind = "taxed_money"
	KindMoneyRange      ValueKind = "money_range"
	KindTaxedMoneyRange ValueKind = "taxed_money_range"
)

// PriceValue is one of Money, TaxedMoney, MoneyRange or TaxedMoneyRange.
// The set is closed: the marker method is unexported, so callers can switch
// over the four concrete types exhaustively.
type PriceValue interface {
	Kind() ValueKind
	priceValue()
}

func (Money) priceValue()           {}
func (TaxedMoney) priceValue()      {}
func (MoneyRange) priceValue()      {}
func (TaxedMoneyRange) priceValue() {}

// Kind reports KindMoney.
func (Money) Kind() ValueKind { return KindMoney }

// Kind reports KindTaxedMoney.
func (TaxedMoney) Kind() ValueKind { return KindTaxedMoney }

// Kind reports KindMoneyRange.
func (MoneyRange) Kind() ValueKind { return KindMoneyRange }

// Kind reports KindTaxedMoneyRange.
func (TaxedMoneyRange) Kind() ValueKind { return KindTaxedMoneyRange }

// TaxedMoney is a net/gross pair in a single currency.
// net == gross means no tax has been applied yet.
type TaxedMoney struct {
	net   Money
	gross Money
}

// NewTaxedMoney creates a TaxedMoney, failing when net and gross use different currencies.
func NewTaxedMoney(net, gross Money) (TaxedMoney, error) {
	if net.currency != gross.currency {
		return TaxedMoney{}, fmt.Errorf("%w: net is %s, gross is %s", shared.ErrCurrencyMismatch, net.currency, gross.currency)
	}
	return TaxedMoney{net: net, gross: gross}, nil
}

// Untaxed returns a TaxedMoney with net and gross both equal to m.
func Untaxed(m Money) TaxedMoney {
	return TaxedMoney{net: m, gross: m}
}

// ZeroTaxed returns an untaxed zero amount.
func ZeroTaxed(currency Currency) TaxedMoney {
	return Untaxed(Zero(currency))
}

// Net returns the pre-tax amount
func (t TaxedMoney) Net() Money { return t.net }

// Gross returns the post-tax amount
func (t TaxedMoney) Gross() Money { return t.gross }

// Currency returns the currency of both amounts
func (t TaxedMoney) Currency() Currency { return t.net.currency }

// IsTaxed reports whether net and gross differ.
func (t TaxedMoney) IsTaxed() bool {
	return !t.net.amount.Equal(t.gross.amount)
}

// Tax returns gross minus net.
func (t TaxedMoney) Tax() Money {
	return Money{amount: t.gross.amount.Sub(t.net.amount), currency: t.net.currency}
}

// Add adds net to net and gross to gross.
func (t TaxedMoney) Add(other TaxedMoney) (TaxedMoney, error) {
	net, err := t.net.Add(other.net)
	if err != nil {
		return TaxedMoney{}, err
	}
	gross, err := t.gross.Add(other.gross)
	if err != nil {
		return TaxedMoney{}, err
	}
	return TaxedMoney{net: net, gross: gross}, nil
}

// MultiplyByInt multiplies both amounts by n.
func (t TaxedMoney) MultiplyByInt(n int64) TaxedMoney {
	return TaxedMoney{net: t.net.MultiplyByInt(n), gross: t.gross.MultiplyByInt(n)}
}

// Quantize rounds both amounts to places fractional digits.
func (t TaxedMoney) Quantize(places int32) TaxedMoney {
	return TaxedMoney{net: t.net.Quantize(places), gross: t.gross.Quantize(places)}
}

// Equals compares net and gross.
func (t TaxedMoney) Equals(other TaxedMoney) bool {
	return t.net.Equals(other.net) && t.gross.Equals(other.gross)
}

// String returns "net/gross CUR".
func (t TaxedMoney) String() string {
	return fmt.Sprintf("%s/%s %s", t.net.amount.String(), t.gross.amount.String(), t.net.currency)
}

// MarshalJSON implements json.Marshaler
func (t TaxedMoney) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Net   Money `json:"net"`
		Gross Money `json:"gross"`
	}{Net: t.net, Gross: t.gross})
}

// MoneyRange is a start/stop pair of Money, e.g. the price span of a product's variants.
type MoneyRange struct {
	start Money
	stop  Money
}

// NewMoneyRange creates a MoneyRange; both ends must share a currency.
func NewMoneyRange(start, stop Money) (MoneyRange, error) {
	if start.currency != stop.currency {
		return MoneyRange{}, fmt.Errorf("%w: range start is %s, stop is %s", shared.ErrCurrencyMismatch, start.currency, stop.currency)
	}
	return MoneyRange{start: start, stop: stop}, nil
}

// Start returns the lower end
func (r MoneyRange) Start() Money { return r.start }

// Stop returns the upper end
func (r MoneyRange) Stop() Money { return r.stop }

// TaxedMoneyRange is a start/stop pair of TaxedMoney.
type TaxedMoneyRange struct {
	start TaxedMoney
	stop  TaxedMoney
}

// NewTaxedMoneyRange creates a TaxedMoneyRange; both ends must share a currency.
func NewTaxedMoneyRange(start, stop TaxedMoney) (TaxedMoneyRange, error) {
	if start.Currency() != stop.Currency() {
		return TaxedMoneyRange{}, fmt.Errorf("%w: range start is %s, stop is %s", shared.ErrCurrencyMismatch, start.Currency(), stop.Currency())
	}
	return TaxedMoneyRange{start: start, stop: stop}, nil
}

// Start returns the lower end
func (r TaxedMoneyRange) Start() TaxedMoney { return r.start }

// Stop returns the upper end
func (r TaxedMoneyRange) Stop() TaxedMoney { return r.stop }

// Equals compares both ends.
func (r TaxedMoneyRange) Equals(other TaxedMoneyRange) bool {
	return r.start.Equals(other.start) && r.stop.Equals(other.stop)
}

// MarshalJSON implements json.Marshaler
func (r TaxedMoneyRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start TaxedMoney `json:"start"`
		Stop  TaxedMoney `json:"stop"`
	}{Start: r.start, Stop: r.stop})
}

// MarshalJSON implements json.Marshaler
func (r MoneyRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start Money `json:"start"`
		Stop  Money `json:"stop"`
	}{Start: r.start, Stop: r.stop})
}
