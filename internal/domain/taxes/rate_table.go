package taxes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultRateName is the rate used when a product has no tax code, when a code
// is not in the table, and always for shipping.
const DefaultRateName = "standard"

var hundred = decimal.NewFromInt(100)

// RateEntry is a named flat tax rate. Percentage is stored as configured (10 for 10%).
type RateEntry struct {
	Name       string
	Percentage decimal.Decimal
}

// Fraction returns the rate as a fraction of one (0.1 for 10%).
func (e RateEntry) Fraction() decimal.Decimal {
	return e.Percentage.Div(hundred)
}

// Apply taxes base at this rate.
func (e RateEntry) Apply(base valueobject.PriceValue, keepGross bool) (valueobject.PriceValue, error) {
	return ApplyFlatTax(base, e.Fraction(), keepGross)
}

// TaxType is a selectable tax code offered to catalog editors.
type TaxType struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// RateTable maps rate names to entries. It is immutable once built and safe for
// concurrent readers; configuration changes build a new table.
// A nil *RateTable behaves as an empty table.
type RateTable struct {
	entries map[string]RateEntry
}

// NewRateTable builds a table from rate name to percentage.
func NewRateTable(percentages map[string]decimal.Decimal) (*RateTable, error) {
	entries := make(map[string]RateEntry, len(percentages))
	for name, pct := range percentages {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: tax rate name cannot be empty", shared.ErrInvalidConfig)
		}
		if pct.IsNegative() {
			return nil, fmt.Errorf("%w: tax rate %q has negative percentage %s", shared.ErrInvalidConfig, name, pct)
		}
		entries[name] = RateEntry{Name: name, Percentage: pct}
	}
	return &RateTable{entries: entries}, nil
}

// EmptyRateTable returns a table with no rates; taxing with it is a no-op.
func EmptyRateTable() *RateTable {
	return &RateTable{entries: map[string]RateEntry{}}
}

// Len returns the number of rates
func (t *RateTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// IsEmpty reports whether the table has no rates.
func (t *RateTable) IsEmpty() bool {
	return t.Len() == 0
}

// Entry returns the rate with exactly this name.
func (t *RateTable) Entry(name string) (RateEntry, bool) {
	if t == nil {
		return RateEntry{}, false
	}
	e, ok := t.entries[name]
	return e, ok
}

// Lookup returns the named rate, or the default rate when the name is absent.
// It fails with ErrUnknownDefaultRate when neither exists.
func (t *RateTable) Lookup(name string) (RateEntry, error) {
	if e, ok := t.Entry(name); ok {
		return e, nil
	}
	if e, ok := t.Entry(DefaultRateName); ok {
		return e, nil
	}
	return RateEntry{}, fmt.Errorf("%w: no rate %q and no %q rate", shared.ErrUnknownDefaultRate, name, DefaultRateName)
}

// PercentageByName returns the configured percentage for name, falling back to the
// default rate. It returns zero for an empty table or name, and when neither rate exists.
func (t *RateTable) PercentageByName(name string) decimal.Decimal {
	if t.IsEmpty() || name == "" {
		return decimal.Zero
	}
	e, err := t.Lookup(name)
	if err != nil {
		return decimal.Zero
	}
	return e.Percentage
}

// Names returns the rate names in lexical order.
func (t *RateTable) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Percentages returns a copy of the table as name to percentage.
func (t *RateTable) Percentages() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, t.Len())
	for _, name := range t.Names() {
		out[name] = t.entries[name].Percentage
	}
	return out
}

// TaxTypes returns one TaxType per rate, sorted by code.
func (t *RateTable) TaxTypes() []TaxType {
	names := t.Names()
	types := make([]TaxType, 0, len(names))
	for _, name := range names {
		types = append(types, TaxType{Code: name, Description: name})
	}
	return types
}
