package ratecache

import (
	"fmt"
	"time"

	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/shopspring/decimal"
)

// DefaultChannel is the Pub/Sub channel rate updates are sent on.
const DefaultChannel = "flattax:rates"

// RatesUpdateMessage carries a complete rate table. Percentages travel as
// decimal strings so no precision is lost.
type RatesUpdateMessage struct {
	Rates     map[string]string `json:"rates"`
	Timestamp int64             `json:"timestamp"`
}

// NewRatesUpdateMessage describes table, stamped with the current time.
func NewRatesUpdateMessage(table *taxes.RateTable) RatesUpdateMessage {
	rates := make(map[string]string, table.Len())
	for name, pct := range table.Percentages() {
		rates[name] = pct.String()
	}
	return RatesUpdateMessage{Rates: rates, Timestamp: time.Now().UnixNano()}
}

// Table builds the rate table the message describes.
func (m RatesUpdateMessage) Table() (*taxes.RateTable, error) {
	percentages := make(map[string]decimal.Decimal, len(m.Rates))
	for name, raw := range m.Rates {
		pct, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: rate %q has non-numeric value %q", shared.ErrInvalidConfig, name, raw)
		}
		percentages[name] = pct
	}
	return taxes.NewRateTable(percentages)
}
