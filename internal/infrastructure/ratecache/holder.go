// Package ratecache keeps the rate table in effect and swaps it when the
// configuration changes, locally or through Redis Pub/Sub.
package ratecache

import (
	"sync"
	"sync/atomic"

	"github.com/erp/flattax/internal/domain/taxes"
	"go.uber.org/zap"
)

// RateHolder holds the current rate table. Readers never block; a change
// replaces the whole table so a reader sees either the old or the new one.
type RateHolder struct {
	table  atomic.Pointer[taxes.RateTable]
	logger *zap.Logger

	mu          sync.Mutex // serializes updates
	lastApplied int64
}

// NewRateHolder creates a holder serving initial. A nil initial serves an empty table.
func NewRateHolder(initial *taxes.RateTable, logger *zap.Logger) *RateHolder {
	if initial == nil {
		initial = taxes.EmptyRateTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &RateHolder{logger: logger}
	h.table.Store(initial)
	return h
}

// Current returns the table in effect.
func (h *RateHolder) Current() *taxes.RateTable {
	return h.table.Load()
}

// Swap installs table and returns the one it replaced.
func (h *RateHolder) Swap(table *taxes.RateTable) *taxes.RateTable {
	if table == nil {
		table = taxes.EmptyRateTable()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.swapLocked(table)
}

func (h *RateHolder) swapLocked(table *taxes.RateTable) *taxes.RateTable {
	old := h.table.Swap(table)
	h.logger.Info("tax rates updated",
		zap.Strings("rates", table.Names()),
		zap.Int("previous_count", old.Len()),
	)
	return old
}

// Reload builds a table with load and installs it. On error the current table
// stays in effect.
func (h *RateHolder) Reload(load func() (*taxes.RateTable, error)) error {
	table, err := load()
	if err != nil {
		h.logger.Error("reloading tax rates failed, keeping current rates", zap.Error(err))
		return err
	}
	h.Swap(table)
	return nil
}

// Apply installs the rates carried by msg. Messages older than the last
// stamped one applied and malformed messages are logged and dropped. Unstamped
// messages always apply and leave the last timestamp as it was.
func (h *RateHolder) Apply(msg RatesUpdateMessage) bool {
	table, err := msg.Table()
	if err != nil {
		h.logger.Error("dropping malformed rates update", zap.Error(err))
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if msg.Timestamp != 0 && msg.Timestamp < h.lastApplied {
		h.logger.Warn("dropping stale rates update",
			zap.Int64("timestamp", msg.Timestamp),
			zap.Int64("last_applied", h.lastApplied),
		)
		return false
	}
	if msg.Timestamp != 0 {
		h.lastApplied = msg.Timestamp
	}
	h.swapLocked(table)
	return true
}
