package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName names the meter the service records on.
const MeterName = "github.com/erp/flattax"

var (
	attrStage   = attribute.Key("stage")
	attrOutcome = attribute.Key("outcome")
)

// StageMetrics counts pricing stage runs and rate table updates.
type StageMetrics struct {
	computed    *Counter
	skipped     *Counter
	rateUpdates *Counter
}

// NewStageMetrics registers the counters on meter.
func NewStageMetrics(meter metric.Meter) (*StageMetrics, error) {
	computed, err := NewCounter(meter, "flattax.stage.computed", "Stage runs that computed taxes", "{run}")
	if err != nil {
		return nil, err
	}
	skipped, err := NewCounter(meter, "flattax.stage.skipped", "Stage runs that returned the previous value", "{run}")
	if err != nil {
		return nil, err
	}
	updates, err := NewCounter(meter, "flattax.rates.updates", "Rate table update attempts", "{update}")
	if err != nil {
		return nil, err
	}
	return &StageMetrics{computed: computed, skipped: skipped, rateUpdates: updates}, nil
}

// RecordStage counts one run of stage.
func (m *StageMetrics) RecordStage(ctx context.Context, stage string, skipped bool) {
	if skipped {
		m.skipped.Inc(ctx, attrStage.String(stage))
		return
	}
	m.computed.Inc(ctx, attrStage.String(stage))
}

// RecordRatesUpdate counts a rate table update, applied or dropped.
func (m *StageMetrics) RecordRatesUpdate(ctx context.Context, applied bool) {
	outcome := "dropped"
	if applied {
		outcome = "applied"
	}
	m.rateUpdates.Inc(ctx, attrOutcome.String(outcome))
}
