package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/erp/flattax/internal/application/flattax"
	"github.com/erp/flattax/internal/infrastructure/ratecache"
	"github.com/erp/flattax/internal/interfaces/http/handler"
	"github.com/erp/flattax/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTaxServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	holder := ratecache.NewRateHolder(mustTable(t, map[string]int64{"standard": 20, "reduced": 5}), nil)
	plugin := flattax.NewPlugin(flattax.Settings{Active: true, ChargeTaxesOnShipping: true}, holder, nil)
	srv := httptest.NewServer(router.New(handler.NewTaxHandler(plugin), router.Options{}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFakeCheckout(t *testing.T) {
	f := gofakeit.New(42)
	for i := 0; i < 50; i++ {
		body := fakeCheckout(f, "EUR", []string{"standard", "reduced"})
		require.NotEmpty(t, body.Lines)
		assert.LessOrEqual(t, len(body.Lines), 5)
		for _, line := range body.Lines {
			assert.Equal(t, "EUR", line.UnitPrice.Currency)
			assert.Contains(t, []string{"standard", "reduced"}, line.Product.TaxCode)
			assert.GreaterOrEqual(t, line.Quantity, 1)
		}
		if body.Voucher != nil && body.Voucher.Type == "shipping" {
			assert.NotNil(t, body.DeliveryPrice)
		}
	}
}

func TestFakeCheckout_SeedIsDeterministic(t *testing.T) {
	a, err := json.Marshal(fakeCheckout(gofakeit.New(7), "USD", nil))
	require.NoError(t, err)
	b, err := json.Marshal(fakeCheckout(gofakeit.New(7), "USD", nil))
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestRunLoad(t *testing.T) {
	srv := newTaxServer(t)

	report, err := RunLoad(context.Background(), LoadOptions{
		Target:      srv.URL + "/",
		QPS:         100,
		Duration:    300 * time.Millisecond,
		Concurrency: 3,
		Seed:        1,
		Currency:    "USD",
		TaxCodes:    []string{"standard", "reduced", "unknown"},
	}, srv.Client(), nil)
	require.NoError(t, err)

	assert.Positive(t, report.Requests)
	assert.Zero(t, report.Failures)
	assert.Equal(t, report.Requests, report.Statuses[http.StatusOK])
	assert.Positive(t, report.MeanLatency())
}

func TestRunLoad_CountsErrorStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	report, err := RunLoad(context.Background(), LoadOptions{
		Target:      srv.URL,
		QPS:         50,
		Duration:    200 * time.Millisecond,
		Concurrency: 1,
		Currency:    "USD",
	}, srv.Client(), nil)
	require.NoError(t, err)

	assert.Positive(t, report.Requests)
	assert.Equal(t, report.Requests, report.Failures)
	assert.Equal(t, report.Requests, report.Statuses[http.StatusServiceUnavailable])
}

func TestLoadReport_MeanLatencyEmpty(t *testing.T) {
	assert.Zero(t, LoadReport{}.MeanLatency())
}

func TestLoadgenCommand(t *testing.T) {
	srv := newTaxServer(t)
	h := newHarness(t, testConfig)

	out, err := h.run("loadgen", "--target", srv.URL, "--qps", "40", "--duration", "200ms", "--concurrency", "2", "--seed", "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"Failures:", "0"}, row(out, "Failures:"))
	assert.NotNil(t, row(out, "HTTP"))
}

func TestLoadgenCommand_RejectsBadOptions(t *testing.T) {
	h := newHarness(t, testConfig)

	_, err := h.run("loadgen", "--qps", "0")
	assert.Error(t, err)

	_, err = h.run("loadgen", "--concurrency", "0")
	assert.Error(t, err)
}
