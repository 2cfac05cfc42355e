package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/erp/flattax/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testConfig = `
[taxes.rates]
standard = 20
reduced = 5
`

type fakeStore struct {
	table   *taxes.RateTable
	saved   *taxes.RateTable
	loadErr error
	saveErr error
}

func (s *fakeStore) Load(context.Context) (*taxes.RateTable, error) {
	return s.table, s.loadErr
}

func (s *fakeStore) Save(_ context.Context, table *taxes.RateTable) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = table
	return nil
}

func (s *fakeStore) Location() string { return "s3://fake/rates.json" }

type fakePublisher struct {
	published []*taxes.RateTable
	closed    bool
	err       error
}

func (p *fakePublisher) PublishTable(_ context.Context, table *taxes.RateTable) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, table)
	return nil
}

func (p *fakePublisher) Channel() string { return "flattax:rates" }

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

type harness struct {
	configPath string
	store      *fakeStore
	publisher  *fakePublisher
}

func newHarness(t *testing.T, body string) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return &harness{configPath: path, store: &fakeStore{}, publisher: &fakePublisher{}}
}

func (h *harness) run(args ...string) (string, error) {
	a := newApp()
	a.newStore = func(context.Context, config.RateStoreConfig, *zap.Logger) (RateStore, error) {
		return h.store, nil
	}
	a.newPublisher = func(context.Context, config.RedisConfig, *zap.Logger) (RatePublisher, error) {
		return h.publisher, nil
	}

	var out bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", h.configPath))
	err := cmd.Execute()
	return out.String(), err
}

// row returns the fields of the first output line whose first field is key.
func row(out, key string) []string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == key {
			return fields
		}
	}
	return nil
}

func mustTable(t *testing.T, rates map[string]int64) *taxes.RateTable {
	t.Helper()
	pct := make(map[string]decimal.Decimal, len(rates))
	for name, v := range rates {
		pct[name] = decimal.NewFromInt(v)
	}
	table, err := taxes.NewRateTable(pct)
	require.NoError(t, err)
	return table
}

func TestPriceCommand(t *testing.T) {
	h := newHarness(t, testConfig)

	t.Run("adds tax to net amount", func(t *testing.T) {
		out, err := h.run("price", "--amount", "100")
		require.NoError(t, err)
		assert.Equal(t, []string{"Net:", "100"}, row(out, "Net:"))
		assert.Equal(t, []string{"Gross:", "120"}, row(out, "Gross:"))
		assert.Equal(t, []string{"Tax:", "20"}, row(out, "Tax:"))
		assert.Equal(t, []string{"Currency:", "USD"}, row(out, "Currency:"))
	})

	t.Run("keeps gross", func(t *testing.T) {
		out, err := h.run("price", "--amount", "105", "--rate", "reduced", "--keep-gross")
		require.NoError(t, err)
		assert.Equal(t, []string{"Rate:", "reduced", "(5%)"}, row(out, "Rate:"))
		assert.Equal(t, []string{"Net:", "100"}, row(out, "Net:"))
		assert.Equal(t, []string{"Gross:", "105"}, row(out, "Gross:"))
	})

	t.Run("unknown rate uses default", func(t *testing.T) {
		out, err := h.run("price", "--amount", "10", "--rate", "luxury")
		require.NoError(t, err)
		assert.Equal(t, []string{"Gross:", "12"}, row(out, "Gross:"))
	})

	t.Run("bad currency", func(t *testing.T) {
		_, err := h.run("price", "--amount", "10", "--currency", "XX")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("amount is required", func(t *testing.T) {
		_, err := h.run("price")
		assert.Error(t, err)
	})
}

func TestPriceCommand_NoDefaultRate(t *testing.T) {
	h := newHarness(t, "[taxes.rates]\nreduced = 5\n")

	_, err := h.run("price", "--amount", "10", "--rate", "luxury")
	assert.ErrorIs(t, err, shared.ErrUnknownDefaultRate)
}

func TestProrateCommand(t *testing.T) {
	h := newHarness(t, testConfig)

	t.Run("proportional split", func(t *testing.T) {
		out, err := h.run("prorate", "--discount", "10", "--line", "30:1", "--line", "70:1")
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "30", "1", "3", "3", "27"}, row(out, "1"))
		assert.Equal(t, []string{"2", "70", "1", "7", "7", "63"}, row(out, "2"))
		assert.Equal(t, []string{"TOTAL", "10", "10"}, row(out, "TOTAL"))
	})

	t.Run("last line takes the remainder", func(t *testing.T) {
		out, err := h.run("prorate", "--discount", "10", "--line", "1", "--line", "1", "--line", "1")
		require.NoError(t, err)
		assert.Equal(t, "3.33", row(out, "1")[3])
		assert.Equal(t, "3.33", row(out, "2")[3])
		assert.Equal(t, "3.34", row(out, "3")[3])
		assert.Equal(t, []string{"TOTAL", "10", "3"}, row(out, "TOTAL"))
	})

	t.Run("discount larger than lines floors at zero", func(t *testing.T) {
		out, err := h.run("prorate", "--discount", "150", "--line", "30:1", "--line", "70:1")
		require.NoError(t, err)
		assert.Equal(t, "0", row(out, "1")[5])
		assert.Equal(t, "0", row(out, "2")[5])
		assert.Equal(t, []string{"TOTAL", "150", "100"}, row(out, "TOTAL"))
	})

	t.Run("bad quantity", func(t *testing.T) {
		_, err := h.run("prorate", "--discount", "10", "--line", "30:x")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("negative discount", func(t *testing.T) {
		_, err := h.run("prorate", "--discount", "-1", "--line", "30")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestParseLine(t *testing.T) {
	line, err := parseLine("12.50:3", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "12.5", line.UnitPrice.Amount().String())
	assert.Equal(t, 3, line.Quantity)

	line, err = parseLine("4", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	_, err = parseLine("abc:1", "EUR")
	assert.Error(t, err)
}

func TestRatesList(t *testing.T) {
	t.Run("from config", func(t *testing.T) {
		h := newHarness(t, testConfig)
		out, err := h.run("rates", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "Source: config")
		assert.Equal(t, []string{"reduced", "5"}, row(out, "reduced"))
		assert.Equal(t, []string{"standard", "20", "default"}, row(out, "standard"))
		assert.NotContains(t, out, "warning")
	})

	t.Run("from store", func(t *testing.T) {
		h := newHarness(t, testConfig)
		h.store.table = mustTable(t, map[string]int64{"books": 7})
		out, err := h.run("rates", "list", "--from-store")
		require.NoError(t, err)
		assert.Contains(t, out, "Source: s3://fake/rates.json")
		assert.Equal(t, []string{"books", "7"}, row(out, "books"))
		assert.Contains(t, out, `warning: no "standard" rate`)
	})

	t.Run("store failure", func(t *testing.T) {
		h := newHarness(t, testConfig)
		h.store.loadErr = shared.ErrNotFound
		_, err := h.run("rates", "list", "--from-store")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestRatesPush(t *testing.T) {
	t.Run("writes configured table", func(t *testing.T) {
		h := newHarness(t, testConfig)
		out, err := h.run("rates", "push")
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote 2 rates to s3://fake/rates.json")
		require.NotNil(t, h.store.saved)
		assert.Equal(t, []string{"reduced", "standard"}, h.store.saved.Names())
		assert.Empty(t, h.publisher.published)
	})

	t.Run("publishes when asked", func(t *testing.T) {
		h := newHarness(t, testConfig)
		out, err := h.run("rates", "push", "--publish")
		require.NoError(t, err)
		assert.Contains(t, out, "Published 2 rates on flattax:rates")
		require.Len(t, h.publisher.published, 1)
		assert.Same(t, h.store.saved, h.publisher.published[0])
		assert.True(t, h.publisher.closed)
	})

	t.Run("save failure skips publish", func(t *testing.T) {
		h := newHarness(t, testConfig)
		h.store.saveErr = errors.New("bucket gone")
		_, err := h.run("rates", "push", "--publish")
		assert.EqualError(t, err, "bucket gone")
		assert.Empty(t, h.publisher.published)
	})
}

func TestRatesPublish(t *testing.T) {
	t.Run("configured table", func(t *testing.T) {
		h := newHarness(t, testConfig)
		_, err := h.run("rates", "publish")
		require.NoError(t, err)
		require.Len(t, h.publisher.published, 1)
		assert.Equal(t, "20", h.publisher.published[0].PercentageByName("standard").String())
		assert.True(t, h.publisher.closed)
	})

	t.Run("stored table", func(t *testing.T) {
		h := newHarness(t, testConfig)
		h.store.table = mustTable(t, map[string]int64{"standard": 19})
		_, err := h.run("rates", "publish", "--from-store")
		require.NoError(t, err)
		require.Len(t, h.publisher.published, 1)
		assert.Same(t, h.store.table, h.publisher.published[0])
	})

	t.Run("publish failure", func(t *testing.T) {
		h := newHarness(t, testConfig)
		h.publisher.err = errors.New("redis down")
		_, err := h.run("rates", "publish")
		assert.EqualError(t, err, "redis down")
		assert.True(t, h.publisher.closed)
	})
}

func TestConfigErrorsStopCommands(t *testing.T) {
	h := newHarness(t, "[taxes.rates]\nstandard = -5\n")
	_, err := h.run("rates", "list")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t, testConfig)
	out, err := h.run("version")
	require.NoError(t, err)
	assert.Equal(t, "flattax version dev\n", out)
}
