package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const checkoutPricePath = "/api/v1/taxes/checkouts/price"

// LoadOptions configure a load run against the checkout pricing endpoint.
type LoadOptions struct {
	Target      string
	QPS         float64
	Duration    time.Duration
	Concurrency int
	Seed        uint64
	Currency    string
	TaxCodes    []string
	Timeout     time.Duration
}

// LoadReport summarizes a load run.
type LoadReport struct {
	Requests int
	Failures int
	Statuses map[int]int
	Elapsed  time.Duration
	latency  time.Duration
}

// MeanLatency is the average request latency, zero when nothing was sent.
func (r LoadReport) MeanLatency() time.Duration {
	if r.Requests == 0 {
		return 0
	}
	return r.latency / time.Duration(r.Requests)
}

func loadgenCmd(a *app) *cobra.Command {
	opts := LoadOptions{}

	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Send generated checkouts to a running server",
		Long: `Send randomly generated checkouts to POST ` + checkoutPricePath + `
at a fixed rate and report status codes and latency.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.QPS <= 0 || opts.Concurrency < 1 || opts.Duration <= 0 {
				return errors.New("qps, concurrency and duration must be positive")
			}
			if len(opts.TaxCodes) == 0 {
				if table, err := a.cfg.Taxes.RateTable(); err == nil {
					opts.TaxCodes = table.Names()
				}
			}
			report, err := RunLoad(contextOf(cmd), opts, &http.Client{Timeout: opts.Timeout}, a.log.Named("loadgen"))
			if err != nil {
				return err
			}
			return writeReport(cmd, report)
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "http://localhost:8080", "server base URL")
	cmd.Flags().Float64Var(&opts.QPS, "qps", 10, "requests per second")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 10*time.Second, "how long to send requests")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "number of workers")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed, 0 picks one")
	cmd.Flags().StringVar(&opts.Currency, "currency", "USD", "checkout currency")
	cmd.Flags().StringSliceVar(&opts.TaxCodes, "tax-code", nil, "tax codes to put on products (default: configured rate names)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "per request timeout")
	return cmd
}

// RunLoad paces requests with a token bucket until Duration elapses or ctx ends.
func RunLoad(ctx context.Context, opts LoadOptions, client *http.Client, log *zap.Logger) (LoadReport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	url := strings.TrimRight(opts.Target, "/") + checkoutPricePath

	ctx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(opts.QPS), 1)
	faker := gofakeit.New(opts.Seed)
	var fakerMu sync.Mutex

	var (
		mu     sync.Mutex
		report = LoadReport{Statuses: map[int]int{}}
		wg     sync.WaitGroup
	)
	start := time.Now()

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				fakerMu.Lock()
				body, err := json.Marshal(fakeCheckout(faker, opts.Currency, opts.TaxCodes))
				fakerMu.Unlock()
				if err != nil {
					log.Error("encoding checkout", zap.Error(err))
					return
				}

				began := time.Now()
				status, err := post(ctx, client, url, body)
				took := time.Since(began)
				if ctx.Err() != nil {
					return
				}

				mu.Lock()
				report.Requests++
				report.latency += took
				if err != nil {
					report.Failures++
					log.Debug("request failed", zap.Error(err))
				} else {
					report.Statuses[status]++
					if status >= http.StatusBadRequest {
						report.Failures++
					}
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	report.Elapsed = time.Since(start)

	log.Info("load run finished",
		zap.Int("requests", report.Requests),
		zap.Int("failures", report.Failures),
		zap.Duration("mean_latency", report.MeanLatency()),
	)
	return report, nil
}

func post(ctx context.Context, client *http.Client, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

type fakeMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type fakeProduct struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TaxCode string `json:"tax_code,omitempty"`
}

type fakeLine struct {
	ID        string      `json:"id"`
	Product   fakeProduct `json:"product"`
	UnitPrice fakeMoney   `json:"unit_price"`
	Quantity  int         `json:"quantity"`
}

type fakeVoucher struct {
	Code     string    `json:"code"`
	Type     string    `json:"type"`
	Discount fakeMoney `json:"discount"`
}

type fakeCheckoutBody struct {
	ID            string       `json:"id"`
	Currency      string       `json:"currency"`
	Lines         []fakeLine   `json:"lines"`
	DeliveryPrice *fakeMoney   `json:"delivery_price,omitempty"`
	Voucher       *fakeVoucher `json:"voucher,omitempty"`
}

// fakeCheckout builds a checkout of 1 to 5 lines, sometimes with shipping and
// a voucher.
func fakeCheckout(f *gofakeit.Faker, currency string, taxCodes []string) fakeCheckoutBody {
	amount := func(min, max float64) fakeMoney {
		return fakeMoney{Amount: fmt.Sprintf("%.2f", f.Price(min, max)), Currency: currency}
	}

	body := fakeCheckoutBody{ID: f.UUID(), Currency: currency}
	for i := f.Number(1, 5); i > 0; i-- {
		product := fakeProduct{ID: f.UUID(), Name: f.ProductName()}
		if len(taxCodes) > 0 {
			product.TaxCode = taxCodes[f.Number(0, len(taxCodes)-1)]
		}
		body.Lines = append(body.Lines, fakeLine{
			ID:        f.UUID(),
			Product:   product,
			UnitPrice: amount(1, 250),
			Quantity:  f.Number(1, 4),
		})
	}
	if f.Bool() {
		shipping := amount(0, 30)
		body.DeliveryPrice = &shipping
	}
	if f.Number(1, 4) == 1 {
		voucherType := "entire_order"
		if body.DeliveryPrice != nil && f.Bool() {
			voucherType = "shipping"
		}
		body.Voucher = &fakeVoucher{
			Code:     strings.ToUpper(f.LetterN(8)),
			Type:     voucherType,
			Discount: amount(1, 40),
		}
	}
	return body
}

func writeReport(cmd *cobra.Command, report LoadReport) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Requests:\t%d\n", report.Requests)
	fmt.Fprintf(w, "Failures:\t%d\n", report.Failures)
	fmt.Fprintf(w, "Elapsed:\t%s\n", report.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Mean latency:\t%s\n", report.MeanLatency().Round(time.Microsecond))

	codes := make([]int, 0, len(report.Statuses))
	for code := range report.Statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "HTTP %d:\t%d\n", code, report.Statuses[code])
	}
	return w.Flush()
}
