package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/erp/flattax/internal/domain/discount"
	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func priceCmd(a *app) *cobra.Command {
	var (
		amount    string
		curr      string
		rateName  string
		keepGross bool
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Apply a configured rate to an amount",
		Long: `Apply a named rate from the configured table to an amount.

By default the amount is treated as net and tax is added on top. With
--keep-gross the amount is treated as gross and the net is derived from it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			currency, err := valueobject.ParseCurrency(curr)
			if err != nil {
				return err
			}
			base, err := valueobject.NewMoneyFromString(amount, currency)
			if err != nil {
				return err
			}
			table, err := a.cfg.Taxes.RateTable()
			if err != nil {
				return err
			}
			taxed, err := taxes.ApplyTaxToMoney(table, rateName, base, keepGross)
			if err != nil {
				return err
			}
			a.log.Debug("applied rate",
				zap.String("rate", rateName),
				zap.Bool("keep_gross", keepGross),
				zap.Stringer("base", base),
			)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Rate:\t%s (%s%%)\n", rateName, table.PercentageByName(rateName).String())
			fmt.Fprintf(w, "Net:\t%s\n", taxed.Net().Amount().String())
			fmt.Fprintf(w, "Gross:\t%s\n", taxed.Gross().Amount().String())
			fmt.Fprintf(w, "Tax:\t%s\n", taxed.Tax().Amount().String())
			fmt.Fprintf(w, "Currency:\t%s\n", currency)
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "amount to tax (required)")
	cmd.Flags().StringVar(&curr, "currency", "USD", "ISO 4217 currency code")
	cmd.Flags().StringVar(&rateName, "rate", taxes.DefaultRateName, "rate name; unknown names use the default rate")
	cmd.Flags().BoolVar(&keepGross, "keep-gross", false, "treat the amount as gross")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func prorateCmd(a *app) *cobra.Command {
	var (
		curr     string
		discAmt  string
		lineArgs []string
	)

	cmd := &cobra.Command{
		Use:   "prorate",
		Short: "Spread a discount over lines",
		Long: `Spread a discount over lines in proportion to their totals.

Lines are given as unit_price:quantity and keep the order they are given in;
the last line takes the rounding remainder.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			currency, err := valueobject.ParseCurrency(curr)
			if err != nil {
				return err
			}
			total, err := decimal.NewFromString(discAmt)
			if err != nil {
				return fmt.Errorf("%w: discount %q is not a number", shared.ErrInvalidInput, discAmt)
			}
			lines := make([]discount.Line, 0, len(lineArgs))
			for _, arg := range lineArgs {
				line, err := parseLine(arg, currency)
				if err != nil {
					return err
				}
				lines = append(lines, line)
			}

			allocations, err := discount.Prorate(lines, total, currency)
			if err != nil {
				return err
			}
			discounted, applied, err := discount.Sum(allocations, currency)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LINE\tUNIT\tQTY\tDISCOUNT\tAPPLIED\tNEW UNIT")
			for i, alloc := range allocations {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n", i+1,
					lines[i].UnitPrice.Amount().String(), lines[i].Quantity,
					alloc.Discount.Amount().String(), alloc.Applied.Amount().String(),
					alloc.UnitPrice.Amount().String())
			}
			fmt.Fprintf(w, "TOTAL\t\t\t%s\t%s\t\n", discounted.Amount().String(), applied.Amount().String())
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&curr, "currency", "USD", "ISO 4217 currency code")
	cmd.Flags().StringVar(&discAmt, "discount", "", "total discount amount (required)")
	cmd.Flags().StringArrayVar(&lineArgs, "line", nil, "line as unit_price:quantity, repeatable (required)")
	_ = cmd.MarkFlagRequired("discount")
	_ = cmd.MarkFlagRequired("line")
	return cmd
}

// parseLine reads "unit_price:quantity"; the quantity defaults to 1.
func parseLine(arg string, currency valueobject.Currency) (discount.Line, error) {
	unitStr, qtyStr, hasQty := strings.Cut(arg, ":")
	qty := 1
	if hasQty {
		n, err := strconv.Atoi(qtyStr)
		if err != nil {
			return discount.Line{}, fmt.Errorf("%w: line %q has a bad quantity", shared.ErrInvalidInput, arg)
		}
		qty = n
	}
	unit, err := valueobject.NewMoneyFromString(unitStr, currency)
	if err != nil {
		return discount.Line{}, fmt.Errorf("line %q: %w", arg, err)
	}
	return discount.Line{ID: uuid.New(), UnitPrice: unit, Quantity: qty}, nil
}
