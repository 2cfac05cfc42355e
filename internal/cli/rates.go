package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const storeTimeout = 30 * time.Second

func ratesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Inspect and distribute the rate table",
	}
	cmd.AddCommand(ratesListCmd(a), ratesPushCmd(a), ratesPublishCmd(a))
	return cmd
}

func ratesListCmd(a *app) *cobra.Command {
	var fromStore bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured tax rates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, source, err := a.rateTable(contextOf(cmd), fromStore)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Source: %s\n\n", source)
			if table.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), "(no tax rates configured)")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPERCENT\t")
			for _, name := range table.Names() {
				entry, _ := table.Entry(name)
				marker := ""
				if name == taxes.DefaultRateName {
					marker = "default"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, entry.Percentage.String(), marker)
			}
			if _, ok := table.Entry(taxes.DefaultRateName); !ok {
				fmt.Fprintf(w, "\nwarning: no %q rate; unknown rate names will fail\t\t\n", taxes.DefaultRateName)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&fromStore, "from-store", false, "read the table from the rate store instead of the config file")
	return cmd
}

func ratesPushCmd(a *app) *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Write the configured rate table to the rate store",
		Long: `Write taxes.rates from the config file to the object configured in [rate_store].

Servers read the stored table at startup. With --publish running servers are
also told to switch to it through Redis.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := a.cfg.Taxes.RateTable()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(contextOf(cmd), storeTimeout)
			defer cancel()

			store, err := a.newStore(ctx, a.cfg.RateStore, a.log.Named("ratestore"))
			if err != nil {
				return err
			}
			if err := store.Save(ctx, table); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rates to %s\n", table.Len(), store.Location())

			if publish {
				return a.publish(ctx, cmd, table)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "also announce the table over Redis")
	return cmd
}

func ratesPublishCmd(a *app) *cobra.Command {
	var fromStore bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Announce the rate table to running servers over Redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(contextOf(cmd), storeTimeout)
			defer cancel()

			table, _, err := a.rateTable(ctx, fromStore)
			if err != nil {
				return err
			}
			return a.publish(ctx, cmd, table)
		},
	}

	cmd.Flags().BoolVar(&fromStore, "from-store", false, "publish the table held in the rate store")
	return cmd
}

// rateTable returns the configured table, or the stored one when fromStore is set.
func (a *app) rateTable(ctx context.Context, fromStore bool) (*taxes.RateTable, string, error) {
	if !fromStore {
		table, err := a.cfg.Taxes.RateTable()
		return table, "config", err
	}
	store, err := a.newStore(ctx, a.cfg.RateStore, a.log.Named("ratestore"))
	if err != nil {
		return nil, "", err
	}
	table, err := store.Load(ctx)
	return table, store.Location(), err
}

func (a *app) publish(ctx context.Context, cmd *cobra.Command, table *taxes.RateTable) error {
	publisher, err := a.newPublisher(ctx, a.cfg.Redis, a.log.Named("redis"))
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			a.log.Warn("closing redis publisher", zap.Error(err))
		}
	}()

	if err := publisher.PublishTable(ctx, table); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %d rates on %s\n", table.Len(), publisher.Channel())
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
