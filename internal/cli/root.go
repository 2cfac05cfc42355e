// Package cli implements the flattax operator command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/erp/flattax/internal/infrastructure/config"
	"github.com/erp/flattax/internal/infrastructure/logger"
	"github.com/erp/flattax/internal/infrastructure/ratecache"
	"github.com/erp/flattax/internal/infrastructure/ratestore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RateStore reads and writes the shared rate table.
type RateStore interface {
	Load(ctx context.Context) (*taxes.RateTable, error)
	Save(ctx context.Context, table *taxes.RateTable) error
	Location() string
}

// RatePublisher announces a new rate table to running servers.
type RatePublisher interface {
	PublishTable(ctx context.Context, table *taxes.RateTable) error
	Channel() string
	Close() error
}

// app carries state shared by the commands. The factories are swapped in tests.
type app struct {
	configPath string
	verbose    bool

	cfg *config.Config
	log *zap.Logger

	newStore     func(ctx context.Context, cfg config.RateStoreConfig, log *zap.Logger) (RateStore, error)
	newPublisher func(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (RatePublisher, error)
}

func newApp() *app {
	return &app{
		newStore: func(ctx context.Context, cfg config.RateStoreConfig, log *zap.Logger) (RateStore, error) {
			return ratestore.NewS3Store(ctx, cfg, ratestore.WithLogger(log))
		},
		newPublisher: func(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (RatePublisher, error) {
			return ratecache.NewRedisInvalidator(ctx, cfg, ratecache.WithLogger(log))
		},
	}
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the flattax command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flattax",
		Short: "Flat-percentage tax tooling",
		Long: `flattax works with the flat tax configuration shared by the pricing servers.

Examples:
  flattax rates list
  flattax price --amount 100 --rate reduced
  flattax prorate --discount 10 --line 30:1 --line 70:1
  flattax rates push --config /etc/flattax/config.toml
  flattax loadgen --target http://localhost:8080 --qps 50 --duration 1m`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is ./config.toml or /etc/flattax/config.toml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(ratesCmd(a), priceCmd(a), prorateCmd(a), loadgenCmd(a), versionCmd())
	return cmd
}

// init loads configuration and builds the logger. The CLI logs to stderr so
// command output stays clean.
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logCfg := cfg.Log
	logCfg.Output = "stderr"
	logCfg.Level = "warn"
	if a.verbose {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// Version is set at build time.
var Version = "dev"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flattax version %s\n", Version)
		},
	}
}
