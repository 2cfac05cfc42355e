package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/flattax/internal/application/flattax"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/erp/flattax/internal/infrastructure/config"
	"github.com/erp/flattax/internal/infrastructure/logger"
	"github.com/erp/flattax/internal/infrastructure/ratecache"
	"github.com/erp/flattax/internal/infrastructure/ratestore"
	"github.com/erp/flattax/internal/infrastructure/telemetry"
	"github.com/erp/flattax/internal/interfaces/http/handler"
	"github.com/erp/flattax/internal/interfaces/http/middleware"
	"github.com/erp/flattax/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Flat Tax API
//	@version		1.0
//	@description	Flat-percentage tax pricing for products, shipping, checkouts and orders

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// FLATTAX_CONFIG names a config file outside the default search path.
	cfg, err := config.Load(os.Getenv("FLATTAX_CONFIG"))
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log export", zap.Error(err))
	}
	level, _ := logger.ParseLevel(cfg.Log.Level)
	log := logProvider.Bridge(baseLog, cfg.Telemetry.ServiceName, level)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting flat tax service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.HTTP.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.Profiling.Enabled,
		ServerAddress:   cfg.Telemetry.Profiling.ServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Telemetry.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	stageMetrics, err := telemetry.NewStageMetrics(meterProvider.Meter("flattax"))
	if err != nil {
		log.Fatal("Failed to create stage metrics", zap.Error(err))
	}

	table, err := loadRates(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to load tax rates", zap.Error(err))
	}
	holder := ratecache.NewRateHolder(table, log.Named("rates"))

	plugin := flattax.NewPlugin(flattax.Settings{
		Active:                cfg.Taxes.Active,
		Channel:               cfg.Taxes.Channel,
		IncludeTaxesInPrices:  cfg.Taxes.IncludeTaxesInPrices,
		ChargeTaxesOnShipping: cfg.Taxes.ChargeTaxesOnShipping,
	}, holder, log.Named("flattax")).WithMetrics(stageMetrics)

	subCtx, stopSubscription := context.WithCancel(ctx)
	defer stopSubscription()
	var invalidator *ratecache.RedisInvalidator
	if cfg.Redis.Enabled {
		invalidator, err = ratecache.NewRedisInvalidator(ctx, cfg.Redis, ratecache.WithLogger(log.Named("redis")))
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		go func() {
			err := invalidator.Subscribe(subCtx, func(msg ratecache.RatesUpdateMessage) {
				stageMetrics.RecordRatesUpdate(subCtx, holder.Apply(msg))
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Rates subscription ended", zap.Error(err))
			}
		}()
	}

	engine := router.New(handler.NewTaxHandler(plugin), router.Options{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		},
		Swagger: middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stopSubscription()
	if invalidator != nil {
		_ = invalidator.Close()
	}
	_ = profiler.Stop()
	_ = meterProvider.Shutdown(shutdownCtx)
	_ = tracerProvider.Shutdown(shutdownCtx)
	_ = logProvider.Shutdown(shutdownCtx)

	log.Info("Server exited gracefully")
}

// loadRates reads the rate table from object storage when a rate store is
// configured, and from taxes.rates otherwise.
func loadRates(ctx context.Context, cfg *config.Config, log *zap.Logger) (*taxes.RateTable, error) {
	if !cfg.RateStore.Enabled {
		return cfg.Taxes.RateTable()
	}
	store, err := ratestore.NewS3Store(ctx, cfg.RateStore, ratestore.WithLogger(log.Named("ratestore")))
	if err != nil {
		return nil, err
	}
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return store.Load(loadCtx)
}
