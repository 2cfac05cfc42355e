// Package config loads the service configuration from config.toml and
// FLATTAX_ environment variables.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/erp/flattax/internal/infrastructure/logger"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FLATTAX_TAXES_CHANNEL.
const EnvPrefix = "FLATTAX"

// DefaultRates is the rate table used when none is configured.
const DefaultRates = `{"standard": 10, "custom": 10}`

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Log       logger.Config
	Taxes     TaxesConfig
	Redis     RedisConfig
	RateStore RateStoreConfig
	Telemetry TelemetryConfig
	Swagger   SwaggerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `validate:"required"`
	Env  string `validate:"oneof=development testing production"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port            string        `validate:"required,numeric"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// TaxesConfig holds the flat-tax plugin settings.
type TaxesConfig struct {
	Active                bool
	Channel               string `validate:"required"`
	IncludeTaxesInPrices  bool
	ChargeTaxesOnShipping bool
	// Rates maps rate name to percentage (10 for 10%).
	Rates map[string]decimal.Decimal
}

// RateTable builds the rate table described by Rates.
func (c TaxesConfig) RateTable() (*taxes.RateTable, error) {
	return taxes.NewRateTable(c.Rates)
}

// RedisConfig holds the Redis connection used for rate change notifications.
type RedisConfig struct {
	Enabled  bool
	Host     string `validate:"required_if=Enabled true"`
	Port     int    `validate:"gte=0,lte=65535"`
	Password string
	DB       int    `validate:"gte=0"`
	Channel  string `validate:"required_if=Enabled true"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RateStoreConfig points at an S3-compatible object holding the rate table as
// a JSON object, e.g. {"standard": 10, "reduced": 5}. When enabled it takes
// precedence over taxes.rates.
type RateStoreConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string `validate:"required_if=Enabled true"`
	Key          string `validate:"required_if=Enabled true"`
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// TelemetryConfig holds OpenTelemetry export settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string `validate:"required_if=Enabled true"`
	ExportInterval    time.Duration
	ServiceName       string  `validate:"required"`
	SamplingRatio     float64 `validate:"gte=0,lte=1"`
	Insecure          bool
	// LogsEnabled also ships zap logs to the collector.
	LogsEnabled bool
	Profiling   ProfilingConfig
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled       bool
	ServerAddress string `validate:"required_if=Enabled true"`
	// SpanProfiles links CPU profiles to trace spans.
	SpanProfiles bool
}

// SwaggerConfig holds the API documentation endpoint settings
type SwaggerConfig struct {
	Enabled bool
	// AllowedIPs restricts access to these IPs or CIDRs; empty allows all.
	AllowedIPs []string
}

// Load reads configuration. path names a config file; when empty, config.toml
// is looked up in the working directory and /etc/flattax.
// Priority (highest to lowest):
// 1. Environment variables with FLATTAX_ prefix (e.g., FLATTAX_HTTP_PORT)
// 2. the config file
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/flattax")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	rates, err := ParseRates(v.Get("taxes.rates"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		HTTP: HTTPConfig{
			Port:            v.GetString("http.port"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Log: logger.Config{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			TimeFormat: v.GetString("log.time_format"),
		},
		Taxes: TaxesConfig{
			Active:                v.GetBool("taxes.active"),
			Channel:               v.GetString("taxes.channel"),
			IncludeTaxesInPrices:  v.GetBool("taxes.include_taxes_in_prices"),
			ChargeTaxesOnShipping: v.GetBool("taxes.charge_taxes_on_shipping"),
			Rates:                 rates,
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Channel:  v.GetString("redis.channel"),
		},
		RateStore: RateStoreConfig{
			Enabled:      v.GetBool("rate_store.enabled"),
			Endpoint:     v.GetString("rate_store.endpoint"),
			Region:       v.GetString("rate_store.region"),
			Bucket:       v.GetString("rate_store.bucket"),
			Key:          v.GetString("rate_store.key"),
			AccessKey:    v.GetString("rate_store.access_key"),
			SecretKey:    v.GetString("rate_store.secret_key"),
			UseSSL:       v.GetBool("rate_store.use_ssl"),
			UsePathStyle: v.GetBool("rate_store.use_path_style"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			ServiceName:       v.GetString("telemetry.service_name"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			Profiling: ProfilingConfig{
				Enabled:       v.GetBool("telemetry.profiling.enabled"),
				ServerAddress: v.GetString("telemetry.profiling.server_address"),
				SpanProfiles:  v.GetBool("telemetry.profiling.span_profiles"),
			},
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers defaults that a zero value can't express, such as
// switches that are on unless turned off.
func setDefaults(v *viper.Viper) {
	v.SetDefault("taxes.active", true)
	v.SetDefault("taxes.include_taxes_in_prices", true)
	v.SetDefault("taxes.charge_taxes_on_shipping", true)
	v.SetDefault("taxes.rates", DefaultRates)
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("rate_store.use_path_style", true)
	v.SetDefault("swagger.enabled", true)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "flattax"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Taxes.Channel == "" {
		cfg.Taxes.Channel = "default-channel"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "flattax:rates"
	}
	if cfg.RateStore.Key == "" {
		cfg.RateStore.Key = "flattax/rates.json"
	}
	if cfg.RateStore.Region == "" {
		cfg.RateStore.Region = "us-east-1"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "flattax"
	}
}

var validate = validator.New()

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrInvalidConfig, err)
	}
	if _, err := c.Taxes.RateTable(); err != nil {
		return err
	}
	if c.App.Env == "production" && c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
		return fmt.Errorf("%w: swagger must be disabled or restricted by swagger.allowed_ips in production", shared.ErrInvalidConfig)
	}
	return nil
}

// ParseRates converts a configured rate table into percentages. raw is either
// a TOML table or a JSON object string such as DefaultRates. Every value must
// be a number; strings are rejected even when they look numeric.
func ParseRates(raw any) (map[string]decimal.Decimal, error) {
	var table map[string]any
	switch v := raw.(type) {
	case nil:
		return map[string]decimal.Decimal{}, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]decimal.Decimal{}, nil
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(v)))
		dec.UseNumber()
		if err := dec.Decode(&table); err != nil {
			return nil, fmt.Errorf("%w: taxes.rates must be a JSON object: %s", shared.ErrInvalidConfig, err)
		}
	case map[string]any:
		table = v
	default:
		return nil, fmt.Errorf("%w: taxes.rates has unsupported type %T", shared.ErrInvalidConfig, raw)
	}

	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]decimal.Decimal, len(table))
	for _, name := range names {
		pct, err := toDecimal(table[name])
		if err != nil {
			return nil, fmt.Errorf("%w: tax rate %q: %s", shared.ErrInvalidConfig, name, err)
		}
		if pct.IsNegative() {
			return nil, fmt.Errorf("%w: tax rate %q is negative", shared.ErrInvalidConfig, name)
		}
		out[name] = pct
	}
	return out, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("value %v (%T) is not a number", v, v)
	}
}
