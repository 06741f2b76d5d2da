package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var validate = validator.New()

// AppConfig is the process configuration.
type AppConfig struct {
	Port        string        `validate:"required"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	// DispatchSchedule is the cron expression of the dispatch tick.
	DispatchSchedule string `validate:"required"`
	// Timezone evaluates subscription frequencies and snapshot dates.
	Timezone            string `validate:"required"`
	DispatchConcurrency int    `validate:"gte=0"`
	// DeliveryRate caps deliveries per second (0 = unlimited).
	DeliveryRate float64 `validate:"gte=0"`
	ForecastDays int     `validate:"gte=1,lte=16"`

	WeatherAPIKey     string
	OpenWeatherAPIKey string
	GeocoderAPIKey    string

	// StoreBackend selects where subscriptions and snapshots live.
	StoreBackend    string        `validate:"oneof=redis memory"`
	RedisAddr       string        `validate:"required_if=StoreBackend redis"`
	RedisPassword   string
	RedisDB         int           `validate:"gte=0"`
	SnapshotTTL     time.Duration `validate:"gte=0"`
	SnapshotHistory int           `validate:"gte=0"`

	// PushGatewayURL empty means deliveries are only logged.
	PushGatewayURL   string `validate:"omitempty,url"`
	PushGatewayToken string

	LogLevel       string `validate:"oneof=debug info warn error"`
	LogDevelopment bool
}

// Load reads configuration from an optional .env file, an optional
// config.yaml and the environment, with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("dispatch_schedule", "* * * * *")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("dispatch_concurrency", 16)
	v.SetDefault("delivery_rate", 0)
	v.SetDefault("forecast_days", 4)
	v.SetDefault("store_backend", "redis")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("snapshot_ttl", "72h")
	v.SetDefault("snapshot_history", 7)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)

	// Keys without defaults still need binding for AutomaticEnv lookups.
	for _, k := range []string{
		"weatherapi_api_key", "openweather_api_key", "geocoder_api_key",
		"redis_password", "push_gateway_url", "push_gateway_token",
	} {
		v.SetDefault(k, "")
	}
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	httpTimeout, err := time.ParseDuration(v.GetString("http_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	snapshotTTL, err := time.ParseDuration(v.GetString("snapshot_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid SNAPSHOT_TTL: %w", err)
	}

	cfg := &AppConfig{
		Port:                v.GetString("port"),
		HTTPTimeout:         httpTimeout,
		DispatchSchedule:    v.GetString("dispatch_schedule"),
		Timezone:            v.GetString("timezone"),
		DispatchConcurrency: v.GetInt("dispatch_concurrency"),
		DeliveryRate:        v.GetFloat64("delivery_rate"),
		ForecastDays:        v.GetInt("forecast_days"),
		WeatherAPIKey:       v.GetString("weatherapi_api_key"),
		OpenWeatherAPIKey:   v.GetString("openweather_api_key"),
		GeocoderAPIKey:      v.GetString("geocoder_api_key"),
		StoreBackend:        strings.ToLower(v.GetString("store_backend")),
		RedisAddr:           v.GetString("redis_addr"),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		SnapshotTTL:         snapshotTTL,
		SnapshotHistory:     v.GetInt("snapshot_history"),
		PushGatewayURL:      v.GetString("push_gateway_url"),
		PushGatewayToken:    v.GetString("push_gateway_token"),
		LogLevel:            strings.ToLower(v.GetString("log_level")),
		LogDevelopment:      v.GetBool("log_development"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	return cfg, nil
}

// Location returns the configured time zone.
func (c *AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
