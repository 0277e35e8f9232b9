package config

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type BillingConfig struct {
	// DepositCapRate bounds a single deposit to this fraction of the
	// depositor's total unpaid job value.
	DepositCapRate decimal.Decimal
	// BestClientsLimit is the default row count for the best-clients
	// aggregation when the caller does not pass one.
	BestClientsLimit int
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Billing     BillingConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	capRate, err := parseRate(v.GetString("BILLING_DEPOSIT_CAP_RATE"))
	if err != nil {
		return nil, err
	}
	bestClientsLimit, err := parseLimit(v.GetString("BILLING_BEST_CLIENTS_LIMIT"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Billing: BillingConfig{
			DepositCapRate:   capRate,
			BestClientsLimit: bestClientsLimit,
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Billing.DepositCapRate.IsNegative() || cfg.Billing.DepositCapRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("BILLING_DEPOSIT_CAP_RATE must be between 0 and 1")
	}
	if cfg.Billing.BestClientsLimit < 1 {
		return fmt.Errorf("BILLING_BEST_CLIENTS_LIMIT must be positive")
	}
	return nil
}

// parseRate defaults only on an unset variable. An explicit zero is a
// valid rate that disables deposits entirely and must not be overridden.
func parseRate(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.RequireFromString("0.25"), nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("BILLING_DEPOSIT_CAP_RATE is not a valid decimal: %w", err)
	}
	return rate, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 2, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("BILLING_BEST_CLIENTS_LIMIT is not a valid integer: %w", err)
	}
	return limit, nil
}
