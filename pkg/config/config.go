package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/picosretail/pos-terminal/pkg/money"
)

const (
	EnvPrefix = "PICOS"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "PICOS_APP_ENV"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Session SessionConfig
	Cart    CartConfig
	State   StateConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env      string `envconfig:"PICOS_APP_ENV" default:"development"`
	LogLevel string `envconfig:"PICOS_LOG_LEVEL" default:"info"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL string        `envconfig:"PICOS_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"PICOS_API_TIMEOUT" default:"15s"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(a.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid API base URL %q", a.BaseURL)
	}
	return nil
}

// SessionConfig tunes the proactive token refresh loop.
type SessionConfig struct {
	RefreshInterval time.Duration `envconfig:"PICOS_REFRESH_INTERVAL" default:"30s"`
	ExpiryThreshold time.Duration `envconfig:"PICOS_EXPIRY_THRESHOLD" default:"60s"`
}

// CartConfig carries the client-side tax estimate. The backend recomputes
// authoritative tax on every sale; this value only drives display totals.
type CartConfig struct {
	TaxRate string `envconfig:"PICOS_TAX_RATE" default:"0.16"`
}

func (c CartConfig) TaxRateDecimal() decimal.Decimal {
	return money.Parse(c.TaxRate)
}

type StateConfig struct {
	Path string `envconfig:"PICOS_STATE_PATH" default:"picos-terminal.db"`
}
