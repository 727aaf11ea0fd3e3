// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int           `yaml:"port"`
	AdminAPIKey string        `yaml:"admin_api_key"`
	JWTSecret   string        `yaml:"jwt_secret"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GatewayConfig holds per-provider credentials and the enabled switch. A
// provider configured but disabled resolves to ErrGatewayDisabled, never a
// silent fallback.
type GatewayConfig struct {
	Enabled       bool   `yaml:"enabled"`
	KeyID         string `yaml:"key_id"`         // razorpay
	KeySecret     string `yaml:"key_secret"`     // razorpay
	WebhookSecret string `yaml:"webhook_secret"` // razorpay
	MerchantID    string `yaml:"merchant_id"`    // phonepe
	SaltKey       string `yaml:"salt_key"`       // phonepe
	SaltIndex     string `yaml:"salt_index"`     // phonepe
	AppID         string `yaml:"app_id"`         // cashfree
	SecretKey     string `yaml:"secret_key"`     // cashfree
	BaseURL       string `yaml:"base_url"`
	UPIDefaultVPA string `yaml:"upi_default_vpa"`
	UPIMerchant   string `yaml:"upi_merchant_name"`
}

type PaymentConfig struct {
	DefaultGateway      string                   `yaml:"default_gateway"`
	SupportedMethods    []string                 `yaml:"supported_methods"`
	SupportedCurrencies []string                 `yaml:"supported_currencies"`
	OrderExpiry         time.Duration            `yaml:"order_expiry"`
	GatewayTimeout      time.Duration            `yaml:"gateway_timeout"`
	Gateways            map[string]GatewayConfig `yaml:"gateways"`
}

// IsMethodSupported reports membership in the configured method set; an
// empty method is allowed (provider default).
func (p PaymentConfig) IsMethodSupported(method string) bool {
	if method == "" {
		return true
	}
	for _, m := range p.SupportedMethods {
		if m == method {
			return true
		}
	}
	return false
}

func (p PaymentConfig) IsCurrencySupported(currency string) bool {
	for _, c := range p.SupportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

type RetryConfig struct {
	MaxRetries int             `yaml:"max_retries"`
	Backoff    []time.Duration `yaml:"backoff"` // by attempt number
	BatchSize  int             `yaml:"batch_size"`
}

type SchedulerConfig struct {
	ExpiryInterval       time.Duration `yaml:"expiry_interval"`
	VerificationInterval time.Duration `yaml:"verification_interval"`
	RetryInterval        time.Duration `yaml:"retry_interval"`
	BroadcastInterval    time.Duration `yaml:"broadcast_interval"`
	RenewalInterval      time.Duration `yaml:"renewal_interval"`
	StartupDelay         time.Duration `yaml:"startup_delay"`
	Retry                RetryConfig   `yaml:"retry"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = 30 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Payment.DefaultGateway == "" {
		cfg.Payment.DefaultGateway = "razorpay"
	}
	if len(cfg.Payment.SupportedMethods) == 0 {
		cfg.Payment.SupportedMethods = []string{"upi", "card", "netbanking", "wallet"}
	}
	if len(cfg.Payment.SupportedCurrencies) == 0 {
		cfg.Payment.SupportedCurrencies = []string{"INR", "USD"}
	}
	if cfg.Payment.OrderExpiry <= 0 {
		cfg.Payment.OrderExpiry = time.Hour
	}
	if cfg.Payment.GatewayTimeout <= 0 {
		cfg.Payment.GatewayTimeout = 10 * time.Second
	}

	s := &cfg.Scheduler
	if s.ExpiryInterval <= 0 {
		s.ExpiryInterval = 15 * time.Minute
	}
	if s.VerificationInterval <= 0 {
		s.VerificationInterval = time.Hour
	}
	if s.RetryInterval <= 0 {
		s.RetryInterval = 15 * time.Minute
	}
	if s.BroadcastInterval <= 0 {
		s.BroadcastInterval = 5 * time.Minute
	}
	if s.RenewalInterval <= 0 {
		s.RenewalInterval = 24 * time.Hour
	}
	if s.StartupDelay <= 0 {
		s.StartupDelay = 5 * time.Second
	}
	if s.Retry.MaxRetries <= 0 {
		s.Retry.MaxRetries = 3
	}
	if len(s.Retry.Backoff) == 0 {
		s.Retry.Backoff = []time.Duration{5 * time.Minute, 15 * time.Minute, 30 * time.Minute}
	}
	if s.Retry.BatchSize <= 0 {
		s.Retry.BatchSize = 50
	}
}

func validate(cfg *Config) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	gw, ok := cfg.Payment.Gateways[cfg.Payment.DefaultGateway]
	if !ok {
		return fmt.Errorf("payment.default_gateway %q is not configured", cfg.Payment.DefaultGateway)
	}
	if !gw.Enabled {
		return fmt.Errorf("payment.default_gateway %q is disabled", cfg.Payment.DefaultGateway)
	}
	return nil
}
