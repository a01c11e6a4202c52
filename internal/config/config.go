package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	// Store-level pricing policy. PriceIncludesTax selects the tax mode for
	// every checkout; DiscountStrategy controls how order-level discounts
	// combine with per-line ones.
	PriceIncludesTax bool
	DiscountStrategy string
	CurrencyCode     string

	CartTTL        time.Duration
	IdempotencyTTL time.Duration

	// E-invoice provider.
	InvoiceProviderURL string
	InvoiceAPIKey      string

	AccessTokenTTL time.Duration

	RateLimitPerMinute int
}

// Load reads configuration from the environment, with an optional .env file
// for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	r := reader{k}

	cfg := &Config{
		AppEnv:             r.str("APP_ENV", "development"),
		Port:               r.str("PORT", "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: r.csv("CORS_ALLOWED_ORIGINS"),
		PriceIncludesTax:   r.flag("PRICE_INCLUDES_TAX"),
		DiscountStrategy:   strings.ToLower(r.str("DISCOUNT_STRATEGY", "additive")),
		CurrencyCode:       r.str("CURRENCY_CODE", "VND"),
		CartTTL:            r.dur("CART_TTL", 24*time.Hour),
		IdempotencyTTL:     r.dur("IDEMPOTENCY_TTL", 24*time.Hour),
		InvoiceProviderURL: strings.TrimSpace(k.String("INVOICE_PROVIDER_URL")),
		InvoiceAPIKey:      k.String("INVOICE_API_KEY"),
		AccessTokenTTL:     r.dur("ACCESS_TOKEN_TTL", 12*time.Hour),
		RateLimitPerMinute: r.count("RATE_LIMIT_PER_MINUTE", 300),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for _, required := range []struct{ name, value string }{
		{"DATABASE_URL", c.DatabaseURL},
		{"REDIS_URL", c.RedisURL},
		{"JWT_SECRET", c.JWTSecret},
	} {
		if required.value == "" {
			return errors.New(required.name + " is required")
		}
	}
	switch c.DiscountStrategy {
	case "additive", "order_exclusive":
		return nil
	default:
		return fmt.Errorf("unknown DISCOUNT_STRATEGY %q", c.DiscountStrategy)
	}
}

// HTTPAddr returns the listen address derived from PORT.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

type reader struct {
	k *koanf.Koanf
}

func (r reader) str(key, def string) string {
	if v := strings.TrimSpace(r.k.String(key)); v != "" {
		return v
	}
	return def
}

func (r reader) dur(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(r.k.String(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func (r reader) count(key string, def int) int {
	if v := r.k.Int(key); v > 0 {
		return v
	}
	return def
}

func (r reader) flag(key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.k.String(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (r reader) csv(key string) []string {
	raw := r.k.String(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// LoadForTests runs Load with the given variables applied to the environment,
// restoring the previous values afterwards.
func LoadForTests(vars map[string]string) (*Config, error) {
	saved := make(map[string]string, len(vars))
	for key, value := range vars {
		saved[key] = os.Getenv(key)
		if err := applyEnv(key, value); err != nil {
			return nil, err
		}
	}
	defer func() {
		for key, value := range saved {
			_ = applyEnv(key, value)
		}
	}()
	return Load()
}

func applyEnv(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}
