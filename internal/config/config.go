package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string `validate:"required"`
	Port               string
	RedisURL           string `validate:"required"`
	CORSAllowedOrigins []string
	CurrencyCode       string        `validate:"required,len=3,alpha"`
	SessionTTL         time.Duration `validate:"gt=0"`
	LockTTL            time.Duration `validate:"gt=0"`
	LockWait           time.Duration `validate:"gte=0"`
	MaxBodyBytes       int64         `validate:"gt=0"`

	Log     LogConfig
	Metrics MetricsConfig
	Tracing TracingConfig

	// Pricing is validated separately and is immutable after Load.
	Pricing pricing.Config `validate:"-"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Format string `validate:"oneof=json console text"`
	Level  string `validate:"oneof=trace debug info warn error fatal panic disabled"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool
	Namespace string `validate:"required"`
	BucketsMS string
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled       bool
	Exporter      string  `validate:"oneof=otlp none"`
	Endpoint      string  `validate:"omitempty,url"`
	SamplingRatio float64 `validate:"gte=0,lte=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var errs []error
	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "USD")),
		SessionTTL:         parseDuration(k.String("SESSION_TTL"), "24h"),
		LockTTL:            parseDuration(k.String("LOCK_TTL"), "10s"),
		LockWait:           parseDuration(k.String("LOCK_WAIT"), "2s"),
		MaxBodyBytes:       parseInt(k.String("HTTP_MAX_BODY_BYTES"), 64<<10),
		Log: LogConfig{
			Format: strings.ToLower(valueOrDefault(k.String("OBS_LOG_FORMAT"), "json")),
			Level:  strings.ToLower(valueOrDefault(k.String("OBS_LOG_LEVEL"), "info")),
		},
		Metrics: MetricsConfig{
			Enabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			Namespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "toko_pricing"),
			BucketsMS: k.String("OBS_METRICS_BUCKETS_MS"),
		},
		Tracing: TracingConfig{
			Enabled:       parseBool(k.String("OBS_ENABLE_TRACING"), false),
			Exporter:      strings.ToLower(valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp")),
			Endpoint:      strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		},
	}

	pricingCfg, err := loadPricing(k)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Pricing = pricingCfg

	if err := validate.Struct(cfg); err != nil {
		errs = append(errs, translate(err))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func loadPricing(k *koanf.Koanf) (pricing.Config, error) {
	kind, err := pricing.ParseDiscountType(valueOrDefault(k.String("PRICING_DISCOUNT_TYPE"), string(pricing.DiscountPercent)))
	if err != nil {
		return pricing.Config{}, err
	}
	rule := pricing.DiscountRule{Type: kind}
	rawValue := valueOrDefault(k.String("PRICING_DISCOUNT_VALUE"), "10")
	switch kind {
	case pricing.DiscountAmount:
		rule.Value, err = parseMoney("PRICING_DISCOUNT_VALUE", rawValue)
	case pricing.DiscountPercent:
		rule.PercentBps, err = parsePercentBps("PRICING_DISCOUNT_VALUE", rawValue)
	}
	if err != nil {
		return pricing.Config{}, err
	}

	flat, err := parseMoney("PRICING_SHIPPING_FLAT", valueOrDefault(k.String("PRICING_SHIPPING_FLAT"), "1000"))
	if err != nil {
		return pricing.Config{}, err
	}
	threshold, err := parseMoney("PRICING_SHIPPING_FREE_THRESHOLD", valueOrDefault(k.String("PRICING_SHIPPING_FREE_THRESHOLD"), "10000"))
	if err != nil {
		return pricing.Config{}, err
	}

	return pricing.NewConfig(
		rule,
		pricing.ShippingRule{FlatAmount: flat, FreeThreshold: threshold},
		pricing.StoreConfig{PaymentGateway: strings.ToLower(valueOrDefault(k.String("PAYMENT_GATEWAY"), "card"))},
		parseBool(k.String("PRICING_DISCOUNT_CLAMP"), true),
	)
}

// HTTPAddr returns the address the HTTP server should bind to.
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

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		out = append(out, &pricing.ConfigurationError{Field: fe.Namespace(), Reason: reason})
	}
	return errors.Join(out...)
}

func parseMoney(key, raw string) (pricing.Money, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &pricing.ConfigurationError{Field: key, Reason: fmt.Sprintf("invalid amount %q", raw)}
	}
	return v, nil
}

func parsePercentBps(key, raw string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(raw), "%"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &pricing.ConfigurationError{Field: key, Reason: fmt.Sprintf("invalid percentage %q", raw)}
	}
	return int64(math.Round(v * 100)), nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseInt(value string, fallback int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]*string, len(env))
	for key := range env {
		if prev, ok := os.LookupEnv(key); ok {
			original[key] = &prev
		} else {
			original[key] = nil
		}
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]*string) error {
	var errs []string
	for key, value := range values {
		var err error
		if value == nil {
			err = os.Unsetenv(key)
		} else {
			err = os.Setenv(key, *value)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
