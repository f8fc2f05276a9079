package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":                       "redis://localhost:6379/0",
		"PRICING_DISCOUNT_TYPE":           "",
		"PRICING_DISCOUNT_VALUE":          "",
		"PRICING_DISCOUNT_CLAMP":          "",
		"PRICING_SHIPPING_FLAT":           "",
		"PRICING_SHIPPING_FREE_THRESHOLD": "",
		"PAYMENT_GATEWAY":                 "",
		"CURRENCY_CODE":                   "",
		"SESSION_TTL":                     "",
		"OBS_LOG_FORMAT":                  "",
		"OBS_LOG_LEVEL":                   "",
		"OBS_TRACING_EXPORTER":            "",
		"OBS_OTLP_ENDPOINT":               "",
	}
}

func with(overrides map[string]string) map[string]string {
	env := baseEnv()
	for k, v := range overrides {
		env[k] = v
	}
	return env
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "USD", cfg.CurrencyCode)
	require.Equal(t, 24*time.Hour, cfg.SessionTTL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, pricing.DiscountRule{Type: pricing.DiscountPercent, PercentBps: 1000}, cfg.Pricing.Discount)
	require.Equal(t, pricing.ShippingRule{FlatAmount: 1000, FreeThreshold: 10000}, cfg.Pricing.Shipping)
	require.Equal(t, "card", cfg.Pricing.Store.PaymentGateway)
	require.True(t, cfg.Pricing.ClampDiscount)
}

func TestLoadPricingOverrides(t *testing.T) {
	cfg, err := LoadForTests(with(map[string]string{
		"PRICING_DISCOUNT_TYPE":           "amount",
		"PRICING_DISCOUNT_VALUE":          "2500",
		"PRICING_DISCOUNT_CLAMP":          "false",
		"PRICING_SHIPPING_FLAT":           "15000",
		"PRICING_SHIPPING_FREE_THRESHOLD": "300000",
		"PAYMENT_GATEWAY":                 "InStore",
		"CURRENCY_CODE":                   "idr",
	}))
	require.NoError(t, err)

	require.Equal(t, pricing.DiscountRule{Type: pricing.DiscountAmount, Value: 2500}, cfg.Pricing.Discount)
	require.Equal(t, pricing.ShippingRule{FlatAmount: 15000, FreeThreshold: 300000}, cfg.Pricing.Shipping)
	require.Equal(t, pricing.GatewayInStore, cfg.Pricing.Store.PaymentGateway)
	require.False(t, cfg.Pricing.ClampDiscount)
	require.Equal(t, "IDR", cfg.CurrencyCode)
}

func TestLoadFractionalPercent(t *testing.T) {
	cfg, err := LoadForTests(with(map[string]string{"PRICING_DISCOUNT_VALUE": "12.5%"}))
	require.NoError(t, err)
	require.Equal(t, int64(1250), cfg.Pricing.Discount.PercentBps)
}

func TestLoadRejectsInvalidPricing(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown discount type": {"PRICING_DISCOUNT_TYPE": "bogo"},
		"non numeric amount":    {"PRICING_DISCOUNT_TYPE": "amount", "PRICING_DISCOUNT_VALUE": "ten"},
		"percent over 100":      {"PRICING_DISCOUNT_VALUE": "150"},
		"negative flat":         {"PRICING_SHIPPING_FLAT": "-1"},
		"bad threshold":         {"PRICING_SHIPPING_FREE_THRESHOLD": "1.5"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadForTests(with(overrides))
			var cfgErr *pricing.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
		})
	}
}

func TestLoadRejectsInvalidAmbientSettings(t *testing.T) {
	_, err := LoadForTests(with(map[string]string{"REDIS_URL": ""}))
	var cfgErr *pricing.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Contains(t, cfgErr.Field, "RedisURL")

	_, err = LoadForTests(with(map[string]string{"OBS_LOG_FORMAT": "xml"}))
	require.ErrorAs(t, err, &cfgErr)

	_, err = LoadForTests(with(map[string]string{"CURRENCY_CODE": "DOLLARS"}))
	require.ErrorAs(t, err, &cfgErr)
}

func TestHTTPAddr(t *testing.T) {
	require.Equal(t, ":9090", (&Config{Port: "9090"}).HTTPAddr())
	require.Equal(t, ":7000", (&Config{Port: ":7000"}).HTTPAddr())
	require.Equal(t, ":8080", (&Config{}).HTTPAddr())
}
