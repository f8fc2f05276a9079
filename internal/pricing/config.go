package pricing

import (
	"fmt"
	"strings"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// DiscountType selects how a discount rule is evaluated.
type DiscountType string

const (
	// DiscountAmount deducts a flat amount regardless of cart size.
	DiscountAmount DiscountType = "amount"
	// DiscountPercent deducts a percentage of the net cart amount.
	DiscountPercent DiscountType = "percent"
)

// GatewayInStore identifies in-person fulfillment, which never charges shipping.
const GatewayInStore = "instore"

// ParseDiscountType normalises raw configuration input into a DiscountType.
func ParseDiscountType(raw string) (DiscountType, error) {
	switch t := DiscountType(strings.ToLower(strings.TrimSpace(raw))); t {
	case DiscountAmount, DiscountPercent:
		return t, nil
	default:
		return "", &ConfigurationError{Field: "discount.type", Reason: fmt.Sprintf("unrecognized value %q", raw)}
	}
}

// DiscountRule describes the store-wide discount granted when a code is applied.
// Value is used for amount rules, PercentBps (basis points, 1000 = 10%) for percent rules.
type DiscountRule struct {
	Type       DiscountType
	Value      Money
	PercentBps int64
}

// ShippingRule holds the flat shipping charge and the free-shipping threshold.
type ShippingRule struct {
	FlatAmount    Money
	FreeThreshold Money
}

// StoreConfig carries store settings consulted during pricing.
type StoreConfig struct {
	PaymentGateway string
}

// Config is the pricing configuration built once at process start.
type Config struct {
	Discount DiscountRule
	Shipping ShippingRule
	Store    StoreConfig
	// ClampDiscount caps flat discounts at the net cart amount.
	ClampDiscount bool
}

// ConfigurationError reports an invalid pricing setting detected at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("pricing config: %s: %s", e.Field, e.Reason)
}

// NewConfig validates the provided settings and returns a ready-to-use Config.
func NewConfig(discount DiscountRule, shipping ShippingRule, store StoreConfig, clamp bool) (Config, error) {
	cfg := Config{
		Discount:      discount,
		Shipping:      shipping,
		Store:         StoreConfig{PaymentGateway: strings.TrimSpace(store.PaymentGateway)},
		ClampDiscount: clamp,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures every enum and amount falls inside its recognised range.
func (c Config) Validate() error {
	switch c.Discount.Type {
	case DiscountAmount:
		if c.Discount.Value < 0 {
			return &ConfigurationError{Field: "discount.value", Reason: "must not be negative"}
		}
	case DiscountPercent:
		if c.Discount.PercentBps < 0 || c.Discount.PercentBps > 10000 {
			return &ConfigurationError{Field: "discount.percent", Reason: "must be between 0 and 100"}
		}
	default:
		return &ConfigurationError{Field: "discount.type", Reason: fmt.Sprintf("unrecognized value %q", c.Discount.Type)}
	}
	if c.Shipping.FlatAmount < 0 {
		return &ConfigurationError{Field: "shipping.flat_amount", Reason: "must not be negative"}
	}
	if c.Shipping.FreeThreshold < 0 {
		return &ConfigurationError{Field: "shipping.free_threshold", Reason: "must not be negative"}
	}
	if c.Store.PaymentGateway == "" {
		return &ConfigurationError{Field: "store.payment_gateway", Reason: "is required"}
	}
	return nil
}
