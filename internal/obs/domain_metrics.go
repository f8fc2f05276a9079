package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DiscountAppliedTotal counts priced sessions carrying an active discount code.
	DiscountAppliedTotal *prometheus.CounterVec
	// DiscountAmount records granted discounts in minor units.
	DiscountAmount *prometheus.HistogramVec
	// ShippingChargeTotal counts shipping evaluations by outcome.
	ShippingChargeTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers pricing Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DiscountAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_applied_total",
			Help:      "Count of checkout pricing runs with an active discount code.",
		}, []string{"type"})
		DiscountAmount = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discount_amount_minor",
			Help:      "Distribution of granted discounts in minor currency units.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}, []string{"type"})
		ShippingChargeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_charge_total",
			Help:      "Count of shipping evaluations by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, DiscountAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DiscountAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, DiscountAmount, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				DiscountAmount = v
			}
		})
		mustRegisterCollector(reg, ShippingChargeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ShippingChargeTotal = v
			}
		})
	})
}

// ObserveDiscount records a discount outcome. No-op until metrics are registered.
func ObserveDiscount(kind string, amount int64) {
	if DiscountAppliedTotal != nil {
		DiscountAppliedTotal.WithLabelValues(kind).Inc()
	}
	if DiscountAmount != nil {
		DiscountAmount.WithLabelValues(kind).Observe(float64(amount))
	}
}

// ObserveShipping records whether shipping was charged or waived.
func ObserveShipping(charge int64) {
	if ShippingChargeTotal == nil {
		return
	}
	result := "charged"
	if charge == 0 {
		result = "free"
	}
	ShippingChargeTotal.WithLabelValues(result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
