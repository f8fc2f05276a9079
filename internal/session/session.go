package session

import (
	"errors"
	"math"
	"time"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// LineItem describes a product line held in a checkout session.
type LineItem struct {
	SKU       string        `json:"sku"`
	Title     string        `json:"title,omitempty"`
	Qty       int           `json:"qty"`
	UnitPrice pricing.Money `json:"unitPrice"`
}

// ErrAmountOverflow is returned when a line or cart total exceeds the Money range.
var ErrAmountOverflow = errors.New("amount overflows")

// Subtotal returns the line total, or zero for non-positive quantities.
func (li LineItem) Subtotal() (pricing.Money, error) {
	if li.Qty <= 0 {
		return 0, nil
	}
	qty := pricing.Money(li.Qty)
	if li.UnitPrice > 0 && li.UnitPrice > math.MaxInt64/qty {
		return 0, ErrAmountOverflow
	}
	if li.UnitPrice < 0 && li.UnitPrice < math.MinInt64/qty {
		return 0, ErrAmountOverflow
	}
	return qty * li.UnitPrice, nil
}

// Record is the persisted checkout session.
type Record struct {
	ID                  string        `json:"id"`
	Items               []LineItem    `json:"items"`
	DiscountCode        string        `json:"discountCode,omitempty"`
	DiscountCodeApplied bool          `json:"discountCodeApplied"`
	TotalCartNetAmount  pricing.Money `json:"totalCartNetAmount"`
	TotalCartDiscount   pricing.Money `json:"totalCartDiscount"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
	ExpiresAt           time.Time     `json:"expiresAt"`
}

// NetAmount sums line items before discount and shipping. A negative result is
// reported as zero; ErrAmountOverflow is returned when the sum leaves the Money range.
func NetAmount(items []LineItem) (pricing.Money, error) {
	var total pricing.Money
	for _, it := range items {
		sub, err := it.Subtotal()
		if err != nil {
			return 0, err
		}
		if (sub > 0 && total > math.MaxInt64-sub) || (sub < 0 && total < math.MinInt64-sub) {
			return 0, ErrAmountOverflow
		}
		total += sub
	}
	if total < 0 {
		return 0, nil
	}
	return total, nil
}

// CartSession projects the record onto the fields used by pricing.
func (r *Record) CartSession() pricing.CartSession {
	return pricing.CartSession{
		DiscountCodeApplied: r.DiscountCodeApplied,
		TotalCartNetAmount:  r.TotalCartNetAmount,
		TotalCartDiscount:   r.TotalCartDiscount,
	}
}

// Absorb copies pricing results back onto the record.
func (r *Record) Absorb(cs pricing.CartSession) {
	r.DiscountCodeApplied = cs.DiscountCodeApplied
	r.TotalCartNetAmount = cs.TotalCartNetAmount
	r.TotalCartDiscount = cs.TotalCartDiscount
}
