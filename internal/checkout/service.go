package checkout

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/session"
)

var (
	// ErrInvalidInput is returned when the request payload cannot be applied.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionNotFound indicates the checkout session is missing or expired.
	ErrSessionNotFound = session.ErrNotFound
)

// SessionStore persists checkout sessions.
type SessionStore interface {
	Create(ctx context.Context) (session.Record, error)
	Get(ctx context.Context, id string) (session.Record, error)
	Save(ctx context.Context, rec *session.Record) error
	Delete(ctx context.Context, id string) error
}

// Locker serialises work on a single session.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// View is the session state returned to callers after pricing.
type View struct {
	Session  session.Record `json:"session"`
	Pricing  Pricing        `json:"pricing"`
	Currency string         `json:"currency"`
}

// Pricing mirrors pricing.Quote for JSON responses.
type Pricing struct {
	Subtotal pricing.Money `json:"subtotal"`
	Discount pricing.Money `json:"discount"`
	Shipping pricing.Money `json:"shipping"`
	Total    pricing.Money `json:"total"`
}

// Service sequences the pricing pipeline for checkout sessions: net amount,
// then discount, then shipping on the pre-discount net amount.
type Service struct {
	Sessions SessionStore
	Locker   Locker
	Pricing  *pricing.Calculator
	Currency string
	Logger   zerolog.Logger
}

// Start creates an empty checkout session.
func (s *Service) Start(ctx context.Context) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	rec, err := s.Sessions.Create(ctx)
	if err != nil {
		return View{}, err
	}
	view, err := s.mutate(ctx, "start", rec.ID, nil)
	if err != nil {
		return View{}, err
	}
	s.Logger.Info().Str("session_id", rec.ID).Msg("checkout session started")
	return view, nil
}

// AddItem appends a line item, merging quantities for an existing SKU and
// unit price. Lines whose totals leave the Money range are rejected.
func (s *Service) AddItem(ctx context.Context, id string, item session.LineItem) (View, error) {
	item.SKU = strings.TrimSpace(item.SKU)
	if item.SKU == "" {
		return View{}, invalidInput("sku is required")
	}
	if item.Qty <= 0 {
		return View{}, invalidInput("qty must be positive")
	}
	if item.UnitPrice < 0 {
		return View{}, invalidInput("unit price must not be negative")
	}
	if _, err := item.Subtotal(); err != nil {
		return View{}, invalidInput("line total overflows")
	}
	return s.mutate(ctx, "add_item", id, func(rec *session.Record) error {
		for i := range rec.Items {
			line := &rec.Items[i]
			if line.SKU != item.SKU || line.UnitPrice != item.UnitPrice {
				continue
			}
			if line.Qty > math.MaxInt-item.Qty {
				return invalidInput("line quantity overflows")
			}
			merged := *line
			merged.Qty += item.Qty
			if _, err := merged.Subtotal(); err != nil {
				return invalidInput("line total overflows")
			}
			*line = merged
			return nil
		}
		rec.Items = append(rec.Items, item)
		return nil
	})
}

// RemoveItem drops every line with the given SKU.
func (s *Service) RemoveItem(ctx context.Context, id, sku string) (View, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return View{}, invalidInput("sku is required")
	}
	return s.mutate(ctx, "remove_item", id, func(rec *session.Record) error {
		kept := rec.Items[:0]
		for _, it := range rec.Items {
			if it.SKU != sku {
				kept = append(kept, it)
			}
		}
		rec.Items = kept
		return nil
	})
}

// ApplyDiscountCode marks a discount code as active. Codes are not validated.
func (s *Service) ApplyDiscountCode(ctx context.Context, id, code string) (View, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return View{}, invalidInput("discount code is required")
	}
	return s.mutate(ctx, "apply_discount", id, func(rec *session.Record) error {
		rec.DiscountCode = code
		rec.DiscountCodeApplied = true
		return nil
	})
}

// RemoveDiscountCode clears the active discount code.
func (s *Service) RemoveDiscountCode(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, "remove_discount", id, func(rec *session.Record) error {
		rec.DiscountCode = ""
		rec.DiscountCodeApplied = false
		return nil
	})
}

// Quote re-prices the session. The record is only written back when the
// recomputed net or discount differs from what is stored, so reads do not
// extend the session TTL.
func (s *Service) Quote(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, "quote", id, nil)
}

// Abandon deletes the session. Abandoning a missing session reports ErrSessionNotFound.
func (s *Service) Abandon(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrSessionNotFound
	}
	ctx, span := obs.StartSessionSpan(ctx, "abandon", id)
	run := func(ctx context.Context) error {
		if _, err := s.Sessions.Get(ctx, id); err != nil {
			return err
		}
		return s.Sessions.Delete(ctx, id)
	}
	err := s.withSessionLock(ctx, id, run)
	obs.EndSessionSpan(span, 0, 0, 0, err)
	if err != nil {
		return err
	}
	s.Logger.Info().Str("session_id", id).Msg("checkout session abandoned")
	return nil
}

func invalidInput(message string) error {
	return common.NewAppError("BAD_REQUEST", message, http.StatusBadRequest, ErrInvalidInput)
}

func (s *Service) ready() error {
	if s == nil || s.Sessions == nil || s.Pricing == nil {
		return errors.New("checkout service not configured")
	}
	return nil
}

func (s *Service) withSessionLock(ctx context.Context, id string, run func(context.Context) error) error {
	if s.Locker == nil {
		return run(ctx)
	}
	return s.Locker.WithLock(ctx, lock.SessionKey(id), run)
}

// mutate loads the session under its lock, applies change, re-prices and
// saves. A nil change is a read: the record is saved only if pricing moved.
func (s *Service) mutate(ctx context.Context, op, id string, change func(*session.Record) error) (view View, err error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return View{}, ErrSessionNotFound
	}
	ctx, span := obs.StartSessionSpan(ctx, op, id)
	defer func() {
		obs.EndSessionSpan(span, view.Pricing.Subtotal, view.Pricing.Discount, view.Pricing.Shipping, err)
	}()

	run := func(ctx context.Context) error {
		rec, err := s.Sessions.Get(ctx, id)
		if err != nil {
			return err
		}
		prevNet, prevDiscount := rec.TotalCartNetAmount, rec.TotalCartDiscount
		if change != nil {
			if err := change(&rec); err != nil {
				return err
			}
		}
		quote, err := s.price(&rec)
		if err != nil {
			return err
		}
		dirty := change != nil || rec.TotalCartNetAmount != prevNet || rec.TotalCartDiscount != prevDiscount
		if dirty {
			if err := s.Sessions.Save(ctx, &rec); err != nil {
				return err
			}
		}
		view = View{Session: rec, Pricing: Pricing(quote), Currency: s.Currency}
		return nil
	}
	if err := s.withSessionLock(ctx, id, run); err != nil {
		return View{}, err
	}
	return view, nil
}

func (s *Service) price(rec *session.Record) (pricing.Quote, error) {
	net, err := session.NetAmount(rec.Items)
	if err != nil {
		return pricing.Quote{}, invalidInput("cart total overflows")
	}
	rec.TotalCartNetAmount = net
	cs := rec.CartSession()
	quote := s.Pricing.Quote(&cs)
	rec.Absorb(cs)

	cfg := s.Pricing.Config()
	if rec.DiscountCodeApplied {
		obs.ObserveDiscount(string(cfg.Discount.Type), quote.Discount)
	}
	obs.ObserveShipping(quote.Shipping)

	s.Logger.Debug().
		Str("session_id", rec.ID).
		Int64("net", quote.Subtotal).
		Int64("discount", quote.Discount).
		Int64("shipping", quote.Shipping).
		Int64("total", quote.Total).
		Msg("checkout priced")
	return quote, nil
}
