package checkout_test

import (
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/session"
)

type fixture struct {
	svc   *checkout.Service
	store *session.Store
	mr    *miniredis.Miniredis
	clock *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newFixture(t *testing.T, discount pricing.DiscountRule, gateway string) fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg, err := pricing.NewConfig(
		discount,
		pricing.ShippingRule{FlatAmount: 10, FreeThreshold: 100},
		pricing.StoreConfig{PaymentGateway: gateway},
		true,
	)
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := session.NewStore(client, time.Hour).WithClock(clock.Now)
	svc := &checkout.Service{
		Sessions: store,
		Locker:   lock.Locker{R: client, RetryBackoff: 2 * time.Millisecond},
		Pricing:  pricing.NewCalculator(cfg),
		Currency: "IDR",
		Logger:   zerolog.Nop(),
	}
	return fixture{svc: svc, store: store, mr: mr, clock: clock}
}

func tenPercent() pricing.DiscountRule {
	return pricing.DiscountRule{Type: pricing.DiscountPercent, PercentBps: 1000}
}
