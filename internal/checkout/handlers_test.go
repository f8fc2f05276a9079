package checkout_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

type envelope struct {
	Data  checkout.View `json:"data"`
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newRouter(t *testing.T, gateway string) http.Handler {
	t.Helper()
	f := newFixture(t, tenPercent(), gateway)
	r := chi.NewRouter()
	r.Route("/api/v1/checkout/sessions", (&checkout.Handler{Svc: f.svc}).Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, &buf))
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return rr.Code, env
}

func TestHandlerCheckoutFlow(t *testing.T) {
	h := newRouter(t, "card")
	base := "/api/v1/checkout/sessions"

	code, env := do(t, h, http.MethodPost, base, nil)
	require.Equal(t, http.StatusCreated, code)
	id := env.Data.Session.ID
	require.NotEmpty(t, id)

	code, env = do(t, h, http.MethodPost, base+"/"+id+"/items", map[string]any{"sku": "mug", "qty": 1, "unitPrice": 50})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, checkout.Pricing{Subtotal: 50, Shipping: 10, Total: 60}, env.Data.Pricing)

	code, env = do(t, h, http.MethodPost, base+"/"+id+"/discount", map[string]any{"code": "TEN"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, checkout.Pricing{Subtotal: 50, Discount: 5, Shipping: 10, Total: 55}, env.Data.Pricing)

	code, env = do(t, h, http.MethodGet, base+"/"+id+"/quote", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, pricing.Money(5), env.Data.Session.TotalCartDiscount)
	require.Equal(t, "IDR", env.Data.Currency)

	code, env = do(t, h, http.MethodDelete, base+"/"+id+"/discount", nil)
	require.Equal(t, http.StatusOK, code)
	require.Zero(t, env.Data.Pricing.Discount)

	code, env = do(t, h, http.MethodDelete, base+"/"+id+"/items/mug", nil)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, env.Data.Session.Items)
	require.Equal(t, checkout.Pricing{Shipping: 10, Total: 10}, env.Data.Pricing)
}

func TestHandlerErrors(t *testing.T) {
	h := newRouter(t, "card")
	base := "/api/v1/checkout/sessions"

	code, env := do(t, h, http.MethodGet, base+"/nope", nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NOT_FOUND", env.Error.Code)

	_, created := do(t, h, http.MethodPost, base, nil)
	id := created.Data.Session.ID

	code, env = do(t, h, http.MethodPost, base+"/"+id+"/items", map[string]any{"sku": "mug", "qty": 0, "unitPrice": 5})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)

	code, env = do(t, h, http.MethodPost, base+"/"+id+"/discount", map[string]any{"code": ""})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestHandlerAbandon(t *testing.T) {
	h := newRouter(t, "card")
	base := "/api/v1/checkout/sessions"

	_, created := do(t, h, http.MethodPost, base, nil)
	id := created.Data.Session.ID

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, base+"/"+id, nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Zero(t, rr.Body.Len())

	code, env := do(t, h, http.MethodGet, base+"/"+id, nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NOT_FOUND", env.Error.Code)

	code, env = do(t, h, http.MethodDelete, base+"/"+id, nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestHandlerRejectsOverflowingLine(t *testing.T) {
	h := newRouter(t, "card")
	base := "/api/v1/checkout/sessions"

	_, created := do(t, h, http.MethodPost, base, nil)
	id := created.Data.Session.ID

	code, env := do(t, h, http.MethodPost, base+"/"+id+"/items", map[string]any{"sku": "tv", "qty": 3, "unitPrice": int64(6148914691236517206)})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}
