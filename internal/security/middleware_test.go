package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func echo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	})
}

func TestBodyLimitAllowsSmallPayload(t *testing.T) {
	h := BodyLimit{Max: 16}.Middleware(echo())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"A"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, `{"code":"A"}`, rr.Body.String())
}

func TestBodyLimitRejectsLargePayload(t *testing.T) {
	h := BodyLimit{Max: 4}.Middleware(echo())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"TOO-LONG"}`)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestBodyLimitRejectsUnknownLengthOverflow(t *testing.T) {
	h := BodyLimit{Max: 4}.Middleware(echo())
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("0123456789")))
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestNoStore(t *testing.T) {
	rr := httptest.NewRecorder()
	NoStore(echo()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}
