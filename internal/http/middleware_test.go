package server_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorResponses(t *testing.T) {
	ta := newTestApp(t, testOptions())

	res := ta.do(t, "GET", "/api/v1/nope", "", nil)
	require.Equal(t, http.StatusNotFound, res.status)
	require.Equal(t, false, res.body["success"])
	require.Equal(t, "not_found", res.str("error"))

	page := ta.do(t, "GET", "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, page.status)
	require.Contains(t, page.raw, "Page not found")

	res = ta.do(t, "GET", "/api/v1/products/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, res.status)
	require.Equal(t, "product_id", res.str("field"))

	res = ta.do(t, "GET", "/api/v1/products/999", "", nil)
	require.Equal(t, http.StatusNotFound, res.status)
}

func TestMalformedBodiesAreRejected(t *testing.T) {
	ta := newTestApp(t, testOptions())
	logs := observe(t)
	sid := ta.login(t, "alice")

	req := httptest.NewRequest("POST", "/api/v1/cart/add", strings.NewReader(`{"product_id":`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	res := ta.send(t, req)
	require.Equal(t, http.StatusBadRequest, res.status)
	require.Equal(t, "invalid_input", res.str("error"))

	for _, body := range []map[string]any{
		{"product_id": 0},
		{"product_id": -4},
		{"product_id": 1, "quantity": 0},
		{"product_id": 1, "quantity": 1000},
	} {
		res := ta.do(t, "POST", "/api/v1/cart/add", sid, body)
		require.Equal(t, http.StatusBadRequest, res.status, "%v", body)
	}
	require.Zero(t, logs.FilterMessage("cart.add.fail").Len())
	require.NotZero(t, logs.FilterMessage("cart.add.rejected").Len())
}

func TestHealthAndMetrics(t *testing.T) {
	ta := newTestApp(t, testOptions())

	res := ta.do(t, "GET", "/healthz", "", nil)
	require.Equal(t, http.StatusOK, res.status)
	require.Equal(t, true, res.body["ok"])

	require.Equal(t, http.StatusOK, ta.do(t, "GET", "/api/v1/products", "", nil).status)
	m := ta.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, m.status)
	require.Contains(t, m.raw, "ecommerce_http_requests_total")
	require.Contains(t, m.raw, `route="/api/v1/products"`)
}

func TestSecurityHeaders(t *testing.T) {
	ta := newTestApp(t, testOptions())

	resp, err := ta.app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestLoginRateLimit(t *testing.T) {
	opts := testOptions()
	opts.AuthLimit = 2
	ta := newTestApp(t, opts)
	logs := observe(t)

	body := map[string]any{"account": "alice", "password": "wrong"}
	require.Equal(t, http.StatusUnauthorized, ta.do(t, "POST", "/api/v1/auth/login", "", body).status)
	require.Equal(t, http.StatusUnauthorized, ta.do(t, "POST", "/api/v1/auth/login", "", body).status)
	res := ta.do(t, "POST", "/api/v1/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, res.status)
	require.Equal(t, "rate_limited", res.str("error"))
	require.Equal(t, 1, logs.FilterMessage("rate.login.hit").Len())

	// Registration is throttled separately.
	reg := ta.do(t, "POST", "/api/v1/auth/register", "", map[string]any{"username": "x"})
	require.Equal(t, http.StatusBadRequest, reg.status)
}

func TestGlobalRateLimit(t *testing.T) {
	opts := testOptions()
	opts.RateLimit = 3
	ta := newTestApp(t, opts)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, ta.do(t, "GET", "/api/v1/products", "", nil).status)
	}
	require.Equal(t, http.StatusTooManyRequests, ta.do(t, "GET", "/api/v1/products", "", nil).status)
	require.Equal(t, http.StatusOK, ta.do(t, "GET", "/healthz", "", nil).status)
}

func TestBodyLimit(t *testing.T) {
	opts := testOptions()
	opts.BodyLimit = 1024
	ta := newTestApp(t, opts)

	big := bytes.Repeat([]byte("a"), 4096)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestCSRFRequiresToken(t *testing.T) {
	opts := testOptions()
	opts.CSRF = true
	ta := newTestApp(t, opts)
	logs := observe(t)

	body := map[string]any{"account": "alice", "password": demoPassword}
	res := ta.do(t, "POST", "/api/v1/auth/login", "", body)
	require.Equal(t, http.StatusForbidden, res.status)
	require.Equal(t, "csrf", res.str("error"))
	require.Equal(t, 1, logs.FilterMessage("csrf.fail").Len())

	// A safe request hands out the token; echoing it in the header passes.
	tok := ta.do(t, "GET", "/healthz", "", nil).cookie("csrf_")
	require.NotEmpty(t, tok)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(`{"account":"alice","password":"Passw0rd!"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", tok)
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: tok})
	require.Equal(t, http.StatusOK, ta.send(t, req).status)
}
