package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xxwlkq/ecommerce-system/internal/config"
	server "github.com/xxwlkq/ecommerce-system/internal/http"
	"github.com/xxwlkq/ecommerce-system/internal/http/handlers"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
)

// Seeded demo accounts share this password.
const demoPassword = "Passw0rd!"

type testApp struct {
	app   *fiber.App
	store *repos.Store
}

// testOptions turn off csrf and rate limits; tests that need them opt in.
func testOptions() server.Options {
	return server.Options{BodyLimit: 1 << 20}
}

// newTestApp serves a seeded in-memory store.
func newTestApp(t *testing.T, opts server.Options) *testApp {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.SeedDemo(db))

	store := repos.NewStore(db)
	deps := handlers.NewDeps(store, config.Config{}, nil, nil)
	return &testApp{app: server.New(deps, opts), store: store}
}

// observe routes the process logger into an in-memory core for the test.
func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(applog.Set(zap.New(core)))
	return logs
}

type result struct {
	status  int
	body    map[string]any
	raw     string
	cookies []*http.Cookie
}

func (r result) str(key string) string {
	v, _ := r.body[key].(string)
	return v
}

// dec reads a money field, which is encoded as a JSON string.
func (r result) dec(t *testing.T, key string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(fmt.Sprint(r.body[key]))
	require.NoError(t, err, "field %s = %v", key, r.body[key])
	return d
}

func (r result) data() map[string]any {
	m, _ := r.body["data"].(map[string]any)
	return m
}

func (r result) list() []any {
	l, _ := r.body["data"].([]any)
	return l
}

func (r result) cookie(name string) string {
	for _, c := range r.cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (ta *testApp) send(t *testing.T, req *http.Request) result {
	t.Helper()
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := result{status: resp.StatusCode, raw: string(raw), cookies: resp.Cookies()}
	_ = json.Unmarshal(raw, &out.body)
	return out
}

// do sends body as JSON, with the session cookie when sid is set.
func (ta *testApp) do(t *testing.T, method, path, sid string, body any) result {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: handlers.SessionCookie, Value: sid})
	}
	return ta.send(t, req)
}

// login signs in and returns the session id.
func (ta *testApp) login(t *testing.T, account string) string {
	t.Helper()
	res := ta.do(t, "POST", "/api/v1/auth/login", "", map[string]any{"account": account, "password": demoPassword})
	require.Equal(t, http.StatusOK, res.status, res.raw)
	sid := res.cookie(handlers.SessionCookie)
	require.NotEmpty(t, sid)
	return sid
}

func (ta *testApp) stock(t *testing.T, productID int64) int {
	t.Helper()
	res := ta.do(t, "GET", fmt.Sprintf("/api/v1/products/%d", productID), "", nil)
	require.Equal(t, http.StatusOK, res.status, res.raw)
	return int(res.data()["stock"].(float64))
}

func (ta *testApp) balance(t *testing.T, sid string) decimal.Decimal {
	t.Helper()
	res := ta.do(t, "GET", "/api/v1/me", sid, nil)
	require.Equal(t, http.StatusOK, res.status, res.raw)
	d, err := decimal.NewFromString(fmt.Sprint(res.data()["balance"]))
	require.NoError(t, err)
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
