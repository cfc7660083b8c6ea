package server_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdminProductLifecycle(t *testing.T) {
	ta := newTestApp(t, testOptions())
	logs := observe(t)
	admin := ta.login(t, "admin")

	res := ta.do(t, "POST", "/api/v1/admin/products", admin, map[string]any{
		"name": "Kindle", "category": "Books", "price": "99.90", "stock": 5,
	})
	require.Equal(t, http.StatusCreated, res.status, res.raw)
	id := int64(res.data()["product_id"].(float64))
	require.Equal(t, int64(9), id)
	require.Equal(t, "default_product.jpg", res.data()["image"])

	res = ta.do(t, "POST", "/api/v1/admin/products", admin, map[string]any{"name": "Broken", "category": "Books", "price": -1})
	require.Equal(t, http.StatusBadRequest, res.status)
	require.Equal(t, "price", res.str("field"))

	res = ta.do(t, "POST", fmt.Sprintf("/api/v1/admin/products/%d", id), admin, map[string]any{"price": 89.5})
	require.Equal(t, http.StatusOK, res.status, res.raw)
	require.Equal(t, "Kindle", res.data()["name"])
	require.True(t, dec("89.5").Equal(dec(res.data()["price"].(string))))

	cats := ta.do(t, "GET", "/api/v1/products/categories", "", nil)
	require.Contains(t, cats.list(), "Books")

	res = ta.do(t, "POST", fmt.Sprintf("/api/v1/admin/products/%d/stock", id), admin, map[string]any{"delta": -10})
	require.Equal(t, http.StatusOK, res.status)
	require.Equal(t, float64(0), res.body["stock"])
	require.Equal(t, true, res.body["clamped"])

	res = ta.do(t, "POST", fmt.Sprintf("/api/v1/admin/products/%d/delete", id), admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	require.Equal(t, http.StatusNotFound, ta.do(t, "GET", fmt.Sprintf("/api/v1/products/%d", id), "", nil).status)
	require.Equal(t, http.StatusNotFound, ta.do(t, "POST", fmt.Sprintf("/api/v1/admin/products/%d/delete", id), admin, nil).status)

	require.Equal(t, 1, logs.FilterMessage("admin.products.create").Len())
	require.Equal(t, 1, logs.FilterMessage("admin.inventory.adjust").Len())
	require.Equal(t, 1, logs.FilterMessage("admin.products.delete").Len())
	require.Equal(t, "audit", logs.FilterMessage("admin.products.delete").All()[0].ContextMap()["kind"])
}

func TestAdminAnalyticsUsersAndExport(t *testing.T) {
	ta := newTestApp(t, testOptions())
	alice := ta.login(t, "alice")
	admin := ta.login(t, "admin")

	require.Equal(t, http.StatusOK, ta.do(t, "GET", "/api/v1/products/3", alice, nil).status)
	require.Equal(t, http.StatusOK, ta.do(t, "POST", "/api/v1/cart/add", alice, map[string]any{"product_id": 3}).status)
	require.Equal(t, http.StatusCreated, ta.do(t, "POST", "/api/v1/orders", alice, nil).status)

	res := ta.do(t, "GET", "/api/v1/admin/analytics", admin, nil)
	require.Equal(t, http.StatusOK, res.status, res.raw)
	d := res.data()
	require.Equal(t, float64(8), d["total_products"])
	require.Equal(t, float64(1), d["total_users"])
	require.Equal(t, float64(3), d["total_actions"])
	require.Equal(t, float64(1), d["total_purchases"])
	require.True(t, dec("1999").Equal(dec(d["total_revenue"].(string))))

	users := ta.do(t, "GET", "/api/v1/admin/users", admin, nil)
	require.Equal(t, float64(3), users.body["count"])
	require.NotContains(t, users.raw, "anonymous")
	require.NotContains(t, users.raw, "password_hash")

	csv := ta.do(t, "GET", "/api/v1/admin/export/orders", admin, nil)
	require.Equal(t, http.StatusOK, csv.status)
	lines := strings.Split(strings.TrimSpace(csv.raw), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "order_id,user_id,username"))
	require.Contains(t, lines[1], "u-alice")

	res = ta.do(t, "GET", "/api/v1/admin/export/secrets", admin, nil)
	require.Equal(t, http.StatusBadRequest, res.status)
}
