package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	"github.com/xxwlkq/ecommerce-system/internal/events"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
	"github.com/xxwlkq/ecommerce-system/internal/services"
)

var fixedNow = time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

type fakeCache struct {
	mu          sync.Mutex
	items       map[int64]domain.Product
	invalidated []int64
}

func (c *fakeCache) Get(_ context.Context, id int64) (domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	return p, ok
}

func (c *fakeCache) Set(_ context.Context, p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = p
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
	}
	c.invalidated = append(c.invalidated, ids...)
}

type recPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type env struct {
	store     *repos.Store
	log       *services.ActionLog
	catalog   *services.CatalogService
	auth      *services.AuthService
	cart      *services.CartService
	orders    *services.OrderService
	addresses *services.AddressService
	analytics *services.AnalyticsService
	export    *services.ExportService
	cache     *fakeCache
	pub       *recPublisher
	spans     *tracetest.SpanRecorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := repos.NewStore(db)
	e := &env{
		store: store,
		cache: &fakeCache{items: map[int64]domain.Product{}},
		pub:   &recPublisher{},
		spans: tracetest.NewSpanRecorder(),
	}
	e.log = services.NewActionLog(store)
	e.log.Now = func() time.Time { return fixedNow }
	e.catalog = services.NewCatalogService(store, e.cache, e.log)
	e.auth = services.NewAuthService(store, e.log)
	e.cart = services.NewCartService(store, e.log)
	e.orders = services.NewOrderService(store, e.log, e.cache, e.pub, false)
	e.orders.Now = func() time.Time { return fixedNow }
	e.orders.Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(e.spans)).Tracer("test")
	e.addresses = services.NewAddressService(store)
	e.analytics = services.NewAnalyticsService(store)
	e.export = services.NewExportService(store)
	return e
}

func (e *env) product(t *testing.T, name, price string, stock int) int64 {
	t.Helper()
	id, err := e.store.Products.Create(context.Background(), domain.Product{
		Name: name, Category: "Phones", Price: decimal.RequireFromString(price), Stock: stock, Image: "x.jpg",
	})
	require.NoError(t, err)
	return id
}

func (e *env) user(t *testing.T, id, balance string) services.Actor {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.Users.Create(ctx, domain.User{
		ID: id, Username: "name-" + id, Phone: "1390000" + id[len(id)-4:], Hash: "x",
		Balance: decimal.RequireFromString(balance),
	}))
	u, err := e.store.Users.ByID(ctx, id)
	require.NoError(t, err)
	return services.Actor{User: u, SessionID: "sid-" + id}
}

func (e *env) admin(t *testing.T) services.Actor {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.Users.Create(ctx, domain.User{
		ID: "u-root", Username: "root", Phone: "13999999999", Hash: "x", IsAdmin: true,
	}))
	u, err := e.store.Users.ByID(ctx, "u-root")
	require.NoError(t, err)
	return services.Actor{User: u, SessionID: "sid-root"}
}

func (e *env) stock(t *testing.T, id int64) int {
	t.Helper()
	p, err := e.store.Products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (e *env) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	u, err := e.store.Users.ByID(context.Background(), userID)
	require.NoError(t, err)
	return u.Balance
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
