package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecommerce_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecommerce_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecommerce_orders_total",
			Help: "Purchase and cancel outcomes",
		},
		[]string{"outcome"},
	)

	revenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ecommerce_revenue_total",
			Help: "Sum of paid order totals",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(revenueTotal)
}

// Middleware counts requests per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		// Unmatched requests all land on the middleware's "/" route.
		route := c.Route().Path
		if route == "" || route == "/" {
			route = "unmatched"
		}
		method := utils.CopyString(c.Method())

		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// RecordOrder counts a purchase or cancel outcome: paid, cancelled or rejected.
func RecordOrder(outcome string) {
	ordersTotal.WithLabelValues(outcome).Inc()
}

func RecordRevenue(amount decimal.Decimal) {
	revenueTotal.Add(amount.InexactFloat64())
}
