package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
)

type Conversion struct {
	ViewToCart     decimal.Decimal `json:"view_to_cart"`
	CartToPurchase decimal.Decimal `json:"cart_to_purchase"`
	ViewToPurchase decimal.Decimal `json:"view_to_purchase"`
}

type Dashboard struct {
	TotalProducts  int                       `json:"total_products"`
	TotalUsers     int                       `json:"total_users"`
	TotalActions   int                       `json:"total_actions"`
	TotalPurchases int                       `json:"total_purchases"`
	TotalRevenue   decimal.Decimal           `json:"total_revenue"`
	Conversion     Conversion                `json:"conversion_rates"`
	ActionCounts   map[domain.ActionType]int `json:"action_counts"`
	TopViewed      []repos.ProductCount      `json:"top_viewed"`
	Daily          []repos.KeyCount          `json:"daily_actions"`
	Categories     []repos.KeyCount          `json:"category_actions"`
	OrderAmounts   []repos.KeyCount          `json:"order_amounts"`
}

// amountBuckets are right-open ranges; the last one is unbounded.
var amountBuckets = []struct {
	label string
	upper int64
}{
	{"0-1000", 1000},
	{"1000-3000", 3000},
	{"3000-5000", 5000},
	{"5000-10000", 10000},
	{"10000+", 0},
}

type AnalyticsService struct {
	Store *repos.Store
}

func NewAnalyticsService(store *repos.Store) *AnalyticsService { return &AnalyticsService{Store: store} }

// percent returns num/den*100 with two decimals, 0 when den is 0.
func percent(num, den int) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(num)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(den))).Round(2)
}

func bucketize(orders []domain.Order) []repos.KeyCount {
	out := make([]repos.KeyCount, len(amountBuckets))
	for i, b := range amountBuckets {
		out[i].Key = b.label
	}
	for _, o := range orders {
		if o.Status != domain.OrderPaid {
			continue
		}
		i := len(amountBuckets) - 1
		for j, b := range amountBuckets[:i] {
			if o.Total.LessThan(decimal.NewFromInt(b.upper)) {
				i = j
				break
			}
		}
		out[i].Count++
	}
	return out
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	var err error
	a := s.Store.Actions

	if d.TotalProducts, err = s.Store.Products.Count(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.TotalUsers, err = a.DistinctUsers(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.TotalActions, err = a.Count(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.ActionCounts, err = a.CountByType(ctx, ""); err != nil {
		return Dashboard{}, err
	}
	amounts, err := a.PurchaseAmounts(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d.TotalRevenue = decimal.Sum(decimal.Zero, amounts...).Round(2)
	d.TotalPurchases = d.ActionCounts[domain.ActionPurchase]

	views, carts := d.ActionCounts[domain.ActionView], d.ActionCounts[domain.ActionAddToCart]
	d.Conversion = Conversion{
		ViewToCart:     percent(carts, views),
		CartToPurchase: percent(d.TotalPurchases, carts),
		ViewToPurchase: percent(d.TotalPurchases, views),
	}

	if d.TopViewed, err = a.TopProducts(ctx, domain.ActionView, 5); err != nil {
		return Dashboard{}, err
	}
	if d.Daily, err = a.ByDay(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.Categories, err = a.ByCategory(ctx); err != nil {
		return Dashboard{}, err
	}
	orders, err := s.Store.Orders.ListAll(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d.OrderAmounts = bucketize(orders)
	return d, nil
}
