package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
	"github.com/xxwlkq/ecommerce-system/internal/validate"
)

// ProductCache is consulted on product reads and invalidated on writes.
type ProductCache interface {
	Get(ctx context.Context, id int64) (domain.Product, bool)
	Set(ctx context.Context, p domain.Product)
	Invalidate(ctx context.Context, ids ...int64)
}

type noCache struct{}

func (noCache) Get(context.Context, int64) (domain.Product, bool) { return domain.Product{}, false }
func (noCache) Set(context.Context, domain.Product) {}
func (noCache) Invalidate(context.Context, ...int64) {}

type CatalogService struct {
	Store *repos.Store
	Cache ProductCache
	Log   *ActionLog
}

func NewCatalogService(store *repos.Store, cache ProductCache, log *ActionLog) *CatalogService {
	if cache == nil {
		cache = noCache{}
	}
	return &CatalogService{Store: store, Cache: cache, Log: log}
}

// List returns every product, or one category when given ("all" means every).
func (s *CatalogService) List(ctx context.Context, category string) ([]domain.Product, error) {
	category = strings.TrimSpace(category)
	if strings.EqualFold(category, "all") {
		category = ""
	}
	return s.Store.Products.List(ctx, category)
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.Store.Products.Categories(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id int64) (domain.Product, error) {
	if p, ok := s.Cache.Get(ctx, id); ok {
		return p, nil
	}
	p, err := s.Store.Products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	s.Cache.Set(ctx, p)
	return p, nil
}

// View returns the product and records a view by the actor.
func (s *CatalogService) View(ctx context.Context, a Actor, id int64) (domain.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.Log.Append(ctx, productAction(a, domain.ActionView, p, 1, decimal.Zero)); err != nil {
		applog.L().Warn("action.view.failed", zap.Int64("product_id", id), zap.Error(err))
	}
	return p, nil
}

func checkProduct(p domain.Product) error {
	if _, ok := validate.Text(p.Name, 100); !ok {
		return invalid("name", "required, at most 100 characters")
	}
	if _, ok := validate.Text(p.Category, 50); !ok {
		return invalid("category", "required, at most 50 characters")
	}
	if !validate.Amount(p.Price) {
		return invalid("price", "must be greater than 0 with at most two decimals")
	}
	if p.Stock < 0 {
		return invalid("stock", "must not be negative")
	}
	if utf8.RuneCountInString(p.Description) > 2000 {
		return invalid("description", "at most 2000 characters")
	}
	return nil
}

func normalize(p domain.Product) domain.Product {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Description = strings.TrimSpace(p.Description)
	p.Image = strings.TrimSpace(p.Image)
	if p.Image == "" {
		p.Image = domain.DefaultImage
	}
	return p
}

func (s *CatalogService) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	p = normalize(p)
	if err := checkProduct(p); err != nil {
		return domain.Product{}, err
	}
	id, err := s.Store.Products.Create(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}
	return s.Store.Products.Get(ctx, id)
}

// Update applies the non-nil fields of patch.
func (s *CatalogService) Update(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error) {
	if patch.Empty() {
		return domain.Product{}, invalid("fields", "nothing to update")
	}
	var out domain.Product
	err := s.Store.WithTx(ctx, func(r *repos.Repos) error {
		cur, err := r.Products.Get(ctx, id)
		if err != nil {
			return err
		}
		next := normalize(patch.Apply(cur))
		if err := checkProduct(next); err != nil {
			return err
		}
		if err := r.Products.Update(ctx, next); err != nil {
			return err
		}
		out, err = r.Products.Get(ctx, id)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.Cache.Invalidate(ctx, id)
	return out, nil
}

// Delete removes the product; orders keep their snapshots.
func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if err := s.Store.Products.Delete(ctx, id); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, id)
	return nil
}

// AdjustStock adds delta, flooring at zero; clamped reports the floor was hit.
func (s *CatalogService) AdjustStock(ctx context.Context, id int64, delta int) (stock int, clamped bool, err error) {
	err = s.Store.WithTx(ctx, func(r *repos.Repos) error {
		stock, clamped, err = r.Products.AdjustStock(ctx, id, delta)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	s.Cache.Invalidate(ctx, id)
	if clamped {
		applog.L().Warn("stock.clamped", zap.Int64("product_id", id), zap.Int("delta", delta))
	}
	return stock, clamped, nil
}
