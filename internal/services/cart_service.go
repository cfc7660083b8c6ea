package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
	"github.com/xxwlkq/ecommerce-system/internal/validate"
)

type CartService struct {
	Store *repos.Store
	Log   *ActionLog
}

func NewCartService(store *repos.Store, log *ActionLog) *CartService {
	return &CartService{Store: store, Log: log}
}

func summarize(items []domain.CartItem) domain.CartSummary {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return domain.CartSummary{Count: len(items), Total: total.Round(2)}
}

func (s *CartService) View(ctx context.Context, userID string) (domain.CartView, error) {
	items, err := s.Store.Carts.Items(ctx, userID)
	if err != nil {
		return domain.CartView{}, err
	}
	return domain.CartView{Items: items, CartSummary: summarize(items)}, nil
}

func (s *CartService) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	return s.Store.Carts.Lines(ctx, userID)
}

func (s *CartService) Total(ctx context.Context, userID string) (decimal.Decimal, error) {
	v, err := s.View(ctx, userID)
	return v.Total, err
}

func summary(ctx context.Context, r *repos.Repos, userID string) (domain.CartSummary, error) {
	items, err := r.Carts.Items(ctx, userID)
	if err != nil {
		return domain.CartSummary{}, err
	}
	return summarize(items), nil
}

func requireUser(a Actor) error {
	if a.User.Anonymous() {
		return ErrForbidden
	}
	return nil
}

// Add increments the line; the resulting quantity may not exceed stock.
func (s *CartService) Add(ctx context.Context, a Actor, productID int64, qty int) (domain.CartSummary, error) {
	if err := requireUser(a); err != nil {
		return domain.CartSummary{}, err
	}
	if !validate.Qty(qty) {
		return domain.CartSummary{}, invalid("quantity", "must be between 1 and 999")
	}
	var out domain.CartSummary
	err := s.Store.WithTx(ctx, func(r *repos.Repos) error {
		p, err := r.Products.Get(ctx, productID)
		if err != nil {
			return err
		}
		have := 0
		if l, err := r.Carts.Get(ctx, a.User.ID, productID); err == nil {
			have = l.Quantity
		} else if !errors.Is(err, repos.ErrNotFound) {
			return err
		}
		if have+qty > p.Stock || have+qty > validate.MaxQty {
			return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: have + qty, Available: p.Stock}
		}
		if _, err := r.Carts.Add(ctx, a.User.ID, productID, qty); err != nil {
			return err
		}
		amount := p.Price.Mul(decimal.NewFromInt(int64(qty)))
		if err := s.Log.record(ctx, r, productAction(a, domain.ActionAddToCart, p, qty, amount)); err != nil {
			return err
		}
		out, err = summary(ctx, r, a.User.ID)
		return err
	})
	return out, err
}

// SetQuantity overwrites a line; qty <= 0 removes it.
func (s *CartService) SetQuantity(ctx context.Context, a Actor, productID int64, qty int) (domain.CartSummary, error) {
	if qty <= 0 {
		return s.Remove(ctx, a, productID)
	}
	if err := requireUser(a); err != nil {
		return domain.CartSummary{}, err
	}
	if !validate.Qty(qty) {
		return domain.CartSummary{}, invalid("quantity", "must be between 1 and 999")
	}
	var out domain.CartSummary
	err := s.Store.WithTx(ctx, func(r *repos.Repos) error {
		if _, err := r.Carts.Get(ctx, a.User.ID, productID); err != nil {
			return notInCart(err)
		}
		p, err := r.Products.Get(ctx, productID)
		if err != nil {
			return err
		}
		if qty > p.Stock {
			return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: qty, Available: p.Stock}
		}
		if err := r.Carts.SetQuantity(ctx, a.User.ID, productID, qty); err != nil {
			return err
		}
		amount := p.Price.Mul(decimal.NewFromInt(int64(qty)))
		if err := s.Log.record(ctx, r, productAction(a, domain.ActionUpdateCart, p, qty, amount)); err != nil {
			return err
		}
		out, err = summary(ctx, r, a.User.ID)
		return err
	})
	return out, err
}

func (s *CartService) Remove(ctx context.Context, a Actor, productID int64) (domain.CartSummary, error) {
	if err := requireUser(a); err != nil {
		return domain.CartSummary{}, err
	}
	var out domain.CartSummary
	err := s.Store.WithTx(ctx, func(r *repos.Repos) error {
		l, err := r.Carts.Get(ctx, a.User.ID, productID)
		if err != nil {
			return notInCart(err)
		}
		if err := r.Carts.Remove(ctx, a.User.ID, productID); err != nil {
			return err
		}
		if p, err := r.Products.Get(ctx, productID); err == nil {
			if err := s.Log.record(ctx, r, productAction(a, domain.ActionRemoveCart, p, l.Quantity, decimal.Zero)); err != nil {
				return err
			}
		}
		out, err = summary(ctx, r, a.User.ID)
		return err
	})
	return out, err
}

func (s *CartService) Clear(ctx context.Context, a Actor) (domain.CartSummary, error) {
	if err := requireUser(a); err != nil {
		return domain.CartSummary{}, err
	}
	if err := s.Store.Carts.Clear(ctx, a.User.ID); err != nil {
		return domain.CartSummary{}, err
	}
	return domain.CartSummary{Total: decimal.Zero}, nil
}

func notInCart(err error) error {
	if errors.Is(err, repos.ErrNotFound) {
		return ErrNotInCart
	}
	return err
}
