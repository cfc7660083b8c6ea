package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	"github.com/xxwlkq/ecommerce-system/internal/events"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/metrics"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
)

// Receipt is the outcome of a successful purchase.
type Receipt struct {
	OrderID    int64           `json:"order_id"`
	Total      decimal.Decimal `json:"total_amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// CancelResult carries the refunded owner's balance and the products whose
// stock could not be restored because they no longer exist.
type CancelResult struct {
	OrderID           int64           `json:"order_id"`
	NewBalance        decimal.Decimal `json:"new_balance"`
	SkippedProductIDs []int64         `json:"skipped_product_ids"`
}

type OrderService struct {
	Store  *repos.Store
	Log    *ActionLog
	Cache  ProductCache
	Events events.Publisher
	Tracer trace.Tracer
	Now    func() time.Time

	// RequireAddress makes purchases fail without an explicit or default address.
	RequireAddress bool
}

func NewOrderService(store *repos.Store, log *ActionLog, cache ProductCache, pub events.Publisher, requireAddress bool) *OrderService {
	if cache == nil {
		cache = noCache{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &OrderService{
		Store:          store,
		Log:            log,
		Cache:          cache,
		Events:         pub,
		Tracer:         otel.Tracer("ecommerce/orders"),
		Now:            time.Now,
		RequireAddress: requireAddress,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Purchase turns the actor's cart into a paid order. Checks, stock
// decrements, the balance debit, the order snapshot, the purchase actions
// and the cart clear commit together or not at all.
func (s *OrderService) Purchase(ctx context.Context, a Actor, addressID *int64) (rcpt Receipt, err error) {
	ctx, span := s.Tracer.Start(ctx, "OrderService.Purchase", trace.WithAttributes(attribute.String("user.id", a.UserID())))
	defer func() { endSpan(span, err) }()

	if err := requireUser(a); err != nil {
		return Receipt{}, err
	}
	uid := a.User.ID
	var order domain.Order
	err = s.Store.WithTx(ctx, func(r *repos.Repos) error {
		lines, err := r.Carts.Lines(ctx, uid)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		addr, err := s.resolveAddress(ctx, r, uid, addressID)
		if err != nil {
			return err
		}
		user, err := r.Users.ByID(ctx, uid)
		if err != nil {
			return err
		}

		items := make(domain.OrderItems, 0, len(lines))
		products := make(map[int64]domain.Product, len(lines))
		total := decimal.Zero
		var short *InsufficientStockError
		for _, l := range lines {
			p, err := r.Products.Get(ctx, l.ProductID)
			if errors.Is(err, repos.ErrNotFound) {
				if short == nil {
					short = &InsufficientStockError{ProductID: l.ProductID, Name: fmt.Sprintf("product %d", l.ProductID), Requested: l.Quantity}
				}
				continue
			}
			if err != nil {
				return err
			}
			if l.Quantity > p.Stock && short == nil {
				short = &InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: l.Quantity, Available: p.Stock}
			}
			it := domain.OrderItem{ProductID: p.ID, Name: p.Name, Image: p.Image, Quantity: l.Quantity, UnitPrice: p.Price}
			items = append(items, it)
			products[p.ID] = p
			total = total.Add(it.Subtotal())
		}
		total = total.Round(2)

		if user.Balance.LessThan(total) {
			return &InsufficientBalanceError{Balance: user.Balance, Total: total, Shortfall: total.Sub(user.Balance)}
		}
		if short != nil {
			return short
		}

		for _, it := range items {
			ok, err := r.Products.Decrement(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				p := products[it.ProductID]
				return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: it.Quantity, Available: p.Stock}
			}
		}
		bal := user.Balance.Sub(total)
		if err := r.Users.SetBalance(ctx, uid, bal); err != nil {
			return err
		}

		order = domain.Order{
			UserID:    uid,
			Username:  user.Username,
			AddressID: addr,
			Items:     items,
			Total:     total,
			Status:    domain.OrderPaid,
			CreatedAt: s.Now().Format(domain.TimestampLayout),
		}
		if order.ID, err = r.Orders.Create(ctx, order); err != nil {
			return err
		}
		for _, it := range items {
			rec := productAction(Actor{User: user, SessionID: a.SessionID}, domain.ActionPurchase, products[it.ProductID], it.Quantity, it.Subtotal())
			rec.Timestamp = order.CreatedAt
			if err := s.Log.record(ctx, r, rec); err != nil {
				return err
			}
		}
		if err := r.Carts.Clear(ctx, uid); err != nil {
			return err
		}
		rcpt = Receipt{OrderID: order.ID, Total: total, NewBalance: bal}
		return nil
	})
	if err != nil {
		metrics.RecordOrder("rejected")
		return Receipt{}, err
	}

	ids := make([]int64, len(order.Items))
	for i, it := range order.Items {
		ids[i] = it.ProductID
	}
	s.Cache.Invalidate(ctx, ids...)
	s.publish(ctx, events.OrderPaid, order)
	metrics.RecordOrder("paid")
	metrics.RecordRevenue(order.Total)
	span.SetAttributes(attribute.Int64("order.id", order.ID), attribute.String("order.total", order.Total.StringFixed(2)))
	return rcpt, nil
}

// resolveAddress returns the explicit address when it belongs to the user,
// else the user's default. A nil id with no default is allowed unless
// addresses are required.
func (s *OrderService) resolveAddress(ctx context.Context, r *repos.Repos, userID string, id *int64) (*int64, error) {
	if id != nil {
		a, err := r.Addresses.Get(ctx, *id, userID)
		if errors.Is(err, repos.ErrNotFound) {
			return nil, ErrNoAddress
		}
		if err != nil {
			return nil, err
		}
		return &a.ID, nil
	}
	a, err := r.Addresses.Default(ctx, userID)
	switch {
	case err == nil:
		return &a.ID, nil
	case !errors.Is(err, repos.ErrNotFound):
		return nil, err
	case s.RequireAddress:
		return nil, ErrNoAddress
	}
	return nil, nil
}

// Cancel refunds a paid order to its owner and puts its frozen quantities
// back on top of current stock. Only the owner or an admin may cancel.
func (s *OrderService) Cancel(ctx context.Context, orderID int64, a Actor) (res CancelResult, err error) {
	ctx, span := s.Tracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(
		attribute.Int64("order.id", orderID), attribute.String("user.id", a.UserID())))
	defer func() { endSpan(span, err) }()

	var order domain.Order
	err = s.Store.WithTx(ctx, func(r *repos.Repos) error {
		o, err := r.Orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := canSee(o, a); err != nil {
			return err
		}
		if o.Status != domain.OrderPaid {
			return ErrInvalidState
		}
		ok, err := r.Orders.SetStatus(ctx, o.ID, domain.OrderPaid, domain.OrderCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidState
		}
		bal, _, err := r.Users.AdjustBalance(ctx, o.UserID, o.Total)
		if err != nil {
			return err
		}
		res = CancelResult{OrderID: o.ID, NewBalance: bal, SkippedProductIDs: []int64{}}
		for _, it := range o.Items {
			if _, _, err := r.Products.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
				if !errors.Is(err, repos.ErrNotFound) {
					return err
				}
				res.SkippedProductIDs = append(res.SkippedProductIDs, it.ProductID)
				applog.L().Warn("order.cancel.restock_skipped",
					zap.Int64("order_id", o.ID), zap.Int64("product_id", it.ProductID), zap.Int("quantity", it.Quantity))
			}
		}
		o.Status = domain.OrderCancelled
		order = o
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}

	ids := make([]int64, len(order.Items))
	for i, it := range order.Items {
		ids[i] = it.ProductID
	}
	s.Cache.Invalidate(ctx, ids...)
	s.publish(ctx, events.OrderCancelled, order)
	metrics.RecordOrder("cancelled")
	return res, nil
}

func (s *OrderService) publish(ctx context.Context, typ string, o domain.Order) {
	e := events.OrderEvent{
		Type:      typ,
		OrderID:   o.ID,
		UserID:    o.UserID,
		Total:     o.Total,
		Items:     o.Items,
		Timestamp: s.Now().Format(domain.TimestampLayout),
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		applog.L().Error("event.publish", zap.String("type", typ), zap.Int64("order_id", o.ID), zap.Error(err))
	}
}

func canSee(o domain.Order, a Actor) error {
	if a.Admin() || (a.User != nil && !a.User.Anonymous() && o.UserID == a.User.ID) {
		return nil
	}
	return ErrForbidden
}

// Get returns the order to its owner or an admin.
func (s *OrderService) Get(ctx context.Context, id int64, a Actor) (domain.Order, error) {
	o, err := s.Store.Orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if err := canSee(o, a); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.Store.Orders.ListByUser(ctx, userID)
}

func (s *OrderService) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.Store.Orders.ListAll(ctx)
}
