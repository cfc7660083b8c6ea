package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
)

// Actor is the user behind a request and the session it came from.
type Actor struct {
	User      *domain.User
	SessionID string
}

func (a Actor) UserID() string {
	if a.User == nil {
		return domain.AnonymousID
	}
	return a.User.ID
}

func (a Actor) Admin() bool { return a.User != nil && a.User.IsAdmin }

// ActionLog appends user-facing events and rolls them up per user.
type ActionLog struct {
	Store *repos.Store
	Now   func() time.Time
}

func NewActionLog(store *repos.Store) *ActionLog {
	return &ActionLog{Store: store, Now: time.Now}
}

func (l *ActionLog) stamp() string { return l.Now().Format(domain.TimestampLayout) }

// record appends through r so the entry commits with the caller's transaction.
func (l *ActionLog) record(ctx context.Context, r *repos.Repos, rec domain.ActionRecord) error {
	if !rec.ActionType.Valid() {
		return invalid("action_type", "unknown action "+string(rec.ActionType))
	}
	if rec.Timestamp == "" {
		rec.Timestamp = l.stamp()
	}
	if rec.UserID == "" {
		rec.UserID = domain.AnonymousID
	}
	if rec.Username == "" {
		rec.Username = domain.AnonymousUsername
		if u, err := r.Users.ByID(ctx, rec.UserID); err == nil {
			rec.Username = u.Username
		}
	}
	_, err := r.Actions.Append(ctx, rec)
	return err
}

func (l *ActionLog) Append(ctx context.Context, rec domain.ActionRecord) error {
	return l.record(ctx, l.Store.Repos, rec)
}

func (l *ActionLog) Query(ctx context.Context, f domain.ActionFilter) ([]domain.ActionRecord, error) {
	if f.ActionType != "" && !f.ActionType.Valid() {
		return nil, invalid("action_type", "unknown action "+string(f.ActionType))
	}
	return l.Store.Actions.Query(ctx, f)
}

// Stats counts the user's views, cart adds and purchases.
func (l *ActionLog) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	byType, err := l.Store.Actions.CountByType(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	return domain.UserStats{
		ViewCount:     byType[domain.ActionView],
		CartCount:     byType[domain.ActionAddToCart],
		PurchaseCount: byType[domain.ActionPurchase],
	}, nil
}

func productAction(a Actor, t domain.ActionType, p domain.Product, qty int, amount decimal.Decimal) domain.ActionRecord {
	rec := domain.ActionRecord{
		UserID:          a.UserID(),
		ProductID:       p.ID,
		ProductName:     p.Name,
		ProductCategory: p.Category,
		ActionType:      t,
		SessionID:       a.SessionID,
		Quantity:        qty,
		TotalAmount:     amount,
	}
	if a.User != nil {
		rec.Username = a.User.Username
	}
	return rec
}
