package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
)

type OrderRepo struct{ db sqlx.ExtContext }

func NewOrderRepo(db sqlx.ExtContext) *OrderRepo { return &OrderRepo{db: db} }

const orderCols = `id, user_id, username, address_id, items_json, total_amount, status, created_at`

// Create inserts the snapshot and returns the sequential order id.
func (r *OrderRepo) Create(ctx context.Context, o domain.Order) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	  INSERT INTO orders
	    (user_id, username, address_id, items_json, total_amount, status, created_at)
	  VALUES
	    (?,       ?,        ?,          ?,          ?,            ?,      ?)
	`, o.UserID, o.Username, o.AddressID, o.Items, o.Total.Round(2), string(o.Status), o.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *OrderRepo) Get(ctx context.Context, id int64) (domain.Order, error) {
	var o domain.Order
	err := sqlx.GetContext(ctx, r.db, &o, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, ErrNotFound
	}
	return o, err
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+orderCols+`
		FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	return out, err
}

func (r *OrderRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	out := []domain.Order{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+orderCols+`
		FROM orders
		ORDER BY created_at DESC, id DESC
	`)
	return out, err
}

// SetStatus moves the order from one status to another; ok is false when
// the order is missing or not in the expected status.
func (r *OrderRepo) SetStatus(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ? AND status = ?`, string(to), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
