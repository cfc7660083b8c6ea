package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
)

// CartRepo is a dumb accumulator: bounds are checked by callers.
type CartRepo struct{ db sqlx.ExtContext }

func NewCartRepo(db sqlx.ExtContext) *CartRepo { return &CartRepo{db: db} }

func (r *CartRepo) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	out := []domain.CartLine{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT user_id, product_id, quantity
		FROM cart_items
		WHERE user_id = ?
		ORDER BY created_at, product_id
	`, userID)
	return out, err
}

// Items joins the lines with the live catalog rows and fills in subtotals.
func (r *CartRepo) Items(ctx context.Context, userID string) ([]domain.CartItem, error) {
	out := []domain.CartItem{}
	if err := sqlx.SelectContext(ctx, r.db, &out, `
	  SELECT ci.product_id, p.name, p.category, p.image, p.price, p.stock, ci.quantity
	  FROM cart_items ci JOIN products p ON p.id = ci.product_id
	  WHERE ci.user_id = ?
	  ORDER BY ci.created_at, ci.product_id
	`, userID); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Subtotal = out[i].Price.Mul(decimal.NewFromInt(int64(out[i].Quantity)))
	}
	return out, nil
}

func (r *CartRepo) Get(ctx context.Context, userID string, productID int64) (domain.CartLine, error) {
	var l domain.CartLine
	err := sqlx.GetContext(ctx, r.db, &l, `SELECT user_id, product_id, quantity FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartLine{}, ErrNotFound
	}
	return l, err
}

// Add increments the line, creating it when missing, and returns the new quantity.
func (r *CartRepo) Add(ctx context.Context, userID string, productID int64, qty int) (int, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items(user_id, product_id, quantity, created_at)
		VALUES(?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + excluded.quantity, updated_at = CURRENT_TIMESTAMP
	`, userID, productID, qty); err != nil {
		return 0, err
	}
	l, err := r.Get(ctx, userID, productID)
	return l.Quantity, err
}

// SetQuantity overwrites an existing line; qty <= 0 deletes it.
func (r *CartRepo) SetQuantity(ctx context.Context, userID string, productID int64, qty int) error {
	if qty <= 0 {
		return r.Remove(ctx, userID, productID)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND product_id = ?
	`, qty, userID, productID)
	if err != nil {
		return err
	}
	return rowsOrNotFound(res.RowsAffected())
}

func (r *CartRepo) Remove(ctx context.Context, userID string, productID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return err
	}
	return rowsOrNotFound(res.RowsAffected())
}

func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}
