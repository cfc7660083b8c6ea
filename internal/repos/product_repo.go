package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
)

type ProductRepo struct{ db sqlx.ExtContext }

func NewProductRepo(db sqlx.ExtContext) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id, name, category, price, stock, description, image, created_at, COALESCE(updated_at,'') AS updated_at`

// List returns the catalog, filtered by category when one is given.
func (r *ProductRepo) List(ctx context.Context, category string) ([]domain.Product, error) {
	out := []domain.Product{}
	q := `SELECT ` + productCols + ` FROM products`
	args := []any{}
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}
	q += ` ORDER BY id`
	err := sqlx.SelectContext(ctx, r.db, &out, q, args...)
	return out, err
}

func (r *ProductRepo) Categories(ctx context.Context) ([]string, error) {
	out := []string{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT DISTINCT category FROM products ORDER BY category`)
	return out, err
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM products`)
	return n, err
}

func (r *ProductRepo) Get(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := sqlx.GetContext(ctx, r.db, &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrNotFound
	}
	return p, err
}

// Create inserts p and returns its id (one above the current maximum).
func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products(name, category, price, stock, description, image, created_at)
		VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, p.Name, p.Category, p.Price, p.Stock, p.Description, p.Image)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update rewrites every editable column of p.
func (r *ProductRepo) Update(ctx context.Context, p domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, category = ?, price = ?, stock = ?, description = ?, image = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Name, p.Category, p.Price, p.Stock, p.Description, p.Image, p.ID)
	if err != nil {
		return err
	}
	return rowsOrNotFound(res.RowsAffected())
}

func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsOrNotFound(res.RowsAffected())
}

// AdjustStock adds delta to the stock, flooring the result at zero.
// clamped reports whether the floor was applied. Run it inside a
// transaction when callers race on the same product.
func (r *ProductRepo) AdjustStock(ctx context.Context, id int64, delta int) (stock int, clamped bool, err error) {
	var cur int
	err = sqlx.GetContext(ctx, r.db, &cur, `SELECT stock FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, ErrNotFound
	}
	if err != nil {
		return 0, false, err
	}
	stock = cur + delta
	if stock < 0 {
		stock, clamped = 0, true
	}
	_, err = r.db.ExecContext(ctx, `UPDATE products SET stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, stock, id)
	return stock, clamped, err
}

// Decrement subtracts qty only if enough stock exists; ok is false otherwise.
func (r *ProductRepo) Decrement(ctx context.Context, id int64, qty int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, id, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
