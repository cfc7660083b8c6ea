package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
)

type AddressRepo struct{ db sqlx.ExtContext }

func NewAddressRepo(db sqlx.ExtContext) *AddressRepo { return &AddressRepo{db: db} }

const addressCols = `id, user_id, receiver, phone, province, city, detail, is_default`

func (r *AddressRepo) Create(ctx context.Context, a domain.Address) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO addresses(user_id, receiver, phone, province, city, detail, is_default)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, a.UserID, a.Receiver, a.Phone, a.Province, a.City, a.Detail, a.IsDefault)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns the user's addresses, default first.
func (r *AddressRepo) List(ctx context.Context, userID string) ([]domain.Address, error) {
	out := []domain.Address{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT `+addressCols+` FROM addresses WHERE user_id = ? ORDER BY is_default DESC, id`, userID)
	return out, err
}

// Get only matches addresses owned by userID.
func (r *AddressRepo) Get(ctx context.Context, id int64, userID string) (domain.Address, error) {
	var a domain.Address
	err := sqlx.GetContext(ctx, r.db, &a, `SELECT `+addressCols+` FROM addresses WHERE id = ? AND user_id = ?`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Address{}, ErrNotFound
	}
	return a, err
}

func (r *AddressRepo) Default(ctx context.Context, userID string) (domain.Address, error) {
	var a domain.Address
	err := sqlx.GetContext(ctx, r.db, &a, `SELECT `+addressCols+` FROM addresses WHERE user_id = ? AND is_default = 1 LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Address{}, ErrNotFound
	}
	return a, err
}

func (r *AddressRepo) Update(ctx context.Context, a domain.Address) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE addresses
		SET receiver = ?, phone = ?, province = ?, city = ?, detail = ?, is_default = ?
		WHERE id = ? AND user_id = ?
	`, a.Receiver, a.Phone, a.Province, a.City, a.Detail, a.IsDefault, a.ID, a.UserID)
	if err != nil {
		return err
	}
	return rowsOrNotFound(res.RowsAffected())
}

func (r *AddressRepo) Delete(ctx context.Context, id int64, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return rowsOrNotFound(res.RowsAffected())
}

func (r *AddressRepo) ClearDefault(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE addresses SET is_default = 0 WHERE user_id = ?`, userID)
	return err
}

// PromoteOldest makes the user's lowest-id address other than except the
// default. It reports whether any address was promoted.
func (r *AddressRepo) PromoteOldest(ctx context.Context, userID string, except int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE addresses SET is_default = 1
		WHERE id = (SELECT MIN(id) FROM addresses WHERE user_id = ? AND id != ?)
	`, userID, except)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
