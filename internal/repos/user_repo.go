package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
)

type UserRepo struct{ db sqlx.ExtContext }

func NewUserRepo(db sqlx.ExtContext) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, username, password_hash, phone, balance, is_admin, created_at`

func (r *UserRepo) one(ctx context.Context, where string, args ...any) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.db, &u, `SELECT `+userCols+` FROM users WHERE `+where+` LIMIT 1`, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	return r.one(ctx, `id = ?`, id)
}

func (r *UserRepo) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.one(ctx, `username = ?`, username)
}

func (r *UserRepo) ByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if phone == "" {
		return nil, ErrNotFound
	}
	return r.one(ctx, `phone = ?`, phone)
}

// ByIdentifier matches id, username or phone, in that order of preference.
func (r *UserRepo) ByIdentifier(ctx context.Context, ident string) (*domain.User, error) {
	if ident == "" {
		return nil, ErrNotFound
	}
	return r.one(ctx, `id = ?1 OR username = ?1 OR (phone != '' AND phone = ?1)
		ORDER BY CASE WHEN id = ?1 THEN 0 WHEN username = ?1 THEN 1 ELSE 2 END`, ident)
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	out := []domain.User{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT `+userCols+` FROM users WHERE id != ? ORDER BY created_at, id`, domain.AnonymousID)
	return out, err
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users(id, username, password_hash, phone, balance, is_admin, created_at)
		VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, u.ID, u.Username, u.Hash, u.Phone, u.Balance, u.IsAdmin)
	if isUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id, username, phone string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET username = ?, phone = ? WHERE id = ?`, username, phone, id)
	if isUnique(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	return rowsOrNotFound(res.RowsAffected())
}

func (r *UserRepo) SetBalance(ctx context.Context, id string, bal decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET balance = ? WHERE id = ?`, bal.Round(2), id)
	if err != nil {
		return err
	}
	return rowsOrNotFound(res.RowsAffected())
}

// AdjustBalance adds delta, flooring at zero; clamped reports the floor was hit.
func (r *UserRepo) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (bal decimal.Decimal, clamped bool, err error) {
	u, err := r.ByID(ctx, id)
	if err != nil {
		return decimal.Zero, false, err
	}
	bal = u.Balance.Add(delta)
	if bal.IsNegative() {
		bal, clamped = decimal.Zero, true
	}
	bal = bal.Round(2)
	return bal, clamped, r.SetBalance(ctx, id, bal)
}

// ---------- Sessions ----------

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.db, &u, `
      SELECT u.id,u.username,u.password_hash,u.phone,u.balance,u.is_admin,u.created_at
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// ---------- Favorites ----------

// AddFavorite reports false when the product was already a favorite.
func (r *UserRepo) AddFavorite(ctx context.Context, userID string, productID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	  INSERT INTO favorites(user_id, product_id, created_at)
	  VALUES(?, ?, CURRENT_TIMESTAMP)
	  ON CONFLICT(user_id, product_id) DO NOTHING
	`, userID, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RemoveFavorite reports false when the product was not a favorite.
func (r *UserRepo) RemoveFavorite(ctx context.Context, userID string, productID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id=? AND product_id=?`, userID, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *UserRepo) FavoriteIDs(ctx context.Context, userID string) ([]int64, error) {
	out := []int64{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT product_id FROM favorites WHERE user_id=? ORDER BY created_at, product_id`, userID)
	return out, err
}

func (r *UserRepo) FavoriteProducts(ctx context.Context, userID string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
	  SELECT p.id, p.name, p.category, p.price, p.stock, p.description, p.image, p.created_at, COALESCE(p.updated_at,'') AS updated_at
	  FROM favorites f
	  JOIN products p ON p.id = f.product_id
	  WHERE f.user_id = ?
	  ORDER BY f.created_at, p.id
	`, userID)
	return out, err
}
