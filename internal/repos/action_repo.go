package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
)

// ActionRepo is insert-only; there is no update or delete.
type ActionRepo struct{ db sqlx.ExtContext }

func NewActionRepo(db sqlx.ExtContext) *ActionRepo { return &ActionRepo{db: db} }

const actionCols = `id, ts, user_id, username, product_id, product_name, product_category, action_type, session_id, quantity, total_amount`

func (r *ActionRepo) Append(ctx context.Context, a domain.ActionRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_actions(ts, user_id, username, product_id, product_name, product_category, action_type, session_id, quantity, total_amount)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Timestamp, a.UserID, a.Username, a.ProductID, a.ProductName, a.ProductCategory,
		string(a.ActionType), a.SessionID, a.Quantity, a.TotalAmount.Round(2))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Query returns matching records, newest first.
func (r *ActionRepo) Query(ctx context.Context, f domain.ActionFilter) ([]domain.ActionRecord, error) {
	q := `SELECT ` + actionCols + ` FROM user_actions WHERE 1=1`
	args := []any{}
	if f.UserID != "" {
		q += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.ActionType != "" {
		q += ` AND action_type = ?`
		args = append(args, string(f.ActionType))
	}
	q += ` ORDER BY ts DESC, id DESC`
	out := []domain.ActionRecord{}
	err := sqlx.SelectContext(ctx, r.db, &out, q, args...)
	return out, err
}

func (r *ActionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM user_actions`)
	return n, err
}

// CountByType groups the log by action type; userID "" counts everyone.
func (r *ActionRepo) CountByType(ctx context.Context, userID string) (map[domain.ActionType]int, error) {
	q := `SELECT action_type AS k, COUNT(*) AS n FROM user_actions`
	args := []any{}
	if userID != "" {
		q += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	q += ` GROUP BY action_type`
	rows := []KeyCount{}
	if err := sqlx.SelectContext(ctx, r.db, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make(map[domain.ActionType]int, len(rows))
	for _, kc := range rows {
		out[domain.ActionType(kc.Key)] = kc.Count
	}
	return out, nil
}

func (r *ActionRepo) DistinctUsers(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(DISTINCT user_id) FROM user_actions`)
	return n, err
}

// KeyCount is one row of a grouped count.
type KeyCount struct {
	Key   string `db:"k" json:"key"`
	Count int    `db:"n" json:"count"`
}

// ProductCount is one row of the top products report.
type ProductCount struct {
	ProductID   int64  `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	Count       int    `db:"n" json:"count"`
}

// TopProducts ranks products by how often they appear with the given action.
func (r *ActionRepo) TopProducts(ctx context.Context, action domain.ActionType, limit int) ([]ProductCount, error) {
	if limit <= 0 {
		limit = 5
	}
	out := []ProductCount{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT product_id, MAX(product_name) AS product_name, COUNT(*) AS n
		FROM user_actions
		WHERE action_type = ? AND product_id != 0
		GROUP BY product_id
		ORDER BY n DESC, product_id
		LIMIT ?
	`, string(action), limit)
	return out, err
}

// ByDay counts records per calendar day, oldest first.
func (r *ActionRepo) ByDay(ctx context.Context) ([]KeyCount, error) {
	out := []KeyCount{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT substr(ts, 1, 10) AS k, COUNT(*) AS n
		FROM user_actions
		GROUP BY k
		ORDER BY k
	`)
	return out, err
}

func (r *ActionRepo) ByCategory(ctx context.Context) ([]KeyCount, error) {
	out := []KeyCount{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT product_category AS k, COUNT(*) AS n
		FROM user_actions
		WHERE product_category != ''
		GROUP BY k
		ORDER BY n DESC, k
	`)
	return out, err
}

// PurchaseAmounts returns the amount of every purchase record.
func (r *ActionRepo) PurchaseAmounts(ctx context.Context) ([]decimal.Decimal, error) {
	out := []decimal.Decimal{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT total_amount FROM user_actions WHERE action_type = ?`, string(domain.ActionPurchase))
	return out, err
}
