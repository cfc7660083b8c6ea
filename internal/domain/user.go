package domain

import "github.com/shopspring/decimal"

// AnonymousID is the reserved user that unauthenticated product views are attributed to.
const (
	AnonymousID       = "anonymous"
	AnonymousUsername = "guest"
)

type User struct {
	ID        string          `db:"id" json:"user_id"`
	Username  string          `db:"username" json:"username"`
	Hash      string          `db:"password_hash" json:"-"`
	Phone     string          `db:"phone" json:"phone"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	IsAdmin   bool            `db:"is_admin" json:"is_admin"`
	CreatedAt string          `db:"created_at" json:"created_at"`
}

func (u *User) Anonymous() bool { return u == nil || u.ID == AnonymousID }

type UserStats struct {
	ViewCount     int `json:"view_count"`
	CartCount     int `json:"cart_count"`
	PurchaseCount int `json:"purchase_count"`
}
