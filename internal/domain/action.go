package domain

import "github.com/shopspring/decimal"

type ActionType string

const (
	ActionView       ActionType = "view"
	ActionAddToCart  ActionType = "add_to_cart"
	ActionRemoveCart ActionType = "remove_from_cart"
	ActionUpdateCart ActionType = "update_cart_quantity"
	ActionPurchase   ActionType = "purchase"
	ActionFavorite   ActionType = "favorite"
	ActionRecharge   ActionType = "recharge"
)

// TimestampLayout is the action log and order timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

func (t ActionType) Valid() bool {
	switch t {
	case ActionView, ActionAddToCart, ActionRemoveCart, ActionUpdateCart,
		ActionPurchase, ActionFavorite, ActionRecharge:
		return true
	}
	return false
}

type ActionRecord struct {
	ID              int64           `db:"id" json:"-"`
	Timestamp       string          `db:"ts" json:"timestamp"`
	UserID          string          `db:"user_id" json:"user_id"`
	Username        string          `db:"username" json:"username"`
	ProductID       int64           `db:"product_id" json:"product_id"`
	ProductName     string          `db:"product_name" json:"product_name"`
	ProductCategory string          `db:"product_category" json:"product_category"`
	ActionType      ActionType      `db:"action_type" json:"action_type"`
	SessionID       string          `db:"session_id" json:"session_id"`
	Quantity        int             `db:"quantity" json:"quantity"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
}

type ActionFilter struct {
	UserID     string
	ActionType ActionType
}
