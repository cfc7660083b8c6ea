package domain

import "github.com/shopspring/decimal"

type CartLine struct {
	UserID    string `db:"user_id" json:"user_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
}

// CartItem is a cart line joined with the live catalog row.
type CartItem struct {
	ProductID int64           `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Category  string          `db:"category" json:"category"`
	Image     string          `db:"image" json:"image"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Stock     int             `db:"stock" json:"stock"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Subtotal  decimal.Decimal `db:"-" json:"subtotal"`
}

type CartSummary struct {
	Count int             `json:"cart_count"`
	Total decimal.Decimal `json:"total_amount"`
}

type CartView struct {
	Items []CartItem `json:"data"`
	CartSummary
}
