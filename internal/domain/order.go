package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderItem is the frozen snapshot of one cart line at purchase time.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderItems is stored as one JSON column.
type OrderItems []OrderItem

func (o OrderItems) Value() (driver.Value, error) {
	if o == nil {
		o = OrderItems{}
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (o *OrderItems) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*o = OrderItems{}
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return errors.New("order items: unsupported column type")
	}
	return json.Unmarshal(b, o)
}

type Order struct {
	ID        int64           `db:"id" json:"order_id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Username  string          `db:"username" json:"username"`
	AddressID *int64          `db:"address_id" json:"address_id,omitempty"`
	Items     OrderItems      `db:"items_json" json:"items"`
	Total     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status    OrderStatus     `db:"status" json:"status"`
	CreatedAt string          `db:"created_at" json:"create_time"`
}

func (o Order) Quantity() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
