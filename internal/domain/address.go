package domain

type Address struct {
	ID        int64  `db:"id" json:"address_id"`
	UserID    string `db:"user_id" json:"user_id"`
	Receiver  string `db:"receiver" json:"receiver"`
	Phone     string `db:"phone" json:"phone"`
	Province  string `db:"province" json:"province"`
	City      string `db:"city" json:"city"`
	Detail    string `db:"detail" json:"detail_address"`
	IsDefault bool   `db:"is_default" json:"is_default"`
}
