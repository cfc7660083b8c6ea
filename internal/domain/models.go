package domain

import "github.com/shopspring/decimal"

// DefaultImage is used for products created without an uploaded picture.
const DefaultImage = "default_product.jpg"

type Product struct {
	ID          int64           `db:"id" json:"product_id"`
	Name        string          `db:"name" json:"name"`
	Category    string          `db:"category" json:"category"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Description string          `db:"description" json:"description"`
	Image       string          `db:"image" json:"image"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
	UpdatedAt   string          `db:"updated_at" json:"updated_at,omitempty"`
}

// ProductPatch carries the optional fields of an admin edit. Nil means unchanged.
type ProductPatch struct {
	Name        *string          `json:"name,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Description *string          `json:"description,omitempty"`
	Image       *string          `json:"image,omitempty"`
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Price == nil &&
		p.Stock == nil && p.Description == nil && p.Image == nil
}

// Apply returns a copy of prod with the patch fields set.
func (p ProductPatch) Apply(prod Product) Product {
	if p.Name != nil {
		prod.Name = *p.Name
	}
	if p.Category != nil {
		prod.Category = *p.Category
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.Stock != nil {
		prod.Stock = *p.Stock
	}
	if p.Description != nil {
		prod.Description = *p.Description
	}
	if p.Image != nil {
		prod.Image = *p.Image
	}
	return prod
}
