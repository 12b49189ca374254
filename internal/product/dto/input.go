package dto

import "github.com/shopspring/decimal"

type CreateProductInput struct {
	SKU      string
	Name     string
	Category string
	Unit     string
	Price    decimal.Decimal
	MinStock int64
	UserID   string
}

// UpdateProductInput patches a product. Nil fields are left alone.
type UpdateProductInput struct {
	ID       int64
	SKU      *string
	Name     *string
	Category *string
	Unit     *string
	Price    *decimal.Decimal
	MinStock *int64
	UserID   string
}
