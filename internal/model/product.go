package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BaseModel struct {
	ID        int64     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Product struct {
	BaseModel
	SKU      string          `db:"sku" json:"sku"`
	Name     string          `db:"name" json:"name"`
	Category string          `db:"category" json:"category"`
	Unit     string          `db:"unit" json:"unit"`
	Price    decimal.Decimal `db:"price" json:"price"`
	MinStock int64           `db:"min_stock" json:"min_stock"` // reorder threshold
}

type Warehouse struct {
	BaseModel
	Name     string `db:"name" json:"name"`
	Location string `db:"location" json:"location"`
}
