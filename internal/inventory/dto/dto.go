package dto

import "time"

type MovementFilters struct {
	ProductID   int64
	WarehouseID int64
	Reason      string // stock outs only
	FromDate    *time.Time
	ToDate      *time.Time
	Page        int
	PageSize    int
}

type InventoryFilters struct {
	WarehouseID int64
	ProductID   int64
	LowStock    bool // quantity <= product.min_stock
}
