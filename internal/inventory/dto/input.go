package dto

import "time"

type StockInInput struct {
	ProductID   int64
	WarehouseID int64
	Quantity    int64
	Date        time.Time // zero means today
	Note        string
	UserID      string
}

type StockOutInput struct {
	ProductID   int64
	WarehouseID int64
	Quantity    int64
	Date        time.Time
	Reason      string
	UserID      string
}

type TransferInput struct {
	ProductID       int64
	FromWarehouseID int64
	ToWarehouseID   int64
	Quantity        int64
	Note            string
	UserID          string
}

type TransferResult struct {
	From                *Balance `json:"from_warehouse"`
	To                  *Balance `json:"to_warehouse"`
	QuantityTransferred int64    `json:"quantity_transferred"`
}

type Balance struct {
	WarehouseID int64 `json:"warehouse_id"`
	Quantity    int64 `json:"quantity"`
}

// AdjustInput sets the ledger to NewQuantity, recording the difference as a
// movement.
type AdjustInput struct {
	ProductID   int64
	WarehouseID int64
	NewQuantity int64
	Reason      string
	UserID      string
}

// Requirement is a quantity of one product needed from a warehouse.
type Requirement struct {
	ProductID int64
	Quantity  int64
}
