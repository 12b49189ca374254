package inventory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// Repository is the ledger and movement storage. Every method runs on the
// transaction carried by ctx when there is one.
type Repository interface {
	// Ledger
	Get(ctx context.Context, productID, warehouseID int64) (*model.Inventory, error)
	// GetQuantity returns 0 for a missing entry. Inside a transaction on
	// postgres the row stays locked until commit.
	GetQuantity(ctx context.Context, productID, warehouseID int64) (int64, error)
	// LockQuantities reads the quantities of several products in one
	// warehouse, locking rows in ascending product id order.
	LockQuantities(ctx context.Context, warehouseID int64, productIDs []int64) (map[int64]int64, error)
	Increment(ctx context.Context, productID, warehouseID, qty int64) error
	// Decrement subtracts qty only when at least qty is on hand and reports
	// whether it did.
	Decrement(ctx context.Context, productID, warehouseID, qty int64) (bool, error)
	SetQuantity(ctx context.Context, productID, warehouseID, qty int64) error
	FindAll(ctx context.Context, filters *dto.InventoryFilters) ([]model.InventoryDetail, error)

	// Movements
	CreateStockIn(ctx context.Context, in *model.StockIn) error
	CreateStockOut(ctx context.Context, out *model.StockOut) error
	ListStockIns(ctx context.Context, filters *dto.MovementFilters) ([]model.StockIn, int, error)
	ListStockOuts(ctx context.Context, filters *dto.MovementFilters) ([]model.StockOut, int, error)

	ProductExists(ctx context.Context, id int64) (bool, error)
	WarehouseExists(ctx context.Context, id int64) (bool, error)
}
