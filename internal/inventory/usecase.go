package inventory

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type UseCase interface {
	// Ledger
	GetQuantity(ctx context.Context, productID, warehouseID int64) (int64, error)
	GetInventory(ctx context.Context, productID, warehouseID int64) (*model.Inventory, error)
	Increment(ctx context.Context, productID, warehouseID, qty int64) error
	Decrement(ctx context.Context, productID, warehouseID, qty int64) error
	Adjust(ctx context.Context, input *dto.AdjustInput) (*model.Inventory, error)
	// CheckAvailability verifies every requirement against one warehouse
	// before the caller mutates anything. Quantities for the same product are
	// summed.
	CheckAvailability(ctx context.Context, warehouseID int64, reqs []dto.Requirement) error
	ListInventory(ctx context.Context, filters *dto.InventoryFilters) ([]model.InventoryDetail, error)
	ListLowStock(ctx context.Context, warehouseID int64) ([]model.InventoryDetail, error)

	// Movement recorder
	StockIn(ctx context.Context, input *dto.StockInInput) (*model.StockIn, error)
	StockOut(ctx context.Context, input *dto.StockOutInput) (*model.StockOut, error)
	Transfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error)
	ListStockIns(ctx context.Context, filters *dto.MovementFilters) ([]model.StockIn, int, error)
	ListStockOuts(ctx context.Context, filters *dto.MovementFilters) ([]model.StockOut, int, error)
	ProductMovements(ctx context.Context, productID int64, from, to *time.Time) ([]model.Movement, error)
}
