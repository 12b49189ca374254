package warehouse

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
)

type Repository interface {
	Create(ctx context.Context, warehouse *model.Warehouse) error
	FindByID(ctx context.Context, id int64) (*model.Warehouse, error)
	FindAll(ctx context.Context, filters *dto.WarehouseFilters) ([]model.Warehouse, int, error)
	Update(ctx context.Context, warehouse *model.Warehouse) error
	// Delete removes the warehouse together with its (empty) ledger rows.
	Delete(ctx context.Context, id int64) error

	// CreateInventoryRows opens a zero ledger entry for every product.
	CreateInventoryRows(ctx context.Context, warehouseID int64) error
	// Reference names the first thing still pointing at the warehouse, or "".
	Reference(ctx context.Context, id int64) (string, error)
}
