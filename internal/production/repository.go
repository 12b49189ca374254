package production

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/production/dto"
)

type Repository interface {
	Create(ctx context.Context, order *model.ProductionOrder) error
	// FindByID returns nil when absent and locks the row inside a transaction.
	FindByID(ctx context.Context, id int64) (*model.ProductionOrder, error)
	FindAll(ctx context.Context, filters *dto.ProductionFilters) ([]model.ProductionOrder, int, error)
	Update(ctx context.Context, order *model.ProductionOrder) error
	// Transition moves the order out of from, stamping start or end dates
	// when given. It reports false when the order was no longer in from.
	Transition(ctx context.Context, id int64, from, to model.ProductionStatus, startDate, endDate *time.Time) (bool, error)
	AddLog(ctx context.Context, log *model.ProductionLog) error
	FindLogs(ctx context.Context, orderIDs ...int64) ([]model.ProductionLog, error)
	Statistics(ctx context.Context, from, to *time.Time) (*model.ProductionStatistics, error)

	ProductExists(ctx context.Context, id int64) (bool, error)
	WarehouseExists(ctx context.Context, id int64) (bool, error)
}

type BOMRepository interface {
	// FindByProduct lists the recipe of productID with material details.
	FindByProduct(ctx context.Context, productID int64) ([]model.BillOfMaterial, error)
	HasBOM(ctx context.Context, productID int64) (bool, error)
	Upsert(ctx context.Context, bom *model.BillOfMaterial) error
	Delete(ctx context.Context, productID, materialID int64) (bool, error)
}
