package production

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/production/dto"
)

type UseCase interface {
	Create(ctx context.Context, input *dto.CreateProductionInput) (*model.ProductionOrder, error)
	Get(ctx context.Context, id int64) (*model.ProductionOrder, error)
	List(ctx context.Context, filters *dto.ProductionFilters) ([]model.ProductionOrder, int, error)
	Update(ctx context.Context, input *dto.UpdateProductionInput) (*model.ProductionOrder, error)
	// Start consumes every material of the recipe from one warehouse, or
	// nothing at all.
	Start(ctx context.Context, input *dto.StartProductionInput) (*model.ProductionOrder, error)
	Complete(ctx context.Context, input *dto.CompleteProductionInput) (*model.ProductionOrder, error)
	// Cancel never returns consumed materials to stock.
	Cancel(ctx context.Context, input *dto.CancelProductionInput) (*model.ProductionOrder, error)
	AddLog(ctx context.Context, input *dto.AddLogInput) (*model.ProductionLog, error)

	CanProduce(ctx context.Context, productID, quantity, warehouseID int64) (*model.ProductionCheck, error)
	MaterialRequirements(ctx context.Context, productID, quantity int64) ([]model.MaterialRequirement, error)
	Statistics(ctx context.Context, from, to *time.Time) (*model.ProductionStatistics, error)

	// Bill of materials
	ListBOM(ctx context.Context, productID int64) ([]model.BillOfMaterial, error)
	SetMaterial(ctx context.Context, input *dto.SetMaterialInput) (*model.BillOfMaterial, error)
	RemoveMaterial(ctx context.Context, productID, materialID int64, userID string) error
}
