package product

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product/dto"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	// Delete removes the product with its ledger rows and every recipe it
	// appears in.
	Delete(ctx context.Context, id int64) error

	// CreateInventoryRows opens a zero ledger entry in every warehouse.
	CreateInventoryRows(ctx context.Context, productID int64) error
	// Reference names the first thing still pointing at the product, or "".
	Reference(ctx context.Context, id int64) (string, error)
}
