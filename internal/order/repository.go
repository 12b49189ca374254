package order

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
)

type Repository interface {
	// Create inserts the order and its items, filling in generated ids.
	Create(ctx context.Context, order *model.Order) error
	// FindByID returns nil when absent. Inside a transaction on postgres the
	// order row stays locked until commit.
	FindByID(ctx context.Context, id int64) (*model.Order, error)
	FindItems(ctx context.Context, orderIDs ...int64) ([]model.OrderItem, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
	Update(ctx context.Context, order *model.Order) error
	ReplaceItems(ctx context.Context, orderID int64, items []model.OrderItem) error
	// UpdateStatus moves the order from one status to another and reports
	// false when it was no longer in from.
	UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus) (bool, error)
	Delete(ctx context.Context, id int64) error

	// MissingProduct returns the first id in productIDs with no product row, or 0.
	MissingProduct(ctx context.Context, productIDs []int64) (int64, error)
	WarehouseExists(ctx context.Context, id int64) (bool, error)
}
