package order

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
)

type UseCase interface {
	Create(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	Get(ctx context.Context, id int64) (*model.Order, error)
	List(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
	Update(ctx context.Context, input *dto.UpdateOrderInput) (*model.Order, error)
	// Process ships every line from one warehouse and completes the order.
	// Either every line is fulfilled or nothing changes.
	Process(ctx context.Context, input *dto.ProcessOrderInput) (*model.Order, error)
	Cancel(ctx context.Context, id int64, userID string) (*model.Order, error)
	Delete(ctx context.Context, id int64, userID string) error
}
