package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/activity"
	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invDto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"go.uber.org/zap"
)

const saleReasonPrefix = "Sale - Order: "

type orderUseCase struct {
	repo      order.Repository
	inventory inventory.UseCase
	tm        txmanager.Transactor
	sink      activity.Sink
	logger    logger.ZapLogger
}

func NewOrderUseCase(repo order.Repository, inv inventory.UseCase, tm txmanager.Transactor, sink activity.Sink, log logger.ZapLogger) order.UseCase {
	if sink == nil {
		sink = activity.Nop()
	}
	return &orderUseCase{
		repo:      repo,
		inventory: inv,
		tm:        tm,
		sink:      sink,
		logger:    log,
	}
}

func (uc *orderUseCase) Create(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	if input.CustomerID <= 0 {
		return nil, apperr.Invalid("customer id is required")
	}
	code := strings.TrimSpace(input.OrderCode)
	if code == "" {
		return nil, apperr.Invalid("order code is required")
	}
	status := input.Status
	if status == "" {
		status = model.OrderPending
	}
	if status != model.OrderPending && status != model.OrderProcessing {
		return nil, apperr.Invalid("new orders must be pending or processing, got %q", status)
	}

	now := time.Now()
	items, err := uc.buildItems(ctx, input.Items, now)
	if err != nil {
		return nil, err
	}

	o := &model.Order{
		BaseModel:   model.BaseModel{CreatedAt: now, UpdatedAt: now},
		CustomerID:  input.CustomerID,
		OrderCode:   code,
		OrderDate:   dateOrToday(input.OrderDate),
		Status:      status,
		TotalAmount: model.OrderTotal(items),
		Items:       items,
	}

	err = uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.Create(ctx, o); err != nil {
			return apperr.Conflict(err, "order code "+code)
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionCreate,
			Table:       "orders",
			RecordID:    o.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Created order %s", o.OrderCode),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.String("order_code", o.OrderCode),
		zap.String("total_amount", o.TotalAmount.String()))
	return o, nil
}

func (uc *orderUseCase) buildItems(ctx context.Context, inputs []dto.OrderItemInput, now time.Time) ([]model.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, apperr.Invalid("order needs at least one item")
	}
	items := make([]model.OrderItem, 0, len(inputs))
	productIDs := make([]int64, 0, len(inputs))
	for i, in := range inputs {
		if in.Quantity <= 0 {
			return nil, apperr.Invalid("item %d: quantity must be positive", i)
		}
		if in.Price.IsNegative() {
			return nil, apperr.Invalid("item %d: price cannot be negative", i)
		}
		items = append(items, model.OrderItem{
			BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now},
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Price:     in.Price,
		})
		productIDs = append(productIDs, in.ProductID)
	}

	missing, err := uc.repo.MissingProduct(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	if missing != 0 {
		return nil, apperr.NotFound("product", missing)
	}
	return items, nil
}

func (uc *orderUseCase) Get(ctx context.Context, id int64) (*model.Order, error) {
	o, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NotFound("order", id)
	}
	if o.Items, err = uc.repo.FindItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (uc *orderUseCase) List(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error) {
	f := *filters
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 15
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	if f.FromDate != nil {
		d := dateOnly(*f.FromDate)
		f.FromDate = &d
	}
	if f.ToDate != nil {
		d := dateOnly(*f.ToDate)
		f.ToDate = &d
	}

	orders, count, err := uc.repo.FindAll(ctx, &f)
	if err != nil {
		return nil, 0, err
	}
	if len(orders) == 0 {
		return orders, count, nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*model.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		orders[i].Items = []model.OrderItem{}
		byID[orders[i].ID] = &orders[i]
	}
	items, err := uc.repo.FindItems(ctx, ids...)
	if err != nil {
		return nil, 0, err
	}
	for _, it := range items {
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}
	return orders, count, nil
}

func (uc *orderUseCase) Update(ctx context.Context, input *dto.UpdateOrderInput) (*model.Order, error) {
	var o *model.Order
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = uc.lockOrder(ctx, input.ID); err != nil {
			return err
		}
		if o.Status == model.OrderCompleted {
			return apperr.InvalidState("order", o.ID, string(o.Status), "update")
		}

		now := time.Now()
		if input.CustomerID != nil {
			if *input.CustomerID <= 0 {
				return apperr.Invalid("customer id is required")
			}
			o.CustomerID = *input.CustomerID
		}
		if input.OrderCode != nil {
			code := strings.TrimSpace(*input.OrderCode)
			if code == "" {
				return apperr.Invalid("order code is required")
			}
			o.OrderCode = code
		}
		if input.OrderDate != nil {
			o.OrderDate = dateOnly(*input.OrderDate)
		}
		if input.Status != nil && *input.Status != o.Status {
			next := *input.Status
			// Completion and cancellation have their own operations.
			if next == model.OrderCompleted || next == model.OrderCancelled || !o.Status.CanTransitionTo(next) {
				return apperr.InvalidState("order", o.ID, string(o.Status), "set status "+string(next))
			}
			o.Status = next
		}

		if input.Items != nil {
			items, err := uc.buildItems(ctx, input.Items, now)
			if err != nil {
				return err
			}
			if err := uc.repo.ReplaceItems(ctx, o.ID, items); err != nil {
				return err
			}
			o.TotalAmount = model.OrderTotal(items)
		}

		o.UpdatedAt = now
		if err := uc.repo.Update(ctx, o); err != nil {
			return apperr.Conflict(err, "order code "+o.OrderCode)
		}
		if o.Items, err = uc.repo.FindItems(ctx, o.ID); err != nil {
			return err
		}

		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionUpdate,
			Table:       "orders",
			RecordID:    o.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Updated order %s", o.OrderCode),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (uc *orderUseCase) Process(ctx context.Context, input *dto.ProcessOrderInput) (*model.Order, error) {
	var o *model.Order
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = uc.lockOrder(ctx, input.OrderID); err != nil {
			return err
		}
		if o.Status.Terminal() {
			return apperr.InvalidState("order", o.ID, string(o.Status), "process")
		}

		ok, err := uc.repo.WarehouseExists(ctx, input.WarehouseID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("warehouse", input.WarehouseID)
		}

		if o.Items, err = uc.repo.FindItems(ctx, o.ID); err != nil {
			return err
		}

		reqs := make([]invDto.Requirement, len(o.Items))
		for i, it := range o.Items {
			reqs[i] = invDto.Requirement{ProductID: it.ProductID, Quantity: it.Quantity}
		}
		if err := uc.inventory.CheckAvailability(ctx, input.WarehouseID, reqs); err != nil {
			return err
		}

		reason := saleReasonPrefix + o.OrderCode
		for _, it := range o.Items {
			if _, err := uc.inventory.StockOut(ctx, &invDto.StockOutInput{
				ProductID:   it.ProductID,
				WarehouseID: input.WarehouseID,
				Quantity:    it.Quantity,
				Reason:      reason,
				UserID:      input.UserID,
			}); err != nil {
				return err
			}
		}

		if err := uc.transition(ctx, o, model.OrderCompleted, "process"); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionProcess,
			Table:       "orders",
			RecordID:    o.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Processed order %s from warehouse %d", o.OrderCode, input.WarehouseID),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("order processed",
		zap.Int64("order_id", o.ID),
		zap.String("order_code", o.OrderCode),
		zap.Int64("warehouse_id", input.WarehouseID),
		zap.Int("items", len(o.Items)))
	return o, nil
}

func (uc *orderUseCase) Cancel(ctx context.Context, id int64, userID string) (*model.Order, error) {
	var o *model.Order
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = uc.lockOrder(ctx, id); err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(model.OrderCancelled) {
			return apperr.InvalidState("order", o.ID, string(o.Status), "cancel")
		}
		if err := uc.transition(ctx, o, model.OrderCancelled, "cancel"); err != nil {
			return err
		}
		if o.Items, err = uc.repo.FindItems(ctx, o.ID); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionCancel,
			Table:       "orders",
			RecordID:    o.ID,
			Actor:       userID,
			Description: fmt.Sprintf("Cancelled order %s", o.OrderCode),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("order cancelled", zap.Int64("order_id", o.ID), zap.String("order_code", o.OrderCode))
	return o, nil
}

func (uc *orderUseCase) Delete(ctx context.Context, id int64, userID string) error {
	return uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		o, err := uc.lockOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == model.OrderCompleted {
			return apperr.InvalidState("order", o.ID, string(o.Status), "delete")
		}
		if err := uc.repo.Delete(ctx, o.ID); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionDelete,
			Table:       "orders",
			RecordID:    o.ID,
			Actor:       userID,
			Description: fmt.Sprintf("Deleted order %s", o.OrderCode),
		})
		return nil
	})
}

func (uc *orderUseCase) lockOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NotFound("order", id)
	}
	return o, nil
}

// transition applies a compare-and-set status change. Losing the race to a
// concurrent writer surfaces as an invalid state.
func (uc *orderUseCase) transition(ctx context.Context, o *model.Order, to model.OrderStatus, op string) error {
	ok, err := uc.repo.UpdateStatus(ctx, o.ID, o.Status, to)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidState("order", o.ID, string(o.Status), op)
	}
	o.Status = to
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateOrToday(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return dateOnly(t)
}
