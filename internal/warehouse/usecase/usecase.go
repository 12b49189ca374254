package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/activity"
	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"go.uber.org/zap"
)

type warehouseUseCase struct {
	repo   warehouse.Repository
	tm     txmanager.Transactor
	sink   activity.Sink
	logger logger.ZapLogger
}

func NewWarehouseUseCase(repo warehouse.Repository, tm txmanager.Transactor, sink activity.Sink, log logger.ZapLogger) warehouse.UseCase {
	if sink == nil {
		sink = activity.Nop()
	}
	return &warehouseUseCase{
		repo:   repo,
		tm:     tm,
		sink:   sink,
		logger: log,
	}
}

func (uc *warehouseUseCase) CreateWarehouse(ctx context.Context, input *dto.CreateWarehouseInput) (*model.Warehouse, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}

	now := time.Now()
	w := &model.Warehouse{
		BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:      name,
		Location:  strings.TrimSpace(input.Location),
	}

	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.Create(ctx, w); err != nil {
			return err
		}
		if err := uc.repo.CreateInventoryRows(ctx, w.ID); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionCreate,
			Table:       "warehouses",
			RecordID:    w.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Created warehouse %s", w.Name),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("warehouse created", zap.Int64("warehouse_id", w.ID), zap.String("name", w.Name))
	return w, nil
}

func (uc *warehouseUseCase) GetWarehouse(ctx context.Context, id int64) (*model.Warehouse, error) {
	w, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apperr.NotFound("warehouse", id)
	}
	return w, nil
}

func (uc *warehouseUseCase) ListWarehouses(ctx context.Context, filters *dto.WarehouseFilters) ([]model.Warehouse, int, error) {
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
	return uc.repo.FindAll(ctx, &f)
}

func (uc *warehouseUseCase) UpdateWarehouse(ctx context.Context, input *dto.UpdateWarehouseInput) (*model.Warehouse, error) {
	var w *model.Warehouse
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if w, err = uc.GetWarehouse(ctx, input.ID); err != nil {
			return err
		}
		if input.Name != nil {
			if w.Name = strings.TrimSpace(*input.Name); w.Name == "" {
				return apperr.Invalid("name is required")
			}
		}
		if input.Location != nil {
			w.Location = strings.TrimSpace(*input.Location)
		}
		w.UpdatedAt = time.Now()
		if err := uc.repo.Update(ctx, w); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionUpdate,
			Table:       "warehouses",
			RecordID:    w.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Updated warehouse %s", w.Name),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// DeleteWarehouse refuses while the warehouse holds stock or appears in
// movement history.
func (uc *warehouseUseCase) DeleteWarehouse(ctx context.Context, id int64, userID string) error {
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		w, err := uc.GetWarehouse(ctx, id)
		if err != nil {
			return err
		}
		ref, err := uc.repo.Reference(ctx, id)
		if err != nil {
			return err
		}
		if ref != "" {
			return fmt.Errorf("%w: warehouse %d is referenced by %s", apperr.ErrInUse, id, ref)
		}
		if err := uc.repo.Delete(ctx, id); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionDelete,
			Table:       "warehouses",
			RecordID:    id,
			Actor:       userID,
			Description: fmt.Sprintf("Deleted warehouse %s", w.Name),
		})
		return nil
	})
	if err != nil {
		return err
	}

	uc.logger.Info("warehouse deleted", zap.Int64("warehouse_id", id))
	return nil
}
