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
	"github.com/fekuna/omnipos-inventory-service/internal/production"
	"github.com/fekuna/omnipos-inventory-service/internal/production/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"go.uber.org/zap"
)

const (
	noteCreated   = "Production order created"
	noteStarted   = "Production started - materials consumed"
	noteCompleted = "Production completed - Quantity: %d"
	noteCancelled = "Production order cancelled. Reason: %s"

	consumeReasonPrefix = "Production - Order: "
	produceNotePrefix   = "Production completed - Order: "
)

type productionUseCase struct {
	repo      production.Repository
	bom       production.BOMRepository
	inventory inventory.UseCase
	tm        txmanager.Transactor
	sink      activity.Sink
	logger    logger.ZapLogger
}

func NewProductionUseCase(
	repo production.Repository,
	bom production.BOMRepository,
	inv inventory.UseCase,
	tm txmanager.Transactor,
	sink activity.Sink,
	log logger.ZapLogger,
) production.UseCase {
	if sink == nil {
		sink = activity.Nop()
	}
	return &productionUseCase{
		repo:      repo,
		bom:       bom,
		inventory: inv,
		tm:        tm,
		sink:      sink,
		logger:    log,
	}
}

func (uc *productionUseCase) Create(ctx context.Context, input *dto.CreateProductionInput) (*model.ProductionOrder, error) {
	code := normalizeCode(input.OrderCode)
	if code == "" {
		return nil, apperr.Invalid("order code is required")
	}
	if input.Quantity <= 0 {
		return nil, apperr.Invalid("quantity must be positive, got %d", input.Quantity)
	}

	now := time.Now().UTC()
	o := &model.ProductionOrder{
		BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now},
		OrderCode: code,
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
		Status:    model.ProductionPending,
	}

	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.requireRecipe(ctx, input.ProductID); err != nil {
			return err
		}
		if err := uc.repo.Create(ctx, o); err != nil {
			return apperr.Conflict(err, "production order code "+code)
		}
		if err := uc.log(ctx, o, noteCreated, input.UserID); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionCreate,
			Table:       "production_orders",
			RecordID:    o.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Created production order %s", o.OrderCode),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("production order created",
		zap.Int64("production_order_id", o.ID),
		zap.Int64("product_id", o.ProductID),
		zap.Int64("quantity", o.Quantity))
	return o, nil
}

func (uc *productionUseCase) Get(ctx context.Context, id int64) (*model.ProductionOrder, error) {
	o, err := uc.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Logs, err = uc.repo.FindLogs(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (uc *productionUseCase) List(ctx context.Context, filters *dto.ProductionFilters) ([]model.ProductionOrder, int, error) {
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

	orders, count, err := uc.repo.FindAll(ctx, &f)
	if err != nil {
		return nil, 0, err
	}
	if len(orders) == 0 {
		return orders, count, nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*model.ProductionOrder, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		orders[i].Logs = []model.ProductionLog{}
		byID[orders[i].ID] = &orders[i]
	}
	logs, err := uc.repo.FindLogs(ctx, ids...)
	if err != nil {
		return nil, 0, err
	}
	for _, l := range logs {
		o := byID[l.ProductionOrderID]
		o.Logs = append(o.Logs, l)
	}
	return orders, count, nil
}

func (uc *productionUseCase) Update(ctx context.Context, input *dto.UpdateProductionInput) (*model.ProductionOrder, error) {
	var o *model.ProductionOrder
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = uc.find(ctx, input.ID); err != nil {
			return err
		}
		// Materials are consumed on start, so the recipe inputs freeze there.
		if o.Status != model.ProductionPending {
			return apperr.InvalidState("production order", o.ID, string(o.Status), "update")
		}

		if input.OrderCode != nil {
			code := normalizeCode(*input.OrderCode)
			if code == "" {
				return apperr.Invalid("order code is required")
			}
			o.OrderCode = code
		}
		if input.Quantity != nil {
			if *input.Quantity <= 0 {
				return apperr.Invalid("quantity must be positive, got %d", *input.Quantity)
			}
			o.Quantity = *input.Quantity
		}
		if input.ProductID != nil && *input.ProductID != o.ProductID {
			if err := uc.requireRecipe(ctx, *input.ProductID); err != nil {
				return err
			}
			o.ProductID = *input.ProductID
		}

		o.UpdatedAt = time.Now().UTC()
		if err := uc.repo.Update(ctx, o); err != nil {
			return apperr.Conflict(err, "production order code "+o.OrderCode)
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionUpdate,
			Table:       "production_orders",
			RecordID:    o.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Updated production order %s", o.OrderCode),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (uc *productionUseCase) Start(ctx context.Context, input *dto.StartProductionInput) (*model.ProductionOrder, error) {
	var o *model.ProductionOrder
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = uc.find(ctx, input.ID); err != nil {
			return err
		}
		if o.Status != model.ProductionPending {
			return apperr.InvalidState("production order", o.ID, string(o.Status), "start")
		}
		if err := uc.requireWarehouse(ctx, input.WarehouseID); err != nil {
			return err
		}

		boms, err := uc.bom.FindByProduct(ctx, o.ProductID)
		if err != nil {
			return err
		}
		if len(boms) == 0 {
			return &apperr.MissingBOMError{ProductID: o.ProductID}
		}

		reqs := make([]invDto.Requirement, len(boms))
		for i, b := range boms {
			reqs[i] = invDto.Requirement{ProductID: b.MaterialID, Quantity: b.QuantityRequired * o.Quantity}
		}
		if err := uc.inventory.CheckAvailability(ctx, input.WarehouseID, reqs); err != nil {
			return err
		}

		reason := consumeReasonPrefix + o.OrderCode
		for _, req := range reqs {
			if _, err := uc.inventory.StockOut(ctx, &invDto.StockOutInput{
				ProductID:   req.ProductID,
				WarehouseID: input.WarehouseID,
				Quantity:    req.Quantity,
				Reason:      reason,
				UserID:      input.UserID,
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := uc.transition(ctx, o, model.ProductionInProgress, "start", &now, nil); err != nil {
			return err
		}
		o.StartDate = &now
		if err := uc.log(ctx, o, noteStarted, input.UserID); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionStart,
			Table:       "production_orders",
			RecordID:    o.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Started production %s", o.OrderCode),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("production started",
		zap.Int64("production_order_id", o.ID),
		zap.Int64("warehouse_id", input.WarehouseID))
	return uc.withLogs(ctx, o)
}

func (uc *productionUseCase) Complete(ctx context.Context, input *dto.CompleteProductionInput) (*model.ProductionOrder, error) {
	var (
		o        *model.ProductionOrder
		produced int64
	)
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = uc.find(ctx, input.ID); err != nil {
			return err
		}
		if o.Status != model.ProductionInProgress {
			return apperr.InvalidState("production order", o.ID, string(o.Status), "complete")
		}

		produced = o.Quantity
		if input.ActualQuantity != nil {
			if *input.ActualQuantity <= 0 {
				return apperr.Invalid("actual quantity must be positive, got %d", *input.ActualQuantity)
			}
			produced = *input.ActualQuantity
		}

		if _, err := uc.inventory.StockIn(ctx, &invDto.StockInInput{
			ProductID:   o.ProductID,
			WarehouseID: input.WarehouseID,
			Quantity:    produced,
			Note:        produceNotePrefix + o.OrderCode,
			UserID:      input.UserID,
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := uc.transition(ctx, o, model.ProductionCompleted, "complete", nil, &now); err != nil {
			return err
		}
		o.EndDate = &now
		if err := uc.log(ctx, o, fmt.Sprintf(noteCompleted, produced), input.UserID); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionComplete,
			Table:       "production_orders",
			RecordID:    o.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Completed production %s", o.OrderCode),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("production completed",
		zap.Int64("production_order_id", o.ID),
		zap.Int64("warehouse_id", input.WarehouseID),
		zap.Int64("quantity", produced))
	return uc.withLogs(ctx, o)
}

func (uc *productionUseCase) Cancel(ctx context.Context, input *dto.CancelProductionInput) (*model.ProductionOrder, error) {
	var o *model.ProductionOrder
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = uc.find(ctx, input.ID); err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(model.ProductionCancelled) {
			return apperr.InvalidState("production order", o.ID, string(o.Status), "cancel")
		}
		if err := uc.transition(ctx, o, model.ProductionCancelled, "cancel", nil, nil); err != nil {
			return err
		}

		reason := strings.TrimSpace(input.Reason)
		if reason == "" {
			reason = "Unspecified"
		}
		if err := uc.log(ctx, o, fmt.Sprintf(noteCancelled, reason), input.UserID); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionCancel,
			Table:       "production_orders",
			RecordID:    o.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Cancelled production %s", o.OrderCode),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("production cancelled", zap.Int64("production_order_id", o.ID))
	return uc.withLogs(ctx, o)
}

func (uc *productionUseCase) AddLog(ctx context.Context, input *dto.AddLogInput) (*model.ProductionLog, error) {
	note := strings.TrimSpace(input.Note)
	if note == "" {
		return nil, apperr.Invalid("note is required")
	}
	o, err := uc.find(ctx, input.ProductionOrderID)
	if err != nil {
		return nil, err
	}
	l := &model.ProductionLog{
		ProductionOrderID: o.ID,
		Note:              note,
		CreatedBy:         actor(input.UserID),
		CreatedAt:         time.Now().UTC(),
	}
	if err := uc.repo.AddLog(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (uc *productionUseCase) MaterialRequirements(ctx context.Context, productID, quantity int64) ([]model.MaterialRequirement, error) {
	if quantity <= 0 {
		return nil, apperr.Invalid("quantity must be positive, got %d", quantity)
	}
	boms, err := uc.bom.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	reqs := make([]model.MaterialRequirement, len(boms))
	for i, b := range boms {
		reqs[i] = model.MaterialRequirement{
			MaterialID:       b.MaterialID,
			MaterialName:     b.MaterialName,
			Unit:             b.MaterialUnit,
			QuantityRequired: b.QuantityRequired,
			TotalRequired:    b.QuantityRequired * quantity,
		}
	}
	return reqs, nil
}

// CanProduce reports per material whether warehouseID holds enough for
// quantity units. It reads only.
func (uc *productionUseCase) CanProduce(ctx context.Context, productID, quantity, warehouseID int64) (*model.ProductionCheck, error) {
	if err := uc.requireWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	reqs, err := uc.MaterialRequirements(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}

	check := &model.ProductionCheck{CanProduce: true, Materials: make([]model.MaterialAvailability, len(reqs))}
	for i, req := range reqs {
		available, err := uc.inventory.GetQuantity(ctx, req.MaterialID, warehouseID)
		if err != nil {
			return nil, err
		}
		m := model.MaterialAvailability{
			MaterialRequirement: req,
			Available:           available,
			Sufficient:          available >= req.TotalRequired,
		}
		if !m.Sufficient {
			m.Shortage = req.TotalRequired - available
			check.CanProduce = false
		}
		check.Materials[i] = m
	}
	return check, nil
}

func (uc *productionUseCase) Statistics(ctx context.Context, from, to *time.Time) (*model.ProductionStatistics, error) {
	return uc.repo.Statistics(ctx, from, to)
}

func (uc *productionUseCase) ListBOM(ctx context.Context, productID int64) ([]model.BillOfMaterial, error) {
	ok, err := uc.repo.ProductExists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("product", productID)
	}
	return uc.bom.FindByProduct(ctx, productID)
}

func (uc *productionUseCase) SetMaterial(ctx context.Context, input *dto.SetMaterialInput) (*model.BillOfMaterial, error) {
	if input.ProductID == input.MaterialID {
		return nil, apperr.Invalid("a product cannot be its own material")
	}
	if input.QuantityRequired <= 0 {
		return nil, apperr.Invalid("quantity required must be positive, got %d", input.QuantityRequired)
	}
	for _, id := range []int64{input.ProductID, input.MaterialID} {
		ok, err := uc.repo.ProductExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.NotFound("product", id)
		}
	}

	now := time.Now().UTC()
	b := &model.BillOfMaterial{
		BaseModel:        model.BaseModel{CreatedAt: now, UpdatedAt: now},
		ProductID:        input.ProductID,
		MaterialID:       input.MaterialID,
		QuantityRequired: input.QuantityRequired,
	}
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.bom.Upsert(ctx, b); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionUpdate,
			Table:       "bill_of_materials",
			RecordID:    b.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Set material %d x%d for product %d", b.MaterialID, b.QuantityRequired, b.ProductID),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (uc *productionUseCase) RemoveMaterial(ctx context.Context, productID, materialID int64, userID string) error {
	return uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := uc.bom.Delete(ctx, productID, materialID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("bill of materials entry", materialID)
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionDelete,
			Table:       "bill_of_materials",
			RecordID:    productID,
			Actor:       userID,
			Description: fmt.Sprintf("Removed material %d from product %d", materialID, productID),
		})
		return nil
	})
}

func (uc *productionUseCase) find(ctx context.Context, id int64) (*model.ProductionOrder, error) {
	o, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NotFound("production order", id)
	}
	return o, nil
}

func (uc *productionUseCase) withLogs(ctx context.Context, o *model.ProductionOrder) (*model.ProductionOrder, error) {
	logs, err := uc.repo.FindLogs(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Logs = logs
	return o, nil
}

func (uc *productionUseCase) requireRecipe(ctx context.Context, productID int64) error {
	ok, err := uc.repo.ProductExists(ctx, productID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("product", productID)
	}
	has, err := uc.bom.HasBOM(ctx, productID)
	if err != nil {
		return err
	}
	if !has {
		return &apperr.MissingBOMError{ProductID: productID}
	}
	return nil
}

func (uc *productionUseCase) requireWarehouse(ctx context.Context, id int64) error {
	ok, err := uc.repo.WarehouseExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("warehouse", id)
	}
	return nil
}

func (uc *productionUseCase) transition(ctx context.Context, o *model.ProductionOrder, to model.ProductionStatus, op string, startDate, endDate *time.Time) error {
	ok, err := uc.repo.Transition(ctx, o.ID, o.Status, to, startDate, endDate)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidState("production order", o.ID, string(o.Status), op)
	}
	o.Status = to
	return nil
}

func (uc *productionUseCase) log(ctx context.Context, o *model.ProductionOrder, note, userID string) error {
	return uc.repo.AddLog(ctx, &model.ProductionLog{
		ProductionOrderID: o.ID,
		Note:              note,
		CreatedBy:         actor(userID),
		CreatedAt:         time.Now().UTC(),
	})
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func actor(userID string) *string {
	if userID == "" || userID == "unknown" {
		return nil
	}
	return &userID
}
