package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/activity"
	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	adjustmentPrefix  = "Adjustment: "
	transferReason    = "Transfer"
	transferNote      = "Transfer from warehouse"
	lockAttempts      = 3
	lockRetryInterval = 100 * time.Millisecond
)

// Locker guards manual adjustments across service instances.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type inventoryUseCase struct {
	repo    inventory.Repository
	tm      txmanager.Transactor
	locker  Locker
	lockTTL time.Duration
	sink    activity.Sink
	logger  logger.ZapLogger
}

// NewInventoryUseCase builds the ledger and movement recorder. locker may be
// nil, in which case adjustments rely on the database row lock alone.
func NewInventoryUseCase(repo inventory.Repository, tm txmanager.Transactor, locker Locker, lockTTL time.Duration, sink activity.Sink, log logger.ZapLogger) inventory.UseCase {
	if sink == nil {
		sink = activity.Nop()
	}
	return &inventoryUseCase{
		repo:    repo,
		tm:      tm,
		locker:  locker,
		lockTTL: lockTTL,
		sink:    sink,
		logger:  log,
	}
}

func (uc *inventoryUseCase) GetQuantity(ctx context.Context, productID, warehouseID int64) (int64, error) {
	return uc.repo.GetQuantity(ctx, productID, warehouseID)
}

func (uc *inventoryUseCase) GetInventory(ctx context.Context, productID, warehouseID int64) (*model.Inventory, error) {
	inv, err := uc.repo.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return &model.Inventory{ProductID: productID, WarehouseID: warehouseID}, nil
	}
	return inv, nil
}

func (uc *inventoryUseCase) Increment(ctx context.Context, productID, warehouseID, qty int64) error {
	if qty <= 0 {
		return apperr.Invalid("increment quantity must be positive, got %d", qty)
	}
	return uc.repo.Increment(ctx, productID, warehouseID, qty)
}

// Decrement is the conditional update every outgoing movement ends in. A
// miss re-reads the row so the error carries what is actually on hand.
func (uc *inventoryUseCase) Decrement(ctx context.Context, productID, warehouseID, qty int64) error {
	if qty <= 0 {
		return apperr.Invalid("decrement quantity must be positive, got %d", qty)
	}
	ok, err := uc.repo.Decrement(ctx, productID, warehouseID, qty)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	available, err := uc.repo.GetQuantity(ctx, productID, warehouseID)
	if err != nil {
		return err
	}
	return &apperr.InsufficientStockError{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Required:    qty,
		Available:   available,
	}
}

func (uc *inventoryUseCase) CheckAvailability(ctx context.Context, warehouseID int64, reqs []dto.Requirement) error {
	needed := map[int64]int64{}
	ids := []int64{}
	for _, r := range reqs {
		if _, seen := needed[r.ProductID]; !seen {
			ids = append(ids, r.ProductID)
		}
		needed[r.ProductID] += r.Quantity
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	onHand, err := uc.repo.LockQuantities(ctx, warehouseID, ids)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	for _, id := range ids {
		if onHand[id] < needed[id] {
			return &apperr.InsufficientStockError{
				ProductID:   id,
				WarehouseID: warehouseID,
				Required:    needed[id],
				Available:   onHand[id],
			}
		}
	}
	return nil
}

func (uc *inventoryUseCase) StockIn(ctx context.Context, input *dto.StockInInput) (*model.StockIn, error) {
	if input.Quantity <= 0 {
		return nil, apperr.Invalid("quantity must be positive, got %d", input.Quantity)
	}
	if err := uc.ensureExists(ctx, input.ProductID, input.WarehouseID); err != nil {
		return nil, err
	}

	in := &model.StockIn{
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		Quantity:    input.Quantity,
		ImportDate:  dateOrToday(input.Date),
		Note:        input.Note,
		CreatedBy:   actor(input.UserID),
		CreatedAt:   time.Now(),
	}

	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.CreateStockIn(ctx, in); err != nil {
			return err
		}
		if err := uc.Increment(ctx, in.ProductID, in.WarehouseID, in.Quantity); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionStockIn,
			Table:       "stock_ins",
			RecordID:    in.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Stock in %d of product %d to warehouse %d", in.Quantity, in.ProductID, in.WarehouseID),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock in recorded",
		zap.Int64("product_id", in.ProductID),
		zap.Int64("warehouse_id", in.WarehouseID),
		zap.Int64("quantity", in.Quantity))
	return in, nil
}

func (uc *inventoryUseCase) StockOut(ctx context.Context, input *dto.StockOutInput) (*model.StockOut, error) {
	if input.Quantity <= 0 {
		return nil, apperr.Invalid("quantity must be positive, got %d", input.Quantity)
	}
	if err := uc.ensureExists(ctx, input.ProductID, input.WarehouseID); err != nil {
		return nil, err
	}

	out := &model.StockOut{
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		Quantity:    input.Quantity,
		ExportDate:  dateOrToday(input.Date),
		Reason:      input.Reason,
		CreatedBy:   actor(input.UserID),
		CreatedAt:   time.Now(),
	}

	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.recordOut(ctx, out); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionStockOut,
			Table:       "stock_outs",
			RecordID:    out.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Stock out %d of product %d from warehouse %d", out.Quantity, out.ProductID, out.WarehouseID),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock out recorded",
		zap.Int64("product_id", out.ProductID),
		zap.Int64("warehouse_id", out.WarehouseID),
		zap.Int64("quantity", out.Quantity))
	return out, nil
}

// recordOut checks, inserts and decrements. It must run inside a transaction.
func (uc *inventoryUseCase) recordOut(ctx context.Context, out *model.StockOut) error {
	available, err := uc.repo.GetQuantity(ctx, out.ProductID, out.WarehouseID)
	if err != nil {
		return err
	}
	if available < out.Quantity {
		return &apperr.InsufficientStockError{
			ProductID:   out.ProductID,
			WarehouseID: out.WarehouseID,
			Required:    out.Quantity,
			Available:   available,
		}
	}
	if err := uc.repo.CreateStockOut(ctx, out); err != nil {
		return err
	}
	return uc.Decrement(ctx, out.ProductID, out.WarehouseID, out.Quantity)
}

func (uc *inventoryUseCase) Transfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error) {
	if input.Quantity <= 0 {
		return nil, apperr.Invalid("quantity must be positive, got %d", input.Quantity)
	}
	if input.FromWarehouseID == input.ToWarehouseID {
		return nil, apperr.Invalid("source and destination warehouse are the same")
	}
	if err := uc.ensureExists(ctx, input.ProductID, input.FromWarehouseID); err != nil {
		return nil, err
	}
	if ok, err := uc.repo.WarehouseExists(ctx, input.ToWarehouseID); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperr.NotFound("warehouse", input.ToWarehouseID)
	}

	note := input.Note
	if note == "" {
		note = transferNote
	}
	now := time.Now()
	today := dateOrToday(time.Time{})
	result := &dto.TransferResult{QuantityTransferred: input.Quantity}

	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		out := &model.StockOut{
			ProductID:   input.ProductID,
			WarehouseID: input.FromWarehouseID,
			Quantity:    input.Quantity,
			ExportDate:  today,
			Reason:      transferReason,
			CreatedBy:   actor(input.UserID),
			CreatedAt:   now,
		}
		if err := uc.recordOut(ctx, out); err != nil {
			return err
		}

		in := &model.StockIn{
			ProductID:   input.ProductID,
			WarehouseID: input.ToWarehouseID,
			Quantity:    input.Quantity,
			ImportDate:  today,
			Note:        note,
			CreatedBy:   actor(input.UserID),
			CreatedAt:   now,
		}
		if err := uc.repo.CreateStockIn(ctx, in); err != nil {
			return err
		}
		if err := uc.Increment(ctx, in.ProductID, in.WarehouseID, in.Quantity); err != nil {
			return err
		}

		fromQty, err := uc.repo.GetQuantity(ctx, input.ProductID, input.FromWarehouseID)
		if err != nil {
			return err
		}
		toQty, err := uc.repo.GetQuantity(ctx, input.ProductID, input.ToWarehouseID)
		if err != nil {
			return err
		}
		result.From = &dto.Balance{WarehouseID: input.FromWarehouseID, Quantity: fromQty}
		result.To = &dto.Balance{WarehouseID: input.ToWarehouseID, Quantity: toQty}

		uc.sink.Record(ctx, activity.Event{
			Action:   activity.ActionTransfer,
			Table:    "inventories",
			RecordID: input.ProductID,
			Actor:    input.UserID,
			Description: fmt.Sprintf("Transferred %d of product %d from warehouse %d to %d",
				input.Quantity, input.ProductID, input.FromWarehouseID, input.ToWarehouseID),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock transferred",
		zap.Int64("product_id", input.ProductID),
		zap.Int64("from_warehouse_id", input.FromWarehouseID),
		zap.Int64("to_warehouse_id", input.ToWarehouseID),
		zap.Int64("quantity", input.Quantity))
	return result, nil
}

func (uc *inventoryUseCase) Adjust(ctx context.Context, input *dto.AdjustInput) (*model.Inventory, error) {
	if input.NewQuantity < 0 {
		return nil, apperr.Invalid("new quantity cannot be negative, got %d", input.NewQuantity)
	}
	if err := uc.ensureExists(ctx, input.ProductID, input.WarehouseID); err != nil {
		return nil, err
	}

	release, err := uc.lock(ctx, fmt.Sprintf("lock:inventory:%d:%d", input.ProductID, input.WarehouseID))
	if err != nil {
		return nil, err
	}
	defer release()

	var inv *model.Inventory
	err = uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		current, err := uc.repo.GetQuantity(ctx, input.ProductID, input.WarehouseID)
		if err != nil {
			return err
		}
		delta := input.NewQuantity - current
		now := time.Now()
		today := dateOrToday(time.Time{})

		switch {
		case delta > 0:
			err = uc.repo.CreateStockIn(ctx, &model.StockIn{
				ProductID:   input.ProductID,
				WarehouseID: input.WarehouseID,
				Quantity:    delta,
				ImportDate:  today,
				Note:        adjustmentPrefix + input.Reason,
				CreatedBy:   actor(input.UserID),
				CreatedAt:   now,
			})
		case delta < 0:
			err = uc.repo.CreateStockOut(ctx, &model.StockOut{
				ProductID:   input.ProductID,
				WarehouseID: input.WarehouseID,
				Quantity:    -delta,
				ExportDate:  today,
				Reason:      adjustmentPrefix + input.Reason,
				CreatedBy:   actor(input.UserID),
				CreatedAt:   now,
			})
		}
		if err != nil {
			return err
		}

		if err := uc.repo.SetQuantity(ctx, input.ProductID, input.WarehouseID, input.NewQuantity); err != nil {
			return err
		}
		if inv, err = uc.repo.Get(ctx, input.ProductID, input.WarehouseID); err != nil {
			return err
		}

		if delta != 0 {
			uc.sink.Record(ctx, activity.Event{
				Action:   activity.ActionAdjust,
				Table:    "inventories",
				RecordID: inv.ID,
				Actor:    input.UserID,
				Description: fmt.Sprintf("Adjusted product %d in warehouse %d from %d to %d: %s",
					input.ProductID, input.WarehouseID, current, input.NewQuantity, input.Reason),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("inventory adjusted",
		zap.Int64("product_id", input.ProductID),
		zap.Int64("warehouse_id", input.WarehouseID),
		zap.Int64("quantity", input.NewQuantity))
	return inv, nil
}

// lock takes the redis lock for key, retrying briefly. Without a locker it
// is a no-op.
func (uc *inventoryUseCase) lock(ctx context.Context, key string) (func(), error) {
	if uc.locker == nil {
		return func() {}, nil
	}

	value := uuid.New().String()
	acquired := false
	for i := 0; i < lockAttempts; i++ {
		ok, err := uc.locker.AcquireLock(ctx, key, value, uc.lockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire lock redis error", zap.String("key", key), zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", apperr.ErrBusy, key)
	}

	return func() {
		if err := uc.locker.ReleaseLock(context.Background(), key, value); err != nil {
			uc.logger.Error("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (uc *inventoryUseCase) ListInventory(ctx context.Context, filters *dto.InventoryFilters) ([]model.InventoryDetail, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, warehouseID int64) ([]model.InventoryDetail, error) {
	return uc.repo.FindAll(ctx, &dto.InventoryFilters{WarehouseID: warehouseID, LowStock: true})
}

func (uc *inventoryUseCase) ListStockIns(ctx context.Context, filters *dto.MovementFilters) ([]model.StockIn, int, error) {
	return uc.repo.ListStockIns(ctx, normalizeFilters(filters))
}

func (uc *inventoryUseCase) ListStockOuts(ctx context.Context, filters *dto.MovementFilters) ([]model.StockOut, int, error) {
	return uc.repo.ListStockOuts(ctx, normalizeFilters(filters))
}

// ProductMovements merges a product's stock ins and outs, newest first.
func (uc *inventoryUseCase) ProductMovements(ctx context.Context, productID int64, from, to *time.Time) ([]model.Movement, error) {
	f := normalizeFilters(&dto.MovementFilters{ProductID: productID, FromDate: from, ToDate: to})
	f.PageSize = 0

	ins, _, err := uc.repo.ListStockIns(ctx, f)
	if err != nil {
		return nil, err
	}
	outs, _, err := uc.repo.ListStockOuts(ctx, f)
	if err != nil {
		return nil, err
	}

	movements := make([]model.Movement, 0, len(ins)+len(outs))
	for _, in := range ins {
		movements = append(movements, model.Movement{
			Type:        model.MovementIn,
			ID:          in.ID,
			WarehouseID: in.WarehouseID,
			Warehouse:   in.WarehouseName,
			Quantity:    in.Quantity,
			Date:        in.ImportDate,
			Note:        in.Note,
			CreatedBy:   in.CreatedBy,
			CreatedAt:   in.CreatedAt,
		})
	}
	for _, out := range outs {
		movements = append(movements, model.Movement{
			Type:        model.MovementOut,
			ID:          out.ID,
			WarehouseID: out.WarehouseID,
			Warehouse:   out.WarehouseName,
			Quantity:    -out.Quantity,
			Date:        out.ExportDate,
			Note:        out.Reason,
			CreatedBy:   out.CreatedBy,
			CreatedAt:   out.CreatedAt,
		})
	}
	sort.SliceStable(movements, func(i, j int) bool {
		if !movements[i].Date.Equal(movements[j].Date) {
			return movements[i].Date.After(movements[j].Date)
		}
		return movements[i].CreatedAt.After(movements[j].CreatedAt)
	})
	return movements, nil
}

func (uc *inventoryUseCase) ensureExists(ctx context.Context, productID, warehouseID int64) error {
	ok, err := uc.repo.ProductExists(ctx, productID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("product", productID)
	}
	ok, err = uc.repo.WarehouseExists(ctx, warehouseID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("warehouse", warehouseID)
	}
	return nil
}

func normalizeFilters(f *dto.MovementFilters) *dto.MovementFilters {
	out := *f
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize <= 0 {
		out.PageSize = 15
	}
	if out.PageSize > 100 {
		out.PageSize = 100
	}
	if out.FromDate != nil {
		d := DateOnly(*out.FromDate)
		out.FromDate = &d
	}
	if out.ToDate != nil {
		d := DateOnly(*out.ToDate)
		out.ToDate = &d
	}
	return &out
}

// DateOnly truncates t to midnight UTC of its calendar day, the form DATE
// columns are written in.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateOrToday(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return DateOnly(t)
}

func actor(userID string) *string {
	if userID == "" || userID == "unknown" {
		return nil
	}
	return &userID
}
