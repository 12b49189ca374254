package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/database/dbtest"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	acquired int
	released int
	refuse   bool
}

func (l *fakeLocker) AcquireLock(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refuse {
		return false, nil
	}
	if _, taken := l.held[key]; taken {
		return false, nil
	}
	l.held[key] = value
	l.acquired++
	return true, nil
}

func (l *fakeLocker) ReleaseLock(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == value {
		delete(l.held, key)
		l.released++
	}
	return nil
}

type InventorySuite struct {
	suite.Suite
	db        *sqlx.DB
	uc        inventory.UseCase
	locker    *fakeLocker
	ctx       context.Context
	product   int64
	other     int64
	warehouse int64
	second    int64
}

func TestInventorySuite(t *testing.T) {
	suite.Run(t, new(InventorySuite))
}

func (s *InventorySuite) SetupTest() {
	s.db = dbtest.Open(s.T())
	s.locker = &fakeLocker{held: map[string]string{}}
	s.uc = usecase.NewInventoryUseCase(
		repository.NewPGRepository(s.db),
		txmanager.New(s.db),
		s.locker,
		5*time.Second,
		nil,
		logger.NewNop(),
	)
	s.ctx = context.Background()
	s.product = dbtest.SeedProduct(s.T(), s.db, "P-1")
	s.other = dbtest.SeedProduct(s.T(), s.db, "P-2")
	s.warehouse = dbtest.SeedWarehouse(s.T(), s.db, "Main")
	s.second = dbtest.SeedWarehouse(s.T(), s.db, "Second")
}

func (s *InventorySuite) qty(productID, warehouseID int64) int64 {
	return dbtest.Quantity(s.T(), s.db, productID, warehouseID)
}

func (s *InventorySuite) TestStockOutDecrementsAndRecords() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 100)

	out, err := s.uc.StockOut(s.ctx, &dto.StockOutInput{
		ProductID: s.product, WarehouseID: s.warehouse, Quantity: 30, Reason: "damaged", UserID: "u-1",
	})
	s.Require().NoError(err)
	s.NotZero(out.ID)
	s.Equal(int64(70), s.qty(s.product, s.warehouse))
	s.Equal(1, dbtest.Count(s.T(), s.db, "stock_outs"))

	outs, total, err := s.uc.ListStockOuts(s.ctx, &dto.MovementFilters{ProductID: s.product})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(int64(30), outs[0].Quantity)
	s.Equal("damaged", outs[0].Reason)
	s.Equal("Main", outs[0].WarehouseName)
	s.Require().NotNil(outs[0].CreatedBy)
	s.Equal("u-1", *outs[0].CreatedBy)
}

func (s *InventorySuite) TestStockOutInsufficientLeavesNoTrace() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 10)

	_, err := s.uc.StockOut(s.ctx, &dto.StockOutInput{ProductID: s.product, WarehouseID: s.warehouse, Quantity: 50})
	s.Require().ErrorIs(err, apperr.ErrInsufficientStock)

	var ise *apperr.InsufficientStockError
	s.Require().ErrorAs(err, &ise)
	s.Equal(int64(10), ise.Available)
	s.Equal(int64(50), ise.Required)
	s.Equal(int64(10), s.qty(s.product, s.warehouse))
	s.Equal(0, dbtest.Count(s.T(), s.db, "stock_outs"))
}

func (s *InventorySuite) TestStockOutWithoutEntryReportsZeroAvailable() {
	_, err := s.uc.StockOut(s.ctx, &dto.StockOutInput{ProductID: s.product, WarehouseID: s.warehouse, Quantity: 1})

	var ise *apperr.InsufficientStockError
	s.Require().ErrorAs(err, &ise)
	s.Zero(ise.Available)
}

func (s *InventorySuite) TestStockInCreatesEntryOnDemand() {
	in, err := s.uc.StockIn(s.ctx, &dto.StockInInput{
		ProductID: s.product, WarehouseID: s.warehouse, Quantity: 12, Note: "supplier delivery",
	})
	s.Require().NoError(err)
	s.Equal(int64(12), s.qty(s.product, s.warehouse))
	s.Equal(usecase.DateOnly(time.Now()), in.ImportDate)

	_, err = s.uc.StockIn(s.ctx, &dto.StockInInput{ProductID: s.product, WarehouseID: s.warehouse, Quantity: 3})
	s.Require().NoError(err)
	s.Equal(int64(15), s.qty(s.product, s.warehouse))
	s.Equal(2, dbtest.Count(s.T(), s.db, "stock_ins"))
}

func (s *InventorySuite) TestInputValidation() {
	_, err := s.uc.StockIn(s.ctx, &dto.StockInInput{ProductID: s.product, WarehouseID: s.warehouse, Quantity: 0})
	s.ErrorIs(err, apperr.ErrInvalidInput)

	_, err = s.uc.StockOut(s.ctx, &dto.StockOutInput{ProductID: s.product, WarehouseID: s.warehouse, Quantity: -1})
	s.ErrorIs(err, apperr.ErrInvalidInput)

	_, err = s.uc.StockIn(s.ctx, &dto.StockInInput{ProductID: 999, WarehouseID: s.warehouse, Quantity: 1})
	s.ErrorIs(err, apperr.ErrNotFound)

	_, err = s.uc.StockIn(s.ctx, &dto.StockInInput{ProductID: s.product, WarehouseID: 999, Quantity: 1})
	s.ErrorIs(err, apperr.ErrNotFound)

	s.ErrorIs(s.uc.Increment(s.ctx, s.product, s.warehouse, 0), apperr.ErrInvalidInput)
}

func (s *InventorySuite) TestDecrementGuard() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 4)

	err := s.uc.Decrement(s.ctx, s.product, s.warehouse, 5)
	var ise *apperr.InsufficientStockError
	s.Require().ErrorAs(err, &ise)
	s.Equal(int64(4), ise.Available)
	s.Equal(int64(1), ise.Shortfall())

	s.Require().NoError(s.uc.Decrement(s.ctx, s.product, s.warehouse, 4))
	s.Zero(s.qty(s.product, s.warehouse))
}

func (s *InventorySuite) TestTransferConservesStock() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 40)

	res, err := s.uc.Transfer(s.ctx, &dto.TransferInput{
		ProductID: s.product, FromWarehouseID: s.warehouse, ToWarehouseID: s.second, Quantity: 15,
	})
	s.Require().NoError(err)
	s.Equal(int64(25), res.From.Quantity)
	s.Equal(int64(15), res.To.Quantity)
	s.Equal(int64(15), res.QuantityTransferred)
	s.Equal(int64(40), s.qty(s.product, s.warehouse)+s.qty(s.product, s.second))

	outs, _, err := s.uc.ListStockOuts(s.ctx, &dto.MovementFilters{Reason: "Transfer"})
	s.Require().NoError(err)
	s.Len(outs, 1)
	ins, _, err := s.uc.ListStockIns(s.ctx, &dto.MovementFilters{WarehouseID: s.second})
	s.Require().NoError(err)
	s.Require().Len(ins, 1)
	s.Equal("Transfer from warehouse", ins[0].Note)
}

func (s *InventorySuite) TestTransferIsAllOrNothing() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 5)

	_, err := s.uc.Transfer(s.ctx, &dto.TransferInput{
		ProductID: s.product, FromWarehouseID: s.warehouse, ToWarehouseID: s.second, Quantity: 6,
	})
	s.Require().ErrorIs(err, apperr.ErrInsufficientStock)
	s.Equal(int64(5), s.qty(s.product, s.warehouse))
	s.Zero(s.qty(s.product, s.second))
	s.Equal(0, dbtest.Count(s.T(), s.db, "stock_outs"))
	s.Equal(0, dbtest.Count(s.T(), s.db, "stock_ins"))
}

func (s *InventorySuite) TestTransferRejectsSameWarehouse() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 5)
	_, err := s.uc.Transfer(s.ctx, &dto.TransferInput{
		ProductID: s.product, FromWarehouseID: s.warehouse, ToWarehouseID: s.warehouse, Quantity: 1,
	})
	s.ErrorIs(err, apperr.ErrInvalidInput)
}

func (s *InventorySuite) TestAdjustRecordsCompensatingMovement() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 20)

	inv, err := s.uc.Adjust(s.ctx, &dto.AdjustInput{
		ProductID: s.product, WarehouseID: s.warehouse, NewQuantity: 26, Reason: "recount",
	})
	s.Require().NoError(err)
	s.Equal(int64(26), inv.Quantity)

	ins, _, err := s.uc.ListStockIns(s.ctx, &dto.MovementFilters{ProductID: s.product})
	s.Require().NoError(err)
	s.Require().Len(ins, 1)
	s.Equal(int64(6), ins[0].Quantity)
	s.Equal("Adjustment: recount", ins[0].Note)

	_, err = s.uc.Adjust(s.ctx, &dto.AdjustInput{
		ProductID: s.product, WarehouseID: s.warehouse, NewQuantity: 1, Reason: "theft",
	})
	s.Require().NoError(err)
	outs, _, err := s.uc.ListStockOuts(s.ctx, &dto.MovementFilters{ProductID: s.product})
	s.Require().NoError(err)
	s.Require().Len(outs, 1)
	s.Equal(int64(25), outs[0].Quantity)
	s.Equal("Adjustment: theft", outs[0].Reason)
	s.Equal(int64(1), s.qty(s.product, s.warehouse))

	s.Equal(2, s.locker.acquired)
	s.Equal(2, s.locker.released)
}

func (s *InventorySuite) TestAdjustToSameQuantityRecordsNothing() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 9)

	_, err := s.uc.Adjust(s.ctx, &dto.AdjustInput{ProductID: s.product, WarehouseID: s.warehouse, NewQuantity: 9})
	s.Require().NoError(err)
	s.Equal(0, dbtest.Count(s.T(), s.db, "stock_ins"))
	s.Equal(0, dbtest.Count(s.T(), s.db, "stock_outs"))
}

func (s *InventorySuite) TestAdjustCreatesMissingEntry() {
	inv, err := s.uc.Adjust(s.ctx, &dto.AdjustInput{ProductID: s.other, WarehouseID: s.second, NewQuantity: 7, Reason: "opening"})
	s.Require().NoError(err)
	s.NotZero(inv.ID)
	s.Equal(int64(7), s.qty(s.other, s.second))
}

func (s *InventorySuite) TestAdjustRejectsNegativeAndBusyLock() {
	_, err := s.uc.Adjust(s.ctx, &dto.AdjustInput{ProductID: s.product, WarehouseID: s.warehouse, NewQuantity: -1})
	s.ErrorIs(err, apperr.ErrInvalidInput)

	s.locker.refuse = true
	_, err = s.uc.Adjust(s.ctx, &dto.AdjustInput{ProductID: s.product, WarehouseID: s.warehouse, NewQuantity: 3})
	s.ErrorIs(err, apperr.ErrBusy)
	s.Zero(s.qty(s.product, s.warehouse))
}

func (s *InventorySuite) TestCheckAvailabilitySumsPerProduct() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 10)
	dbtest.SetStock(s.T(), s.db, s.other, s.warehouse, 10)

	s.NoError(s.uc.CheckAvailability(s.ctx, s.warehouse, []dto.Requirement{
		{ProductID: s.product, Quantity: 6},
		{ProductID: s.other, Quantity: 10},
	}))

	err := s.uc.CheckAvailability(s.ctx, s.warehouse, []dto.Requirement{
		{ProductID: s.product, Quantity: 6},
		{ProductID: s.product, Quantity: 6},
	})
	var ise *apperr.InsufficientStockError
	s.Require().ErrorAs(err, &ise)
	s.Equal(s.product, ise.ProductID)
	s.Equal(int64(12), ise.Required)
	s.Equal(int64(10), ise.Available)
}

func (s *InventorySuite) TestProductMovementsMergesNewestFirst() {
	old := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := s.uc.StockIn(s.ctx, &dto.StockInInput{ProductID: s.product, WarehouseID: s.warehouse, Quantity: 50, Date: old})
	s.Require().NoError(err)
	_, err = s.uc.StockOut(s.ctx, &dto.StockOutInput{ProductID: s.product, WarehouseID: s.warehouse, Quantity: 20, Date: mid, Reason: "sale"})
	s.Require().NoError(err)
	_, err = s.uc.StockIn(s.ctx, &dto.StockInInput{ProductID: s.product, WarehouseID: s.second, Quantity: 5, Date: recent})
	s.Require().NoError(err)

	mvs, err := s.uc.ProductMovements(s.ctx, s.product, nil, nil)
	s.Require().NoError(err)
	s.Require().Len(mvs, 3)
	s.Equal(model.MovementIn, mvs[0].Type)
	s.Equal("Second", mvs[0].Warehouse)
	s.Equal(model.MovementOut, mvs[1].Type)
	s.Equal(int64(-20), mvs[1].Quantity)
	s.Equal("sale", mvs[1].Note)
	s.Equal(int64(50), mvs[2].Quantity)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	mvs, err = s.uc.ProductMovements(s.ctx, s.product, &from, &to)
	s.Require().NoError(err)
	s.Require().Len(mvs, 1)
	s.Equal(model.MovementOut, mvs[0].Type)
}

func (s *InventorySuite) TestListLowStock() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 3)
	dbtest.SetStock(s.T(), s.db, s.other, s.warehouse, 30)

	items, err := s.uc.ListLowStock(s.ctx, s.warehouse)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(s.product, items[0].ProductID)
	s.Equal("P-1", items[0].SKU)
	s.True(items[0].LowStock())
}

func (s *InventorySuite) TestGetInventoryOfMissingEntryIsZero() {
	inv, err := s.uc.GetInventory(s.ctx, s.product, s.second)
	s.Require().NoError(err)
	s.Zero(inv.Quantity)
	s.Zero(inv.ID)

	qty, err := s.uc.GetQuantity(s.ctx, s.product, s.second)
	s.Require().NoError(err)
	s.Zero(qty)
}

func (s *InventorySuite) TestConcurrentStockOutsNeverOverdraw() {
	dbtest.SetStock(s.T(), s.db, s.product, s.warehouse, 100)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.uc.StockOut(s.ctx, &dto.StockOutInput{ProductID: s.product, WarehouseID: s.warehouse, Quantity: 15})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, insufficient := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperr.ErrInsufficientStock):
			insufficient++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(6, succeeded)
	s.Equal(4, insufficient)
	s.Equal(int64(10), s.qty(s.product, s.warehouse))
	s.Equal(6, dbtest.Count(s.T(), s.db, "stock_outs"))
}
