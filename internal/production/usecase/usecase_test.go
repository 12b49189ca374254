package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/database/dbtest"
	invRepository "github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	invUsecase "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/production"
	"github.com/fekuna/omnipos-inventory-service/internal/production/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/production/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/production/usecase"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
)

type ProductionSuite struct {
	suite.Suite
	db        *sqlx.DB
	uc        production.UseCase
	ctx       context.Context
	product   int64 // finished good X
	materialY int64
	materialZ int64
	warehouse int64
}

func TestProductionSuite(t *testing.T) {
	suite.Run(t, new(ProductionSuite))
}

func (s *ProductionSuite) SetupTest() {
	s.db = dbtest.Open(s.T())
	tm := txmanager.New(s.db)
	inv := invUsecase.NewInventoryUseCase(invRepository.NewPGRepository(s.db), tm, nil, time.Second, nil, logger.NewNop())
	s.uc = usecase.NewProductionUseCase(
		repository.NewPGRepository(s.db),
		repository.NewBOMRepository(s.db),
		inv, tm, nil, logger.NewNop(),
	)
	s.ctx = context.Background()
	s.product = dbtest.SeedProduct(s.T(), s.db, "X")
	s.materialY = dbtest.SeedProduct(s.T(), s.db, "Y")
	s.materialZ = dbtest.SeedProduct(s.T(), s.db, "Z")
	s.warehouse = dbtest.SeedWarehouse(s.T(), s.db, "Main")
	dbtest.SeedBOM(s.T(), s.db, s.product, s.materialY, 2)
}

func (s *ProductionSuite) qty(productID int64) int64 {
	return dbtest.Quantity(s.T(), s.db, productID, s.warehouse)
}

func (s *ProductionSuite) create(code string, quantity int64) *model.ProductionOrder {
	o, err := s.uc.Create(s.ctx, &dto.CreateProductionInput{OrderCode: code, ProductID: s.product, Quantity: quantity, UserID: "u-1"})
	s.Require().NoError(err)
	return o
}

func (s *ProductionSuite) TestCreateWritesInitialLog() {
	o := s.create("po-1", 10)
	s.Equal("PO-1", o.OrderCode)
	s.Equal(model.ProductionPending, o.Status)

	got, err := s.uc.Get(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Logs, 1)
	s.Equal("Production order created", got.Logs[0].Note)
	s.Require().NotNil(got.Logs[0].CreatedBy)
	s.Equal("u-1", *got.Logs[0].CreatedBy)
}

func (s *ProductionSuite) TestCreateWithoutRecipe() {
	_, err := s.uc.Create(s.ctx, &dto.CreateProductionInput{OrderCode: "PO-1", ProductID: s.materialZ, Quantity: 1})
	s.Require().ErrorIs(err, apperr.ErrMissingBOM)

	var mbe *apperr.MissingBOMError
	s.Require().ErrorAs(err, &mbe)
	s.Equal(s.materialZ, mbe.ProductID)
	s.Equal(0, dbtest.Count(s.T(), s.db, "production_orders"))
	s.Equal(0, dbtest.Count(s.T(), s.db, "production_logs"))
}

func (s *ProductionSuite) TestCreateDuplicateCode() {
	s.create("PO-1", 1)
	_, err := s.uc.Create(s.ctx, &dto.CreateProductionInput{OrderCode: "po-1", ProductID: s.product, Quantity: 1})
	s.ErrorIs(err, apperr.ErrConflict)
}

func (s *ProductionSuite) TestStartConsumesMaterials() {
	dbtest.SetStock(s.T(), s.db, s.materialY, s.warehouse, 25)
	o := s.create("PO-1", 10)

	started, err := s.uc.Start(s.ctx, &dto.StartProductionInput{ID: o.ID, WarehouseID: s.warehouse, UserID: "u-2"})
	s.Require().NoError(err)
	s.Equal(model.ProductionInProgress, started.Status)
	s.NotNil(started.StartDate)
	s.Len(started.Logs, 2)

	s.Equal(int64(5), s.qty(s.materialY))
	var reason string
	s.Require().NoError(s.db.Get(&reason, `SELECT reason FROM stock_outs`))
	s.Equal("Production - Order: PO-1", reason)
}

func (s *ProductionSuite) TestStartInsufficientConsumesNothing() {
	dbtest.SeedBOM(s.T(), s.db, s.product, s.materialZ, 1)
	dbtest.SetStock(s.T(), s.db, s.materialY, s.warehouse, 15)
	dbtest.SetStock(s.T(), s.db, s.materialZ, s.warehouse, 100)
	o := s.create("PO-1", 10)

	_, err := s.uc.Start(s.ctx, &dto.StartProductionInput{ID: o.ID, WarehouseID: s.warehouse})
	s.Require().ErrorIs(err, apperr.ErrInsufficientStock)

	var ise *apperr.InsufficientStockError
	s.Require().ErrorAs(err, &ise)
	s.Equal(s.materialY, ise.ProductID)
	s.Equal(int64(20), ise.Required)
	s.Equal(int64(15), ise.Available)

	s.Equal(int64(15), s.qty(s.materialY))
	s.Equal(int64(100), s.qty(s.materialZ))
	s.Equal(0, dbtest.Count(s.T(), s.db, "stock_outs"))

	got, err := s.uc.Get(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(model.ProductionPending, got.Status)
	s.Nil(got.StartDate)
}

func (s *ProductionSuite) TestCompleteWithActualQuantity() {
	dbtest.SetStock(s.T(), s.db, s.materialY, s.warehouse, 20)
	o := s.create("PO-1", 10)
	_, err := s.uc.Start(s.ctx, &dto.StartProductionInput{ID: o.ID, WarehouseID: s.warehouse})
	s.Require().NoError(err)

	actual := int64(8)
	done, err := s.uc.Complete(s.ctx, &dto.CompleteProductionInput{ID: o.ID, WarehouseID: s.warehouse, ActualQuantity: &actual})
	s.Require().NoError(err)
	s.Equal(model.ProductionCompleted, done.Status)
	s.NotNil(done.EndDate)
	s.Equal(int64(8), s.qty(s.product))
	s.Equal("Production completed - Quantity: 8", done.Logs[len(done.Logs)-1].Note)

	var note string
	s.Require().NoError(s.db.Get(&note, `SELECT note FROM stock_ins`))
	s.Equal("Production completed - Order: PO-1", note)
}

func (s *ProductionSuite) TestCompleteDefaultsToOrderedQuantity() {
	dbtest.SetStock(s.T(), s.db, s.materialY, s.warehouse, 20)
	o := s.create("PO-1", 10)
	_, err := s.uc.Start(s.ctx, &dto.StartProductionInput{ID: o.ID, WarehouseID: s.warehouse})
	s.Require().NoError(err)

	_, err = s.uc.Complete(s.ctx, &dto.CompleteProductionInput{ID: o.ID, WarehouseID: s.warehouse})
	s.Require().NoError(err)
	s.Equal(int64(10), s.qty(s.product))
}

func (s *ProductionSuite) TestStateMachine() {
	o := s.create("PO-1", 1)

	_, err := s.uc.Complete(s.ctx, &dto.CompleteProductionInput{ID: o.ID, WarehouseID: s.warehouse})
	s.ErrorIs(err, apperr.ErrInvalidState, "complete before start")

	dbtest.SetStock(s.T(), s.db, s.materialY, s.warehouse, 10)
	_, err = s.uc.Start(s.ctx, &dto.StartProductionInput{ID: o.ID, WarehouseID: s.warehouse})
	s.Require().NoError(err)
	_, err = s.uc.Start(s.ctx, &dto.StartProductionInput{ID: o.ID, WarehouseID: s.warehouse})
	s.ErrorIs(err, apperr.ErrInvalidState, "start twice")

	_, err = s.uc.Complete(s.ctx, &dto.CompleteProductionInput{ID: o.ID, WarehouseID: s.warehouse})
	s.Require().NoError(err)

	_, err = s.uc.Cancel(s.ctx, &dto.CancelProductionInput{ID: o.ID})
	s.ErrorIs(err, apperr.ErrInvalidState)
	qty := int64(5)
	_, err = s.uc.Update(s.ctx, &dto.UpdateProductionInput{ID: o.ID, Quantity: &qty})
	s.ErrorIs(err, apperr.ErrInvalidState)
	_, err = s.uc.Start(s.ctx, &dto.StartProductionInput{ID: o.ID, WarehouseID: s.warehouse})
	s.ErrorIs(err, apperr.ErrInvalidState)
}

func (s *ProductionSuite) TestCancelAfterStartDoesNotRestock() {
	dbtest.SetStock(s.T(), s.db, s.materialY, s.warehouse, 10)
	o := s.create("PO-1", 5)
	_, err := s.uc.Start(s.ctx, &dto.StartProductionInput{ID: o.ID, WarehouseID: s.warehouse})
	s.Require().NoError(err)

	cancelled, err := s.uc.Cancel(s.ctx, &dto.CancelProductionInput{ID: o.ID, Reason: "machine down"})
	s.Require().NoError(err)
	s.Equal(model.ProductionCancelled, cancelled.Status)
	s.Equal("Production order cancelled. Reason: machine down", cancelled.Logs[len(cancelled.Logs)-1].Note)
	s.Equal(int64(0), s.qty(s.materialY))
}

func (s *ProductionSuite) TestCanProduceReadsOnly() {
	dbtest.SeedBOM(s.T(), s.db, s.product, s.materialZ, 3)
	dbtest.SetStock(s.T(), s.db, s.materialY, s.warehouse, 25)
	dbtest.SetStock(s.T(), s.db, s.materialZ, s.warehouse, 20)

	for i := 0; i < 3; i++ {
		check, err := s.uc.CanProduce(s.ctx, s.product, 10, s.warehouse)
		s.Require().NoError(err)
		s.False(check.CanProduce)
		s.Require().Len(check.Materials, 2)

		y, z := check.Materials[0], check.Materials[1]
		s.Equal(int64(20), y.TotalRequired)
		s.True(y.Sufficient)
		s.Zero(y.Shortage)
		s.Equal(int64(30), z.TotalRequired)
		s.False(z.Sufficient)
		s.Equal(int64(10), z.Shortage)
	}

	s.Equal(int64(25), s.qty(s.materialY))
	s.Equal(int64(20), s.qty(s.materialZ))
	s.Equal(0, dbtest.Count(s.T(), s.db, "stock_outs"))
}

func (s *ProductionSuite) TestMaterialRequirements() {
	reqs, err := s.uc.MaterialRequirements(s.ctx, s.product, 7)
	s.Require().NoError(err)
	s.Require().Len(reqs, 1)
	s.Equal(s.materialY, reqs[0].MaterialID)
	s.Equal("Product Y", reqs[0].MaterialName)
	s.Equal(int64(2), reqs[0].QuantityRequired)
	s.Equal(int64(14), reqs[0].TotalRequired)
}

func (s *ProductionSuite) TestBillOfMaterialsMaintenance() {
	_, err := s.uc.SetMaterial(s.ctx, &dto.SetMaterialInput{ProductID: s.product, MaterialID: s.product, QuantityRequired: 1})
	s.ErrorIs(err, apperr.ErrInvalidInput)
	_, err = s.uc.SetMaterial(s.ctx, &dto.SetMaterialInput{ProductID: s.product, MaterialID: s.materialZ, QuantityRequired: 0})
	s.ErrorIs(err, apperr.ErrInvalidInput)

	_, err = s.uc.SetMaterial(s.ctx, &dto.SetMaterialInput{ProductID: s.product, MaterialID: s.materialY, QuantityRequired: 4})
	s.Require().NoError(err)
	_, err = s.uc.SetMaterial(s.ctx, &dto.SetMaterialInput{ProductID: s.product, MaterialID: s.materialZ, QuantityRequired: 1})
	s.Require().NoError(err)

	boms, err := s.uc.ListBOM(s.ctx, s.product)
	s.Require().NoError(err)
	s.Require().Len(boms, 2)
	s.Equal(int64(4), boms[0].QuantityRequired)
	s.Equal("Y", boms[0].MaterialSKU)

	s.Require().NoError(s.uc.RemoveMaterial(s.ctx, s.product, s.materialZ, ""))
	s.ErrorIs(s.uc.RemoveMaterial(s.ctx, s.product, s.materialZ, ""), apperr.ErrNotFound)
	s.Equal(1, dbtest.Count(s.T(), s.db, "bill_of_materials"))
}

func (s *ProductionSuite) TestStatisticsAndList() {
	dbtest.SetStock(s.T(), s.db, s.materialY, s.warehouse, 100)
	a := s.create("PO-1", 4)
	s.create("PO-2", 6)
	c := s.create("PO-3", 1)

	_, err := s.uc.Start(s.ctx, &dto.StartProductionInput{ID: a.ID, WarehouseID: s.warehouse})
	s.Require().NoError(err)
	_, err = s.uc.Complete(s.ctx, &dto.CompleteProductionInput{ID: a.ID, WarehouseID: s.warehouse})
	s.Require().NoError(err)
	_, err = s.uc.Cancel(s.ctx, &dto.CancelProductionInput{ID: c.ID})
	s.Require().NoError(err)

	stats, err := s.uc.Statistics(s.ctx, nil, nil)
	s.Require().NoError(err)
	s.Equal(model.ProductionStatistics{Total: 3, Pending: 1, Completed: 1, Cancelled: 1, TotalProduced: 4}, *stats)

	orders, total, err := s.uc.List(s.ctx, &dto.ProductionFilters{Status: string(model.ProductionPending)})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal("PO-2", orders[0].OrderCode)
	s.Len(orders[0].Logs, 1)
}

func (s *ProductionSuite) TestAddLog() {
	o := s.create("PO-1", 1)

	l, err := s.uc.AddLog(s.ctx, &dto.AddLogInput{ProductionOrderID: o.ID, Note: "shift 2 took over"})
	s.Require().NoError(err)
	s.NotZero(l.ID)

	_, err = s.uc.AddLog(s.ctx, &dto.AddLogInput{ProductionOrderID: o.ID, Note: "  "})
	s.ErrorIs(err, apperr.ErrInvalidInput)
	_, err = s.uc.AddLog(s.ctx, &dto.AddLogInput{ProductionOrderID: 999, Note: "x"})
	s.ErrorIs(err, apperr.ErrNotFound)
}
