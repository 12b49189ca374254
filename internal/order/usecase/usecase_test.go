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
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/order/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/order/usecase"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type OrderSuite struct {
	suite.Suite
	db        *sqlx.DB
	uc        order.UseCase
	ctx       context.Context
	productA  int64
	productB  int64
	warehouse int64
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderSuite))
}

func (s *OrderSuite) SetupTest() {
	s.db = dbtest.Open(s.T())
	tm := txmanager.New(s.db)
	inv := invUsecase.NewInventoryUseCase(invRepository.NewPGRepository(s.db), tm, nil, time.Second, nil, logger.NewNop())
	s.uc = usecase.NewOrderUseCase(repository.NewPGRepository(s.db), inv, tm, nil, logger.NewNop())
	s.ctx = context.Background()
	s.productA = dbtest.SeedProduct(s.T(), s.db, "A")
	s.productB = dbtest.SeedProduct(s.T(), s.db, "B")
	s.warehouse = dbtest.SeedWarehouse(s.T(), s.db, "Main")
}

func (s *OrderSuite) create(code string, items ...dto.OrderItemInput) *model.Order {
	o, err := s.uc.Create(s.ctx, &dto.CreateOrderInput{
		CustomerID: 7,
		OrderCode:  code,
		Items:      items,
		UserID:     "u-1",
	})
	s.Require().NoError(err)
	return o
}

func item(productID, qty int64, price string) dto.OrderItemInput {
	return dto.OrderItemInput{ProductID: productID, Quantity: qty, Price: decimal.RequireFromString(price)}
}

func (s *OrderSuite) TestCreateComputesTotal() {
	o := s.create("ORD-1", item(s.productA, 2, "12.50"), item(s.productB, 3, "4"))

	s.NotZero(o.ID)
	s.Equal(model.OrderPending, o.Status)
	s.True(decimal.RequireFromString("37").Equal(o.TotalAmount), o.TotalAmount.String())
	s.Len(o.Items, 2)

	got, err := s.uc.Get(s.ctx, o.ID)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("37").Equal(got.TotalAmount))
	s.Len(got.Items, 2)
	s.Equal(o.OrderDate.Format("2006-01-02"), got.OrderDate.Format("2006-01-02"))
}

func (s *OrderSuite) TestCreateValidation() {
	_, err := s.uc.Create(s.ctx, &dto.CreateOrderInput{CustomerID: 7, OrderCode: "X"})
	s.ErrorIs(err, apperr.ErrInvalidInput)

	_, err = s.uc.Create(s.ctx, &dto.CreateOrderInput{CustomerID: 7, OrderCode: "X", Items: []dto.OrderItemInput{item(s.productA, 0, "1")}})
	s.ErrorIs(err, apperr.ErrInvalidInput)

	_, err = s.uc.Create(s.ctx, &dto.CreateOrderInput{
		CustomerID: 7, OrderCode: "X", Status: model.OrderCompleted, Items: []dto.OrderItemInput{item(s.productA, 1, "1")},
	})
	s.ErrorIs(err, apperr.ErrInvalidInput)

	_, err = s.uc.Create(s.ctx, &dto.CreateOrderInput{CustomerID: 7, OrderCode: "X", Items: []dto.OrderItemInput{item(9999, 1, "1")}})
	s.ErrorIs(err, apperr.ErrNotFound)

	s.Equal(0, dbtest.Count(s.T(), s.db, "orders"))
}

func (s *OrderSuite) TestCreateDuplicateCodeConflicts() {
	s.create("ORD-1", item(s.productA, 1, "1"))

	_, err := s.uc.Create(s.ctx, &dto.CreateOrderInput{CustomerID: 7, OrderCode: "ORD-1", Items: []dto.OrderItemInput{item(s.productA, 1, "1")}})
	s.ErrorIs(err, apperr.ErrConflict)
	s.Equal(1, dbtest.Count(s.T(), s.db, "orders"))
}

func (s *OrderSuite) TestProcessShipsEveryLine() {
	dbtest.SetStock(s.T(), s.db, s.productA, s.warehouse, 10)
	dbtest.SetStock(s.T(), s.db, s.productB, s.warehouse, 5)
	o := s.create("ORD-1", item(s.productA, 4, "1"), item(s.productB, 5, "1"))

	done, err := s.uc.Process(s.ctx, &dto.ProcessOrderInput{OrderID: o.ID, WarehouseID: s.warehouse, UserID: "u-2"})
	s.Require().NoError(err)
	s.Equal(model.OrderCompleted, done.Status)

	s.Equal(int64(6), dbtest.Quantity(s.T(), s.db, s.productA, s.warehouse))
	s.Equal(int64(0), dbtest.Quantity(s.T(), s.db, s.productB, s.warehouse))
	s.Equal(2, dbtest.Count(s.T(), s.db, "stock_outs"))

	var reasons []string
	s.Require().NoError(s.db.Select(&reasons, `SELECT reason FROM stock_outs`))
	for _, r := range reasons {
		s.Equal("Sale - Order: ORD-1", r)
	}
}

func (s *OrderSuite) TestProcessIsAllOrNothing() {
	dbtest.SetStock(s.T(), s.db, s.productA, s.warehouse, 10)
	dbtest.SetStock(s.T(), s.db, s.productB, s.warehouse, 2)
	o := s.create("ORD-1", item(s.productA, 4, "1"), item(s.productB, 5, "1"))

	_, err := s.uc.Process(s.ctx, &dto.ProcessOrderInput{OrderID: o.ID, WarehouseID: s.warehouse})
	s.Require().ErrorIs(err, apperr.ErrInsufficientStock)

	var ise *apperr.InsufficientStockError
	s.Require().ErrorAs(err, &ise)
	s.Equal(s.productB, ise.ProductID)

	s.Equal(int64(10), dbtest.Quantity(s.T(), s.db, s.productA, s.warehouse))
	s.Equal(int64(2), dbtest.Quantity(s.T(), s.db, s.productB, s.warehouse))
	s.Equal(0, dbtest.Count(s.T(), s.db, "stock_outs"))

	got, err := s.uc.Get(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderPending, got.Status)
}

func (s *OrderSuite) TestProcessAggregatesRepeatedProduct() {
	dbtest.SetStock(s.T(), s.db, s.productA, s.warehouse, 5)
	o := s.create("ORD-1", item(s.productA, 3, "1"), item(s.productA, 3, "1"))

	_, err := s.uc.Process(s.ctx, &dto.ProcessOrderInput{OrderID: o.ID, WarehouseID: s.warehouse})
	s.ErrorIs(err, apperr.ErrInsufficientStock)
	s.Equal(int64(5), dbtest.Quantity(s.T(), s.db, s.productA, s.warehouse))
}

func (s *OrderSuite) TestProcessTwiceFails() {
	dbtest.SetStock(s.T(), s.db, s.productA, s.warehouse, 10)
	o := s.create("ORD-1", item(s.productA, 1, "1"))

	_, err := s.uc.Process(s.ctx, &dto.ProcessOrderInput{OrderID: o.ID, WarehouseID: s.warehouse})
	s.Require().NoError(err)
	_, err = s.uc.Process(s.ctx, &dto.ProcessOrderInput{OrderID: o.ID, WarehouseID: s.warehouse})
	s.ErrorIs(err, apperr.ErrInvalidState)
	s.Equal(int64(9), dbtest.Quantity(s.T(), s.db, s.productA, s.warehouse))
}

func (s *OrderSuite) TestProcessUnknownWarehouse() {
	o := s.create("ORD-1", item(s.productA, 1, "1"))
	_, err := s.uc.Process(s.ctx, &dto.ProcessOrderInput{OrderID: o.ID, WarehouseID: 9999})
	s.ErrorIs(err, apperr.ErrNotFound)

	_, err = s.uc.Process(s.ctx, &dto.ProcessOrderInput{OrderID: 9999, WarehouseID: s.warehouse})
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *OrderSuite) TestCancel() {
	o := s.create("ORD-1", item(s.productA, 1, "1"))

	cancelled, err := s.uc.Cancel(s.ctx, o.ID, "u-1")
	s.Require().NoError(err)
	s.Equal(model.OrderCancelled, cancelled.Status)

	_, err = s.uc.Cancel(s.ctx, o.ID, "u-1")
	s.ErrorIs(err, apperr.ErrInvalidState)

	_, err = s.uc.Process(s.ctx, &dto.ProcessOrderInput{OrderID: o.ID, WarehouseID: s.warehouse})
	s.ErrorIs(err, apperr.ErrInvalidState)
}

func (s *OrderSuite) TestCompletedOrderIsFrozen() {
	dbtest.SetStock(s.T(), s.db, s.productA, s.warehouse, 10)
	o := s.create("ORD-1", item(s.productA, 1, "1"))
	_, err := s.uc.Process(s.ctx, &dto.ProcessOrderInput{OrderID: o.ID, WarehouseID: s.warehouse})
	s.Require().NoError(err)

	code := "ORD-2"
	_, err = s.uc.Update(s.ctx, &dto.UpdateOrderInput{ID: o.ID, OrderCode: &code})
	s.ErrorIs(err, apperr.ErrInvalidState)

	_, err = s.uc.Cancel(s.ctx, o.ID, "")
	s.ErrorIs(err, apperr.ErrInvalidState)

	s.ErrorIs(s.uc.Delete(s.ctx, o.ID, ""), apperr.ErrInvalidState)
}

func (s *OrderSuite) TestUpdateReplacesItems() {
	o := s.create("ORD-1", item(s.productA, 2, "10"))

	status := model.OrderProcessing
	updated, err := s.uc.Update(s.ctx, &dto.UpdateOrderInput{
		ID:     o.ID,
		Status: &status,
		Items:  []dto.OrderItemInput{item(s.productB, 1, "3.25"), item(s.productA, 1, "1")},
	})
	s.Require().NoError(err)
	s.Equal(model.OrderProcessing, updated.Status)
	s.Len(updated.Items, 2)
	s.True(decimal.RequireFromString("4.25").Equal(updated.TotalAmount), updated.TotalAmount.String())
	s.Equal(2, dbtest.Count(s.T(), s.db, "order_items"))
}

func (s *OrderSuite) TestUpdateRejectsIllegalStatus() {
	o := s.create("ORD-1", item(s.productA, 1, "1"))

	for _, next := range []model.OrderStatus{model.OrderCompleted, model.OrderCancelled} {
		status := next
		_, err := s.uc.Update(s.ctx, &dto.UpdateOrderInput{ID: o.ID, Status: &status})
		s.ErrorIs(err, apperr.ErrInvalidState, string(next))
	}

	_, err := s.uc.Update(s.ctx, &dto.UpdateOrderInput{ID: o.ID, Items: []dto.OrderItemInput{}})
	s.ErrorIs(err, apperr.ErrInvalidInput)
}

func (s *OrderSuite) TestDelete() {
	o := s.create("ORD-1", item(s.productA, 1, "1"))
	s.Require().NoError(s.uc.Delete(s.ctx, o.ID, "u-1"))

	_, err := s.uc.Get(s.ctx, o.ID)
	s.ErrorIs(err, apperr.ErrNotFound)
	s.Equal(0, dbtest.Count(s.T(), s.db, "order_items"))
}

func (s *OrderSuite) TestListFiltersAndAttachesItems() {
	s.create("ORD-1", item(s.productA, 1, "1"))
	s.create("ORD-2", item(s.productA, 1, "1"), item(s.productB, 1, "1"))
	o3 := s.create("WEB-3", item(s.productB, 1, "1"))
	_, err := s.uc.Cancel(s.ctx, o3.ID, "")
	s.Require().NoError(err)

	orders, total, err := s.uc.List(s.ctx, &dto.OrderFilters{Search: "ORD", SortBy: "order_code", SortOrder: "asc"})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(orders, 2)
	s.Equal("ORD-1", orders[0].OrderCode)
	s.Len(orders[0].Items, 1)
	s.Len(orders[1].Items, 2)

	orders, total, err = s.uc.List(s.ctx, &dto.OrderFilters{Status: string(model.OrderCancelled)})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal("WEB-3", orders[0].OrderCode)

	orders, total, err = s.uc.List(s.ctx, &dto.OrderFilters{PageSize: 1, Page: 2})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Len(orders, 1)
}
