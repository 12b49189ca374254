package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/shopspring/decimal"
)

// OrderItemInput carries the price agreed at order time. It is not looked up
// from the product.
type OrderItemInput struct {
	ProductID int64
	Quantity  int64
	Price     decimal.Decimal
}

type CreateOrderInput struct {
	CustomerID int64
	OrderCode  string
	OrderDate  time.Time // zero means today
	Status     model.OrderStatus
	Items      []OrderItemInput
	UserID     string
}

// UpdateOrderInput patches an order. Nil fields are left alone; a non-nil
// Items replaces every line and recomputes the total.
type UpdateOrderInput struct {
	ID         int64
	CustomerID *int64
	OrderCode  *string
	OrderDate  *time.Time
	Status     *model.OrderStatus
	Items      []OrderItemInput
	UserID     string
}

type ProcessOrderInput struct {
	OrderID     int64
	WarehouseID int64
	UserID      string
}
