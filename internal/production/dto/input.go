package dto

type CreateProductionInput struct {
	OrderCode string
	ProductID int64
	Quantity  int64
	UserID    string
}

// UpdateProductionInput patches a pending production order. Nil fields are
// left alone.
type UpdateProductionInput struct {
	ID        int64
	OrderCode *string
	ProductID *int64
	Quantity  *int64
	UserID    string
}

type StartProductionInput struct {
	ID          int64
	WarehouseID int64
	UserID      string
}

type CompleteProductionInput struct {
	ID          int64
	WarehouseID int64
	// ActualQuantity overrides the ordered quantity when set.
	ActualQuantity *int64
	UserID         string
}

type CancelProductionInput struct {
	ID     int64
	Reason string
	UserID string
}

type AddLogInput struct {
	ProductionOrderID int64
	Note              string
	UserID            string
}

type SetMaterialInput struct {
	ProductID        int64
	MaterialID       int64
	QuantityRequired int64
	UserID           string
}
