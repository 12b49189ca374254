package dto

type CreateWarehouseInput struct {
	Name     string
	Location string
	UserID   string
}

type UpdateWarehouseInput struct {
	ID       int64
	Name     *string
	Location *string
	UserID   string
}
