package model

import "time"

type ProductionStatus string

const (
	ProductionPending    ProductionStatus = "pending"
	ProductionInProgress ProductionStatus = "in_progress"
	ProductionCompleted  ProductionStatus = "completed"
	ProductionCancelled  ProductionStatus = "cancelled"
)

var productionTransitions = map[ProductionStatus][]ProductionStatus{
	ProductionPending:    {ProductionInProgress, ProductionCancelled},
	ProductionInProgress: {ProductionCompleted, ProductionCancelled},
}

func (s ProductionStatus) Valid() bool {
	switch s {
	case ProductionPending, ProductionInProgress, ProductionCompleted, ProductionCancelled:
		return true
	}
	return false
}

func (s ProductionStatus) CanTransitionTo(next ProductionStatus) bool {
	for _, allowed := range productionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ProductionOrder struct {
	BaseModel
	OrderCode string           `db:"order_code" json:"order_code"`
	ProductID int64            `db:"product_id" json:"product_id"`
	Quantity  int64            `db:"quantity" json:"quantity"`
	Status    ProductionStatus `db:"status" json:"status"`
	StartDate *time.Time       `db:"start_date" json:"start_date"`
	EndDate   *time.Time       `db:"end_date" json:"end_date"`
	Logs      []ProductionLog  `db:"-" json:"logs,omitempty"`
}

type ProductionLog struct {
	ID                int64     `db:"id" json:"id"`
	ProductionOrderID int64     `db:"production_order_id" json:"production_order_id"`
	Note              string    `db:"note" json:"note"`
	CreatedBy         *string   `db:"created_by" json:"created_by"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// BillOfMaterial says how many units of MaterialID one unit of ProductID
// consumes. The material columns are filled by joined reads only.
type BillOfMaterial struct {
	BaseModel
	ProductID        int64  `db:"product_id" json:"product_id"`
	MaterialID       int64  `db:"material_id" json:"material_id"`
	QuantityRequired int64  `db:"quantity_required" json:"quantity_required"`
	MaterialSKU      string `db:"material_sku" json:"material_sku,omitempty"`
	MaterialName     string `db:"material_name" json:"material_name,omitempty"`
	MaterialUnit     string `db:"material_unit" json:"material_unit,omitempty"`
}

type MaterialRequirement struct {
	MaterialID       int64  `json:"material_id"`
	MaterialName     string `json:"material_name"`
	Unit             string `json:"unit"`
	QuantityRequired int64  `json:"quantity_required"` // per unit of product
	TotalRequired    int64  `json:"total_required"`
}

type MaterialAvailability struct {
	MaterialRequirement
	Available  int64 `json:"available"`
	Sufficient bool  `json:"sufficient"`
	Shortage   int64 `json:"shortage"`
}

type ProductionCheck struct {
	CanProduce bool                   `json:"can_produce"`
	Materials  []MaterialAvailability `json:"materials"`
}

type ProductionStatistics struct {
	Total         int64 `db:"total" json:"total"`
	Pending       int64 `db:"pending" json:"pending"`
	InProgress    int64 `db:"in_progress" json:"in_progress"`
	Completed     int64 `db:"completed" json:"completed"`
	Cancelled     int64 `db:"cancelled" json:"cancelled"`
	TotalProduced int64 `db:"total_produced" json:"total_produced"`
}
