package model

import "time"

// Inventory is the ledger entry for one (product, warehouse) pair.
type Inventory struct {
	BaseModel
	ProductID   int64 `db:"product_id" json:"product_id"`
	WarehouseID int64 `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int64 `db:"quantity" json:"quantity"`
}

// InventoryDetail is a ledger entry joined with its product and warehouse.
type InventoryDetail struct {
	Inventory
	SKU           string `db:"sku" json:"sku"`
	ProductName   string `db:"product_name" json:"product_name"`
	MinStock      int64  `db:"min_stock" json:"min_stock"`
	WarehouseName string `db:"warehouse_name" json:"warehouse_name"`
}

func (d InventoryDetail) LowStock() bool {
	return d.Quantity <= d.MinStock
}

type StockIn struct {
	ID          int64     `db:"id" json:"id"`
	ProductID   int64     `db:"product_id" json:"product_id"`
	WarehouseID int64     `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int64     `db:"quantity" json:"quantity"`
	ImportDate  time.Time `db:"import_date" json:"import_date"`
	Note        string    `db:"note" json:"note"`
	CreatedBy   *string   `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	WarehouseName string `db:"warehouse_name" json:"warehouse_name,omitempty"`
}

type StockOut struct {
	ID          int64     `db:"id" json:"id"`
	ProductID   int64     `db:"product_id" json:"product_id"`
	WarehouseID int64     `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int64     `db:"quantity" json:"quantity"`
	ExportDate  time.Time `db:"export_date" json:"export_date"`
	Reason      string    `db:"reason" json:"reason"`
	CreatedBy   *string   `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	WarehouseName string `db:"warehouse_name" json:"warehouse_name,omitempty"`
}

const (
	MovementIn  = "in"
	MovementOut = "out"
)

// Movement is one row of a product's merged in/out history. Quantity is
// negative for outgoing stock.
type Movement struct {
	Type        string    `json:"type"`
	ID          int64     `json:"id"`
	WarehouseID int64     `json:"warehouse_id"`
	Warehouse   string    `json:"warehouse"`
	Quantity    int64     `json:"quantity"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note"`
	CreatedBy   *string   `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}
