package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Get(ctx context.Context, productID, warehouseID int64) (*model.Inventory, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	var inv model.Inventory
	err := q.GetContext(ctx, &inv, q.Rebind(
		`SELECT * FROM inventories WHERE product_id = ? AND warehouse_id = ?`), productID, warehouseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *PGRepository) GetQuantity(ctx context.Context, productID, warehouseID int64) (int64, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	var qty int64
	query := `SELECT quantity FROM inventories WHERE product_id = ? AND warehouse_id = ?`
	if txmanager.InTx(ctx) {
		query += txmanager.ForUpdate(q)
	}
	err := q.GetContext(ctx, &qty, q.Rebind(query), productID, warehouseID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

func (r *PGRepository) LockQuantities(ctx context.Context, warehouseID int64, productIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	ids := append([]int64(nil), productIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	q := txmanager.GetQuerier(ctx, r.DB)
	query, args, err := sqlx.In(`
        SELECT product_id, quantity FROM inventories
        WHERE warehouse_id = ? AND product_id IN (?)
        ORDER BY product_id`, warehouseID, ids)
	if err != nil {
		return nil, err
	}
	if txmanager.InTx(ctx) {
		query += txmanager.ForUpdate(q)
	}

	var rows []struct {
		ProductID int64 `db:"product_id"`
		Quantity  int64 `db:"quantity"`
	}
	if err := q.SelectContext(ctx, &rows, q.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = 0
	}
	for _, row := range rows {
		out[row.ProductID] = row.Quantity
	}
	return out, nil
}

func (r *PGRepository) Increment(ctx context.Context, productID, warehouseID, qty int64) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	now := time.Now()
	_, err := q.ExecContext(ctx, q.Rebind(`
        INSERT INTO inventories (product_id, warehouse_id, quantity, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (product_id, warehouse_id)
        DO UPDATE SET
            quantity = inventories.quantity + excluded.quantity,
            updated_at = excluded.updated_at`),
		productID, warehouseID, qty, now, now)
	if err != nil {
		return fmt.Errorf("increment inventory: %w", err)
	}
	return nil
}

func (r *PGRepository) Decrement(ctx context.Context, productID, warehouseID, qty int64) (bool, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	res, err := q.ExecContext(ctx, q.Rebind(`
        UPDATE inventories
        SET quantity = quantity - ?, updated_at = ?
        WHERE product_id = ? AND warehouse_id = ? AND quantity >= ?`),
		qty, time.Now(), productID, warehouseID, qty)
	if err != nil {
		return false, fmt.Errorf("decrement inventory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PGRepository) SetQuantity(ctx context.Context, productID, warehouseID, qty int64) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	now := time.Now()
	_, err := q.ExecContext(ctx, q.Rebind(`
        INSERT INTO inventories (product_id, warehouse_id, quantity, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (product_id, warehouse_id)
        DO UPDATE SET quantity = excluded.quantity, updated_at = excluded.updated_at`),
		productID, warehouseID, qty, now, now)
	if err != nil {
		return fmt.Errorf("set inventory: %w", err)
	}
	return nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.InventoryFilters) ([]model.InventoryDetail, error) {
	conditions := []string{}
	args := []interface{}{}

	if f.WarehouseID != 0 {
		conditions = append(conditions, "i.warehouse_id = ?")
		args = append(args, f.WarehouseID)
	}
	if f.ProductID != 0 {
		conditions = append(conditions, "i.product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.LowStock {
		conditions = append(conditions, "i.quantity <= p.min_stock")
	}

	query := `
        SELECT i.*, p.sku, p.name AS product_name, p.min_stock, w.name AS warehouse_name
        FROM inventories i
        JOIN products p ON p.id = i.product_id
        JOIN warehouses w ON w.id = i.warehouse_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY w.name, p.name"

	q := txmanager.GetQuerier(ctx, r.DB)
	items := []model.InventoryDetail{}
	err := q.SelectContext(ctx, &items, q.Rebind(query), args...)
	return items, err
}

func (r *PGRepository) CreateStockIn(ctx context.Context, in *model.StockIn) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	err := q.QueryRowxContext(ctx, q.Rebind(`
        INSERT INTO stock_ins (product_id, warehouse_id, quantity, import_date, note, created_by, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        RETURNING id`),
		in.ProductID, in.WarehouseID, in.Quantity, in.ImportDate, in.Note, in.CreatedBy, in.CreatedAt,
	).Scan(&in.ID)
	if err != nil {
		return fmt.Errorf("insert stock in: %w", err)
	}
	return nil
}

func (r *PGRepository) CreateStockOut(ctx context.Context, out *model.StockOut) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	err := q.QueryRowxContext(ctx, q.Rebind(`
        INSERT INTO stock_outs (product_id, warehouse_id, quantity, export_date, reason, created_by, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        RETURNING id`),
		out.ProductID, out.WarehouseID, out.Quantity, out.ExportDate, out.Reason, out.CreatedBy, out.CreatedAt,
	).Scan(&out.ID)
	if err != nil {
		return fmt.Errorf("insert stock out: %w", err)
	}
	return nil
}

func (r *PGRepository) ListStockIns(ctx context.Context, f *dto.MovementFilters) ([]model.StockIn, int, error) {
	where, args := movementWhere(f, "import_date", false)
	items := []model.StockIn{}
	count, err := r.listMovements(ctx, "stock_ins", "import_date", where, args, f, &items)
	return items, count, err
}

func (r *PGRepository) ListStockOuts(ctx context.Context, f *dto.MovementFilters) ([]model.StockOut, int, error) {
	where, args := movementWhere(f, "export_date", true)
	items := []model.StockOut{}
	count, err := r.listMovements(ctx, "stock_outs", "export_date", where, args, f, &items)
	return items, count, err
}

func (r *PGRepository) listMovements(ctx context.Context, table, dateCol, where string, args []interface{}, f *dto.MovementFilters, dest interface{}) (int, error) {
	q := txmanager.GetQuerier(ctx, r.DB)

	var count int
	if err := q.GetContext(ctx, &count, q.Rebind("SELECT count(*) FROM "+table+" s"+where), args...); err != nil {
		return 0, err
	}

	query := "SELECT s.*, w.name AS warehouse_name FROM " + table + " s JOIN warehouses w ON w.id = s.warehouse_id" +
		where + " ORDER BY s." + dateCol + " DESC, s.id DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}
	if err := q.SelectContext(ctx, dest, q.Rebind(query), args...); err != nil {
		return 0, err
	}
	return count, nil
}

func movementWhere(f *dto.MovementFilters, dateCol string, withReason bool) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	if f.ProductID != 0 {
		conditions = append(conditions, "s.product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.WarehouseID != 0 {
		conditions = append(conditions, "s.warehouse_id = ?")
		args = append(args, f.WarehouseID)
	}
	if withReason && f.Reason != "" {
		conditions = append(conditions, "s.reason = ?")
		args = append(args, f.Reason)
	}
	if f.FromDate != nil {
		conditions = append(conditions, "s."+dateCol+" >= ?")
		args = append(args, *f.FromDate)
	}
	if f.ToDate != nil {
		conditions = append(conditions, "s."+dateCol+" <= ?")
		args = append(args, *f.ToDate)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *PGRepository) ProductExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "products", id)
}

func (r *PGRepository) WarehouseExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "warehouses", id)
}

func (r *PGRepository) exists(ctx context.Context, table string, id int64) (bool, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	var n int
	err := q.GetContext(ctx, &n, q.Rebind("SELECT count(*) FROM "+table+" WHERE id = ?"), id)
	return n > 0, err
}
