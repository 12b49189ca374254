package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, w *model.Warehouse) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	err := q.QueryRowxContext(ctx, q.Rebind(`
        INSERT INTO warehouses (name, location, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        RETURNING id`),
		w.Name, w.Location, w.CreatedAt, w.UpdatedAt,
	).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("insert warehouse: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Warehouse, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	var w model.Warehouse
	query := `SELECT * FROM warehouses WHERE id = ?`
	if txmanager.InTx(ctx) {
		query += txmanager.ForUpdate(q)
	}
	if err := q.GetContext(ctx, &w, q.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.WarehouseFilters) ([]model.Warehouse, int, error) {
	whereClause := ""
	args := []interface{}{}
	if f.SearchQuery != "" {
		whereClause = " WHERE (LOWER(name) LIKE ? OR LOWER(location) LIKE ?)"
		like := "%" + strings.ToLower(f.SearchQuery) + "%"
		args = append(args, like, like)
	}

	q := txmanager.GetQuerier(ctx, r.DB)
	var count int
	if err := q.GetContext(ctx, &count, q.Rebind("SELECT count(*) FROM warehouses"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM warehouses" + whereClause + " ORDER BY name ASC, id ASC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	warehouses := []model.Warehouse{}
	if err := q.SelectContext(ctx, &warehouses, q.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return warehouses, count, nil
}

func (r *PGRepository) Update(ctx context.Context, w *model.Warehouse) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	_, err := q.ExecContext(ctx, q.Rebind(`
        UPDATE warehouses SET name = ?, location = ?, updated_at = ? WHERE id = ?`),
		w.Name, w.Location, w.UpdatedAt, w.ID)
	if err != nil {
		return fmt.Errorf("update warehouse: %w", err)
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM inventories WHERE warehouse_id = ?`), id); err != nil {
		return fmt.Errorf("delete warehouse inventories: %w", err)
	}
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM warehouses WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete warehouse: %w", err)
	}
	return nil
}

func (r *PGRepository) CreateInventoryRows(ctx context.Context, warehouseID int64) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	_, err := q.ExecContext(ctx, q.Rebind(`
        INSERT INTO inventories (product_id, warehouse_id, quantity, created_at, updated_at)
        SELECT p.id, CAST(? AS BIGINT), 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP FROM products p WHERE true
        ON CONFLICT (product_id, warehouse_id) DO NOTHING`), warehouseID)
	if err != nil {
		return fmt.Errorf("create inventory rows: %w", err)
	}
	return nil
}

var references = []struct {
	what  string
	query string
}{
	{"stock on hand", `SELECT count(*) FROM inventories WHERE warehouse_id = ? AND quantity > 0`},
	{"stock-in records", `SELECT count(*) FROM stock_ins WHERE warehouse_id = ?`},
	{"stock-out records", `SELECT count(*) FROM stock_outs WHERE warehouse_id = ?`},
}

func (r *PGRepository) Reference(ctx context.Context, id int64) (string, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	for _, ref := range references {
		var n int
		if err := q.GetContext(ctx, &n, q.Rebind(ref.query), id); err != nil {
			return "", err
		}
		if n > 0 {
			return ref.what, nil
		}
	}
	return "", nil
}
