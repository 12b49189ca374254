package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	err := q.QueryRowxContext(ctx, q.Rebind(`
        INSERT INTO products (sku, name, category, unit, price, min_stock, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id`),
		p.SKU, p.Name, p.Category, p.Unit, p.Price, p.MinStock, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	var product model.Product
	err := q.GetContext(ctx, &product, q.Rebind(`SELECT * FROM products WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if f.SearchQuery != "" {
		conditions = append(conditions, "(LOWER(sku) LIKE ? OR LOWER(name) LIKE ?)")
		like := "%" + strings.ToLower(f.SearchQuery) + "%"
		args = append(args, like, like)
	}
	if f.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, f.Category)
	}
	if f.LowStock {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM inventories i WHERE i.product_id = products.id AND i.quantity <= products.min_stock)")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	q := txmanager.GetQuerier(ctx, r.DB)
	var count int
	if err := q.GetContext(ctx, &count, q.Rebind("SELECT count(*) FROM products"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	orderBy := "created_at"
	switch f.SortBy {
	case "name":
		orderBy = "name"
	case "sku":
		orderBy = "sku"
	case "price":
		orderBy = "price"
	}
	if strings.ToLower(f.SortOrder) == "asc" {
		orderBy += " ASC, id ASC"
	} else {
		orderBy += " DESC, id DESC"
	}

	query := fmt.Sprintf("SELECT * FROM products%s ORDER BY %s", whereClause, orderBy)
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	products := []model.Product{}
	if err := q.SelectContext(ctx, &products, q.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	_, err := q.ExecContext(ctx, q.Rebind(`
        UPDATE products
        SET sku = ?, name = ?, category = ?, unit = ?, price = ?, min_stock = ?, updated_at = ?
        WHERE id = ?`),
		p.SKU, p.Name, p.Category, p.Unit, p.Price, p.MinStock, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM inventories WHERE product_id = ?`), id); err != nil {
		return fmt.Errorf("delete product inventories: %w", err)
	}
	if _, err := q.ExecContext(ctx, q.Rebind(
		`DELETE FROM bill_of_materials WHERE product_id = ? OR material_id = ?`), id, id); err != nil {
		return fmt.Errorf("delete product recipes: %w", err)
	}
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM products WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (r *PGRepository) CreateInventoryRows(ctx context.Context, productID int64) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	_, err := q.ExecContext(ctx, q.Rebind(`
        INSERT INTO inventories (product_id, warehouse_id, quantity, created_at, updated_at)
        SELECT CAST(? AS BIGINT), w.id, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP FROM warehouses w WHERE true
        ON CONFLICT (product_id, warehouse_id) DO NOTHING`), productID)
	if err != nil {
		return fmt.Errorf("create inventory rows: %w", err)
	}
	return nil
}

var references = []struct {
	what  string
	query string
}{
	{"order items", `SELECT count(*) FROM order_items WHERE product_id = ?`},
	{"stock on hand", `SELECT count(*) FROM inventories WHERE product_id = ? AND quantity > 0`},
	{"production orders", `SELECT count(*) FROM production_orders WHERE product_id = ?`},
	{"stock-in records", `SELECT count(*) FROM stock_ins WHERE product_id = ?`},
	{"stock-out records", `SELECT count(*) FROM stock_outs WHERE product_id = ?`},
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
