package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/jmoiron/sqlx"
)

var sortColumns = map[string]string{
	"created_at":   "created_at",
	"order_date":   "order_date",
	"total_amount": "total_amount",
	"order_code":   "order_code",
}

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, o *model.Order) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	err := q.QueryRowxContext(ctx, q.Rebind(`
        INSERT INTO orders (customer_id, order_code, order_date, status, total_amount, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        RETURNING id`),
		o.CustomerID, o.OrderCode, o.OrderDate, o.Status, o.TotalAmount, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return r.insertItems(ctx, q, o.ID, o.Items)
}

func (r *PGRepository) insertItems(ctx context.Context, q txmanager.Querier, orderID int64, items []model.OrderItem) error {
	query := q.Rebind(`
        INSERT INTO order_items (order_id, product_id, quantity, price, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        RETURNING id`)
	for i := range items {
		it := &items[i]
		it.OrderID = orderID
		if err := q.QueryRowxContext(ctx, query,
			it.OrderID, it.ProductID, it.Quantity, it.Price, it.CreatedAt, it.UpdatedAt,
		).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	query := `SELECT * FROM orders WHERE id = ?`
	if txmanager.InTx(ctx) {
		query += txmanager.ForUpdate(q)
	}

	var o model.Order
	if err := q.GetContext(ctx, &o, q.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) FindItems(ctx context.Context, orderIDs ...int64) ([]model.OrderItem, error) {
	items := []model.OrderItem{}
	if len(orderIDs) == 0 {
		return items, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM order_items WHERE order_id IN (?) ORDER BY order_id, id`, orderIDs)
	if err != nil {
		return nil, err
	}
	q := txmanager.GetQuerier(ctx, r.DB)
	err = q.SelectContext(ctx, &items, q.Rebind(query), args...)
	return items, err
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if f.Search != "" {
		conditions = append(conditions, "order_code LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}
	if f.CustomerID != 0 {
		conditions = append(conditions, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.FromDate != nil {
		conditions = append(conditions, "order_date >= ?")
		args = append(args, *f.FromDate)
	}
	if f.ToDate != nil {
		conditions = append(conditions, "order_date <= ?")
		args = append(args, *f.ToDate)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	q := txmanager.GetQuerier(ctx, r.DB)
	var count int
	if err := q.GetContext(ctx, &count, q.Rebind("SELECT count(*) FROM orders"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	sortBy, ok := sortColumns[f.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := "SELECT * FROM orders" + whereClause + " ORDER BY " + sortBy + " " + sortOrder + ", id " + sortOrder
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	orders := []model.Order{}
	if err := q.SelectContext(ctx, &orders, q.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

func (r *PGRepository) Update(ctx context.Context, o *model.Order) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	_, err := q.ExecContext(ctx, q.Rebind(`
        UPDATE orders
        SET customer_id = ?, order_code = ?, order_date = ?, status = ?, total_amount = ?, updated_at = ?
        WHERE id = ?`),
		o.CustomerID, o.OrderCode, o.OrderDate, o.Status, o.TotalAmount, o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func (r *PGRepository) ReplaceItems(ctx context.Context, orderID int64, items []model.OrderItem) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM order_items WHERE order_id = ?`), orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	return r.insertItems(ctx, q, orderID, items)
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus) (bool, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	res, err := q.ExecContext(ctx, q.Rebind(`
        UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`),
		to, time.Now(), id, from)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM order_items WHERE order_id = ?`), id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM orders WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (r *PGRepository) MissingProduct(ctx context.Context, productIDs []int64) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT id FROM products WHERE id IN (?)`, productIDs)
	if err != nil {
		return 0, err
	}
	q := txmanager.GetQuerier(ctx, r.DB)
	var found []int64
	if err := q.SelectContext(ctx, &found, q.Rebind(query), args...); err != nil {
		return 0, err
	}
	seen := make(map[int64]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}
	for _, id := range productIDs {
		if !seen[id] {
			return id, nil
		}
	}
	return 0, nil
}

func (r *PGRepository) WarehouseExists(ctx context.Context, id int64) (bool, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	var n int
	err := q.GetContext(ctx, &n, q.Rebind(`SELECT count(*) FROM warehouses WHERE id = ?`), id)
	return n > 0, err
}
