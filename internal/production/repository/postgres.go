package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/production/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, o *model.ProductionOrder) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	err := q.QueryRowxContext(ctx, q.Rebind(`
        INSERT INTO production_orders (order_code, product_id, quantity, status, start_date, end_date, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id`),
		o.OrderCode, o.ProductID, o.Quantity, o.Status, o.StartDate, o.EndDate, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert production order: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.ProductionOrder, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	query := `SELECT * FROM production_orders WHERE id = ?`
	if txmanager.InTx(ctx) {
		query += txmanager.ForUpdate(q)
	}

	var o model.ProductionOrder
	if err := q.GetContext(ctx, &o, q.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductionFilters) ([]model.ProductionOrder, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}
	if f.ProductID != 0 {
		conditions = append(conditions, "product_id = ?")
		args = append(args, f.ProductID)
	}
	cond, dateArgs := dateRange(f.FromDate, f.ToDate)
	conditions = append(conditions, cond...)
	args = append(args, dateArgs...)

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	q := txmanager.GetQuerier(ctx, r.DB)
	var count int
	if err := q.GetContext(ctx, &count, q.Rebind("SELECT count(*) FROM production_orders"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM production_orders" + whereClause + " ORDER BY created_at DESC, id DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	orders := []model.ProductionOrder{}
	if err := q.SelectContext(ctx, &orders, q.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

func (r *PGRepository) Update(ctx context.Context, o *model.ProductionOrder) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	_, err := q.ExecContext(ctx, q.Rebind(`
        UPDATE production_orders
        SET order_code = ?, product_id = ?, quantity = ?, updated_at = ?
        WHERE id = ?`),
		o.OrderCode, o.ProductID, o.Quantity, o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("update production order: %w", err)
	}
	return nil
}

func (r *PGRepository) Transition(ctx context.Context, id int64, from, to model.ProductionStatus, startDate, endDate *time.Time) (bool, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	res, err := q.ExecContext(ctx, q.Rebind(`
        UPDATE production_orders
        SET status = ?, start_date = COALESCE(?, start_date), end_date = COALESCE(?, end_date), updated_at = ?
        WHERE id = ? AND status = ?`),
		to, startDate, endDate, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("update production status: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *PGRepository) AddLog(ctx context.Context, l *model.ProductionLog) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	err := q.QueryRowxContext(ctx, q.Rebind(`
        INSERT INTO production_logs (production_order_id, note, created_by, created_at)
        VALUES (?, ?, ?, ?)
        RETURNING id`),
		l.ProductionOrderID, l.Note, l.CreatedBy, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert production log: %w", err)
	}
	return nil
}

func (r *PGRepository) FindLogs(ctx context.Context, orderIDs ...int64) ([]model.ProductionLog, error) {
	logs := []model.ProductionLog{}
	if len(orderIDs) == 0 {
		return logs, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM production_logs WHERE production_order_id IN (?) ORDER BY production_order_id, id`, orderIDs)
	if err != nil {
		return nil, err
	}
	q := txmanager.GetQuerier(ctx, r.DB)
	err = q.SelectContext(ctx, &logs, q.Rebind(query), args...)
	return logs, err
}

func (r *PGRepository) Statistics(ctx context.Context, from, to *time.Time) (*model.ProductionStatistics, error) {
	conditions, args := dateRange(from, to)
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	q := txmanager.GetQuerier(ctx, r.DB)
	var stats model.ProductionStatistics
	err := q.GetContext(ctx, &stats, q.Rebind(`
        SELECT
            count(*) AS total,
            COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
            COALESCE(SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END), 0) AS in_progress,
            COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS completed,
            COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0) AS cancelled,
            COALESCE(SUM(CASE WHEN status = 'completed' THEN quantity ELSE 0 END), 0) AS total_produced
        FROM production_orders`+whereClause), args...)
	if err != nil {
		return nil, fmt.Errorf("production statistics: %w", err)
	}
	return &stats, nil
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
	err := q.GetContext(ctx, &n, q.Rebind(`SELECT count(*) FROM `+table+` WHERE id = ?`), id)
	return n > 0, err
}

// dateRange filters on start_date from the first day and end_date through
// the last one, inclusive.
func dateRange(from, to *time.Time) ([]string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	if from != nil {
		conditions = append(conditions, "start_date >= ?")
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, "end_date < ?")
		args = append(args, to.AddDate(0, 0, 1))
	}
	return conditions, args
}
