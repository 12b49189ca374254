package repository

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/jmoiron/sqlx"
)

type BOMRepository struct {
	DB *sqlx.DB
}

func NewBOMRepository(db *sqlx.DB) *BOMRepository {
	return &BOMRepository{DB: db}
}

func (r *BOMRepository) FindByProduct(ctx context.Context, productID int64) ([]model.BillOfMaterial, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	boms := []model.BillOfMaterial{}
	err := q.SelectContext(ctx, &boms, q.Rebind(`
        SELECT b.*, p.sku AS material_sku, p.name AS material_name, p.unit AS material_unit
        FROM bill_of_materials b
        JOIN products p ON p.id = b.material_id
        WHERE b.product_id = ?
        ORDER BY b.material_id`), productID)
	return boms, err
}

func (r *BOMRepository) HasBOM(ctx context.Context, productID int64) (bool, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	var n int
	err := q.GetContext(ctx, &n, q.Rebind(`SELECT count(*) FROM bill_of_materials WHERE product_id = ?`), productID)
	return n > 0, err
}

func (r *BOMRepository) Upsert(ctx context.Context, b *model.BillOfMaterial) error {
	q := txmanager.GetQuerier(ctx, r.DB)
	err := q.QueryRowxContext(ctx, q.Rebind(`
        INSERT INTO bill_of_materials (product_id, material_id, quantity_required, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (product_id, material_id)
        DO UPDATE SET quantity_required = excluded.quantity_required, updated_at = excluded.updated_at
        RETURNING id`),
		b.ProductID, b.MaterialID, b.QuantityRequired, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("upsert bill of materials: %w", err)
	}
	return nil
}

func (r *BOMRepository) Delete(ctx context.Context, productID, materialID int64) (bool, error) {
	q := txmanager.GetQuerier(ctx, r.DB)
	res, err := q.ExecContext(ctx, q.Rebind(`
        DELETE FROM bill_of_materials WHERE product_id = ? AND material_id = ?`), productID, materialID)
	if err != nil {
		return false, fmt.Errorf("delete bill of materials: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
