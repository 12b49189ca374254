// Package dbtest opens throwaway SQLite databases carrying the production
// schema, for repository and usecase tests.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// Open creates a migrated database file under t.TempDir. Write transactions
// start IMMEDIATE so concurrent writers queue on the busy timeout instead of
// failing on lock upgrade.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "inventory.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL", path)

	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	require.NoError(t, err)
	src, err := database.Source(database.DialectSQLite)
	require.NoError(t, err)
	m, err := migrate.NewWithInstance("iofs", src, database.DialectSQLite, driver)
	require.NoError(t, err)
	require.NoError(t, database.Up(m))

	return db
}

func SeedProduct(t testing.TB, db *sqlx.DB, sku string) int64 {
	t.Helper()
	var id int64
	now := time.Now()
	err := db.QueryRowxContext(context.Background(), db.Rebind(
		`INSERT INTO products (sku, name, category, unit, price, min_stock, created_at, updated_at)
		 VALUES (?, ?, 'test', 'pcs', 10, 5, ?, ?) RETURNING id`),
		sku, "Product "+sku, now, now).Scan(&id)
	require.NoError(t, err)
	return id
}

func SeedWarehouse(t testing.TB, db *sqlx.DB, name string) int64 {
	t.Helper()
	var id int64
	now := time.Now()
	err := db.QueryRowxContext(context.Background(), db.Rebind(
		`INSERT INTO warehouses (name, location, created_at, updated_at) VALUES (?, 'test', ?, ?) RETURNING id`),
		name, now, now).Scan(&id)
	require.NoError(t, err)
	return id
}

// SetStock writes a ledger row directly, bypassing movement records.
func SetStock(t testing.TB, db *sqlx.DB, productID, warehouseID, quantity int64) {
	t.Helper()
	now := time.Now()
	_, err := db.ExecContext(context.Background(), db.Rebind(
		`INSERT INTO inventories (product_id, warehouse_id, quantity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (product_id, warehouse_id) DO UPDATE SET quantity = excluded.quantity`),
		productID, warehouseID, quantity, now, now)
	require.NoError(t, err)
}

func Quantity(t testing.TB, db *sqlx.DB, productID, warehouseID int64) int64 {
	t.Helper()
	var qty int64
	err := db.GetContext(context.Background(), &qty, db.Rebind(
		`SELECT COALESCE(SUM(quantity), 0) FROM inventories WHERE product_id = ? AND warehouse_id = ?`),
		productID, warehouseID)
	require.NoError(t, err)
	return qty
}

func Count(t testing.TB, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.GetContext(context.Background(), &n, "SELECT count(*) FROM "+table))
	return n
}

func SeedBOM(t testing.TB, db *sqlx.DB, productID, materialID, qtyRequired int64) {
	t.Helper()
	now := time.Now()
	_, err := db.ExecContext(context.Background(), db.Rebind(
		`INSERT INTO bill_of_materials (product_id, material_id, quantity_required, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`), productID, materialID, qtyRequired, now, now)
	require.NoError(t, err)
}
