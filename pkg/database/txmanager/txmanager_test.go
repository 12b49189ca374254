package txmanager_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/database/dbtest"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertWarehouse(ctx context.Context, db *sqlx.DB, name string) error {
	q := txmanager.GetQuerier(ctx, db)
	now := time.Now()
	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO warehouses (name, location, created_at, updated_at) VALUES (?, '', ?, ?)`), name, now, now)
	return err
}

func TestWithinTxCommits(t *testing.T) {
	db := dbtest.Open(t)
	tm := txmanager.New(db)

	err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, txmanager.InTx(ctx))
		return insertWarehouse(ctx, db, "main")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, dbtest.Count(t, db, "warehouses"))
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)
	tm := txmanager.New(db)
	boom := errors.New("boom")

	err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, insertWarehouse(ctx, db, "main"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, dbtest.Count(t, db, "warehouses"))
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	db := dbtest.Open(t)
	tm := txmanager.New(db)

	assert.Panics(t, func() {
		_ = tm.WithinTx(context.Background(), func(ctx context.Context) error {
			require.NoError(t, insertWarehouse(ctx, db, "main"))
			panic("boom")
		})
	})
	assert.Equal(t, 0, dbtest.Count(t, db, "warehouses"))
}

func TestNestedWithinTxJoinsOuter(t *testing.T) {
	db := dbtest.Open(t)
	tm := txmanager.New(db)
	boom := errors.New("outer failed")

	err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
		inner := tm.WithinTx(ctx, func(ctx context.Context) error {
			return insertWarehouse(ctx, db, "inner")
		})
		require.NoError(t, inner)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, dbtest.Count(t, db, "warehouses"), "inner work must roll back with the outer transaction")
}

func TestAfterCommitRunsOnlyOnCommit(t *testing.T) {
	db := dbtest.Open(t)
	tm := txmanager.New(db)

	var ran []string
	require.NoError(t, tm.WithinTx(context.Background(), func(ctx context.Context) error {
		txmanager.AfterCommit(ctx, func() { ran = append(ran, "committed") })
		assert.Empty(t, ran)
		return nil
	}))

	_ = tm.WithinTx(context.Background(), func(ctx context.Context) error {
		txmanager.AfterCommit(ctx, func() { ran = append(ran, "rolled back") })
		return errors.New("fail")
	})

	txmanager.AfterCommit(context.Background(), func() { ran = append(ran, "no tx") })

	assert.Equal(t, []string{"committed", "no tx"}, ran)
}

func TestForUpdateDependsOnDriver(t *testing.T) {
	db := dbtest.Open(t)
	assert.Equal(t, "", txmanager.ForUpdate(db))
}
