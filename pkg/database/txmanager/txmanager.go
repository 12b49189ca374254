// Package txmanager carries a sqlx transaction through a context so that
// repositories called inside WithinTx share one unit of work.
package txmanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	DriverName() string
}

// Transactor is what usecases depend on.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ctxKey struct{}

type txState struct {
	tx          *sqlx.Tx
	afterCommit []func()
}

type Manager struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Manager {
	return &Manager{db: db}
}

// WithinTx runs fn inside a transaction. A call made while a transaction is
// already attached to ctx joins it; only the outermost call commits.
func (m *Manager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(ctxKey{}).(*txState); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	state := &txState{tx: tx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, ctxKey{}, state)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	for _, hook := range state.afterCommit {
		hook()
	}
	return nil
}

// GetQuerier returns the transaction attached to ctx, or db when there is none.
func GetQuerier(ctx context.Context, db *sqlx.DB) Querier {
	if state, ok := ctx.Value(ctxKey{}).(*txState); ok {
		return state.tx
	}
	return db
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(ctxKey{}).(*txState)
	return ok
}

// AfterCommit schedules fn to run once the outermost transaction commits.
// Without a transaction fn runs immediately. Rolled back work never runs it.
func AfterCommit(ctx context.Context, fn func()) {
	if state, ok := ctx.Value(ctxKey{}).(*txState); ok {
		state.afterCommit = append(state.afterCommit, fn)
		return
	}
	fn()
}

// ForUpdate returns the row-locking suffix for dialects that support it.
// SQLite serialises writers at the database level and has no FOR UPDATE.
func ForUpdate(q Querier) string {
	switch q.DriverName() {
	case "postgres", "pgx":
		return " FOR UPDATE"
	default:
		return ""
	}
}
