// Package apperr defines the error kinds returned by the stock, order and
// production usecases. Callers branch with errors.Is against the sentinels
// and pull details out with errors.As.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrMissingBOM        = errors.New("missing bill of materials")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("already exists")
	ErrInUse             = errors.New("still in use")
	ErrBusy              = errors.New("resource busy, try again later")
)

type InsufficientStockError struct {
	ProductID   int64
	WarehouseID int64
	Required    int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d in warehouse %d: required %d, available %d",
		e.ProductID, e.WarehouseID, e.Required, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

func (e *InsufficientStockError) Shortfall() int64 { return e.Required - e.Available }

type InvalidStateError struct {
	Entity    string
	ID        int64
	Status    string
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %d in status %q", e.Operation, e.Entity, e.ID, e.Status)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

type MissingBOMError struct {
	ProductID int64
}

func (e *MissingBOMError) Error() string {
	return fmt.Sprintf("product %d has no bill of materials", e.ProductID)
}

func (e *MissingBOMError) Is(target error) bool { return target == ErrMissingBOM }

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func InvalidState(entity string, id int64, status, operation string) error {
	return &InvalidStateError{Entity: entity, ID: id, Status: status, Operation: operation}
}

// Invalid wraps ErrInvalidInput with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsUniqueViolation recognises unique-constraint failures from postgres and
// sqlite.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Conflict maps unique violations to ErrConflict and returns other errors as is.
func Conflict(err error, what string) error {
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrConflict, what)
	}
	return err
}
