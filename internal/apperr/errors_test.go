package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestInsufficientStockMatchesSentinelThroughWrapping(t *testing.T) {
	err := fmt.Errorf("process order: %w", &InsufficientStockError{ProductID: 1, WarehouseID: 2, Required: 50, Available: 10})

	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.NotErrorIs(t, err, ErrInvalidState)

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(40), ise.Shortfall())
	assert.Contains(t, err.Error(), "required 50, available 10")
}

func TestKindsMatchTheirSentinels(t *testing.T) {
	assert.ErrorIs(t, InvalidState("order", 3, "completed", "cancel"), ErrInvalidState)
	assert.ErrorIs(t, &MissingBOMError{ProductID: 9}, ErrMissingBOM)
	assert.ErrorIs(t, NotFound("warehouse", 4), ErrNotFound)
	assert.ErrorIs(t, Invalid("quantity must be positive"), ErrInvalidInput)
}

func TestConflictMapping(t *testing.T) {
	assert.ErrorIs(t, Conflict(&pq.Error{Code: "23505"}, "sku"), ErrConflict)
	assert.ErrorIs(t, Conflict(errors.New("UNIQUE constraint failed: products.sku"), "sku"), ErrConflict)

	other := errors.New("connection reset")
	assert.Equal(t, other, Conflict(other, "sku"))
	assert.Nil(t, Conflict(nil, "sku"))
}

func TestCodeMapping(t *testing.T) {
	cases := map[error]codes.Code{
		NotFound("order", 1):                       codes.NotFound,
		&InsufficientStockError{}:                  codes.FailedPrecondition,
		InvalidState("order", 1, "completed", "x"): codes.FailedPrecondition,
		&MissingBOMError{}:                         codes.FailedPrecondition,
		ErrInUse:                                   codes.FailedPrecondition,
		Invalid("bad"):                             codes.InvalidArgument,
		ErrConflict:                                codes.AlreadyExists,
		ErrBusy:                                    codes.Unavailable,
		errors.New("db down"):                      codes.Internal,
	}
	for err, want := range cases {
		assert.Equal(t, want, status.Code(ToStatus(err)), err.Error())
	}
	assert.NoError(t, ToStatus(nil))
}
