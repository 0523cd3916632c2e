package order

import (
	"context"
	"errors"

	"github.com/egpaydcx/egpay-backend/internal/model"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrDuplicateUTR = errors.New("reference already used")
	ErrDuplicateID  = errors.New("order id already exists")
)

// MutateFunc runs while the order row is exclusively locked. It reports whether
// the order was modified; a returned error rolls the transaction back.
type MutateFunc func(o *model.Order) (changed bool, err error)

type IStore interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	GetByUTR(ctx context.Context, utr string) (*model.Order, error)
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int64, error)

	// WithLock locks the row, applies fn and persists the result if fn changed it.
	// The returned order reflects the row as fn left it, also when fn fails.
	WithLock(ctx context.Context, id string, fn MutateFunc) (*model.Order, error)
}
