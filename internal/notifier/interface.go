package notifier

import (
	"context"

	"github.com/egpaydcx/egpay-backend/internal/model"
)

// INotifier delivers order events to the operator chat. Delivery is best-effort:
// event methods log failures and never return them.
type INotifier interface {
	OrderCreated(ctx context.Context, order model.Order)
	OrderTransitioned(ctx context.Context, order model.Order, actor model.Actor)
	OrderSettled(ctx context.Context, order model.Order)
	SettlementBlocked(ctx context.Context, order model.Order, reason string)
	// StaleDigest is used by the scheduler, which needs the error to record the job outcome
	StaleDigest(ctx context.Context, pending []model.Order, approved []model.Order) error
}
