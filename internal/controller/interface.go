package controller

import (
	"context"

	"github.com/egpaydcx/egpay-backend/internal/model"
)

type IController interface {
	// Approve moves a pending order to APPROVED and, only when this call made
	// that transition, settles it on-chain
	Approve(ctx context.Context, orderID string, actor model.Actor) (*Result, error)

	// Reject moves a pending order to REJECTED; any other status is returned unchanged
	Reject(ctx context.Context, orderID string, actor model.Actor) (*Result, error)

	// ExecuteTransfer settles an APPROVED order. Safe to call repeatedly.
	ExecuteTransfer(ctx context.Context, orderID string) (*Result, error)

	// MarkFailed closes an APPROVED order that will not be settled
	MarkFailed(ctx context.Context, orderID string, actor model.Actor, reason string) (*Result, error)

	// Handle dispatches a control command from any entry point
	Handle(ctx context.Context, cmd Command) (*Result, error)

	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, int64, error)
	HotWallet(ctx context.Context, coin string) (*HotWalletView, error)
}
