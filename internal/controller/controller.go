package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/egpaydcx/egpay-backend/internal/bscrpc"
	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/monitoring"
	"github.com/egpaydcx/egpay-backend/internal/notifier"
	"github.com/egpaydcx/egpay-backend/internal/store"
	orderstore "github.com/egpaydcx/egpay-backend/internal/store/order"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

const defaultReceiptTimeout = 2 * time.Minute

type Controller struct {
	store          *store.Store
	chain          bscrpc.IBscRPC
	notifier       notifier.INotifier
	logger         *logger.Logger
	metrics        *monitoring.BusinessMetricsRecorder
	receiptTimeout time.Duration
	now            func() time.Time
}

func New(
	store *store.Store,
	chain bscrpc.IBscRPC,
	notifier notifier.INotifier,
	logger *logger.Logger,
	metrics *monitoring.BusinessMetricsRecorder,
	config *config.AppConfig,
) IController {
	receiptTimeout := config.Blockchain.ReceiptTimeout
	if receiptTimeout <= 0 {
		receiptTimeout = defaultReceiptTimeout
	}

	return &Controller{
		store:          store,
		chain:          chain,
		notifier:       notifier,
		logger:         logger,
		metrics:        metrics,
		receiptTimeout: receiptTimeout,
		now:            time.Now,
	}
}

func (c *Controller) Approve(ctx context.Context, orderID string, actor model.Actor) (*Result, error) {
	start := c.now()
	transitioned := false

	order, err := c.store.Order.WithLock(ctx, orderID, func(o *model.Order) (bool, error) {
		if o.Status != model.OrderStatusPendingConfirmation {
			return false, nil
		}
		now := c.now().UTC()
		o.Status = model.OrderStatusApproved
		o.ApprovedAt = &now
		o.AppendNote("Approved by " + actor.String())
		transitioned = true
		return true, nil
	})
	if err != nil {
		c.metrics.RecordTransition("approve", "error", time.Since(start).Seconds())
		return nil, c.lockError("Approve", orderID, err)
	}

	if !transitioned {
		c.metrics.RecordTransition("approve", "already_processed", time.Since(start).Seconds())
		res := resultFrom(order)
		res.AlreadyProcessed = true
		switch order.Status {
		case model.OrderStatusApproved, model.OrderStatusTransferred:
			res.Message = "Already approved"
		default:
			res.OK = false
			res.Message = "Order already " + strings.ToLower(order.Status.String())
		}
		return res, nil
	}

	c.metrics.RecordTransition("approve", "success", time.Since(start).Seconds())
	c.logger.Info("[Approve] order approved", map[string]string{
		"orderId": orderID,
		"actor":   actor.String(),
	})
	c.notifier.OrderTransitioned(ctx, *order, actor)

	return c.ExecuteTransfer(ctx, orderID)
}

func (c *Controller) Reject(ctx context.Context, orderID string, actor model.Actor) (*Result, error) {
	start := c.now()
	transitioned := false

	order, err := c.store.Order.WithLock(ctx, orderID, func(o *model.Order) (bool, error) {
		if o.Status != model.OrderStatusPendingConfirmation {
			return false, nil
		}
		o.Status = model.OrderStatusRejected
		o.AppendNote("Rejected by " + actor.String())
		transitioned = true
		return true, nil
	})
	if err != nil {
		c.metrics.RecordTransition("reject", "error", time.Since(start).Seconds())
		return nil, c.lockError("Reject", orderID, err)
	}

	res := resultFrom(order)
	if !transitioned {
		c.metrics.RecordTransition("reject", "already_processed", time.Since(start).Seconds())
		res.AlreadyProcessed = true
		res.OK = order.Status == model.OrderStatusRejected
		res.Message = "Order already " + strings.ToLower(order.Status.String())
		return res, nil
	}

	c.metrics.RecordTransition("reject", "success", time.Since(start).Seconds())
	c.logger.Info("[Reject] order rejected", map[string]string{
		"orderId": orderID,
		"actor":   actor.String(),
	})
	c.notifier.OrderTransitioned(ctx, *order, actor)

	return res, nil
}

func (c *Controller) MarkFailed(ctx context.Context, orderID string, actor model.Actor, reason string) (*Result, error) {
	start := c.now()
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no reason given"
	}

	transitioned := false
	order, err := c.store.Order.WithLock(ctx, orderID, func(o *model.Order) (bool, error) {
		switch {
		case o.Status == model.OrderStatusFailed:
			return false, nil
		case o.Status != model.OrderStatusApproved:
			return false, conflict("Order is %s, only APPROVED orders can be marked failed", o.Status)
		case o.Settled():
			return false, conflict("Order already transferred")
		case o.TransferInFlight():
			return false, conflict(MsgTransferInFlight)
		}
		o.Status = model.OrderStatusFailed
		o.AppendNote(fmt.Sprintf("Failed by %s: %s", actor.String(), reason))
		transitioned = true
		return true, nil
	})
	if err != nil {
		c.metrics.RecordTransition("fail", "error", time.Since(start).Seconds())
		return nil, c.lockError("MarkFailed", orderID, err)
	}

	res := resultFrom(order)
	if !transitioned {
		c.metrics.RecordTransition("fail", "already_processed", time.Since(start).Seconds())
		res.AlreadyProcessed = true
		res.Message = "Order already failed"
		return res, nil
	}

	c.metrics.RecordTransition("fail", "success", time.Since(start).Seconds())
	c.logger.Info("[MarkFailed] order marked failed", map[string]string{
		"orderId": orderID,
		"actor":   actor.String(),
		"reason":  reason,
	})
	c.notifier.OrderTransitioned(ctx, *order, actor)

	return res, nil
}

func (c *Controller) Handle(ctx context.Context, cmd Command) (*Result, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return nil, newError(KindBadRequest, "Missing orderId", nil)
	}

	switch cmd.Action {
	case ActionApprove:
		return c.Approve(ctx, orderID, cmd.Actor)
	case ActionReject:
		return c.Reject(ctx, orderID, cmd.Actor)
	case ActionExecute:
		return c.ExecuteTransfer(ctx, orderID)
	case ActionFail:
		return c.MarkFailed(ctx, orderID, cmd.Actor, cmd.Reason)
	default:
		return nil, newError(KindBadRequest, fmt.Sprintf("Unknown action %q", cmd.Action), nil)
	}
}

func (c *Controller) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := c.store.Order.GetByID(ctx, orderID)
	if errors.Is(err, orderstore.ErrNotFound) {
		return nil, newError(KindNotFound, MsgOrderNotFound, err)
	}
	if err != nil {
		return nil, internal(err, "get order")
	}
	return order, nil
}

func (c *Controller) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, int64, error) {
	orders, total, err := c.store.Order.List(ctx, filter)
	if err != nil {
		return nil, 0, internal(err, "list orders")
	}
	return orders, total, nil
}

func (c *Controller) HotWallet(ctx context.Context, coin string) (*HotWalletView, error) {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		coin = "EGLIFE"
	}

	balance, err := c.chain.HotWalletBalance(ctx, coin)
	if errors.Is(err, bscrpc.ErrUnknownToken) {
		return nil, newError(KindBadRequest, "Unsupported coin", err)
	}
	if err != nil {
		c.logger.Error("[HotWallet][HotWalletBalance]", map[string]string{
			"coin":  coin,
			"error": err.Error(),
		})
		return nil, internal(err, "hot wallet balance")
	}

	return &HotWalletView{
		Address:    c.chain.HotWalletAddress().Hex(),
		Coin:       coin,
		Decimals:   balance.Decimal,
		BalanceRaw: balance.Value,
		Balance:    balance.Human(),
	}, nil
}

// lockError maps WithLock failures; errors raised inside the mutate func are already classified
func (c *Controller) lockError(op, orderID string, err error) error {
	if errors.Is(err, orderstore.ErrNotFound) {
		return newError(KindNotFound, MsgOrderNotFound, err)
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	c.logger.Error(fmt.Sprintf("[%s][WithLock]", op), map[string]string{
		"orderId": orderID,
		"error":   err.Error(),
	})
	return internal(err, strings.ToLower(op))
}
