package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/egpaydcx/egpay-backend/internal/bscrpc"
	"github.com/egpaydcx/egpay-backend/internal/intake"
	"github.com/egpaydcx/egpay-backend/internal/model"
)

// transferPlan carries what the prepare phase decided out of the locked section
type transferPlan struct {
	// settled means no broadcast is needed
	settled bool
	// reconciled means a previous attempt was found mined and recorded by this call
	reconciled  bool
	rawTx       string
	txHash      string
	signed      bool
	rebroadcast bool
	blocked     string
}

func (c *Controller) ExecuteTransfer(ctx context.Context, orderID string) (*Result, error) {
	start := c.now()
	coin := "unknown"

	res, err := c.executeTransfer(ctx, orderID, &coin)

	outcome := "success"
	if err != nil {
		outcome = string(AsError(err).Kind)
	} else if res.AlreadyProcessed {
		outcome = "already_settled"
	}
	c.metrics.RecordSettlement(coin, outcome, time.Since(start).Seconds())

	return res, err
}

func (c *Controller) executeTransfer(ctx context.Context, orderID string, coin *string) (*Result, error) {
	plan := &transferPlan{}

	order, err := c.store.Order.WithLock(ctx, orderID, func(o *model.Order) (bool, error) {
		*coin = o.Coin
		return c.prepareTransfer(ctx, o, plan)
	})
	if err != nil {
		if plan.signed {
			// the signed transaction never reached the ledger, release its nonce
			c.chain.ResetNonce()
		}
		if plan.blocked != "" && order != nil {
			c.notifier.SettlementBlocked(ctx, *order, plan.blocked)
		}
		return nil, c.lockError("ExecuteTransfer", orderID, err)
	}

	if plan.settled {
		res := resultFrom(order)
		if plan.reconciled {
			res.Message = "Transfer confirmed"
			c.notifier.OrderSettled(ctx, *order)
		} else {
			res.AlreadyProcessed = true
			res.Message = "Already transferred"
		}
		return res, nil
	}

	if err := c.chain.Broadcast(ctx, plan.rawTx); err != nil {
		c.chain.ResetNonce()
		c.logger.Error("[ExecuteTransfer][Broadcast]", map[string]string{
			"orderId":     orderID,
			"txHash":      plan.txHash,
			"rebroadcast": boolString(plan.rebroadcast),
			"error":       err.Error(),
		})
		return nil, newError(KindTransferFailed, MsgBroadcastFailed, err)
	}

	c.logger.Info("[ExecuteTransfer][Broadcast] transfer sent", map[string]string{
		"orderId":     orderID,
		"txHash":      plan.txHash,
		"rebroadcast": boolString(plan.rebroadcast),
	})

	waitCtx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	receipt, err := c.chain.WaitReceipt(waitCtx, plan.rawTx)
	if err != nil {
		c.logger.Error("[ExecuteTransfer][WaitReceipt]", map[string]string{
			"orderId": orderID,
			"txHash":  plan.txHash,
			"error":   err.Error(),
		})
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(KindConflict, MsgAwaitingConfirmation, err)
		}
		return nil, newError(KindTransferFailed, MsgAwaitingConfirmation, err)
	}

	return c.finalizeTransfer(ctx, orderID, receipt)
}

// prepareTransfer runs with the row locked. It either decides the order is
// already settled, or leaves a signed transaction recorded on the order.
func (c *Controller) prepareTransfer(ctx context.Context, o *model.Order, plan *transferPlan) (bool, error) {
	if o.Settled() {
		plan.settled = true
		return false, nil
	}
	if o.Status != model.OrderStatusApproved {
		return false, conflict("Order is %s, cannot transfer", o.Status)
	}

	if o.TransferInFlight() {
		state, res, err := c.chain.TransferStatus(ctx, o.PendingRawTx)
		if err != nil {
			return false, internal(err, "reconcile pending transfer")
		}

		c.logger.Info("[ExecuteTransfer][TransferStatus] reconciling previous attempt", map[string]string{
			"orderId": o.ID,
			"txHash":  o.PendingTxHash,
			"state":   string(state),
		})

		switch state {
		case bscrpc.TxStateMined:
			if res.Success {
				c.applySettlement(o, res)
				plan.settled = true
				plan.reconciled = true
				return true, nil
			}
			o.AppendNote("TX failed:" + o.PendingTxHash)
			o.ClearTransferAttempt()
		case bscrpc.TxStatePending:
			return false, conflict(MsgTransferInFlight)
		case bscrpc.TxStateUnknown:
			plan.rawTx = o.PendingRawTx
			plan.txHash = o.PendingTxHash
			plan.rebroadcast = true
			return false, nil
		case bscrpc.TxStateDropped:
			o.AppendNote("TX dropped:" + o.PendingTxHash)
			o.ClearTransferAttempt()
		}
	}

	if !intake.IsValidAddress(o.ToAddress) || !o.AmountOut.IsPositive() {
		return false, newError(KindInvalidData, MsgInvalidPayoutData, nil)
	}

	decimals, err := c.chain.Decimals(ctx, o.Coin)
	if errors.Is(err, bscrpc.ErrUnknownToken) {
		return false, newError(KindInvalidData, "Coin "+o.Coin+" is not configured for settlement", err)
	}
	if err != nil {
		return false, internal(err, "token decimals")
	}

	amount, err := model.ParseUnits(o.AmountOut.String(), int(decimals))
	if err != nil {
		return false, newError(KindInvalidData, MsgInvalidPayoutData, err)
	}

	balance, err := c.chain.HotWalletBalance(ctx, o.Coin)
	if err != nil {
		return false, internal(err, "hot wallet balance")
	}
	if balance.Cmp(amount) < 0 {
		shortfall := amount.Sub(balance).Human()
		c.logger.Info("[ExecuteTransfer][HotWalletBalance] insufficient liquidity", map[string]string{
			"orderId":   o.ID,
			"coin":      o.Coin,
			"balance":   balance.Human(),
			"needed":    amount.Human(),
			"shortfall": shortfall,
		})
		plan.blocked = fmt.Sprintf("%s (short %s %s)", MsgInsufficientLiquidity, shortfall, o.Coin)
		return false, conflict(MsgInsufficientLiquidity)
	}

	signed, err := c.chain.PrepareTransfer(ctx, o.Coin, o.ToAddress, amount)
	if err != nil {
		return false, internal(err, "prepare transfer")
	}
	plan.signed = true
	plan.rawTx = signed.RawTx
	plan.txHash = signed.TxHash

	now := c.now().UTC()
	o.PendingTxHash = signed.TxHash
	o.PendingRawTx = signed.RawTx
	o.TransferAttemptedAt = &now

	return true, nil
}

func (c *Controller) finalizeTransfer(ctx context.Context, orderID string, receipt *bscrpc.TransferResult) (*Result, error) {
	applied := false
	order, err := c.store.Order.WithLock(ctx, orderID, func(o *model.Order) (bool, error) {
		if o.Settled() {
			return false, nil
		}
		if receipt.Success {
			c.applySettlement(o, receipt)
			applied = true
			return true, nil
		}
		if o.PendingTxHash == receipt.TxHash {
			o.AppendNote("TX failed:" + receipt.TxHash)
			o.ClearTransferAttempt()
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		// the transfer is on-chain; the marker lets the next retry record it
		c.logger.Error("[ExecuteTransfer][finalize]", map[string]string{
			"orderId": orderID,
			"txHash":  receipt.TxHash,
			"error":   err.Error(),
		})
		return nil, c.lockError("ExecuteTransfer", orderID, err)
	}

	if !receipt.Success {
		c.notifier.SettlementBlocked(ctx, *order, MsgTransferFailed)
		return nil, newError(KindTransferFailed, MsgTransferFailed, bscrpc.ErrTransactionFailed)
	}

	res := resultFrom(order)
	if applied {
		res.Message = "Transfer confirmed"
		c.logger.Info("[ExecuteTransfer] order settled", map[string]string{
			"orderId": orderID,
			"txHash":  order.TxHash,
		})
		c.notifier.OrderSettled(ctx, *order)
	} else {
		res.AlreadyProcessed = true
		res.Message = "Already transferred"
	}
	return res, nil
}

func (c *Controller) applySettlement(o *model.Order, receipt *bscrpc.TransferResult) {
	block := receipt.BlockNumber
	o.TxHash = receipt.TxHash
	o.BlockNumber = &block
	o.Status = model.OrderStatusTransferred
	o.AppendNote("TX:" + receipt.TxHash)
	o.ClearTransferAttempt()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
