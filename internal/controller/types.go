package controller

import "github.com/egpaydcx/egpay-backend/internal/model"

type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	ActionExecute Action = "EXECUTE"
	ActionFail    Action = "FAIL"
)

// Command is one operator decision, independent of the surface it arrived on
type Command struct {
	Action  Action
	OrderID string
	Actor   model.Actor
	Reason  string
}

// Result is the outcome of a transition. AlreadyProcessed marks calls that found
// the order past the requested step and changed nothing.
type Result struct {
	OK               bool              `json:"ok"`
	OrderID          string            `json:"orderId"`
	Status           model.OrderStatus `json:"status"`
	TxHash           string            `json:"txHash,omitempty"`
	BlockNumber      *int64            `json:"blockNumber,omitempty"`
	Message          string            `json:"message,omitempty"`
	AlreadyProcessed bool              `json:"alreadyProcessed,omitempty"`
}

func resultFrom(o *model.Order) *Result {
	return &Result{
		OK:          true,
		OrderID:     o.ID,
		Status:      o.Status,
		TxHash:      o.TxHash,
		BlockNumber: o.BlockNumber,
	}
}

type HotWalletView struct {
	Address    string `json:"address"`
	Coin       string `json:"coin"`
	Decimals   int    `json:"decimals"`
	BalanceRaw string `json:"balanceRaw"`
	Balance    string `json:"balance"`
}
