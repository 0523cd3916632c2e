package bscrpc

import (
	"errors"

	"github.com/egpaydcx/egpay-backend/internal/model"
)

var (
	ErrUnknownToken      = errors.New("token symbol is not configured")
	ErrInvalidAddress    = errors.New("invalid payout address")
	ErrNoHotWallet       = errors.New("hot wallet key is not configured")
	ErrInvalidRawTx      = errors.New("invalid signed transaction")
	ErrTransactionFailed = errors.New("transaction failed")
)

type TxState string

const (
	// TxStateMined means a receipt exists, see TransferResult.Success.
	TxStateMined TxState = "MINED"
	// TxStatePending means the node knows the transaction but it is not mined yet.
	TxStatePending TxState = "PENDING"
	// TxStateUnknown means the node has never seen it and its nonce is still free.
	TxStateUnknown TxState = "UNKNOWN"
	// TxStateDropped means the node does not know it and its nonce was consumed by another transaction.
	TxStateDropped TxState = "DROPPED"
)

type SignedTransfer struct {
	TxHash string
	RawTx  string
	Nonce  uint64
	Token  string
	To     string
	Amount *model.Web3BigInt
}

type TransferResult struct {
	TxHash      string
	BlockNumber int64
	Success     bool
}
