package bscrpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/egpaydcx/egpay-backend/internal/model"
)

type IBscRPC interface {
	HotWalletAddress() common.Address
	Ping(ctx context.Context) (uint64, error)

	Decimals(ctx context.Context, symbol string) (uint8, error)
	BalanceOf(ctx context.Context, symbol string, owner string) (*model.Web3BigInt, error)
	HotWalletBalance(ctx context.Context, symbol string) (*model.Web3BigInt, error)

	// PrepareTransfer signs a token transfer without sending it.
	PrepareTransfer(ctx context.Context, symbol string, to string, amount *model.Web3BigInt) (*SignedTransfer, error)
	// Broadcast submits a signed transaction. Resubmitting a transaction the node already has is not an error.
	Broadcast(ctx context.Context, rawTx string) error
	// WaitReceipt blocks until the transaction is mined or ctx ends.
	WaitReceipt(ctx context.Context, rawTx string) (*TransferResult, error)
	// TransferStatus reports where a previously signed transaction stands on chain.
	TransferStatus(ctx context.Context, rawTx string) (TxState, *TransferResult, error)
	// ResetNonce drops the locally tracked nonce so the next transfer resyncs with the node.
	ResetNonce()

	// Transfer signs, broadcasts and waits for one confirmation.
	Transfer(ctx context.Context, symbol string, to string, humanAmount string) (*TransferResult, error)
}

// Backend is the subset of ethclient.Client the settlement client depends on.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
}
