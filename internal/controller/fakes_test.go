package controller_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/egpaydcx/egpay-backend/internal/bscrpc"
	"github.com/egpaydcx/egpay-backend/internal/model"
)

var hotWallet = common.HexToAddress("0x00000000000000000000000000000000000000f0")

type fakeTx struct {
	hash      string
	nonce     uint64
	amount    *big.Int
	broadcast bool
	mined     bool
	success   bool
	block     int64
}

// fakeChain models one hot wallet on a node that mines a transaction as soon
// as its receipt is awaited
type fakeChain struct {
	mu sync.Mutex

	decimals uint8
	balance  *big.Int
	// nonce is the local signer counter, onchain the account nonce the node reports
	nonce   uint64
	onchain uint64
	txs     map[string]*fakeTx

	prepares    int
	broadcasts  int
	resets      int
	failReceipt bool
	// broadcastErr is returned by the next Broadcast only
	broadcastErr error
	// waitErr is returned by WaitReceipt without mining
	waitErr error
}

var _ bscrpc.IBscRPC = (*fakeChain)(nil)

func newFakeChain(humanBalance int64) *fakeChain {
	f := &fakeChain{decimals: 18, txs: map[string]*fakeTx{}}
	f.setBalance(humanBalance)
	return f
}

func (f *fakeChain) setBalance(human int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(f.decimals)), nil)
	f.balance = new(big.Int).Mul(big.NewInt(human), unit)
}

func (f *fakeChain) minedTransfers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, tx := range f.txs {
		if tx.mined && tx.success {
			n++
		}
	}
	return n
}

func (f *fakeChain) stats() (prepares, broadcasts, resets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prepares, f.broadcasts, f.resets
}

// consumeNonce simulates another transaction from the hot wallet being mined with the next free nonce
func (f *fakeChain) consumeNonce() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onchain++
	if f.nonce < f.onchain {
		f.nonce = f.onchain
	}
}

// mineAll mines every broadcast transaction, as the network would without anyone waiting
func (f *fakeChain) mineAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.txs {
		if !tx.broadcast || tx.mined {
			continue
		}
		tx.mined = true
		tx.block = 1000 + int64(tx.nonce)
		tx.success = f.balance.Cmp(tx.amount) >= 0
		if tx.success {
			f.balance.Sub(f.balance, tx.amount)
		}
		if f.onchain <= tx.nonce {
			f.onchain = tx.nonce + 1
		}
	}
}

func (f *fakeChain) HotWalletAddress() common.Address {
	return hotWallet
}

func (f *fakeChain) Ping(context.Context) (uint64, error) {
	return 1, nil
}

func (f *fakeChain) Decimals(_ context.Context, symbol string) (uint8, error) {
	if symbol != "EGLIFE" {
		return 0, bscrpc.ErrUnknownToken
	}
	return f.decimals, nil
}

func (f *fakeChain) BalanceOf(ctx context.Context, symbol string, _ string) (*model.Web3BigInt, error) {
	return f.HotWalletBalance(ctx, symbol)
}

func (f *fakeChain) HotWalletBalance(_ context.Context, symbol string) (*model.Web3BigInt, error) {
	if symbol != "EGLIFE" {
		return nil, bscrpc.ErrUnknownToken
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.NewWeb3BigInt(new(big.Int).Set(f.balance), int(f.decimals)), nil
}

func (f *fakeChain) PrepareTransfer(_ context.Context, symbol string, to string, amount *model.Web3BigInt) (*bscrpc.SignedTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prepares++
	nonce := f.nonce
	f.nonce++
	raw := fmt.Sprintf("raw-%d-%d", f.prepares, nonce)
	f.txs[raw] = &fakeTx{
		hash:   fmt.Sprintf("0x%064x", f.prepares),
		nonce:  nonce,
		amount: amount.BigInt(),
	}
	return &bscrpc.SignedTransfer{
		TxHash: f.txs[raw].hash,
		RawTx:  raw,
		Nonce:  nonce,
		Token:  symbol,
		To:     to,
		Amount: amount,
	}, nil
}

func (f *fakeChain) Broadcast(_ context.Context, rawTx string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.broadcastErr; err != nil {
		f.broadcastErr = nil
		return err
	}
	tx, ok := f.txs[rawTx]
	if !ok {
		return bscrpc.ErrInvalidRawTx
	}
	f.broadcasts++
	tx.broadcast = true
	return nil
}

func (f *fakeChain) WaitReceipt(_ context.Context, rawTx string) (*bscrpc.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.waitErr != nil {
		return nil, f.waitErr
	}
	tx, ok := f.txs[rawTx]
	if !ok || !tx.broadcast {
		return nil, errors.New("transaction not broadcast")
	}
	if !tx.mined {
		tx.mined = true
		tx.block = 1000 + int64(tx.nonce)
		tx.success = !f.failReceipt && f.balance.Cmp(tx.amount) >= 0
		if tx.success {
			f.balance.Sub(f.balance, tx.amount)
		}
		if f.onchain <= tx.nonce {
			f.onchain = tx.nonce + 1
		}
	}
	return &bscrpc.TransferResult{TxHash: tx.hash, BlockNumber: tx.block, Success: tx.success}, nil
}

func (f *fakeChain) TransferStatus(_ context.Context, rawTx string) (bscrpc.TxState, *bscrpc.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx, ok := f.txs[rawTx]
	if !ok {
		return "", nil, bscrpc.ErrInvalidRawTx
	}
	switch {
	case tx.mined:
		return bscrpc.TxStateMined, &bscrpc.TransferResult{TxHash: tx.hash, BlockNumber: tx.block, Success: tx.success}, nil
	case tx.broadcast:
		return bscrpc.TxStatePending, nil, nil
	case f.onchain > tx.nonce:
		return bscrpc.TxStateDropped, nil, nil
	default:
		return bscrpc.TxStateUnknown, nil, nil
	}
}

// ResetNonce resynchronizes with the node: the next nonce follows the highest known transaction
func (f *fakeChain) ResetNonce() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	next := f.onchain
	for _, tx := range f.txs {
		if tx.broadcast && tx.nonce >= next {
			next = tx.nonce + 1
		}
	}
	f.nonce = next
}

func (f *fakeChain) Transfer(context.Context, string, string, string) (*bscrpc.TransferResult, error) {
	return nil, errors.New("not used by the orchestrator")
}

type mockNotifier struct {
	mock.Mock
}

func newMockNotifier() *mockNotifier {
	n := &mockNotifier{}
	n.On("OrderCreated", mock.Anything, mock.Anything).Return().Maybe()
	n.On("OrderTransitioned", mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	n.On("OrderSettled", mock.Anything, mock.Anything).Return().Maybe()
	n.On("SettlementBlocked", mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	return n
}

func (m *mockNotifier) OrderCreated(ctx context.Context, order model.Order) {
	m.Called(ctx, order)
}

func (m *mockNotifier) OrderTransitioned(ctx context.Context, order model.Order, actor model.Actor) {
	m.Called(ctx, order, actor)
}

func (m *mockNotifier) OrderSettled(ctx context.Context, order model.Order) {
	m.Called(ctx, order)
}

func (m *mockNotifier) SettlementBlocked(ctx context.Context, order model.Order, reason string) {
	m.Called(ctx, order, reason)
}

func (m *mockNotifier) StaleDigest(ctx context.Context, pending []model.Order, approved []model.Order) error {
	return m.Called(ctx, pending, approved).Error(0)
}
