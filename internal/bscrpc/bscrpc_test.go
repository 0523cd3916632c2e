package bscrpc

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egpaydcx/egpay-backend/contracts/erc20"
	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/types/environments"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

const (
	testKey   = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	tokenAddr = "0x1111111111111111111111111111111111111111"
	payout    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

// fakeBackend implements the calls the client makes; anything else panics.
type fakeBackend struct {
	Backend

	mu           sync.Mutex
	pendingNonce uint64
	confirmed    uint64
	receipts     map[common.Hash]*types.Receipt
	mempool      map[common.Hash]bool
	sent         []*types.Transaction
	sendErr      error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		receipts: map[common.Hash]*types.Receipt{},
		mempool:  map[common.Hash]bool{},
	}
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingNonce, nil
}

func (f *fakeBackend) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmed, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	f.mempool[tx.Hash()] = true
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mempool[hash] {
		return nil, true, nil
	}
	return nil, false, ethereum.NotFound
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return 42, nil
}

func (f *fakeBackend) mine(hash common.Hash, status uint64, block int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.mempool, hash)
	f.receipts[hash] = &types.Receipt{Status: status, BlockNumber: big.NewInt(block), TxHash: hash}
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: environments.Test,
		Blockchain: config.BlockchainConfig{
			ChainID:             97,
			HotWalletPrivateKey: "0x" + testKey,
			TokenContracts:      map[string]string{"EGLIFE": tokenAddr},
			GasLimit:            80000,
		},
	}
}

func newTestClient(t *testing.T, backend *fakeBackend) *BscRPC {
	t.Helper()
	c, err := NewWithBackend(testConfig(), logger.New(environments.Test), backend)
	require.NoError(t, err)
	return c
}

func TestNewWithBackend(t *testing.T) {
	c := newTestClient(t, newFakeBackend())

	key, _ := crypto.HexToECDSA(testKey)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), c.HotWalletAddress())

	cfg := testConfig()
	cfg.Blockchain.TokenContracts = map[string]string{"BAD": "not-an-address"}
	_, err := NewWithBackend(cfg, logger.New(environments.Test), newFakeBackend())
	assert.Error(t, err)
}

func TestPrepareTransfer(t *testing.T) {
	backend := newFakeBackend()
	backend.pendingNonce = 7
	c := newTestClient(t, backend)
	ctx := context.Background()

	amount := &model.Web3BigInt{Value: "1000000000000000000000", Decimal: 18}
	signed, err := c.PrepareTransfer(ctx, "eglife", payout, amount)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), signed.Nonce)
	assert.Equal(t, "EGLIFE", signed.Token)
	assert.Empty(t, backend.sent, "prepare must not broadcast")

	tx, err := decodeRawTx(signed.RawTx)
	require.NoError(t, err)
	assert.Equal(t, signed.TxHash, tx.Hash().Hex())
	assert.Equal(t, common.HexToAddress(tokenAddr), *tx.To())
	assert.Equal(t, uint64(80000), tx.Gas())
	assert.Equal(t, int64(97), tx.ChainId().Int64())

	to, value, err := erc20.UnpackTransfer(tx.Data())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(payout), to)
	assert.Equal(t, amount.Value, value.String())

	second, err := c.PrepareTransfer(ctx, "EGLIFE", payout, amount)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), second.Nonce)
}

func TestPrepareTransfer_Errors(t *testing.T) {
	c := newTestClient(t, newFakeBackend())
	ctx := context.Background()
	amount := &model.Web3BigInt{Value: "1", Decimal: 18}

	_, err := c.PrepareTransfer(ctx, "UNKNOWN", payout, amount)
	assert.ErrorIs(t, err, ErrUnknownToken)

	_, err = c.PrepareTransfer(ctx, "EGLIFE", "0x123", amount)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	cfg := testConfig()
	cfg.Blockchain.HotWalletPrivateKey = ""
	readOnly, err := NewWithBackend(cfg, logger.New(environments.Test), newFakeBackend())
	require.NoError(t, err)
	_, err = readOnly.PrepareTransfer(ctx, "EGLIFE", payout, amount)
	assert.ErrorIs(t, err, ErrNoHotWallet)
	_, err = readOnly.HotWalletBalance(ctx, "EGLIFE")
	assert.ErrorIs(t, err, ErrNoHotWallet)
}

func TestBroadcast(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(t, backend)
	ctx := context.Background()

	signed, err := c.PrepareTransfer(ctx, "EGLIFE", payout, &model.Web3BigInt{Value: "5", Decimal: 18})
	require.NoError(t, err)

	require.NoError(t, c.Broadcast(ctx, signed.RawTx))
	assert.Len(t, backend.sent, 1)

	backend.sendErr = errors.New("already known")
	assert.NoError(t, c.Broadcast(ctx, signed.RawTx))

	backend.sendErr = errors.New("insufficient funds for gas * price + value")
	assert.Error(t, c.Broadcast(ctx, signed.RawTx))

	assert.ErrorIs(t, c.Broadcast(ctx, "0xzz"), ErrInvalidRawTx)
}

func TestTransferStatus(t *testing.T) {
	ctx := context.Background()
	amount := &model.Web3BigInt{Value: "5", Decimal: 18}

	t.Run("unknown to node with free nonce", func(t *testing.T) {
		backend := newFakeBackend()
		c := newTestClient(t, backend)
		signed, err := c.PrepareTransfer(ctx, "EGLIFE", payout, amount)
		require.NoError(t, err)

		state, result, err := c.TransferStatus(ctx, signed.RawTx)
		require.NoError(t, err)
		assert.Equal(t, TxStateUnknown, state)
		assert.Nil(t, result)
	})

	t.Run("pending in mempool", func(t *testing.T) {
		backend := newFakeBackend()
		c := newTestClient(t, backend)
		signed, err := c.PrepareTransfer(ctx, "EGLIFE", payout, amount)
		require.NoError(t, err)
		require.NoError(t, c.Broadcast(ctx, signed.RawTx))

		state, _, err := c.TransferStatus(ctx, signed.RawTx)
		require.NoError(t, err)
		assert.Equal(t, TxStatePending, state)
	})

	t.Run("mined", func(t *testing.T) {
		backend := newFakeBackend()
		c := newTestClient(t, backend)
		signed, err := c.PrepareTransfer(ctx, "EGLIFE", payout, amount)
		require.NoError(t, err)
		backend.mine(common.HexToHash(signed.TxHash), types.ReceiptStatusSuccessful, 1234)

		state, result, err := c.TransferStatus(ctx, signed.RawTx)
		require.NoError(t, err)
		assert.Equal(t, TxStateMined, state)
		assert.True(t, result.Success)
		assert.Equal(t, int64(1234), result.BlockNumber)
		assert.Equal(t, signed.TxHash, result.TxHash)
	})

	t.Run("dropped when nonce consumed elsewhere", func(t *testing.T) {
		backend := newFakeBackend()
		c := newTestClient(t, backend)
		signed, err := c.PrepareTransfer(ctx, "EGLIFE", payout, amount)
		require.NoError(t, err)
		backend.confirmed = signed.Nonce + 1

		state, _, err := c.TransferStatus(ctx, signed.RawTx)
		require.NoError(t, err)
		assert.Equal(t, TxStateDropped, state)
	})
}

func TestWaitReceipt(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(t, backend)
	ctx := context.Background()

	signed, err := c.PrepareTransfer(ctx, "EGLIFE", payout, &model.Web3BigInt{Value: "5", Decimal: 18})
	require.NoError(t, err)
	backend.mine(common.HexToHash(signed.TxHash), types.ReceiptStatusFailed, 99)

	result, err := c.WaitReceipt(ctx, signed.RawTx)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, int64(99), result.BlockNumber)
}

func TestDecodeRawTx(t *testing.T) {
	_, err := decodeRawTx("0x01")
	assert.ErrorIs(t, err, ErrInvalidRawTx)

	key, _ := crypto.HexToECDSA(testKey)
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, Gas: 21000, GasPrice: big.NewInt(1)})
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(97)), key)
	require.NoError(t, err)
	raw, err := signedTx.MarshalBinary()
	require.NoError(t, err)

	decoded, err := decodeRawTx(hexutil.Encode(raw))
	require.NoError(t, err)
	assert.Equal(t, signedTx.Hash(), decoded.Hash())
}
