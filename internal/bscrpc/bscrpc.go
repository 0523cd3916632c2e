package bscrpc

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	pkgerrors "github.com/pkg/errors"

	"github.com/egpaydcx/egpay-backend/contracts/erc20"
	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

type BscRPC struct {
	appConfig *config.AppConfig
	logger    *logger.Logger

	backend   Backend
	chainID   *big.Int
	key       *ecdsa.PrivateKey
	hotWallet common.Address

	tokens   map[string]*erc20.Erc20
	decimals sync.Map
	nonces   nonceManager
}

func New(appConfig *config.AppConfig, logger *logger.Logger) (IBscRPC, error) {
	client, err := ethclient.Dial(appConfig.Blockchain.RPCEndpoint)
	if err != nil {
		return nil, err
	}

	return NewWithBackend(appConfig, logger, client)
}

func NewWithBackend(appConfig *config.AppConfig, logger *logger.Logger, backend Backend) (*BscRPC, error) {
	b := &BscRPC{
		appConfig: appConfig,
		logger:    logger,
		backend:   backend,
		chainID:   big.NewInt(appConfig.Blockchain.ChainID),
		tokens:    map[string]*erc20.Erc20{},
	}

	if raw := strings.TrimPrefix(strings.TrimSpace(appConfig.Blockchain.HotWalletPrivateKey), "0x"); raw != "" {
		key, err := crypto.HexToECDSA(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "parse hot wallet key")
		}
		b.key = key
		b.hotWallet = crypto.PubkeyToAddress(key.PublicKey)
	}

	for symbol, addr := range appConfig.Blockchain.TokenContracts {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid contract address for %s: %s", symbol, addr)
		}
		b.tokens[normalizeSymbol(symbol)] = erc20.NewErc20(common.HexToAddress(addr), backend)
	}

	return b, nil
}

func (b *BscRPC) HotWalletAddress() common.Address {
	return b.hotWallet
}

func (b *BscRPC) Ping(ctx context.Context) (uint64, error) {
	return b.backend.BlockNumber(ctx)
}

func (b *BscRPC) Decimals(ctx context.Context, symbol string) (uint8, error) {
	symbol = normalizeSymbol(symbol)
	if cached, ok := b.decimals.Load(symbol); ok {
		return cached.(uint8), nil
	}

	token, err := b.token(symbol)
	if err != nil {
		return 0, err
	}

	decimals, err := token.Decimals(&bind.CallOpts{Context: ctx})
	if err != nil {
		b.logger.Error("[Decimals][Decimals]", map[string]string{
			"symbol": symbol,
			"error":  err.Error(),
		})
		return 0, err
	}

	b.decimals.Store(symbol, decimals)
	return decimals, nil
}

func (b *BscRPC) BalanceOf(ctx context.Context, symbol string, owner string) (*model.Web3BigInt, error) {
	if !common.IsHexAddress(owner) {
		return nil, ErrInvalidAddress
	}

	token, err := b.token(symbol)
	if err != nil {
		return nil, err
	}

	decimals, err := b.Decimals(ctx, symbol)
	if err != nil {
		return nil, err
	}

	balance, err := token.BalanceOf(&bind.CallOpts{Context: ctx}, common.HexToAddress(owner))
	if err != nil {
		b.logger.Error("[BalanceOf][BalanceOf]", map[string]string{
			"symbol": symbol,
			"owner":  owner,
			"error":  err.Error(),
		})
		return nil, err
	}

	return model.NewWeb3BigInt(balance, int(decimals)), nil
}

func (b *BscRPC) HotWalletBalance(ctx context.Context, symbol string) (*model.Web3BigInt, error) {
	if b.key == nil {
		return nil, ErrNoHotWallet
	}
	return b.BalanceOf(ctx, symbol, b.hotWallet.Hex())
}

func (b *BscRPC) PrepareTransfer(ctx context.Context, symbol string, to string, amount *model.Web3BigInt) (*SignedTransfer, error) {
	if b.key == nil {
		return nil, ErrNoHotWallet
	}
	if !common.IsHexAddress(to) {
		return nil, ErrInvalidAddress
	}

	token, err := b.token(symbol)
	if err != nil {
		return nil, err
	}

	gasPrice, err := b.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "suggest gas price")
	}

	nonce, err := b.nonces.Next(ctx, b.backend, b.hotWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "allocate nonce")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(b.key, b.chainID)
	if err != nil {
		b.nonces.Reset()
		return nil, err
	}
	opts.Context = ctx
	opts.Nonce = new(big.Int).SetUint64(nonce)
	opts.GasPrice = gasPrice
	opts.GasLimit = b.appConfig.Blockchain.GasLimit
	opts.NoSend = true

	tx, err := token.Transfer(opts, common.HexToAddress(to), amount.BigInt())
	if err != nil {
		b.nonces.Reset()
		b.logger.Error("[PrepareTransfer][Transfer]", map[string]string{
			"symbol": symbol,
			"to":     to,
			"amount": amount.Value,
			"error":  err.Error(),
		})
		return nil, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		b.nonces.Reset()
		return nil, err
	}

	b.logger.Info("[PrepareTransfer] transfer signed", map[string]string{
		"symbol": symbol,
		"to":     to,
		"amount": amount.Value,
		"nonce":  fmt.Sprintf("%d", nonce),
		"txHash": tx.Hash().Hex(),
	})

	return &SignedTransfer{
		TxHash: tx.Hash().Hex(),
		RawTx:  hexutil.Encode(raw),
		Nonce:  nonce,
		Token:  normalizeSymbol(symbol),
		To:     to,
		Amount: amount,
	}, nil
}

func (b *BscRPC) Broadcast(ctx context.Context, rawTx string) error {
	tx, err := decodeRawTx(rawTx)
	if err != nil {
		return err
	}

	err = b.backend.SendTransaction(ctx, tx)
	if err != nil && !isAlreadyKnown(err) {
		b.logger.Error("[Broadcast][SendTransaction]", map[string]string{
			"txHash": tx.Hash().Hex(),
			"error":  err.Error(),
		})
		return err
	}

	return nil
}

func (b *BscRPC) WaitReceipt(ctx context.Context, rawTx string) (*TransferResult, error) {
	tx, err := decodeRawTx(rawTx)
	if err != nil {
		return nil, err
	}

	receipt, err := bind.WaitMined(ctx, b.backend, tx)
	if err != nil {
		return nil, err
	}

	return resultFromReceipt(tx.Hash(), receipt), nil
}

func (b *BscRPC) TransferStatus(ctx context.Context, rawTx string) (TxState, *TransferResult, error) {
	tx, err := decodeRawTx(rawTx)
	if err != nil {
		return "", nil, err
	}

	state, result, err := b.receiptState(ctx, tx)
	if err != nil || state != "" {
		return state, result, err
	}

	_, _, err = b.backend.TransactionByHash(ctx, tx.Hash())
	if err == nil {
		return TxStatePending, nil, nil
	}
	if !errors.Is(err, ethereum.NotFound) {
		return "", nil, err
	}

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return "", nil, ErrInvalidRawTx
	}

	confirmed, err := b.backend.NonceAt(ctx, from, nil)
	if err != nil {
		return "", nil, err
	}
	if confirmed <= tx.Nonce() {
		return TxStateUnknown, nil, nil
	}

	// the nonce is used: make sure it was not this transaction landing in between
	state, result, err = b.receiptState(ctx, tx)
	if err != nil || state != "" {
		return state, result, err
	}
	return TxStateDropped, nil, nil
}

func (b *BscRPC) ResetNonce() {
	b.nonces.Reset()
}

func (b *BscRPC) Transfer(ctx context.Context, symbol string, to string, humanAmount string) (*TransferResult, error) {
	decimals, err := b.Decimals(ctx, symbol)
	if err != nil {
		return nil, err
	}

	amount, err := model.ParseUnits(humanAmount, int(decimals))
	if err != nil {
		return nil, err
	}

	signed, err := b.PrepareTransfer(ctx, symbol, to, amount)
	if err != nil {
		return nil, err
	}

	if err := b.Broadcast(ctx, signed.RawTx); err != nil {
		b.nonces.Reset()
		return nil, err
	}

	result, err := b.WaitReceipt(ctx, signed.RawTx)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return result, ErrTransactionFailed
	}
	return result, nil
}

func (b *BscRPC) receiptState(ctx context.Context, tx *types.Transaction) (TxState, *TransferResult, error) {
	receipt, err := b.backend.TransactionReceipt(ctx, tx.Hash())
	if err == nil && receipt != nil {
		return TxStateMined, resultFromReceipt(tx.Hash(), receipt), nil
	}
	if err != nil && !errors.Is(err, ethereum.NotFound) {
		return "", nil, err
	}
	return "", nil, nil
}

func (b *BscRPC) token(symbol string) (*erc20.Erc20, error) {
	token, ok := b.tokens[normalizeSymbol(symbol)]
	if !ok {
		return nil, pkgerrors.Wrap(ErrUnknownToken, symbol)
	}
	return token, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func decodeRawTx(rawTx string) (*types.Transaction, error) {
	data, err := hexutil.Decode(rawTx)
	if err != nil {
		return nil, ErrInvalidRawTx
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(data); err != nil {
		return nil, ErrInvalidRawTx
	}
	return tx, nil
}

func resultFromReceipt(hash common.Hash, receipt *types.Receipt) *TransferResult {
	result := &TransferResult{
		TxHash:  hash.Hex(),
		Success: receipt.Status == types.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Int64()
	}
	return result
}

func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}
