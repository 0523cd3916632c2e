package monitoring

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker"

	"github.com/egpaydcx/egpay-backend/internal/bscrpc"
	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

const bscRPCName = "bsc_rpc"

// CircuitBreakerBscRPC wraps bscrpc.IBscRPC with circuit breaker functionality
type CircuitBreakerBscRPC struct {
	wrapped        bscrpc.IBscRPC
	circuitBreaker *gobreaker.CircuitBreaker
	metrics        *ExternalAPIMetrics
	logger         *logger.Logger
	timeoutConfig  TimeoutConfig
}

// NewCircuitBreakerBscRPC creates a new circuit breaker wrapper for the BSC RPC client
func NewCircuitBreakerBscRPC(wrapped bscrpc.IBscRPC, config CircuitBreakerConfig, metrics *ExternalAPIMetrics, logger *logger.Logger) *CircuitBreakerBscRPC {
	return NewCircuitBreakerBscRPCWithTimeout(wrapped, config, DefaultTimeoutConfig, metrics, logger)
}

// NewCircuitBreakerBscRPCWithTimeout creates a new circuit breaker wrapper with custom timeout config
func NewCircuitBreakerBscRPCWithTimeout(wrapped bscrpc.IBscRPC, config CircuitBreakerConfig, timeoutConfig TimeoutConfig, metrics *ExternalAPIMetrics, logger *logger.Logger) *CircuitBreakerBscRPC {
	cb := &CircuitBreakerBscRPC{
		wrapped:       wrapped,
		metrics:       metrics,
		logger:        logger,
		timeoutConfig: timeoutConfig,
	}

	settings := gobreaker.Settings{
		Name:        bscRPCName,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.ConsecutiveFailureThreshold)
		},
		// caller mistakes say nothing about the node's health
		IsSuccessful: func(err error) bool {
			return err == nil || isDomainError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state change", map[string]string{
				"service": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.UpdateCircuitBreakerState(bscRPCName, to)
		},
	}

	cb.circuitBreaker = gobreaker.NewCircuitBreaker(settings)
	metrics.UpdateCircuitBreakerState(bscRPCName, gobreaker.StateClosed)
	return cb
}

// execute runs fn through the breaker with a per-operation deadline and records metrics
func (cb *CircuitBreakerBscRPC) execute(ctx context.Context, operation string, timeout time.Duration, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return cb.circuitBreaker.Execute(func() (interface{}, error) {
		start := time.Now()

		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		result, err := fn(callCtx)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil {
			status = "error"
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				cb.metrics.RecordTimeout(bscRPCName, operation)
			}
			cb.logError(operation, duration, err)
		}
		cb.metrics.RecordAPICall(bscRPCName, operation, status, duration)
		return result, err
	})
}

func (cb *CircuitBreakerBscRPC) State() gobreaker.State {
	return cb.circuitBreaker.State()
}

func (cb *CircuitBreakerBscRPC) HotWalletAddress() common.Address {
	return cb.wrapped.HotWalletAddress()
}

func (cb *CircuitBreakerBscRPC) Ping(ctx context.Context) (uint64, error) {
	result, err := cb.execute(ctx, "health_check", cb.timeoutConfig.HealthCheckTimeout, func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.Ping(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

func (cb *CircuitBreakerBscRPC) Decimals(ctx context.Context, symbol string) (uint8, error) {
	result, err := cb.execute(ctx, "decimals", cb.timeoutConfig.RequestTimeout, func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.Decimals(ctx, symbol)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint8), nil
}

func (cb *CircuitBreakerBscRPC) BalanceOf(ctx context.Context, symbol string, owner string) (*model.Web3BigInt, error) {
	result, err := cb.execute(ctx, "balance_of", cb.timeoutConfig.RequestTimeout, func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.BalanceOf(ctx, symbol, owner)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.Web3BigInt), nil
}

func (cb *CircuitBreakerBscRPC) HotWalletBalance(ctx context.Context, symbol string) (*model.Web3BigInt, error) {
	result, err := cb.execute(ctx, "hot_wallet_balance", cb.timeoutConfig.RequestTimeout, func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.HotWalletBalance(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}

	balance := result.(*model.Web3BigInt)
	if f, err := strconv.ParseFloat(balance.Human(), 64); err == nil {
		cb.metrics.RecordHotWalletBalance(strings.ToUpper(symbol), f)
	}
	return balance, nil
}

func (cb *CircuitBreakerBscRPC) PrepareTransfer(ctx context.Context, symbol string, to string, amount *model.Web3BigInt) (*bscrpc.SignedTransfer, error) {
	result, err := cb.execute(ctx, "prepare_transfer", cb.timeoutConfig.RequestTimeout, func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.PrepareTransfer(ctx, symbol, to, amount)
	})
	if err != nil {
		return nil, err
	}
	return result.(*bscrpc.SignedTransfer), nil
}

// Broadcast is not gated by the breaker so an already recorded transfer can always be resent.
func (cb *CircuitBreakerBscRPC) Broadcast(ctx context.Context, rawTx string) error {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, cb.timeoutConfig.BroadcastTimeout)
	defer cancel()

	err := cb.wrapped.Broadcast(callCtx, rawTx)
	status := "success"
	if err != nil {
		status = "error"
		cb.logError("broadcast", time.Since(start).Seconds(), err)
	}
	cb.metrics.RecordAPICall(bscRPCName, "broadcast", status, time.Since(start).Seconds())
	return err
}

// WaitReceipt is bounded by the caller's context only.
func (cb *CircuitBreakerBscRPC) WaitReceipt(ctx context.Context, rawTx string) (*bscrpc.TransferResult, error) {
	start := time.Now()
	result, err := cb.wrapped.WaitReceipt(ctx, rawTx)
	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			cb.metrics.RecordTimeout(bscRPCName, "wait_receipt")
		}
	}
	cb.metrics.RecordAPICall(bscRPCName, "wait_receipt", status, time.Since(start).Seconds())
	return result, err
}

func (cb *CircuitBreakerBscRPC) TransferStatus(ctx context.Context, rawTx string) (bscrpc.TxState, *bscrpc.TransferResult, error) {
	type statusResult struct {
		state  bscrpc.TxState
		result *bscrpc.TransferResult
	}

	result, err := cb.execute(ctx, "transfer_status", cb.timeoutConfig.RequestTimeout, func(ctx context.Context) (interface{}, error) {
		state, res, err := cb.wrapped.TransferStatus(ctx, rawTx)
		if err != nil {
			return nil, err
		}
		return statusResult{state: state, result: res}, nil
	})
	if err != nil {
		return "", nil, err
	}

	sr := result.(statusResult)
	return sr.state, sr.result, nil
}

func (cb *CircuitBreakerBscRPC) ResetNonce() {
	cb.wrapped.ResetNonce()
}

func (cb *CircuitBreakerBscRPC) Transfer(ctx context.Context, symbol string, to string, humanAmount string) (*bscrpc.TransferResult, error) {
	start := time.Now()
	result, err := cb.wrapped.Transfer(ctx, symbol, to, humanAmount)
	status := "success"
	if err != nil {
		status = "error"
		cb.logError("transfer", time.Since(start).Seconds(), err)
	}
	cb.metrics.RecordAPICall(bscRPCName, "transfer", status, time.Since(start).Seconds())
	return result, err
}

// Helper functions

func (cb *CircuitBreakerBscRPC) logError(operation string, duration float64, err error) {
	cb.logger.Error("External API call failed", map[string]string{
		"service":    bscRPCName,
		"operation":  operation,
		"duration":   strconv.FormatFloat(duration, 'f', 3, 64),
		"error":      err.Error(),
		"error_type": string(classifyError(err)),
		"cb_state":   cb.circuitBreaker.State().String(),
	})
}

func isDomainError(err error) bool {
	return errors.Is(err, bscrpc.ErrUnknownToken) ||
		errors.Is(err, bscrpc.ErrInvalidAddress) ||
		errors.Is(err, bscrpc.ErrNoHotWallet) ||
		errors.Is(err, bscrpc.ErrInvalidRawTx) ||
		errors.Is(err, bscrpc.ErrTransactionFailed) ||
		errors.Is(err, model.ErrInvalidAmount) ||
		errors.Is(err, model.ErrTooManyDecimals) ||
		errors.Is(err, context.Canceled)
}

// classifyError classifies errors into different types for metrics and logging
func classifyError(err error) APIErrorType {
	if err == nil {
		return ""
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded") ||
		strings.Contains(errMsg, "context canceled") {
		return ErrorTypeTimeout
	}

	if strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "connection") ||
		strings.Contains(errMsg, "unreachable") ||
		strings.Contains(errMsg, "dns") {
		return ErrorTypeNetworkError
	}

	if strings.Contains(errMsg, "500") ||
		strings.Contains(errMsg, "502") ||
		strings.Contains(errMsg, "503") ||
		strings.Contains(errMsg, "504") ||
		strings.Contains(errMsg, "internal server error") ||
		strings.Contains(errMsg, "bad gateway") ||
		strings.Contains(errMsg, "service unavailable") {
		return ErrorTypeServerError
	}

	if strings.Contains(errMsg, "400") ||
		strings.Contains(errMsg, "401") ||
		strings.Contains(errMsg, "403") ||
		strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "bad request") ||
		strings.Contains(errMsg, "unauthorized") ||
		strings.Contains(errMsg, "rate limit") ||
		strings.Contains(errMsg, "nonce too low") ||
		strings.Contains(errMsg, "insufficient funds") {
		return ErrorTypeClientError
	}

	return ErrorTypeUnknown
}

// ValidateCircuitBreakerConfig validates circuit breaker configuration
func ValidateCircuitBreakerConfig(config CircuitBreakerConfig) error {
	if config.MaxRequests == 0 {
		return fmt.Errorf("max_requests must be greater than 0")
	}

	if config.ConsecutiveFailureThreshold <= 0 {
		return fmt.Errorf("consecutive_failure_threshold must be greater than 0")
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	if config.Interval < 0 {
		return fmt.Errorf("interval must be non-negative")
	}

	return nil
}
