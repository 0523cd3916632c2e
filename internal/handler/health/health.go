package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"

	"github.com/egpaydcx/egpay-backend/internal/bscrpc"
	"github.com/egpaydcx/egpay-backend/internal/monitoring"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

// HealthHandler implements IHealthHandler interface
type HealthHandler struct {
	config           *config.AppConfig
	logger           *logger.Logger
	db               *gorm.DB
	chain            bscrpc.IBscRPC
	jobStatusManager *monitoring.JobStatusManager
}

// New creates a new health handler instance
func New(config *config.AppConfig, logger *logger.Logger, db *gorm.DB, chain bscrpc.IBscRPC, jobStatusManager *monitoring.JobStatusManager) IHealthHandler {
	return &HealthHandler{
		config:           config,
		logger:           logger,
		db:               db,
		chain:            chain,
		jobStatusManager: jobStatusManager,
	}
}

// Basic handles the basic health check endpoint (/healthz)
// @Summary Basic health check
// @Description Returns basic system availability status
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} BasicHealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Basic(c *gin.Context) {
	response := BasicHealthResponse{
		Message: "ok",
	}
	c.JSON(http.StatusOK, response)
}

// Database handles the database health check endpoint
// @Summary Database health check
// @Description Validates database connectivity and performance
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/v1/health/db [get]
func (h *HealthHandler) Database(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	// Get context safely
	ctx := context.Background()
	if c.Request != nil {
		ctx = c.Request.Context()
	}

	// Check database health
	dbCheck := h.checkDatabase(ctx)
	response.Checks["database"] = dbCheck
	response.DurationMs = time.Since(start).Milliseconds()

	// Determine overall status
	if dbCheck.Status == "healthy" {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
	} else {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

// External handles the external dependencies health check endpoint
// @Summary External dependencies health check
// @Description Validates chain RPC connectivity and hot wallet liquidity
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/v1/health/external [get]
func (h *HealthHandler) External(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	baseCtx := context.Background()
	if c.Request != nil {
		baseCtx = c.Request.Context()
	}
	ctx, cancel := context.WithTimeout(baseCtx, 10*time.Second)
	defer cancel()

	// Check external dependencies in parallel
	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		rpcCheck := h.checkChainRPC(ctx)
		mu.Lock()
		response.Checks["bsc_rpc"] = rpcCheck
		mu.Unlock()
	}()

	for _, coin := range h.coins() {
		wg.Add(1)
		go func(coin string) {
			defer wg.Done()
			walletCheck := h.checkHotWallet(ctx, coin)
			mu.Lock()
			response.Checks["hot_wallet_"+strings.ToLower(coin)] = walletCheck
			mu.Unlock()
		}(coin)
	}

	wg.Wait()
	response.DurationMs = time.Since(start).Milliseconds()

	allHealthy := true
	for _, check := range response.Checks {
		if check.Status != "healthy" {
			allHealthy = false
			break
		}
	}

	if allHealthy {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
	} else {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

// checkDatabase performs database health validation
func (h *HealthHandler) checkDatabase(ctx context.Context) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Metadata: make(map[string]interface{}),
	}

	if h.db == nil {
		check.Status = "unhealthy"
		check.Error = "database connection not available"
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		check.Status = "unhealthy"
		check.Error = fmt.Sprintf("failed to get underlying database: %v", err)
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		check.Status = "unhealthy"
		if pingCtx.Err() == context.DeadlineExceeded {
			check.Error = "timeout"
		} else {
			check.Error = err.Error()
		}
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	stats := sqlDB.Stats()

	check.Status = "healthy"
	check.Latency = time.Since(start).Milliseconds()
	check.Metadata["driver"] = "postgres"
	check.Metadata["connection_pool"] = map[string]interface{}{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"max_open":         stats.MaxOpenConnections,
	}

	return check
}

// checkChainRPC asks the node for its latest block
func (h *HealthHandler) checkChainRPC(ctx context.Context) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Metadata: make(map[string]interface{}),
	}

	if h.chain == nil {
		check.Status = "unhealthy"
		check.Error = "chain rpc not available"
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	block, err := h.chain.Ping(checkCtx)
	switch {
	case checkCtx.Err() == context.DeadlineExceeded:
		check.Status = "unhealthy"
		check.Error = "timeout"
	case err != nil:
		check.Status = "unhealthy"
		check.Error = err.Error()
	default:
		check.Status = "healthy"
		check.Metadata["block_number"] = block
		check.Metadata["hot_wallet"] = h.chain.HotWalletAddress().Hex()
		if h.config != nil {
			check.Metadata["chain_id"] = h.config.Blockchain.ChainID
		}
	}

	if breaker, ok := h.chain.(interface{ State() gobreaker.State }); ok {
		check.Metadata["circuit_breaker"] = breaker.State().String()
	}

	check.Latency = time.Since(start).Milliseconds()
	return check
}

// checkHotWallet reads the settlement wallet balance of one token. An empty wallet is degraded liquidity, not an outage.
func (h *HealthHandler) checkHotWallet(ctx context.Context, coin string) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Metadata: map[string]interface{}{"coin": coin},
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	balance, err := h.chain.HotWalletBalance(checkCtx, coin)
	if err != nil {
		check.Status = "unhealthy"
		check.Error = err.Error()
		if checkCtx.Err() == context.DeadlineExceeded {
			check.Error = "timeout"
		}
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	check.Status = "healthy"
	check.Metadata["balance"] = balance.Human()
	check.Metadata["empty"] = balance.BigInt().Sign() == 0
	check.Latency = time.Since(start).Milliseconds()
	return check
}

func (h *HealthHandler) coins() []string {
	if h.chain == nil || h.config == nil {
		return nil
	}

	coins := make([]string, 0, len(h.config.Blockchain.TokenContracts))
	for coin := range h.config.Blockchain.TokenContracts {
		coins = append(coins, coin)
	}
	sort.Strings(coins)
	return coins
}
