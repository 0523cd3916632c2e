package server

import (
	"context"
	"errors"
	nethttp "net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/egpaydcx/egpay-backend/internal/bscrpc"
	"github.com/egpaydcx/egpay-backend/internal/controller"
	"github.com/egpaydcx/egpay-backend/internal/handler"
	"github.com/egpaydcx/egpay-backend/internal/handler/metrics"
	"github.com/egpaydcx/egpay-backend/internal/intake"
	"github.com/egpaydcx/egpay-backend/internal/jobs"
	"github.com/egpaydcx/egpay-backend/internal/monitoring"
	"github.com/egpaydcx/egpay-backend/internal/notifier"
	"github.com/egpaydcx/egpay-backend/internal/store"
	"github.com/egpaydcx/egpay-backend/internal/store/pgstore"
	"github.com/egpaydcx/egpay-backend/internal/telegram"
	"github.com/egpaydcx/egpay-backend/internal/transport/http"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
	"github.com/egpaydcx/egpay-backend/internal/utils/vault"
	"github.com/egpaydcx/egpay-backend/internal/utils/webhook"
)

const (
	jobStatusInterval = time.Minute
	shutdownTimeout   = 30 * time.Second
)

func Init() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := loadHotWalletKey(ctx, appConfig, logger); err != nil {
		logger.Fatal("[server.Init][loadHotWalletKey] failed to read hot wallet key from vault", map[string]string{
			"error": err.Error(),
		})
	}

	db := pgstore.New(appConfig, logger)
	s := store.New(db)

	registry := metrics.NewRegistry()
	apiMetrics := monitoring.NewExternalAPIMetrics()
	apiMetrics.MustRegister(registry)
	httpMetrics := monitoring.NewHTTPMetrics()
	httpMetrics.MustRegister(registry)
	jobMetrics := monitoring.NewBackgroundJobMetrics()
	jobMetrics.MustRegister(registry)
	business := monitoring.NewBusinessMetricsRecorder(httpMetrics)

	rpc, err := bscrpc.New(appConfig, logger)
	if err != nil {
		logger.Fatal("[server.Init][bscrpc.New] failed to init chain client", map[string]string{
			"error": err.Error(),
		})
	}
	chain := monitoring.NewCircuitBreakerBscRPC(rpc, monitoring.CircuitBreakerConfigs["bsc_rpc"], apiMetrics, logger)

	tgClient := telegram.New(appConfig.Telegram, logger)
	notify := notifier.New(tgClient, logger, business)

	resolveTokenDecimals(ctx, &appConfig.Pricing, chain, logger)
	pricer, err := intake.NewPricer(appConfig.Pricing)
	if err != nil {
		logger.Fatal("[server.Init][intake.NewPricer] invalid pricing config", map[string]string{
			"error": err.Error(),
		})
	}
	intakeSvc := intake.New(s, pricer, notify, logger, business)
	ctrl := controller.New(s, chain, notify, logger, business, appConfig)

	jsm := monitoring.NewJobStatusManager(logger, jobMetrics)
	go jsm.Run(ctx, jobStatusInterval)

	scheduler, err := jobs.New(appConfig.Jobs, s, notify, jsm, jobMetrics, webhook.New(logger), logger)
	if err != nil {
		logger.Fatal("[server.Init][jobs.New] failed to schedule jobs", map[string]string{
			"error": err.Error(),
		})
	}
	scheduler.Start()

	h := handler.New(appConfig, logger, intakeSvc, ctrl, tgClient, chain, db, registry, business, jsm)
	engine := http.NewHttpServer(appConfig, logger, h, httpMetrics)

	srv := &nethttp.Server{
		Addr:    ":" + appConfig.ApiServer.Port,
		Handler: engine,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("[server.Init] http server listening", map[string]string{
			"port": appConfig.ApiServer.Port,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("[server.Init] shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("[server.Init][Wait] http server stopped with error", map[string]string{
			"error": err.Error(),
		})
	}

	select {
	case <-scheduler.Stop().Done():
	case <-time.After(shutdownTimeout):
		logger.Warn("[server.Init] jobs still running at shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// resolveTokenDecimals fills missing per-coin decimals from the chain. Configured values win.
func resolveTokenDecimals(ctx context.Context, pricing *config.PricingConfig, chain bscrpc.IBscRPC, logger *logger.Logger) {
	if pricing.Decimals == nil {
		pricing.Decimals = map[string]int32{}
	}
	for coin := range pricing.Rates {
		symbol := strings.ToUpper(coin)
		onChain, err := chain.Decimals(ctx, symbol)
		if err != nil {
			logger.Warn("[server.resolveTokenDecimals][Decimals] lookup failed", map[string]string{
				"coin":  symbol,
				"error": err.Error(),
			})
			continue
		}
		configured, ok := pricing.Decimals[symbol]
		if !ok {
			pricing.Decimals[symbol] = int32(onChain)
			continue
		}
		if configured != int32(onChain) {
			logger.Warn("[server.resolveTokenDecimals] TOKEN_DECIMALS differs from chain", map[string]string{
				"coin":       symbol,
				"configured": strconv.Itoa(int(configured)),
				"chain":      strconv.Itoa(int(onChain)),
			})
		}
	}
}

// loadHotWalletKey fills the signing key from Vault when it is not set in the environment
func loadHotWalletKey(ctx context.Context, appConfig *config.AppConfig, logger *logger.Logger) error {
	if appConfig.Blockchain.HotWalletPrivateKey != "" || !appConfig.Vault.Enabled() {
		return nil
	}

	vc, err := vault.New(ctx, appConfig.Vault.Addr, appConfig.Vault.KVSecretPath, appConfig.Vault.Role)
	if err != nil {
		return err
	}

	key, err := vc.GetKV(ctx, appConfig.Vault.HotWalletKeyID)
	if err != nil {
		return err
	}

	appConfig.Blockchain.HotWalletPrivateKey = key
	logger.Info("[server.loadHotWalletKey] hot wallet key loaded from vault")
	return nil
}
