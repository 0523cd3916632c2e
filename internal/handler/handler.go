package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/egpaydcx/egpay-backend/internal/bscrpc"
	"github.com/egpaydcx/egpay-backend/internal/controller"
	"github.com/egpaydcx/egpay-backend/internal/handler/admin"
	"github.com/egpaydcx/egpay-backend/internal/handler/health"
	"github.com/egpaydcx/egpay-backend/internal/handler/metrics"
	"github.com/egpaydcx/egpay-backend/internal/handler/order"
	telegramHandler "github.com/egpaydcx/egpay-backend/internal/handler/telegram"
	"github.com/egpaydcx/egpay-backend/internal/intake"
	"github.com/egpaydcx/egpay-backend/internal/monitoring"
	"github.com/egpaydcx/egpay-backend/internal/telegram"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

type Handler struct {
	OrderHandler    order.IHandler
	AdminHandler    admin.IHandler
	TelegramHandler telegramHandler.IHandler
	HealthHandler   health.IHealthHandler
	MetricsHandler  *metrics.MetricsHandler
}

func New(appConfig *config.AppConfig, logger *logger.Logger,
	intakeSvc intake.IIntake,
	ctrl controller.IController,
	tgClient telegram.IClient,
	chain bscrpc.IBscRPC,
	db *gorm.DB,
	metricsRegistry *prometheus.Registry,
	business *monitoring.BusinessMetricsRecorder,
	jobStatusManager *monitoring.JobStatusManager) *Handler {
	return &Handler{
		OrderHandler:    order.New(intakeSvc, logger),
		AdminHandler:    admin.New(ctrl, logger),
		TelegramHandler: telegramHandler.New(ctrl, tgClient, appConfig.Telegram, business, logger),
		HealthHandler:   health.New(appConfig, logger, db, chain, jobStatusManager),
		MetricsHandler:  metrics.NewMetricsHandler(metricsRegistry),
	}
}
