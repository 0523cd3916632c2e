package http

import (
	"github.com/gin-gonic/gin"

	"github.com/egpaydcx/egpay-backend/internal/handler"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

func loadV1Routes(r *gin.Engine, h *handler.Handler, appConfig *config.AppConfig, logger *logger.Logger) {
	v1 := r.Group("/api/v1")

	intakeLimiter := newIPRateLimiter(appConfig.ApiServer.IntakeRateLimit, appConfig.ApiServer.IntakeBurst)
	orders := v1.Group("/orders", intakeLimiter.Middleware(logger))
	{
		orders.POST("", h.OrderHandler.Create)
		orders.POST("/quote", h.OrderHandler.Quote)
		orders.GET("/status", h.OrderHandler.Status)
	}

	admin := v1.Group("/admin", adminAuth(appConfig.ApiServer.AdminSecret, logger))
	{
		admin.GET("/orders", h.AdminHandler.ListOrders)
		admin.GET("/orders/:id", h.AdminHandler.GetOrder)
		admin.POST("/orders/approve", h.AdminHandler.Approve)
		admin.POST("/orders/reject", h.AdminHandler.Reject)
		admin.POST("/orders/execute", h.AdminHandler.Execute)
		admin.POST("/orders/fail", h.AdminHandler.Fail)
		admin.GET("/hot-wallet", h.AdminHandler.HotWallet)
	}

	v1.POST("/telegram/webhook", h.TelegramHandler.Webhook)

	health := v1.Group("/health")
	{
		health.GET("/db", h.HealthHandler.Database)
		health.GET("/external", h.HealthHandler.External)
		health.GET("/jobs", h.HealthHandler.Jobs)
	}

	r.GET("/healthz", h.HealthHandler.Basic)
	r.GET("/metrics", h.MetricsHandler.Handler())
}
