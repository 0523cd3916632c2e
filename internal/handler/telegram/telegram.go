package telegram

import (
	"context"
	"crypto/subtle"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/egpaydcx/egpay-backend/internal/controller"
	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/monitoring"
	tg "github.com/egpaydcx/egpay-backend/internal/telegram"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

// SecretHeader carries the secret_token registered with setWebhook
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const (
	callbackTTL  = 10 * time.Minute
	replyTimeout = 5 * time.Second

	msgReceived   = "Received ✅"
	msgNotAllowed = "❌ Not allowed."
)

type WebhookResponse struct {
	OK      bool `json:"ok"`
	Skipped bool `json:"skipped,omitempty"`
}

type handler struct {
	controller controller.IController
	client     tg.IClient
	cfg        config.TelegramConfig
	metrics    *monitoring.BusinessMetricsRecorder
	logger     *logger.Logger
	operators  map[int64]struct{}
	// callback ids already taken, so redelivered updates do nothing
	seen *cache.Cache
}

func New(controller controller.IController, client tg.IClient, cfg config.TelegramConfig, metrics *monitoring.BusinessMetricsRecorder, logger *logger.Logger) IHandler {
	operators := make(map[int64]struct{}, len(cfg.OperatorUserIDs))
	for _, id := range cfg.OperatorUserIDs {
		operators[id] = struct{}{}
	}

	return &handler{
		controller: controller,
		client:     client,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		operators:  operators,
		seen:       cache.New(callbackTTL, 2*callbackTTL),
	}
}

// Webhook godoc
// @Summary Telegram bot webhook
// @Description Receives operator taps on the approve/reject buttons. Always answers 200 so Telegram does not retry.
// @id telegramWebhook
// @Tags Telegram
// @Accept json
// @Produce json
// @Param X-Telegram-Bot-Api-Secret-Token header string false "Webhook secret"
// @Success 200 {object} WebhookResponse
// @Router /telegram/webhook [post]
func (h *handler) Webhook(c *gin.Context) {
	if h.client == nil {
		c.JSON(http.StatusOK, WebhookResponse{OK: true, Skipped: true})
		return
	}

	if !h.validSecret(c.GetHeader(SecretHeader)) {
		h.logger.Info("[telegram.Webhook] secret mismatch", map[string]string{
			"ip": c.ClientIP(),
		})
		c.JSON(http.StatusOK, WebhookResponse{OK: true})
		return
	}

	var update tg.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Info("[telegram.Webhook][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusOK, WebhookResponse{OK: true})
		return
	}

	if update.CallbackQuery != nil {
		// Telegram drops the connection on slow replies; the transition must still complete
		h.handleCallback(context.WithoutCancel(c.Request.Context()), update.CallbackQuery)
	}

	c.JSON(http.StatusOK, WebhookResponse{OK: true})
}

func (h *handler) handleCallback(ctx context.Context, cq *tg.CallbackQuery) {
	if cq.ID != "" {
		if err := h.seen.Add(cq.ID, struct{}{}, cache.DefaultExpiration); err != nil {
			h.metrics.RecordCacheOperation("telegram_callback", "hit")
			h.logger.Info("[telegram.handleCallback] duplicate callback", map[string]string{
				"callbackId": cq.ID,
			})
			return
		}
		h.metrics.RecordCacheOperation("telegram_callback", "miss")
	}

	var chatID, messageID int64
	if cq.Message != nil {
		chatID = cq.Message.Chat.ID
		messageID = cq.Message.MessageID
	}

	chatAllowed := h.chatAllowed(chatID)
	if !chatAllowed || !h.operatorAllowed(cq.From.ID) {
		h.logger.Info("[telegram.handleCallback] not allowed", map[string]string{
			"chatId": strconv.FormatInt(chatID, 10),
			"userId": strconv.FormatInt(cq.From.ID, 10),
		})
		h.answer(ctx, cq.ID, msgNotAllowed)
		if !chatAllowed {
			h.edit(ctx, chatID, messageID, msgNotAllowed)
		}
		return
	}

	h.answer(ctx, cq.ID, msgReceived)

	action, orderID, err := tg.ParseCallbackData(cq.Data)
	if err != nil {
		h.logger.Info("[telegram.handleCallback][ParseCallbackData]", map[string]string{
			"data": cq.Data,
		})
		return
	}

	if messageID != 0 {
		rctx, cancel := context.WithTimeout(ctx, replyTimeout)
		if err := h.client.RemoveInlineKeyboard(rctx, chatID, messageID); err != nil {
			h.logger.Error("[telegram.handleCallback][RemoveInlineKeyboard]", map[string]string{
				"orderId": orderID,
				"error":   err.Error(),
			})
		}
		cancel()
	}

	res, err := h.controller.Handle(ctx, controller.Command{
		Action:  controller.Action(action),
		OrderID: orderID,
		Actor:   model.TelegramActor(cq.From.Username, cq.From.ID),
	})
	if err != nil {
		cerr := controller.AsError(err)
		h.logger.Error("[telegram.handleCallback][Handle]", map[string]string{
			"orderId": orderID,
			"action":  action,
			"error":   err.Error(),
		})
		h.edit(ctx, chatID, messageID, outcomeText(orderID, "⚠️ "+cerr.PublicMessage()))
		return
	}

	h.edit(ctx, chatID, messageID, outcomeText(orderID, resultLine(res)))
}

func (h *handler) validSecret(got string) bool {
	if h.cfg.WebhookSecret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.cfg.WebhookSecret)) == 1
}

func (h *handler) chatAllowed(chatID int64) bool {
	return chatID != 0 && strconv.FormatInt(chatID, 10) == h.cfg.ChatID
}

// operatorAllowed accepts anyone in the operator chat when no operator ids are configured
func (h *handler) operatorAllowed(userID int64) bool {
	if len(h.operators) == 0 {
		return true
	}
	_, ok := h.operators[userID]
	return ok
}

func (h *handler) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	if err := h.client.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		h.logger.Error("[telegram.answer][AnswerCallbackQuery]", map[string]string{
			"callbackId": callbackID,
			"error":      err.Error(),
		})
	}
}

func (h *handler) edit(ctx context.Context, chatID, messageID int64, text string) {
	if chatID == 0 || messageID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	if err := h.client.EditMessageText(ctx, chatID, messageID, text); err != nil {
		h.logger.Error("[telegram.edit][EditMessageText]", map[string]string{
			"error": err.Error(),
		})
	}
}

func outcomeText(orderID, line string) string {
	return fmt.Sprintf("<b>EGPAYDCX Order Bot</b>\n\nOrder: <code>%s</code>\n%s", html.EscapeString(orderID), line)
}

func resultLine(res *controller.Result) string {
	if res.AlreadyProcessed {
		return "⚠️ Already processed earlier. Status: " + html.EscapeString(res.Status.String())
	}

	line := "✅ Status: " + html.EscapeString(res.Status.String())
	if res.TxHash != "" {
		line += "\nTX: <code>" + html.EscapeString(res.TxHash) + "</code>"
	}
	if res.Message != "" {
		line += "\n" + html.EscapeString(res.Message)
	}
	return line
}
