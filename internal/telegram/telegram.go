package telegram

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

type client struct {
	http   *resty.Client
	chatID string
	logger *logger.Logger
}

// New returns a Bot API client, or nil when the bot is not configured
func New(cfg config.TelegramConfig, logger *logger.Logger) IClient {
	if !cfg.Enabled() {
		logger.Info("[telegram.New] bot token or chat id missing, notifications disabled")
		return nil
	}

	baseURL := strings.TrimRight(cfg.APIBaseURL, "/") + "/bot" + cfg.BotToken
	return &client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10*time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500*time.Millisecond).
			SetHeader("Content-Type", "application/json"),
		chatID: cfg.ChatID,
		logger: logger,
	}
}

func call[T any](ctx context.Context, c *client, method string, body interface{}) (T, error) {
	var out apiResponse[T]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/" + method)
	if err != nil {
		// resty errors embed the request URL, which carries the bot token
		return out.Result, errors.Errorf("telegram %s request failed: %s", method, redact(err.Error(), c.http.BaseURL))
	}
	if !out.OK {
		code := out.ErrorCode
		if code == 0 {
			code = resp.StatusCode()
		}
		return out.Result, &APIError{Method: method, Code: code, Description: out.Description}
	}
	return out.Result, nil
}

func redact(s, baseURL string) string {
	return strings.ReplaceAll(s, baseURL, "<telegram>")
}

func (c *client) SendMessage(ctx context.Context, msg OutgoingMessage) (*Message, error) {
	if msg.ChatID == "" {
		msg.ChatID = c.chatID
	}
	if msg.ParseMode == "" {
		msg.ParseMode = ParseModeHTML
	}

	sent, err := call[Message](ctx, c, "sendMessage", msg)
	if err != nil {
		return nil, err
	}
	return &sent, nil
}

func (c *client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	_, err := call[bool](ctx, c, "answerCallbackQuery", map[string]interface{}{
		"callback_query_id": callbackQueryID,
		"text":              text,
	})
	return err
}

func (c *client) EditMessageText(ctx context.Context, chatID int64, messageID int64, text string) error {
	_, err := call[Message](ctx, c, "editMessageText", map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": ParseModeHTML,
	})
	return err
}

func (c *client) RemoveInlineKeyboard(ctx context.Context, chatID int64, messageID int64) error {
	_, err := call[Message](ctx, c, "editMessageReplyMarkup", map[string]interface{}{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{}},
	})
	return err
}
