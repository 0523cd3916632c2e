package telegram

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ParseModeHTML = "HTML"

	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

var (
	ErrNotConfigured   = errors.New("telegram client not configured")
	ErrInvalidCallback = errors.New("invalid callback data")
)

// APIError is a non-ok reply from the Bot API
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s failed: %d %s", e.Method, e.Code, e.Description)
}

type apiResponse[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// OutgoingMessage is a sendMessage request. ChatID empty means the configured operator chat.
type OutgoingMessage struct {
	ChatID      string                `json:"chat_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	// disables link previews for payout addresses and explorer links
	DisableWebPagePreview bool `json:"disable_web_page_preview,omitempty"`
}

type User struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot"`
	Username string `json:"username,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data"`
}

// Update is the webhook payload. Only callback queries are acted upon.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// ApprovalKeyboard builds the approve/reject buttons attached to a new order message
func ApprovalKeyboard(orderID string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{
			{Text: "✅ Approve", CallbackData: ActionApprove + ":" + orderID},
			{Text: "❌ Reject", CallbackData: ActionReject + ":" + orderID},
		}},
	}
}

// ParseCallbackData splits "ACTION:orderId"
func ParseCallbackData(data string) (action string, orderID string, err error) {
	action, orderID, ok := strings.Cut(strings.TrimSpace(data), ":")
	if !ok || orderID == "" {
		return "", "", ErrInvalidCallback
	}
	action = strings.ToUpper(action)
	if action != ActionApprove && action != ActionReject {
		return "", "", ErrInvalidCallback
	}
	return action, orderID, nil
}
