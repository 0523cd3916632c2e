package telegram

import "context"

// IClient is the subset of the Telegram Bot API the service uses
type IClient interface {
	SendMessage(ctx context.Context, msg OutgoingMessage) (*Message, error)
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
	EditMessageText(ctx context.Context, chatID int64, messageID int64, text string) error
	RemoveInlineKeyboard(ctx context.Context, chatID int64, messageID int64) error
}
