package bot

import (
	"context"
	"time"

	"github.com/polkiloo/digishop/internal/adapter/telegram"
)

// API is the part of the Bot API the dispatcher and runner use.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

var _ API = (*telegram.Client)(nil)
