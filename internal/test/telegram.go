package test

import (
	"context"
	"sync"
	"time"

	"github.com/polkiloo/digishop/internal/adapter/telegram"
)

// ChatMessage is a recorded sendMessage call.
type ChatMessage struct {
	ChatID int64
	Text   string
	Markup *telegram.InlineKeyboardMarkup
}

// Buttons flattens the inline keyboard of the message.
func (m ChatMessage) Buttons() []telegram.InlineKeyboardButton {
	if m.Markup == nil {
		return nil
	}
	var result []telegram.InlineKeyboardButton
	for _, row := range m.Markup.InlineKeyboard {
		result = append(result, row...)
	}
	return result
}

// HasCallback reports whether a button carries data.
func (m ChatMessage) HasCallback(data string) bool {
	for _, b := range m.Buttons() {
		if b.CallbackData == data {
			return true
		}
	}
	return false
}

// TelegramStub implements the Bot API used by the dispatcher and runner.
type TelegramStub struct {
	GetUpdatesFn  func(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessageFn func(ctx context.Context, chatID int64, text string) error

	mu       sync.Mutex
	messages []ChatMessage
	answered []string
	offsets  []int64
}

func (s *TelegramStub) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error) {
	s.mu.Lock()
	s.offsets = append(s.offsets, offset)
	fn := s.GetUpdatesFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, offset, timeout)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *TelegramStub) SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	if s.SendMessageFn != nil {
		if err := s.SendMessageFn(ctx, chatID, text); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, ChatMessage{ChatID: chatID, Text: text, Markup: markup})
	return nil
}

func (s *TelegramStub) AnswerCallbackQuery(_ context.Context, callbackID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answered = append(s.answered, callbackID)
	return nil
}

// Messages returns every recorded message.
func (s *TelegramStub) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage(nil), s.messages...)
}

// Last returns the latest message, or a zero message when nothing was sent.
func (s *TelegramStub) Last() ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return ChatMessage{}
	}
	return s.messages[len(s.messages)-1]
}

// Answered returns answered callback query ids.
func (s *TelegramStub) Answered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.answered...)
}

// Offsets returns the offsets passed to GetUpdates.
func (s *TelegramStub) Offsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.offsets...)
}

// Reset forgets recorded messages.
func (s *TelegramStub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.answered = nil
}
