package test

import (
	"context"
	"sync"
)

// Message is a recorded outbound chat message.
type Message struct {
	ChatID  int64
	Text    string
	FileRef string
}

// NotifierStub records outbound messages.
type NotifierStub struct {
	SendTextFn func(context.Context, int64, string) error
	SendFileFn func(context.Context, int64, string, string) error

	mu   sync.Mutex
	sent []Message
}

// SendText records the message unless the override fails.
func (n *NotifierStub) SendText(ctx context.Context, chatID int64, text string) error {
	if n.SendTextFn != nil {
		if err := n.SendTextFn(ctx, chatID, text); err != nil {
			return err
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Message{ChatID: chatID, Text: text})
	return nil
}

// SendFile records the document unless the override fails.
func (n *NotifierStub) SendFile(ctx context.Context, chatID int64, fileRef, caption string) error {
	if n.SendFileFn != nil {
		if err := n.SendFileFn(ctx, chatID, fileRef, caption); err != nil {
			return err
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Message{ChatID: chatID, Text: caption, FileRef: fileRef})
	return nil
}

// Sent returns every recorded message.
func (n *NotifierStub) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.sent...)
}

// SentTo returns messages addressed to chatID.
func (n *NotifierStub) SentTo(chatID int64) []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var result []Message
	for _, m := range n.sent {
		if m.ChatID == chatID {
			result = append(result, m)
		}
	}
	return result
}
