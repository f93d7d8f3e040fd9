// Package telegram defines the chat-transport surface the core depends on,
// plus the neutral inbound update shapes. The tgbotapi-backed implementation
// lives in bot.go; tests substitute fakes.
package telegram

import (
	"context"
	"errors"
)

// ModeMarkdown is the rich parse mode used for formatted sends.
const ModeMarkdown = "Markdown"

// ErrMarkupRejected wraps transport failures caused by the destination
// refusing the formatted text. Senders recover by retrying with markup
// stripped.
var ErrMarkupRejected = errors.New("markup rejected by transport")

// IsMarkupRejected reports whether err is a markup-rejection failure.
func IsMarkupRejected(err error) bool {
	return errors.Is(err, ErrMarkupRejected)
}

// MessageRef identifies a sent message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// InlineButton is one button of an inline keyboard. Exactly one of
// CallbackData or URL should be set.
type InlineButton struct {
	Text         string
	CallbackData string
	URL          string
}

// InlineKeyboard is an inline keyboard reply markup.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// ForceReply asks the client to reply to the sent message.
type ForceReply struct{}

// SendParams describes an outbound text message.
type SendParams struct {
	ChatID           int64
	Text             string
	ParseMode        string
	ReplyToMessageID int
	ReplyMarkup      any
}

// DocumentParams describes an outbound document upload.
type DocumentParams struct {
	ChatID    int64
	FilePath  string
	Caption   string
	ParseMode string
}

// Transport is the outbound chat surface.
type Transport interface {
	SendMessage(ctx context.Context, p SendParams) (MessageRef, error)
	SendDocument(ctx context.Context, p DocumentParams) (MessageRef, error)
	ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (MessageRef, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Update is the neutral inbound shape: either a message or a callback query.
type Update struct {
	Message       *Message
	CallbackQuery *CallbackQuery
}

// Message is an inbound chat message.
type Message struct {
	MessageID int
	ChatID    int64
	FromID    int64
	FromIsBot bool
	Text      string
	Caption   string
	ReplyTo   *Message
	Photos    []FileRef
	Document  *FileRef
}

// FileRef points at a file hosted by the chat platform.
type FileRef struct {
	FileID   string
	FileSize int
}

// CallbackQuery is an inline-keyboard button press.
type CallbackQuery struct {
	ID      string
	FromID  int64
	Data    string
	Message *Message
}
