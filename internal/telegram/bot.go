package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot implements Transport over the Telegram Bot API.
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *log.Logger
}

func NewBot(token string, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	if logger != nil {
		logger.Printf("[telegram] authorized as @%s", api.Self.UserName)
	}
	return &Bot{api: api, logger: logger}, nil
}

func (b *Bot) SendMessage(ctx context.Context, p SendParams) (MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return MessageRef{}, err
	}
	msg := tgbotapi.NewMessage(p.ChatID, p.Text)
	msg.ParseMode = p.ParseMode
	if p.ReplyToMessageID != 0 {
		msg.ReplyToMessageID = p.ReplyToMessageID
	}
	if p.ReplyMarkup != nil {
		msg.ReplyMarkup = convertMarkup(p.ReplyMarkup)
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		return MessageRef{}, classify(err)
	}
	return MessageRef{ChatID: p.ChatID, MessageID: sent.MessageID}, nil
}

func (b *Bot) SendDocument(ctx context.Context, p DocumentParams) (MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return MessageRef{}, err
	}
	doc := tgbotapi.NewDocument(p.ChatID, tgbotapi.FilePath(p.FilePath))
	doc.Caption = p.Caption
	doc.ParseMode = p.ParseMode
	sent, err := b.api.Send(doc)
	if err != nil {
		return MessageRef{}, classify(err)
	}
	return MessageRef{ChatID: p.ChatID, MessageID: sent.MessageID}, nil
}

func (b *Bot) ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return MessageRef{}, err
	}
	sent, err := b.api.Send(tgbotapi.NewForward(toChatID, fromChatID, messageID))
	if err != nil {
		return MessageRef{}, classify(err)
	}
	return MessageRef{ChatID: toChatID, MessageID: sent.MessageID}, nil
}

func (b *Bot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify maps Bot API failures onto the transport error taxonomy. A 400
// on a formatted send is how Telegram signals unparseable markup.
func classify(err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.Code == 400 {
		return fmt.Errorf("%w: %s", ErrMarkupRejected, tgErr.Message)
	}
	return err
}

func convertMarkup(markup any) any {
	switch m := markup.(type) {
	case InlineKeyboard:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.Rows))
		for _, row := range m.Rows {
			btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				if b.URL != "" {
					btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
					continue
				}
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.CallbackData))
			}
			rows = append(rows, btns)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	case ForceReply:
		return tgbotapi.ForceReply{ForceReply: true}
	default:
		return markup
	}
}

// FromBotAPI converts a raw Bot API update into the neutral inbound shape.
func FromBotAPI(u tgbotapi.Update) Update {
	out := Update{}
	if u.Message != nil {
		out.Message = convertMessage(u.Message)
	}
	if u.CallbackQuery != nil {
		cb := &CallbackQuery{
			ID:   u.CallbackQuery.ID,
			Data: u.CallbackQuery.Data,
		}
		if u.CallbackQuery.From != nil {
			cb.FromID = u.CallbackQuery.From.ID
		}
		if u.CallbackQuery.Message != nil {
			cb.Message = convertMessage(u.CallbackQuery.Message)
		}
		out.CallbackQuery = cb
	}
	return out
}

func convertMessage(m *tgbotapi.Message) *Message {
	if m == nil {
		return nil
	}
	out := &Message{
		MessageID: m.MessageID,
		Text:      m.Text,
		Caption:   m.Caption,
	}
	if m.Chat != nil {
		out.ChatID = m.Chat.ID
	}
	if m.From != nil {
		out.FromID = m.From.ID
		out.FromIsBot = m.From.IsBot
	}
	if m.ReplyToMessage != nil {
		out.ReplyTo = convertMessage(m.ReplyToMessage)
	}
	for _, p := range m.Photo {
		out.Photos = append(out.Photos, FileRef{FileID: p.FileID, FileSize: p.FileSize})
	}
	if m.Document != nil {
		out.Document = &FileRef{FileID: m.Document.FileID, FileSize: m.Document.FileSize}
	}
	return out
}
