// Package digest posts the daily summary of published opportunities to
// the discussion group, replacing the previous summary.
package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"vagasbot/internal/normalize"
	"vagasbot/internal/repository"
	"vagasbot/internal/telegram"
)

type Options struct {
	GroupID     int64
	ChannelName string
	AppURL      string
}

type Reporter interface {
	Record(ctx context.Context, tag string, cause error, extra any)
}

type Notifier struct {
	opportunities repository.OpportunityRepository
	notifications repository.NotificationRepository
	transport     telegram.Transport
	reporter      Reporter
	opts          Options
	logger        *log.Logger
}

func NewNotifier(
	opportunities repository.OpportunityRepository,
	notifications repository.NotificationRepository,
	transport telegram.Transport,
	reporter Reporter,
	opts Options,
	logger *log.Logger,
) *Notifier {
	return &Notifier{
		opportunities: opportunities,
		notifications: notifications,
		transport:     transport,
		reporter:      reporter,
		opts:          opts,
		logger:        logger,
	}
}

// Notify sends the digest and retracts older ones so the group always
// holds at most one. With nothing published it does nothing. The
// summarized opportunities are deleted afterwards; the published
// channel messages stay.
func (n *Notifier) Notify(ctx context.Context) error {
	published, err := n.opportunities.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published: %w", err)
	}
	if len(published) == 0 {
		return nil
	}

	previous, err := n.notifications.List(ctx)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	rows := make([]string, 0, len(published))
	for _, o := range published {
		title := normalize.NeutralizeMarkup(normalize.StripBrackets(o.Title))
		rows = append(rows, fmt.Sprintf("➩ [%s](%s)", title, n.messageLink(o.TelegramID)))
	}

	text := fmt.Sprintf(
		"Há novas vagas no canal!\nConfira: %s 😉\n\n[%s](%s)\n\n%s",
		normalize.EscapeMarkup("@"+n.opts.ChannelName),
		"🄿🄷🄿🄳🄵",
		strings.TrimRight(n.opts.AppURL, "/")+"/img/phpdf.webp",
		strings.Join(rows, "\n"),
	)
	params := telegram.SendParams{
		ChatID:    n.opts.GroupID,
		Text:      text,
		ParseMode: telegram.ModeMarkdown,
		ReplyMarkup: telegram.InlineKeyboard{Rows: [][]telegram.InlineButton{{
			{Text: "Ver vagas", URL: n.messageLink(published[0].TelegramID)},
		}}},
	}

	sent, err := n.transport.SendMessage(ctx, params)
	if err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	body, _ := json.Marshal(params)
	record := repository.Notification{TelegramID: sent.MessageID, Body: string(body)}
	if err := n.notifications.Create(ctx, &record); err != nil {
		return fmt.Errorf("record digest: %w", err)
	}

	for _, old := range previous {
		if err := n.transport.DeleteMessage(ctx, n.opts.GroupID, old.TelegramID); err != nil {
			if n.reporter != nil {
				n.reporter.Record(ctx, "ERRO_AO_DELETAR_NOTIFICACAO", err, old.TelegramID)
			}
		}
		if err := n.notifications.Delete(ctx, old.ID); err != nil {
			return fmt.Errorf("drop old digest record: %w", err)
		}
	}

	if err := n.opportunities.DeletePublished(ctx); err != nil {
		return fmt.Errorf("clear published: %w", err)
	}
	if n.logger != nil {
		n.logger.Printf("[Digest] group notified with %d opportunities", len(published))
	}
	return nil
}

func (n *Notifier) messageLink(telegramID int) string {
	return fmt.Sprintf("https://t.me/%s/%d", n.opts.ChannelName, telegramID)
}
