// Package approval routes new opportunities to the admin chat and
// applies the approve and reject decisions.
package approval

import (
	"context"
	"fmt"
	"log"

	"vagasbot/internal/opportunity"
	"vagasbot/internal/publish"
	"vagasbot/internal/repository"
	"vagasbot/internal/telegram"

	"github.com/google/uuid"
)

type Options struct {
	AdminChatID int64
	ChannelID   int64
	ChannelName string
}

type Workflow struct {
	repo       repository.OpportunityRepository
	dispatcher *publish.Dispatcher
	transport  telegram.Transport
	opts       Options
	logger     *log.Logger
}

func NewWorkflow(repo repository.OpportunityRepository, dispatcher *publish.Dispatcher, transport telegram.Transport, opts Options, logger *log.Logger) *Workflow {
	return &Workflow{repo: repo, dispatcher: dispatcher, transport: transport, opts: opts, logger: logger}
}

// Keyboard builds the approve/reject inline keyboard for one
// opportunity.
func Keyboard(id uuid.UUID) telegram.InlineKeyboard {
	return telegram.InlineKeyboard{Rows: [][]telegram.InlineButton{{
		{Text: "Aprovar", CallbackData: fmt.Sprintf("%s %s", opportunity.CallbackApprove, id)},
		{Text: "Remover", CallbackData: fmt.Sprintf("%s %s", opportunity.CallbackRemove, id)},
	}}}
}

// SendToApproval presents the opportunity to the admins. Pipeline
// postings are rendered in full; manual submissions forward the
// original chat message and ask on top of it, since the submitter's
// text is already visible.
func (w *Workflow) SendToApproval(ctx context.Context, o opportunity.Opportunity, origin *telegram.MessageRef) error {
	if w == nil || w.transport == nil {
		return fmt.Errorf("nil workflow/transport")
	}
	keyboard := Keyboard(o.ID)

	if origin != nil {
		fwd, err := w.transport.ForwardMessage(ctx, w.opts.AdminChatID, origin.ChatID, origin.MessageID)
		if err != nil {
			return fmt.Errorf("forward submission: %w", err)
		}
		_, err = w.transport.SendMessage(ctx, telegram.SendParams{
			ChatID:           w.opts.AdminChatID,
			Text:             "Aprovar?",
			ParseMode:        telegram.ModeMarkdown,
			ReplyToMessageID: fwd.MessageID,
			ReplyMarkup:      keyboard,
		})
		return err
	}

	_, err := w.dispatcher.Send(ctx, o, w.opts.AdminChatID, publish.Options{ReplyMarkup: keyboard})
	return err
}

// Approve publishes the opportunity to the channel and records the
// resulting message id. Approving anything but an INACTIVE record
// fails, so a second press of the same button is an error, not a
// duplicate publication.
func (w *Workflow) Approve(ctx context.Context, id uuid.UUID) error {
	o, err := w.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := opportunity.Transition(o.Status, opportunity.StatusActive); err != nil {
		return err
	}

	ids, err := w.dispatcher.Send(ctx, o, w.opts.ChannelID, publish.Options{})
	if err != nil {
		return fmt.Errorf("publish to channel: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	o.TelegramID = ids[0]
	o.Status = opportunity.StatusActive
	if err := w.repo.Update(ctx, &o); err != nil {
		return err
	}

	w.notifySubmitter(ctx, o)
	return nil
}

// Reject deletes the opportunity. Published records cannot be
// rejected.
func (w *Workflow) Reject(ctx context.Context, id uuid.UUID) error {
	o, err := w.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if o.Status == opportunity.StatusActive {
		return fmt.Errorf("%w: %s → deleted", opportunity.ErrInvalidTransition, o.Status)
	}
	return w.repo.Delete(ctx, o.ID)
}

// notifySubmitter tells a manual submitter their posting went live.
// Failures are logged only.
func (w *Workflow) notifySubmitter(ctx context.Context, o opportunity.Opportunity) {
	if o.TelegramUserID == 0 {
		return
	}
	link := fmt.Sprintf("https://t.me/%s/%d", w.opts.ChannelName, o.TelegramID)
	_, err := w.transport.SendMessage(ctx, telegram.SendParams{
		ChatID:    o.TelegramUserID,
		ParseMode: telegram.ModeMarkdown,
		Text:      fmt.Sprintf("Sua vaga '[%s](%s)' foi publicada no canal @VagasBrasil\\_TI.", o.Title, link),
	})
	if err != nil {
		_, err = w.transport.SendMessage(ctx, telegram.SendParams{
			ChatID: o.TelegramUserID,
			Text:   fmt.Sprintf("Sua vaga '%s' foi publicada no canal @VagasBrasil_TI.", link),
		})
	}
	if err != nil && w.logger != nil {
		w.logger.Printf("[Approval] notify submitter %d: %v", o.TelegramUserID, err)
	}
}
