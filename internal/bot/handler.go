// Package bot dispatches inbound chat updates: slash commands,
// approval keyboard presses and manual opportunity submissions.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"vagasbot/internal/approval"
	"vagasbot/internal/opportunity"
	"vagasbot/internal/repository"
	"vagasbot/internal/telegram"

	"github.com/google/uuid"
)

// NewOpportunityPrompt is the force-reply prompt of the /new command.
// Manual submissions are recognized by replying to it.
const NewOpportunityPrompt = "Envie o texto da vaga em resposta a essa mensagem!"

// errEmptySubmission is user-facing, so it stays in Portuguese.
var errEmptySubmission = errors.New("Envie um texto para a vaga, ou o nome da vaga na legenda da imagem/documento.")

type Options struct {
	AdminChatID int64
}

type CommandFunc func(ctx context.Context, msg *telegram.Message) error

type Handler struct {
	transport telegram.Transport
	repo      repository.OpportunityRepository
	workflow  *approval.Workflow
	opts      Options
	logger    *log.Logger
	commands  map[string]CommandFunc
}

func NewHandler(transport telegram.Transport, repo repository.OpportunityRepository, workflow *approval.Workflow, opts Options, logger *log.Logger) *Handler {
	h := &Handler{
		transport: transport,
		repo:      repo,
		workflow:  workflow,
		opts:      opts,
		logger:    logger,
		commands:  map[string]CommandFunc{},
	}
	h.commands["new"] = h.commandNew
	return h
}

// Register adds a slash command. The name carries no leading slash.
func (h *Handler) Register(name string, fn CommandFunc) {
	h.commands[name] = fn
}

// ProcessUpdate routes one inbound update. Handling errors are
// reported back to the chat they came from.
func (h *Handler) ProcessUpdate(ctx context.Context, u telegram.Update) {
	if u.CallbackQuery != nil {
		if err := h.processCallback(ctx, u.CallbackQuery); err != nil {
			h.logf("callback %q: %v", u.CallbackQuery.Data, err)
		}
		return
	}
	if u.Message == nil {
		return
	}
	if err := h.processMessage(ctx, u.Message); err != nil {
		h.replyError(ctx, u.Message, err)
	}
}

func (h *Handler) processMessage(ctx context.Context, msg *telegram.Message) error {
	if strings.HasPrefix(msg.Text, "/") {
		name := strings.TrimPrefix(strings.Fields(msg.Text)[0], "/")
		if at := strings.IndexByte(name, '@'); at >= 0 {
			name = name[:at]
		}
		if fn, ok := h.commands[name]; ok {
			return fn(ctx, msg)
		}
		return nil
	}
	if isSubmissionReply(msg) {
		return h.processSubmission(ctx, msg)
	}
	return nil
}

func isSubmissionReply(msg *telegram.Message) bool {
	return msg.ReplyTo != nil && msg.ReplyTo.FromIsBot && msg.ReplyTo.Text == NewOpportunityPrompt
}

// processSubmission turns a reply to the /new prompt into an INACTIVE
// opportunity and sends it to approval.
func (h *Handler) processSubmission(ctx context.Context, msg *telegram.Message) error {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return errEmptySubmission
	}

	title := strings.ReplaceAll(text, "\n", " ")
	if runes := []rune(title); len(runes) > opportunity.MaxTitleLength {
		title = string(runes[:opportunity.MaxTitleLength])
	}

	var files []string
	for _, photo := range msg.Photos {
		files = append(files, photo.FileID)
	}
	if msg.Document != nil {
		files = append(files, msg.Document.FileID)
	}

	o := opportunity.Opportunity{
		Title:          title,
		Description:    text,
		Files:          files,
		Status:         opportunity.StatusInactive,
		TelegramUserID: msg.FromID,
	}
	if err := h.repo.Create(ctx, &o); err != nil {
		return fmt.Errorf("persist submission: %w", err)
	}

	origin := &telegram.MessageRef{ChatID: msg.ChatID, MessageID: msg.MessageID}
	return h.workflow.SendToApproval(ctx, o, origin)
}

// processCallback applies an approval keyboard press and removes the
// keyboard message afterwards so a decision cannot be taken twice from
// the same prompt. Any other action keyword is dispatched as a command
// against the message the keyboard hangs off.
func (h *Handler) processCallback(ctx context.Context, q *telegram.CallbackQuery) error {
	fields := strings.Fields(q.Data)
	if len(fields) == 0 {
		return fmt.Errorf("empty callback data")
	}

	var err error
	switch fields[0] {
	case opportunity.CallbackApprove, opportunity.CallbackRemove:
		if len(fields) != 2 {
			return fmt.Errorf("unexpected callback data %q", q.Data)
		}
		var id uuid.UUID
		id, err = uuid.Parse(fields[1])
		if err != nil {
			return fmt.Errorf("callback id: %w", err)
		}
		if fields[0] == opportunity.CallbackApprove {
			err = h.workflow.Approve(ctx, id)
		} else {
			err = h.workflow.Reject(ctx, id)
		}
	default:
		fn, ok := h.commands[fields[0]]
		if !ok {
			return fmt.Errorf("unknown callback command %q", fields[0])
		}
		if q.Message == nil {
			return fmt.Errorf("callback command %q without a message", fields[0])
		}
		return fn(ctx, q.Message)
	}
	if err != nil {
		return err
	}

	if q.Message != nil {
		if derr := h.transport.DeleteMessage(ctx, h.opts.AdminChatID, q.Message.MessageID); derr != nil {
			h.logf("delete keyboard message %d: %v", q.Message.MessageID, derr)
		}
	}
	return nil
}

func (h *Handler) commandNew(ctx context.Context, msg *telegram.Message) error {
	_, err := h.transport.SendMessage(ctx, telegram.SendParams{
		ChatID:      msg.ChatID,
		Text:        NewOpportunityPrompt,
		ParseMode:   telegram.ModeMarkdown,
		ReplyMarkup: telegram.ForceReply{},
	})
	return err
}

// replyError reports the failure back to the chat as plain text.
func (h *Handler) replyError(ctx context.Context, msg *telegram.Message, cause error) {
	h.logf("message from %d: %v", msg.FromID, cause)
	_, err := h.transport.SendMessage(ctx, telegram.SendParams{
		ChatID:           msg.ChatID,
		Text:             cause.Error(),
		ReplyToMessageID: msg.MessageID,
	})
	if err != nil {
		h.logf("report error to chat %d: %v", msg.ChatID, err)
	}
}

func (h *Handler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf("[Bot] "+format, args...)
	}
}
