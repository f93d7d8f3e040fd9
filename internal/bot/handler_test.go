package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"vagasbot/internal/approval"
	"vagasbot/internal/opportunity"
	"vagasbot/internal/publish"
	"vagasbot/internal/repository"
	"vagasbot/internal/telegram"

	"github.com/google/uuid"
)

type fakeRepo struct {
	items map[uuid.UUID]opportunity.Opportunity
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[uuid.UUID]opportunity.Opportunity{}}
}

func (r *fakeRepo) Create(ctx context.Context, o *opportunity.Opportunity) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.items[o.ID] = *o
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (opportunity.Opportunity, error) {
	o, ok := r.items[id]
	if !ok {
		return opportunity.Opportunity{}, repository.ErrOpportunityNotFound
	}
	return o, nil
}

func (r *fakeRepo) Update(ctx context.Context, o *opportunity.Opportunity) error {
	r.items[o.ID] = *o
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return repository.ErrOpportunityNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeRepo) ListPublished(ctx context.Context) ([]opportunity.Opportunity, error) {
	return nil, nil
}

func (r *fakeRepo) DeletePublished(ctx context.Context) error { return nil }

type fakeTransport struct {
	sent      []telegram.SendParams
	forwarded []int
	deleted   []int
	nextID    int
}

func (f *fakeTransport) SendMessage(ctx context.Context, p telegram.SendParams) (telegram.MessageRef, error) {
	f.sent = append(f.sent, p)
	f.nextID++
	return telegram.MessageRef{ChatID: p.ChatID, MessageID: f.nextID}, nil
}

func (f *fakeTransport) SendDocument(ctx context.Context, p telegram.DocumentParams) (telegram.MessageRef, error) {
	return telegram.MessageRef{}, nil
}

func (f *fakeTransport) ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (telegram.MessageRef, error) {
	f.forwarded = append(f.forwarded, messageID)
	f.nextID++
	return telegram.MessageRef{ChatID: toChatID, MessageID: f.nextID}, nil
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func newTestHandler() (*Handler, *fakeRepo, *fakeTransport) {
	repo := newFakeRepo()
	tr := &fakeTransport{}
	d := publish.NewDispatcher(tr, nil, nil)
	w := approval.NewWorkflow(repo, d, tr, approval.Options{
		AdminChatID: 100,
		ChannelID:   200,
		ChannelName: "VagasBrasil_TI",
	}, nil)
	h := NewHandler(tr, repo, w, Options{AdminChatID: 100}, nil)
	return h, repo, tr
}

func promptReply(text, caption string) *telegram.Message {
	return &telegram.Message{
		MessageID: 42,
		ChatID:    555,
		FromID:    777,
		Text:      text,
		Caption:   caption,
		ReplyTo: &telegram.Message{
			FromIsBot: true,
			Text:      NewOpportunityPrompt,
		},
	}
}

func TestNewCommandSendsForceReplyPrompt(t *testing.T) {
	h, _, tr := newTestHandler()

	h.ProcessUpdate(context.Background(), telegram.Update{Message: &telegram.Message{
		ChatID: 555,
		Text:   "/new",
	}})

	if len(tr.sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(tr.sent))
	}
	p := tr.sent[0]
	if p.Text != NewOpportunityPrompt {
		t.Fatalf("prompt text = %q", p.Text)
	}
	if _, ok := p.ReplyMarkup.(telegram.ForceReply); !ok {
		t.Fatalf("prompt has no force reply markup: %+v", p.ReplyMarkup)
	}
}

func TestManualSubmissionCreatesAndForwards(t *testing.T) {
	h, repo, tr := newTestHandler()

	text := "Vaga PHP Sênior\n" + strings.Repeat("detalhes ", 30)
	h.ProcessUpdate(context.Background(), telegram.Update{Message: promptReply(text, "")})

	if len(repo.items) != 1 {
		t.Fatalf("got %d records, want 1", len(repo.items))
	}
	for _, o := range repo.items {
		if len([]rune(o.Title)) > opportunity.MaxTitleLength {
			t.Fatalf("title too long: %q", o.Title)
		}
		if strings.Contains(o.Title, "\n") {
			t.Fatalf("title has newline: %q", o.Title)
		}
		if o.TelegramUserID != 777 {
			t.Fatalf("submitter id = %d", o.TelegramUserID)
		}
		if o.Status != opportunity.StatusInactive {
			t.Fatalf("status = %s", o.Status)
		}
	}
	if len(tr.forwarded) != 1 {
		t.Fatalf("submission not forwarded to admins")
	}
}

func TestManualSubmissionCapturesFiles(t *testing.T) {
	h, repo, _ := newTestHandler()

	msg := promptReply("", "Vaga com imagem")
	msg.Photos = []telegram.FileRef{{FileID: "photo-1"}, {FileID: "photo-2"}}
	msg.Document = &telegram.FileRef{FileID: "doc-1"}
	h.ProcessUpdate(context.Background(), telegram.Update{Message: msg})

	if len(repo.items) != 1 {
		t.Fatalf("got %d records, want 1", len(repo.items))
	}
	for _, o := range repo.items {
		if len(o.Files) != 3 {
			t.Fatalf("files = %v", o.Files)
		}
	}
}

func TestEmptySubmissionRejectedWithoutPersisting(t *testing.T) {
	h, repo, tr := newTestHandler()

	h.ProcessUpdate(context.Background(), telegram.Update{Message: promptReply("", "")})

	if len(repo.items) != 0 {
		t.Fatalf("empty submission persisted")
	}
	if len(tr.sent) != 1 {
		t.Fatalf("got %d sends, want 1 error reply", len(tr.sent))
	}
	reply := tr.sent[0]
	if reply.ChatID != 555 || reply.ReplyToMessageID != 42 {
		t.Fatalf("error not sent as reply: %+v", reply)
	}
	if !strings.Contains(reply.Text, "Envie um texto para a vaga") {
		t.Fatalf("unexpected error text: %q", reply.Text)
	}
	if reply.ParseMode != "" {
		t.Fatalf("error reply carries parse mode %q", reply.ParseMode)
	}
}

func TestApproveCallbackPublishesAndRemovesKeyboard(t *testing.T) {
	h, repo, tr := newTestHandler()
	o := opportunity.Opportunity{
		Title:       "Vaga PHP",
		Description: strings.Repeat("x", publish.MinDescriptionLength),
		Status:      opportunity.StatusInactive,
	}
	_ = repo.Create(context.Background(), &o)

	h.ProcessUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb-1",
		Data:    fmt.Sprintf("approve %s", o.ID),
		Message: &telegram.Message{MessageID: 9, ChatID: 100},
	}})

	stored := repo.items[o.ID]
	if stored.Status != opportunity.StatusActive {
		t.Fatalf("status = %s, want ACTIVE", stored.Status)
	}
	if len(tr.deleted) != 1 || tr.deleted[0] != 9 {
		t.Fatalf("keyboard message not removed: %v", tr.deleted)
	}
}

func TestRemoveCallbackDeletes(t *testing.T) {
	h, repo, _ := newTestHandler()
	o := opportunity.Opportunity{Title: "Vaga", Description: "curta", Status: opportunity.StatusInactive}
	_ = repo.Create(context.Background(), &o)

	h.ProcessUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb-2",
		Data:    fmt.Sprintf("remove %s", o.ID),
		Message: &telegram.Message{MessageID: 10, ChatID: 100},
	}})

	if _, ok := repo.items[o.ID]; ok {
		t.Fatalf("opportunity not deleted")
	}
}

func TestCallbackDispatchesRegisteredCommands(t *testing.T) {
	h, _, _ := newTestHandler()

	var got *telegram.Message
	h.Register("refresh", func(ctx context.Context, msg *telegram.Message) error {
		got = msg
		return nil
	})

	h.ProcessUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb-3",
		Data:    "refresh",
		Message: &telegram.Message{MessageID: 11, ChatID: 100},
	}})

	if got == nil {
		t.Fatalf("command not dispatched from callback")
	}
	if got.MessageID != 11 {
		t.Fatalf("command got message %d, want 11", got.MessageID)
	}
}

func TestNewCommandCallbackSendsPrompt(t *testing.T) {
	h, _, tr := newTestHandler()

	h.ProcessUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb-4",
		Data:    "new",
		Message: &telegram.Message{MessageID: 12, ChatID: 555},
	}})

	if len(tr.sent) != 1 || tr.sent[0].Text != NewOpportunityPrompt {
		t.Fatalf("prompt not sent from callback: %+v", tr.sent)
	}
	if len(tr.deleted) != 0 {
		t.Fatalf("command callback removed a message: %v", tr.deleted)
	}
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	h, _, tr := newTestHandler()

	h.ProcessUpdate(context.Background(), telegram.Update{Message: &telegram.Message{
		ChatID: 555,
		Text:   "/unknown",
	}})

	if len(tr.sent) != 0 {
		t.Fatalf("unknown command produced %d sends", len(tr.sent))
	}
}
