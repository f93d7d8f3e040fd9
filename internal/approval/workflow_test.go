package approval

import (
	"context"
	"errors"
	"strings"
	"testing"

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
	if _, ok := r.items[o.ID]; !ok {
		return repository.ErrOpportunityNotFound
	}
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
	var out []opportunity.Opportunity
	for _, o := range r.items {
		if o.Published() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeletePublished(ctx context.Context) error {
	for id, o := range r.items {
		if o.Published() {
			delete(r.items, id)
		}
	}
	return nil
}

type fakeTransport struct {
	sent      []telegram.SendParams
	forwarded []int
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
	return nil
}

func newTestWorkflow() (*Workflow, *fakeRepo, *fakeTransport) {
	repo := newFakeRepo()
	tr := &fakeTransport{}
	d := publish.NewDispatcher(tr, nil, nil)
	w := NewWorkflow(repo, d, tr, Options{
		AdminChatID: 100,
		ChannelID:   200,
		ChannelName: "VagasBrasil_TI",
	}, nil)
	return w, repo, tr
}

func pending(repo *fakeRepo) opportunity.Opportunity {
	o := opportunity.Opportunity{
		Title:       "Vaga PHP",
		Description: strings.Repeat("x", publish.MinDescriptionLength),
		Status:      opportunity.StatusInactive,
	}
	_ = repo.Create(context.Background(), &o)
	return o
}

func TestApprovePublishesAndRecordsMessageID(t *testing.T) {
	w, repo, tr := newTestWorkflow()
	o := pending(repo)

	if err := w.Approve(context.Background(), o.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	stored := repo.items[o.ID]
	if stored.Status != opportunity.StatusActive {
		t.Fatalf("status = %s, want ACTIVE", stored.Status)
	}
	if stored.TelegramID == 0 {
		t.Fatalf("telegram id not recorded")
	}
	if len(tr.sent) == 0 || tr.sent[0].ChatID != 200 {
		t.Fatalf("posting not sent to channel: %+v", tr.sent)
	}
}

func TestApproveIsOneWay(t *testing.T) {
	w, repo, _ := newTestWorkflow()
	o := pending(repo)

	if err := w.Approve(context.Background(), o.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	err := w.Approve(context.Background(), o.ID)
	if !errors.Is(err, opportunity.ErrInvalidTransition) {
		t.Fatalf("second approve: got %v, want ErrInvalidTransition", err)
	}
}

func TestApproveDeletedOpportunity(t *testing.T) {
	w, _, tr := newTestWorkflow()

	err := w.Approve(context.Background(), uuid.New())
	if !errors.Is(err, repository.ErrOpportunityNotFound) {
		t.Fatalf("got %v, want ErrOpportunityNotFound", err)
	}
	if len(tr.sent) != 0 {
		t.Fatalf("deleted opportunity was published")
	}
}

func TestRejectDeletesPending(t *testing.T) {
	w, repo, _ := newTestWorkflow()
	o := pending(repo)

	if err := w.Reject(context.Background(), o.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, ok := repo.items[o.ID]; ok {
		t.Fatalf("rejected opportunity still stored")
	}
}

func TestRejectPublishedFails(t *testing.T) {
	w, repo, _ := newTestWorkflow()
	o := pending(repo)
	if err := w.Approve(context.Background(), o.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	err := w.Reject(context.Background(), o.ID)
	if !errors.Is(err, opportunity.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
	if _, ok := repo.items[o.ID]; !ok {
		t.Fatalf("published opportunity was deleted")
	}
}

func TestApproveNotifiesSubmitter(t *testing.T) {
	w, repo, tr := newTestWorkflow()
	o := opportunity.Opportunity{
		Title:          "Minha vaga",
		Description:    strings.Repeat("x", publish.MinDescriptionLength),
		Status:         opportunity.StatusInactive,
		TelegramUserID: 777,
	}
	_ = repo.Create(context.Background(), &o)

	if err := w.Approve(context.Background(), o.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	var notified bool
	for _, p := range tr.sent {
		if p.ChatID == 777 && strings.Contains(p.Text, "foi publicada no canal") {
			notified = true
		}
	}
	if !notified {
		t.Fatalf("submitter not notified: %+v", tr.sent)
	}
}

func TestSendToApprovalPipelinePosting(t *testing.T) {
	w, repo, tr := newTestWorkflow()
	o := pending(repo)

	if err := w.SendToApproval(context.Background(), o, nil); err != nil {
		t.Fatalf("send to approval: %v", err)
	}
	if len(tr.sent) == 0 {
		t.Fatalf("nothing sent to admins")
	}
	first := tr.sent[0]
	if first.ChatID != 100 {
		t.Fatalf("sent to chat %d, want admin chat", first.ChatID)
	}
	kb, ok := first.ReplyMarkup.(telegram.InlineKeyboard)
	if !ok || len(kb.Rows) != 1 || len(kb.Rows[0]) != 2 {
		t.Fatalf("unexpected keyboard: %+v", first.ReplyMarkup)
	}
	if kb.Rows[0][0].Text != "Aprovar" || kb.Rows[0][1].Text != "Remover" {
		t.Fatalf("unexpected buttons: %+v", kb.Rows[0])
	}
}

func TestSendToApprovalManualSubmissionForwards(t *testing.T) {
	w, repo, tr := newTestWorkflow()
	o := pending(repo)

	origin := &telegram.MessageRef{ChatID: 555, MessageID: 42}
	if err := w.SendToApproval(context.Background(), o, origin); err != nil {
		t.Fatalf("send to approval: %v", err)
	}
	if len(tr.forwarded) != 1 || tr.forwarded[0] != 42 {
		t.Fatalf("submission not forwarded: %v", tr.forwarded)
	}
	last := tr.sent[len(tr.sent)-1]
	if last.Text != "Aprovar?" || last.ReplyToMessageID == 0 {
		t.Fatalf("prompt not sent as reply: %+v", last)
	}
}
