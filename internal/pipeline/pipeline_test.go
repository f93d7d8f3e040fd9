package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"vagasbot/internal/approval"
	"vagasbot/internal/fetch"
	"vagasbot/internal/opportunity"
	"vagasbot/internal/publish"
	"vagasbot/internal/repository"
	"vagasbot/internal/telegram"

	"github.com/google/uuid"
)

type fakeFetcher struct {
	name     string
	postings []opportunity.RawPosting
	err      error
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(ctx context.Context) ([]opportunity.RawPosting, error) {
	return f.postings, f.err
}

type fakeRepo struct {
	items map[uuid.UUID]opportunity.Opportunity
	order []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[uuid.UUID]opportunity.Opportunity{}}
}

func (r *fakeRepo) Create(ctx context.Context, o *opportunity.Opportunity) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.items[o.ID] = *o
	r.order = append(r.order, o.ID)
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
	delete(r.items, id)
	return nil
}

func (r *fakeRepo) ListPublished(ctx context.Context) ([]opportunity.Opportunity, error) {
	return nil, nil
}

func (r *fakeRepo) DeletePublished(ctx context.Context) error { return nil }

type fakeTransport struct {
	sent   []telegram.SendParams
	nextID int
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
	return telegram.MessageRef{}, nil
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return nil
}

type fakeDeduper struct {
	seen map[string]bool
}

func (d *fakeDeduper) Seen(ctx context.Context, title, description string) (bool, error) {
	return d.seen[title], nil
}

func (d *fakeDeduper) MarkSeen(ctx context.Context, title, description string) error {
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	d.seen[title] = true
	return nil
}

type fakeReporter struct {
	tags []string
}

func (f *fakeReporter) Record(ctx context.Context, tag string, cause error, extra any) {
	f.tags = append(f.tags, tag)
}

func newTestPipeline(fetchers []fetch.Fetcher, deduper Deduper, reporter Reporter) (*Pipeline, *fakeRepo, *fakeTransport) {
	repo := newFakeRepo()
	tr := &fakeTransport{}
	d := publish.NewDispatcher(tr, nil, nil)
	w := approval.NewWorkflow(repo, d, tr, approval.Options{AdminChatID: 100, ChannelID: 200, ChannelName: "VagasBrasil_TI"}, nil)
	return New(fetchers, repo, w, deduper, reporter, nil), repo, tr
}

func TestIngestNormalizesEndToEnd(t *testing.T) {
	raw := opportunity.RawPosting{
		Title: "RE: Vaga PHP Developer - 3 views",
		Description: "<p>Texto da vaga php laravel</p>" +
			"You are receiving this because you are subscribed to this thread",
	}
	p, repo, _ := newTestPipeline([]fetch.Fetcher{&fakeFetcher{name: "src", postings: []opportunity.RawPosting{raw}}}, nil, nil)

	if err := p.IngestAll(context.Background()); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(repo.order) != 1 {
		t.Fatalf("got %d records, want 1", len(repo.order))
	}

	o := repo.items[repo.order[0]]
	if o.Title != "Vaga PHP Developer" {
		t.Fatalf("title = %q", o.Title)
	}
	if !strings.HasPrefix(o.Description, "Texto da vaga php laravel") {
		t.Fatalf("description = %q", o.Description)
	}
	if !strings.Contains(o.Description, "#php") {
		t.Fatalf("tags missing from description: %q", o.Description)
	}
	if o.Status != opportunity.StatusInactive {
		t.Fatalf("status = %s, want INACTIVE", o.Status)
	}
}

func TestIngestRejectsEmptyPostings(t *testing.T) {
	raw := opportunity.RawPosting{
		Title:       "RE:",
		Description: "Atenciosamente,\nFulano",
	}
	rep := &fakeReporter{}
	src := &fakeFetcher{name: "src", postings: []opportunity.RawPosting{raw}}

	p, repo, tr := newTestPipeline([]fetch.Fetcher{src}, nil, rep)
	if err := p.IngestAll(context.Background()); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(repo.order) != 0 {
		t.Fatalf("empty posting persisted: %d records", len(repo.order))
	}
	if len(tr.sent) != 0 {
		t.Fatalf("empty posting routed to approval")
	}
	if len(rep.tags) != 1 {
		t.Fatalf("rejection not reported: %v", rep.tags)
	}

	if err := p.Ingest(context.Background(), raw); !errors.Is(err, ErrEmptyPosting) {
		t.Fatalf("got %v, want ErrEmptyPosting", err)
	}
}

func TestIngestAllIsolatesFailingSources(t *testing.T) {
	healthy := &fakeFetcher{name: "ok", postings: []opportunity.RawPosting{{
		Title:       "Vaga Go",
		Description: strings.Repeat("golang ", 40),
	}}}
	broken := &fakeFetcher{name: "broken", err: fmt.Errorf("connection refused")}
	rep := &fakeReporter{}

	p, repo, _ := newTestPipeline([]fetch.Fetcher{broken, healthy}, nil, rep)
	if err := p.IngestAll(context.Background()); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(repo.order) != 1 {
		t.Fatalf("healthy source not ingested: %d records", len(repo.order))
	}
	if len(rep.tags) != 1 || !strings.Contains(rep.tags[0], "broken") {
		t.Fatalf("failure not reported: %v", rep.tags)
	}
}

func TestIngestSkipsSeenPostings(t *testing.T) {
	raw := opportunity.RawPosting{Title: "Vaga PHP", Description: strings.Repeat("php ", 60)}
	deduper := &fakeDeduper{}
	src := &fakeFetcher{name: "src", postings: []opportunity.RawPosting{raw}}

	p, repo, _ := newTestPipeline([]fetch.Fetcher{src}, deduper, nil)
	if err := p.IngestAll(context.Background()); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if err := p.IngestAll(context.Background()); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if len(repo.order) != 1 {
		t.Fatalf("duplicate posting ingested: %d records", len(repo.order))
	}
}

func TestIngestRoutesToApproval(t *testing.T) {
	raw := opportunity.RawPosting{Title: "Vaga PHP", Description: strings.Repeat("php laravel ", 30)}
	src := &fakeFetcher{name: "src", postings: []opportunity.RawPosting{raw}}

	p, _, tr := newTestPipeline([]fetch.Fetcher{src}, nil, nil)
	if err := p.IngestAll(context.Background()); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(tr.sent) == 0 {
		t.Fatalf("nothing sent to approval")
	}
	if tr.sent[0].ChatID != 100 {
		t.Fatalf("sent to %d, want admin chat", tr.sent[0].ChatID)
	}
	if _, ok := tr.sent[0].ReplyMarkup.(telegram.InlineKeyboard); !ok {
		t.Fatalf("approval keyboard missing")
	}
}
