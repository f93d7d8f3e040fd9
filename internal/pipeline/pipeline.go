// Package pipeline drives ingestion: fetch raw postings from every
// source, normalize them, persist and hand them to approval.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"vagasbot/internal/approval"
	"vagasbot/internal/fetch"
	"vagasbot/internal/normalize"
	"vagasbot/internal/opportunity"
	"vagasbot/internal/repository"
	"vagasbot/internal/tags"
)

// Deduper remembers already-seen postings across runs. The redis
// implementation degrades to always-unseen when the server is down.
type Deduper interface {
	Seen(ctx context.Context, title, description string) (bool, error)
	MarkSeen(ctx context.Context, title, description string) error
}

type Reporter interface {
	Record(ctx context.Context, tag string, cause error, extra any)
}

// ErrEmptyPosting rejects postings whose title or description
// normalizes to nothing, before anything is persisted.
var ErrEmptyPosting = errors.New("posting is empty after normalization")

type Pipeline struct {
	fetchers []fetch.Fetcher
	repo     repository.OpportunityRepository
	workflow *approval.Workflow
	deduper  Deduper
	reporter Reporter
	logger   *log.Logger
}

func New(
	fetchers []fetch.Fetcher,
	repo repository.OpportunityRepository,
	workflow *approval.Workflow,
	deduper Deduper,
	reporter Reporter,
	logger *log.Logger,
) *Pipeline {
	return &Pipeline{
		fetchers: fetchers,
		repo:     repo,
		workflow: workflow,
		deduper:  deduper,
		reporter: reporter,
		logger:   logger,
	}
}

// IngestAll runs every fetcher and routes its postings to approval. A
// failing source or posting is reported and skipped; one broken feed
// never stops the others.
func (p *Pipeline) IngestAll(ctx context.Context) error {
	if p == nil || p.repo == nil {
		return fmt.Errorf("nil pipeline/repository")
	}
	for _, f := range p.fetchers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		postings, err := f.Fetch(ctx)
		if err != nil {
			p.report(ctx, "FALHA_AO_PROCESSAR_"+f.Name(), err, nil)
			continue
		}
		p.logf("%s produced %d postings", f.Name(), len(postings))
		for _, raw := range postings {
			if err := p.ingest(ctx, raw); err != nil {
				p.report(ctx, "FALHA_AO_PROCESSAR_OPORTUNIDADE", err, raw.Title)
			}
		}
	}
	return nil
}

// Ingest normalizes one raw posting, persists it as INACTIVE and sends
// it to approval. Postings already seen in a previous run are dropped.
func (p *Pipeline) Ingest(ctx context.Context, raw opportunity.RawPosting) error {
	return p.ingest(ctx, raw)
}

func (p *Pipeline) ingest(ctx context.Context, raw opportunity.RawPosting) error {
	title := normalize.SanitizeTitle(raw.Title)
	description := normalize.Normalize(raw.Description)
	if title == "" || description == "" {
		return fmt.Errorf("%w: %q", ErrEmptyPosting, raw.Title)
	}
	description += tags.Extract(raw.Title, description)

	if p.deduper != nil {
		seen, err := p.deduper.Seen(ctx, title, description)
		if err == nil && seen {
			p.logf("skipping duplicate %q", title)
			return nil
		}
	}

	o := opportunity.Opportunity{
		Title:       title,
		Description: description,
		Company:     raw.Company,
		Location:    raw.Location,
		Files:       raw.Files,
		Status:      opportunity.StatusInactive,
	}
	if err := p.repo.Create(ctx, &o); err != nil {
		return fmt.Errorf("persist posting: %w", err)
	}
	if p.deduper != nil {
		_ = p.deduper.MarkSeen(ctx, title, description)
	}

	if p.workflow == nil {
		return nil
	}
	if err := p.workflow.SendToApproval(ctx, o, nil); err != nil {
		return fmt.Errorf("send to approval: %w", err)
	}
	return nil
}

func (p *Pipeline) report(ctx context.Context, tag string, err error, extra any) {
	if p.reporter != nil {
		p.reporter.Record(ctx, tag, err, extra)
		return
	}
	p.logf("%s: %v", tag, err)
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf("[Pipeline] "+format, args...)
	}
}
