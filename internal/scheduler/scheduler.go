// Package scheduler wires up the cron jobs that drive ingestion and the
// daily group digest.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"vagasbot/internal/digest"
	"vagasbot/internal/pipeline"
)

type Options struct {
	// ProcessSpec fires ingestion, e.g. "@every 1h".
	ProcessSpec string
	// NotifySpec fires the group digest, e.g. "0 12 * * *".
	NotifySpec string
}

type Scheduler struct {
	cron     *cron.Cron
	pipeline *pipeline.Pipeline
	notifier *digest.Notifier
	opts     Options
	logger   *log.Logger
}

func New(p *pipeline.Pipeline, n *digest.Notifier, opts Options, logger *log.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		pipeline: p,
		notifier: n,
		opts:     opts,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.opts.ProcessSpec, func() {
		if err := s.pipeline.IngestAll(ctx); err != nil {
			s.logf("ingest cycle: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule ingest: %w", err)
	}

	_, err = s.cron.AddFunc(s.opts.NotifySpec, func() {
		if err := s.notifier.Notify(ctx); err != nil {
			s.logf("digest cycle: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}

	s.cron.Start()
	s.logf("started, ingest %q digest %q", s.opts.ProcessSpec, s.opts.NotifySpec)
	return nil
}

// Stop waits for a running job to finish before returning.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logf("stopped")
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf("[Scheduler] "+format, args...)
	}
}
