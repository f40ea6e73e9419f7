// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs: the pending
// verification digest and event log retention.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/store"
)

// Default schedules.
const (
	DefaultDigestSchedule    = "0 8 * * *"
	DefaultRetentionSchedule = "30 3 * * *"
	DefaultEventRetention    = 90 * 24 * time.Hour
)

// QueueCounter reports the size of the moderation queue.
type QueueCounter interface {
	UnverifiedCounts(ctx context.Context) ([]store.UnverifiedCount, error)
}

// PendingCounts counts the moderation queue of a repository that has no
// aggregate query, such as the Sanity client.
type PendingCounts struct {
	Repo cms.Repository
}

// UnverifiedCounts implements QueueCounter.
func (p PendingCounts) UnverifiedCounts(ctx context.Context) ([]store.UnverifiedCount, error) {
	docs, err := p.Repo.Pending(ctx, "")
	if err != nil {
		return nil, err
	}

	var counts []store.UnverifiedCount
	index := make(map[[2]string]int)
	for _, d := range docs {
		key := [2]string{d.YearID, d.Type}
		i, ok := index[key]
		if !ok {
			i = len(counts)
			index[key] = i
			counts = append(counts, store.UnverifiedCount{YearID: d.YearID, DocType: d.Type})
		}
		counts[i].Count++
	}
	return counts, nil
}

// EventLog is the part of the event service used by the jobs.
type EventLog interface {
	LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Config controls job schedules. Empty fields use the defaults.
type Config struct {
	DigestSchedule    string
	RetentionSchedule string
	EventRetention    time.Duration
}

// JobInfo is the public view of a scheduled job.
type JobInfo struct {
	Name     string
	Schedule string
	NextRun  time.Time
	PrevRun  time.Time
}

// Scheduler handles the periodic jobs.
type Scheduler struct {
	queue  QueueCounter
	events EventLog
	cfg    Config
	cron   *cron.Cron
	logger *slog.Logger
	jobs   map[string]cron.EntryID
}

// New creates a new scheduler instance. events may be nil, in which case
// retention is not scheduled and digests are only logged.
func New(queue QueueCounter, events EventLog, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.DigestSchedule == "" {
		cfg.DigestSchedule = DefaultDigestSchedule
	}
	if cfg.RetentionSchedule == "" {
		cfg.RetentionSchedule = DefaultRetentionSchedule
	}
	if cfg.EventRetention <= 0 {
		cfg.EventRetention = DefaultEventRetention
	}
	return &Scheduler{
		queue:  queue,
		events: events,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger,
		jobs:   make(map[string]cron.EntryID),
	}
}

// ValidateSchedule reports whether spec is a valid five-field cron expression.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if err := s.add("digest", s.cfg.DigestSchedule, func(ctx context.Context) error {
		_, err := s.RunDigest(ctx)
		return err
	}); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.add("event_retention", s.cfg.RetentionSchedule, func(ctx context.Context) error {
			_, err := s.PruneEvents(ctx)
			return err
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

func (s *Scheduler) add(name, spec string, run func(ctx context.Context) error) error {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	s.jobs[name] = id
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Jobs lists the registered jobs with their next run time.
func (s *Scheduler) Jobs() []JobInfo {
	infos := make([]JobInfo, 0, len(s.jobs))
	for _, name := range []string{"digest", "event_retention"} {
		id, ok := s.jobs[name]
		if !ok {
			continue
		}
		entry := s.cron.Entry(id)
		schedule := s.cfg.DigestSchedule
		if name == "event_retention" {
			schedule = s.cfg.RetentionSchedule
		}
		infos = append(infos, JobInfo{
			Name:     name,
			Schedule: schedule,
			NextRun:  entry.Next,
			PrevRun:  entry.Prev,
		})
	}
	return infos
}

// RunDigest logs the number of unverified authors and articles per year.
func (s *Scheduler) RunDigest(ctx context.Context) ([]store.UnverifiedCount, error) {
	counts, err := s.queue.UnverifiedCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting unverified documents: %w", err)
	}

	var authors, articles int64
	perYear := make(map[string]map[string]int64)
	for _, c := range counts {
		s.logger.Info("pending verification",
			"year_id", c.YearID,
			"type", c.DocType,
			"count", c.Count,
		)
		switch c.DocType {
		case model.TypeAuthor:
			authors += c.Count
		case model.TypeArticle:
			articles += c.Count
		}
		if perYear[c.YearID] == nil {
			perYear[c.YearID] = make(map[string]int64)
		}
		perYear[c.YearID][c.DocType] = c.Count
	}

	s.logger.Info("verification digest", "authors", authors, "articles", articles)

	if s.events != nil && authors+articles > 0 {
		_ = s.events.LogSystemEvent(ctx, model.EventLevelInfo,
			fmt.Sprintf("%d authors and %d articles awaiting verification", authors, articles),
			map[string]any{"years": perYear},
		)
	}

	return counts, nil
}

// PruneEvents deletes events older than the configured retention.
func (s *Scheduler) PruneEvents(ctx context.Context) (int64, error) {
	if s.events == nil {
		return 0, nil
	}
	n, err := s.events.DeleteOldEvents(ctx, s.cfg.EventRetention)
	if err != nil {
		return 0, fmt.Errorf("deleting old events: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned event log", "deleted", n, "retention", s.cfg.EventRetention)
	}
	return n, nil
}
