// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler promotes configurations whose scheduled publish time has
// passed.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/assaka/daino-composer/internal/composer"
	"github.com/assaka/daino-composer/internal/model"
	"github.com/assaka/daino-composer/internal/store"
)

// actor stamped on publishes triggered by the scheduler.
const scheduledActor = "scheduler"

// Scheduler sweeps for configurations due for publishing.
type Scheduler struct {
	db        *sql.DB
	publisher *composer.Publisher
	cron      *cron.Cron
	logger    *slog.Logger
}

// New creates a new scheduler instance.
func New(db *sql.DB, publisher *composer.Publisher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:        db,
		publisher: publisher,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start begins the scheduler with a job to check for due configurations
// every minute.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("* * * * *", func() {
		if err := s.ProcessDue(context.Background()); err != nil {
			s.logger.Error("failed to process scheduled publishes", "category", model.EventCategoryPublish, "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// ProcessDue publishes every configuration whose scheduled time has passed.
// Failures are logged per configuration and never block the rest of the
// sweep; a conflicting manual publish simply wins.
func (s *Scheduler) ProcessDue(ctx context.Context) error {
	queries := store.New(s.db)

	due, err := queries.ListDueScheduledConfigurations(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	s.logger.Info("processing scheduled publishes", "category", model.EventCategoryPublish, "count", len(due))

	for _, cfg := range due {
		if _, err := s.publisher.Publish(ctx, cfg.ID, model.StatusPublished, scheduledActor); err != nil {
			s.logger.Warn("scheduled publish failed",
				"category", model.EventCategoryPublish,
				"configuration_id", cfg.ID,
				"tenant_id", cfg.TenantID,
				"page_type", cfg.PageType,
				"error", err,
			)
			// Drop the schedule so a permanently broken draft is not retried
			// every minute.
			_ = queries.SetScheduledAt(ctx, store.SetScheduledAtParams{
				ID:          cfg.ID,
				ScheduledAt: sql.NullTime{},
				UpdatedAt:   time.Now().UTC(),
			})
		}
	}
	return nil
}
