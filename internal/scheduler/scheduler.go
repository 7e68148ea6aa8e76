// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/store"
)

// Scheduler handles scheduled maintenance like pruning abandoned pads.
type Scheduler struct {
	db     *sql.DB
	cron   *cron.Cron
	logger *slog.Logger

	// prunePadsAfter is how long an empty anonymous pad may sit
	// untouched before it is removed. Zero disables pruning.
	prunePadsAfter time.Duration
}

// New creates a new scheduler instance.
func New(db *sql.DB, logger *slog.Logger, prunePadsAfterDays int) *Scheduler {
	return &Scheduler{
		db:             db,
		cron:           cron.New(),
		logger:         logger,
		prunePadsAfter: time.Duration(prunePadsAfterDays) * 24 * time.Hour,
	}
}

// Start begins the scheduler with an hourly job to prune stale anonymous pads.
func (s *Scheduler) Start() error {
	if s.prunePadsAfter <= 0 {
		s.logger.Info("pad pruning disabled")
		return nil
	}

	_, err := s.cron.AddFunc("@hourly", func() {
		if err := s.PruneStalePads(context.Background()); err != nil {
			s.logger.Error("failed to prune stale pads", "error", err)
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

// PruneStalePads removes empty anonymous pads that have not been touched
// within the configured retention window, and records the prune in the
// event log when anything was removed.
func (s *Scheduler) PruneStalePads(ctx context.Context) error {
	queries := store.New(s.db)

	now := time.Now()
	cutoff := now.Add(-s.prunePadsAfter)

	removed, err := queries.DeleteStaleAnonymousPads(ctx, cutoff)
	if err != nil {
		return err
	}

	if removed == 0 {
		return nil
	}

	s.logger.Info("pruned stale anonymous pads", "count", removed, "cutoff", cutoff)

	metadata := map[string]any{
		"removed": removed,
		"cutoff":  cutoff.Format(time.RFC3339),
	}
	metadataJSON, _ := json.Marshal(metadata)

	_, err = queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     model.EventLevelInfo,
		Category:  model.EventCategoryPad,
		Message:   "Stale anonymous pads pruned",
		UserID:    sql.NullString{}, // System action, no user
		Metadata:  string(metadataJSON),
		CreatedAt: now,
	})
	if err != nil {
		s.logger.Warn("failed to log pad prune event", "error", err)
	}

	return nil
}
