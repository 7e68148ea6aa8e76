// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic above the store: event
// logging for the audit trail and credential/account operations.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/store"
)

// EventService records audit events.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db store.DBTX) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry. userID may be nil for
// anonymous actions.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *string, metadata map[string]any) error {
	var nullUserID sql.NullString
	if userID != nil {
		nullUserID = sql.NullString{String: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		if jsonBytes, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		Metadata:  metadataJSON,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to log event", "error", err, "category", category)
		return err
	}
	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID *string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, metadata)
}

// LogUserEvent logs a user-management event.
func (s *EventService) LogUserEvent(ctx context.Context, level, message string, userID *string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryUser, message, userID, metadata)
}

// LogPadEvent logs a pad-related event.
func (s *EventService) LogPadEvent(ctx context.Context, level, message string, userID *string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryPad, message, userID, metadata)
}

// LogSettingsEvent logs an admission-policy change.
func (s *EventService) LogSettingsEvent(ctx context.Context, level, message string, userID *string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySettings, message, userID, metadata)
}
