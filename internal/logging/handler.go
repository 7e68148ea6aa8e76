// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging tees slog records into the audit event log. Records
// at WARN and above are written to the events table in addition to the
// wrapped handler's output.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/store"
)

// EventLogHandler wraps another slog.Handler and mirrors records at or
// above its threshold into the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
}

// NewEventLogHandler wraps inner with the default WARN threshold.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel wraps inner with a custom threshold.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(r)
	}

	return nil
}

func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
	}
}

func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
	}
}

// writeToEventLog persists one record as an event row. A background
// context is used so the row lands even when the request context that
// produced the log line is already cancelled. slog carries no user
// identity, so user_id stays NULL; handlers that know the actor write
// through EventService instead.
func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     h.slogLevelToEventLevel(r.Level),
		Category:  h.extractCategory(r),
		Message:   r.Message,
		UserID:    sql.NullString{},
		Metadata:  h.extractMetadata(r),
		CreatedAt: r.Time,
	})
}

func (h *EventLogHandler) slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// extractCategory resolves the event category: an explicit "category"
// attribute wins, otherwise the message text decides.
func (h *EventLogHandler) extractCategory(r slog.Record) string {
	var category string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			category = a.Value.String()
			return false
		}
		return true
	})
	if category != "" {
		return category
	}

	msg := strings.ToLower(r.Message)
	for _, probe := range []struct {
		keywords []string
		category string
	}{
		{[]string{"auth", "login", "logout", "signup"}, model.EventCategoryAuth},
		{[]string{"pad"}, model.EventCategoryPad},
		{[]string{"user"}, model.EventCategoryUser},
		{[]string{"setting"}, model.EventCategorySettings},
	} {
		for _, kw := range probe.keywords {
			if strings.Contains(msg, kw) {
				return probe.category
			}
		}
	}
	return model.EventCategorySystem
}

// extractMetadata serializes the record's attributes (minus the
// category marker) as a JSON object.
func (h *EventLogHandler) extractMetadata(r slog.Record) string {
	attrs := make(map[string]any, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "category" {
			attrs[a.Key] = a.Value.Any()
		}
		return true
	})
	if len(attrs) == 0 {
		return "{}"
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		// Attribute values may hold unmarshalable types; keep the
		// keys at least.
		return fmt.Sprintf(`{"_marshal_error":%q}`, err.Error())
	}
	return string(data)
}
