// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit records security-relevant account events.
//
// Events cover authentication and the destructive account operations. The
// default Logger writes them through slog under the "audit" group; NopLogger
// discards them.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event types.
const (
	EventRegister       = "auth.register"
	EventLogin          = "auth.login"
	EventLoginFailed    = "auth.failed"
	EventPasswordChange = "account.password"
	EventEntriesCleared = "data.delete"
	EventAccountDeleted = "account.delete"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event is one audit record.
//
// # Fields
//
//   - Type: "category.action", one of the Event* constants.
//   - Timestamp: set to now (UTC) by the logger when zero.
//   - AccountID: the acting account. Empty for failed logins of unknown users.
//   - Outcome: OutcomeSuccess or OutcomeFailure.
//   - Metadata: event-specific details such as "removed" or "username".
type Event struct {
	Type      string
	Timestamp time.Time
	AccountID string
	Outcome   string
	Metadata  map[string]any
}

// Logger records audit events. Implementations must be safe for concurrent
// use and must not block the request path for long.
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// NopLogger discards all events.
type NopLogger struct{}

// Log discards the event.
func (NopLogger) Log(context.Context, Event) error {
	return nil
}

// SlogLogger writes events as structured log records.
type SlogLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewSlogLogger writes to logger, or slog.Default when nil.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger, now: time.Now}
}

// Log emits the event at info level, or warn level for failures.
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	level := slog.LevelInfo
	if event.Outcome == OutcomeFailure {
		level = slog.LevelWarn
	}

	attrs := []any{
		slog.String("type", event.Type),
		slog.Time("timestamp", event.Timestamp),
		slog.String("outcome", event.Outcome),
	}
	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.Log(ctx, level, "audit event", slog.Group("audit", attrs...))
	return nil
}

var (
	_ Logger = NopLogger{}
	_ Logger = (*SlogLogger)(nil)
)
