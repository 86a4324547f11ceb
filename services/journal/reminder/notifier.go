// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reminder nudges users who asked for a daily reminder and have not
// written yet today.
//
// Once per UTC hour the scheduler selects accounts whose reminder hour is
// the current hour and that have an email address, skips those that already
// have an entry for today, and hands the rest to a Notifier.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
)

// Reminder is one message to deliver.
type Reminder struct {
	AccountID string
	Username  string
	Email     string
	Subject   string
	Body      string
}

// Notifier delivers reminders.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the log instead of sending mail.
type LogNotifier struct {
	Logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Notify(ctx context.Context, r Reminder) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Journal reminder",
		"account_id", r.AccountID,
		"email", r.Email,
		"subject", r.Subject)
	return nil
}

const reminderSubject = "Your Daily Journal Reminder"

func newReminder(accountID, username, email string) Reminder {
	return Reminder{
		AccountID: accountID,
		Username:  username,
		Email:     email,
		Subject:   reminderSubject,
		Body: fmt.Sprintf("Hi %s,\n\nJust a friendly reminder to take a moment for yourself "+
			"and capture your thoughts for the day.\n\nSee you soon!", username),
	}
}
