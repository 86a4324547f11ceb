// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/AleutianAI/journai/services/journal/observability"
	"github.com/AleutianAI/journai/services/journal/storage"
)

// Result summarizes one reminder pass.
type Result struct {
	Hour       int
	Candidates int
	Sent       int
	Skipped    int
	Failed     int
	StartTime  time.Time
	EndTime    time.Time
}

// Duration returns how long the pass took.
func (r Result) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Scheduler runs a reminder pass at the top of every UTC hour.
//
// # Thread Safety
//
// Start, Stop and RunNow are safe to call concurrently. Passes started by
// RunNow may overlap with a scheduled pass; a reminder can then be sent
// twice in the same hour.
type Scheduler struct {
	store    *storage.Store
	notifier Notifier
	metrics  *observability.Metrics
	now      func() time.Time

	mu      sync.Mutex
	running bool
	done    chan struct{}
	stopped chan struct{}
}

// NewScheduler builds a scheduler. metrics may be nil.
func NewScheduler(store *storage.Store, notifier Notifier, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		now:      time.Now,
	}
}

// SetClock overrides the scheduler clock.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start launches the hourly loop. It returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("reminder scheduler is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})

	slog.Info("Reminder scheduler starting")
	go s.runLoop(ctx, s.done, s.stopped)
	return nil
}

// Stop ends the loop and waits for an in-flight pass to finish. Stopping a
// stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	stopped := s.stopped
	s.mu.Unlock()

	<-stopped
	slog.Info("Reminder scheduler stopped")
}

func (s *Scheduler) runLoop(ctx context.Context, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		timer := time.NewTimer(untilNextHour(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-done:
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.RunNow(ctx); err != nil {
				slog.Error("Reminder pass failed", "error", err)
			}
		}
	}
}

// untilNextHour returns the wait until the next full hour, never less than
// one second.
func untilNextHour(now time.Time) time.Duration {
	d := now.Truncate(time.Hour).Add(time.Hour).Sub(now)
	if d < time.Second {
		d = time.Second
	}
	return d
}

// RunNow performs one reminder pass for the current UTC hour.
//
// # Description
//
// Per-account failures are logged and counted; they do not stop the pass.
// Only a failure to list accounts is returned.
func (s *Scheduler) RunNow(ctx context.Context) (Result, error) {
	now := s.now().UTC()
	result := Result{Hour: now.Hour(), StartTime: now}
	today := datatypes.DateOf(now)

	var due []*datatypes.Account
	err := s.store.View(ctx, func(tx *storage.Tx) error {
		all, err := tx.ListAccounts()
		if err != nil {
			return err
		}
		for _, a := range all {
			if a.ReminderHour == nil || *a.ReminderHour != result.Hour || a.Email == "" {
				continue
			}
			_, err := tx.GetEntry(a.ID, today)
			switch {
			case err == nil:
				result.Skipped++
				s.metrics.RecordReminder(observability.ReminderSkipped)
			case errors.Is(err, storage.ErrNotFound):
				due = append(due, a)
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("list reminder candidates: %w", err)
	}
	result.Candidates = len(due) + result.Skipped

	for _, a := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.notifier.Notify(ctx, newReminder(a.ID, a.Username, a.Email)); err != nil {
			result.Failed++
			s.metrics.RecordReminder(observability.ReminderFailed)
			slog.Error("Reminder delivery failed", "account_id", a.ID, "error", err)
			continue
		}
		result.Sent++
		s.metrics.RecordReminder(observability.ReminderSent)
	}

	result.EndTime = s.now().UTC()
	if result.Candidates > 0 {
		slog.Info("Reminder pass completed",
			"hour", result.Hour,
			"sent", result.Sent,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"duration_ms", result.Duration().Milliseconds())
	} else {
		slog.Debug("Reminder pass completed (no candidates)", "hour", result.Hour)
	}
	return result, nil
}
