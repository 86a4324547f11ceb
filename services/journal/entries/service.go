// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package entries saves journal entries and serves the views built on them.
//
// Saving an entry is the one place where the oracle and the memory buckets
// meet: the entry is analyzed against the account's current memories, the
// reply is stored next to the entry, and the facts the oracle extracted are
// folded into the account's AI memories in the same transaction as the
// entry upsert.
package entries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/AleutianAI/journai/services/journal/memory"
	"github.com/AleutianAI/journai/services/journal/observability"
	"github.com/AleutianAI/journai/services/journal/oracle"
	"github.com/AleutianAI/journai/services/journal/storage"
	"github.com/go-openapi/strfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("journai.entries")

// Compile-time interface implementation check.
var _ Oracle = (*oracle.Oracle)(nil)

// Oracle is the subset of the oracle adapter the entry service needs. Every
// method returns a usable value; failures are already mapped to fallbacks.
type Oracle interface {
	Greeting(ctx context.Context, userMemories string) string
	Analyze(ctx context.Context, content, userMemories, aiMemories string, forgotten []string) oracle.Analysis
	Search(ctx context.Context, query, corpus string) []strfmt.Date
}

// Config controls entry processing.
type Config struct {
	// StrictForgetting drops oracle facts that exactly match a forgotten
	// sentence before they are merged. Off by default: the forgotten list is
	// otherwise only an instruction to the oracle.
	StrictForgetting bool `yaml:"strict_forgetting"`
}

// Service implements entry saving and the read views.
//
// # Thread Safety
//
// Safe for concurrent use. Two saves for the same (account, date) are
// last-writer-wins; memory merges are serialized by the store.
type Service struct {
	store   *storage.Store
	oracle  Oracle
	cfg     Config
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService wires the entry service. metrics may be nil.
func NewService(store *storage.Store, o Oracle, cfg Config, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		oracle:  o,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
	}
}

// SetClock overrides the service clock.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SaveEntry creates or overwrites the account's entry for date.
//
// # Description
//
// The oracle is asked for a reply and new facts using the account's three
// memory buckets. An oracle failure never fails the save: the fallback reply
// is stored and no facts are merged. The entry upsert and the memory merge
// commit together.
//
// # Outputs
//
//   - *datatypes.SaveResult: the stored entry, the account's buckets after
//     the merge, and the facts that were actually appended.
//   - error: storage.ErrNotFound when the account does not exist, or a
//     storage failure.
func (s *Service) SaveEntry(ctx context.Context, accountID string, date strfmt.Date, content string) (*datatypes.SaveResult, error) {
	ctx, span := tracer.Start(ctx, "Entries.SaveEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.date", datatypes.FormatDate(date)))

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	analysis := s.oracle.Analyze(ctx, content, account.UserMemories, account.AIMemories, account.ForgottenMemories)

	var result *datatypes.SaveResult
	err = s.store.Update(ctx, func(tx *storage.Tx) error {
		entry := &datatypes.JournalEntry{
			AccountID:  accountID,
			Date:       date,
			Content:    content,
			AIResponse: analysis.Response,
			UpdatedAt:  s.now().UTC(),
		}
		if err := tx.PutEntry(entry); err != nil {
			return err
		}

		current, err := tx.GetAccount(accountID)
		if err != nil {
			return err
		}
		facts := analysis.Facts
		if s.cfg.StrictForgetting {
			facts = memory.FilterForgotten(facts, current.ForgottenMemories)
		}
		merged, added := memory.MergeNewFacts(current.AIMemories, current.ForgottenMemories, facts)
		if len(added) > 0 {
			current.AIMemories = merged
			if err := tx.SaveAccount(current); err != nil {
				return err
			}
		}
		if added == nil {
			added = []string{}
		}
		result = &datatypes.SaveResult{
			Entry:    entry,
			Memories: datatypes.MemoriesOf(current),
			NewFacts: added,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save entry: %w", err)
	}

	s.metrics.RecordEntrySaved(len(result.NewFacts))
	span.SetAttributes(attribute.Int("entry.facts_added", len(result.NewFacts)))
	slog.Info("Entry saved",
		"account_id", accountID,
		"date", datatypes.FormatDate(date),
		"facts_added", len(result.NewFacts))
	return result, nil
}

// GetEntry returns one entry, or storage.ErrNotFound.
func (s *Service) GetEntry(ctx context.Context, accountID string, date strfmt.Date) (*datatypes.JournalEntry, error) {
	var entry *datatypes.JournalEntry
	err := s.store.View(ctx, func(tx *storage.Tx) error {
		var err error
		entry, err = tx.GetEntry(accountID, date)
		return err
	})
	return entry, err
}

// Dashboard returns the oracle greeting and the entries written on today's
// month and day in earlier or later years, newest first.
func (s *Service) Dashboard(ctx context.Context, accountID string) (*datatypes.Dashboard, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	onThisDay, err := s.OnThisDay(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &datatypes.Dashboard{
		Greeting:  s.oracle.Greeting(ctx, account.UserMemories),
		OnThisDay: onThisDay,
	}, nil
}

// OnThisDay lists entries sharing today's month and day but not its year,
// newest first.
func (s *Service) OnThisDay(ctx context.Context, accountID string) ([]*datatypes.JournalEntry, error) {
	today := time.Time(datatypes.DateOf(s.now()))
	all, err := s.store.ListEntries(ctx, accountID)
	if err != nil {
		return nil, err
	}
	matches := []*datatypes.JournalEntry{}
	for i := len(all) - 1; i >= 0; i-- {
		d := time.Time(all[i].Date)
		if d.Month() == today.Month() && d.Day() == today.Day() && d.Year() != today.Year() {
			matches = append(matches, all[i])
		}
	}
	return matches, nil
}

// Week returns seven consecutive days starting at start. A nil start selects
// the most recent Sunday (today when today is a Sunday).
func (s *Service) Week(ctx context.Context, accountID string, start *strfmt.Date) (*datatypes.Week, error) {
	var weekStart time.Time
	if start != nil {
		weekStart = time.Time(*start)
	} else {
		today := time.Time(datatypes.DateOf(s.now()))
		weekStart = today.AddDate(0, 0, -int(today.Weekday()))
	}

	week := &datatypes.Week{
		Start:     strfmt.Date(weekStart),
		PrevStart: strfmt.Date(weekStart.AddDate(0, 0, -7)),
		NextStart: strfmt.Date(weekStart.AddDate(0, 0, 7)),
		Days:      make([]datatypes.WeekDay, 0, 7),
	}
	err := s.store.View(ctx, func(tx *storage.Tx) error {
		for i := 0; i < 7; i++ {
			day := strfmt.Date(weekStart.AddDate(0, 0, i))
			cell := datatypes.WeekDay{Date: day}
			entry, err := tx.GetEntry(accountID, day)
			switch {
			case err == nil:
				cell.Entry = entry
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}
			week.Days = append(week.Days, cell)
		}
		has, err := tx.HasEntries(accountID)
		week.HasAnyEntries = has
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("week view: %w", err)
	}
	return week, nil
}

// Search asks the oracle which of the account's entries match query and
// returns them in ascending date order. A blank query or an empty journal
// returns no results without an oracle call.
func (s *Service) Search(ctx context.Context, accountID, query string) ([]*datatypes.JournalEntry, error) {
	query = strings.TrimSpace(query)
	results := []*datatypes.JournalEntry{}
	if query == "" {
		return results, nil
	}

	all, err := s.store.ListEntries(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return results, nil
	}

	relevant := make(map[string]struct{})
	for _, d := range s.oracle.Search(ctx, query, BuildCorpus(all)) {
		relevant[datatypes.FormatDate(d)] = struct{}{}
	}
	for _, entry := range all {
		if _, ok := relevant[datatypes.FormatDate(entry.Date)]; ok {
			results = append(results, entry)
		}
	}
	slog.Debug("Search completed", "account_id", accountID, "results", len(results))
	return results, nil
}

// BuildCorpus renders entries as the text the search prompt reads: one
// "Date: <d>" header and body per entry, separated by horizontal rules.
func BuildCorpus(entries []*datatypes.JournalEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, "Date: "+datatypes.FormatDate(e.Date)+"\n\n"+e.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
