// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
)

// DateLayout is the ISO calendar date used in URLs, keys and oracle output.
const DateLayout = strfmt.RFC3339FullDate

// JournalEntry is the single entry an account may hold for a calendar date.
type JournalEntry struct {
	AccountID  string      `json:"-"`
	Date       strfmt.Date `json:"date"`
	Content    string      `json:"content"`
	AIResponse string      `json:"ai_response,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar date.
func ParseDate(s string) (strfmt.Date, error) {
	s = strings.TrimSpace(s)
	if !strfmt.IsDate(s) {
		return strfmt.Date{}, fmt.Errorf("invalid date %q: want %s", s, DateLayout)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return strfmt.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return strfmt.Date(t), nil
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) strfmt.Date {
	u := t.UTC()
	return strfmt.Date(time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC))
}

// FormatDate renders d as YYYY-MM-DD.
func FormatDate(d strfmt.Date) string {
	return time.Time(d).Format(DateLayout)
}

// WeekDay is one cell of the week view.
type WeekDay struct {
	Date  strfmt.Date   `json:"date"`
	Entry *JournalEntry `json:"entry,omitempty"`
}

// Week is the seven-day journal view.
type Week struct {
	Start         strfmt.Date `json:"week_start"`
	PrevStart     strfmt.Date `json:"prev_week_start"`
	NextStart     strfmt.Date `json:"next_week_start"`
	Days          []WeekDay   `json:"days"`
	HasAnyEntries bool        `json:"has_any_entry"`
}

// Dashboard is the landing view: a greeting and past entries from today's
// month and day.
type Dashboard struct {
	Greeting  string          `json:"greeting"`
	OnThisDay []*JournalEntry `json:"on_this_day"`
}

// SaveResult is returned after an entry save.
type SaveResult struct {
	Entry    *JournalEntry `json:"entry"`
	Memories Memories      `json:"memories"`
	NewFacts []string      `json:"new_facts"`
}
