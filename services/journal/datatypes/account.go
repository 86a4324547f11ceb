// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the JournAI domain records and the request and
// response bodies of the JSON API.
package datatypes

import (
	"slices"
	"time"
)

const (
	// DefaultTheme is assigned at registration.
	DefaultTheme = "nebula"

	// DefaultUserMemories is the placeholder shown until the user writes
	// their own ground-truth memories.
	DefaultUserMemories = "My name is..."

	// DestructiveConfirmation must be typed verbatim to clear entries or
	// delete an account.
	DestructiveConfirmation = "destroyer_of_worlds"
)

// Account is a registered user together with their three memory buckets.
//
// # Fields
//
//   - UserMemories: user-authored ground truth, free text.
//   - AIMemories: newline-delimited "- " bullets learned from entries.
//   - ForgottenMemories: ordered set of sentences the analysis step must not
//     re-learn. Stored as a native list.
//   - ReminderHour: UTC hour 0-23, nil when reminders are disabled.
type Account struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	PasswordHash      string    `json:"password_hash"`
	Email             string    `json:"email,omitempty"`
	Theme             string    `json:"theme"`
	ReminderHour      *int      `json:"reminder_hour,omitempty"`
	UserMemories      string    `json:"user_memories"`
	AIMemories        string    `json:"ai_memories"`
	ForgottenMemories []string  `json:"forgotten_memories"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewAccount returns an account populated with registration defaults.
func NewAccount(id, username, passwordHash, email string, now time.Time) *Account {
	return &Account{
		ID:                id,
		Username:          username,
		PasswordHash:      passwordHash,
		Email:             email,
		Theme:             DefaultTheme,
		UserMemories:      DefaultUserMemories,
		AIMemories:        "",
		ForgottenMemories: []string{},
		CreatedAt:         now.UTC(),
	}
}

// Clone returns a deep copy so callers can mutate without aliasing the
// forgotten list or reminder hour.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.ForgottenMemories = slices.Clone(a.ForgottenMemories)
	if a.ReminderHour != nil {
		h := *a.ReminderHour
		c.ReminderHour = &h
	}
	return &c
}

// View strips credentials for API responses.
func (a *Account) View() AccountView {
	return AccountView{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		Theme:        a.Theme,
		ReminderHour: a.ReminderHour,
		CreatedAt:    a.CreatedAt,
	}
}

// AccountView is the public projection of an Account.
type AccountView struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	Theme        string    `json:"theme"`
	ReminderHour *int      `json:"reminder_hour,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Memories is the three-bucket snapshot returned by the memories API.
type Memories struct {
	UserMemories      string   `json:"user_memories"`
	AIMemories        string   `json:"ai_memories"`
	ForgottenMemories []string `json:"forgotten_memories"`
}

// MemoriesOf copies the buckets out of an account.
func MemoriesOf(a *Account) Memories {
	forgotten := slices.Clone(a.ForgottenMemories)
	if forgotten == nil {
		forgotten = []string{}
	}
	return Memories{
		UserMemories:      a.UserMemories,
		AIMemories:        a.AIMemories,
		ForgottenMemories: forgotten,
	}
}
