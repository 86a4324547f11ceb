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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "2024-03-09", want: "2024-03-09"},
		{name: "trims whitespace", input: "  2024-12-31 ", want: "2024-12-31"},
		{name: "leap day", input: "2024-02-29", want: "2024-02-29"},
		{name: "not a leap year", input: "2023-02-29", wantErr: true},
		{name: "wrong layout", input: "03/09/2024", wantErr: true},
		{name: "timestamp", input: "2024-03-09T10:00:00Z", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatDate(d))
			assert.Equal(t, time.UTC, time.Time(d).Location())
		})
	}
}

func TestDateOf_TruncatesToUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 02:30 on the 10th at UTC+9 is still the 9th in UTC.
	d := DateOf(time.Date(2024, 3, 10, 2, 30, 0, 0, loc))
	assert.Equal(t, "2024-03-09", FormatDate(d))

	tm := time.Time(d)
	assert.Zero(t, tm.Hour())
	assert.Zero(t, tm.Minute())
}

func TestNewAccount_Defaults(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	a := NewAccount("id-1", "ada", "hash", "ada@example.com", now)

	assert.Equal(t, DefaultTheme, a.Theme)
	assert.Equal(t, DefaultUserMemories, a.UserMemories)
	assert.Empty(t, a.AIMemories)
	assert.NotNil(t, a.ForgottenMemories)
	assert.Empty(t, a.ForgottenMemories)
	assert.Nil(t, a.ReminderHour)
	assert.Equal(t, time.UTC, a.CreatedAt.Location())
	assert.True(t, a.CreatedAt.Equal(now))
}

func TestAccount_CloneIsDeep(t *testing.T) {
	hour := 7
	a := NewAccount("id-1", "ada", "hash", "", time.Now())
	a.ReminderHour = &hour
	a.ForgottenMemories = []string{"Likes tea."}

	c := a.Clone()
	c.ForgottenMemories[0] = "changed"
	*c.ReminderHour = 9

	assert.Equal(t, "Likes tea.", a.ForgottenMemories[0])
	assert.Equal(t, 7, *a.ReminderHour)

	var nilAccount *Account
	assert.Nil(t, nilAccount.Clone())
}

func TestAccount_View(t *testing.T) {
	a := NewAccount("id-1", "ada", "hash", "ada@example.com", time.Now())
	a.AIMemories = "Has a cat."

	v := a.View()
	assert.Equal(t, "id-1", v.ID)
	assert.Equal(t, "ada", v.Username)
	assert.Equal(t, "ada@example.com", v.Email)
	assert.Equal(t, DefaultTheme, v.Theme)
}

func TestMemoriesOf(t *testing.T) {
	a := &Account{UserMemories: "I am Ada.", AIMemories: "Has a cat."}

	m := MemoriesOf(a)
	assert.Equal(t, "I am Ada.", m.UserMemories)
	assert.Equal(t, "Has a cat.", m.AIMemories)
	assert.NotNil(t, m.ForgottenMemories, "nil forgotten list becomes empty")

	a.ForgottenMemories = []string{"Owns a boat."}
	m = MemoriesOf(a)
	m.ForgottenMemories[0] = "mutated"
	assert.Equal(t, "Owns a boat.", a.ForgottenMemories[0])
}

func TestRegisterRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       RegisterRequest
		wantField string
	}{
		{name: "valid", req: RegisterRequest{Username: " ada ", Password: "pw", Email: "ada@example.com"}},
		{name: "no email", req: RegisterRequest{Username: "ada", Password: "pw"}},
		{name: "blank username", req: RegisterRequest{Username: "   ", Password: "pw"}, wantField: "username"},
		{name: "missing password", req: RegisterRequest{Username: "ada"}, wantField: "password"},
		{name: "bad email", req: RegisterRequest{Username: "ada", Password: "pw", Email: "nope"}, wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
			assert.True(t, IsValidationError(err))
		})
	}

	req := RegisterRequest{Username: " ada ", Password: "pw"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "ada", req.Username)
}

func TestUpdateAccountRequest_ReminderHourBounds(t *testing.T) {
	hour := func(h int) *int { return &h }

	assert.NoError(t, (&UpdateAccountRequest{}).Validate())
	assert.NoError(t, (&UpdateAccountRequest{ReminderHour: hour(0)}).Validate())
	assert.NoError(t, (&UpdateAccountRequest{ReminderHour: hour(23)}).Validate())
	assert.Error(t, (&UpdateAccountRequest{ReminderHour: hour(24)}).Validate())
	assert.Error(t, (&UpdateAccountRequest{ReminderHour: hour(-1)}).Validate())
}

func TestSaveEntryRequest_Validate(t *testing.T) {
	assert.NoError(t, (&SaveEntryRequest{Content: "Dear diary"}).Validate())
	assert.Error(t, (&SaveEntryRequest{}).Validate())

	big := make([]byte, MaxEntryContentBytes+1)
	for i := range big {
		big[i] = 'a'
	}
	assert.Error(t, (&SaveEntryRequest{Content: string(big)}).Validate())
}

func TestIsoDateValidation(t *testing.T) {
	type probe struct {
		Day string `validate:"isodate"`
	}
	assert.NoError(t, Validator().Struct(probe{Day: "2024-05-01"}))
	assert.Error(t, Validator().Struct(probe{Day: "2024-13-01"}))
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "passwords do not match", NewValidationError("passwords do not match").Error())
	assert.Equal(t, "email: taken", (&ValidationError{Field: "email", Message: "taken"}).Error())
	assert.False(t, IsValidationError(errors.New("plain")))
}
