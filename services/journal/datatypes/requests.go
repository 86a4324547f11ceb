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
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxEntryContentBytes bounds a single entry body.
const MaxEntryContentBytes = 64 * 1024

// journalValidate is shared by every request type in this package.
var journalValidate *validator.Validate

func init() {
	journalValidate = validator.New()
	_ = journalValidate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
}

// Validator exposes the shared validator so other packages validate with the
// same registered rules.
func Validator() *validator.Validate {
	return journalValidate
}

// ValidationError is a user-facing rejection. It never mutates state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError without a field.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// validateStruct runs the validator and converts the first failure into a
// ValidationError.
func validateStruct(v any) error {
	err := journalValidate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: fmt.Sprintf("failed %q validation", fe.Tag()),
		}
	}
	return &ValidationError{Message: err.Error()}
}

// =============================================================================
// Auth
// =============================================================================

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=80"`
	Password string `json:"password" validate:"required,min=1,max=200"`
	Email    string `json:"email" validate:"omitempty,email,max=120"`
}

func (r *RegisterRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	return validateStruct(r)
}

type LoginResponse struct {
	Token   string      `json:"token"`
	Account AccountView `json:"account"`
}

// =============================================================================
// Entries and Search
// =============================================================================

type SaveEntryRequest struct {
	Content string `json:"content" validate:"required,max=65536"`
}

func (r *SaveEntryRequest) Validate() error {
	return validateStruct(r)
}

type SearchRequest struct {
	Query string `json:"query" validate:"max=1000"`
}

func (r *SearchRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	return validateStruct(r)
}

type SearchResponse struct {
	Query   string          `json:"query"`
	Results []*JournalEntry `json:"results"`
}

// =============================================================================
// Memories
// =============================================================================

type SaveMemoriesRequest struct {
	UserMemories string `json:"user_memories"`
	AIMemories   string `json:"ai_memories"`
}

type MemoryRequest struct {
	Memory string `json:"memory"`
}

// =============================================================================
// Settings
// =============================================================================

// UpdateAccountRequest sets the email and reminder hour together, matching
// the settings form: an empty email clears it and a nil hour disables
// reminders.
type UpdateAccountRequest struct {
	Email        string `json:"email" validate:"omitempty,email,max=120"`
	ReminderHour *int   `json:"reminder_hour" validate:"omitempty,min=0,max=23"`
}

func (r *UpdateAccountRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,max=200"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	return validateStruct(r)
}

type ChangeThemeRequest struct {
	Theme string `json:"theme" validate:"required,max=20"`
}

func (r *ChangeThemeRequest) Validate() error {
	r.Theme = strings.TrimSpace(r.Theme)
	return validateStruct(r)
}

type ConfirmRequest struct {
	ConfirmText string `json:"confirm_text"`
}

// StatusResponse is the generic success body.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
