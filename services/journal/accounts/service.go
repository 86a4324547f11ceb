// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package accounts implements registration, login, settings and the memory
// bucket API of an account.
//
// # Description
//
// Every rejection a user can cause (taken username, wrong password, bad
// confirmation text) is a *datatypes.ValidationError carrying the message to
// show, and leaves stored state untouched.
//
// # Thread Safety
//
// Safe for concurrent use. Read-modify-write operations on an account run in
// one store transaction.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/journai/pkg/audit"
	"github.com/AleutianAI/journai/pkg/auth"
	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/AleutianAI/journai/services/journal/memory"
	"github.com/AleutianAI/journai/services/journal/observability"
	"github.com/AleutianAI/journai/services/journal/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User-facing rejection messages.
const (
	MsgUsernameTaken       = "Username already exists."
	MsgEmailTaken          = "Email address is already in use."
	MsgInvalidCredentials  = "Invalid username or password."
	MsgWrongPassword       = "Current password is incorrect."
	MsgPasswordMismatch    = "New passwords do not match."
	MsgConfirmationInvalid = "Confirmation text was incorrect."
)

// ErrInvalidCredentials is returned by Login for an unknown username or a
// wrong password. The two cases are indistinguishable to the caller.
var ErrInvalidCredentials = datatypes.NewValidationError(MsgInvalidCredentials)

// Service owns account records.
type Service struct {
	store      *storage.Store
	issuer     auth.TokenIssuer
	metrics    *observability.Metrics
	audit      audit.Logger
	bcryptCost int
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithAuditLogger sends account events to l instead of discarding them.
func WithAuditLogger(l audit.Logger) Option {
	return func(s *Service) { s.audit = l }
}

// NewService wires the account service. metrics may be nil.
func NewService(store *storage.Store, issuer auth.TokenIssuer, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		store:      store,
		issuer:     issuer,
		metrics:    metrics,
		audit:      audit.NopLogger{},
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// Registration and login
// =============================================================================

// Register creates an account with default theme and memories.
func (s *Service) Register(ctx context.Context, req datatypes.RegisterRequest) (*datatypes.AccountView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := datatypes.NewAccount(uuid.NewString(), req.Username, string(hash), req.Email, s.now())
	err = s.store.Update(ctx, func(tx *storage.Tx) error {
		return tx.CreateAccount(account)
	})
	switch {
	case errors.Is(err, storage.ErrUsernameTaken):
		return nil, datatypes.NewValidationError(MsgUsernameTaken)
	case errors.Is(err, storage.ErrEmailTaken):
		return nil, datatypes.NewValidationError(MsgEmailTaken)
	case err != nil:
		return nil, fmt.Errorf("register: %w", err)
	}

	slog.Info("Account registered", "account_id", account.ID)
	s.record(ctx, audit.EventRegister, account.ID, nil, map[string]any{"username": account.Username})
	view := account.View()
	return &view, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, req datatypes.LoginRequest) (*datatypes.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, ErrInvalidCredentials
	}

	var account *datatypes.Account
	err := s.store.View(ctx, func(tx *storage.Tx) error {
		var err error
		account, err = tx.GetAccountByUsername(req.Username)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		s.record(ctx, audit.EventLoginFailed, "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		s.record(ctx, audit.EventLoginFailed, account.ID, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(account.ID, account.Username)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	s.record(ctx, audit.EventLogin, account.ID, nil, nil)
	return &datatypes.LoginResponse{Token: token, Account: account.View()}, nil
}

// =============================================================================
// Settings
// =============================================================================

// GetAccount returns the public view of an account.
func (s *Service) GetAccount(ctx context.Context, accountID string) (*datatypes.AccountView, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	view := account.View()
	return &view, nil
}

// UpdateAccount sets the email and reminder hour. An empty email clears it;
// a nil hour disables reminders.
func (s *Service) UpdateAccount(ctx context.Context, accountID string, req datatypes.UpdateAccountRequest) (*datatypes.AccountView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	account, err := s.mutate(ctx, accountID, func(a *datatypes.Account) error {
		a.Email = req.Email
		a.ReminderHour = req.ReminderHour
		return nil
	})
	if errors.Is(err, storage.ErrEmailTaken) {
		return nil, datatypes.NewValidationError(MsgEmailTaken)
	}
	if err != nil {
		return nil, err
	}
	view := account.View()
	return &view, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, accountID string, req datatypes.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	_, err := s.mutate(ctx, accountID, func(a *datatypes.Account) error {
		if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.CurrentPassword)) != nil {
			return datatypes.NewValidationError(MsgWrongPassword)
		}
		if req.NewPassword != req.ConfirmPassword {
			return datatypes.NewValidationError(MsgPasswordMismatch)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		a.PasswordHash = string(hash)
		return nil
	})
	if err == nil || datatypes.IsValidationError(err) {
		s.record(ctx, audit.EventPasswordChange, accountID, err, nil)
	}
	return err
}

// ChangeTheme stores the UI theme name.
func (s *Service) ChangeTheme(ctx context.Context, accountID string, req datatypes.ChangeThemeRequest) (*datatypes.AccountView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	account, err := s.mutate(ctx, accountID, func(a *datatypes.Account) error {
		a.Theme = req.Theme
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := account.View()
	return &view, nil
}

// ClearEntries deletes every entry of the account once the confirmation text
// matches. It returns how many entries were removed.
func (s *Service) ClearEntries(ctx context.Context, accountID string, req datatypes.ConfirmRequest) (int, error) {
	if req.ConfirmText != datatypes.DestructiveConfirmation {
		return 0, datatypes.NewValidationError(MsgConfirmationInvalid)
	}
	var removed int
	err := s.store.Update(ctx, func(tx *storage.Tx) error {
		if _, err := tx.GetAccount(accountID); err != nil {
			return err
		}
		var err error
		removed, err = tx.DeleteEntries(accountID)
		return err
	})
	if err != nil {
		return 0, err
	}
	slog.Info("Entries cleared", "account_id", accountID, "removed", removed)
	s.record(ctx, audit.EventEntriesCleared, accountID, nil, map[string]any{"removed": removed})
	return removed, nil
}

// DeleteAccount removes the account and all of its entries once the
// confirmation text matches.
func (s *Service) DeleteAccount(ctx context.Context, accountID string, req datatypes.ConfirmRequest) error {
	if req.ConfirmText != datatypes.DestructiveConfirmation {
		return datatypes.NewValidationError(MsgConfirmationInvalid)
	}
	err := s.store.Update(ctx, func(tx *storage.Tx) error {
		return tx.DeleteAccount(accountID)
	})
	if err != nil {
		return err
	}
	slog.Info("Account deleted", "account_id", accountID)
	s.record(ctx, audit.EventAccountDeleted, accountID, nil, nil)
	return nil
}

// =============================================================================
// Memories
// =============================================================================

// GetMemories returns the three buckets.
func (s *Service) GetMemories(ctx context.Context, accountID string) (*datatypes.Memories, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	m := datatypes.MemoriesOf(account)
	return &m, nil
}

// SaveMemories overwrites the two text buckets. The forgotten list is kept.
func (s *Service) SaveMemories(ctx context.Context, accountID string, req datatypes.SaveMemoriesRequest) (*datatypes.Memories, error) {
	return s.updateMemories(ctx, accountID, observability.MemorySave, func(a *datatypes.Account) {
		a.UserMemories = req.UserMemories
		a.AIMemories = req.AIMemories
	})
}

// Forget removes matching AI memory lines and records the sentence as
// forgotten. A blank sentence changes nothing.
func (s *Service) Forget(ctx context.Context, accountID, sentence string) (*datatypes.Memories, error) {
	return s.updateMemories(ctx, accountID, observability.MemoryForget, func(a *datatypes.Account) {
		applyBuckets(a, bucketsOf(a).Forget(sentence))
	})
}

// Reinstate appends the sentence as an AI memory line and removes it from
// the forgotten list. A blank sentence changes nothing.
func (s *Service) Reinstate(ctx context.Context, accountID, sentence string) (*datatypes.Memories, error) {
	return s.updateMemories(ctx, accountID, observability.MemoryReinstate, func(a *datatypes.Account) {
		applyBuckets(a, bucketsOf(a).Reinstate(sentence))
	})
}

// ClearMemories empties the AI memories and the forgotten list. User
// memories are kept.
func (s *Service) ClearMemories(ctx context.Context, accountID string) (*datatypes.Memories, error) {
	return s.updateMemories(ctx, accountID, observability.MemoryClear, func(a *datatypes.Account) {
		applyBuckets(a, bucketsOf(a).Clear())
	})
}

func (s *Service) updateMemories(ctx context.Context, accountID, op string, fn func(a *datatypes.Account)) (*datatypes.Memories, error) {
	account, err := s.mutate(ctx, accountID, func(a *datatypes.Account) error {
		fn(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMemoryOperation(op)
	slog.Debug("Memories updated", "account_id", accountID, "operation", op)
	m := datatypes.MemoriesOf(account)
	return &m, nil
}

// mutate loads, changes and saves an account in one transaction.
func (s *Service) mutate(ctx context.Context, accountID string, fn func(a *datatypes.Account) error) (*datatypes.Account, error) {
	var account *datatypes.Account
	err := s.store.Update(ctx, func(tx *storage.Tx) error {
		a, err := tx.GetAccount(accountID)
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		account = a
		return tx.SaveAccount(a)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func bucketsOf(a *datatypes.Account) memory.Buckets {
	return memory.Buckets{AIMemories: a.AIMemories, ForgottenMemories: a.ForgottenMemories}
}

func applyBuckets(a *datatypes.Account, b memory.Buckets) {
	a.AIMemories = b.AIMemories
	a.ForgottenMemories = b.ForgottenMemories
}

// record forwards an event to the audit logger. A non-nil cause marks the
// event as failed.
func (s *Service) record(ctx context.Context, eventType, accountID string, cause error, meta map[string]any) {
	ev := audit.Event{
		Type:      eventType,
		AccountID: accountID,
		Outcome:   audit.OutcomeSuccess,
		Metadata:  meta,
	}
	if cause != nil {
		ev.Outcome = audit.OutcomeFailure
		if ev.Metadata == nil {
			ev.Metadata = map[string]any{}
		}
		ev.Metadata["reason"] = cause.Error()
	}
	if err := s.audit.Log(ctx, ev); err != nil {
		slog.Warn("Audit log failed", "type", eventType, "error", err)
	}
}
