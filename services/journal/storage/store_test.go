// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func mustDate(t *testing.T, s string) strfmt.Date {
	t.Helper()
	d, err := datatypes.ParseDate(s)
	require.NoError(t, err)
	return d
}

func createAccount(t *testing.T, s *Store, id, username, email string) *datatypes.Account {
	t.Helper()
	account := datatypes.NewAccount(id, username, "hash", email, time.Now())
	require.NoError(t, s.Update(context.Background(), func(tx *Tx) error {
		return tx.CreateAccount(account)
	}))
	return account
}

// =============================================================================
// DB
// =============================================================================

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestOpenPersistent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Path = dir
	cfg.SyncWrites = false

	db, err := Open(cfg)
	require.NoError(t, err)
	s := NewStore(db)
	createAccount(t, s, "a1", "alex", "")
	require.NoError(t, db.Close())
	require.NoError(t, db.Close(), "Close is idempotent")

	db2, err := Open(cfg)
	require.NoError(t, err)
	defer db2.Close()
	got, err := NewStore(db2).GetAccount(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "alex", got.Username)
}

func TestConfigFunctions(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.SyncWrites)
	assert.Equal(t, 5*time.Minute, cfg.GCInterval)

	mem := InMemoryConfig()
	assert.True(t, mem.InMemory)
	assert.Zero(t, mem.GCInterval)
}

func TestUpdate_ContextCancelled(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Update(ctx, func(tx *Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("boom")
	err := s.Update(context.Background(), func(tx *Tx) error {
		if err := tx.CreateAccount(datatypes.NewAccount("a1", "alex", "h", "", time.Now())); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetAccount(context.Background(), "a1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// Accounts
// =============================================================================

func TestCreateAccount_Indexes(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "a1", "alex", "Alex@Example.com")

	err := s.View(context.Background(), func(tx *Tx) error {
		byName, err := tx.GetAccountByUsername("alex")
		require.NoError(t, err)
		assert.Equal(t, "a1", byName.ID)

		owner, err := tx.EmailOwner("alex@example.com")
		require.NoError(t, err)
		assert.Equal(t, "a1", owner)
		return nil
	})
	require.NoError(t, err)
}

func TestCreateAccount_Duplicates(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "a1", "alex", "alex@example.com")

	err := s.Update(context.Background(), func(tx *Tx) error {
		return tx.CreateAccount(datatypes.NewAccount("a2", "alex", "h", "", time.Now()))
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	err = s.Update(context.Background(), func(tx *Tx) error {
		return tx.CreateAccount(datatypes.NewAccount("a3", "sam", "h", "ALEX@example.com", time.Now()))
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSaveAccount_MovesEmailIndex(t *testing.T) {
	s := newTestStore(t)
	account := createAccount(t, s, "a1", "alex", "old@example.com")
	createAccount(t, s, "a2", "sam", "sam@example.com")
	ctx := context.Background()

	account.Email = "sam@example.com"
	err := s.Update(ctx, func(tx *Tx) error { return tx.SaveAccount(account) })
	assert.ErrorIs(t, err, ErrEmailTaken)

	account.Email = "new@example.com"
	require.NoError(t, s.Update(ctx, func(tx *Tx) error { return tx.SaveAccount(account) }))

	err = s.View(ctx, func(tx *Tx) error {
		_, err := tx.EmailOwner("old@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		owner, err := tx.EmailOwner("new@example.com")
		require.NoError(t, err)
		assert.Equal(t, "a1", owner)
		return nil
	})
	require.NoError(t, err)

	account.Email = ""
	require.NoError(t, s.Update(ctx, func(tx *Tx) error { return tx.SaveAccount(account) }))
	err = s.View(ctx, func(tx *Tx) error {
		_, err := tx.EmailOwner("new@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestSaveAccount_PreservesMemoriesAndList(t *testing.T) {
	s := newTestStore(t)
	account := createAccount(t, s, "a1", "alex", "")
	account.AIMemories = "- User went running."
	account.ForgottenMemories = []string{"User likes tea."}
	require.NoError(t, s.Update(context.Background(), func(tx *Tx) error { return tx.SaveAccount(account) }))

	got, err := s.GetAccount(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "- User went running.", got.AIMemories)
	assert.Equal(t, []string{"User likes tea."}, got.ForgottenMemories)
	assert.Equal(t, datatypes.DefaultTheme, got.Theme)
}

func TestDeleteAccount_Cascades(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "a1", "alex", "alex@example.com")
	createAccount(t, s, "a2", "sam", "")
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		for _, e := range []*datatypes.JournalEntry{
			{AccountID: "a1", Date: mustDate(t, "2024-01-01"), Content: "one"},
			{AccountID: "a1", Date: mustDate(t, "2024-01-02"), Content: "two"},
			{AccountID: "a2", Date: mustDate(t, "2024-01-01"), Content: "other"},
		} {
			if err := tx.PutEntry(e); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.Update(ctx, func(tx *Tx) error { return tx.DeleteAccount("a1") }))

	_, err := s.GetAccount(ctx, "a1")
	assert.ErrorIs(t, err, ErrNotFound)
	entries, err := s.ListEntries(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	others, err := s.ListEntries(ctx, "a2")
	require.NoError(t, err)
	assert.Len(t, others, 1)

	// The username and email are free again.
	createAccount(t, s, "a3", "alex", "alex@example.com")
}

func TestListAccounts(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "a1", "alex", "")
	createAccount(t, s, "a2", "sam", "")

	var accounts []*datatypes.Account
	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		var err error
		accounts, err = tx.ListAccounts()
		return err
	}))
	assert.Len(t, accounts, 2)
}

// =============================================================================
// Entries
// =============================================================================

func TestEntries_OnePerDateAndOrdered(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "a1", "alex", "")
	ctx := context.Background()

	put := func(date, content string) {
		require.NoError(t, s.Update(ctx, func(tx *Tx) error {
			return tx.PutEntry(&datatypes.JournalEntry{AccountID: "a1", Date: mustDate(t, date), Content: content})
		}))
	}
	put("2024-03-02", "second")
	put("2024-03-01", "first")
	put("2024-03-02", "second, edited")

	entries, err := s.ListEntries(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Content)
	assert.Equal(t, "second, edited", entries[1].Content)
	assert.Equal(t, "a1", entries[1].AccountID)
}

func TestGetEntry_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.View(context.Background(), func(tx *Tx) error {
		_, err := tx.GetEntry("a1", mustDate(t, "2024-01-01"))
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHasEntriesAndDeleteEntries(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "a1", "alex", "")
	ctx := context.Background()

	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		has, err := tx.HasEntries("a1")
		assert.False(t, has)
		return err
	}))

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		return tx.PutEntry(&datatypes.JournalEntry{AccountID: "a1", Date: mustDate(t, "2024-01-01"), Content: "x"})
	}))

	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		has, err := tx.HasEntries("a1")
		assert.True(t, has)
		return err
	}))

	var removed int
	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		var err error
		removed, err = tx.DeleteEntries("a1")
		return err
	}))
	assert.Equal(t, 1, removed)

	_, err := s.GetAccount(ctx, "a1")
	assert.NoError(t, err, "clearing entries keeps the account")
}

func TestPutEntry_RequiresAccount(t *testing.T) {
	s := newTestStore(t)
	err := s.Update(context.Background(), func(tx *Tx) error {
		return tx.PutEntry(&datatypes.JournalEntry{Date: mustDate(t, "2024-01-01")})
	})
	assert.Error(t, err)
}

func TestUpdate_ConcurrentAccountWritesRetry(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "a1", "alex", "")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, func(tx *Tx) error {
				account, err := tx.GetAccount("a1")
				if err != nil {
					return err
				}
				account.AIMemories += "x"
				return tx.SaveAccount(account)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "xxxx", got.AIMemories)
}
