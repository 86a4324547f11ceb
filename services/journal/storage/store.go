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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-openapi/strfmt"
)

var (
	// ErrNotFound is returned when an account or entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when creating an account whose username is
	// already indexed.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrEmailTaken is returned when an email is already bound to another
	// account.
	ErrEmailTaken = errors.New("email already in use")
)

const (
	accountPrefix  = "account/"
	usernamePrefix = "account_name/"
	emailPrefix    = "account_email/"
	entryPrefix    = "entry/"
)

func accountKey(id string) []byte        { return []byte(accountPrefix + id) }
func usernameKey(username string) []byte { return []byte(usernamePrefix + username) }
func emailKey(email string) []byte       { return []byte(emailPrefix + strings.ToLower(email)) }

func entryKey(accountID string, date strfmt.Date) []byte {
	return []byte(entryPrefix + accountID + "/" + datatypes.FormatDate(date))
}

func entriesPrefix(accountID string) []byte {
	return []byte(entryPrefix + accountID + "/")
}

// Store is the account and entry repository.
//
// # Description
//
// All reads and writes go through Tx so that callers can compose several
// operations (upsert an entry, then fold facts into the owning account) into
// one atomic commit.
//
// # Thread Safety
//
// Safe for concurrent use. Concurrent Update calls touching the same keys are
// serialized by badger's optimistic concurrency and retried.
type Store struct {
	db *DB
}

// NewStore wraps an opened DB.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Update runs fn in a read-write transaction. fn may be re-run on conflict.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return s.db.Update(ctx, func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	return s.db.View(ctx, func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// GetAccount is a read-only convenience around Tx.GetAccount.
func (s *Store) GetAccount(ctx context.Context, id string) (*datatypes.Account, error) {
	var account *datatypes.Account
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		account, err = tx.GetAccount(id)
		return err
	})
	return account, err
}

// ListEntries is a read-only convenience around Tx.ListEntries.
func (s *Store) ListEntries(ctx context.Context, accountID string) ([]*datatypes.JournalEntry, error) {
	var entries []*datatypes.JournalEntry
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		entries, err = tx.ListEntries(accountID)
		return err
	})
	return entries, err
}

// Tx is a transactional view of the store.
type Tx struct {
	txn *badger.Txn
}

// =============================================================================
// Accounts
// =============================================================================

// GetAccount loads an account by id.
func (tx *Tx) GetAccount(id string) (*datatypes.Account, error) {
	var account datatypes.Account
	if err := tx.getJSON(accountKey(id), &account); err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return &account, nil
}

// GetAccountByUsername resolves the username index and loads the account.
func (tx *Tx) GetAccountByUsername(username string) (*datatypes.Account, error) {
	id, err := tx.getString(usernameKey(username))
	if err != nil {
		return nil, fmt.Errorf("get account by username: %w", err)
	}
	return tx.GetAccount(id)
}

// EmailOwner returns the id of the account bound to email, or ErrNotFound.
func (tx *Tx) EmailOwner(email string) (string, error) {
	return tx.getString(emailKey(email))
}

// CreateAccount writes a new account and its indexes.
func (tx *Tx) CreateAccount(account *datatypes.Account) error {
	if _, err := tx.getString(usernameKey(account.Username)); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if account.Email != "" {
		if _, err := tx.EmailOwner(account.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	if err := tx.txn.Set(usernameKey(account.Username), []byte(account.ID)); err != nil {
		return fmt.Errorf("index username: %w", err)
	}
	if account.Email != "" {
		if err := tx.txn.Set(emailKey(account.Email), []byte(account.ID)); err != nil {
			return fmt.Errorf("index email: %w", err)
		}
	}
	return tx.putJSON(accountKey(account.ID), account)
}

// SaveAccount overwrites an existing account, moving its email index when
// the email changed. The username is immutable.
func (tx *Tx) SaveAccount(account *datatypes.Account) error {
	stored, err := tx.GetAccount(account.ID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(stored.Email, account.Email) {
		if account.Email != "" {
			owner, err := tx.EmailOwner(account.Email)
			switch {
			case err == nil && owner != account.ID:
				return ErrEmailTaken
			case err != nil && !errors.Is(err, ErrNotFound):
				return err
			}
			if err := tx.txn.Set(emailKey(account.Email), []byte(account.ID)); err != nil {
				return fmt.Errorf("index email: %w", err)
			}
		}
		if stored.Email != "" {
			if err := tx.txn.Delete(emailKey(stored.Email)); err != nil {
				return fmt.Errorf("unindex email: %w", err)
			}
		}
	}
	account.Username = stored.Username
	return tx.putJSON(accountKey(account.ID), account)
}

// DeleteAccount removes an account, its indexes and all of its entries.
func (tx *Tx) DeleteAccount(id string) error {
	account, err := tx.GetAccount(id)
	if err != nil {
		return err
	}
	if _, err := tx.DeleteEntries(id); err != nil {
		return err
	}
	if err := tx.txn.Delete(usernameKey(account.Username)); err != nil {
		return fmt.Errorf("unindex username: %w", err)
	}
	if account.Email != "" {
		if err := tx.txn.Delete(emailKey(account.Email)); err != nil {
			return fmt.Errorf("unindex email: %w", err)
		}
	}
	return tx.txn.Delete(accountKey(id))
}

// ListAccounts returns every account. Used by the reminder pass.
func (tx *Tx) ListAccounts() ([]*datatypes.Account, error) {
	var accounts []*datatypes.Account
	err := tx.scan([]byte(accountPrefix), func(val []byte) error {
		var account datatypes.Account
		if err := json.Unmarshal(val, &account); err != nil {
			return err
		}
		accounts = append(accounts, &account)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// =============================================================================
// Entries
// =============================================================================

// GetEntry loads the entry an account holds for date.
func (tx *Tx) GetEntry(accountID string, date strfmt.Date) (*datatypes.JournalEntry, error) {
	var entry datatypes.JournalEntry
	if err := tx.getJSON(entryKey(accountID, date), &entry); err != nil {
		return nil, fmt.Errorf("get entry %s: %w", datatypes.FormatDate(date), err)
	}
	entry.AccountID = accountID
	return &entry, nil
}

// PutEntry upserts the (account, date) entry.
func (tx *Tx) PutEntry(entry *datatypes.JournalEntry) error {
	if entry.AccountID == "" {
		return errors.New("entry has no account")
	}
	return tx.putJSON(entryKey(entry.AccountID, entry.Date), entry)
}

// ListEntries returns every entry of an account in ascending date order.
func (tx *Tx) ListEntries(accountID string) ([]*datatypes.JournalEntry, error) {
	entries := []*datatypes.JournalEntry{}
	err := tx.scan(entriesPrefix(accountID), func(val []byte) error {
		var entry datatypes.JournalEntry
		if err := json.Unmarshal(val, &entry); err != nil {
			return err
		}
		entry.AccountID = accountID
		entries = append(entries, &entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// HasEntries reports whether the account has at least one entry.
func (tx *Tx) HasEntries(accountID string) (bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = entriesPrefix(accountID)
	it := tx.txn.NewIterator(opts)
	defer it.Close()

	it.Rewind()
	return it.Valid(), nil
}

// DeleteEntries removes every entry of an account and returns how many were
// removed.
func (tx *Tx) DeleteEntries(accountID string) (int, error) {
	prefix := entriesPrefix(accountID)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := tx.txn.NewIterator(opts)

	var keys [][]byte
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := tx.txn.Delete(key); err != nil {
			return 0, fmt.Errorf("delete entry %s: %w", key, err)
		}
	}
	return len(keys), nil
}

// =============================================================================
// Encoding helpers
// =============================================================================

func (tx *Tx) getJSON(key []byte, v any) error {
	item, err := tx.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func (tx *Tx) putJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return tx.txn.Set(key, data)
}

func (tx *Tx) getString(key []byte) (string, error) {
	item, err := tx.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func (tx *Tx) scan(prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := tx.txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
