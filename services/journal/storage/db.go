// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage persists accounts and journal entries in an embedded
// BadgerDB.
//
// Key layout:
//
//	account/<id>                      -> Account JSON
//	account_name/<username>           -> account id
//	account_email/<lower(email)>      -> account id
//	entry/<accountID>/<YYYY-MM-DD>    -> JournalEntry JSON
//
// Entry keys sort chronologically within an account, so prefix scans return
// entries in ascending date order.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// maxConflictRetries bounds how often Update re-runs a transaction that lost
// an optimistic-concurrency race.
const maxConflictRetries = 5

// Config holds configuration for the journal database.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string `yaml:"path"`

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool `yaml:"in_memory"`

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool `yaml:"sync_writes"`

	// GCInterval is how often to run value log garbage collection.
	// Set to 0 to disable.
	GCInterval time.Duration `yaml:"gc_interval"`

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64 `yaml:"gc_discard_ratio"`

	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns sensible defaults for production use.
//
// Description:
//
//	Returns a Config with:
//	- SyncWrites enabled for durability
//	- 5-minute GC interval
//	- 50% discard ratio threshold
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration for tests: no disk I/O and no GC.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// DB wraps a BadgerDB instance with lifecycle management and conflict-aware
// transactions.
type DB struct {
	bdb      *badger.DB
	gc       *gcRunner
	inMemory bool
	closeMu  sync.Once
	closeErr error
}

// Open opens the database described by cfg and starts value-log GC when
// configured.
//
// Description:
//
//	Opens a BadgerDB database at the configured path, or in memory if
//	InMemory is true. Creates the directory if it doesn't exist.
//
// Outputs:
//
//	*DB - The opened database. Caller must call Close() when done.
//	error - Non-nil if path is invalid or database cannot be opened.
//
// Thread Safety: The returned *DB is safe for concurrent use.
func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	db := &DB{bdb: bdb, inMemory: cfg.InMemory}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		runner, err := newGCRunner(bdb, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		if err != nil {
			bdb.Close()
			return nil, fmt.Errorf("create GC runner: %w", err)
		}
		db.gc = runner
		runner.start()
	}
	return db, nil
}

// OpenInMemory opens an in-memory database. Data is lost when closed.
func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

// Close stops garbage collection and closes the database. Safe to call
// multiple times.
func (d *DB) Close() error {
	d.closeMu.Do(func() {
		if d.gc != nil {
			d.gc.stop()
		}
		d.closeErr = d.bdb.Close()
	})
	return d.closeErr
}

// InMemory returns true if this is an in-memory database.
func (d *DB) InMemory() bool {
	return d.inMemory
}

// Update executes fn within a read-write transaction and commits it.
//
// Description:
//
//	A commit that loses an optimistic-concurrency race (badger.ErrConflict)
//	is retried from scratch up to maxConflictRetries times, so fn must be
//	safe to run more than once.
//
// Thread Safety: Safe for concurrent use.
func (d *DB) Update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}
		err := d.runTxn(fn)
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			slog.Debug("Transaction conflict, retrying", "attempt", attempt+1)
			continue
		}
		return err
	}
}

func (d *DB) runTxn(fn func(txn *badger.Txn) error) error {
	txn := d.bdb.NewTransaction(true)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// View executes fn within a read-only transaction.
func (d *DB) View(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	txn := d.bdb.NewTransaction(false)
	defer txn.Discard()

	return fn(txn)
}

// =============================================================================
// Value log GC
// =============================================================================

// gcRunner runs periodic garbage collection on a BadgerDB instance.
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   *slog.Logger
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger *slog.Logger) (*gcRunner, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if ratio <= 0 || ratio >= 1 {
		return nil, errors.New("ratio must be between 0 and 1")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}, nil
}

func (r *gcRunner) start() {
	go r.run()
}

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.collect()
		}
	}
}

func (r *gcRunner) collect() {
	// ErrNoRewrite means there was nothing worth collecting.
	err := r.db.RunValueLogGC(r.ratio)
	switch {
	case err == nil:
		r.logger.Debug("badger value log GC completed")
	case !errors.Is(err, badger.ErrNoRewrite):
		r.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
	}
}
