// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/journai/cmd/journai/config"
	"github.com/AleutianAI/journai/pkg/audit"
	"github.com/AleutianAI/journai/pkg/auth"
	"github.com/AleutianAI/journai/services/journal/accounts"
	"github.com/AleutianAI/journai/services/journal/entries"
	"github.com/AleutianAI/journai/services/journal/middleware"
	"github.com/AleutianAI/journai/services/journal/observability"
	"github.com/AleutianAI/journai/services/journal/oracle"
	"github.com/AleutianAI/journai/services/journal/reminder"
	"github.com/AleutianAI/journai/services/journal/routes"
	"github.com/AleutianAI/journai/services/journal/storage"
	"github.com/AleutianAI/journai/services/llm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the wired services of one process.
type app struct {
	db        *storage.DB
	store     *storage.Store
	registry  *prometheus.Registry
	metrics   *observability.Metrics
	tokens    *auth.JWTProvider
	accounts  *accounts.Service
	entries   *entries.Service
	scheduler *reminder.Scheduler
}

// newApp opens the database and builds every service. llmClient may be nil
// for commands that never reach the oracle.
func newApp(c config.JournAIConfig, llmClient llm.LLMClient) (*app, error) {
	storeCfg := c.Storage
	storeCfg.Logger = appLogger().With("component", "badger")
	db, err := storage.Open(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	tokens, err := auth.NewJWTProvider(c.Auth)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)
	store := storage.NewStore(db)
	auditLog := audit.NewSlogLogger(appLogger().With("component", "audit"))

	a := &app{
		db:        db,
		store:     store,
		registry:  registry,
		metrics:   metrics,
		tokens:    tokens,
		accounts:  accounts.NewService(store, tokens, metrics, accounts.WithAuditLogger(auditLog)),
		scheduler: reminder.NewScheduler(store, &reminder.LogNotifier{Logger: appLogger()}, metrics),
	}
	if llmClient != nil {
		a.entries = entries.NewService(store, oracle.New(llmClient, c.Oracle, metrics), c.Memory, metrics)
	}
	return a, nil
}

func (a *app) routeDependencies(c config.JournAIConfig) routes.Dependencies {
	return routes.Dependencies{
		Accounts:     a.accounts,
		Entries:      a.entries,
		Auth:         a.tokens,
		LoginLimiter: middleware.NewIPRateLimiter(c.LoginRate),
		Gatherer:     a.registry,
	}
}

// Close stops the scheduler and closes the database.
func (a *app) Close() error {
	a.scheduler.Stop()
	return a.db.Close()
}

func appLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger.Slog()
}
