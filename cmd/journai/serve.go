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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/journai/pkg/telemetry"
	"github.com/AleutianAI/journai/services/journal/middleware"
	"github.com/AleutianAI/journai/services/journal/routes"
	"github.com/AleutianAI/journai/services/llm"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel := cfg.Telemetry
	tel.ServiceVersion = version
	shutdownTracing, err := telemetry.Init(ctx, tel)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	}()

	slog.Info("Configuring the LLM client", "backend", cfg.LLM.Backend)
	llmClient, err := llm.NewClient(ctx, cfg.LLM.Backend)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	a, err := newApp(cfg, llmClient)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware("journai"), middleware.RequestLogger())
	routes.SetupRoutes(router, a.routeDependencies(cfg))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting the JournAI server", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down the JournAI server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Reminder.Enabled {
		if err := a.scheduler.Start(gctx); err != nil {
			return err
		}
	}
	return g.Wait()
}
