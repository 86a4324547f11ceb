// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/AleutianAI/journai/pkg/auth"
	"github.com/AleutianAI/journai/services/journal/accounts"
	"github.com/AleutianAI/journai/services/journal/entries"
	"github.com/AleutianAI/journai/services/journal/handlers"
	"github.com/AleutianAI/journai/services/journal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the API is built from.
type Dependencies struct {
	Accounts *accounts.Service
	Entries  *entries.Service
	Auth     auth.AuthProvider

	// LoginLimiter throttles register and login per client IP. Nil disables
	// throttling.
	LoginLimiter *middleware.IPRateLimiter

	// Gatherer backs /metrics. Nil uses the default Prometheus registry.
	Gatherer prometheus.Gatherer
}

// SetupRoutes registers the public and authenticated journal endpoints.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		public := api.Group("/auth")
		public.Use(middleware.RateLimit(deps.LoginLimiter))
		public.POST("/register", handlers.Register(deps.Accounts))
		public.POST("/login", handlers.Login(deps.Accounts))

		private := api.Group("")
		private.Use(middleware.AuthMiddleware(deps.Auth))
		{
			private.GET("/dashboard", handlers.Dashboard(deps.Entries))
			private.GET("/week", handlers.Week(deps.Entries))
			private.POST("/search", handlers.Search(deps.Entries))

			entriesGroup := private.Group("/entries")
			{
				entriesGroup.GET("/:date", handlers.GetEntry(deps.Entries))
				entriesGroup.PUT("/:date", handlers.SaveEntry(deps.Entries))
				entriesGroup.DELETE("", handlers.ClearEntries(deps.Accounts))
			}

			account := private.Group("/account")
			{
				account.GET("", handlers.GetAccount(deps.Accounts))
				account.PUT("", handlers.UpdateAccount(deps.Accounts))
				account.DELETE("", handlers.DeleteAccount(deps.Accounts))
				account.PUT("/password", handlers.ChangePassword(deps.Accounts))
				account.PUT("/theme", handlers.ChangeTheme(deps.Accounts))
			}

			memories := private.Group("/memories")
			{
				memories.GET("", handlers.GetMemories(deps.Accounts))
				memories.PUT("", handlers.SaveMemories(deps.Accounts))
				memories.DELETE("", handlers.ClearMemories(deps.Accounts))
				memories.POST("/forget", handlers.ForgetMemory(deps.Accounts))
				memories.POST("/reinstate", handlers.ReinstateMemory(deps.Accounts))
			}
		}
	}
}
