// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware holds the gin middleware of the journal API.
//
// # Authentication Flow
//
//	Request
//	   │
//	   ▼
//	AuthMiddleware
//	   │
//	   ├─► Extract token from "Authorization: Bearer <token>"
//	   │
//	   ├─► provider.Validate(ctx, token)
//	   │
//	   └─► Store AuthInfo in context
//	           │
//	           ▼
//	       Handler (AccountID / GetAuthInfo)
//
// Unlike a local single-user tool, every journal route behind the middleware
// requires a valid token. A missing header is rejected before the provider
// is consulted.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AleutianAI/journai/pkg/auth"
	"github.com/gin-gonic/gin"
)

// =============================================================================
// Context Keys
// =============================================================================

const authInfoKey = "journai_auth_info"

// =============================================================================
// Context Helpers
// =============================================================================

// SetAuthInfo stores the authenticated identity in the Gin context.
//
// # Thread Safety
//
// Safe to call concurrently (Gin context is request-scoped).
func SetAuthInfo(c *gin.Context, info *auth.AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo returns the identity stored by AuthMiddleware, or nil when
// the request was not authenticated.
func GetAuthInfo(c *gin.Context) *auth.AuthInfo {
	if info, exists := c.Get(authInfoKey); exists {
		if authInfo, ok := info.(*auth.AuthInfo); ok {
			return authInfo
		}
	}
	return nil
}

// AccountID returns the caller's account id, or "" when unauthenticated.
func AccountID(c *gin.Context) string {
	if info := GetAuthInfo(c); info != nil {
		return info.UserID
	}
	return ""
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware authenticates requests with a bearer token.
//
// # Description
//
// Extracts the token from the Authorization header, validates it with the
// provider and stores the resulting AuthInfo for downstream handlers.
// Requests without a token, or with one the provider rejects, are aborted
// with 401.
//
// # Inputs
//
//   - provider: AuthProvider to validate tokens. Must not be nil.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware ready for a route group.
//
// # Examples
//
//	api := router.Group("/api")
//	api.Use(middleware.AuthMiddleware(tokens))
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func AuthMiddleware(provider auth.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		authInfo, err := provider.Validate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
				return
			}
			if errors.Is(err, auth.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			slog.Error("Token validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		SetAuthInfo(c, authInfo)
		c.Next()
	}
}

// extractBearerToken parses "Authorization: Bearer <token>". The scheme is
// case-insensitive per RFC 7235. Returns "" when missing or malformed.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
