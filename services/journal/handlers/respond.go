// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers holds the gin handlers of the journal JSON API.
//
// Handlers are constructors returning gin.HandlerFunc. Each one takes the
// account id from the request context set by the auth middleware, calls one
// service operation and maps its error to a status code.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/journai/services/journal/accounts"
	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/AleutianAI/journai/services/journal/middleware"
	"github.com/AleutianAI/journai/services/journal/storage"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the API's error body.
//
//   - ErrInvalidCredentials: 401
//   - taken username or email: 409
//   - any other *ValidationError: 400
//   - storage.ErrNotFound: 404
//   - everything else: 500, logged
func respondError(c *gin.Context, err error) {
	var ve *datatypes.ValidationError
	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": accounts.MsgInvalidCredentials})
	case errors.As(err, &ve):
		status := http.StatusBadRequest
		if ve.Message == accounts.MsgUsernameTaken || ve.Message == accounts.MsgEmailTaken {
			status = http.StatusConflict
		}
		body := gin.H{"error": ve.Message}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		c.JSON(status, body)
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bindJSON decodes the body into req and answers 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		slog.Warn("Invalid request body", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// accountID returns the authenticated account or answers 401.
func accountID(c *gin.Context) (string, bool) {
	id := middleware.AccountID(c)
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return id, true
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
