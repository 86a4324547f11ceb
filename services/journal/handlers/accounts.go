// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/AleutianAI/journai/services/journal/accounts"
	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/gin-gonic/gin"
)

// =============================================================================
// Registration and login
// =============================================================================

func Register(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.RegisterRequest
		if !bindJSON(c, &req) {
			return
		}
		view, err := svc.Register(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

func Login(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		resp, err := svc.Login(c.Request.Context(), req)
		if err != nil {
			slog.Info("Login rejected", "client_ip", c.ClientIP())
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// =============================================================================
// Settings
// =============================================================================

func GetAccount(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		view, err := svc.GetAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func UpdateAccount(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		var req datatypes.UpdateAccountRequest
		if !bindJSON(c, &req) {
			return
		}
		view, err := svc.UpdateAccount(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func ChangePassword(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		var req datatypes.ChangePasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := svc.ChangePassword(c.Request.Context(), id, req); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.StatusResponse{Status: "success", Message: "Password updated."})
	}
}

func ChangeTheme(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		var req datatypes.ChangeThemeRequest
		if !bindJSON(c, &req) {
			return
		}
		view, err := svc.ChangeTheme(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// =============================================================================
// Destructive operations
// =============================================================================

func ClearEntries(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		var req datatypes.ConfirmRequest
		if !bindJSON(c, &req) {
			return
		}
		removed, err := svc.ClearEntries(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted": removed})
	}
}

func DeleteAccount(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		var req datatypes.ConfirmRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := svc.DeleteAccount(c.Request.Context(), id, req); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.StatusResponse{Status: "success", Message: "Account deleted."})
	}
}
