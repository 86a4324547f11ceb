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
	"context"
	"net/http"

	"github.com/AleutianAI/journai/services/journal/accounts"
	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/gin-gonic/gin"
)

func GetMemories(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		m, err := svc.GetMemories(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func SaveMemories(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		var req datatypes.SaveMemoriesRequest
		if !bindJSON(c, &req) {
			return
		}
		m, err := svc.SaveMemories(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func ForgetMemory(svc *accounts.Service) gin.HandlerFunc {
	return memorySentence(svc.Forget)
}

func ReinstateMemory(svc *accounts.Service) gin.HandlerFunc {
	return memorySentence(svc.Reinstate)
}

func ClearMemories(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		m, err := svc.ClearMemories(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

type sentenceOp func(ctx context.Context, accountID, sentence string) (*datatypes.Memories, error)

func memorySentence(op sentenceOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		var req datatypes.MemoryRequest
		if !bindJSON(c, &req) {
			return
		}
		m, err := op(c.Request.Context(), id, req.Memory)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
