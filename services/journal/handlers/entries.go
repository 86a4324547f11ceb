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
	"net/http"

	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/AleutianAI/journai/services/journal/entries"
	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"
)

// SaveEntry upserts the entry for the :date path parameter. The oracle's
// reply and the memories after the merge are returned with the entry.
func SaveEntry(svc *entries.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		date, ok := pathDate(c)
		if !ok {
			return
		}
		var req datatypes.SaveEntryRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			respondError(c, err)
			return
		}
		result, err := svc.SaveEntry(c.Request.Context(), id, date, req.Content)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func GetEntry(svc *entries.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		date, ok := pathDate(c)
		if !ok {
			return
		}
		entry, err := svc.GetEntry(c.Request.Context(), id, date)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// Week serves the seven-day view. The optional ?start= query selects the
// first day; it defaults to the most recent Sunday.
func Week(svc *entries.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		var start *strfmt.Date
		if raw := c.Query("start"); raw != "" {
			d, err := datatypes.ParseDate(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
				return
			}
			start = &d
		}
		week, err := svc.Week(c.Request.Context(), id, start)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, week)
	}
}

func Dashboard(svc *entries.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		dash, err := svc.Dashboard(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dash)
	}
}

func Search(svc *entries.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		var req datatypes.SearchRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			respondError(c, err)
			return
		}
		results, err := svc.Search(c.Request.Context(), id, req.Query)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.SearchResponse{Query: req.Query, Results: results})
	}
}

func pathDate(c *gin.Context) (strfmt.Date, bool) {
	d, err := datatypes.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return strfmt.Date{}, false
	}
	return d, true
}
