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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AleutianAI/journai/pkg/auth"
	"github.com/AleutianAI/journai/services/journal/accounts"
	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/AleutianAI/journai/services/journal/entries"
	"github.com/AleutianAI/journai/services/journal/middleware"
	"github.com/AleutianAI/journai/services/journal/observability"
	"github.com/AleutianAI/journai/services/journal/oracle"
	"github.com/AleutianAI/journai/services/journal/storage"
	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

// stubOracle answers every call with fixed values.
type stubOracle struct {
	analysis oracle.Analysis
	dates    []strfmt.Date
}

func (s *stubOracle) Greeting(context.Context, string) string { return "Hello again" }

func (s *stubOracle) Analyze(context.Context, string, string, string, []string) oracle.Analysis {
	return s.analysis
}

func (s *stubOracle) Search(context.Context, string, string) []strfmt.Date { return s.dates }

type apiFixture struct {
	router *gin.Engine
	oracle *stubOracle
}

func newAPI(t *testing.T, limiter *middleware.IPRateLimiter) *apiFixture {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := storage.NewStore(db)

	tokens, err := auth.NewJWTProvider(auth.JWTConfig{TTL: time.Hour})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	o := &stubOracle{}

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Accounts:     accounts.NewService(store, tokens, metrics, accounts.WithBcryptCost(bcrypt.MinCost)),
		Entries:      entries.NewService(store, o, entries.Config{}, metrics),
		Auth:         tokens,
		LoginLimiter: limiter,
		Gatherer:     reg,
	})
	return &apiFixture{router: router, oracle: o}
}

func (f *apiFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) signUp(t *testing.T, username string) string {
	t.Helper()
	w := f.do("POST", "/api/auth/register", "", gin.H{"username": username, "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = f.do("POST", "/api/auth/login", "", gin.H{"username": username, "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// ============================================================================
// Route registration
// ============================================================================

func TestSetupRoutes_RegistersEndpoints(t *testing.T) {
	f := newAPI(t, nil)
	expected := []struct{ method, path string }{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/api/auth/register"},
		{"POST", "/api/auth/login"},
		{"GET", "/api/dashboard"},
		{"GET", "/api/week"},
		{"POST", "/api/search"},
		{"GET", "/api/entries/:date"},
		{"PUT", "/api/entries/:date"},
		{"DELETE", "/api/entries"},
		{"GET", "/api/account"},
		{"PUT", "/api/account"},
		{"DELETE", "/api/account"},
		{"PUT", "/api/account/password"},
		{"PUT", "/api/account/theme"},
		{"GET", "/api/memories"},
		{"PUT", "/api/memories"},
		{"DELETE", "/api/memories"},
		{"POST", "/api/memories/forget"},
		{"POST", "/api/memories/reinstate"},
	}

	registered := map[string]bool{}
	for _, r := range f.router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, e := range expected {
		assert.True(t, registered[e.method+" "+e.path], "missing route %s %s", e.method, e.path)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPI(t, nil)
	token := f.signUp(t, "alex")
	f.do("PUT", "/api/entries/2024-03-14", token, gin.H{"content": "hi"})

	w := f.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = f.do("GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "journai_journal_entries_saved_total 1")
}

// ============================================================================
// Auth
// ============================================================================

func TestRegister_DuplicateUsernameConflict(t *testing.T) {
	f := newAPI(t, nil)
	f.signUp(t, "alex")

	w := f.do("POST", "/api/auth/register", "", gin.H{"username": "alex", "password": "x"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, accounts.MsgUsernameTaken, decode(t, w)["error"])
}

func TestRegister_InvalidBody(t *testing.T) {
	f := newAPI(t, nil)
	req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do("POST", "/api/auth/register", "", gin.H{"username": "", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "username", decode(t, w)["field"])
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAPI(t, nil)
	f.signUp(t, "alex")

	w := f.do("POST", "/api/auth/login", "", gin.H{"username": "alex", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, accounts.MsgInvalidCredentials, decode(t, w)["error"])
}

func TestLogin_RateLimited(t *testing.T) {
	f := newAPI(t, middleware.NewIPRateLimiter(middleware.RateLimitConfig{PerMinute: 2, Burst: 2}))

	f.do("POST", "/api/auth/login", "", gin.H{"username": "a", "password": "b"})
	f.do("POST", "/api/auth/login", "", gin.H{"username": "a", "password": "b"})
	w := f.do("POST", "/api/auth/login", "", gin.H{"username": "a", "password": "b"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	f := newAPI(t, nil)
	for _, path := range []string{"/api/memories", "/api/account", "/api/dashboard", "/api/week"} {
		w := f.do("GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		w = f.do("GET", path, "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

// ============================================================================
// Entries
// ============================================================================

func TestSaveEntry_MergesFactsIntoMemories(t *testing.T) {
	f := newAPI(t, nil)
	token := f.signUp(t, "alex")
	f.oracle.analysis = oracle.Analysis{Response: "Nice run!", Facts: []string{"User went running."}}

	w := f.do("PUT", "/api/entries/2024-03-14", token, gin.H{"content": "Went running today."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, []interface{}{"User went running."}, body["new_facts"])
	assert.Equal(t, "- User went running.", body["memories"].(map[string]interface{})["ai_memories"])
	assert.Equal(t, "Nice run!", body["entry"].(map[string]interface{})["ai_response"])

	w = f.do("GET", "/api/entries/2024-03-14", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Went running today.", decode(t, w)["content"])
	assert.Equal(t, "2024-03-14", decode(t, w)["date"])
}

func TestEntries_BadDateAndMissing(t *testing.T) {
	f := newAPI(t, nil)
	token := f.signUp(t, "alex")

	w := f.do("GET", "/api/entries/14-03-2024", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do("GET", "/api/entries/2024-03-15", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do("PUT", "/api/entries/2024-03-15", token, gin.H{"content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWeekAndSearch(t *testing.T) {
	f := newAPI(t, nil)
	token := f.signUp(t, "alex")
	f.oracle.analysis = oracle.Analysis{Response: "ok"}
	f.do("PUT", "/api/entries/2024-03-11", token, gin.H{"content": "monday"})
	f.do("PUT", "/api/entries/2024-03-13", token, gin.H{"content": "wednesday"})

	w := f.do("GET", "/api/week?start=2024-03-10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	week := decode(t, w)
	assert.Equal(t, "2024-03-10", week["week_start"])
	assert.Equal(t, "2024-03-03", week["prev_week_start"])
	assert.Equal(t, true, week["has_any_entry"])
	days := week["days"].([]interface{})
	require.Len(t, days, 7)
	assert.NotNil(t, days[1].(map[string]interface{})["entry"])
	assert.Nil(t, days[2].(map[string]interface{})["entry"])

	w = f.do("GET", "/api/week?start=soon", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	d, err := datatypes.ParseDate("2024-03-13")
	require.NoError(t, err)
	f.oracle.dates = []strfmt.Date{d}
	w = f.do("POST", "/api/search", token, gin.H{"query": "midweek"})
	require.Equal(t, http.StatusOK, w.Code)
	results := decode(t, w)["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "wednesday", results[0].(map[string]interface{})["content"])
}

func TestDashboard(t *testing.T) {
	f := newAPI(t, nil)
	token := f.signUp(t, "alex")

	w := f.do("GET", "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Hello again", body["greeting"])
	assert.Empty(t, body["on_this_day"])
}

// ============================================================================
// Memories and settings
// ============================================================================

func TestMemories_ForgetThenReinstate(t *testing.T) {
	f := newAPI(t, nil)
	token := f.signUp(t, "alex")

	w := f.do("PUT", "/api/memories", token, gin.H{"user_memories": "My name is Alex.", "ai_memories": "- User likes tea."})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do("POST", "/api/memories/forget", token, gin.H{"memory": "User likes tea."})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "", body["ai_memories"])
	assert.Equal(t, []interface{}{"User likes tea."}, body["forgotten_memories"])

	w = f.do("POST", "/api/memories/reinstate", token, gin.H{"memory": "User likes tea."})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "- User likes tea.", body["ai_memories"])
	assert.Empty(t, body["forgotten_memories"])

	w = f.do("DELETE", "/api/memories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "", body["ai_memories"])
	assert.Equal(t, "My name is Alex.", body["user_memories"])
}

func TestSettings(t *testing.T) {
	f := newAPI(t, nil)
	token := f.signUp(t, "alex")

	w := f.do("PUT", "/api/account/theme", token, gin.H{"theme": "forest"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "forest", decode(t, w)["theme"])

	w = f.do("PUT", "/api/account", token, gin.H{"email": "alex@example.com", "reminder_hour": 7})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7), decode(t, w)["reminder_hour"])

	w = f.do("PUT", "/api/account/password", token, gin.H{"current_password": "wrong", "new_password": "n", "confirm_password": "n"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, accounts.MsgWrongPassword, decode(t, w)["error"])

	other := f.signUp(t, "sam")
	w = f.do("PUT", "/api/account", other, gin.H{"email": "alex@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDestructiveOperations(t *testing.T) {
	f := newAPI(t, nil)
	token := f.signUp(t, "alex")
	f.oracle.analysis = oracle.Analysis{Response: "ok"}
	f.do("PUT", "/api/entries/2024-03-14", token, gin.H{"content": "x"})

	w := f.do("DELETE", "/api/entries", token, gin.H{"confirm_text": "yes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, accounts.MsgConfirmationInvalid, decode(t, w)["error"])

	w = f.do("DELETE", "/api/entries", token, gin.H{"confirm_text": "destroyer_of_worlds"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["deleted"])

	w = f.do("DELETE", "/api/account", token, gin.H{"confirm_text": "destroyer_of_worlds"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do("GET", "/api/account", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
