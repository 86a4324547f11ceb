// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultOllamaModel = "llama3.1"

// OllamaClient calls a local Ollama server's /api/generate endpoint.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// ollamaGenerateRequest is a non-streaming generate call.
type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateReply struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaClient requires OLLAMA_BASE_URL; OLLAMA_MODEL defaults to
// llama3.1.
func NewOllamaClient() (*OllamaClient, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(os.Getenv("OLLAMA_BASE_URL")), "/")
	if baseURL == "" {
		return nil, errors.New("OLLAMA_BASE_URL environment variable not set")
	}
	c := &OllamaClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
		model:      envOr("OLLAMA_MODEL", defaultOllamaModel),
	}
	slog.Info("Initializing Ollama client", "base_url", c.baseURL, "model", c.model)
	return c, nil
}

// Generate implements the LLMClient interface
func (o *OllamaClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	body := ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Options: ollamaOptions(params),
	}

	var reply ollamaGenerateReply
	err := postJSON(ctx, o.httpClient, "ollama", o.model, o.baseURL+"/api/generate", nil, body, &reply)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound && strings.Contains(se.Body, "not found") {
		return "", fmt.Errorf("ollama model %q not found, run 'ollama pull %s'", o.model, o.model)
	}
	if err != nil {
		return "", err
	}
	if !reply.Done {
		slog.Warn("Ollama reply not marked done", "model", o.model)
	}
	return reply.Response, nil
}

// ollamaOptions starts from conservative sampling defaults suited to JSON
// replies and overlays whatever params sets.
func ollamaOptions(params GenerationParams) map[string]any {
	opts := map[string]any{
		"temperature": float32(0.2),
		"top_k":       20,
		"top_p":       float32(0.9),
		"num_predict": 2048,
	}
	if params.Temperature != nil {
		opts["temperature"] = *params.Temperature
	}
	if params.TopK != nil {
		opts["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		opts["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		opts["num_predict"] = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		opts["stop"] = params.Stop
	}
	return opts
}
