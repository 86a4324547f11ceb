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

const (
	anthropicAPIVersion  = "2023-06-01"
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	defaultClaudeModel   = "claude-3-5-sonnet-20240620"
	anthropicMaxTokens   = 1024
)

// anthropicRequest is the Messages API body. Sampling fields are omitted
// when unset so the API defaults apply.
type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	TopP        *float32           `json:"top_p,omitempty"`
	TopK        *int               `json:"top_k,omitempty"`
	StopSeqs    []string           `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicReply struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// AnthropicClient calls the Claude Messages API over REST.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	persona    string
}

// NewAnthropicClient reads ANTHROPIC_API_KEY (or its Podman secret),
// CLAUDE_MODEL and ANTHROPIC_BASE_URL.
func NewAnthropicClient() (*AnthropicClient, error) {
	apiKey := readAPIKey("ANTHROPIC_API_KEY", "/run/secrets/anthropic_api_key")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is missing")
	}
	c := &AnthropicClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      envOr("CLAUDE_MODEL", defaultClaudeModel),
		baseURL:    envOr("ANTHROPIC_BASE_URL", anthropicMessagesURL),
		persona:    envOr("SYSTEM_ROLE_PROMPT_PERSONA", defaultSystemPersona),
	}
	slog.Info("Initializing Anthropic client", "model", c.model)
	return c, nil
}

// Generate implements the LLMClient interface
func (a *AnthropicClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	body := anthropicRequest{
		Model:       a.model,
		System:      a.persona,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		MaxTokens:   anthropicMaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		TopK:        params.TopK,
		StopSeqs:    params.Stop,
	}
	if params.MaxTokens != nil {
		body.MaxTokens = *params.MaxTokens
	}

	header := http.Header{}
	header.Set("x-api-key", a.apiKey)
	header.Set("anthropic-version", anthropicAPIVersion)

	var reply anthropicReply
	if err := postJSON(ctx, a.httpClient, "anthropic", a.model, a.baseURL, header, body, &reply); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range reply.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic: reply had no text (stop_reason %q)", reply.StopReason)
	}
	slog.Debug("Received response from Anthropic", "model", a.model, "stop_reason", reply.StopReason)
	return text.String(), nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
