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
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Backend names accepted by NewClient.
const (
	BackendGemini    = "gemini"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendOllama    = "ollama"
)

// NewClient builds the backend named by backendType. An empty name selects
// Gemini.
func NewClient(ctx context.Context, backendType string) (LLMClient, error) {
	var (
		client LLMClient
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(backendType)) {
	case "", BackendGemini, "google":
		slog.Info("Using Gemini LLM backend")
		client, err = asClient(NewGeminiClient(ctx))
	case BackendOpenAI:
		slog.Info("Using OpenAI LLM backend")
		client, err = asClient(NewOpenAIClient())
	case BackendAnthropic, "claude":
		slog.Info("Using Anthropic (Claude) LLM backend")
		client, err = asClient(NewAnthropicClient())
	case BackendOllama:
		slog.Info("Using Ollama LLM backend")
		client, err = asClient(NewOllamaClient())
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", backendType)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// asClient keeps a failed constructor from leaking a typed nil into the
// interface.
func asClient[T LLMClient](c T, err error) (LLMClient, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

// readAPIKey returns the key from envVar, falling back to the Podman secret
// file of the same provider.
func readAPIKey(envVar, secretPath string) string {
	if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
		return key
	}
	if content, err := os.ReadFile(secretPath); err == nil {
		slog.Info("Read API key from Podman Secrets", "path", secretPath)
		return strings.TrimSpace(string(content))
	}
	return ""
}
