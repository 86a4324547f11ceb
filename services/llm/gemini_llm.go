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

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiClient talks to Google's Gemini API through langchaingo.
type GeminiClient struct {
	model     llms.Model
	modelName string
}

func NewGeminiClient(ctx context.Context) (*GeminiClient, error) {
	apiKey := readAPIKey("GEMINI_API_KEY", "/run/secrets/gemini_api_key")
	if apiKey == "" {
		slog.Warn("Gemini API Key is missing.")
		return nil, fmt.Errorf("GEMINI_API_KEY is missing")
	}
	modelName := os.Getenv("GEMINI_MODEL")
	if modelName == "" {
		modelName = defaultGeminiModel
		slog.Info("GEMINI_MODEL not set, defaulting to", "model", modelName)
	}

	model, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	slog.Info("Initializing Gemini client", "model", modelName)
	return &GeminiClient{model: model, modelName: modelName}, nil
}

// Generate implements the LLMClient interface
func (g *GeminiClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	slog.Debug("Generating text via Gemini", "model", g.modelName)
	text, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, geminiCallOptions(params)...)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	return text, nil
}

func geminiCallOptions(params GenerationParams) []llms.CallOption {
	var opts []llms.CallOption
	if params.Temperature != nil {
		opts = append(opts, llms.WithTemperature(float64(*params.Temperature)))
	}
	if params.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if params.TopK != nil {
		opts = append(opts, llms.WithTopK(*params.TopK))
	}
	if params.TopP != nil {
		opts = append(opts, llms.WithTopP(float64(*params.TopP)))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}
	return opts
}
