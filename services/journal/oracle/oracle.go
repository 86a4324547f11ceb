// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oracle turns journal data into prompts for a language model and
// turns the model's untrusted replies back into typed values.
//
// # Description
//
// Three single round-trip operations are offered: Greeting, Analyze and
// Search. Each public method always returns a usable value. Transport
// failures (ErrOracleUnavailable) and replies that do not decode into the
// expected shape (ErrOracleMalformedOutput) are logged, counted and replaced
// by a fixed fallback. There is no retry and no streaming.
//
// # Thread Safety
//
// An Oracle is safe for concurrent use.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/journai/services/journal/observability"
	"github.com/AleutianAI/journai/services/llm"
	"github.com/go-openapi/strfmt"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("journai.oracle")

var (
	// ErrOracleUnavailable covers transport, auth, timeout and open-breaker
	// failures.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrOracleMalformedOutput means the model answered but the reply did not
	// decode into the expected shape.
	ErrOracleMalformedOutput = errors.New("oracle output malformed")
)

const (
	FallbackGreeting = "Welcome back! Ready to write?"
	FallbackAnalysis = "I had a little trouble reflecting on your entry, but I've saved it for you."
)

// Analysis is the decoded reply to an entry.
type Analysis struct {
	Response string   `json:"response"`
	Facts    []string `json:"new_memory_sentences"`
}

// Config tunes the model calls and the circuit breaker around them.
type Config struct {
	// Timeout bounds one round-trip. Zero disables the bound.
	Timeout time.Duration `yaml:"timeout"`

	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// BreakerFailures is the number of consecutive failures that opens the
	// breaker.
	BreakerFailures uint32 `yaml:"breaker_failures"`

	// BreakerCooldown is how long the breaker stays open before a probe.
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         45 * time.Second,
		Temperature:     0.7,
		MaxTokens:       2048,
		BreakerFailures: 5,
		BreakerCooldown: 60 * time.Second,
	}
}

// Oracle is the adapter between the journal and an llm.LLMClient.
type Oracle struct {
	client  llm.LLMClient
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
}

// New wires an Oracle around client. metrics may be nil.
func New(client llm.LLMClient, cfg Config, metrics *observability.Metrics) *Oracle {
	defaults := DefaultConfig()
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaults.BreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = defaults.BreakerCooldown
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "oracle",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Oracle{client: client, cfg: cfg, breaker: breaker, metrics: metrics}
}

// =============================================================================
// Public operations
// =============================================================================

// Greeting returns a short welcome line built from the user's own memories.
func (o *Oracle) Greeting(ctx context.Context, userMemories string) string {
	greeting, err := o.greeting(ctx, userMemories)
	if err != nil {
		o.fallback(observability.OperationGreeting, err)
		return FallbackGreeting
	}
	return greeting
}

// Analyze returns a companion response to the entry and the new facts the
// model extracted from it. The forgotten list is passed to the model as an
// instruction only; the returned facts are not filtered against it.
func (o *Oracle) Analyze(ctx context.Context, content, userMemories, aiMemories string, forgotten []string) Analysis {
	analysis, err := o.analyze(ctx, content, userMemories, aiMemories, forgotten)
	if err != nil {
		o.fallback(observability.OperationAnalyze, err)
		return Analysis{Response: FallbackAnalysis, Facts: []string{}}
	}
	return analysis
}

// Search returns the dates of the corpus entries the model judged relevant
// to query. Dates that are not YYYY-MM-DD are dropped.
func (o *Oracle) Search(ctx context.Context, query, corpus string) []strfmt.Date {
	dates, err := o.search(ctx, query, corpus)
	if err != nil {
		o.fallback(observability.OperationSearch, err)
		return []strfmt.Date{}
	}
	return dates
}

// =============================================================================
// Typed-error implementations
// =============================================================================

func (o *Oracle) greeting(ctx context.Context, userMemories string) (greeting string, err error) {
	defer o.observe(observability.OperationGreeting, time.Now(), &err)
	raw, err := o.generate(ctx, observability.OperationGreeting, greetingPrompt(userMemories))
	if err != nil {
		return "", err
	}
	return parseGreeting(raw)
}

func (o *Oracle) analyze(ctx context.Context, content, userMemories, aiMemories string, forgotten []string) (analysis Analysis, err error) {
	defer o.observe(observability.OperationAnalyze, time.Now(), &err)
	raw, err := o.generate(ctx, observability.OperationAnalyze, analysisPrompt(content, userMemories, aiMemories, forgotten))
	if err != nil {
		return Analysis{}, err
	}
	return parseAnalysis(raw)
}

func (o *Oracle) search(ctx context.Context, query, corpus string) (dates []strfmt.Date, err error) {
	defer o.observe(observability.OperationSearch, time.Now(), &err)
	raw, err := o.generate(ctx, observability.OperationSearch, searchPrompt(query, corpus))
	if err != nil {
		return nil, err
	}
	return parseSearch(raw)
}

// generate performs one model round-trip through the breaker. Any failure is
// reported as ErrOracleUnavailable.
func (o *Oracle) generate(ctx context.Context, op observability.Operation, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "Oracle."+string(op))
	defer span.End()
	span.SetAttributes(attribute.Int("oracle.prompt_length", len(prompt)))

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	temperature := o.cfg.Temperature
	maxTokens := o.cfg.MaxTokens
	params := llm.GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens}

	out, err := o.breaker.Execute(func() (interface{}, error) {
		return o.client.Generate(ctx, prompt, params)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %s: %v", ErrOracleUnavailable, op, err)
	}
	text, _ := out.(string)
	span.SetAttributes(attribute.Int("oracle.reply_length", len(text)))
	return text, nil
}

func (o *Oracle) observe(op observability.Operation, start time.Time, errp *error) {
	outcome := observability.OutcomeSuccess
	switch {
	case *errp == nil:
	case errors.Is(*errp, ErrOracleMalformedOutput):
		outcome = observability.OutcomeMalformed
	default:
		outcome = observability.OutcomeUnavailable
	}
	o.metrics.RecordOracleCall(op, outcome, time.Since(start))
}

func (o *Oracle) fallback(op observability.Operation, err error) {
	slog.Warn("Oracle call failed, serving fallback", "operation", string(op), "error", err)
	o.metrics.RecordFallback(op)
}
