// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"

	"github.com/AleutianAI/journai/pkg/auth"
	"github.com/AleutianAI/journai/pkg/telemetry"
	"github.com/AleutianAI/journai/services/journal/entries"
	"github.com/AleutianAI/journai/services/journal/middleware"
	"github.com/AleutianAI/journai/services/journal/oracle"
	"github.com/AleutianAI/journai/services/journal/storage"
	"github.com/AleutianAI/journai/services/llm"
)

// CurrentConfigVersion is written into new config files.
const CurrentConfigVersion = "1"

// JournAIConfig is the root of journai.yaml.
type JournAIConfig struct {
	Meta      MetaConfig                 `yaml:"meta"`
	Server    ServerConfig               `yaml:"server"`
	Storage   storage.Config             `yaml:"storage"`
	Auth      auth.JWTConfig             `yaml:"auth"`
	LLM       LLMConfig                  `yaml:"llm"`
	Oracle    oracle.Config              `yaml:"oracle"`
	Memory    entries.Config             `yaml:"memory"`
	Reminder  ReminderConfig             `yaml:"reminder"`
	LoginRate middleware.RateLimitConfig `yaml:"login_rate_limit"`
	Logging   LoggingConfig              `yaml:"logging"`
	Telemetry telemetry.Config           `yaml:"telemetry"`
}

type MetaConfig struct {
	Version string `yaml:"version"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Mode is the gin mode: "release", "debug" or "test".
	Mode string `yaml:"mode"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LLMConfig struct {
	// Backend is "gemini", "openai", "anthropic" or "ollama". API keys and
	// model names come from each backend's environment variables.
	Backend string `yaml:"backend"`
}

type ReminderConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// Dir enables daily JSON log files. Empty disables them.
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the settings written on first run.
func DefaultConfig() JournAIConfig {
	store := storage.DefaultConfig()
	store.Path = "~/.journai/data"

	return JournAIConfig{
		Meta: MetaConfig{Version: CurrentConfigVersion},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            12230,
			Mode:            "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage:   store,
		Auth:      auth.JWTConfig{Issuer: "journai", TTL: 7 * 24 * time.Hour},
		LLM:       LLMConfig{Backend: llm.BackendGemini},
		Oracle:    oracle.DefaultConfig(),
		Memory:    entries.Config{StrictForgetting: false},
		Reminder:  ReminderConfig{Enabled: true},
		LoginRate: middleware.DefaultLoginRateLimit(),
		Logging:   LoggingConfig{Level: "info", Format: "auto"},
		Telemetry: telemetry.DefaultConfig(),
	}
}
