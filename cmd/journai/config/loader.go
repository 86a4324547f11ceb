// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads journai.yaml and applies environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/AleutianAI/journai/pkg/telemetry"
	"gopkg.in/yaml.v3"
)

var (
	Global JournAIConfig
	once   sync.Once
)

// DefaultPath is ~/.journai/journai.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".journai", "journai.yaml"), nil
}

// Load reads the config into Global once per process. An empty path uses
// DefaultPath. A missing file is created with defaults.
func Load(path string) error {
	var err error
	once.Do(func() {
		var cfg JournAIConfig
		cfg, err = LoadFile(path)
		if err == nil {
			Global = cfg
		}
	})
	return err
}

// LoadFile reads one config file, creating it with defaults when missing,
// then applies environment overrides.
func LoadFile(path string) (JournAIConfig, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return JournAIConfig{}, err
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return JournAIConfig{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return JournAIConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return JournAIConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := applyEnv(&cfg); err != nil {
		return JournAIConfig{}, err
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Logging.Dir = expandHome(cfg.Logging.Dir)
	if err := cfg.Validate(); err != nil {
		return JournAIConfig{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c JournAIConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "", "release", "debug", "test":
	default:
		return fmt.Errorf("server.mode %q must be release, debug or test", c.Server.Mode)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if c.Auth.Secret != "" && len(c.Auth.Secret) < 32 {
		return fmt.Errorf("auth.secret must be at least 32 bytes")
	}
	return nil
}

// Addr is the listen address.
func (c JournAIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(cfg *JournAIConfig) error {
	if v := os.Getenv("JOURNAI_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JOURNAI_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("JOURNAI_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("JOURNAI_JWT_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("LLM_BACKEND_TYPE"); v != "" {
		cfg.LLM.Backend = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.TraceExporter = telemetry.ExporterOTLP
		cfg.Telemetry.OTLPEndpoint = v
	}
	return nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
