// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/journai/cmd/journai/config"
	"github.com/AleutianAI/journai/pkg/logging"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	logLevel   string

	cfg    config.JournAIConfig
	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "journai",
		Short: "A journaling service with an AI companion that remembers",
		Long: `JournAI stores one diary entry per day, replies to each entry with a
short reflection, and keeps a memory of facts about you that it learns
from what you write.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Close()
			}
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder scheduler",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in serve.go
	}

	remindCmd = &cobra.Command{
		Use:   "remind",
		Short: "Run one reminder pass for the current UTC hour",
		Args:  cobra.NoArgs,
		RunE:  runRemind, // Defined in remind.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Skips config loading.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "journai %s\n", version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.journai/journai.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the config and installs the process logger.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	levelName := cfg.Logging.Level
	if logLevel != "" {
		levelName = logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger = logging.New(logging.Config{
		Level:   level,
		Format:  logging.Format(cfg.Logging.Format),
		LogDir:  cfg.Logging.Dir,
		Service: "journai",
	})
	slog.SetDefault(logger.Slog())
	slog.Debug("Configuration loaded", "addr", cfg.Addr(), "llm_backend", cfg.LLM.Backend)
	return nil
}
