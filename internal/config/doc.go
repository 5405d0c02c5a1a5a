// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for rigchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ProviderConfig: A named OpenAI-compatible backend and its models
//   - StorageConfig: Chat history root, index and usage ledger paths
//   - Account: A legacy account.json being imported
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RIGCHAT_*)
//   - $RIGCHAT_HOME/config.toml (default ~/.rigchat)
//   - $RIGCHAT_HOME/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p := cfg.ActiveProvider()
//	fmt.Println(p.Name, cfg.Model)
package config
