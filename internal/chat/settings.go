// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log/slog"
	"time"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/provider"
	"github.com/jeranaias/rigchat/internal/secrets"
	"github.com/jeranaias/rigchat/internal/tasks"
)

// SettingsFromConfig resolves the backend settings of the active provider,
// looking the API key up in the environment, then the keyring, then the
// config file.
func SettingsFromConfig(cfg *config.Config) provider.Settings {
	p := cfg.ActiveProvider()
	key, source := secrets.APIKey(p.Name, p.APIKey)
	if key == "" {
		slog.Warn("no API key configured", "provider", p.Name)
	} else {
		slog.Debug("API key resolved", "provider", p.Name, "source", source)
	}
	return provider.Settings{
		APIKey:      key,
		BaseURL:     p.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     time.Duration(cfg.RequestTimeoutSecs) * time.Second,
	}
}

// WorkerOptionsFromConfig maps the worker section of the config.
func WorkerOptionsFromConfig(cfg *config.Config) tasks.Options {
	return tasks.Options{
		QueueSize:         cfg.Worker.QueueSize,
		RequestsPerMinute: cfg.Worker.RequestsPerMinute,
	}
}
