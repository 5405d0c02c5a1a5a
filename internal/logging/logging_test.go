// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseLevel(tc.in), "ParseLevel(%q)", tc.in)
	}
}

func TestNew_TextFormatFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text")

	logger.Info("hidden")
	logger.Warn("shown", "folder", "Default folder")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, `folder="Default folder"`)
}

func TestInit_WritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "rigchat.log")
	logger, err := Init(Options{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	logger.Debug("chat created", "title", "Chat 1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"chat created"`)
	assert.Contains(t, string(data), `"title":"Chat 1"`)
}

func TestDefaultLogPath_UsesRigchatHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("RIGCHAT_HOME", home)
	assert.Equal(t, filepath.Join(home, "logs", "rigchat.log"), DefaultLogPath())
}
