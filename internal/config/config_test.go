// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RIGCHAT_HOME", dir)
	for _, k := range []string{
		"RIGCHAT_PROVIDER", "RIGCHAT_MODEL", "RIGCHAT_BASE_URL", "RIGCHAT_SYSTEM_PROMPT",
		"RIGCHAT_TEMPERATURE", "RIGCHAT_STORAGE", "RIGCHAT_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	return dir
}

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently. Run with -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.Model = "test-model"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

// TestConfig_ConcurrentMixedOperations mixes Global, SetGlobal and ReloadGlobal.
func TestConfig_ConcurrentMixedOperations(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 90; i++ {
		wg.Add(1)
		switch i % 3 {
		case 0:
			go func() {
				defer wg.Done()
				if Global() == nil {
					t.Error("Global() returned nil")
				}
			}()
		case 1:
			go func() {
				defer wg.Done()
				c := Default()
				c.Version = "concurrent-test"
				SetGlobal(c)
			}()
		case 2:
			go func() {
				defer wg.Done()
				_ = ReloadGlobal()
			}()
		}
	}
	wg.Wait()
}

func TestConfig_GlobalInitialization(t *testing.T) {
	dir := isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	cfg := Global()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, filepath.Join(dir, "ChatHistory"), cfg.Storage.Root)
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "You are a helpful assistant.", cfg.SystemPrompt)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.Equal(t, 60, cfg.RequestTimeoutSecs)
	assert.Len(t, cfg.Providers, 10)
	assert.NoError(t, cfg.Validate())

	for _, p := range cfg.Providers {
		assert.NotEmpty(t, p.Models, "preset %s has no models", p.Name)
		assert.True(t, strings.HasSuffix(p.BaseURL, "/chat/completions"), "preset %s url %s", p.Name, p.BaseURL)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, true},
		{"temperature at max", func(c *Config) { c.Temperature = 2 }, false},
		{"negative temperature", func(c *Config) { c.Temperature = -0.1 }, true},
		{"zero timeout", func(c *Config) { c.RequestTimeoutSecs = 0 }, true},
		{"unknown provider", func(c *Config) { c.Provider = "nobody" }, true},
		{"provider case-insensitive", func(c *Config) { c.Provider = "deepseek" }, false},
		{"bad provider url", func(c *Config) { c.Providers[0].BaseURL = "ftp://x" }, true},
		{"duplicate provider", func(c *Config) { c.Providers = append(c.Providers, ProviderConfig{Name: "openai", BaseURL: "https://x.y"}) }, true},
		{"bad override url", func(c *Config) { c.BaseURLOverride = "not a url" }, true},
		{"queue size zero", func(c *Config) { c.Worker.QueueSize = 0 }, true},
		{"negative rpm", func(c *Config) { c.Worker.RequestsPerMinute = -1 }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"warning level", func(c *Config) { c.Logging.Level = "warning" }, false},
		{"invalid format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"invalid theme", func(c *Config) { c.UI.Theme = "neon" }, true},
		{"empty model", func(c *Config) { c.Model = " " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verrs ValidateErrors
				assert.True(t, errors.As(err, &verrs))
			}
		})
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("worker.queue_size")
	require.NoError(t, err)
	assert.Equal(t, 64, val)

	require.NoError(t, cfg.Set("worker.requests_per_minute", "30"))
	val, _ = cfg.Get("worker.requests_per_minute")
	assert.Equal(t, 30, val)

	require.NoError(t, cfg.Set("temperature", "1.2"))
	assert.InDelta(t, 1.2, cfg.Temperature, 1e-9)

	require.NoError(t, cfg.Set("system-prompt", "Be brief."))
	assert.Equal(t, "Be brief.", cfg.SystemPrompt)

	_, err = cfg.Get("invalid.key")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("worker.queue_size", "many"))
	assert.Error(t, cfg.Set("base_url_override", "https://x"))
	_, err = cfg.Get("model.name")
	assert.Error(t, err)
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, "key %s", key)
	}
}

func TestConfig_Clone(t *testing.T) {
	original := Default()
	clone := original.Clone()

	clone.Version = "cloned"
	clone.Providers[0].Models[0] = "changed"

	assert.Equal(t, CurrentVersion, original.Version)
	assert.NotEqual(t, "changed", original.Providers[0].Models[0])
}

func TestConfig_StringRedactsKeys(t *testing.T) {
	cfg := Default()
	cfg.Providers[0].APIKey = "sk-secret"

	out := cfg.String()
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "sk-secret", cfg.Providers[0].APIKey)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ChatHistory"), cfg.Storage.Root)
	assert.Equal(t, filepath.Join(dir, "index.db"), cfg.Storage.IndexPath)
	assert.Equal(t, filepath.Join(dir, "token_stats.json"), cfg.Storage.UsagePath)
	assert.Equal(t, filepath.Join(dir, "logs", "rigchat.log"), cfg.Logging.File)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	require.NoError(t, cfg.UseProvider("DeepSeek", ""))
	cfg.Worker.RequestsPerMinute = 12
	cfg.UpsertProvider(ProviderConfig{Name: "Local", BaseURL: "http://127.0.0.1:8080/v1", Models: []string{"tiny"}})

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "DeepSeek", loaded.Provider)
	assert.Equal(t, "deepseek-chat", loaded.Model)
	assert.Equal(t, 12, loaded.Worker.RequestsPerMinute)
	assert.Len(t, loaded.Providers, 11)
	p, ok := loaded.FindProvider("local")
	require.True(t, ok)
	assert.Equal(t, []string{"tiny"}, p.Models)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	json := `{"provider":"Groq","model":"llama-3.3-70b-versatile","temperature":0.2}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(json), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Groq", cfg.Provider)
	assert.InDelta(t, 0.2, cfg.Temperature, 1e-9)
	assert.Len(t, cfg.Providers, 10, "presets fill an empty provider list")
}

func TestLoad_BrokenTOMLFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("provider = [oops"), 0600))

	cfg, err := Load()
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultProvider, cfg.Provider)
}

func TestSaveJSON(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "sub", "config.json")

	require.NoError(t, SaveJSON(Default(), path))
	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, loaded.Model)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RIGCHAT_PROVIDER", "OpenAI")
	t.Setenv("RIGCHAT_MODEL", "gpt-4o")
	t.Setenv("RIGCHAT_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("RIGCHAT_TEMPERATURE", "0.1")
	t.Setenv("RIGCHAT_STORAGE", "/tmp/chats")
	t.Setenv("RIGCHAT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "OpenAI", cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-9)
	assert.Equal(t, "/tmp/chats", cfg.Storage.Root)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://localhost:9999/v1", cfg.ActiveProvider().BaseURL)

	// The override never reaches the saved provider list.
	p, _ := cfg.FindProvider("OpenAI")
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", p.BaseURL)
}

// =============================================================================
// PROVIDERS
// =============================================================================

func TestUseProvider(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.UseProvider("groq", ""))
	assert.Equal(t, "Groq", cfg.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Model)

	require.NoError(t, cfg.UseProvider("OpenAI", "gpt-4.1"))
	assert.Equal(t, "gpt-4.1", cfg.Model)

	assert.Error(t, cfg.UseProvider("nobody", ""))
}

func TestImportAccountFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "account.json")
	content := `{"Provider":"DeepSeek","base_url":"https://api.deepseek.com/chat/completions","API-Key":"sk-123","models":["deepseek-reasoner","deepseek-chat"]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := Default()
	acct, err := cfg.ImportAccountFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-123", acct.APIKey)
	assert.Equal(t, "DeepSeek", cfg.Provider)
	assert.Equal(t, "deepseek-reasoner", cfg.Model)
	assert.Len(t, cfg.Providers, 10, "existing preset is replaced, not duplicated")

	p, _ := cfg.FindProvider("DeepSeek")
	assert.Empty(t, p.APIKey, "key is not written into the config")
}

func TestParseAccountFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `nope`},
		{"missing provider", `{"base_url":"https://a.b","API-Key":"k","models":["m"]}`},
		{"empty key", `{"Provider":"P","base_url":"https://a.b","API-Key":"","models":["m"]}`},
		{"empty models", `{"Provider":"P","base_url":"https://a.b","API-Key":"k","models":[]}`},
		{"models not list", `{"Provider":"P","base_url":"https://a.b","API-Key":"k","models":"m"}`},
		{"bad url", `{"Provider":"P","base_url":"a.b","API-Key":"k","models":["m"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "account.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			_, err := ParseAccountFile(path)
			assert.Error(t, err)
		})
	}
}
