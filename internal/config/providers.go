// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultProvider and DefaultModel are active on a fresh install.
const (
	DefaultProvider = "OpenRouter"
	DefaultModel    = "openai/gpt-oss-120b"
)

// ProviderConfig is a named OpenAI-compatible backend.
type ProviderConfig struct {
	Name string `toml:"name" json:"name"`
	// BaseURL is the chat completions endpoint or the API root.
	BaseURL string   `toml:"base_url" json:"base_url"`
	Models  []string `toml:"models" json:"models"`
	// APIKey is a legacy plaintext key. New keys go to the OS keyring.
	APIKey string `toml:"api_key,omitempty" json:"api_key,omitempty"`
}

// Presets returns the built-in provider list.
func Presets() []ProviderConfig {
	return []ProviderConfig{
		{Name: "OpenRouter", BaseURL: "https://openrouter.ai/api/v1/chat/completions",
			Models: []string{"openai/gpt-oss-120b", "deepseek/deepseek-chat", "anthropic/claude-sonnet-4", "qwen/qwen-2.5-vl-72b-instruct"}},
		{Name: "OpenAI", BaseURL: "https://api.openai.com/v1/chat/completions",
			Models: []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1"}},
		{Name: "DashScope", BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
			Models: []string{"qwen-plus", "qwen-max", "qwen-vl-plus"}},
		{Name: "DeepSeek", BaseURL: "https://api.deepseek.com/chat/completions",
			Models: []string{"deepseek-chat", "deepseek-reasoner"}},
		{Name: "XAI", BaseURL: "https://api.x.ai/v1/chat/completions",
			Models: []string{"grok-3", "grok-3-mini"}},
		{Name: "Groq", BaseURL: "https://api.groq.com/openai/v1/chat/completions",
			Models: []string{"llama-3.3-70b-versatile", "mixtral-8x7b-32768"}},
		{Name: "Gemini", BaseURL: "https://openrouter.ai/api/v1/chat/completions",
			Models: []string{"google/gemini-2.5-flash", "google/gemini-2.5-pro"}},
		{Name: "SiliconFlow", BaseURL: "https://api.siliconflow.cn/v1/chat/completions",
			Models: []string{"deepseek-ai/DeepSeek-V3", "Qwen/Qwen2.5-72B-Instruct"}},
		{Name: "Ollama", BaseURL: "http://localhost:11434/v1/chat/completions",
			Models: []string{"llama3.2", "qwen2.5"}},
		{Name: "Arli", BaseURL: "https://api.arliai.com/v1/chat/completions",
			Models: []string{"Mistral-Nemo-12B-Instruct-2407"}},
	}
}

// =============================================================================
// PROVIDER LOOKUP
// =============================================================================

// FindProvider returns the provider named name, ignoring case.
func (c *Config) FindProvider(name string) (ProviderConfig, bool) {
	if i := c.providerIndex(name); i >= 0 {
		return c.Providers[i], true
	}
	return ProviderConfig{}, false
}

func (c *Config) providerIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, p := range c.Providers {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// ActiveProvider returns the active provider with RIGCHAT_BASE_URL applied.
func (c *Config) ActiveProvider() ProviderConfig {
	p, ok := c.FindProvider(c.Provider)
	if !ok {
		p = ProviderConfig{Name: c.Provider}
	}
	if c.BaseURLOverride != "" {
		p.BaseURL = c.BaseURLOverride
	}
	return p
}

// UseProvider makes name the active provider. An empty model selects the
// provider's first model.
func (c *Config) UseProvider(name, model string) error {
	p, ok := c.FindProvider(name)
	if !ok {
		return fmt.Errorf("unknown provider '%s'", name)
	}
	c.Provider = p.Name
	switch {
	case model != "":
		c.Model = model
	case len(p.Models) > 0:
		c.Model = p.Models[0]
	}
	return nil
}

// UpsertProvider replaces the provider with the same name or appends it.
func (c *Config) UpsertProvider(p ProviderConfig) {
	if i := c.providerIndex(p.Name); i >= 0 {
		c.Providers[i] = p
		return
	}
	c.Providers = append(c.Providers, p)
}

// =============================================================================
// LEGACY ACCOUNT FILE
// =============================================================================

// Account is the content of a legacy account.json.
type Account struct {
	Provider string
	BaseURL  string
	APIKey   string
	Models   []string
}

// ParseAccountFile reads a legacy account.json of the form
// {"Provider", "base_url", "API-Key", "models"}. Every field is required and
// models must be a non-empty list of strings.
func ParseAccountFile(path string) (*Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read account file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("account file is not a JSON object: %w", err)
	}

	acct := &Account{}
	fields := []struct {
		key string
		dst *string
	}{
		{"Provider", &acct.Provider},
		{"base_url", &acct.BaseURL},
		{"API-Key", &acct.APIKey},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			return nil, fmt.Errorf("account file: missing '%s'", f.key)
		}
		if err := json.Unmarshal(v, f.dst); err != nil || strings.TrimSpace(*f.dst) == "" {
			return nil, fmt.Errorf("account file: invalid '%s'", f.key)
		}
	}

	models, ok := raw["models"]
	if !ok {
		return nil, fmt.Errorf("account file: missing 'models'")
	}
	if err := json.Unmarshal(models, &acct.Models); err != nil || len(acct.Models) == 0 {
		return nil, fmt.Errorf("account file: missing or invalid 'models' list")
	}

	if err := validateURL(acct.BaseURL); err != nil {
		return nil, fmt.Errorf("account file: base_url: %w", err)
	}
	return acct, nil
}

// ImportAccount merges a legacy account into Providers and activates it
// with its first model. The key is not stored in the config; callers put it
// in the keyring.
func (c *Config) ImportAccount(acct *Account) ProviderConfig {
	p := ProviderConfig{
		Name:    acct.Provider,
		BaseURL: acct.BaseURL,
		Models:  append([]string(nil), acct.Models...),
	}
	if i := c.providerIndex(acct.Provider); i >= 0 {
		p.Name = c.Providers[i].Name
	}
	c.UpsertProvider(p)
	c.Provider = p.Name
	c.Model = p.Models[0]
	return p
}

// ImportAccountFile parses a legacy account.json and imports it. The
// returned account still carries the API key for the caller to store.
func (c *Config) ImportAccountFile(path string) (*Account, error) {
	acct, err := ParseAccountFile(path)
	if err != nil {
		return nil, err
	}
	c.ImportAccount(acct)
	return acct, nil
}
