// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/rigchat/internal/util"
)

// CurrentVersion is written into new configuration files.
const CurrentVersion = "1"

// DefaultSystemPrompt is used when no system prompt is configured.
const DefaultSystemPrompt = "You are a helpful assistant."

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Provider is the name of the active entry in Providers.
	Provider string `toml:"provider" json:"provider"`
	// Model is the active model of the provider.
	Model string `toml:"model" json:"model"`

	SystemPrompt       string  `toml:"system_prompt" json:"system_prompt"`
	Temperature        float64 `toml:"temperature" json:"temperature"`
	RequestTimeoutSecs int     `toml:"request_timeout_secs" json:"request_timeout_secs"`

	Storage StorageConfig `toml:"storage" json:"storage"`
	Worker  WorkerConfig  `toml:"worker" json:"worker"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	UI      UIConfig      `toml:"ui" json:"ui"`

	Providers []ProviderConfig `toml:"providers" json:"providers"`

	// BaseURLOverride comes from RIGCHAT_BASE_URL and is never saved.
	BaseURLOverride string `toml:"-" json:"-"`
}

// StorageConfig locates the chat history tree and its companion files.
type StorageConfig struct {
	// Root holds one directory per chat folder.
	Root string `toml:"root" json:"root"`
	// IndexPath is the SQLite full-text index.
	IndexPath string `toml:"index_path" json:"index_path"`
	// UsagePath is the token ledger.
	UsagePath string `toml:"usage_path" json:"usage_path"`
}

// WorkerConfig tunes the request worker.
type WorkerConfig struct {
	QueueSize int `toml:"queue_size" json:"queue_size"`
	// RequestsPerMinute throttles outgoing requests. Zero disables it.
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// LoggingConfig configures the slog handler and its rotating file.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level"`
	// Format is "json" or "text".
	Format string `toml:"format" json:"format"`
	File   string `toml:"file" json:"file"`
}

// UIConfig contains terminal front end settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`
	// Width wraps replies in the line REPL. Zero means the terminal width.
	Width int `toml:"width" json:"width"`
	// ActiveFolder is the folder new chats go to.
	ActiveFolder string `toml:"active_folder" json:"active_folder"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version:            CurrentVersion,
		Provider:           DefaultProvider,
		Model:              DefaultModel,
		SystemPrompt:       DefaultSystemPrompt,
		Temperature:        0.7,
		RequestTimeoutSecs: 60,
		Worker: WorkerConfig{
			QueueSize: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		UI: UIConfig{
			Theme: "dark",
		},
		Providers: Presets(),
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory. RIGCHAT_HOME
// overrides the default ~/.rigchat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("RIGCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions tightens config files to 0600 since they may hold
// legacy plaintext keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config directory. TOML is tried first,
// then JSON, then built-in defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			cfg = Default()
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = errors.Join(loadErr, fmt.Errorf("failed to load JSON config: %w", err))
			} else {
				return finish(cfg)
			}
		}
	}

	cfg = Default()
	out, err := finish(cfg)
	if err != nil {
		return nil, err
	}
	// Defaults are usable; the load error is informational.
	return out, loadErr
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	// A file that lists providers replaces the presets instead of appending.
	cfg.Providers = nil
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	cfg.Providers = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if len(cfg.Providers) == 0 {
		cfg.Providers = defaults.Providers
	}
	if cfg.Provider == "" {
		cfg.Provider = defaults.Provider
	}
	if cfg.Model == "" {
		if p, ok := cfg.FindProvider(cfg.Provider); ok && len(p.Models) > 0 {
			cfg.Model = p.Models[0]
		} else {
			cfg.Model = defaults.Model
		}
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaults.SystemPrompt
	}
	if cfg.RequestTimeoutSecs == 0 {
		cfg.RequestTimeoutSecs = defaults.RequestTimeoutSecs
	}
	if cfg.Worker.QueueSize == 0 {
		cfg.Worker.QueueSize = defaults.Worker.QueueSize
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	return nil
}

// SetDefaults resolves derived paths. It runs after env overrides so
// RIGCHAT_HOME and RIGCHAT_STORAGE are honored.
func (c *Config) SetDefaults() {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".rigchat"
	}

	if c.Storage.Root == "" {
		c.Storage.Root = filepath.Join(dir, "ChatHistory")
	}
	if c.Storage.IndexPath == "" {
		c.Storage.IndexPath = filepath.Join(dir, "index.db")
	}
	if c.Storage.UsagePath == "" {
		c.Storage.UsagePath = filepath.Join(dir, "token_stats.json")
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(dir, "logs", "rigchat.log")
	}

	c.Storage.Root = expandHome(c.Storage.Root)
	c.Storage.IndexPath = expandHome(c.Storage.IndexPath)
	c.Storage.UsagePath = expandHome(c.Storage.UsagePath)
	c.Logging.File = expandHome(c.Logging.File)
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

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# rigchat configuration file")
	fmt.Fprintln(file, "# Generated by rigchat - edit with care")
	fmt.Fprintln(file, "#")
	fmt.Fprintln(file, "# API keys live in the OS keyring; see `rigchat key set`.")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file, atomically.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := util.MarshalIndentJSON(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", c.Temperature),
		})
	}
	if c.RequestTimeoutSecs < 1 || c.RequestTimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "request_timeout_secs",
			Message: fmt.Sprintf("must be 1-3600, got %d", c.RequestTimeoutSecs),
		})
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, ValidationError{Field: "model", Message: "cannot be empty"})
	}

	// ==========================================================================
	// Providers
	// ==========================================================================

	seen := make(map[string]bool)
	for i, p := range c.Providers {
		field := fmt.Sprintf("providers[%d]", i)
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "cannot be empty"})
			continue
		}
		if seen[key] {
			errs = append(errs, ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate provider '%s'", p.Name)})
		}
		seen[key] = true
		if err := validateURL(p.BaseURL); err != nil {
			errs = append(errs, ValidationError{Field: field + ".base_url", Message: err.Error()})
		}
	}
	if _, ok := c.FindProvider(c.Provider); !ok {
		errs = append(errs, ValidationError{
			Field:   "provider",
			Message: fmt.Sprintf("unknown provider '%s'", c.Provider),
		})
	}
	if c.BaseURLOverride != "" {
		if err := validateURL(c.BaseURLOverride); err != nil {
			errs = append(errs, ValidationError{Field: "RIGCHAT_BASE_URL", Message: err.Error()})
		}
	}

	// ==========================================================================
	// Worker / Logging / UI
	// ==========================================================================

	if c.Worker.QueueSize < 1 || c.Worker.QueueSize > 10000 {
		errs = append(errs, ValidationError{
			Field:   "worker.queue_size",
			Message: fmt.Sprintf("must be 1-10000, got %d", c.Worker.QueueSize),
		})
	}
	if c.Worker.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "worker.requests_per_minute",
			Message: "cannot be negative",
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format '%s', must be json or text", c.Logging.Format),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.Width < 0 {
		errs = append(errs, ValidationError{Field: "ui.width", Message: "cannot be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got '%s'", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: '%s'", raw)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RIGCHAT_PROVIDER: overrides provider
//   - RIGCHAT_MODEL: overrides model
//   - RIGCHAT_BASE_URL: overrides the active provider URL (not saved)
//   - RIGCHAT_SYSTEM_PROMPT: overrides system_prompt
//   - RIGCHAT_TEMPERATURE: overrides temperature
//   - RIGCHAT_STORAGE: overrides storage.root
//   - RIGCHAT_LOG_LEVEL: overrides logging.level
//
// RIGCHAT_API_KEY is read by the secrets package and never stored here.
func (c *Config) ApplyEnvOverrides() {
	if provider := os.Getenv("RIGCHAT_PROVIDER"); provider != "" {
		c.Provider = provider
	}
	if model := os.Getenv("RIGCHAT_MODEL"); model != "" {
		c.Model = model
	}
	if baseURL := os.Getenv("RIGCHAT_BASE_URL"); baseURL != "" {
		c.BaseURLOverride = baseURL
	}
	if prompt := os.Getenv("RIGCHAT_SYSTEM_PROMPT"); prompt != "" {
		c.SystemPrompt = prompt
	}
	if temp := os.Getenv("RIGCHAT_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			c.Temperature = v
		}
	}
	if root := os.Getenv("RIGCHAT_STORAGE"); root != "" {
		c.Storage.Root = root
	}
	if level := os.Getenv("RIGCHAT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "worker.queue_size").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() || strings.EqualFold(fieldName, "BaseURLOverride") {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all scalar configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"provider",
		"model",
		"system_prompt",
		"temperature",
		"request_timeout_secs",
		"storage.root",
		"storage.index_path",
		"storage.usage_path",
		"worker.queue_size",
		"worker.requests_per_minute",
		"logging.level",
		"logging.format",
		"logging.file",
		"ui.theme",
		"ui.width",
		"ui.active_folder",
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Providers != nil {
		clone.Providers = make([]ProviderConfig, len(c.Providers))
		for i, p := range c.Providers {
			clone.Providers[i] = p
			clone.Providers[i].Models = append([]string(nil), p.Models...)
		}
	}
	return &clone
}

// String returns the config as JSON with plaintext API keys redacted.
func (c *Config) String() string {
	safe := c.Clone()
	for i := range safe.Providers {
		if safe.Providers[i].APIKey != "" {
			safe.Providers[i].APIKey = "[REDACTED]"
		}
	}
	data, _ := util.MarshalIndentJSON(safe)
	return strings.TrimRight(string(data), "\n")
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
			cfg.SetDefaults()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
