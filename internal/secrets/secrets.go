// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package secrets stores provider API keys in the OS keyring.
//
// Keys are looked up in this order: the RIGCHAT_API_KEY environment
// variable, the keyring entry for the provider, then a legacy plaintext key
// from the config file.
package secrets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const (
	serviceName = "rigchat"
	envVar      = "RIGCHAT_API_KEY"
)

// Key sources reported by APIKey.
const (
	SourceEnv     = "environment"
	SourceKeyring = "keyring"
	SourceConfig  = "config file"
)

// ErrNoKey is returned when no key is stored for a provider.
var ErrNoKey = errors.New("no API key stored")

func account(provider string) string {
	return "provider:" + strings.ToLower(strings.TrimSpace(provider))
}

// APIKey resolves the key for provider and reports where it came from.
// plaintext is the legacy config value and may be empty. An empty key with
// an empty source means nothing is configured.
func APIKey(provider, plaintext string) (key, source string) {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v, SourceEnv
	}
	if v, err := keyring.Get(serviceName, account(provider)); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), SourceKeyring
	}
	if v := strings.TrimSpace(plaintext); v != "" {
		return v, SourceConfig
	}
	return "", ""
}

// SaveKey stores the key for provider in the keyring.
func SaveKey(provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("refusing to store an empty key")
	}
	if err := keyring.Set(serviceName, account(provider), key); err != nil {
		return fmt.Errorf("store key for %s: %w", provider, err)
	}
	return nil
}

// DeleteKey removes the keyring entry for provider. ErrNoKey is returned
// when there was nothing to delete.
func DeleteKey(provider string) error {
	err := keyring.Delete(serviceName, account(provider))
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoKey
	}
	if err != nil {
		return fmt.Errorf("delete key for %s: %w", provider, err)
	}
	return nil
}

// HasKey reports whether the keyring holds a key for provider.
func HasKey(provider string) bool {
	v, err := keyring.Get(serviceName, account(provider))
	return err == nil && v != ""
}

// Mask shortens a key for display, keeping the first and last four
// characters.
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 4) + key[len(key)-4:]
}

// PromptForAPIKey reads a key from the terminal without echo. When stdin is
// not a terminal it reads one line instead, so keys can be piped in.
func PromptForAPIKey(out io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}

	fmt.Fprint(out, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read key: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
