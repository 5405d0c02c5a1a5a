// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeMessages renders request messages as generic JSON for inspection.
func decodeMessages(t *testing.T, v any) []map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func completionJSON(content string, tokens int) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "served-model",
		"choices": []any{
			map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": tokens},
	}
}

// =============================================================================
// MESSAGE BUILDING
// =============================================================================

func TestBuildMessages_TextOnly(t *testing.T) {
	msgs := decodeMessages(t, BuildMessages("Be terse.", []Message{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: "hello"},
	}))

	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0]["role"])
	system := msgs[0]["content"].(string)
	assert.True(t, strings.HasPrefix(system, "Be terse.\n\n[IMPORTANT: LATEX RENDERING RULES]"))
	assert.True(t, strings.HasSuffix(system, "starts and ends on its own line."))

	assert.Equal(t, "user", msgs[1]["role"])
	assert.Equal(t, "hi", msgs[1]["content"])
	assert.Equal(t, "assistant", msgs[2]["role"])
	assert.Equal(t, "hello", msgs[2]["content"])
}

func TestBuildMessages_Images(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "shot.jpg")
	require.NoError(t, os.WriteFile(img, []byte{0xff, 0xd8, 0xff}, 0644))

	msgs := decodeMessages(t, BuildMessages("", []Message{
		{Role: RoleUser, Text: "what is this?", Images: []string{img, filepath.Join(dir, "missing.png")}},
		{Role: RoleUser, Text: "   ", Images: []string{"data:image/gif;base64,R0lG"}},
		{Role: RoleUser, Text: "", Images: []string{"nope"}},
	}))

	// The last record has no usable parts and is dropped.
	require.Len(t, msgs, 3)

	parts := msgs[1]["content"].([]any)
	require.Len(t, parts, 2)
	text := parts[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "what is this?", text["text"])
	image := parts[1].(map[string]any)
	assert.Equal(t, "image_url", image["type"])
	url := image["image_url"].(map[string]any)["url"].(string)
	assert.Equal(t, "data:image/jpeg;base64,/9j/", url)

	// Blank text is omitted from the parts.
	parts = msgs[2]["content"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, "image_url", parts[0].(map[string]any)["type"])
}

func TestImageDataURI(t *testing.T) {
	dir := t.TempDir()
	noExt := filepath.Join(dir, "clipboard")
	require.NoError(t, os.WriteFile(noExt, []byte("abc"), 0644))

	rawB64 := strings.Repeat("A", 201)
	withSlash := "ab/" + strings.Repeat("A", 250)

	tests := []struct {
		name   string
		src    string
		want   string
		wantOK bool
	}{
		{"data uri passes", "data:image/png;base64,xyz", "data:image/png;base64,xyz", true},
		{"file without extension", noExt, "data:image/png;base64,YWJj", true},
		{"raw base64", rawB64, "data:image/png;base64," + rawB64, true},
		{"short raw", strings.Repeat("A", 200), "", false},
		{"slash in head", withSlash, "", false},
		{"missing file", filepath.Join(dir, "gone.png"), "", false},
		{"directory", dir, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ImageDataURI(tt.src)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// CLIENT
// =============================================================================

func TestClient_Complete(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionJSON("4", 42))
	}))
	defer server.Close()

	client := New(Settings{
		APIKey:      "sk-test",
		BaseURL:     server.URL + "/v1/chat/completions",
		Model:       "vendor/model-a",
		Temperature: 0.7,
	})

	msgs := BuildMessages("sys", []Message{{Role: RoleUser, Text: "2+2?"}})
	reply, err := client.Complete(context.Background(), Request{Messages: msgs})
	require.NoError(t, err)

	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "vendor/model-a", gotPayload["model"])
	assert.InDelta(t, 0.7, gotPayload["temperature"], 1e-9)
	assert.Len(t, gotPayload["messages"], 2)

	assert.Equal(t, "4", reply.Content)
	assert.Equal(t, "served-model", reply.Model)
	assert.Equal(t, int64(42), reply.TotalTokens)
}

func TestClient_RequestOverrides(t *testing.T) {
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionJSON("ok", 1))
	}))
	defer server.Close()

	client := New(Settings{BaseURL: server.URL, Model: "default"})
	zero := 0.0
	_, err := client.Complete(context.Background(), Request{
		Model:       "other",
		Temperature: &zero,
		Messages:    BuildMessages("", nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "other", gotPayload["model"])
	assert.Equal(t, 0.0, gotPayload["temperature"])
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	client := New(Settings{BaseURL: server.URL, Model: "m"})
	_, err := client.Complete(context.Background(), Request{Messages: BuildMessages("", nil)})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "401 Unauthorized")
}

func TestClient_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := completionJSON("", 0)
		resp["choices"] = []any{}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	_, err := New(Settings{BaseURL: server.URL, Model: "m"}).Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestClient_MissingModel(t *testing.T) {
	_, err := New(Settings{BaseURL: "http://127.0.0.1:1"}).Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrMissingModel)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := New(Settings{BaseURL: server.URL, Model: "m", Timeout: 50 * time.Millisecond})
	_, err := client.Complete(context.Background(), Request{Messages: BuildMessages("", nil)})
	assert.Error(t, err)
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://api.deepseek.com/chat/completions", "https://api.deepseek.com/"},
		{"https://openrouter.ai/api/v1/chat/completions/", "https://openrouter.ai/api/v1/"},
		{"http://localhost:11434/v1", "http://localhost:11434/v1/"},
		{" https://api.x.ai/v1/ ", "https://api.x.ai/v1/"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeBaseURL(tt.in); got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayModelName(t *testing.T) {
	assert.Equal(t, "gpt-oss-120b", DisplayModelName("openai/gpt-oss-120b"))
	assert.Equal(t, "deepseek-chat", DisplayModelName("deepseek-chat"))
	assert.Equal(t, "a/b", DisplayModelName("x/a/b"))
}
