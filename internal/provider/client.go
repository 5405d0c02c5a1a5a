// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultTimeout bounds one request when Settings.Timeout is zero.
const DefaultTimeout = 60 * time.Second

var (
	// ErrNoChoices is returned when the backend answers without a choice.
	ErrNoChoices = errors.New("response contained no choices")
	// ErrMissingModel is returned when neither the request nor the client
	// names a model.
	ErrMissingModel = errors.New("no model selected")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	status := http.StatusText(e.StatusCode)
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.StatusCode, status)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Settings configures a Client.
type Settings struct {
	APIKey string
	// BaseURL is either the API root or the full chat completions endpoint.
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Request is one completion call. Zero Model and Temperature fall back to
// the client settings.
type Request struct {
	Model       string
	Temperature *float64
	Messages    []openai.ChatCompletionMessageParamUnion
}

// Reply is the first choice of a completion.
type Reply struct {
	Content     string
	Model       string
	TotalTokens int64
}

// Client sends chat completions to one backend.
type Client struct {
	api      openai.Client
	settings Settings
}

// New builds a client. Retries are disabled: the request queue decides what
// to do with failures.
func New(s Settings) *Client {
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	api := openai.NewClient(
		option.WithAPIKey(s.APIKey),
		option.WithBaseURL(NormalizeBaseURL(s.BaseURL)),
		option.WithHTTPClient(&http.Client{Timeout: s.Timeout}),
		option.WithMaxRetries(0),
	)
	return &Client{api: api, settings: s}
}

// Settings returns the settings the client was built with.
func (c *Client) Settings() Settings {
	return c.settings
}

// Complete sends a non-streaming chat completion.
func (c *Client) Complete(ctx context.Context, req Request) (Reply, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.settings.Model
	}
	if model == "" {
		return Reply{}, ErrMissingModel
	}

	temperature := c.settings.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    req.Messages,
		Temperature: openai.Float(temperature),
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Reply{}, &APIError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
		}
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, ErrNoChoices
	}

	reply := Reply{
		Content:     resp.Choices[0].Message.Content,
		Model:       resp.Model,
		TotalTokens: resp.Usage.TotalTokens,
	}
	if reply.Model == "" {
		reply.Model = model
	}
	return reply, nil
}

// NormalizeBaseURL converts a chat completions endpoint into the API root
// the client expects. Roots are returned with a trailing slash.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	u = strings.TrimRight(u, "/")
	if u == "" {
		return ""
	}
	return u + "/"
}

// DisplayModelName shortens "vendor/model" to "model".
func DisplayModelName(model string) string {
	if _, name, ok := strings.Cut(model, "/"); ok && name != "" {
		return name
	}
	return model
}
