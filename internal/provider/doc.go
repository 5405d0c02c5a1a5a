// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider talks to OpenAI-compatible chat completion backends.
//
// It turns stored chat records into request messages, inlines images as
// data URIs, and sends one non-streaming completion per call through the
// openai-go client.
//
// # Key Types
//
//   - Settings: Key, base URL, model, temperature and timeout
//   - Client: A configured backend
//   - Request / Reply: One completion round trip
//   - APIError: A non-2xx answer from the backend
//
// # Usage
//
//	client := provider.New(provider.Settings{
//	    APIKey:  key,
//	    BaseURL: "https://api.deepseek.com/chat/completions",
//	    Model:   "deepseek-chat",
//	})
//	msgs := provider.BuildMessages(cfg.SystemPrompt, history)
//	reply, err := client.Complete(ctx, provider.Request{Messages: msgs})
package provider
