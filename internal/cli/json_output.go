// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output for list and show commands.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// JSONResponse is the envelope every --json command writes.
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	// Error is null on success.
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response with two-space indentation.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode JSON output: %w", err)
	}
	return nil
}

// writeJSON is the one-liner used by commands.
func writeJSON(w io.Writer, command string, data interface{}) error {
	return NewJSONResponse(command, data).Write(w)
}
