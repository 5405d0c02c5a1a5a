// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and display for rigchat commands.
//
// Commands always return errors. Execute displays them once and exits
// with ExitGeneralError.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/provider"
	"github.com/jeranaias/rigchat/internal/storage"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError reports a bad argument value.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s", e.Field)
	if e.Value != "" {
		msg += fmt.Sprintf(" '%s'", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Example != "" {
		msg += fmt.Sprintf(" (example: %s)", e.Example)
	}
	return msg
}

// NotFoundError reports a missing folder, chat or provider.
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NewValidationErrorWithExample creates a ValidationError with a usage hint.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// translateError turns storage sentinels into user-facing NotFoundErrors
// and leaves everything else alone.
func translateError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrChatNotFound), errors.Is(err, storage.ErrFolderNotFound):
		return &NotFoundError{Resource: resource, ID: id, Err: err}
	}
	return err
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON in JSON mode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		DisplayErrorJSON(w, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}

// DisplayErrorJSON writes err as a JSON object with an error_type.
func DisplayErrorJSON(w io.Writer, err error) {
	output := map[string]interface{}{
		"error":   err.Error(),
		"success": false,
	}

	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		apiErr        *provider.APIError
		configErrs    config.ValidateErrors
	)
	switch {
	case errors.As(err, &validationErr):
		output["error_type"] = "validation_error"
		output["field"] = validationErr.Field
		output["value"] = validationErr.Value
		output["reason"] = validationErr.Reason
	case errors.As(err, &notFoundErr):
		output["error_type"] = "not_found_error"
		output["resource"] = notFoundErr.Resource
		output["id"] = notFoundErr.ID
	case errors.As(err, &apiErr):
		output["error_type"] = "api_error"
		output["status_code"] = apiErr.StatusCode
	case errors.As(err, &configErrs):
		output["error_type"] = "config_error"
	default:
		output["error_type"] = "generic_error"
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output)
}

// errorHint suggests a next step for common failures.
func errorHint(err error) string {
	var apiErr *provider.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode == 401:
		return "Check the API key with: rigchat key status"
	case errors.Is(err, provider.ErrMissingModel):
		return "Pick a model with: rigchat providers use <name> --model <model>"
	case errors.Is(err, storage.ErrFolderNotFound):
		return "List folders with: rigchat folders list"
	case errors.Is(err, storage.ErrChatNotFound):
		return "List chats with: rigchat chats list"
	}
	return ""
}
