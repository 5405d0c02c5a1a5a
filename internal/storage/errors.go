// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// =============================================================================
// ERRORS
// =============================================================================

// Use errors.Is to test for these.
var (
	ErrChatNotFound   = &StorageError{Message: "chat not found"}
	ErrFolderNotFound = &StorageError{Message: "folder not found"}
	ErrFolderExists   = &StorageError{Message: "folder already exists"}
	ErrInvalidName    = &StorageError{Message: "invalid name"}
	ErrUnknownFormat  = &StorageError{Message: "unknown chat file format"}
)

// StorageError is a storage failure that can be compared with errors.Is.
type StorageError struct {
	Message string
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return e.Message
}

// Is matches another StorageError with the same message.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
