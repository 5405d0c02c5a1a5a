// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/rigchat/internal/provider"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// TASK STATUS
// =============================================================================

// TaskStatus represents the current state of a request task.
type TaskStatus string

const (
	// TaskStatusQueued indicates the task is waiting for the worker
	TaskStatusQueued TaskStatus = "Queued"

	// TaskStatusRunning indicates the request is in flight
	TaskStatusRunning TaskStatus = "Running"

	// TaskStatusComplete indicates a reply was received
	TaskStatusComplete TaskStatus = "Complete"

	// TaskStatusFailed indicates the request failed
	TaskStatusFailed TaskStatus = "Failed"

	// TaskStatusCanceled indicates the task was canceled by the user
	TaskStatusCanceled TaskStatus = "Canceled"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusComplete || s == TaskStatusFailed || s == TaskStatusCanceled
}

// =============================================================================
// TASK STRUCTURE
// =============================================================================

// Task is one completion request waiting for or running on the worker.
type Task struct {
	// ID is a unique identifier for this task
	ID string

	// Chat is the conversation the reply belongs to
	Chat storage.ChatRef

	// Request is sent to the backend as is
	Request provider.Request

	// Status is the current state of the task
	Status TaskStatus

	// SubmitTime is when the task was created
	SubmitTime time.Time

	// StartTime is when the worker picked the task up
	StartTime time.Time

	// EndTime is when the task completed, failed or was canceled
	EndTime time.Time

	// Reply is set when the task completes
	Reply provider.Reply

	// Error is the error message if the task failed
	Error string

	cancel context.CancelFunc
	mu     sync.RWMutex
}

// NewTask creates a queued task for chat.
func NewTask(chat storage.ChatRef, req provider.Request) *Task {
	return &Task{
		ID:         uuid.New().String(),
		Chat:       chat,
		Request:    req,
		Status:     TaskStatusQueued,
		SubmitTime: time.Now(),
	}
}

// =============================================================================
// TASK METHODS
// =============================================================================

// SetStatus updates the task status (thread-safe).
// Valid transitions: Queued -> Running -> Complete/Failed/Canceled
func (t *Task) SetStatus(status TaskStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !isValidTransition(t.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", t.Status, status)
	}
	t.Status = status
	return nil
}

func isValidTransition(from, to TaskStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case TaskStatusQueued:
		return to == TaskStatusRunning || to == TaskStatusCanceled
	case TaskStatusRunning:
		return to == TaskStatusComplete || to == TaskStatusFailed || to == TaskStatusCanceled
	default:
		return false
	}
}

// GetStatus returns the current task status (thread-safe).
func (t *Task) GetStatus() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// GetError returns the error message (thread-safe).
func (t *Task) GetError() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Error
}

// start moves a queued task to running and records its cancel function.
// It returns false when the task was canceled while queued.
func (t *Task) start(cancel context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != TaskStatusQueued {
		return false
	}
	t.Status = TaskStatusRunning
	t.StartTime = time.Now()
	t.cancel = cancel
	return true
}

// finish records the outcome of a running task. A task canceled while
// running keeps its Canceled status.
func (t *Task) finish(reply provider.Reply, err error) TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel = nil
	if t.Status.IsTerminal() {
		return t.Status
	}
	t.EndTime = time.Now()
	if err != nil {
		t.Status = TaskStatusFailed
		t.Error = err.Error()
		return t.Status
	}
	t.Status = TaskStatusComplete
	t.Reply = reply
	return t.Status
}

// Cancel cancels the task if it is queued or running.
// Returns true if the task was canceled, false if it had already finished.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status.IsTerminal() {
		return false
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.Status = TaskStatusCanceled
	t.EndTime = time.Now()
	return true
}

// Duration returns how long the task has been running or took to complete.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.StartTime.IsZero() {
		return 0
	}
	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// IsRunning returns true if the request is in flight.
func (t *Task) IsRunning() bool {
	return t.GetStatus() == TaskStatusRunning
}

// IsComplete returns true if the task has finished (success, failure, or canceled).
func (t *Task) IsComplete() bool {
	return t.GetStatus().IsTerminal()
}

// Summary returns a one-line summary of the task.
func (t *Task) Summary() string {
	status := t.GetStatus()
	duration := t.Duration()

	summary := fmt.Sprintf("[%s] %s/%s - %s", t.ID[:8], t.Chat.Folder, t.Chat.Title, status)
	if duration > 0 {
		summary += fmt.Sprintf(" (%.1fs)", duration.Seconds())
	}
	return summary
}

// Clone creates a copy of the task for reading. The request messages are
// shared, they are never modified after submission.
func (t *Task) Clone() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return &Task{
		ID:         t.ID,
		Chat:       t.Chat,
		Request:    t.Request,
		Status:     t.Status,
		SubmitTime: t.SubmitTime,
		StartTime:  t.StartTime,
		EndTime:    t.EndTime,
		Reply:      t.Reply,
		Error:      t.Error,
	}
}
