// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/rigchat/internal/provider"
	"github.com/jeranaias/rigchat/internal/storage"
)

// DefaultQueueSize is used when Options.QueueSize is not positive.
const DefaultQueueSize = 64

var (
	// ErrQueueFull is returned by Submit when QueueSize tasks are waiting.
	ErrQueueFull = errors.New("request queue is full")
	// ErrWorkerStopped is returned by Submit once Stop has been called.
	ErrWorkerStopped = errors.New("worker stopped")
	// ErrCanceled is the Result error of a canceled task.
	ErrCanceled = errors.New("request canceled")
)

// Completer sends one completion request. *provider.Client implements it.
type Completer interface {
	Complete(ctx context.Context, req provider.Request) (provider.Reply, error)
}

// Result is delivered for every submitted task, in submission order.
type Result struct {
	TaskID string
	Chat   storage.ChatRef
	Status TaskStatus
	// Text is the reply, or "Error: <msg>" when Err is set.
	Text        string
	Model       string
	TotalTokens int64
	Err         error
}

// Options configures a Worker.
type Options struct {
	// QueueSize bounds the number of waiting tasks.
	QueueSize int

	// RequestsPerMinute throttles requests. Zero means unlimited.
	RequestsPerMinute int

	// TaskTimeout bounds a single request including rate limit waits.
	// Zero means the client timeout alone applies.
	TaskTimeout time.Duration

	// OnUsage receives the total token count of every successful reply.
	OnUsage func(tokens int64)

	// NewClient builds the completer for the current settings. Defaults to
	// provider.New.
	NewClient func(provider.Settings) Completer
}

// =============================================================================
// WORKER
// =============================================================================

// Worker owns the only goroutine that talks to the backend. Tasks run one
// at a time in the order they were submitted.
type Worker struct {
	mu        sync.Mutex
	settings  provider.Settings
	client    Completer
	newClient func(provider.Settings) Completer
	limiter   *rate.Limiter
	timeout   time.Duration
	onUsage   func(tokens int64)

	queueSize int
	// queue holds one extra slot for the stop sentinel (nil).
	queue   chan *Task
	results chan Result
	tasks   map[string]*Task

	started  bool
	stopping bool
	done     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a worker. Call Start to begin processing.
func NewWorker(settings provider.Settings, opts Options) *Worker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.NewClient == nil {
		opts.NewClient = func(s provider.Settings) Completer { return provider.New(s) }
	}
	return &Worker{
		settings:  settings,
		newClient: opts.NewClient,
		limiter:   newLimiter(opts.RequestsPerMinute),
		timeout:   opts.TaskTimeout,
		onUsage:   opts.OnUsage,
		queueSize: opts.QueueSize,
		queue:     make(chan *Task, opts.QueueSize+1),
		results:   make(chan Result, opts.QueueSize+1),
		tasks:     make(map[string]*Task),
		done:      make(chan struct{}),
	}
}

func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// =============================================================================
// WORKER LIFECYCLE
// =============================================================================

// Start launches the worker goroutine. Calling Start again is a no-op.
// Canceling ctx abandons queued tasks.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopping {
		return
	}
	w.started = true
	go w.loop(ctx)
}

// Stop lets already queued tasks finish, then ends the worker goroutine and
// closes Results. It blocks until the goroutine has exited and is safe to
// call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopping = true
		started := w.started
		w.mu.Unlock()

		if !started {
			w.abandonQueued()
			close(w.results)
			close(w.done)
			return
		}
		// Submit never fills the last slot, so the sentinel always fits.
		w.queue <- nil
	})
	<-w.done
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Results delivers one Result per task. It is closed after Stop. Callers
// must keep draining it while the worker runs.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// =============================================================================
// TASK MANAGEMENT
// =============================================================================

// Submit queues a task. It never blocks.
func (w *Worker) Submit(task *Task) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopping {
		return ErrWorkerStopped
	}
	if len(w.queue) >= w.queueSize {
		return fmt.Errorf("%w (%d waiting)", ErrQueueFull, len(w.queue))
	}
	w.tasks[task.ID] = task
	w.queue <- task
	slog.Debug("request queued", "task", task.ID, "folder", task.Chat.Folder, "chat", task.Chat.Title)
	return nil
}

// Cancel cancels a queued or running task. A canceled task still produces
// a Result with ErrCanceled.
func (w *Worker) Cancel(id string) bool {
	w.mu.Lock()
	task, ok := w.tasks[id]
	w.mu.Unlock()
	if !ok {
		return false
	}
	return task.Cancel()
}

// Get returns a copy of a pending or running task, or nil.
func (w *Worker) Get(id string) *Task {
	w.mu.Lock()
	defer w.mu.Unlock()
	if task, ok := w.tasks[id]; ok {
		return task.Clone()
	}
	return nil
}

// Pending returns the number of tasks queued or running.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tasks)
}

// UpdateConfig replaces the backend settings. The next task uses them; a
// request already in flight is not interrupted.
func (w *Worker) UpdateConfig(s provider.Settings) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settings = s
	w.client = nil
}

// SetRateLimit changes the requests-per-minute limit. Zero disables it.
func (w *Worker) SetRateLimit(rpm int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.limiter = newLimiter(rpm)
}

// Settings returns the current backend settings.
func (w *Worker) Settings() provider.Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

// =============================================================================
// TASK PROCESSING
// =============================================================================

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	defer close(w.results)

	for {
		select {
		case <-ctx.Done():
			w.abandonQueued()
			return
		case task := <-w.queue:
			if task == nil {
				return
			}
			if ctx.Err() != nil {
				task.Cancel()
				w.forget(task.ID)
				w.abandonQueued()
				return
			}
			res := w.process(ctx, task)
			w.forget(task.ID)
			select {
			case w.results <- res:
			case <-ctx.Done():
				w.abandonQueued()
				return
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, task *Task) Result {
	w.mu.Lock()
	if w.client == nil {
		w.client = w.newClient(w.settings)
	}
	client := w.client
	limiter := w.limiter
	timeout := w.timeout
	// A task without a model takes the one current when it starts, so a
	// switch made while it waited applies to it.
	req := task.Request
	if req.Model == "" {
		req.Model = w.settings.Model
	}
	w.mu.Unlock()

	var taskCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		taskCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	if !task.start(cancel) {
		return errorResult(task, req.Model, TaskStatusCanceled, ErrCanceled)
	}

	reply, err := w.complete(taskCtx, client, limiter, req)
	switch {
	case err == nil:
	case task.GetStatus() == TaskStatusCanceled:
		err = ErrCanceled
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("request timed out after %v: %w", timeout, err)
	}

	status := task.finish(reply, err)
	if err != nil {
		if status != TaskStatusCanceled {
			slog.Warn("request failed", "task", task.ID, "error", err)
		}
		return errorResult(task, req.Model, status, err)
	}

	slog.Debug("request complete", "task", task.ID, "model", reply.Model,
		"tokens", reply.TotalTokens, "duration", task.Duration())
	if w.onUsage != nil {
		w.onUsage(reply.TotalTokens)
	}
	if reply.Model == "" {
		reply.Model = req.Model
	}
	return Result{
		TaskID:      task.ID,
		Chat:        task.Chat,
		Status:      status,
		Text:        reply.Content,
		Model:       reply.Model,
		TotalTokens: reply.TotalTokens,
	}
}

func (w *Worker) complete(ctx context.Context, client Completer, limiter *rate.Limiter, req provider.Request) (provider.Reply, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return provider.Reply{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return client.Complete(ctx, req)
}

func errorResult(task *Task, model string, status TaskStatus, err error) Result {
	return Result{
		TaskID: task.ID,
		Chat:   task.Chat,
		Status: status,
		Text:   "Error: " + err.Error(),
		Model:  model,
		Err:    err,
	}
}

func (w *Worker) forget(id string) {
	w.mu.Lock()
	delete(w.tasks, id)
	w.mu.Unlock()
}

// abandonQueued cancels whatever is still waiting when the worker exits
// early.
func (w *Worker) abandonQueued() {
	for {
		select {
		case task := <-w.queue:
			if task != nil {
				task.Cancel()
				w.forget(task.ID)
			}
		default:
			return
		}
	}
}
