// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks serializes chat completion requests through one background
// worker.
//
// Every network call runs on the worker goroutine, one at a time, so the
// caller never blocks on the backend. Results come back on a channel in
// the order the tasks were submitted.
//
// # Key Types
//
//   - Task: one request with its status, timestamps and outcome
//   - Worker: bounded FIFO queue plus the goroutine that drains it
//   - Result: reply text or an "Error: ..." text for one task
//   - Completer: the backend call, implemented by *provider.Client
//
// # Usage
//
//	w := tasks.NewWorker(settings, tasks.Options{QueueSize: 64})
//	w.Start(ctx)
//	defer w.Stop()
//
//	task := tasks.NewTask(chatRef, provider.Request{Messages: msgs})
//	if err := w.Submit(task); err != nil {
//	    return err
//	}
//	res := <-w.Results()
//	fmt.Println(res.Text)
package tasks
