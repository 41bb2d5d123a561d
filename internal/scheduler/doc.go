// Package scheduler runs a list of independent tasks under a concurrency
// bound.
//
// # How It Works
//
// Tasks are queued in a buffered channel in submission order. The scheduler
// starts one goroutine per slot; each slot owns a task.Runner (the inline
// executor or an offloaded worker) and ranges over the queue, so a slot that
// finishes picks up the next queued task immediately. Results are collected
// in completion order.
//
// # Callbacks
//
// OnLog, OnProgress and OnResult are never called concurrently. Progress
// fires once per completed task with (done, total). Because a slot delivers
// its result before taking the next task, a run with Concurrency 1 finishes
// all callbacks for one task before the next task starts.
//
// # Cancellation
//
// When the context is canceled, tasks that have not started are answered
// with a failed result whose error is "canceled". Every task still yields
// exactly one result.
package scheduler
