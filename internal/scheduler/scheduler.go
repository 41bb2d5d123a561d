package scheduler

import (
	"context"
	"sync"

	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/task"
)

// canceledReason is the error of tasks that never started.
const canceledReason = "canceled"

// noRunnerReason is the error of every task when no runner is available.
const noRunnerReason = "no runner configured"

// RunAll executes tasks and returns exactly one result per task, in
// completion order.
func RunAll(ctx context.Context, tasks []task.Task, opts Options) []task.Result {
	logger := ctxlog.FromContext(ctx)
	total := len(tasks)
	results := make([]task.Result, 0, total)
	if total == 0 {
		return results
	}

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	deliver := func(res task.Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, res)
		done++
		if opts.OnResult != nil {
			opts.OnResult(res)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(done, total)
		}
	}
	emit := func(e task.Event) {
		if e.Kind != task.EventLog || opts.OnLog == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		opts.OnLog(e.CircuitID, e.Text)
	}

	if len(opts.Runners) == 0 {
		logger.Warn("No runner configured, failing all tasks.", "tasks", total)
		for _, t := range tasks {
			deliver(task.Failed(t.CircuitID, noRunnerReason))
		}
		return results
	}

	queue := make(chan task.Task, total)
	for _, t := range tasks {
		queue <- t
	}
	close(queue)

	slots := opts.slots(total)
	logger.Debug("Starting scheduler slots.", "slots", slots, "tasks", total, "runners", len(opts.Runners))

	wg.Add(slots)
	for i := 0; i < slots; i++ {
		runner := opts.Runners[i%len(opts.Runners)]
		go func(slotID int) {
			defer wg.Done()
			slotLogger := logger.With("slot", slotID)
			for t := range queue {
				if ctx.Err() != nil {
					slotLogger.Debug("Context canceled, skipping task.", "circuit", t.CircuitID)
					deliver(task.Failed(t.CircuitID, canceledReason))
					continue
				}
				slotLogger.Debug("Slot picked up task.", "circuit", t.CircuitID)
				res := runner.Run(ctx, t, emit)
				res.CircuitID = t.CircuitID
				deliver(res)
			}
			slotLogger.Debug("Slot finished.")
		}(i)
	}

	wg.Wait()
	return results
}

// Stream runs tasks like RunAll and reports the run as a sequence of
// events: log lines, progress updates and results. The channel is closed
// after the last result. The consumer must drain it or cancel ctx.
func Stream(ctx context.Context, tasks []task.Task, opts Options) <-chan task.Event {
	out := make(chan task.Event, 16)
	send := func(e task.Event) {
		select {
		case out <- e:
		case <-ctx.Done():
		}
	}

	onLog, onProgress, onResult := opts.OnLog, opts.OnProgress, opts.OnResult
	opts.OnLog = func(id, text string) {
		if onLog != nil {
			onLog(id, text)
		}
		send(task.Event{Kind: task.EventLog, CircuitID: id, Text: text})
	}
	opts.OnProgress = func(done, total int) {
		if onProgress != nil {
			onProgress(done, total)
		}
		send(task.Event{Kind: task.EventProgress, Done: done, Total: total})
	}
	opts.OnResult = func(res task.Result) {
		if onResult != nil {
			onResult(res)
		}
		r := res
		send(task.Event{Kind: task.EventResult, CircuitID: res.CircuitID, Result: &r})
	}

	go func() {
		defer close(out)
		RunAll(ctx, tasks, opts)
	}()
	return out
}
