package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/zkparallel/internal/task"
)

// ExecutionRecord holds the start and end times of one task.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Outcome scripts how SleepRunner answers one circuit.
type Outcome struct {
	Sleep   time.Duration
	Fail    string
	Signals []string
}

// SleepRunner is a task.Runner for concurrency tests. It sleeps for the
// scripted duration, records when each task ran and tracks the peak number
// of tasks in flight.
type SleepRunner struct {
	Outcomes map[string]Outcome

	mu         sync.Mutex
	records    map[string]*ExecutionRecord
	order      []string
	inFlight   int
	maxFlight  int
	seenInputs map[string]map[string]any
}

// NewSleepRunner creates a runner with the given per-circuit outcomes.
// Circuits without an outcome succeed immediately.
func NewSleepRunner(outcomes map[string]Outcome) *SleepRunner {
	return &SleepRunner{
		Outcomes:   outcomes,
		records:    make(map[string]*ExecutionRecord),
		seenInputs: make(map[string]map[string]any),
	}
}

// Run implements task.Runner.
func (r *SleepRunner) Run(ctx context.Context, t task.Task, emit func(task.Event)) task.Result {
	out := r.Outcomes[t.CircuitID]

	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxFlight {
		r.maxFlight = r.inFlight
	}
	r.order = append(r.order, t.CircuitID)
	r.seenInputs[t.CircuitID] = t.Input
	r.mu.Unlock()

	if emit == nil {
		emit = func(task.Event) {}
	}
	start := time.Now()
	emit(task.Event{Kind: task.EventLog, CircuitID: t.CircuitID, Text: "start " + t.CircuitID})
	select {
	case <-time.After(out.Sleep):
	case <-ctx.Done():
	}
	emit(task.Event{Kind: task.EventLog, CircuitID: t.CircuitID, Text: "end " + t.CircuitID})
	end := time.Now()

	r.mu.Lock()
	r.inFlight--
	r.records[t.CircuitID] = &ExecutionRecord{Start: start, End: end}
	r.mu.Unlock()

	res := task.Result{CircuitID: t.CircuitID, ElapsedMs: end.Sub(start).Milliseconds(), PublicSignals: out.Signals}
	if out.Fail != "" {
		res.Error = out.Fail
		return res
	}
	res.OK = true
	if t.Stage == task.StageCallData {
		res.CallData = []byte(t.CircuitID)
	}
	return res
}

// MaxInFlight reports the peak number of concurrent runs.
func (r *SleepRunner) MaxInFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxFlight
}

// Started lists circuit ids in the order their runs began.
func (r *SleepRunner) Started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Record returns the execution record of a circuit, or nil if it never ran.
func (r *SleepRunner) Record(id string) *ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id]
}

// Input returns the overrides a circuit's task carried.
func (r *SleepRunner) Input(id string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seenInputs[id]
}
