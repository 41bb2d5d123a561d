package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/scheduler"
	"github.com/specialistvlad/zkparallel/internal/state"
	"github.com/specialistvlad/zkparallel/internal/task"
)

// Chain is the on-chain client the orchestrator needs.
type Chain interface {
	Ping(ctx context.Context) (*big.Int, error)
	BatchVerify(ctx context.Context, batch string, verifiers []string, calldatas [][]byte) ([]bool, error)
}

// WorkerSource hands out one runner per scheduler slot.
type WorkerSource interface {
	Acquire(ctx context.Context, n int) ([]task.Runner, func(), error)
}

// Relay receives verified results after a run.
type Relay interface {
	Name() string
	PostResult(ctx context.Context, res task.Result) (string, error)
}

// Observer is told about every final result and every finished run.
type Observer interface {
	ObserveResult(mode string, res task.Result)
	ObserveRun(mode string, summary Summary)
}

// Config wires an Orchestrator.
type Config struct {
	Graph       *circuit.Graph
	Concurrency int
	// Inline runs tasks on the slot goroutines. It is also the fallback
	// when Workers cannot provide runners.
	Inline task.Runner
	// Workers is optional.
	Workers WorkerSource
	// Chain is required by the on-chain and batch modes.
	Chain         Chain
	BatchVerifier string
	// Verifiers overrides the verifier address of circuits by id.
	Verifiers map[string]string
	Relays    []Relay
	// Session, when set, is kept in step with the run.
	Session  *state.Session
	Observer Observer
}

// Orchestrator runs selections of circuits. It is safe for concurrent use,
// though runs sharing a Session interleave their state updates.
type Orchestrator struct {
	cfg Config
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Orchestrator{cfg: cfg}
}

// Request describes one run.
type Request struct {
	// IDs are the circuits to run. Empty means the session's selection, or
	// the graph's default selection without a session.
	IDs  []string
	Mode Mode
	// Inputs holds per-circuit input overrides.
	Inputs map[string]map[string]any
	// OnEvent, if set, receives log, progress and result events as they
	// happen. Calls are serialized.
	OnEvent func(task.Event)
}

// Summary aggregates a run.
type Summary struct {
	OK        int   `json:"ok"`
	Total     int   `json:"total"`
	ElapsedMs int64 `json:"elapsedMs"`
}

// Report is the outcome of a run. Results are in run order.
type Report struct {
	RunID   string        `json:"runId"`
	Mode    Mode          `json:"mode"`
	Results []task.Result `json:"results"`
	Summary Summary       `json:"summary"`
	Log     []string      `json:"log"`
}

// AllOK reports whether every circuit of a non-empty run verified.
func (r Report) AllOK() bool {
	return r.Summary.Total > 0 && r.Summary.OK == r.Summary.Total
}

// run is the mutable state of one Run call.
type run struct {
	o      *Orchestrator
	req    Request
	runner []task.Runner

	mu    sync.Mutex
	log   []string
	done  int
	total int
}

func (r *run) emit(e task.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch e.Kind {
	case task.EventLog:
		if e.CircuitID != "" {
			r.log = append(r.log, fmt.Sprintf("[%s] %s", e.CircuitID, e.Text))
		} else {
			r.log = append(r.log, e.Text)
		}
	case task.EventResult:
		r.done++
	}
	if r.req.OnEvent != nil {
		r.req.OnEvent(e)
		if e.Kind == task.EventResult {
			r.req.OnEvent(task.Event{Kind: task.EventProgress, Done: r.done, Total: r.total})
		}
	}
}

func (r *run) logf(format string, args ...any) {
	r.emit(task.Event{Kind: task.EventLog, Text: fmt.Sprintf(format, args...)})
}

// complete records a final result on the session and the event stream.
func (r *run) complete(res task.Result) {
	if s := r.o.cfg.Session; s != nil {
		s.Dispatch(state.CompleteOne{ID: res.CircuitID, OK: res.OK, ElapsedMs: res.ElapsedMs})
	}
	if obs := r.o.cfg.Observer; obs != nil {
		obs.ObserveResult(r.req.Mode.String(), res)
	}
	rc := res
	r.emit(task.Event{Kind: task.EventResult, CircuitID: res.CircuitID, Result: &rc})
}

// schedule runs tasks on the acquired runners. Results of stages that need
// post-processing are returned without being completed.
func (r *run) schedule(ctx context.Context, tasks []task.Task, final bool) []task.Result {
	return scheduler.RunAll(ctx, tasks, scheduler.Options{
		Concurrency: r.o.cfg.Concurrency,
		Runners:     r.runner,
		OnLog: func(id, text string) {
			r.emit(task.Event{Kind: task.EventLog, CircuitID: id, Text: text})
		},
		OnResult: func(res task.Result) {
			if final || !res.OK {
				r.complete(res)
			}
		},
	})
}

// Run executes req and returns its report. Failures that prevent the run
// from starting yield an empty result set and a single log entry.
func (o *Orchestrator) Run(ctx context.Context, req Request) Report {
	start := time.Now()
	if req.Mode == "" {
		req.Mode = ModeLocal
	}
	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run", runID, "mode", req.Mode.String())
	logger := ctxlog.FromContext(ctx)

	report := Report{RunID: runID, Mode: req.Mode, Results: []task.Result{}}

	r := &run{o: o, req: req}
	ids, err := o.prepare(ctx, &r.req)
	if err != nil {
		logger.Error("❌ Run could not start.", "error", err)
		report.Log = []string{"Error: " + err.Error()}
		report.Summary.ElapsedMs = time.Since(start).Milliseconds()
		return report
	}
	r.total = len(ids)

	logger.Info("▶️ Starting run.", "circuits", len(ids), "concurrency", o.cfg.Concurrency)
	if s := o.cfg.Session; s != nil {
		s.Dispatch(state.StartBatch{IDs: ids})
	}

	release := r.acquire(ctx, len(ids))
	defer release()

	var results []task.Result
	switch req.Mode {
	case ModeChained:
		results = r.chained(ctx, ids)
	case ModeBatch:
		results = r.batch(ctx, ids)
	default:
		results = r.flat(ctx, ids)
	}

	results = orderLike(ids, results)
	r.relay(ctx, results)

	report.Results = results
	for _, res := range results {
		if res.OK {
			report.Summary.OK++
		}
	}
	report.Summary.Total = len(results)
	report.Summary.ElapsedMs = time.Since(start).Milliseconds()
	report.Log = r.log

	if o.cfg.Observer != nil {
		o.cfg.Observer.ObserveRun(req.Mode.String(), report.Summary)
	}
	logger.Info("🏁 Run finished.", "ok", report.Summary.OK, "total", report.Summary.Total, "elapsedMs", report.Summary.ElapsedMs)
	return report
}

// prepare validates the request and resolves the circuits to run.
func (o *Orchestrator) prepare(ctx context.Context, req *Request) ([]string, error) {
	if o.cfg.Graph == nil {
		return nil, errors.New("no circuit graph configured")
	}
	if o.cfg.Inline == nil && o.cfg.Workers == nil {
		return nil, errors.New("no runner configured")
	}
	if _, err := ParseMode(req.Mode.String()); err != nil {
		return nil, err
	}

	ids := req.IDs
	if len(ids) == 0 {
		if o.cfg.Session != nil {
			ids = o.cfg.Session.Selected()
		} else {
			ids = o.cfg.Graph.DefaultSelection()
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("no circuits selected")
	}

	var err error
	if req.Mode == ModeChained {
		ids, err = circuit.ResolveSubset(o.cfg.Graph, ids)
	} else {
		ids, err = o.cfg.Graph.Sort(ids)
	}
	if err != nil {
		return nil, err
	}

	if req.Mode.OnChain() {
		if o.cfg.Chain == nil {
			return nil, fmt.Errorf("%s mode requires a chain configuration", req.Mode)
		}
		if req.Mode == ModeBatch && o.cfg.BatchVerifier == "" {
			return nil, errors.New("batch mode requires a batch verifier address")
		}
		chainID, err := o.cfg.Chain.Ping(ctx)
		if err != nil {
			return nil, err
		}
		ctxlog.FromContext(ctx).Debug("Chain reachable.", "chainId", chainID)
	}
	return ids, nil
}

// acquire picks the runners for this run, preferring pooled workers and
// falling back to the inline executor.
func (r *run) acquire(ctx context.Context, n int) func() {
	slots := r.o.cfg.Concurrency
	if slots > n {
		slots = n
	}
	if r.o.cfg.Workers != nil {
		runners, release, err := r.o.cfg.Workers.Acquire(ctx, slots)
		if err == nil {
			r.runner = runners
			return release
		}
		if r.o.cfg.Inline == nil {
			r.logf("Error: %v", err)
			r.runner = nil
			return func() {}
		}
		ctxlog.FromContext(ctx).Warn("⚠️ Workers unavailable, running inline.", "error", err)
		r.logf("Workers unavailable, running inline: %v", err)
	}
	r.runner = []task.Runner{r.o.cfg.Inline}
	return func() {}
}

// newTask builds the task of one circuit for the run's mode.
func (r *run) newTask(id string, stage task.Stage) task.Task {
	d := r.o.cfg.Graph.MustGet(id)
	t := task.Task{
		CircuitID: id,
		Artifacts: d.Artifacts,
		Stage:     stage,
		Verifier:  r.o.verifierFor(d),
	}
	if in := r.req.Inputs[id]; len(in) > 0 {
		t.Input = make(map[string]any, len(in))
		for k, v := range in {
			t.Input[k] = v
		}
	}
	return t
}

func (o *Orchestrator) verifierFor(d circuit.Descriptor) string {
	if addr, ok := o.cfg.Verifiers[d.ID]; ok && addr != "" {
		return addr
	}
	return d.Verifier
}

// flat runs the local and per-circuit on-chain modes.
func (r *run) flat(ctx context.Context, ids []string) []task.Result {
	stage := task.StageVerify
	if r.req.Mode == ModeOnChain {
		stage = task.StageOnChain
	}
	tasks := make([]task.Task, len(ids))
	for i, id := range ids {
		tasks[i] = r.newTask(id, stage)
	}
	return r.schedule(ctx, tasks, true)
}

// orderLike reorders results to follow ids.
func orderLike(ids []string, results []task.Result) []task.Result {
	byID := make(map[string]task.Result, len(results))
	for _, res := range results {
		byID[res.CircuitID] = res
	}
	out := make([]task.Result, 0, len(results))
	for _, id := range ids {
		if res, ok := byID[id]; ok {
			out = append(out, res)
		}
	}
	return out
}
