package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/task"
)

// batch prepares calldata for every circuit under the scheduler, then
// submits the prepared ones in a single aggregated call. Circuits whose
// preparation failed are left out of the call and reported failed.
func (r *run) batch(ctx context.Context, ids []string) []task.Result {
	logger := ctxlog.FromContext(ctx)

	tasks := make([]task.Task, len(ids))
	for i, id := range ids {
		tasks[i] = r.newTask(id, task.StageCallData)
	}
	prepared := orderLike(ids, r.schedule(ctx, tasks, false))

	var (
		verifiers []string
		calldatas [][]byte
		submitted []int
	)
	for i := range prepared {
		res := &prepared[i]
		if !res.OK {
			continue
		}
		verifier := r.o.verifierFor(r.o.cfg.Graph.MustGet(res.CircuitID))
		if verifier == "" {
			r.fail(res, fmt.Errorf("no verifier address for circuit '%s'", res.CircuitID))
			continue
		}
		verifiers = append(verifiers, verifier)
		calldatas = append(calldatas, res.CallData)
		submitted = append(submitted, i)
	}
	if len(submitted) == 0 {
		r.logf("Nothing to submit to the batch verifier")
		return prepared
	}

	r.logf("Submitting %d proofs to batch verifier %s", len(submitted), r.o.cfg.BatchVerifier)
	oks, err := r.o.cfg.Chain.BatchVerify(ctx, r.o.cfg.BatchVerifier, verifiers, calldatas)
	if err == nil && len(oks) != len(submitted) {
		err = fmt.Errorf("batch verifier answered %d results for %d proofs", len(oks), len(submitted))
	}
	if err != nil {
		logger.Error("❌ Batch verification failed.", "error", err)
		for _, i := range submitted {
			r.fail(&prepared[i], fmt.Errorf("batch verification: %w", err))
		}
		return prepared
	}

	for k, i := range submitted {
		res := &prepared[i]
		if !oks[k] {
			r.fail(res, task.ErrRejectedOnChain)
			continue
		}
		r.emit(task.Event{Kind: task.EventLog, CircuitID: res.CircuitID, Text: "Batch result: true"})
		r.complete(*res)
	}
	return prepared
}

// fail marks a prepared result failed and completes it.
func (r *run) fail(res *task.Result, err error) {
	if err == nil {
		err = errors.New("failed")
	}
	res.OK = false
	res.Error = err.Error()
	r.emit(task.Event{Kind: task.EventLog, CircuitID: res.CircuitID, Text: "Error: " + res.Error})
	r.complete(*res)
}
