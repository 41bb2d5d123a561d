package orchestrator

import (
	"context"
	"fmt"

	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/task"
)

// chained runs ids level by level. A circuit whose predecessor in the run
// failed is not executed; its inputs are otherwise overridden by the
// transforms of its predecessors, applied in dependency order.
//
// Levels are barriers: a level is dispatched only after every circuit of
// the previous level finished, even circuits it does not depend on. Within
// a level the scheduler refills slots greedily.
func (r *run) chained(ctx context.Context, ids []string) []task.Result {
	g := r.o.cfg.Graph
	levels, err := circuit.Levels(g, ids)
	if err != nil {
		results := make([]task.Result, len(ids))
		for i, id := range ids {
			results[i] = task.Failed(id, err.Error())
			r.complete(results[i])
		}
		return results
	}

	inRun := make(map[string]bool, len(ids))
	for _, id := range ids {
		inRun[id] = true
	}
	finished := make(map[string]task.Result, len(ids))
	var results []task.Result

	for depth, level := range levels {
		r.logf("Level %d: %v", depth, level)
		var tasks []task.Task
		for _, id := range level {
			t, res := r.chainedTask(g.MustGet(id), inRun, finished)
			if res != nil {
				r.complete(*res)
				finished[id] = *res
				results = append(results, *res)
				continue
			}
			tasks = append(tasks, t)
		}
		for _, res := range r.schedule(ctx, tasks, true) {
			finished[res.CircuitID] = res
			results = append(results, res)
		}
	}
	return results
}

// chainedTask builds the task of d, or returns the result d gets without
// running.
func (r *run) chainedTask(d circuit.Descriptor, inRun map[string]bool, finished map[string]task.Result) (task.Task, *task.Result) {
	t := r.newTask(d.ID, task.StageVerify)
	for _, dep := range d.Deps {
		if !inRun[dep] {
			continue
		}
		up := finished[dep]
		if !up.OK {
			res := task.Failed(d.ID, fmt.Sprintf("skipped: upstream %s failed", dep))
			return t, &res
		}
		if d.Transform == nil {
			continue
		}
		fields, err := d.Transform(dep, up.PublicSignals)
		if err != nil {
			res := task.Failed(d.ID, fmt.Sprintf("transform from %s: %v", dep, err))
			return t, &res
		}
		if t.Input == nil {
			t.Input = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			t.Input[k] = v
		}
	}
	return t, nil
}
