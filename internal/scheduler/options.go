package scheduler

import "github.com/specialistvlad/zkparallel/internal/task"

// Options configure one run.
type Options struct {
	// Concurrency is the number of slots. Values below 1 mean 1; values above
	// the number of tasks are reduced to it.
	Concurrency int
	// Runners execute tasks. Slot i uses Runners[i%len(Runners)], so a
	// single stateless runner may serve every slot.
	Runners []task.Runner

	OnLog      func(circuitID, text string)
	OnProgress func(done, total int)
	OnResult   func(task.Result)
}

// slots clamps Concurrency to [1, n].
func (o Options) slots(n int) int {
	s := o.Concurrency
	if s < 1 {
		s = 1
	}
	if s > n {
		s = n
	}
	return s
}
