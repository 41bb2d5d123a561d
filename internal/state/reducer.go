package state

import "fmt"

// Event is one of Toggle, ResetAll, StartBatch or CompleteOne.
type Event interface {
	isEvent()
}

// Toggle flips the selection of one circuit without touching its status.
type Toggle struct {
	ID string
}

// ResetAll restores the default selection and idle status everywhere.
type ResetAll struct{}

// StartBatch marks circuits running and clears their elapsed time.
type StartBatch struct {
	IDs []string
}

// CompleteOne records the outcome of one circuit.
type CompleteOne struct {
	ID        string
	OK        bool
	ElapsedMs int64
}

func (Toggle) isEvent()      {}
func (ResetAll) isEvent()    {}
func (StartBatch) isEvent()  {}
func (CompleteOne) isEvent() {}

// Reduce applies e to t and returns the new table. Referring to a circuit
// that t does not know panics. A completion for a circuit that is not
// running, which happens when a reset races a run, is ignored.
func Reduce(t Table, e Event) Table {
	switch ev := e.(type) {
	case Toggle:
		s := t.mustGet(ev.ID)
		next := t.clone()
		s.Selected = !s.Selected
		next.entries[ev.ID] = s
		return next

	case ResetAll:
		next := t.clone()
		for _, id := range t.ids {
			next.entries[id] = CircuitState{Selected: t.defaults[id], Status: StatusIdle}
		}
		return next

	case StartBatch:
		for _, id := range ev.IDs {
			t.mustGet(id)
		}
		next := t.clone()
		for _, id := range ev.IDs {
			s := next.entries[id]
			if CanTransition(s.Status, StatusRunning) {
				s.Status = StatusRunning
				s.Elapsed = nil
				next.entries[id] = s
			}
		}
		return next

	case CompleteOne:
		s := t.mustGet(ev.ID)
		to := StatusFailed
		if ev.OK {
			to = StatusVerified
		}
		if !CanTransition(s.Status, to) {
			return t
		}
		next := t.clone()
		elapsed := ev.ElapsedMs
		s.Status = to
		s.Elapsed = &elapsed
		next.entries[ev.ID] = s
		return next

	default:
		panic(fmt.Sprintf("state: unknown event %T", e))
	}
}
