package state

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle position of one circuit.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
)

// CanTransition reports whether a circuit may move from one status to
// another: idle, verified and failed may start running, running ends in
// verified or failed, and any status may be reset to idle.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusIdle:
		return true
	case StatusRunning:
		return from == StatusIdle || from == StatusVerified || from == StatusFailed
	case StatusVerified, StatusFailed:
		return from == StatusRunning
	default:
		return false
	}
}

// CircuitState is the runtime state of one circuit.
type CircuitState struct {
	Selected bool   `json:"selected"`
	Status   Status `json:"status"`
	Elapsed  *int64 `json:"elapsed,omitempty"`
}

// Table holds the state of every known circuit. A Table is a value: Reduce
// never modifies its argument.
type Table struct {
	ids      []string
	entries  map[string]CircuitState
	defaults map[string]bool
}

// New builds the canonical default table: every id idle, selected when it
// appears in defaults.
func New(ids []string, defaults []string) Table {
	t := Table{
		ids:      append([]string(nil), ids...),
		entries:  make(map[string]CircuitState, len(ids)),
		defaults: make(map[string]bool, len(defaults)),
	}
	for _, id := range defaults {
		t.defaults[id] = true
	}
	for _, id := range ids {
		t.entries[id] = CircuitState{Selected: t.defaults[id], Status: StatusIdle}
	}
	return t
}

// IDs lists the known circuits in registry order.
func (t Table) IDs() []string {
	return append([]string(nil), t.ids...)
}

// Get returns the state of id.
func (t Table) Get(id string) (CircuitState, bool) {
	s, ok := t.entries[id]
	return s, ok
}

// Selected lists the selected circuits in registry order.
func (t Table) Selected() []string {
	var out []string
	for _, id := range t.ids {
		if t.entries[id].Selected {
			out = append(out, id)
		}
	}
	return out
}

// Equal reports whether two tables hold the same states.
func (t Table) Equal(o Table) bool {
	if len(t.ids) != len(o.ids) {
		return false
	}
	for i, id := range t.ids {
		if o.ids[i] != id {
			return false
		}
		a, b := t.entries[id], o.entries[id]
		if a.Selected != b.Selected || a.Status != b.Status {
			return false
		}
		if (a.Elapsed == nil) != (b.Elapsed == nil) || (a.Elapsed != nil && *a.Elapsed != *b.Elapsed) {
			return false
		}
	}
	return true
}

// Row is one circuit in a table's JSON form.
type Row struct {
	ID string `json:"id"`
	CircuitState
}

// Rows lists the table in registry order.
func (t Table) Rows() []Row {
	rows := make([]Row, len(t.ids))
	for i, id := range t.ids {
		rows[i] = Row{ID: id, CircuitState: t.entries[id]}
	}
	return rows
}

// MarshalJSON encodes the table as an ordered list of rows.
func (t Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Rows())
}

func (t Table) mustGet(id string) CircuitState {
	s, ok := t.entries[id]
	if !ok {
		panic(fmt.Sprintf("state: unknown circuit '%s'", id))
	}
	return s
}

// clone copies the entries so the result can be modified freely.
func (t Table) clone() Table {
	entries := make(map[string]CircuitState, len(t.entries))
	for id, s := range t.entries {
		entries[id] = s
	}
	return Table{ids: t.ids, entries: entries, defaults: t.defaults}
}
