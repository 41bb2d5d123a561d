package state

import "sync"

// Session is a table shared between the HTTP server and running
// orchestrations.
type Session struct {
	mu    sync.RWMutex
	table Table
}

// NewSession starts a session from the default table.
func NewSession(initial Table) *Session {
	return &Session{table: initial}
}

// Dispatch applies events in order and returns the resulting table.
func (s *Session) Dispatch(events ...Event) Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.table = Reduce(s.table, e)
	}
	return s.table
}

// Snapshot returns the current table.
func (s *Session) Snapshot() Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Selected lists the selected circuits in registry order.
func (s *Session) Selected() []string {
	return s.Snapshot().Selected()
}
