package circuit

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle found while resolving an order.
// Path starts and ends with the same id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// UnknownCircuitError is returned when an id is referenced but not registered.
type UnknownCircuitError struct {
	ID string
	// Referrer is the circuit whose deps/next mention ID, empty for lookups.
	Referrer string
}

func (e *UnknownCircuitError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("circuit '%s' references unknown circuit '%s'", e.Referrer, e.ID)
	}
	return fmt.Sprintf("unknown circuit '%s'", e.ID)
}
