// Package state tracks the per-circuit runtime state of a session.
//
// Each known circuit has a selection flag, a status and, once a run
// completes, its elapsed time. The table changes only through Reduce, a pure
// function over four event kinds; Session wraps a table for concurrent use.
package state
