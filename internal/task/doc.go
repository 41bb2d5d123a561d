// Package task defines one proof-generate-then-verify unit of work and the
// Executor that carries it out.
//
// The Executor is environment-agnostic: the scheduler calls it inline on a
// slot goroutine, and the worker package calls it inside a dedicated worker
// goroutine or subprocess. In every environment a Task yields exactly one
// Result; fetch errors, proving errors and panics become a failed Result
// rather than an error return.
package task
