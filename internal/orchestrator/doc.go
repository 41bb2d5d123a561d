// Package orchestrator turns a selection of circuits and an execution mode
// into a run: it builds the task list, drives the scheduler, performs the
// mode's post-processing and aggregates a report.
package orchestrator
