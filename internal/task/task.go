package task

import (
	"context"

	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/prover"
)

// Stage selects what happens after a proof verifies locally.
type Stage string

const (
	// StageVerify stops after local verification.
	StageVerify Stage = ""
	// StageOnChain submits the proof to the circuit's verifier contract.
	StageOnChain Stage = "onchain"
	// StageCallData encodes the proof as verifier calldata for a batch call.
	StageCallData Stage = "calldata"
)

// Task is one circuit run, created per run and consumed once.
type Task struct {
	CircuitID string            `json:"circuitId"`
	Artifacts circuit.Locations `json:"artifacts"`
	// Input holds field overrides merged over the stored input document.
	Input    map[string]any `json:"input,omitempty"`
	Stage    Stage          `json:"stage,omitempty"`
	Verifier string         `json:"verifier,omitempty"`
}

// Result is the outcome of a Task. Exactly one is produced per Task.
type Result struct {
	CircuitID     string        `json:"circuitId"`
	OK            bool          `json:"ok"`
	ElapsedMs     int64         `json:"elapsedMs"`
	Error         string        `json:"error,omitempty"`
	PublicSignals []string      `json:"publicSignals,omitempty"`
	Proof         *prover.Proof `json:"proof,omitempty"`
	// CallData is the ABI-encoded verifyProof call, set by StageCallData.
	CallData []byte `json:"callData,omitempty"`
	// Receipts maps relay names to what each relay returned.
	Receipts map[string]string `json:"receipts,omitempty"`
}

// Failed builds a failed result for a task that never ran.
func Failed(circuitID, reason string) Result {
	return Result{CircuitID: circuitID, OK: false, Error: reason}
}

// EventKind tags an Event.
type EventKind string

const (
	EventLog      EventKind = "log"
	EventProgress EventKind = "progress"
	EventResult   EventKind = "result"
)

// Event is one item of a run's structured output stream.
type Event struct {
	Kind      EventKind `json:"kind"`
	CircuitID string    `json:"circuitId,omitempty"`
	Text      string    `json:"text,omitempty"`
	Done      int       `json:"done,omitempty"`
	Total     int       `json:"total,omitempty"`
	Result    *Result   `json:"result,omitempty"`
}

// Runner executes tasks. The inline Executor and offloaded workers both
// satisfy it.
type Runner interface {
	Run(ctx context.Context, t Task, emit func(Event)) Result
}
