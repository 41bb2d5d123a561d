package worker

import (
	"fmt"

	"github.com/specialistvlad/zkparallel/internal/task"
)

// Kind tags a protocol message.
type Kind string

const (
	KindRun    Kind = "run"
	KindLog    Kind = "log"
	KindResult Kind = "result"
)

// maxLine bounds one protocol message.
const maxLine = 16 << 20

// Request is sent to a worker.
type Request struct {
	Kind Kind `json:"kind"`
	task.Task
}

// Response is sent by a worker.
type Response struct {
	Kind      Kind         `json:"kind"`
	CircuitID string       `json:"circuitId"`
	Text      string       `json:"text,omitempty"`
	Result    *task.Result `json:"result,omitempty"`
}

// ProtocolError reports a response that does not belong to the request in
// flight, or is otherwise malformed.
type ProtocolError struct {
	Want string
	Got  Response
}

func (e *ProtocolError) Error() string {
	if e.Got.CircuitID != e.Want {
		return fmt.Sprintf("worker protocol error: expected response for '%s', got %s for '%s'", e.Want, e.Got.Kind, e.Got.CircuitID)
	}
	return fmt.Sprintf("worker protocol error: unexpected %s message for '%s'", e.Got.Kind, e.Want)
}
