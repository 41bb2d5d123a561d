package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/task"
)

// Serve answers requests read from r with runner, writing responses to w,
// until r is exhausted or ctx is done.
func Serve(ctx context.Context, runner task.Runner, r io.Reader, w io.Writer) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker serving.")

	var mu sync.Mutex
	enc := json.NewEncoder(w)
	write := func(resp Response) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(resp)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			return fmt.Errorf("worker received malformed request: %w", err)
		}

		var res task.Result
		switch req.Kind {
		case KindRun:
			logger.Debug("Worker received task.", "circuit", req.CircuitID)
			res = runner.Run(ctx, req.Task, func(e task.Event) {
				if e.Kind != task.EventLog {
					return
				}
				if err := write(Response{Kind: KindLog, CircuitID: req.CircuitID, Text: e.Text}); err != nil {
					logger.Warn("Worker failed to write log line.", "error", err)
				}
			})
		default:
			res = task.Failed(req.CircuitID, fmt.Sprintf("unknown request kind '%s'", req.Kind))
		}

		res.CircuitID = req.CircuitID
		if err := write(Response{Kind: KindResult, CircuitID: req.CircuitID, Result: &res}); err != nil {
			return fmt.Errorf("worker failed to write result: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("worker input: %w", err)
	}
	logger.Debug("Worker input closed.")
	return nil
}
