package orchestrator

import (
	"context"

	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/task"
	"golang.org/x/sync/errgroup"
)

// maxRelayCalls bounds concurrent relay posts of one run.
const maxRelayCalls = 4

// relay posts every verified result to every relay. Failures are logged and
// otherwise ignored; receipts are attached to the results.
func (r *run) relay(ctx context.Context, results []task.Result) {
	relays := r.o.cfg.Relays
	if len(relays) == 0 {
		return
	}
	logger := ctxlog.FromContext(ctx)

	receipts := make([]map[string]string, len(results))
	var g errgroup.Group
	g.SetLimit(maxRelayCalls)
	for i, res := range results {
		if !res.OK {
			continue
		}
		for _, rl := range relays {
			g.Go(func() error {
				receipt, err := rl.PostResult(ctx, res)
				if err != nil {
					logger.Warn("⚠️ Relay failed.", "relay", rl.Name(), "circuit", res.CircuitID, "error", err)
					r.logf("Relay %s failed for %s: %v", rl.Name(), res.CircuitID, err)
					return nil
				}
				r.mu.Lock()
				if receipts[i] == nil {
					receipts[i] = make(map[string]string, len(relays))
				}
				receipts[i][rl.Name()] = receipt
				r.mu.Unlock()
				r.logf("Relay %s accepted %s: %s", rl.Name(), res.CircuitID, receipt)
				return nil
			})
		}
	}
	_ = g.Wait()

	for i := range results {
		if receipts[i] != nil {
			results[i].Receipts = receipts[i]
		}
	}
}
