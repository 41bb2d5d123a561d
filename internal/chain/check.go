package chain

import (
	"context"
	"fmt"

	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// DeploymentStatus describes the code found at one deployment address.
type DeploymentStatus struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	CodeSize int    `json:"codeSize"`
	Error    string `json:"error,omitempty"`
}

// Deployed reports whether the address holds contract code.
func (s DeploymentStatus) Deployed() bool {
	return s.Error == "" && s.CodeSize > 0
}

// CheckDeployments fetches the code size of every deployment, at most
// parallel at a time. Statuses are returned in name order.
func (c *Client) CheckDeployments(ctx context.Context, d Deployments, parallel int) ([]DeploymentStatus, error) {
	logger := ctxlog.FromContext(ctx)
	names := d.Names()
	out := make([]DeploymentStatus, len(names))

	if parallel < 1 {
		parallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, name := range names {
		addr := d[name]
		g.Go(func() error {
			callCtx, cancel := c.callCtx(gctx)
			defer cancel()
			status := DeploymentStatus{Name: name, Address: addr.Hex()}
			code, err := c.rpc.CodeAt(callCtx, addr, nil)
			if err != nil {
				status.Error = err.Error()
			} else {
				status.CodeSize = len(code)
			}
			logger.Debug("Checked deployment.", "name", name, "address", status.Address, "code_size", status.CodeSize)
			out[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("deployment check failed: %w", err)
	}
	return out, nil
}
