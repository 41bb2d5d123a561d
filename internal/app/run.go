package app

import (
	"context"
	"errors"
	"io"

	"github.com/specialistvlad/zkparallel/internal/chain"
	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/orchestrator"
	"github.com/specialistvlad/zkparallel/internal/worker"
)

// ErrNoChain is returned by operations that need a chain block.
var ErrNoChain = errors.New("no chain configured")

// deploymentCheckParallel bounds concurrent code lookups.
const deploymentCheckParallel = 4

// Run executes one orchestrated run. An empty req.Mode uses the configured
// default mode.
func (a *App) Run(ctx context.Context, req orchestrator.Request) (orchestrator.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "ids", req.IDs, "mode", req.Mode)

	if req.Mode == "" {
		mode, err := orchestrator.ParseMode(a.model.Settings.Mode)
		if err != nil {
			return orchestrator.Report{}, err
		}
		req.Mode = mode
	}

	a.logger.Info("🚀 Starting concurrent execution...", "mode", req.Mode)
	report := a.orch.Run(ctx, req)
	a.logger.Info("🏁 Execution finished.", "ok", report.Summary.OK, "total", report.Summary.Total)
	return report, nil
}

// Deployments reports the code size at every configured deployment address.
func (a *App) Deployments(ctx context.Context) ([]chain.DeploymentStatus, error) {
	if a.chain == nil {
		return nil, ErrNoChain
	}
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if _, err := a.chain.Ping(ctx); err != nil {
		return nil, err
	}
	return a.chain.CheckDeployments(ctx, a.deployments, deploymentCheckParallel)
}

// ServeWorker answers worker protocol requests from r on w until r ends.
func (a *App) ServeWorker(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx = ctxlog.WithLogger(ctx, a.logger.With("role", "worker"))
	a.logger.Debug("Worker serving requests.")
	return worker.Serve(ctx, a.executor, r, w)
}
