package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/specialistvlad/zkparallel/internal/artifact"
	"github.com/specialistvlad/zkparallel/internal/chain"
	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/config"
	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/metrics"
	"github.com/specialistvlad/zkparallel/internal/orchestrator"
	"github.com/specialistvlad/zkparallel/internal/prover"
	"github.com/specialistvlad/zkparallel/internal/relay"
	"github.com/specialistvlad/zkparallel/internal/state"
	"github.com/specialistvlad/zkparallel/internal/task"
	"github.com/specialistvlad/zkparallel/internal/worker"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	logFile io.Closer
	ctx     context.Context
	cancel  context.CancelFunc

	appConfig *Config
	model     *config.Model
	graph     *circuit.Graph

	store       artifact.Store
	base        artifact.Store
	cache       *artifact.Cached
	backend     prover.Backend
	chain       *chain.Client
	deployments chain.Deployments
	verifiers   map[string]string
	executor    *task.Executor
	pool        *worker.Pool
	relays      []relay.Relay
	session     *state.Session
	metrics     *metrics.Metrics
	orch        *orchestrator.Orchestrator
	proofs      *proofStore

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the
// configuration through loader and wires every component. Configuration and
// wiring failures are fatal startup errors and panic.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger, logFile := newLogger(appConfig.LogLevel, appConfig.LogFormat, appConfig.LogFile, outW)
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), logger))
	logger.Debug("Logger configured successfully.")

	// Load all configuration into the format-agnostic model first.
	cfgModel, err := loader.Load(ctx, appConfig.ConfigPaths...)
	if err != nil {
		cancel()
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	if appConfig.Concurrency > 0 {
		cfgModel.Settings.Concurrency = appConfig.Concurrency
	}
	if appConfig.Offload != "" {
		cfgModel.Settings.Offload = appConfig.Offload
	}

	a := &App{
		outW:      outW,
		logger:    logger,
		logFile:   logFile,
		ctx:       ctx,
		cancel:    cancel,
		appConfig: appConfig,
		model:     cfgModel,
		proofs:    newProofStore(),
		metrics:   metrics.New(),
	}
	if err := a.wire(); err != nil {
		_ = a.Close()
		panic(err)
	}
	return a
}

// wire builds every component from the loaded model.
func (a *App) wire() error {
	settings := a.model.Settings
	logger := a.logger

	graph, err := a.model.Graph()
	if err != nil {
		return fmt.Errorf("invalid circuit graph: %w", err)
	}
	if _, err := circuit.ResolveOrder(graph); err != nil {
		return fmt.Errorf("invalid circuit graph: %w", err)
	}
	a.graph = graph
	a.session = state.NewSession(state.New(graph.IDs(), graph.DefaultSelection()))
	logger.Debug("Circuit graph built.", "circuits", graph.Len())

	if err := a.wireStore(settings); err != nil {
		return err
	}
	a.backend = prover.NewGroth16()

	opts := []task.ExecutorOption{}
	var orchChain orchestrator.Chain
	var batchVerifier string
	verifiers := map[string]string{}
	if c := a.model.Chain; c != nil {
		client, err := chain.Dial(a.ctx, c.RPCURL, c.Timeout)
		if err != nil {
			return err
		}
		a.chain = client
		orchChain = client
		opts = append(opts, task.WithOnChain(client), task.WithCallDataEncoder(client))

		if c.Deployments != "" {
			d, err := chain.LoadDeployments(c.Deployments)
			if err != nil {
				return err
			}
			a.deployments = d
			for _, id := range graph.IDs() {
				if addr, ok := d.VerifierFor(id); ok {
					verifiers[id] = addr.Hex()
				}
			}
			if addr, ok := d[chain.BatchVerifierKey]; ok {
				batchVerifier = addr.Hex()
			}
		}
		if c.BatchVerifier != "" {
			batchVerifier = c.BatchVerifier
		}
		logger.Debug("Chain client configured.", "rpc", c.RPCURL, "deployments", len(a.deployments))
	}
	a.verifiers = verifiers
	a.executor = task.NewExecutor(a.store, a.backend, opts...)

	switch settings.Offload {
	case config.OffloadGoroutine:
		a.pool = worker.NewPool(func(_ context.Context, name string) (*worker.Client, error) {
			return worker.StartGoroutine(a.ctx, name, a.executor), nil
		})
	case config.OffloadProcess:
		command, err := a.workerCommand()
		if err != nil {
			return err
		}
		a.pool = worker.NewPool(func(_ context.Context, name string) (*worker.Client, error) {
			return worker.StartProcess(a.ctx, name, command[0], command[1:]...)
		})
	}

	a.relays, err = relay.NewAll(a.model.Relays)
	if err != nil {
		return err
	}
	orchRelays := make([]orchestrator.Relay, len(a.relays))
	for i, r := range a.relays {
		orchRelays[i] = r
	}

	cfg := orchestrator.Config{
		Graph:         graph,
		Concurrency:   settings.Concurrency,
		Inline:        a.executor,
		Chain:         orchChain,
		BatchVerifier: batchVerifier,
		Verifiers:     verifiers,
		Relays:        orchRelays,
		Session:       a.session,
		Observer:      a.metrics,
	}
	if a.pool != nil {
		cfg.Workers = a.pool
	}
	a.orch = orchestrator.New(cfg)
	logger.Debug("Orchestrator ready.", "concurrency", settings.Concurrency, "offload", settings.Offload, "relays", len(a.relays))
	return nil
}

func (a *App) wireStore(settings config.Settings) error {
	var base artifact.Store
	if settings.ArtifactURL != "" {
		s, err := artifact.NewHTTPStore(settings.ArtifactURL, nil, 0)
		if err != nil {
			return err
		}
		base = s
	} else {
		base = artifact.NewFileStore(settings.ArtifactRoot)
	}
	a.base = base
	a.store = base

	if settings.CacheSizeMB > 0 {
		cached, err := artifact.NewCached(a.ctx, base, settings.CacheSizeMB, 0)
		if err != nil {
			return err
		}
		a.cache = cached
		a.store = cached
	}
	return nil
}

// workerCommand returns the command line of a worker subprocess, which must
// load the same configuration as this process.
func (a *App) workerCommand() ([]string, error) {
	if len(a.appConfig.WorkerCommand) > 0 {
		return a.appConfig.WorkerCommand, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable for worker processes: %w", err)
	}
	cmd := []string{exe, "worker", "--log-level", a.appConfig.LogLevel, "--log-format", a.appConfig.LogFormat}
	for _, p := range a.appConfig.ConfigPaths {
		cmd = append(cmd, "--config", p)
	}
	return cmd, nil
}

// Graph returns the circuit graph.
func (a *App) Graph() *circuit.Graph { return a.graph }

// Session returns the shared circuit state.
func (a *App) Session() *state.Session { return a.session }

// Context returns the application context, which carries the logger.
func (a *App) Context() context.Context { return a.ctx }

// Close releases every resource the app holds.
func (a *App) Close() error {
	a.logger.Debug("Closing application.")
	var errs []error
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	for _, r := range a.relays {
		errs = append(errs, r.Close())
	}
	if a.chain != nil {
		a.chain.Close()
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if closer, ok := a.base.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	a.cancel()
	errs = append(errs, a.logFile.Close())
	return errors.Join(errs...)
}
