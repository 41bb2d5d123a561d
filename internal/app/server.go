package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/orchestrator"
	"github.com/specialistvlad/zkparallel/internal/state"
)

var ginMode sync.Once

// runRequest is the body of POST /api/runs. Mode wins over the flags.
type runRequest struct {
	IDs     []string                  `json:"ids"`
	Mode    string                    `json:"mode"`
	OnChain bool                      `json:"onChain"`
	Batch   bool                      `json:"batch"`
	Chained bool                      `json:"chained"`
	Inputs  map[string]map[string]any `json:"inputs"`
}

func (r runRequest) mode() (orchestrator.Mode, error) {
	if r.Mode != "" {
		return orchestrator.ParseMode(r.Mode)
	}
	if r.OnChain || r.Batch || r.Chained {
		return orchestrator.NewMode(r.OnChain, r.Batch, r.Chained)
	}
	return "", nil
}

type circuitView struct {
	ID              string            `json:"id"`
	Deps            []string          `json:"deps"`
	Next            []string          `json:"next"`
	Verifier        string            `json:"verifier,omitempty"`
	DefaultSelected bool              `json:"defaultSelected"`
	Artifacts       circuit.Locations `json:"artifacts"`
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	ginMode.Do(func() { gin.SetMode(gin.ReleaseMode) })
	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger(), a.metrics.Middleware())

	r.GET("/health", a.healthHandler)
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	api := r.Group("/api")
	api.GET("/circuits", a.listCircuits)
	api.GET("/graph", a.describeGraph)
	api.GET("/state", a.getState)
	api.POST("/state/toggle/:id", a.toggleCircuit)
	api.POST("/state/reset", a.resetState)
	api.POST("/runs", a.startRun)
	api.GET("/proofs", a.listProofs)
	api.POST("/proofs", a.storeProof)
	return r
}

// requestLogger logs every request at debug level.
func (a *App) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Debug("HTTP request handled.",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"remote_addr", c.ClientIP(),
		)
	}
}

func (a *App) healthHandler(c *gin.Context) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", c.Request.RemoteAddr, "path", c.Request.URL.Path)
	c.String(http.StatusOK, "OK\n")
}

func (a *App) listCircuits(c *gin.Context) {
	views := make([]circuitView, 0, a.graph.Len())
	for _, id := range a.graph.IDs() {
		d := a.graph.MustGet(id)
		views = append(views, circuitView{
			ID:              d.ID,
			Deps:            nonNil(d.Deps),
			Next:            nonNil(d.Next),
			Verifier:        d.Verifier,
			DefaultSelected: d.DefaultSelected,
			Artifacts:       d.Artifacts,
		})
	}
	c.JSON(http.StatusOK, views)
}

func (a *App) describeGraph(c *gin.Context) {
	order, err := circuit.ResolveOrder(a.graph)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	levels, err := circuit.Levels(a.graph, a.graph.IDs())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":    order,
		"levels":   levels,
		"describe": circuit.Describe(a.graph),
	})
}

func (a *App) getState(c *gin.Context) {
	c.JSON(http.StatusOK, a.session.Snapshot())
}

func (a *App) toggleCircuit(c *gin.Context) {
	id := c.Param("id")
	if !a.graph.Has(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": (&circuit.UnknownCircuitError{ID: id}).Error()})
		return
	}
	c.JSON(http.StatusOK, a.session.Dispatch(state.Toggle{ID: id}))
}

func (a *App) resetState(c *gin.Context) {
	c.JSON(http.StatusOK, a.session.Dispatch(state.ResetAll{}))
}

func (a *App) startRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := req.mode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := a.Run(c.Request.Context(), orchestrator.Request{IDs: req.IDs, Mode: mode, Inputs: req.Inputs})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *App) listProofs(c *gin.Context) {
	c.JSON(http.StatusOK, a.proofs.list())
}

func (a *App) storeProof(c *gin.Context) {
	var p storedProof
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if p.ID == "" {
		p.ID = p.Circuit
	}
	if p.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id or circuit is required"})
		return
	}
	a.proofs.add(p)
	c.JSON(http.StatusOK, gin.H{"message": "Proof stored"})
}

// Serve runs the HTTP API on addr until ctx is done, then shuts it down.
func (a *App) Serve(ctx context.Context, addr string) error {
	logger := ctxlog.FromContext(a.ctx)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	a.httpServer = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🌐 API server starting", "address", fmt.Sprintf("http://%s", ln.Addr()))
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("API server failed unexpectedly", "error", err)
		}
		return err
	case <-ctx.Done():
	}
	return a.closeServer()
}

func (a *App) closeServer() error {
	logger := ctxlog.FromContext(a.ctx)
	if a.httpServer == nil {
		logger.Debug("API server was not running.")
		return nil
	}

	// Create a context with a timeout for the shutdown process.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("🌐 Shutting down API server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("API server shutdown failed", "error", err)
		return err
	}

	logger.Debug("API server shut down gracefully.")
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
