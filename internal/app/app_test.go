package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/config"
	"github.com/specialistvlad/zkparallel/internal/orchestrator"
	"github.com/specialistvlad/zkparallel/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loaderFunc func(ctx context.Context, paths ...string) (*config.Model, error)

func (f loaderFunc) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	return f(ctx, paths...)
}

// setupApp creates an app over a two-circuit graph whose artifacts do not
// exist, so every run fails at the fetch stage without proving anything.
func setupApp(t *testing.T) (*App, *testutil.SafeBuffer) {
	t.Helper()
	return setupAppWith(t, nil)
}

// setupAppWith is setupApp with a hook that adjusts the model before
// defaults are applied.
func setupAppWith(t *testing.T, adjust func(m *config.Model)) (*App, *testutil.SafeBuffer) {
	t.Helper()

	root := t.TempDir()
	loader := loaderFunc(func(context.Context, ...string) (*config.Model, error) {
		m := &config.Model{
			Settings: config.Settings{ArtifactRoot: root, Offload: config.OffloadNone},
			Circuits: []circuit.Descriptor{
				{ID: "a", Artifacts: circuit.PathsFor("a"), DefaultSelected: true},
				{ID: "b", Artifacts: circuit.PathsFor("b"), Deps: []string{"a"}},
			},
		}
		if adjust != nil {
			adjust(m)
		}
		m.Settings.Defaults()
		return m, nil
	})

	logBuffer := &testutil.SafeBuffer{}
	a := NewApp(logBuffer, &Config{LogLevel: "debug", LogFormat: "text"}, loader)
	t.Cleanup(func() {
		_ = a.Close()
		if os.Getenv("ZKP_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	return a, logBuffer
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApp_LoadFailurePanics(t *testing.T) {
	t.Parallel()

	loader := loaderFunc(func(context.Context, ...string) (*config.Model, error) {
		return nil, errors.New("failed to parse HCL file main.hcl")
	})

	assert.PanicsWithError(t, "failed to load configuration: failed to parse HCL file main.hcl", func() {
		NewApp(&testutil.SafeBuffer{}, &Config{}, loader)
	})
}

func TestNewApp_CyclePanics(t *testing.T) {
	t.Parallel()

	loader := loaderFunc(func(context.Context, ...string) (*config.Model, error) {
		return &config.Model{Circuits: []circuit.Descriptor{
			{ID: "a", Deps: []string{"b"}},
			{ID: "b", Deps: []string{"a"}},
		}}, nil
	})

	assert.Panics(t, func() { NewApp(&testutil.SafeBuffer{}, &Config{}, loader) })
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{Offload: "cloud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid offload 'cloud'")

	_, err = NewConfig(Config{Concurrency: -1})
	require.Error(t, err)

	cfg, err := NewConfig(Config{Offload: config.OffloadProcess, Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Concurrency)
}

func TestHandler_CircuitsAndGraph(t *testing.T) {
	t.Parallel()

	// Arrange
	a, _ := setupApp(t)
	h := a.Handler()

	// Act
	health := do(t, h, http.MethodGet, "/health", "")
	circuits := do(t, h, http.MethodGet, "/api/circuits", "")
	graph := do(t, h, http.MethodGet, "/api/graph", "")

	// Assert
	assert.Equal(t, "OK\n", health.Body.String())

	require.Equal(t, http.StatusOK, circuits.Code)
	var views []circuitView
	require.NoError(t, json.Unmarshal(circuits.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "a", views[0].ID)
	assert.Equal(t, []string{"b"}, views[0].Next)
	assert.Equal(t, "zk/b/b.r1cs", views[1].Artifacts.Program)

	require.Equal(t, http.StatusOK, graph.Code)
	var g struct {
		Order    []string   `json:"order"`
		Levels   [][]string `json:"levels"`
		Describe string     `json:"describe"`
	}
	require.NoError(t, json.Unmarshal(graph.Body.Bytes(), &g))
	assert.Equal(t, []string{"a", "b"}, g.Order)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, g.Levels)
	assert.Contains(t, g.Describe, "• b → [END]")
}

func TestHandler_State(t *testing.T) {
	t.Parallel()

	// Arrange
	a, _ := setupApp(t)
	h := a.Handler()

	// Act
	toggled := do(t, h, http.MethodPost, "/api/state/toggle/b", "")
	unknown := do(t, h, http.MethodPost, "/api/state/toggle/zzz", "")
	afterToggle := a.Session().Selected()
	reset := do(t, h, http.MethodPost, "/api/state/reset", "")

	// Assert
	require.Equal(t, http.StatusOK, toggled.Code)
	assert.Equal(t, []string{"a", "b"}, afterToggle)
	assert.Equal(t, http.StatusNotFound, unknown.Code)
	assert.Contains(t, unknown.Body.String(), "unknown circuit 'zzz'")
	require.Equal(t, http.StatusOK, reset.Code)
	assert.Equal(t, []string{"a"}, a.Session().Selected())
	assert.Contains(t, do(t, h, http.MethodGet, "/api/state", "").Body.String(), `"status":"idle"`)
}

func TestHandler_RunFailsAtFetch(t *testing.T) {
	t.Parallel()

	// Arrange
	a, logs := setupApp(t)
	h := a.Handler()

	// Act
	rec := do(t, h, http.MethodPost, "/api/runs", `{"ids":["a","b"]}`)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var report orchestrator.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, orchestrator.ModeLocal, report.Mode)
	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].OK)
	assert.Contains(t, report.Results[0].Error, "failed to fetch input 'inputs/a.json'")
	assert.Equal(t, 0, report.Summary.OK)
	assert.Equal(t, 2, report.Summary.Total)
	st, _ := a.Session().Snapshot().Get("a")
	assert.Equal(t, "failed", string(st.Status))
	assert.Contains(t, logs.String(), "Starting concurrent execution")
}

func TestHandler_RunRejectsBadMode(t *testing.T) {
	t.Parallel()

	a, _ := setupApp(t)
	h := a.Handler()

	badMode := do(t, h, http.MethodPost, "/api/runs", `{"mode":"turbo"}`)
	badFlags := do(t, h, http.MethodPost, "/api/runs", `{"batch":true}`)
	noChain := do(t, h, http.MethodPost, "/api/runs", `{"onChain":true}`)

	assert.Equal(t, http.StatusBadRequest, badMode.Code)
	assert.Equal(t, http.StatusBadRequest, badFlags.Code)
	assert.Contains(t, badFlags.Body.String(), "batch requires on-chain")
	require.Equal(t, http.StatusOK, noChain.Code)
	assert.Contains(t, noChain.Body.String(), "onchain mode requires a chain configuration")
}

func TestHandler_Proofs(t *testing.T) {
	t.Parallel()

	// Arrange
	a, _ := setupApp(t)
	h := a.Handler()

	// Act
	stored := do(t, h, http.MethodPost, "/api/proofs", `{"circuit":"a","proof":{"scheme":"groth16"},"publicSignals":["1"]}`)
	missing := do(t, h, http.MethodPost, "/api/proofs", `{"proof":{}}`)
	listed := do(t, h, http.MethodGet, "/api/proofs", "")

	// Assert
	require.Equal(t, http.StatusOK, stored.Code)
	assert.JSONEq(t, `{"message":"Proof stored"}`, stored.Body.String())
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	var proofs []storedProof
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &proofs))
	require.Len(t, proofs, 1)
	assert.Equal(t, "a", proofs[0].ID)
	assert.JSONEq(t, `{"scheme":"groth16"}`, string(proofs[0].Proof))
	assert.NotEmpty(t, proofs[0].Time)
}

func TestHandler_Metrics(t *testing.T) {
	t.Parallel()

	a, _ := setupApp(t)
	h := a.Handler()
	do(t, h, http.MethodPost, "/api/runs", `{"ids":["a"]}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `zkparallel_circuits_total{mode="local",status="failed"} 1`)
}

func TestDeployments_NoChain(t *testing.T) {
	t.Parallel()

	a, _ := setupApp(t)

	_, err := a.Deployments(context.Background())

	assert.ErrorIs(t, err, ErrNoChain)
}

func TestNewLogger_File(t *testing.T) {
	t.Parallel()

	// Arrange
	path := filepath.Join(t.TempDir(), "zkparallel.log")
	out := &testutil.SafeBuffer{}

	// Act
	logger, closer := newLogger("warn", "json", path, out)
	logger.Info("hidden")
	logger.Warn("shown", "circuit", "a")
	require.NoError(t, closer.Close())

	// Assert
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out.String(), string(raw))
	assert.Contains(t, string(raw), `"msg":"shown"`)
	assert.NotContains(t, string(raw), "hidden")
}

func TestRun_PooledGoroutineWorkers(t *testing.T) {
	t.Parallel()

	// Arrange
	a, _ := setupAppWith(t, func(m *config.Model) {
		m.Settings.Offload = ""
		m.Settings.Concurrency = 2
	})
	require.Equal(t, config.OffloadGoroutine, a.model.Settings.Offload)
	require.NotNil(t, a.pool)

	for run := 0; run < 2; run++ {
		// Act
		report, err := a.Run(context.Background(), orchestrator.Request{IDs: []string{"a", "b"}})

		// Assert
		require.NoError(t, err)
		require.Len(t, report.Results, 2, "run %d", run)
		assert.Equal(t, "a", report.Results[0].CircuitID)
		assert.Equal(t, "b", report.Results[1].CircuitID)
		for _, res := range report.Results {
			assert.False(t, res.OK)
			assert.Contains(t, res.Error, "failed to fetch input")
		}
		assert.Equal(t, 2, a.pool.Idle(), "workers return to the pool after run %d", run)
	}
}

func TestNewApp_ResolvesVerifierContractNames(t *testing.T) {
	t.Parallel()

	// Arrange
	path := filepath.Join(t.TempDir(), "deployments.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"aVerifier": "0x00000000000000000000000000000000000000aa",
		"b": "0x00000000000000000000000000000000000000bb",
		"BatchVerifier": "0x0000000000000000000000000000000000000bad"
	}`), 0o600))

	// Act
	a, _ := setupAppWith(t, func(m *config.Model) {
		m.Chain = &config.Chain{RPCURL: "http://127.0.0.1:1", Deployments: path}
	})

	// Assert
	require.Len(t, a.verifiers, 2)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", strings.ToLower(a.verifiers["a"]))
	assert.Equal(t, "0x00000000000000000000000000000000000000bb", strings.ToLower(a.verifiers["b"]))
}
