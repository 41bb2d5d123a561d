package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/zkparallel/internal/orchestrator"
	"github.com/specialistvlad/zkparallel/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	t.Parallel()

	// Arrange
	m := New()

	// Act
	m.ObserveResult("local", task.Result{CircuitID: "a", OK: true, ElapsedMs: 120})
	m.ObserveResult("local", task.Result{CircuitID: "b", OK: false, ElapsedMs: 80})
	m.ObserveResult("local", task.Result{CircuitID: "c", OK: true, ElapsedMs: 30})
	m.ObserveRun("local", orchestrator.Summary{OK: 2, Total: 3})

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(m.circuits.WithLabelValues("local", "verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.circuits.WithLabelValues("local", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("local")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lastRunOK.WithLabelValues("local")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	t.Parallel()

	// Arrange
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/circuits/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// Act
	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/circuits/"+id, nil))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCounter.WithLabelValues(http.MethodGet, "/api/circuits/:id", "204")))
	assert.Contains(t, rec.Body.String(), `zkparallel_api_requests_total{method="GET",path="/api/circuits/:id",status="204"} 2`)
}
