// Package metrics exposes run and API metrics in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/zkparallel/internal/orchestrator"
	"github.com/specialistvlad/zkparallel/internal/task"
)

const namespace = "zkparallel"

// Metrics holds every collector of the process on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	circuits        *prometheus.CounterVec
	proofDuration   *prometheus.HistogramVec
	runs            *prometheus.CounterVec
	lastRunOK       *prometheus.GaugeVec
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var _ orchestrator.Observer = (*Metrics)(nil)

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		circuits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuits_total",
			Help:      "Circuits that finished, by mode and status.",
		}, []string{"mode", "status"}),
		proofDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "circuit_duration_seconds",
			Help:      "Time from task start to result.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"mode"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by mode.",
		}, []string{"mode"}),
		lastRunOK: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_verified",
			Help:      "Circuits verified in the last run of each mode.",
		}, []string{"mode"}),
		requestCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"method", "path"}),
	}
}

// ObserveResult counts a final circuit result.
func (m *Metrics) ObserveResult(mode string, res task.Result) {
	status := "failed"
	if res.OK {
		status = "verified"
	}
	m.circuits.WithLabelValues(mode, status).Inc()
	m.proofDuration.WithLabelValues(mode).Observe(float64(res.ElapsedMs) / 1000)
}

// ObserveRun counts a finished run.
func (m *Metrics) ObserveRun(mode string, summary orchestrator.Summary) {
	m.runs.WithLabelValues(mode).Inc()
	m.lastRunOK.WithLabelValues(mode).Set(float64(summary.OK))
}

// Middleware records request counts and latencies. Paths are the matched
// route patterns so ids do not blow up label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.requestCounter.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
