package obs

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/horizonfoods/planner-core/internal/config"
)

// Solve-instrumentation metrics, registered once in init().
var (
	SolvesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_solves_started_total",
		Help: "Total number of solves started",
	})
	SolvesCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_solves_completed_total",
		Help: "Total number of solves completed, labeled by termination status",
	}, []string{"status"})
	SolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_solve_duration_seconds",
		Help:    "Histogram of end-to-end solve durations",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
	VariablesEmitted = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planner_variables_emitted",
		Help: "Number of decision variables emitted by the index builder for the last solve",
	})
	ConstraintsGenerated = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planner_constraints_generated",
		Help: "Number of constraints generated for the last solve",
	})
	MIPGapAchieved = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planner_mip_gap",
		Help: "MIP gap of the last completed solve",
	})
	ShortageUnits = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planner_shortage_units",
		Help: "Total shortage units in the last solve's solution",
	})
	MaterialBalanceResidual = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planner_material_balance_residual",
		Help: "Residual material-balance discrepancy reported by the closing assertion",
	})
)

func init() {
	prometheus.MustRegister(
		SolvesStarted, SolvesCompleted, SolveDuration,
		VariablesEmitted, ConstraintsGenerated, MIPGapAchieved,
		ShortageUnits, MaterialBalanceResidual,
	)
}

// StartHTTPServer exposes /metrics, /healthz and /readyz for a caller that
// runs this core as a long-lived sidecar rather than a one-shot library call.
func StartHTTPServer(cfg *config.Config, readiness func() error) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if readiness == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		if err := readiness(); err != nil {
			http.Error(w, fmt.Sprintf("not ready: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Observability.MetricsPort), Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
