package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/erzhanbek/hooksched/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine metrics

	JobExecutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hooksched",
		Name:      "job_executions_total",
		Help:      "Total execution attempts finished, by outcome.",
	}, []string{"outcome"})

	JobExecutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hooksched",
		Name:      "job_execution_duration_seconds",
		Help:      "Duration of webhook HTTP dispatch.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"status"})

	JobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hooksched",
		Name:      "jobs_in_flight",
		Help:      "Number of executions currently holding a queue slot.",
	})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hooksched",
		Name:      "exec_queue_depth",
		Help:      "Tasks waiting for a free execution slot.",
	})

	TimersArmed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hooksched",
		Name:      "timers_armed",
		Help:      "Live one-off and retry timers.",
	})

	CronEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hooksched",
		Name:      "cron_entries",
		Help:      "Live recurring cron entries.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hooksched",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hooksched",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		JobExecutionsTotal,
		JobExecutionDuration,
		JobsInFlight,
		QueueDepth,
		TimersArmed,
		CronEntries,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves /metrics plus the liveness and readiness probes.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if result.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(result)
}
