package telemetry

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skimmer_particles_captured_total",
		Help: "Particles copied into a capture buffer, by species and boundary.",
	}, []string{"species", "boundary"})

	metricBufferSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skimmer_capture_buffer_particles",
		Help: "Current particle count of each capture buffer.",
	}, []string{"species", "boundary"})

	metricGatherSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "skimmer_gather_duration_seconds",
		Help:    "Wall time of one capture gather pass.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	})

	metricSteps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skimmer_steps_total",
		Help: "Simulation steps completed.",
	})
)

// ObserveGather records one gather pass.
func ObserveGather(seconds float64) {
	metricGatherSeconds.Observe(seconds)
	metricSteps.Inc()
}

// ObserveCapture records captured particles for one pair and refreshes
// the buffer-size gauge.
func ObserveCapture(species, boundary string, captured, bufferSize int) {
	if captured > 0 {
		metricCaptured.WithLabelValues(species, boundary).Add(float64(captured))
	}
	metricBufferSize.WithLabelValues(species, boundary).Set(float64(bufferSize))
}

// ServeMetrics exposes the Prometheus registry on addr. It blocks, so run
// it on its own goroutine; errors are logged, not returned, since metric
// serving is best-effort alongside a run.
func ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", "addr", addr, "error", err)
	}
}
