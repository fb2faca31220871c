// Package telemetry collects capture statistics, phase timings, and
// structured output (CSV, Prometheus) for the capture engine. Nothing in
// here is invoked by the engine itself; cadence is the caller's business.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated capture statistics for a window of steps.
type WindowStats struct {
	WindowEndStep int     `csv:"window_end"`
	Steps         int     `csv:"steps"`
	TotalCaptured int     `csv:"captured"`
	CumCaptured   int     `csv:"captured_cum"`
	MeanPerStep   float64 `csv:"mean_per_step"`
	P50PerStep    float64 `csv:"p50_per_step"`
	P90PerStep    float64 `csv:"p90_per_step"`
	MaxPerStep    float64 `csv:"max_per_step"`
}

// RateStats summarizes a per-step capture count series.
func RateStats(perStep []float64) (mean, p50, p90, max float64) {
	if len(perStep) == 0 {
		return 0, 0, 0, 0
	}
	sorted := append([]float64(nil), perStep...)
	sort.Float64s(sorted)
	mean = stat.Mean(sorted, nil)
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	max = sorted[len(sorted)-1]
	return mean, p50, p90, max
}

// LogStats reports the window through the default logger.
func (s WindowStats) LogStats() {
	slog.Info("capture window",
		"window_end", s.WindowEndStep,
		"steps", s.Steps,
		"captured", s.TotalCaptured,
		"captured_cum", s.CumCaptured,
		"mean_per_step", s.MeanPerStep,
		"p90_per_step", s.P90PerStep,
	)
}
