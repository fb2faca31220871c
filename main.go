package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"skimmer/config"
	"skimmer/sim"
	"skimmer/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	steps := flag.Int("steps", 0, "Steps to run (0 = use config max_steps)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs")
	metricsAddr := flag.String("metrics-addr", "", "Address for the Prometheus /metrics endpoint (empty = disabled)")
	logStats := flag.Bool("log-stats", false, "Log capture and perf windows")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	if *metricsAddr != "" {
		go telemetry.ServeMetrics(*metricsAddr)
	}

	s, err := sim.New(sim.Options{
		Seed:      rngSeed,
		OutputDir: *outputDir,
		LogStats:  *logStats,
	})
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	maxSteps := cfg.Step.MaxSteps
	if *steps > 0 {
		maxSteps = *steps
	}

	slog.Info("starting run",
		"mode", cfg.Geometry.Mode,
		"species", len(cfg.Species),
		"steps", maxSteps,
		"seed", rngSeed,
	)

	start := time.Now()
	s.Run(maxSteps)
	s.Finish()

	slog.Info("run complete",
		"steps", maxSteps,
		"live", s.LiveCount(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	s.Buffer().LogCounts()
}
