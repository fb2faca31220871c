package telemetry

// Collector accumulates per-step capture counts and produces WindowStats
// once per configured window.
type Collector struct {
	windowSteps int

	perStep []float64
	cum     int
}

// NewCollector creates a capture-count collector emitting one summary
// every windowSteps steps.
func NewCollector(windowSteps int) *Collector {
	if windowSteps < 1 {
		windowSteps = 1
	}
	return &Collector{windowSteps: windowSteps}
}

// RecordStep records the number of particles captured on one step.
// It returns the completed window's stats when the window closed with
// this step, and ok=false otherwise.
func (c *Collector) RecordStep(step, captured int) (WindowStats, bool) {
	c.perStep = append(c.perStep, float64(captured))
	c.cum += captured
	if len(c.perStep) < c.windowSteps {
		return WindowStats{}, false
	}
	s := c.flush(step)
	return s, true
}

// Flush closes the current window early, e.g. at the end of a run.
// ok=false when no steps were recorded since the last window.
func (c *Collector) Flush(step int) (WindowStats, bool) {
	if len(c.perStep) == 0 {
		return WindowStats{}, false
	}
	return c.flush(step), true
}

func (c *Collector) flush(step int) WindowStats {
	mean, p50, p90, max := RateStats(c.perStep)
	total := 0
	for _, v := range c.perStep {
		total += int(v)
	}
	s := WindowStats{
		WindowEndStep: step,
		Steps:         len(c.perStep),
		TotalCaptured: total,
		CumCaptured:   c.cum,
		MeanPerStep:   mean,
		P50PerStep:    p50,
		P90PerStep:    p90,
		MaxPerStep:    max,
	}
	c.perStep = c.perStep[:0]
	return s
}
